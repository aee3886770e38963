package model

import (
	"time"

	"github.com/google/uuid"
)

type DashboardCounts struct {
	Clients        int `json:"clients"`
	Projects       int `json:"projects"`
	Tasks          int `json:"tasks"`
	Invoices       int `json:"invoices"`
	PendingTasks   int `json:"pendingTasks"`
	CompletedTasks int `json:"completedTasks"`
}

type ProjectBrief struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// RecentTask 是仪表盘上的任务行，项目只带 id 和 name
type RecentTask struct {
	ID         uuid.UUID     `json:"id"`
	Name       string        `json:"name"`
	Project    *ProjectBrief `json:"project"`
	AssignedTo *UserRef      `json:"assignedTo"`
	DueDate    *time.Time    `json:"dueDate"`
	Status     string        `json:"status"`
	Priority   string        `json:"priority"`
	CreatedAt  time.Time     `json:"createdAt"`
}

type DashboardStats struct {
	Counts         DashboardCounts `json:"counts"`
	ActiveProjects []Project       `json:"activeProjects"`
	RecentTasks    []RecentTask    `json:"recentTasks"`
}

type InternProductivity struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Completed int       `json:"completed"`
	Pending   int       `json:"pending"`
}

type Revenue struct {
	Actual    float64 `json:"actual"`
	Pending   float64 `json:"pending"`
	Projected float64 `json:"projected"`
}

type ProjectMetrics struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	Delayed    int `json:"delayed"`
}
