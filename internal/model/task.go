package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	TaskPending    = "Pending"
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
	TaskOnHold     = "On Hold"
)

const (
	PriorityLow    = "Low"
	PriorityMedium = "Medium"
	PriorityHigh   = "High"
)

var (
	TaskStatuses   = []string{TaskPending, TaskInProgress, TaskCompleted, TaskOnHold}
	TaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh}
)

type Task struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	ProjectID    uuid.UUID   `json:"-"`
	Project      *ProjectRef `json:"project"`
	AssignedToID *uuid.UUID  `json:"-"`
	AssignedTo   *UserRef    `json:"assignedTo"`
	DueDate      *time.Time  `json:"dueDate"`
	Status       string      `json:"status"`
	Priority     string      `json:"priority"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// IsAssignedTo 判断任务是否分配给 userID
func (t Task) IsAssignedTo(userID uuid.UUID) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

type TaskPatch struct {
	Name        *string
	Description *string
	ProjectID   *uuid.UUID
	AssignedTo  *uuid.UUID
	DueDate     *time.Time
	Status      *string
	Priority    *string
}

func (p TaskPatch) Apply(t *Task) {
	setString(&t.Name, p.Name)
	setString(&t.Description, p.Description)
	if p.ProjectID != nil {
		t.ProjectID = *p.ProjectID
	}
	if p.AssignedTo != nil {
		id := *p.AssignedTo
		t.AssignedToID = &id
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	setString(&t.Status, p.Status)
	setString(&t.Priority, p.Priority)
}
