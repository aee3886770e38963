package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProjectNotStarted = "Not Started"
	ProjectInProgress = "In Progress"
	ProjectCompleted  = "Completed"
	ProjectOnHold     = "On Hold"
)

var ProjectStatuses = []string{ProjectNotStarted, ProjectInProgress, ProjectCompleted, ProjectOnHold}

type Project struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	ClientID    uuid.UUID  `json:"-"`
	Client      *ClientRef `json:"client"`
	Description string     `json:"description"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ProjectRef 是任务、发票 join 出来的项目摘要
type ProjectRef struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Status string    `json:"status"`
}

// Delayed 未完成且已过结束日期
func (p Project) Delayed(now time.Time) bool {
	return p.Status != ProjectCompleted && p.EndDate.Before(now)
}

type ProjectPatch struct {
	Name        *string
	ClientID    *uuid.UUID
	Description *string
	StartDate   *time.Time
	EndDate     *time.Time
	Status      *string
}

func (p ProjectPatch) Apply(pr *Project) {
	setString(&pr.Name, p.Name)
	if p.ClientID != nil {
		pr.ClientID = *p.ClientID
	}
	setString(&pr.Description, p.Description)
	setTime(&pr.StartDate, p.StartDate)
	setTime(&pr.EndDate, p.EndDate)
	setString(&pr.Status, p.Status)
}
