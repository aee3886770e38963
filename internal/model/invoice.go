package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	InvoicePending = "Pending"
	InvoicePaid    = "Paid"
	InvoiceOverdue = "Overdue"
)

var InvoiceStatuses = []string{InvoicePending, InvoicePaid, InvoiceOverdue}

type Invoice struct {
	ID        uuid.UUID   `json:"id"`
	ClientID  uuid.UUID   `json:"-"`
	Client    *ClientRef  `json:"client"`
	ProjectID uuid.UUID   `json:"-"`
	Project   *ProjectRef `json:"project"`
	Amount    float64     `json:"amount"`
	IssueDate time.Time   `json:"issueDate"`
	DueDate   time.Time   `json:"dueDate"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

type InvoicePatch struct {
	ClientID  *uuid.UUID
	ProjectID *uuid.UUID
	Amount    *float64
	IssueDate *time.Time
	DueDate   *time.Time
	Status    *string
}

func (p InvoicePatch) Apply(inv *Invoice) {
	if p.ClientID != nil {
		inv.ClientID = *p.ClientID
	}
	if p.ProjectID != nil {
		inv.ProjectID = *p.ProjectID
	}
	if p.Amount != nil {
		inv.Amount = *p.Amount
	}
	setTime(&inv.IssueDate, p.IssueDate)
	setTime(&inv.DueDate, p.DueDate)
	setString(&inv.Status, p.Status)
}
