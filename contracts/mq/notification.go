package mq

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agencyhub/pkg/trace"
)

// 通知事件的 routing key，worker 为每个 key 建一个队列
const (
	RoutingTaskAssigned  = "task.assigned"
	RoutingTaskCompleted = "task.completed"
	RoutingInvoicePaid   = "invoice.paid"
	RoutingPasswordReset = "user.password_reset"
)

// Envelope 是所有事件共有的字段；event_id 用于消费端去重
type Envelope struct {
	EventID    string    `json:"event_id"`
	TraceID    string    `json:"trace_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewEnvelope 生成新的 event_id 并带上请求的 trace_id
func NewEnvelope(ctx context.Context) Envelope {
	return Envelope{
		EventID:    uuid.NewString(),
		TraceID:    trace.FromContext(ctx),
		OccurredAt: time.Now().UTC(),
	}
}

// TaskAssignedPayload 新建任务时指定了负责人
type TaskAssignedPayload struct {
	Envelope
	TaskID     string     `json:"task_id"`
	TaskName   string     `json:"task_name"`
	AssigneeID string     `json:"assignee_id"`
	Priority   string     `json:"priority"`
	DueDate    *time.Time `json:"due_date,omitempty"`
}

// TaskCompletedPayload 任务状态变为 Completed，通知所有 Admin
type TaskCompletedPayload struct {
	Envelope
	TaskID      string `json:"task_id"`
	TaskName    string `json:"task_name"`
	CompletedBy string `json:"completed_by"`
}

// InvoicePaidPayload 发票状态变为 Paid，通知所有 Admin
type InvoicePaidPayload struct {
	Envelope
	InvoiceID string  `json:"invoice_id"`
	ClientID  string  `json:"client_id"`
	Amount    float64 `json:"amount"`
}

// PasswordResetPayload 忘记密码，把重置 token 发给用户
type PasswordResetPayload struct {
	Envelope
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Token  string `json:"token"`
}
