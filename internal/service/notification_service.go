package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "agencyhub/contracts/mq"
	"agencyhub/internal/errs"
	"agencyhub/internal/mailer"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/rbac"
)

// NotificationService 把通知事件渲染成邮件并发送，由 worker 调用
type NotificationService struct {
	users  UserRepository
	sender mailer.Sender
	logger *zap.Logger
}

func NewNotificationService(users UserRepository, sender mailer.Sender, logger *zap.Logger) *NotificationService {
	return &NotificationService{users: users, sender: sender, logger: logger}
}

// TaskAssigned 通知任务负责人；负责人已被删除时跳过
func (s *NotificationService) TaskAssigned(ctx context.Context, p mqcontracts.TaskAssignedPayload) error {
	assigneeID, err := uuid.Parse(p.AssigneeID)
	if err != nil {
		return fmt.Errorf("%w: assignee id %q", errs.ErrValidation, p.AssigneeID)
	}

	u, err := s.users.Get(ctx, assigneeID)
	if errors.Is(err, errs.ErrNotFound) {
		logger.WithTrace(ctx, s.logger).Warn("Assignee no longer exists, skipping notification",
			zap.String("task_id", p.TaskID),
			zap.String("assignee_id", p.AssigneeID),
		)
		return nil
	}
	if err != nil {
		return err
	}

	var body strings.Builder
	fmt.Fprintf(&body, "Hello %s,\n\nYou have been assigned a new task: %s.\n", u.Name, p.TaskName)
	fmt.Fprintf(&body, "Priority: %s\n", p.Priority)
	if p.DueDate != nil {
		fmt.Fprintf(&body, "Due date: %s\n", p.DueDate.Format("2006-01-02"))
	}

	return s.sender.Send(ctx, mailer.Message{
		To:      []string{u.Email},
		Subject: "New Task Assigned: " + p.TaskName,
		Body:    body.String(),
	})
}

// TaskCompleted 通知所有 Admin
func (s *NotificationService) TaskCompleted(ctx context.Context, p mqcontracts.TaskCompletedPayload) error {
	completedBy := p.CompletedBy
	if id, err := uuid.Parse(p.CompletedBy); err == nil {
		if u, err := s.users.Get(ctx, id); err == nil {
			completedBy = u.Name
		}
	}

	return s.notifyAdmins(ctx,
		"Task Completed: "+p.TaskName,
		fmt.Sprintf("The task %q has been marked as Completed by %s.\n", p.TaskName, completedBy),
	)
}

// InvoicePaid 通知所有 Admin
func (s *NotificationService) InvoicePaid(ctx context.Context, p mqcontracts.InvoicePaidPayload) error {
	return s.notifyAdmins(ctx,
		"Invoice Paid",
		fmt.Sprintf("Invoice %s has been paid. Amount: %.2f\n", p.InvoiceID, p.Amount),
	)
}

// PasswordReset 把重置 token 发给用户本人
func (s *NotificationService) PasswordReset(ctx context.Context, p mqcontracts.PasswordResetPayload) error {
	if p.Email == "" {
		return fmt.Errorf("%w: password reset without email", errs.ErrValidation)
	}
	return s.sender.Send(ctx, mailer.Message{
		To:      []string{p.Email},
		Subject: "Password Reset Request",
		Body: fmt.Sprintf(
			"Hello %s,\n\nUse the following token to reset your password. It expires in one hour.\n\n%s\n\n"+
				"If you did not request a password reset, ignore this email.\n",
			p.Name, p.Token,
		),
	})
}

func (s *NotificationService) notifyAdmins(ctx context.Context, subject, body string) error {
	admins, err := s.users.ListByRole(ctx, rbac.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		logger.WithTrace(ctx, s.logger).Warn("No admins to notify", zap.String("subject", subject))
		return nil
	}

	to := make([]string, 0, len(admins))
	for _, a := range admins {
		to = append(to, a.Email)
	}
	return s.sender.Send(ctx, mailer.Message{To: to, Subject: subject, Body: body})
}
