package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "agencyhub/contracts/mq"
	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/rbac"
)

type TaskService struct {
	repo   TaskRepository
	tx     Transactor
	events EventOutbox
	logger *zap.Logger
}

func NewTaskService(repo TaskRepository, tx Transactor, events EventOutbox, logger *zap.Logger) *TaskService {
	return &TaskService{
		repo:   repo,
		tx:     tx,
		events: events,
		logger: logger,
	}
}

func (s *TaskService) List(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx)
}

func (s *TaskService) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	return s.repo.Get(ctx, id)
}

// Create 写入任务；有负责人时在同一事务中写入 task.assigned 事件
func (s *TaskService) Create(ctx context.Context, t *model.Task) (*model.Task, error) {
	if t.Status == "" {
		t.Status = model.TaskPending
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if err := s.validate(t); err != nil {
		return nil, err
	}

	t.ID = uuid.New()
	t.CreatedAt = time.Now().UTC()

	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, t); err != nil {
			return err
		}
		if t.AssignedToID == nil {
			return nil
		}
		return s.events.Enqueue(ctx, "task", t.ID.String(), mqcontracts.RoutingTaskAssigned, mqcontracts.TaskAssignedPayload{
			Envelope:   mqcontracts.NewEnvelope(ctx),
			TaskID:     t.ID.String(),
			TaskName:   t.Name,
			AssigneeID: t.AssignedToID.String(),
			Priority:   t.Priority,
			DueDate:    t.DueDate,
		})
	})
	if err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("Task created",
		zap.String("task_id", t.ID.String()),
		zap.String("project_id", t.ProjectID.String()),
		zap.Bool("assigned", t.AssignedToID != nil),
	)
	return s.repo.Get(ctx, t.ID)
}

// Update 部分更新；状态从其他值变为 Completed 时写入 task.completed 事件
func (s *TaskService) Update(ctx context.Context, actor model.Identity, id uuid.UUID, patch model.TaskPatch) (*model.Task, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}

		previous := t.Status
		patch.Apply(t)
		if err := s.validate(t); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		return s.notifyCompleted(ctx, actor, t, previous)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

// UpdateStatus 仅 Admin 或任务负责人可修改状态
func (s *TaskService) UpdateStatus(ctx context.Context, actor model.Identity, id uuid.UUID, status string) (*model.Task, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		t, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}

		if actor.Role != rbac.RoleAdmin && !t.IsAssignedTo(actor.UserID) {
			logger.WithTrace(ctx, s.logger).Warn("Task status update denied",
				zap.String("task_id", id.String()),
				zap.String("user_id", actor.UserID.String()),
			)
			return fmt.Errorf("%w: only an Admin or the assignee can update this task", errs.ErrForbidden)
		}
		if err := checkEnum("status", status, model.TaskStatuses); err != nil {
			return err
		}

		previous := t.Status
		t.Status = status
		if err := s.repo.Update(ctx, t); err != nil {
			return err
		}
		return s.notifyCompleted(ctx, actor, t, previous)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *TaskService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Task removed", zap.String("task_id", id.String()))
	return nil
}

func (s *TaskService) notifyCompleted(ctx context.Context, actor model.Identity, t *model.Task, previous string) error {
	if previous == model.TaskCompleted || t.Status != model.TaskCompleted {
		return nil
	}
	return s.events.Enqueue(ctx, "task", t.ID.String(), mqcontracts.RoutingTaskCompleted, mqcontracts.TaskCompletedPayload{
		Envelope:    mqcontracts.NewEnvelope(ctx),
		TaskID:      t.ID.String(),
		TaskName:    t.Name,
		CompletedBy: actor.UserID.String(),
	})
}

func (s *TaskService) validate(t *model.Task) error {
	if err := firstErr(
		required("name", t.Name),
		checkEnum("status", t.Status, model.TaskStatuses),
		checkEnum("priority", t.Priority, model.TaskPriorities),
	); err != nil {
		return err
	}
	if t.ProjectID == uuid.Nil {
		return fmt.Errorf("%w: project is required", errs.ErrValidation)
	}
	return nil
}
