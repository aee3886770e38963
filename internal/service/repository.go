package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"agencyhub/internal/model"
)

// 以下接口由 internal/repository（PostgreSQL）与 internal/repository/memory 实现。
// 找不到记录返回 errs.ErrNotFound，唯一约束冲突返回 errs.ErrConflict。

type ClientRepository interface {
	List(ctx context.Context) ([]model.Client, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Client, error)
	FindByEmail(ctx context.Context, email string) (*model.Client, error)
	Create(ctx context.Context, c *model.Client) error
	Update(ctx context.Context, c *model.Client) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type ProjectRepository interface {
	List(ctx context.Context) ([]model.Project, error)
	Recent(ctx context.Context, limit int) ([]model.Project, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Project, error)
	Create(ctx context.Context, p *model.Project) error
	Update(ctx context.Context, p *model.Project) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type TaskRepository interface {
	List(ctx context.Context) ([]model.Task, error)
	Recent(ctx context.Context, limit int) ([]model.Task, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Create(ctx context.Context, t *model.Task) error
	Update(ctx context.Context, t *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context, status string) (int, error)
}

type InvoiceRepository interface {
	List(ctx context.Context) ([]model.Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	Create(ctx context.Context, inv *model.Invoice) error
	Update(ctx context.Context, inv *model.Invoice) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	ListByRole(ctx context.Context, role string) ([]model.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// Transactor 在一个事务中执行 fn，repository 通过 ctx 加入该事务
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventOutbox 写入待发布的通知事件（*outbox.Writer 实现）
type EventOutbox interface {
	Enqueue(ctx context.Context, aggregateType, aggregateID, routingKey string, payload any) error
}

// ResetTokenStore 保存一次性的密码重置 token
type ResetTokenStore interface {
	Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error
	// Consume 取出并删除 token；不存在或过期返回 errs.ErrInvalidResetToken
	Consume(ctx context.Context, token string) (uuid.UUID, error)
}
