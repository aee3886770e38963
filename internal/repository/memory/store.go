// Package memory 提供 service 层仓储接口的内存实现，
// 用于 storage.driver=memory 的本地运行和 API 测试。
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
)

// Store 持有全部实体，按插入顺序保存；各 Repository 是它的视图
type Store struct {
	mu       sync.RWMutex
	clients  []*model.Client
	projects []*model.Project
	tasks    []*model.Task
	invoices []*model.Invoice
	users    []*model.User
	tokens   map[string]resetEntry

	now func() time.Time
}

type resetEntry struct {
	userID    uuid.UUID
	expiresAt time.Time
}

func NewStore() *Store {
	return &Store{
		tokens: make(map[string]resetEntry),
		now:    time.Now,
	}
}

// WithinTx 直接执行 fn：内存实现没有回滚，fn 失败前的写入会保留
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *Store) Clients() *ClientRepository   { return &ClientRepository{s: s} }
func (s *Store) Projects() *ProjectRepository { return &ProjectRepository{s: s} }
func (s *Store) Tasks() *TaskRepository       { return &TaskRepository{s: s} }
func (s *Store) Invoices() *InvoiceRepository { return &InvoiceRepository{s: s} }
func (s *Store) Users() *UserRepository       { return &UserRepository{s: s} }
func (s *Store) ResetTokens() *ResetTokenStore {
	return &ResetTokenStore{s: s}
}

func notFound(entity string) error {
	return fmt.Errorf("%s %w", entity, errs.ErrNotFound)
}

// newestFirst 按创建时间倒序返回；时间相同时后插入的在前
func newestFirst[T any](items []*T, createdAt func(*T) time.Time) []*T {
	out := make([]*T, 0, len(items))
	for i := len(items) - 1; i >= 0; i-- {
		out = append(out, items[i])
	}
	// 插入排序保持稳定，数据量很小
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && createdAt(out[j]).After(createdAt(out[j-1])); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func limitOf[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}

// 以下 lookup 需要在持有读锁时调用

func (s *Store) clientRef(id uuid.UUID) *model.ClientRef {
	for _, c := range s.clients {
		if c.ID == id {
			return &model.ClientRef{ID: c.ID, Name: c.Name, Email: c.Email}
		}
	}
	return nil
}

func (s *Store) projectRef(id uuid.UUID) *model.ProjectRef {
	for _, p := range s.projects {
		if p.ID == id {
			return &model.ProjectRef{ID: p.ID, Name: p.Name, Status: p.Status}
		}
	}
	return nil
}

func (s *Store) userRef(id *uuid.UUID) *model.UserRef {
	if id == nil {
		return nil
	}
	for _, u := range s.users {
		if u.ID == *id {
			return &model.UserRef{ID: u.ID, Name: u.Name, Email: u.Email}
		}
	}
	return nil
}
