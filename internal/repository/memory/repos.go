package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
)

type ClientRepository struct{ s *Store }

func (r *ClientRepository) List(_ context.Context) ([]model.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.Client{}
	for _, c := range newestFirst(r.s.clients, func(c *model.Client) time.Time { return c.CreatedAt }) {
		out = append(out, *c)
	}
	return out, nil
}

func (r *ClientRepository) Get(_ context.Context, id uuid.UUID) (*model.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.clients {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("client")
}

func (r *ClientRepository) FindByEmail(_ context.Context, email string) (*model.Client, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, c := range r.s.clients {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, notFound("client")
}

func (r *ClientRepository) Create(_ context.Context, c *model.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.clients {
		if existing.Email == c.Email {
			return fmt.Errorf("%w: client email", errs.ErrConflict)
		}
	}
	cp := *c
	r.s.clients = append(r.s.clients, &cp)
	return nil
}

func (r *ClientRepository) Update(_ context.Context, c *model.Client) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.clients {
		if existing.ID != c.ID && existing.Email == c.Email {
			return fmt.Errorf("%w: client email", errs.ErrConflict)
		}
	}
	for i, existing := range r.s.clients {
		if existing.ID == c.ID {
			cp := *c
			r.s.clients[i] = &cp
			return nil
		}
	}
	return notFound("client")
}

func (r *ClientRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, c := range r.s.clients {
		if c.ID == id {
			r.s.clients = append(r.s.clients[:i], r.s.clients[i+1:]...)
			return nil
		}
	}
	return notFound("client")
}

func (r *ClientRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.clients), nil
}

type ProjectRepository struct{ s *Store }

// resolve 需要持有读锁
func (r *ProjectRepository) resolve(p *model.Project) model.Project {
	cp := *p
	cp.Client = r.s.clientRef(p.ClientID)
	return cp
}

func (r *ProjectRepository) List(ctx context.Context) ([]model.Project, error) {
	return r.Recent(ctx, 0)
}

func (r *ProjectRepository) Recent(_ context.Context, limit int) ([]model.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.Project{}
	for _, p := range newestFirst(r.s.projects, func(p *model.Project) time.Time { return p.CreatedAt }) {
		out = append(out, r.resolve(p))
	}
	return limitOf(out, limit), nil
}

func (r *ProjectRepository) Get(_ context.Context, id uuid.UUID) (*model.Project, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, p := range r.s.projects {
		if p.ID == id {
			resolved := r.resolve(p)
			return &resolved, nil
		}
	}
	return nil, notFound("project")
}

func (r *ProjectRepository) Create(_ context.Context, p *model.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *p
	cp.Client = nil
	r.s.projects = append(r.s.projects, &cp)
	return nil
}

func (r *ProjectRepository) Update(_ context.Context, p *model.Project) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, existing := range r.s.projects {
		if existing.ID == p.ID {
			cp := *p
			cp.Client = nil
			r.s.projects[i] = &cp
			return nil
		}
	}
	return notFound("project")
}

func (r *ProjectRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, p := range r.s.projects {
		if p.ID == id {
			r.s.projects = append(r.s.projects[:i], r.s.projects[i+1:]...)
			return nil
		}
	}
	return notFound("project")
}

func (r *ProjectRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.projects), nil
}

type TaskRepository struct{ s *Store }

func (r *TaskRepository) resolve(t *model.Task) model.Task {
	cp := *t
	cp.Project = r.s.projectRef(t.ProjectID)
	cp.AssignedTo = r.s.userRef(t.AssignedToID)
	return cp
}

func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	return r.Recent(ctx, 0)
}

func (r *TaskRepository) Recent(_ context.Context, limit int) ([]model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.Task{}
	for _, t := range newestFirst(r.s.tasks, func(t *model.Task) time.Time { return t.CreatedAt }) {
		out = append(out, r.resolve(t))
	}
	return limitOf(out, limit), nil
}

func (r *TaskRepository) Get(_ context.Context, id uuid.UUID) (*model.Task, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.tasks {
		if t.ID == id {
			resolved := r.resolve(t)
			return &resolved, nil
		}
	}
	return nil, notFound("task")
}

func (r *TaskRepository) Create(_ context.Context, t *model.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *t
	cp.Project, cp.AssignedTo = nil, nil
	r.s.tasks = append(r.s.tasks, &cp)
	return nil
}

func (r *TaskRepository) Update(_ context.Context, t *model.Task) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, existing := range r.s.tasks {
		if existing.ID == t.ID {
			cp := *t
			cp.Project, cp.AssignedTo = nil, nil
			r.s.tasks[i] = &cp
			return nil
		}
	}
	return notFound("task")
}

func (r *TaskRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, t := range r.s.tasks {
		if t.ID == id {
			r.s.tasks = append(r.s.tasks[:i], r.s.tasks[i+1:]...)
			return nil
		}
	}
	return notFound("task")
}

func (r *TaskRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.tasks), nil
}

func (r *TaskRepository) CountByStatus(_ context.Context, status string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, t := range r.s.tasks {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

type InvoiceRepository struct{ s *Store }

func (r *InvoiceRepository) resolve(inv *model.Invoice) model.Invoice {
	cp := *inv
	cp.Client = r.s.clientRef(inv.ClientID)
	cp.Project = r.s.projectRef(inv.ProjectID)
	return cp
}

func (r *InvoiceRepository) List(_ context.Context) ([]model.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.Invoice{}
	for _, inv := range newestFirst(r.s.invoices, func(inv *model.Invoice) time.Time { return inv.CreatedAt }) {
		out = append(out, r.resolve(inv))
	}
	return out, nil
}

func (r *InvoiceRepository) Get(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, inv := range r.s.invoices {
		if inv.ID == id {
			resolved := r.resolve(inv)
			return &resolved, nil
		}
	}
	return nil, notFound("invoice")
}

func (r *InvoiceRepository) Create(_ context.Context, inv *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cp := *inv
	cp.Client, cp.Project = nil, nil
	r.s.invoices = append(r.s.invoices, &cp)
	return nil
}

func (r *InvoiceRepository) Update(_ context.Context, inv *model.Invoice) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, existing := range r.s.invoices {
		if existing.ID == inv.ID {
			cp := *inv
			cp.Client, cp.Project = nil, nil
			r.s.invoices[i] = &cp
			return nil
		}
	}
	return notFound("invoice")
}

func (r *InvoiceRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, inv := range r.s.invoices {
		if inv.ID == id {
			r.s.invoices = append(r.s.invoices[:i], r.s.invoices[i+1:]...)
			return nil
		}
	}
	return notFound("invoice")
}

func (r *InvoiceRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.invoices), nil
}

type UserRepository struct{ s *Store }

func (r *UserRepository) Create(_ context.Context, u *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.users {
		if existing.Email == u.Email {
			return fmt.Errorf("%w: user email", errs.ErrConflict)
		}
	}
	cp := *u
	r.s.users = append(r.s.users, &cp)
	return nil
}

func (r *UserRepository) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.ID == id {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user")
}

// ListByRole 按姓名排序，和 PostgreSQL 实现一致
func (r *UserRepository) ListByRole(_ context.Context, role string) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []model.User{}
	for _, u := range r.s.users {
		if u.Role == role {
			out = append(out, *u)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Name < out[j-1].Name; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out, nil
}

func (r *UserRepository) UpdatePassword(_ context.Context, id uuid.UUID, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.ID == id {
			u.PasswordHash = passwordHash
			return nil
		}
	}
	return notFound("user")
}

type ResetTokenStore struct{ s *Store }

func (r *ResetTokenStore) Save(_ context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.tokens[token] = resetEntry{userID: userID, expiresAt: r.s.now().Add(ttl)}
	return nil
}

func (r *ResetTokenStore) Consume(_ context.Context, token string) (uuid.UUID, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	entry, ok := r.s.tokens[token]
	if !ok {
		return uuid.Nil, errs.ErrInvalidResetToken
	}
	delete(r.s.tokens, token)
	if r.s.now().After(entry.expiresAt) {
		return uuid.Nil, errs.ErrInvalidResetToken
	}
	return entry.userID, nil
}
