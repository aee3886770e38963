package service

import (
	"context"
	"time"

	"agencyhub/internal/model"
	"agencyhub/pkg/rbac"
)

// AnalyticsService 在全量记录上做过滤/汇总
type AnalyticsService struct {
	users    UserRepository
	projects ProjectRepository
	tasks    TaskRepository
	invoices InvoiceRepository
	now      func() time.Time
}

func NewAnalyticsService(users UserRepository, projects ProjectRepository, tasks TaskRepository, invoices InvoiceRepository) *AnalyticsService {
	return &AnalyticsService{
		users:    users,
		projects: projects,
		tasks:    tasks,
		invoices: invoices,
		now:      time.Now,
	}
}

// Productivity 每个 Intern 的已完成/未完成任务数
func (s *AnalyticsService) Productivity(ctx context.Context) ([]model.InternProductivity, error) {
	interns, err := s.users.ListByRole(ctx, rbac.RoleIntern)
	if err != nil {
		return nil, err
	}
	tasks, err := s.tasks.List(ctx)
	if err != nil {
		return nil, err
	}

	type tally struct{ completed, pending int }
	byUser := make(map[string]*tally, len(interns))
	for _, t := range tasks {
		if t.AssignedToID == nil {
			continue
		}
		key := t.AssignedToID.String()
		c, ok := byUser[key]
		if !ok {
			c = &tally{}
			byUser[key] = c
		}
		if t.Status == model.TaskCompleted {
			c.completed++
		} else {
			c.pending++
		}
	}

	out := make([]model.InternProductivity, 0, len(interns))
	for _, u := range interns {
		row := model.InternProductivity{ID: u.ID, Name: u.Name}
		if c, ok := byUser[u.ID.String()]; ok {
			row.Completed = c.completed
			row.Pending = c.pending
		}
		out = append(out, row)
	}
	return out, nil
}

// Revenue actual = 已付金额之和，pending = 待付金额之和，projected = 二者之和
func (s *AnalyticsService) Revenue(ctx context.Context) (*model.Revenue, error) {
	invoices, err := s.invoices.List(ctx)
	if err != nil {
		return nil, err
	}

	var r model.Revenue
	for _, inv := range invoices {
		switch inv.Status {
		case model.InvoicePaid:
			r.Actual += inv.Amount
		case model.InvoicePending:
			r.Pending += inv.Amount
		}
	}
	r.Projected = r.Actual + r.Pending
	return &r, nil
}

// ProjectMetrics delayed = 未完成且结束日期早于当前时间
func (s *AnalyticsService) ProjectMetrics(ctx context.Context) (*model.ProjectMetrics, error) {
	projects, err := s.projects.List(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	m := model.ProjectMetrics{Total: len(projects)}
	for _, p := range projects {
		switch p.Status {
		case model.ProjectCompleted:
			m.Completed++
		case model.ProjectInProgress:
			m.InProgress++
		}
		if p.Delayed(now) {
			m.Delayed++
		}
	}
	return &m, nil
}
