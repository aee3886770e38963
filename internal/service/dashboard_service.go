package service

import (
	"context"
	"fmt"

	"agencyhub/internal/model"
)

const dashboardRecentLimit = 5

type DashboardService struct {
	clients  ClientRepository
	projects ProjectRepository
	tasks    TaskRepository
	invoices InvoiceRepository
}

func NewDashboardService(clients ClientRepository, projects ProjectRepository, tasks TaskRepository, invoices InvoiceRepository) *DashboardService {
	return &DashboardService{
		clients:  clients,
		projects: projects,
		tasks:    tasks,
		invoices: invoices,
	}
}

// Stats 每次请求实时计算，不做缓存
func (s *DashboardService) Stats(ctx context.Context) (*model.DashboardStats, error) {
	var (
		counts model.DashboardCounts
		err    error
	)

	if counts.Clients, err = s.clients.Count(ctx); err != nil {
		return nil, fmt.Errorf("count clients: %w", err)
	}
	if counts.Projects, err = s.projects.Count(ctx); err != nil {
		return nil, fmt.Errorf("count projects: %w", err)
	}
	if counts.Tasks, err = s.tasks.Count(ctx); err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}
	if counts.Invoices, err = s.invoices.Count(ctx); err != nil {
		return nil, fmt.Errorf("count invoices: %w", err)
	}
	if counts.PendingTasks, err = s.tasks.CountByStatus(ctx, model.TaskPending); err != nil {
		return nil, fmt.Errorf("count pending tasks: %w", err)
	}
	if counts.CompletedTasks, err = s.tasks.CountByStatus(ctx, model.TaskCompleted); err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}

	projects, err := s.projects.Recent(ctx, dashboardRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent projects: %w", err)
	}
	tasks, err := s.tasks.Recent(ctx, dashboardRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("recent tasks: %w", err)
	}

	recent := make([]model.RecentTask, 0, len(tasks))
	for _, t := range tasks {
		rt := model.RecentTask{
			ID:         t.ID,
			Name:       t.Name,
			AssignedTo: t.AssignedTo,
			DueDate:    t.DueDate,
			Status:     t.Status,
			Priority:   t.Priority,
			CreatedAt:  t.CreatedAt,
		}
		if t.Project != nil {
			rt.Project = &model.ProjectBrief{ID: t.Project.ID, Name: t.Project.Name}
		}
		recent = append(recent, rt)
	}

	if projects == nil {
		projects = []model.Project{}
	}

	return &model.DashboardStats{
		Counts:         counts,
		ActiveProjects: projects,
		RecentTasks:    recent,
	}, nil
}
