package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/pkg/logger"
)

type ProjectService struct {
	repo   ProjectRepository
	logger *zap.Logger
}

func NewProjectService(repo ProjectRepository, logger *zap.Logger) *ProjectService {
	return &ProjectService{repo: repo, logger: logger}
}

func (s *ProjectService) List(ctx context.Context) ([]model.Project, error) {
	return s.repo.List(ctx)
}

func (s *ProjectService) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	return s.repo.Get(ctx, id)
}

// Create 不校验客户是否存在，悬空引用在读取时表现为 client: null
func (s *ProjectService) Create(ctx context.Context, p *model.Project) (*model.Project, error) {
	if p.Status == "" {
		p.Status = model.ProjectNotStarted
	}
	if err := s.validate(p); err != nil {
		return nil, err
	}

	p.ID = uuid.New()
	p.CreatedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("Project created",
		zap.String("project_id", p.ID.String()),
		zap.String("client_id", p.ClientID.String()),
	)
	return s.repo.Get(ctx, p.ID)
}

func (s *ProjectService) Update(ctx context.Context, id uuid.UUID, patch model.ProjectPatch) (*model.Project, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	patch.Apply(p)
	if err := s.validate(p); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *ProjectService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Project removed", zap.String("project_id", id.String()))
	return nil
}

func (s *ProjectService) validate(p *model.Project) error {
	if err := firstErr(
		required("name", p.Name),
		checkEnum("status", p.Status, model.ProjectStatuses),
	); err != nil {
		return err
	}
	if p.ClientID == uuid.Nil {
		return fmt.Errorf("%w: client is required", errs.ErrValidation)
	}
	if p.StartDate.IsZero() {
		return fmt.Errorf("%w: startDate is required", errs.ErrValidation)
	}
	if p.EndDate.IsZero() {
		return fmt.Errorf("%w: endDate is required", errs.ErrValidation)
	}
	return nil
}
