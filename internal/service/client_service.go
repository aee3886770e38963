package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/pkg/logger"
)

type ClientService struct {
	repo   ClientRepository
	logger *zap.Logger
}

func NewClientService(repo ClientRepository, logger *zap.Logger) *ClientService {
	return &ClientService{repo: repo, logger: logger}
}

// List 按创建时间倒序返回所有客户
func (s *ClientService) List(ctx context.Context) ([]model.Client, error) {
	return s.repo.List(ctx)
}

func (s *ClientService) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	return s.repo.Get(ctx, id)
}

// Create 校验必填字段与状态枚举，邮箱重复返回 ErrConflict
func (s *ClientService) Create(ctx context.Context, c *model.Client) (*model.Client, error) {
	if c.Status == "" {
		c.Status = model.ClientPending
	}
	if err := firstErr(
		required("name", c.Name),
		required("email", c.Email),
		required("phone", c.Phone),
		required("companyName", c.CompanyName),
		checkEnum("status", c.Status, model.ClientStatuses),
	); err != nil {
		return nil, err
	}

	if err := s.ensureEmailFree(ctx, c.Email, uuid.Nil); err != nil {
		return nil, err
	}

	c.ID = uuid.New()
	c.CreatedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("Client created",
		zap.String("client_id", c.ID.String()),
		zap.String("email", c.Email),
	)
	return c, nil
}

// Update 只应用 patch 中出现的字段
func (s *ClientService) Update(ctx context.Context, id uuid.UUID, patch model.ClientPatch) (*model.Client, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	previousEmail := c.Email
	patch.Apply(c)

	if err := checkEnum("status", c.Status, model.ClientStatuses); err != nil {
		return nil, err
	}
	if c.Email != previousEmail {
		if err := s.ensureEmailFree(ctx, c.Email, c.ID); err != nil {
			return nil, err
		}
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Client removed", zap.String("client_id", id.String()))
	return nil
}

func (s *ClientService) ensureEmailFree(ctx context.Context, email string, self uuid.UUID) error {
	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, errs.ErrNotFound):
		return nil
	case err != nil:
		return err
	case existing.ID != self:
		return fmt.Errorf("%w: client with email %s", errs.ErrConflict, email)
	}
	return nil
}
