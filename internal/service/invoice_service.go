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
)

type InvoiceService struct {
	repo   InvoiceRepository
	tx     Transactor
	events EventOutbox
	logger *zap.Logger
}

func NewInvoiceService(repo InvoiceRepository, tx Transactor, events EventOutbox, logger *zap.Logger) *InvoiceService {
	return &InvoiceService{
		repo:   repo,
		tx:     tx,
		events: events,
		logger: logger,
	}
}

func (s *InvoiceService) List(ctx context.Context) ([]model.Invoice, error) {
	return s.repo.List(ctx)
}

func (s *InvoiceService) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return s.repo.Get(ctx, id)
}

// Create 不触发通知，即使初始状态为 Paid
func (s *InvoiceService) Create(ctx context.Context, inv *model.Invoice) (*model.Invoice, error) {
	if inv.Status == "" {
		inv.Status = model.InvoicePending
	}
	if inv.IssueDate.IsZero() {
		inv.IssueDate = time.Now().UTC()
	}
	if err := s.validate(inv); err != nil {
		return nil, err
	}

	inv.ID = uuid.New()
	inv.CreatedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, inv); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("Invoice created",
		zap.String("invoice_id", inv.ID.String()),
		zap.Float64("amount", inv.Amount),
	)
	return s.repo.Get(ctx, inv.ID)
}

// Update 部分更新；状态从其他值变为 Paid 时写入 invoice.paid 事件
func (s *InvoiceService) Update(ctx context.Context, id uuid.UUID, patch model.InvoicePatch) (*model.Invoice, error) {
	err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		inv, err := s.repo.Get(ctx, id)
		if err != nil {
			return err
		}

		previous := inv.Status
		patch.Apply(inv)
		if err := s.validate(inv); err != nil {
			return err
		}

		if err := s.repo.Update(ctx, inv); err != nil {
			return err
		}

		if previous == model.InvoicePaid || inv.Status != model.InvoicePaid {
			return nil
		}
		return s.events.Enqueue(ctx, "invoice", inv.ID.String(), mqcontracts.RoutingInvoicePaid, mqcontracts.InvoicePaidPayload{
			Envelope:  mqcontracts.NewEnvelope(ctx),
			InvoiceID: inv.ID.String(),
			ClientID:  inv.ClientID.String(),
			Amount:    inv.Amount,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Get(ctx, id)
}

func (s *InvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.WithTrace(ctx, s.logger).Info("Invoice removed", zap.String("invoice_id", id.String()))
	return nil
}

func (s *InvoiceService) validate(inv *model.Invoice) error {
	switch {
	case inv.ClientID == uuid.Nil:
		return fmt.Errorf("%w: client is required", errs.ErrValidation)
	case inv.ProjectID == uuid.Nil:
		return fmt.Errorf("%w: project is required", errs.ErrValidation)
	case inv.Amount < 0:
		return fmt.Errorf("%w: amount must not be negative", errs.ErrValidation)
	case inv.DueDate.IsZero():
		return fmt.Errorf("%w: dueDate is required", errs.ErrValidation)
	}
	return checkEnum("status", inv.Status, model.InvoiceStatuses)
}
