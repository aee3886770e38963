package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"agencyhub/internal/model"
	"agencyhub/pkg/db"
)

type InvoiceRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewInvoiceRepository(pool *pgxpool.Pool, logger *zap.Logger) *InvoiceRepository {
	return &InvoiceRepository{db: pool, logger: logger}
}

const invoiceSelect = `
        SELECT i.id, i.client_id, i.project_id, i.amount, i.issue_date, i.due_date, i.status, i.created_at,
               c.id, c.name, c.email,
               p.id, p.name, p.status
        FROM invoices i
        LEFT JOIN clients c ON c.id = i.client_id
        LEFT JOIN projects p ON p.id = i.project_id
    `

func scanInvoice(row pgx.Row) (*model.Invoice, error) {
	var (
		inv           model.Invoice
		clientID      *uuid.UUID
		clientName    *string
		clientEmail   *string
		projectID     *uuid.UUID
		projectName   *string
		projectStatus *string
	)
	if err := row.Scan(
		&inv.ID,
		&inv.ClientID,
		&inv.ProjectID,
		&inv.Amount,
		&inv.IssueDate,
		&inv.DueDate,
		&inv.Status,
		&inv.CreatedAt,
		&clientID,
		&clientName,
		&clientEmail,
		&projectID,
		&projectName,
		&projectStatus,
	); err != nil {
		return nil, err
	}
	if clientID != nil {
		inv.Client = &model.ClientRef{ID: *clientID, Name: deref(clientName), Email: deref(clientEmail)}
	}
	if projectID != nil {
		inv.Project = &model.ProjectRef{ID: *projectID, Name: deref(projectName), Status: deref(projectStatus)}
	}
	return &inv, nil
}

func (r *InvoiceRepository) List(ctx context.Context) ([]model.Invoice, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, invoiceSelect+` ORDER BY i.created_at DESC`)
	if err != nil {
		r.logger.Error("Failed to query invoices", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	invoices := []model.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			r.logger.Error("Failed to scan invoice", zap.Error(err))
			return nil, err
		}
		invoices = append(invoices, *inv)
	}
	return invoices, rows.Err()
}

func (r *InvoiceRepository) Get(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	inv, err := scanInvoice(db.Conn(ctx, r.db).QueryRow(ctx, invoiceSelect+` WHERE i.id = $1`, id))
	return inv, mapError("invoice", err)
}

func (r *InvoiceRepository) Create(ctx context.Context, inv *model.Invoice) error {
	query := `
        INSERT INTO invoices (id, client_id, project_id, amount, issue_date, due_date, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := db.Conn(ctx, r.db).Exec(ctx, query,
		inv.ID, inv.ClientID, inv.ProjectID, inv.Amount, inv.IssueDate, inv.DueDate, inv.Status, inv.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert invoice", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		return mapError("invoice", err)
	}
	return nil
}

func (r *InvoiceRepository) Update(ctx context.Context, inv *model.Invoice) error {
	query := `
        UPDATE invoices
        SET client_id = $2, project_id = $3, amount = $4, issue_date = $5, due_date = $6, status = $7
        WHERE id = $1
    `
	tag, err := db.Conn(ctx, r.db).Exec(ctx, query,
		inv.ID, inv.ClientID, inv.ProjectID, inv.Amount, inv.IssueDate, inv.DueDate, inv.Status,
	)
	if err != nil {
		r.logger.Error("Failed to update invoice", zap.String("invoice_id", inv.ID.String()), zap.Error(err))
		return mapError("invoice", err)
	}
	return notFoundIfNone("invoice", tag)
}

func (r *InvoiceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM invoices WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete invoice", zap.String("invoice_id", id.String()), zap.Error(err))
		return err
	}
	return notFoundIfNone("invoice", tag)
}

func (r *InvoiceRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`).Scan(&n)
	return n, err
}
