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

type ClientRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewClientRepository(pool *pgxpool.Pool, logger *zap.Logger) *ClientRepository {
	return &ClientRepository{db: pool, logger: logger}
}

const clientColumns = `id, name, email, phone, company_name, address, status, created_at`

func scanClient(row pgx.Row) (*model.Client, error) {
	var c model.Client
	if err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.CompanyName,
		&c.Address,
		&c.Status,
		&c.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ClientRepository) List(ctx context.Context) ([]model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients ORDER BY created_at DESC`

	rows, err := db.Conn(ctx, r.db).Query(ctx, query)
	if err != nil {
		r.logger.Error("Failed to query clients", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			r.logger.Error("Failed to scan client", zap.Error(err))
			return nil, err
		}
		clients = append(clients, *c)
	}
	return clients, rows.Err()
}

func (r *ClientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`
	c, err := scanClient(db.Conn(ctx, r.db).QueryRow(ctx, query, id))
	return c, mapError("client", err)
}

func (r *ClientRepository) FindByEmail(ctx context.Context, email string) (*model.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE email = $1`
	c, err := scanClient(db.Conn(ctx, r.db).QueryRow(ctx, query, email))
	return c, mapError("client", err)
}

func (r *ClientRepository) Create(ctx context.Context, c *model.Client) error {
	query := `
        INSERT INTO clients (id, name, email, phone, company_name, address, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := db.Conn(ctx, r.db).Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.CompanyName, c.Address, c.Status, c.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert client", zap.String("email", c.Email), zap.Error(err))
		return mapError("client", err)
	}
	return nil
}

func (r *ClientRepository) Update(ctx context.Context, c *model.Client) error {
	query := `
        UPDATE clients
        SET name = $2, email = $3, phone = $4, company_name = $5, address = $6, status = $7
        WHERE id = $1
    `
	tag, err := db.Conn(ctx, r.db).Exec(ctx, query,
		c.ID, c.Name, c.Email, c.Phone, c.CompanyName, c.Address, c.Status,
	)
	if err != nil {
		r.logger.Error("Failed to update client", zap.String("client_id", c.ID.String()), zap.Error(err))
		return mapError("client", err)
	}
	return notFoundIfNone("client", tag)
}

func (r *ClientRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM clients WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete client", zap.String("client_id", id.String()), zap.Error(err))
		return err
	}
	return notFoundIfNone("client", tag)
}

func (r *ClientRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n)
	return n, err
}
