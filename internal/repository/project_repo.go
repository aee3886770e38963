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

type ProjectRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewProjectRepository(pool *pgxpool.Pool, logger *zap.Logger) *ProjectRepository {
	return &ProjectRepository{db: pool, logger: logger}
}

// 客户通过 LEFT JOIN 解析，客户被删除时 client 为 NULL
const projectSelect = `
        SELECT p.id, p.name, p.client_id, p.description, p.start_date, p.end_date, p.status, p.created_at,
               c.id, c.name, c.email
        FROM projects p
        LEFT JOIN clients c ON c.id = p.client_id
    `

func scanProject(row pgx.Row) (*model.Project, error) {
	var (
		p           model.Project
		clientID    *uuid.UUID
		clientName  *string
		clientEmail *string
	)
	if err := row.Scan(
		&p.ID,
		&p.Name,
		&p.ClientID,
		&p.Description,
		&p.StartDate,
		&p.EndDate,
		&p.Status,
		&p.CreatedAt,
		&clientID,
		&clientName,
		&clientEmail,
	); err != nil {
		return nil, err
	}
	if clientID != nil {
		p.Client = &model.ClientRef{ID: *clientID, Name: deref(clientName), Email: deref(clientEmail)}
	}
	return &p, nil
}

func (r *ProjectRepository) List(ctx context.Context) ([]model.Project, error) {
	return r.query(ctx, projectSelect+` ORDER BY p.created_at DESC`)
}

func (r *ProjectRepository) Recent(ctx context.Context, limit int) ([]model.Project, error) {
	return r.query(ctx, projectSelect+` ORDER BY p.created_at DESC LIMIT $1`, limit)
}

func (r *ProjectRepository) query(ctx context.Context, query string, args ...any) ([]model.Project, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query projects", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	projects := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			r.logger.Error("Failed to scan project", zap.Error(err))
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

func (r *ProjectRepository) Get(ctx context.Context, id uuid.UUID) (*model.Project, error) {
	p, err := scanProject(db.Conn(ctx, r.db).QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	return p, mapError("project", err)
}

func (r *ProjectRepository) Create(ctx context.Context, p *model.Project) error {
	query := `
        INSERT INTO projects (id, name, client_id, description, start_date, end_date, status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	_, err := db.Conn(ctx, r.db).Exec(ctx, query,
		p.ID, p.Name, p.ClientID, p.Description, p.StartDate, p.EndDate, p.Status, p.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert project", zap.String("name", p.Name), zap.Error(err))
		return mapError("project", err)
	}
	return nil
}

func (r *ProjectRepository) Update(ctx context.Context, p *model.Project) error {
	query := `
        UPDATE projects
        SET name = $2, client_id = $3, description = $4, start_date = $5, end_date = $6, status = $7
        WHERE id = $1
    `
	tag, err := db.Conn(ctx, r.db).Exec(ctx, query,
		p.ID, p.Name, p.ClientID, p.Description, p.StartDate, p.EndDate, p.Status,
	)
	if err != nil {
		r.logger.Error("Failed to update project", zap.String("project_id", p.ID.String()), zap.Error(err))
		return mapError("project", err)
	}
	return notFoundIfNone("project", tag)
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete project", zap.String("project_id", id.String()), zap.Error(err))
		return err
	}
	return notFoundIfNone("project", tag)
}

func (r *ProjectRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM projects`).Scan(&n)
	return n, err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
