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

type TaskRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewTaskRepository(pool *pgxpool.Pool, logger *zap.Logger) *TaskRepository {
	return &TaskRepository{db: pool, logger: logger}
}

const taskSelect = `
        SELECT t.id, t.name, t.description, t.project_id, t.assigned_to, t.due_date, t.status, t.priority, t.created_at,
               p.id, p.name, p.status,
               u.id, u.name, u.email
        FROM tasks t
        LEFT JOIN projects p ON p.id = t.project_id
        LEFT JOIN users u ON u.id = t.assigned_to
    `

func scanTask(row pgx.Row) (*model.Task, error) {
	var (
		t             model.Task
		projectID     *uuid.UUID
		projectName   *string
		projectStatus *string
		userID        *uuid.UUID
		userName      *string
		userEmail     *string
	)
	if err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Description,
		&t.ProjectID,
		&t.AssignedToID,
		&t.DueDate,
		&t.Status,
		&t.Priority,
		&t.CreatedAt,
		&projectID,
		&projectName,
		&projectStatus,
		&userID,
		&userName,
		&userEmail,
	); err != nil {
		return nil, err
	}
	if projectID != nil {
		t.Project = &model.ProjectRef{ID: *projectID, Name: deref(projectName), Status: deref(projectStatus)}
	}
	if userID != nil {
		t.AssignedTo = &model.UserRef{ID: *userID, Name: deref(userName), Email: deref(userEmail)}
	}
	return &t, nil
}

func (r *TaskRepository) List(ctx context.Context) ([]model.Task, error) {
	return r.query(ctx, taskSelect+` ORDER BY t.created_at DESC`)
}

func (r *TaskRepository) Recent(ctx context.Context, limit int) ([]model.Task, error) {
	return r.query(ctx, taskSelect+` ORDER BY t.created_at DESC LIMIT $1`, limit)
}

func (r *TaskRepository) query(ctx context.Context, query string, args ...any) ([]model.Task, error) {
	rows, err := db.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to query tasks", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	tasks := []model.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			r.logger.Error("Failed to scan task", zap.Error(err))
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, rows.Err()
}

func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*model.Task, error) {
	t, err := scanTask(db.Conn(ctx, r.db).QueryRow(ctx, taskSelect+` WHERE t.id = $1`, id))
	return t, mapError("task", err)
}

func (r *TaskRepository) Create(ctx context.Context, t *model.Task) error {
	r.logger.Debug("Inserting task",
		zap.String("task_id", t.ID.String()),
		zap.String("project_id", t.ProjectID.String()),
		zap.String("status", t.Status),
	)
	query := `
        INSERT INTO tasks (id, name, description, project_id, assigned_to, due_date, status, priority, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := db.Conn(ctx, r.db).Exec(ctx, query,
		t.ID, t.Name, t.Description, t.ProjectID, t.AssignedToID, t.DueDate, t.Status, t.Priority, t.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to insert task", zap.String("task_id", t.ID.String()), zap.Error(err))
		return mapError("task", err)
	}
	return nil
}

func (r *TaskRepository) Update(ctx context.Context, t *model.Task) error {
	query := `
        UPDATE tasks
        SET name = $2, description = $3, project_id = $4, assigned_to = $5, due_date = $6, status = $7, priority = $8
        WHERE id = $1
    `
	tag, err := db.Conn(ctx, r.db).Exec(ctx, query,
		t.ID, t.Name, t.Description, t.ProjectID, t.AssignedToID, t.DueDate, t.Status, t.Priority,
	)
	if err != nil {
		r.logger.Error("Failed to update task", zap.String("task_id", t.ID.String()), zap.Error(err))
		return mapError("task", err)
	}
	return notFoundIfNone("task", tag)
}

func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.db).Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		r.logger.Error("Failed to delete task", zap.String("task_id", id.String()), zap.Error(err))
		return err
	}
	return notFoundIfNone("task", tag)
}

func (r *TaskRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM tasks`).Scan(&n)
	return n, err
}

func (r *TaskRepository) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := db.Conn(ctx, r.db).QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE status = $1`, status).Scan(&n)
	return n, err
}
