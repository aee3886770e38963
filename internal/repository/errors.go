package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"agencyhub/internal/errs"
)

const uniqueViolation = "23505"

// mapError 把驱动错误转换为领域错误
func mapError(entity string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", entity, errs.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s %s", errs.ErrConflict, entity, pgErr.ConstraintName)
	}
	return err
}

func notFoundIfNone(entity string, tag pgconn.CommandTag) error {
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %w", entity, errs.ErrNotFound)
	}
	return nil
}
