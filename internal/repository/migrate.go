package repository

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// Migrate 建表（幂等），启动时调用
func Migrate(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		logger.Error("Schema migration failed", zap.Error(err))
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.Info("Schema is up to date")
	return nil
}
