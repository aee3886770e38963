package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"agencyhub/internal/errs"
)

// ResetTokenRepository 在 Redis 中保存 reset:<token> → user id
type ResetTokenRepository struct {
	rdb *redis.Client
}

func NewResetTokenRepository(rdb *redis.Client) *ResetTokenRepository {
	return &ResetTokenRepository{rdb: rdb}
}

func resetKey(token string) string {
	return "reset:" + token
}

func (r *ResetTokenRepository) Save(ctx context.Context, token string, userID uuid.UUID, ttl time.Duration) error {
	if err := r.rdb.Set(ctx, resetKey(token), userID.String(), ttl).Err(); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}
	return nil
}

// Consume 用 GETDEL 保证 token 只能使用一次
func (r *ResetTokenRepository) Consume(ctx context.Context, token string) (uuid.UUID, error) {
	val, err := r.rdb.GetDel(ctx, resetKey(token)).Result()
	if errors.Is(err, redis.Nil) {
		return uuid.Nil, errs.ErrInvalidResetToken
	}
	if err != nil {
		return uuid.Nil, fmt.Errorf("read reset token: %w", err)
	}

	id, err := uuid.Parse(val)
	if err != nil {
		return uuid.Nil, errs.ErrInvalidResetToken
	}
	return id, nil
}
