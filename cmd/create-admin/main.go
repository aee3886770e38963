package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"time"

	"go.uber.org/zap"

	"agencyhub/internal/config"
	"agencyhub/internal/errs"
	"agencyhub/internal/repository"
	"agencyhub/internal/service"
	"agencyhub/pkg/db"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/rbac"
)

// create-admin 在 PostgreSQL 中创建一个 Admin 用户，邮箱已存在时不做修改
func main() {
	name := flag.String("name", "Admin", "display name")
	email := flag.String("email", os.Getenv("ADMIN_EMAIL"), "login email")
	password := flag.String("password", os.Getenv("ADMIN_PASSWORD"), "login password")
	flag.Parse()

	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	if *email == "" || *password == "" {
		log.Fatal("email and password are required (-email/-password or ADMIN_EMAIL/ADMIN_PASSWORD)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool, log); err != nil {
		log.Fatal("Failed to migrate schema", zap.Error(err))
	}

	users := repository.NewUserRepository(pool, log)
	// Register 不会用到 reset token 与 outbox
	auth := service.NewAuthService(users, nil, nil, db.NewTxManager(pool), cfg.JWT.Secret, cfg.JWT.TTL(), log)

	res, err := auth.Register(ctx, *name, *email, *password, rbac.RoleAdmin)
	if errors.Is(err, errs.ErrConflict) {
		existing, findErr := users.FindByEmail(ctx, *email)
		if findErr != nil {
			log.Fatal("Failed to load existing user", zap.Error(findErr))
		}
		log.Warn("User already exists, leaving it unchanged",
			zap.String("user_id", existing.ID.String()),
			zap.String("role", existing.Role),
		)
		return
	}
	if err != nil {
		log.Fatal("Failed to create admin", zap.Error(err))
	}

	log.Info("Admin user created",
		zap.String("user_id", res.User.ID.String()),
		zap.String("email", res.User.Email),
	)
}
