package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "agencyhub/contracts/mq"
	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/rbac"
	"agencyhub/pkg/util"
)

const resetTokenTTL = time.Hour

// AuthResult 是注册/登录的返回体
type AuthResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

type AuthService struct {
	users    UserRepository
	tokens   ResetTokenStore
	events   EventOutbox
	tx       Transactor
	secret   string
	tokenTTL time.Duration
	logger   *zap.Logger
}

func NewAuthService(
	users UserRepository,
	tokens ResetTokenStore,
	events EventOutbox,
	tx Transactor,
	jwtSecret string,
	tokenTTL time.Duration,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		users:    users,
		tokens:   tokens,
		events:   events,
		tx:       tx,
		secret:   jwtSecret,
		tokenTTL: tokenTTL,
		logger:   logger,
	}
}

// Register 创建用户并签发 token；role 为空时默认为 Intern
func (s *AuthService) Register(ctx context.Context, name, email, password, role string) (*AuthResult, error) {
	email = strings.TrimSpace(email)
	if role == "" {
		role = rbac.RoleIntern
	}
	if err := firstErr(
		required("name", name),
		required("email", email),
		required("password", password),
	); err != nil {
		return nil, err
	}
	if !rbac.ValidRole(role) {
		return nil, fmt.Errorf("%w: role must be Admin or Intern", errs.ErrValidation)
	}

	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil, fmt.Errorf("%w: user with email %s", errs.ErrConflict, email)
	}
	if !errors.Is(err, errs.ErrNotFound) {
		return nil, err
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{
		ID:           uuid.New(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.Create(ctx, u); err != nil {
		return nil, err
	}

	logger.WithTrace(ctx, s.logger).Info("User registered",
		zap.String("user_id", u.ID.String()),
		zap.String("role", u.Role),
	)
	return s.issue(u)
}

// Login 校验邮箱和密码；任何一项错误都返回 ErrInvalidCredentials
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !util.CheckPassword(password, u.PasswordHash) {
		logger.WithTrace(ctx, s.logger).Warn("Login failed: wrong password", zap.String("user_id", u.ID.String()))
		return nil, errs.ErrInvalidCredentials
	}

	return s.issue(u)
}

func (s *AuthService) issue(u *model.User) (*AuthResult, error) {
	token, err := util.GenerateJWT(u.ID, u.Role, s.secret, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &AuthResult{Token: token, User: u}, nil
}

// ListInterns 返回所有 Intern（不含密码）
func (s *AuthService) ListInterns(ctx context.Context) ([]model.User, error) {
	return s.users.ListByRole(ctx, rbac.RoleIntern)
}

// ForgotPassword 用户存在时生成重置 token 并排队发送邮件；用户不存在时同样返回 nil
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	log := logger.WithTrace(ctx, s.logger)

	u, err := s.users.FindByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, errs.ErrNotFound) {
		log.Info("Password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return err
	}

	token, err := util.GenerateResetToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.tokens.Save(ctx, token, u.ID, resetTokenTTL); err != nil {
		return err
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.events.Enqueue(ctx, "user", u.ID.String(), mqcontracts.RoutingPasswordReset, mqcontracts.PasswordResetPayload{
			Envelope: mqcontracts.NewEnvelope(ctx),
			UserID:   u.ID.String(),
			Email:    u.Email,
			Name:     u.Name,
			Token:    token,
		})
	})
	if err != nil {
		return err
	}

	log.Info("Password reset queued", zap.String("user_id", u.ID.String()))
	return nil
}

// ResetPassword 消费 token 并更新密码，token 只能使用一次
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := firstErr(required("token", token), required("newPassword", newPassword)); err != nil {
		return err
	}

	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		return err
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			return errs.ErrInvalidResetToken
		}
		return err
	}

	logger.WithTrace(ctx, s.logger).Info("Password reset", zap.String("user_id", userID.String()))
	return nil
}
