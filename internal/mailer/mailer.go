package mailer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
	"go.uber.org/zap"

	"agencyhub/pkg/circuitbreaker"
	"agencyhub/pkg/config"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/metrics"
	"agencyhub/pkg/otel"
)

// Message 一封纯文本邮件
type Message struct {
	To      []string
	Subject string
	Body    string
}

// Sender 由 SMTPSender 和 LogSender 实现
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// New 配置了 SMTP host 时返回 SMTPSender，否则只记录日志
func New(cfg config.SMTPConfig, log *zap.Logger) (Sender, error) {
	if cfg.Host == "" {
		log.Warn("SMTP host not configured, emails will only be logged")
		return NewLogSender(log), nil
	}
	return NewSMTPSender(cfg, log)
}

type SMTPSender struct {
	client  *mail.Client
	from    string
	breaker *circuitbreaker.CircuitBreaker
	logger  *zap.Logger
}

func NewSMTPSender(cfg config.SMTPConfig, log *zap.Logger) (*SMTPSender, error) {
	port := cfg.Port
	if port == 0 {
		port = 587
	}

	opts := []mail.Option{
		mail.WithPort(port),
		mail.WithTLSPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(15 * time.Second),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = fmt.Sprintf("Agency Manager <%s>", cfg.Username)
	}

	breakerCfg := circuitbreaker.DefaultConfig()
	// 收件人被拒这类永久错误不代表服务器故障
	breakerCfg.IsFailure = func(err error) bool {
		var sendErr *mail.SendError
		if errors.As(err, &sendErr) {
			return sendErr.IsTemp()
		}
		return true
	}

	return &SMTPSender{
		client:  client,
		from:    from,
		breaker: circuitbreaker.NewCircuitBreaker(breakerCfg),
		logger:  log,
	}, nil
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	m := mail.NewMsg()
	if err := m.From(s.from); err != nil {
		return fmt.Errorf("invalid sender address: %w", err)
	}
	if err := m.To(msg.To...); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetBodyString(mail.TypeTextPlain, msg.Body)

	ctx, span := otel.StartSpan(ctx, "smtp.send")
	defer span.End()

	start := time.Now()
	err := s.breaker.Execute(ctx, func(ctx context.Context) error {
		return s.client.DialAndSendWithContext(ctx, m)
	})

	status := "sent"
	if err != nil {
		status = "failed"
		span.RecordError(err)
	}
	metrics.RecordMailSendLatency(status, time.Since(start))

	log := logger.WithTrace(ctx, s.logger)
	if err != nil {
		log.Error("Failed to send email",
			zap.Strings("to", msg.To),
			zap.String("subject", msg.Subject),
			zap.String("breaker_state", s.breaker.GetState().String()),
			zap.Error(err),
		)
		return err
	}

	log.Info("Email sent", zap.Strings("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// LogSender 本地开发用，邮件只写日志
type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(log *zap.Logger) *LogSender {
	return &LogSender{logger: log}
}

func (s *LogSender) Send(ctx context.Context, msg Message) error {
	logger.WithTrace(ctx, s.logger).Info("Email (not sent, no SMTP host)",
		zap.String("to", strings.Join(msg.To, ", ")),
		zap.String("subject", msg.Subject),
		zap.String("body", msg.Body),
	)
	metrics.RecordMailSendLatency("logged", 0)
	return nil
}
