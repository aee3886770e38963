package mqhandler

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	mqcontracts "agencyhub/contracts/mq"
	"agencyhub/internal/service"
	"agencyhub/pkg/logger"
	"agencyhub/pkg/metrics"
	"agencyhub/pkg/mq"
	"agencyhub/pkg/util"
)

// DefaultMaxRetries 可重试错误最多重新入队的次数
const DefaultMaxRetries = 3

// Deduper 由 util.Deduper 实现
type Deduper interface {
	AcquireOnce(ctx context.Context, handler string, eventID string) bool
	Release(ctx context.Context, handler string, eventID string)
}

// RetryCounter 由 util.RetryCounter 实现
type RetryCounter interface {
	IncrementAndGet(ctx context.Context, key string) (int64, error)
	Reset(ctx context.Context, key string) error
}

type NotificationHandler struct {
	notifier   *service.NotificationService
	deduper    Deduper
	retries    RetryCounter
	maxRetries int64
	logger     *zap.Logger
}

func NewNotificationHandler(notifier *service.NotificationService, deduper Deduper, retries RetryCounter, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier:   notifier,
		deduper:    deduper,
		retries:    retries,
		maxRetries: DefaultMaxRetries,
		logger:     logger,
	}
}

// WithMaxRetries 覆盖默认重试次数，n <= 0 时忽略
func (h *NotificationHandler) WithMaxRetries(n int) *NotificationHandler {
	if n > 0 {
		h.maxRetries = int64(n)
	}
	return h
}

// Handlers 返回 routing key → 消费函数，worker 为每个 key 建一个队列
func (h *NotificationHandler) Handlers() map[string]mq.MessageHandler {
	return map[string]mq.MessageHandler{
		mqcontracts.RoutingTaskAssigned:  h.HandleTaskAssigned,
		mqcontracts.RoutingTaskCompleted: h.HandleTaskCompleted,
		mqcontracts.RoutingInvoicePaid:   h.HandleInvoicePaid,
		mqcontracts.RoutingPasswordReset: h.HandlePasswordReset,
	}
}

func (h *NotificationHandler) HandleTaskAssigned(ctx context.Context, raw json.RawMessage) error {
	return handle(ctx, h, mqcontracts.RoutingTaskAssigned, raw, h.notifier.TaskAssigned)
}

func (h *NotificationHandler) HandleTaskCompleted(ctx context.Context, raw json.RawMessage) error {
	return handle(ctx, h, mqcontracts.RoutingTaskCompleted, raw, h.notifier.TaskCompleted)
}

func (h *NotificationHandler) HandleInvoicePaid(ctx context.Context, raw json.RawMessage) error {
	return handle(ctx, h, mqcontracts.RoutingInvoicePaid, raw, h.notifier.InvoicePaid)
}

func (h *NotificationHandler) HandlePasswordReset(ctx context.Context, raw json.RawMessage) error {
	return handle(ctx, h, mqcontracts.RoutingPasswordReset, raw, h.notifier.PasswordReset)
}

// handle 负责去重、重试计数和死信：
// nil → ack；可重试错误 → 重新入队直到超过 maxRetries；其余 → DLQ
func handle[T any](ctx context.Context, h *NotificationHandler, routingKey string, raw json.RawMessage, send func(context.Context, T) error) error {
	log := logger.WithTrace(ctx, h.logger).With(zap.String("routing_key", routingKey))

	var payload T
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error("Failed to unmarshal notification payload", zap.Error(err))
		metrics.IncrementNotification(routingKey, "dead_lettered")
		return mq.DeadLetter("invalid_payload", err)
	}

	// payload 内嵌 Envelope，直接取出 event_id
	var env mqcontracts.Envelope
	_ = json.Unmarshal(raw, &env)
	if env.EventID == "" {
		metrics.IncrementNotification(routingKey, "dead_lettered")
		return mq.DeadLetter("missing_event_id", errors.New("event_id is empty"))
	}
	log = log.With(zap.String("event_id", env.EventID))

	if !h.deduper.AcquireOnce(ctx, routingKey, env.EventID) {
		metrics.IncrementNotification(routingKey, "duplicate")
		return nil
	}

	retryKey := util.FormatRetryKey(routingKey, env.EventID)

	err := send(ctx, payload)
	if err == nil {
		if err := h.retries.Reset(ctx, retryKey); err != nil {
			log.Warn("Failed to reset retry counter", zap.Error(err))
		}
		metrics.IncrementNotification(routingKey, "sent")
		log.Info("Notification delivered")
		return nil
	}

	// 失败后释放去重标记，让重新投递的消息还能被处理
	h.deduper.Release(ctx, routingKey, env.EventID)

	retryable, kind := util.IsRetryableError(err)
	if !retryable {
		log.Error("Notification failed permanently", zap.String("error_kind", kind), zap.Error(err))
		metrics.IncrementNotification(routingKey, "dead_lettered")
		return mq.DeadLetter(kind, err)
	}

	attempt, counterErr := h.retries.IncrementAndGet(ctx, retryKey)
	if counterErr != nil {
		log.Warn("Retry counter unavailable, requeueing", zap.Error(counterErr))
		metrics.IncrementNotification(routingKey, "retry")
		return err
	}

	if util.ShouldRetry(attempt, h.maxRetries, retryable) {
		log.Warn("Notification failed, will retry",
			zap.String("error_kind", kind),
			zap.Int64("attempt", attempt),
			zap.Error(err),
		)
		metrics.IncrementNotification(routingKey, "retry")
		return err
	}

	if err := h.retries.Reset(ctx, retryKey); err != nil {
		log.Warn("Failed to reset retry counter", zap.Error(err))
	}
	log.Error("Notification retries exhausted", zap.Int64("attempt", attempt), zap.Error(err))
	metrics.IncrementNotification(routingKey, "dead_lettered")
	return mq.DeadLetter("max_retries_exceeded", err)
}
