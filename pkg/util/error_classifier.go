package util

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/textproto"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wneessen/go-mail"
)

// IsRetryableError 判断错误是否值得重试，返回 (可重试, 错误类型)
func IsRetryableError(err error) (bool, string) {
	if err == nil {
		return false, ""
	}

	// JSON decode errors - 数据格式错误，不可重试
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return false, "json_decode_error"
	}

	// Database errors
	if errors.Is(err, pgx.ErrNoRows) {
		return false, "record_not_found"
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return false, "duplicate_key"
		}
		// 08xxx connection exception, 57P01 admin shutdown
		if strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01" {
			return true, "db_connection_error"
		}
		return false, "db_error"
	}

	// go-mail 已经区分了暂时性错误
	var sendErr *mail.SendError
	if errors.As(err, &sendErr) {
		if sendErr.IsTemp() {
			return true, "smtp_transient"
		}
		return false, "smtp_permanent"
	}

	// SMTP 响应：4xx 暂时性错误可重试，5xx 永久错误不重试
	var smtpErr *textproto.Error
	if errors.As(err, &smtpErr) {
		if smtpErr.Code >= 400 && smtpErr.Code < 500 {
			return true, "smtp_transient"
		}
		return false, "smtp_permanent"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true, "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return false, "context_canceled"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true, "network_timeout"
		}
		return true, "network_error"
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "connection reset") {
		return true, "network_error"
	}
	if strings.Contains(errStr, "circuit breaker is open") {
		return true, "circuit_open"
	}

	// 未知错误，保守处理：不重试
	return false, "unknown_error"
}

// ShouldRetry checks if an error should be retried based on retry count
func ShouldRetry(retryCount int64, maxRetries int64, isRetryable bool) bool {
	if !isRetryable {
		return false
	}
	return retryCount <= maxRetries
}
