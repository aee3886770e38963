package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
	"agencyhub/pkg/metrics"
	"agencyhub/pkg/rbac"
	"agencyhub/pkg/trace"
	"agencyhub/pkg/util"
)

const identityKey = "identity"

// TraceMiddleware 沿用请求头中的 trace id，没有则生成一个
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName)
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName, traceID)
		c.Next()
	}
}

// RequestLogger 记录每个请求，并把 c.Errors 转换成 JSON 错误响应
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if len(c.Errors) > 0 {
			writeError(c, logger, c.Errors.Last().Err)
		}

		latency := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), latency)

		logger.Info("HTTP Request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("query", query),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", latency),
			zap.String("client_ip", c.ClientIP()),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
		)
	}
}

// writeError 已知错误按 errs.ErrStatusMap 返回原始消息；其他错误只返回通用消息
func writeError(c *gin.Context, logger *zap.Logger, err error) {
	if c.Writer.Written() {
		return
	}

	status := errs.Status(err)
	message := err.Error()

	var denied *rbac.PermissionDeniedError
	if errors.As(err, &denied) {
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		logger.Error("Unhandled error",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("trace_id", trace.FromContext(c.Request.Context())),
			zap.Error(err),
		)
		message = "internal server error"
	}

	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// AuthMiddleware 校验 token 并把调用者身份写入 gin context
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.Error(fmt.Errorf("%w: no token, authorization denied", errs.ErrUnauthenticated))
			c.Abort()
			return
		}

		userID, role, err := util.ParseJWT(token, jwtSecret)
		if err != nil {
			c.Error(fmt.Errorf("%w: token is not valid", errs.ErrUnauthenticated))
			c.Abort()
			return
		}

		c.Set(identityKey, model.Identity{UserID: userID, Role: role})
		oteltrace.SpanFromContext(c.Request.Context()).SetAttributes(
			attribute.String("enduser.id", userID.String()),
			attribute.String("enduser.role", role),
		)
		c.Next()
	}
}

// RequirePermission 必须放在 AuthMiddleware 之后
func RequirePermission(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityFrom(c)
		if !ok {
			c.Error(errs.ErrUnauthenticated)
			c.Abort()
			return
		}
		if err := rbac.CheckPermission(id.Role, permission); err != nil {
			c.Error(fmt.Errorf("%w: access denied, admin only", errs.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireAdmin 仅 Admin 角色可访问
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := identityFrom(c)
		if !ok {
			c.Error(errs.ErrUnauthenticated)
			c.Abort()
			return
		}
		if id.Role != rbac.RoleAdmin {
			c.Error(fmt.Errorf("%w: access denied, admin only", errs.ErrForbidden))
			c.Abort()
			return
		}
		c.Next()
	}
}

func identityFrom(c *gin.Context) (model.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return model.Identity{}, false
	}
	id, ok := v.(model.Identity)
	return id, ok
}
