package db

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"agencyhub/pkg/metrics"
	"agencyhub/pkg/otel"
)

type queryStartKey struct{}

type queryState struct {
	start time.Time
	sql   string
	span  oteltrace.Span
}

// QueryTracer 实现 pgx.QueryTracer：记录耗时指标、慢查询日志和 db span
type QueryTracer struct {
	logger        *zap.Logger
	slowThreshold time.Duration
}

// NewQueryTracer 创建查询 Tracer，slowThreshold 为 0 时默认 100ms
func NewQueryTracer(logger *zap.Logger, slowThreshold time.Duration) *QueryTracer {
	if slowThreshold == 0 {
		slowThreshold = 100 * time.Millisecond
	}
	return &QueryTracer{
		logger:        logger,
		slowThreshold: slowThreshold,
	}
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	ctx, span := otel.DBSpan(ctx, operationOf(data.SQL), data.SQL)
	return context.WithValue(ctx, queryStartKey{}, &queryState{
		start: time.Now(),
		sql:   data.SQL,
		span:  span,
	})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	state, ok := ctx.Value(queryStartKey{}).(*queryState)
	if !ok {
		return
	}

	duration := time.Since(state.start)
	operation := operationOf(state.sql)
	metrics.RecordDBQueryDuration(operation, duration)

	if data.Err != nil && data.Err != pgx.ErrNoRows {
		state.span.RecordError(data.Err)
		state.span.SetStatus(codes.Error, data.Err.Error())
	}
	state.span.End()

	if duration > t.slowThreshold {
		sqlTruncated := compactSQL(state.sql)
		if len(sqlTruncated) > 200 {
			sqlTruncated = sqlTruncated[:200] + "..."
		}

		t.logger.Warn("slow-query",
			zap.String("sql", sqlTruncated),
			zap.Duration("took", duration),
			zap.String("command_tag", data.CommandTag.String()),
		)
		metrics.IncrementSlowQuery(operation)
	}
}

// operationOf 取 SQL 的第一个关键字作为操作名（select/insert/...）
func operationOf(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	op := strings.ToLower(fields[0])
	if op == "with" {
		return "select"
	}
	return op
}

func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
