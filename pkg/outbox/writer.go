package outbox

import (
	"context"
	"encoding/json"
	"fmt"
)

// Writer 把领域事件写入 outbox；调用方负责把它放进与业务写入相同的事务
type Writer struct {
	store Store
}

func NewWriter(store Store) *Writer {
	return &Writer{store: store}
}

// Enqueue 序列化 payload 并插入一条 pending 事件
func (w *Writer) Enqueue(ctx context.Context, aggregateType, aggregateID, routingKey string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal outbox payload: %w", err)
	}

	return w.store.InsertEvent(ctx, &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		RoutingKey:    routingKey,
		Payload:       payloadJSON,
		Status:        StatusPending,
	})
}
