package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"agencyhub/pkg/trace"
)

type recordingPublisher struct {
	mu       sync.Mutex
	fail     bool
	sent     []string
	traceIDs []string
}

func (p *recordingPublisher) PublishRaw(ctx context.Context, routingKey, messageID string, body []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.sent = append(p.sent, routingKey+"#"+messageID)
	p.traceIDs = append(p.traceIDs, trace.FromContext(ctx))
	return nil
}

func TestDispatcherPublishesPendingEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	w := NewWriter(store)

	payload := map[string]string{"event_id": "e-1", "trace_id": "trace-abc"}
	if err := w.Enqueue(ctx, "task", "t-1", "task.assigned", payload); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	pub := &recordingPublisher{}
	d := NewDispatcher(store, pub, zap.NewNop())
	d.processPendingEvents(ctx)

	if len(pub.sent) != 1 || pub.sent[0] != "task.assigned#1" {
		t.Fatalf("sent = %v", pub.sent)
	}
	if pub.traceIDs[0] != "trace-abc" {
		t.Fatalf("trace id = %q, want trace-abc", pub.traceIDs[0])
	}

	ev, _ := store.GetEventByID(ctx, 1)
	if ev.Status != StatusSent {
		t.Fatalf("status = %q, want sent", ev.Status)
	}

	pending, _ := store.GetPendingEvents(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("pending = %d, want 0", len(pending))
	}
}

func TestDispatcherBacksOffThenFails(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = NewWriter(store).Enqueue(ctx, "invoice", "i-1", "invoice.paid", map[string]string{})

	pub := &recordingPublisher{fail: true}
	d := NewDispatcher(store, pub, zap.NewNop()).WithMaxRetries(2)

	d.processPendingEvents(ctx)
	ev, _ := store.GetEventByID(ctx, 1)
	if ev.Status != StatusPending || ev.RetryCount != 1 || ev.NextRetryAt == nil {
		t.Fatalf("after first failure: %+v", ev)
	}

	// backoff window hides the event from the next poll
	if pending, _ := store.GetPendingEvents(ctx, 10); len(pending) != 0 {
		t.Fatalf("event should be delayed, got %d pending", len(pending))
	}

	if err := store.MarkAsFailed(ctx, 1, 2); err != nil {
		t.Fatal(err)
	}
	ev, _ = store.GetEventByID(ctx, 1)
	if ev.Status != StatusFailed {
		t.Fatalf("status = %q, want failed", ev.Status)
	}

	failed, _ := store.GetFailedEvents(ctx, 10)
	if len(failed) != 1 {
		t.Fatalf("failed = %d", len(failed))
	}
}

func TestReplayServiceRepublishesFailedEvents(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = NewWriter(store).Enqueue(ctx, "task", "t-9", "task.completed", map[string]string{})
	_ = store.MarkAsFailed(ctx, 1, 1)

	pub := &recordingPublisher{}
	svc := NewReplayService(store, pub, zap.NewNop())

	n, err := svc.ReplayFailedEvents(ctx, 10)
	if err != nil || n != 1 {
		t.Fatalf("ReplayFailedEvents = %d, %v", n, err)
	}
	ev, _ := store.GetEventByID(ctx, 1)
	if ev.Status != StatusSent {
		t.Fatalf("status = %q", ev.Status)
	}

	if err := svc.ReplayEvent(ctx, 42); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("missing event err = %v", err)
	}
}

func TestNextAttempt(t *testing.T) {
	now := time.Unix(1000, 0)
	status, next := nextAttempt(3, 5, now)
	if status != StatusPending || !next.Equal(now.Add(15*time.Second)) {
		t.Fatalf("got %s %v", status, next)
	}
	status, next = nextAttempt(5, 5, now)
	if status != StatusFailed || next != nil {
		t.Fatalf("got %s %v", status, next)
	}
}
