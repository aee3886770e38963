package mqhandler

import (
	"context"
	"encoding/json"
	"net/textproto"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "agencyhub/contracts/mq"
	"agencyhub/internal/mailer"
	"agencyhub/internal/model"
	"agencyhub/internal/repository/memory"
	"agencyhub/internal/service"
	"agencyhub/pkg/mq"
	"agencyhub/pkg/rbac"
)

type fakeSender struct {
	mu       sync.Mutex
	sent     []mailer.Message
	failures int
	err      error
}

func (s *fakeSender) Send(_ context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type fakeDeduper struct {
	seen map[string]bool
}

func (d *fakeDeduper) AcquireOnce(_ context.Context, handler, eventID string) bool {
	key := handler + ":" + eventID
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *fakeDeduper) Release(_ context.Context, handler, eventID string) {
	delete(d.seen, handler+":"+eventID)
}

type fakeCounter struct {
	counts map[string]int64
}

func (c *fakeCounter) IncrementAndGet(_ context.Context, key string) (int64, error) {
	c.counts[key]++
	return c.counts[key], nil
}

func (c *fakeCounter) Reset(_ context.Context, key string) error {
	delete(c.counts, key)
	return nil
}

type fixture struct {
	handler *NotificationHandler
	sender  *fakeSender
	store   *memory.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	sender := &fakeSender{}
	notifier := service.NewNotificationService(store.Users(), sender, zap.NewNop())
	h := NewNotificationHandler(notifier,
		&fakeDeduper{seen: map[string]bool{}},
		&fakeCounter{counts: map[string]int64{}},
		zap.NewNop(),
	)
	return &fixture{handler: h, sender: sender, store: store}
}

func (f *fixture) addUser(t *testing.T, name, email, role string) *model.User {
	t.Helper()
	u := &model.User{ID: uuid.New(), Name: name, Email: email, Role: role, CreatedAt: time.Now()}
	if err := f.store.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func mustJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func TestTaskAssignedEmailsAssignee(t *testing.T) {
	f := newFixture(t)
	intern := f.addUser(t, "Ivy", "ivy@agency.test", rbac.RoleIntern)

	raw := mustJSON(t, mqcontracts.TaskAssignedPayload{
		Envelope:   mqcontracts.Envelope{EventID: "evt-1"},
		TaskID:     uuid.NewString(),
		TaskName:   "Write brief",
		AssigneeID: intern.ID.String(),
		Priority:   model.PriorityHigh,
	})

	if err := f.handler.HandleTaskAssigned(context.Background(), raw); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(f.sender.sent))
	}
	msg := f.sender.sent[0]
	if len(msg.To) != 1 || msg.To[0] != intern.Email {
		t.Fatalf("recipients %v", msg.To)
	}
	if msg.Subject != "New Task Assigned: Write brief" {
		t.Fatalf("subject %q", msg.Subject)
	}

	// 同一个 event_id 再次投递不会重复发送
	if err := f.handler.HandleTaskAssigned(context.Background(), raw); err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if len(f.sender.sent) != 1 {
		t.Fatalf("duplicate delivery sent again")
	}
}

func TestTaskCompletedEmailsAllAdmins(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "Ann", "ann@agency.test", rbac.RoleAdmin)
	f.addUser(t, "Bob", "bob@agency.test", rbac.RoleAdmin)
	intern := f.addUser(t, "Ivy", "ivy@agency.test", rbac.RoleIntern)

	raw := mustJSON(t, mqcontracts.TaskCompletedPayload{
		Envelope:    mqcontracts.Envelope{EventID: "evt-2"},
		TaskName:    "Logo",
		CompletedBy: intern.ID.String(),
	})
	if err := f.handler.HandleTaskCompleted(context.Background(), raw); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sender.sent) != 1 || len(f.sender.sent[0].To) != 2 {
		t.Fatalf("sent %+v", f.sender.sent)
	}
}

func TestRetryableFailureIsRequeuedThenDeadLettered(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, "Ann", "ann@agency.test", rbac.RoleAdmin)
	f.sender.failures = 10
	f.sender.err = &textproto.Error{Code: 421, Msg: "service not available"}

	raw := mustJSON(t, mqcontracts.InvoicePaidPayload{
		Envelope:  mqcontracts.Envelope{EventID: "evt-3"},
		InvoiceID: uuid.NewString(),
		Amount:    120,
	})

	for attempt := 1; attempt <= DefaultMaxRetries; attempt++ {
		err := f.handler.HandleInvoicePaid(context.Background(), raw)
		if err == nil {
			t.Fatalf("attempt %d: expected error", attempt)
		}
		if _, ok := mq.IsDeadLetter(err); ok {
			t.Fatalf("attempt %d dead-lettered too early", attempt)
		}
	}

	err := f.handler.HandleInvoicePaid(context.Background(), raw)
	dl, ok := mq.IsDeadLetter(err)
	if !ok || dl.Reason != "max_retries_exceeded" {
		t.Fatalf("expected dead letter after retries, got %v", err)
	}
}

func TestPermanentFailureGoesStraightToDLQ(t *testing.T) {
	f := newFixture(t)
	f.sender.failures = 1
	f.sender.err = &textproto.Error{Code: 550, Msg: "mailbox unavailable"}

	raw := mustJSON(t, mqcontracts.PasswordResetPayload{
		Envelope: mqcontracts.Envelope{EventID: "evt-4"},
		Email:    "ghost@agency.test",
		Token:    "abc",
	})
	err := f.handler.HandlePasswordReset(context.Background(), raw)
	if dl, ok := mq.IsDeadLetter(err); !ok || dl.Reason != "smtp_permanent" {
		t.Fatalf("expected smtp_permanent dead letter, got %v", err)
	}
}

func TestInvalidPayloadIsDeadLettered(t *testing.T) {
	f := newFixture(t)

	err := f.handler.HandleTaskAssigned(context.Background(), json.RawMessage(`{"event_id":`))
	if dl, ok := mq.IsDeadLetter(err); !ok || dl.Reason != "invalid_payload" {
		t.Fatalf("expected invalid_payload, got %v", err)
	}

	err = f.handler.HandleTaskAssigned(context.Background(), json.RawMessage(`{"task_id":"x"}`))
	if dl, ok := mq.IsDeadLetter(err); !ok || dl.Reason != "missing_event_id" {
		t.Fatalf("expected missing_event_id, got %v", err)
	}
}

func TestDeletedAssigneeIsSkipped(t *testing.T) {
	f := newFixture(t)
	raw := mustJSON(t, mqcontracts.TaskAssignedPayload{
		Envelope:   mqcontracts.Envelope{EventID: "evt-5"},
		AssigneeID: uuid.NewString(),
	})
	if err := f.handler.HandleTaskAssigned(context.Background(), raw); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatal("no email expected")
	}
}

func TestHandlersCoverEveryRoutingKey(t *testing.T) {
	f := newFixture(t)
	handlers := f.handler.Handlers()
	for _, key := range []string{
		mqcontracts.RoutingTaskAssigned,
		mqcontracts.RoutingTaskCompleted,
		mqcontracts.RoutingInvoicePaid,
		mqcontracts.RoutingPasswordReset,
	} {
		if handlers[key] == nil {
			t.Errorf("no handler for %s", key)
		}
	}
}
