package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errSMTP = errors.New("dial tcp: connection refused")

func newTestBreaker(clock *time.Time) *CircuitBreaker {
	cb := NewCircuitBreaker(Config{
		FailureThreshold:    2,
		SuccessThreshold:    1,
		Timeout:             time.Minute,
		HalfOpenMaxRequests: 1,
	})
	cb.now = func() time.Time { return *clock }
	return cb
}

func TestBreakerOpensAfterThreshold(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	ctx := context.Background()
	failing := func(context.Context) error { return errSMTP }

	for i := 0; i < 2; i++ {
		if err := cb.Execute(ctx, failing); !errors.Is(err, errSMTP) {
			t.Fatalf("attempt %d: %v", i, err)
		}
	}
	if cb.GetState() != StateOpen {
		t.Fatalf("state = %s, want open", cb.GetState())
	}

	called := false
	err := cb.Execute(ctx, func(context.Context) error { called = true; return nil })
	if !errors.Is(err, ErrCircuitBreakerOpen) || called {
		t.Fatalf("open breaker must reject without calling: err=%v called=%v", err, called)
	}
}

func TestBreakerRecoversThroughHalfOpen(t *testing.T) {
	clock := time.Unix(0, 0)
	cb := newTestBreaker(&clock)
	ctx := context.Background()

	_ = cb.Execute(ctx, func(context.Context) error { return errSMTP })
	_ = cb.Execute(ctx, func(context.Context) error { return errSMTP })

	clock = clock.Add(2 * time.Minute)
	if err := cb.Execute(ctx, func(context.Context) error { return nil }); err != nil {
		t.Fatalf("half-open probe: %v", err)
	}
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.GetState())
	}
}

func TestBreakerIgnoresNonCountedErrors(t *testing.T) {
	errBadRecipient := errors.New("550 no such user")
	cb := NewCircuitBreaker(Config{
		FailureThreshold: 1,
		Timeout:          time.Minute,
		IsFailure:        func(err error) bool { return !errors.Is(err, errBadRecipient) },
	})

	_ = cb.Execute(context.Background(), func(context.Context) error { return errBadRecipient })
	if cb.GetState() != StateClosed {
		t.Fatalf("state = %s, want closed", cb.GetState())
	}
}
