package mq

import (
	"errors"
	"fmt"
	"testing"
)

func TestDeadLetterWrapping(t *testing.T) {
	base := errors.New("smtp: 550 mailbox unavailable")
	err := fmt.Errorf("send notification: %w", DeadLetter("non_retryable", base))

	dl, ok := IsDeadLetter(err)
	if !ok {
		t.Fatal("expected wrapped dead letter to be detected")
	}
	if dl.Reason != "non_retryable" {
		t.Fatalf("reason = %q", dl.Reason)
	}
	if !errors.Is(err, base) {
		t.Fatal("dead letter must unwrap to the original error")
	}

	if _, ok := IsDeadLetter(base); ok {
		t.Fatal("plain error must not be treated as dead letter")
	}
}
