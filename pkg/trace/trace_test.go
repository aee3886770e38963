package trace

import (
	"context"
	"testing"
)

func TestContextRoundTrip(t *testing.T) {
	ctx := context.Background()
	if got := FromContext(ctx); got != "" {
		t.Fatalf("empty context returned %q", got)
	}

	id := GenerateTraceID()
	if len(id) != 32 {
		t.Fatalf("trace id length = %d, want 32", len(id))
	}
	if got := FromContext(WithContext(ctx, id)); got != id {
		t.Fatalf("got %q, want %q", got, id)
	}
}
