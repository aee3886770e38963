package otel

import "testing"

func TestMQHeaderCarrier(t *testing.T) {
	headers := map[string]interface{}{"x-retry": int32(2)}
	c := NewMQHeaderCarrier(headers)

	c.Set("traceparent", "00-abc-def-01")
	if got := c.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("Get(traceparent) = %q", got)
	}
	if headers["traceparent"] != "00-abc-def-01" {
		t.Fatal("carrier must write through to the underlying headers")
	}
	if got := c.Get("x-retry"); got != "" {
		t.Fatalf("non-string header should read as empty, got %q", got)
	}
	if len(c.Keys()) != 2 {
		t.Fatalf("keys = %v", c.Keys())
	}
}
