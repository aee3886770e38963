package util

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wneessen/go-mail"
)

func TestJWTRoundTrip(t *testing.T) {
	id := uuid.New()
	token, err := GenerateJWT(id, "Intern", "secret", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT: %v", err)
	}

	gotID, role, err := ParseJWT(token, "secret")
	if err != nil {
		t.Fatalf("ParseJWT: %v", err)
	}
	if gotID != id || role != "Intern" {
		t.Fatalf("got %s/%s", gotID, role)
	}

	if _, _, err := ParseJWT(token, "other-secret"); err == nil {
		t.Fatal("token signed with another secret must be rejected")
	}
}

func TestJWTExpired(t *testing.T) {
	token, _ := GenerateJWT(uuid.New(), "Admin", "secret", -time.Minute)
	if _, _, err := ParseJWT(token, "secret"); err == nil {
		t.Fatal("expired token must be rejected")
	}
}

func TestExtractToken(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	if ExtractToken(r) != "" {
		t.Fatal("no header should yield empty token")
	}

	r.Header.Set("Authorization", "Bearer abc")
	if got := ExtractToken(r); got != "abc" {
		t.Fatalf("bearer fallback = %q", got)
	}

	r.Header.Set(AuthHeader, "xyz")
	if got := ExtractToken(r); got != "xyz" {
		t.Fatalf("x-auth-token should win, got %q", got)
	}

	r = httptest.NewRequest("GET", "/", nil)
	r.Header.Set("Authorization", "Basic abc")
	if ExtractToken(r) != "" {
		t.Fatal("non-bearer scheme must be ignored")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "hunter2" || !CheckPassword("hunter2", hash) || CheckPassword("wrong", hash) {
		t.Fatal("bcrypt round trip failed")
	}
}

func TestGenerateResetToken(t *testing.T) {
	a, _ := GenerateResetToken()
	b, _ := GenerateResetToken()
	if len(a) != 64 || a == b {
		t.Fatalf("tokens %q %q", a, b)
	}
}

func TestIsRetryableError(t *testing.T) {
	var syntaxErr error = json.Unmarshal([]byte("{"), &struct{}{})

	cases := []struct {
		name      string
		err       error
		retryable bool
		kind      string
	}{
		{"json", fmt.Errorf("decode: %w", syntaxErr), false, "json_decode_error"},
		{"unique", &pgconn.PgError{Code: "23505"}, false, "duplicate_key"},
		{"pg connection", &pgconn.PgError{Code: "08006"}, true, "db_connection_error"},
		{"smtp 421", &textproto.Error{Code: 421, Msg: "try later"}, true, "smtp_transient"},
		{"smtp 550", fmt.Errorf("send: %w", &textproto.Error{Code: 550, Msg: "no user"}), false, "smtp_permanent"},
		{"go-mail permanent", &mail.SendError{Reason: mail.ErrSMTPRcptTo}, false, "smtp_permanent"},
		{"deadline", context.DeadlineExceeded, true, "timeout"},
		{"canceled", context.Canceled, false, "context_canceled"},
		{"refused", errors.New("dial tcp 127.0.0.1:25: connection refused"), true, "network_error"},
		{"unknown", errors.New("boom"), false, "unknown_error"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			retryable, kind := IsRetryableError(tc.err)
			if retryable != tc.retryable || kind != tc.kind {
				t.Fatalf("got (%v, %s), want (%v, %s)", retryable, kind, tc.retryable, tc.kind)
			}
		})
	}
}

func TestShouldRetry(t *testing.T) {
	if !ShouldRetry(3, 3, true) || ShouldRetry(4, 3, true) || ShouldRetry(1, 3, false) {
		t.Fatal("ShouldRetry boundaries")
	}
}
