package ratelimit

import (
	"net/http"
	"testing"
	"time"
)

// fakeClock implements Clock with a controllable time.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestLimiter(t *testing.T) (*Limiter, *fakeClock) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)}
	limiter := New(&Config{
		SubmitCooldown:     30 * time.Second,
		SubmitMaxPerHour:   3,
		SubmitMaxIPPerHour: 5,
		Clock:              clock,
	})
	t.Cleanup(limiter.Close)
	return limiter, clock
}

func TestCheckSubmitAllowsFirstAttempt(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	result := limiter.CheckSubmit("ana@example.com", "203.0.113.7")
	if !result.Allowed {
		t.Fatalf("first attempt should be allowed: %+v", result)
	}
}

func TestCheckSubmitCooldown(t *testing.T) {
	limiter, clock := newTestLimiter(t)

	limiter.RecordSubmit("ana@example.com", "203.0.113.7")

	result := limiter.CheckSubmit("ana@example.com", "203.0.113.7")
	if result.Allowed || result.Reason != "cooldown" {
		t.Fatalf("expected cooldown, got %+v", result)
	}
	if result.RetryAfter <= 0 || result.RetryAfter > 30*time.Second {
		t.Fatalf("retry after: %v", result.RetryAfter)
	}

	clock.Advance(31 * time.Second)
	if result := limiter.CheckSubmit("ana@example.com", "203.0.113.7"); !result.Allowed {
		t.Fatalf("cooldown should have expired: %+v", result)
	}
}

func TestCheckSubmitCooldownIsCaseInsensitive(t *testing.T) {
	limiter, _ := newTestLimiter(t)

	limiter.RecordSubmit("ana@example.com", "203.0.113.7")

	result := limiter.CheckSubmit("ANA@Example.com", "203.0.113.8")
	if result.Allowed {
		t.Fatalf("case variation should not bypass cooldown")
	}
}

func TestCheckSubmitHourlyLimit(t *testing.T) {
	limiter, clock := newTestLimiter(t)

	for i := 0; i < 3; i++ {
		limiter.RecordSubmit("ana@example.com", "203.0.113.7")
		clock.Advance(time.Minute)
	}

	result := limiter.CheckSubmit("ana@example.com", "203.0.113.7")
	if result.Allowed || result.Reason != "hourly_limit" {
		t.Fatalf("expected hourly limit, got %+v", result)
	}

	clock.Advance(time.Hour)
	if result := limiter.CheckSubmit("ana@example.com", "203.0.113.7"); !result.Allowed {
		t.Fatalf("window should have rolled over: %+v", result)
	}
}

func TestCheckSubmitIPLimit(t *testing.T) {
	limiter, clock := newTestLimiter(t)

	emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com", "e@example.com"}
	for _, email := range emails {
		limiter.RecordSubmit(email, "203.0.113.7")
		clock.Advance(time.Minute)
	}

	result := limiter.CheckSubmit("f@example.com", "203.0.113.7")
	if result.Allowed || result.Reason != "ip_hourly_limit" {
		t.Fatalf("expected ip limit, got %+v", result)
	}

	// A different IP is unaffected.
	if result := limiter.CheckSubmit("f@example.com", "198.51.100.9"); !result.Allowed {
		t.Fatalf("other ip should be allowed: %+v", result)
	}
}

func TestGetClientIP(t *testing.T) {
	req, _ := http.NewRequest(http.MethodPost, "/api/book", nil)
	req.RemoteAddr = "203.0.113.7:54321"

	if ip := GetClientIP(req, false); ip != "203.0.113.7" {
		t.Fatalf("direct ip: %s", ip)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	if ip := GetClientIP(req, false); ip != "203.0.113.7" {
		t.Fatalf("untrusted proxy must ignore XFF: %s", ip)
	}
	if ip := GetClientIP(req, true); ip != "198.51.100.9" {
		t.Fatalf("trusted proxy should use rightmost public XFF entry: %s", ip)
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	if got := SanitizeIdentifier("ana.gomez@example.com"); got != "an***@example.com" {
		t.Fatalf("sanitized: %s", got)
	}
	if got := SanitizeIdentifier("+5491122334455"); got != "***4455" {
		t.Fatalf("sanitized phone: %s", got)
	}
}
