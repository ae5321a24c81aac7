package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kestrelauth/authn-engine/internal/infrastructure/redis"
)

type fakeLimiter struct {
	decision redis.Decision
	err      error
}

func (f fakeLimiter) AllowFixedWindow(ctx context.Context, key string, limit int, window time.Duration) (redis.Decision, error) {
	return f.decision, f.err
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitFixedWindow_NilLimiter_AlwaysAllows(t *testing.T) {
	mw := RateLimitFixedWindow(nil, FixedWindowConfig{RouteKey: "test"})
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	mw(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRateLimitFixedWindow_Allowed(t *testing.T) {
	limiter := fakeLimiter{decision: redis.Decision{Allowed: true}}
	mw := RateLimitFixedWindow(limiter, FixedWindowConfig{RouteKey: "test", Limit: 10, Window: time.Minute})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestRateLimitFixedWindow_Denied(t *testing.T) {
	limiter := fakeLimiter{decision: redis.Decision{Allowed: false, RetryAfter: 30 * time.Second}}
	mw := RateLimitFixedWindow(limiter, FixedWindowConfig{RouteKey: "test", Limit: 10, Window: time.Minute})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "30" {
		t.Fatalf("expected Retry-After 30, got %q", rr.Header().Get("Retry-After"))
	}
}

func TestRateLimitFixedWindow_LimiterError_FailsOpen(t *testing.T) {
	limiter := fakeLimiter{err: context.DeadlineExceeded}
	mw := RateLimitFixedWindow(limiter, FixedWindowConfig{RouteKey: "test", Limit: 10, Window: time.Minute})

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	mw(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected fail-open 200, got %d", rr.Code)
	}
}

func TestRateLimitFixedWindow_KeyedByToken(t *testing.T) {
	limiter := fakeLimiter{decision: redis.Decision{Allowed: true}}
	mw := RateLimitFixedWindow(limiter, FixedWindowConfig{RouteKey: "test", Limit: 10, Window: time.Minute})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithToken(req.Context(), "abc123"))
	rr := httptest.NewRecorder()

	mw(okHandler()).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}

func TestBearerToken_ExtractsToken(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = string(TokenFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer sometoken")
	rr := httptest.NewRecorder()

	BearerToken(next).ServeHTTP(rr, req)

	if captured != "sometoken" {
		t.Fatalf("expected token %q, got %q", "sometoken", captured)
	}
}

func TestBearerToken_NoHeader_EmptyToken(t *testing.T) {
	var captured string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = string(TokenFromContext(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()

	BearerToken(next).ServeHTTP(rr, req)

	if captured != "" {
		t.Fatalf("expected empty token, got %q", captured)
	}
}
