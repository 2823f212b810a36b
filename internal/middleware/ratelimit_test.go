package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskflow/taskflow/internal/cache"
)

func newLimiter(t *testing.T) *cache.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return cache.NewFromClient(client)
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitAuth_BurstThen429(t *testing.T) {
	t.Parallel()

	handler := RateLimitAuth(RateLimitConfig{
		Logger:            discardLogger(),
		Limiter:           newLimiter(t),
		Enabled:           true,
		RequestsPerMinute: 1,
		Burst:             2,
	})(okHandler())

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = ip + ":5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := send("10.0.0.1"); rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i+1, rec.Code)
		}
	}

	rec := send("10.0.0.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header missing")
	}
	if got := rec.Header().Get("X-RateLimit-Limit"); got != "2" {
		t.Errorf("X-RateLimit-Limit = %q, want 2", got)
	}
	if !strings.Contains(rec.Body.String(), "Too many requests") {
		t.Errorf("body = %s", rec.Body.String())
	}

	if rec := send("10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", rec.Code)
	}
}

type failingLimiter struct{}

func (failingLimiter) CheckAuthRateLimit(context.Context, string, int, int) (*cache.RateLimitResult, error) {
	return nil, errors.New("redis down")
}

func TestRateLimitAuth_PassThrough(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  RateLimitConfig
	}{
		{name: "disabled", cfg: RateLimitConfig{Limiter: failingLimiter{}, Enabled: false}},
		{name: "nil limiter", cfg: RateLimitConfig{Enabled: true}},
		{name: "limiter error fails open", cfg: RateLimitConfig{Limiter: failingLimiter{}, Enabled: true, RequestsPerMinute: 1, Burst: 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			tt.cfg.Logger = discardLogger()
			handler := RateLimitAuth(tt.cfg)(okHandler())

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/auth/register", nil))
			if rec.Code != http.StatusOK {
				t.Errorf("status = %d, want 200", rec.Code)
			}
		})
	}
}

func TestWriteRateLimitError_MinimumRetry(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	writeRateLimitError(rec, 0)

	if got := rec.Header().Get("Retry-After"); got != "1" {
		t.Errorf("Retry-After = %q, want 1", got)
	}
}
