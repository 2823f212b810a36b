package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/taskflow/taskflow/internal/model"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewFromClient(client), mr
}

func TestUserCache_RoundTrip(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	ctx := context.Background()

	user := &model.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "$2a$10$secret",
		CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	if err := c.SetUser(ctx, user); err != nil {
		t.Fatalf("SetUser() error = %v", err)
	}

	raw, err := mr.Get(userCachePrefix + "u1")
	if err != nil {
		t.Fatalf("key missing: %v", err)
	}
	if strings.Contains(raw, "secret") {
		t.Errorf("cached entry leaks password hash: %s", raw)
	}
	if ttl := mr.TTL(userCachePrefix + "u1"); ttl != userCacheTTL {
		t.Errorf("TTL = %v, want %v", ttl, userCacheTTL)
	}

	got, err := c.GetUser(ctx, "u1")
	if err != nil || got == nil {
		t.Fatalf("GetUser() = %v, %v", got, err)
	}
	if got.Username != "alice" || !got.CreatedAt.Equal(user.CreatedAt) {
		t.Errorf("GetUser() = %+v", got)
	}
	if got.PasswordHash != "" {
		t.Errorf("PasswordHash = %q, want empty", got.PasswordHash)
	}

	mr.FastForward(userCacheTTL)
	if got, _ := c.GetUser(ctx, "u1"); got != nil {
		t.Errorf("GetUser() after TTL = %+v, want miss", got)
	}
}

func TestUserCache_CorruptEntryIsMiss(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	if err := mr.Set(userCachePrefix+"u2", "{not json"); err != nil {
		t.Fatal(err)
	}

	got, err := c.GetUser(context.Background(), "u2")
	if err != nil || got != nil {
		t.Errorf("GetUser() = %v, %v; want nil, nil", got, err)
	}
}

func TestCheckAuthRateLimit_Burst(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return fixed }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		res, err := c.CheckAuthRateLimit(ctx, "10.0.0.1", 60, 3)
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if !res.Allowed {
			t.Fatalf("attempt %d denied within burst", i)
		}
	}

	res, err := c.CheckAuthRateLimit(ctx, "10.0.0.1", 60, 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.Allowed {
		t.Error("request beyond burst was allowed")
	}
	if res.RetryAfter != time.Second {
		t.Errorf("RetryAfter = %v, want 1s", res.RetryAfter)
	}

	other, _ := c.CheckAuthRateLimit(ctx, "10.0.0.2", 60, 3)
	if !other.Allowed {
		t.Error("a different IP shares the bucket")
	}
}

func TestCheckAuthRateLimit_FailsOpen(t *testing.T) {
	t.Parallel()

	c, mr := newTestCache(t)
	mr.Close()

	res, err := c.CheckAuthRateLimit(context.Background(), "10.0.0.1", 10, 5)
	if err != nil {
		t.Fatalf("error = %v, want nil", err)
	}
	if !res.Allowed || res.Remaining != 5 {
		t.Errorf("result = %+v, want allowed with full burst", res)
	}
}

func TestCheckAuthRateLimit_Disabled(t *testing.T) {
	t.Parallel()

	c, _ := newTestCache(t)
	res, _ := c.CheckAuthRateLimit(context.Background(), "10.0.0.1", 0, 5)
	if !res.Allowed {
		t.Error("zero rate should not limit")
	}
}
