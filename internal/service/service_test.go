package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/taskflow/taskflow/internal/auth"
	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/internal/realtime"
)

const testSecret = "test-secret-with-at-least-32-bytes!!"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingPublisher captures events synchronously.
type recordingPublisher struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (p *recordingPublisher) PublishAsync(ev realtime.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
}

func (p *recordingPublisher) Events() []realtime.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]realtime.Event(nil), p.events...)
}

// mapCache is an in-memory UserCache.
type mapCache struct {
	mu    sync.Mutex
	users map[string]model.User
	sets  int
}

func newMapCache() *mapCache {
	return &mapCache{users: make(map[string]model.User)}
}

func (c *mapCache) GetUser(_ context.Context, id string) (*model.User, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	u, ok := c.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (c *mapCache) SetUser(_ context.Context, user *model.User) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.users[user.ID] = *user
	return nil
}

func newAuthService(t *testing.T, store UserStore, cache UserCache) (*AuthService, *auth.TokenService) {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, 0, "")
	if err != nil {
		t.Fatal(err)
	}
	svc, err := NewAuthService(store, cache, auth.NewBcryptHasher(auth.MinBcryptCost), tokens, testLogger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	return svc, tokens
}

func ptr[T any](v T) *T { return &v }
