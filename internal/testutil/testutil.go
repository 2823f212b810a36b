// Package testutil holds helpers shared by unit and integration tests.
package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/taskflow/taskflow/internal/model"
	"github.com/taskflow/taskflow/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops every table and reapplies the embedded migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	all, err := migrations.All()
	if err != nil {
		return err
	}

	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, all[i].Down); err != nil {
			return fmt.Errorf("apply %s down migration: %w", all[i].Version, err)
		}
	}
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("apply %s up migration: %w", m.Version, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates an unsaved user with a unique username and email.
func NewTestUser(t testing.TB, name string) *model.User {
	t.Helper()
	suffix := time.Now().UnixNano()
	return &model.User{
		Username:     fmt.Sprintf("%s-%d", name, suffix),
		Email:        fmt.Sprintf("%s-%d@example.com", name, suffix),
		PasswordHash: "$2a$10$abcdefghijklmnopqrstuuJ0vA1t4xM0tW3N0t4R3alH4sh5678",
	}
}

// NewTestTask creates an unsaved task with defaults applied.
func NewTestTask(t testing.TB, ownerID, title string) *model.Task {
	t.Helper()
	task := &model.Task{
		OwnerID: ownerID,
		Title:   title,
	}
	task.Normalize()
	return task
}

// NewTestTaskWithDeadline creates an unsaved task due at deadline.
func NewTestTaskWithDeadline(t testing.TB, ownerID, title string, deadline time.Time) *model.Task {
	t.Helper()
	task := NewTestTask(t, ownerID, title)
	d := deadline.UTC()
	task.Deadline = &d
	return task
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
