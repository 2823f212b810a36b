package realtime

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskflow/taskflow/internal/metrics"
)

type publisherFunc func(ctx context.Context, ev Event) error

func (f publisherFunc) Publish(ctx context.Context, ev Event) error { return f(ctx, ev) }

func TestBroadcaster_FailuresAreCounted(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	b := NewBroadcaster(publisherFunc(func(context.Context, Event) error {
		return errors.New("broker down")
	}), time.Second, testLogger(), rec)

	b.PublishAsync(NewDeletedEvent("alice", "t1"))
	b.PublishAsync(NewDeletedEvent("alice", "t2"))
	if err := b.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	snap := rec.Snapshot()
	if snap.EventsFailed != 2 || snap.EventsPublished != 0 {
		t.Errorf("snapshot = %+v, want 2 failed", snap)
	}
}

func TestBroadcaster_TimeoutBoundsPublish(t *testing.T) {
	t.Parallel()

	rec := metrics.NewInMemory()
	b := NewBroadcaster(publisherFunc(func(ctx context.Context, _ Event) error {
		<-ctx.Done()
		return ctx.Err()
	}), 20*time.Millisecond, testLogger(), rec)

	start := time.Now()
	b.PublishAsync(NewDeletedEvent("alice", "t1"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := b.Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("publish took %v, want bounded by timeout", elapsed)
	}
	if rec.Snapshot().EventsFailed != 1 {
		t.Error("timed out publish not counted as failed")
	}
}

func TestBroadcaster_DetachedFromCaller(t *testing.T) {
	t.Parallel()

	got := make(chan error, 1)
	b := NewBroadcaster(publisherFunc(func(ctx context.Context, _ Event) error {
		got <- ctx.Err()
		return nil
	}), time.Second, testLogger(), nil)

	b.PublishAsync(NewDeletedEvent("alice", "t1"))

	select {
	case err := <-got:
		if err != nil {
			t.Errorf("publish context already done: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("publisher not called")
	}
}
