package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/taskflow/taskflow/internal/metrics"
)

// DefaultPublishTimeout bounds a single asynchronous publish.
const DefaultPublishTimeout = 500 * time.Millisecond

// Broadcaster publishes events off the request path. Failures are logged
// and counted and never reach the caller.
type Broadcaster struct {
	publisher Publisher
	timeout   time.Duration
	logger    *slog.Logger
	recorder  metrics.Recorder
	wg        sync.WaitGroup
}

// NewBroadcaster wraps publisher.
func NewBroadcaster(publisher Publisher, timeout time.Duration, logger *slog.Logger, recorder metrics.Recorder) *Broadcaster {
	if timeout <= 0 {
		timeout = DefaultPublishTimeout
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Broadcaster{
		publisher: publisher,
		timeout:   timeout,
		logger:    logger,
		recorder:  recorder,
	}
}

// PublishAsync publishes ev in the background with a detached context, so a
// client disconnect never cancels it.
func (b *Broadcaster) PublishAsync(ev Event) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
		defer cancel()

		if err := b.publisher.Publish(ctx, ev); err != nil {
			b.recorder.IncEventPublished(metrics.PublishFailed)
			b.logger.Warn("event_publish_failed",
				"event", string(ev.Type),
				"owner_id", ev.OwnerID,
				"task_id", ev.TaskID,
				"error", err,
			)
			return
		}
		b.recorder.IncEventPublished(metrics.PublishSuccess)
	}()
}

// Wait blocks until in-flight publishes finish or ctx is done.
func (b *Broadcaster) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
