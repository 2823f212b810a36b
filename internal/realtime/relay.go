package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Relay backoff bounds.
const (
	DefaultMinBackoff = 500 * time.Millisecond
	DefaultMaxBackoff = 30 * time.Second
)

var errSubscriptionClosed = errors.New("subscription channel closed")

// Relay forwards events from every user channel in Redis to the local Hub.
type Relay struct {
	client     *redis.Client
	hub        *Hub
	logger     *slog.Logger
	minBackoff time.Duration
	maxBackoff time.Duration

	ready     chan struct{}
	readyOnce sync.Once

	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	mu      sync.Mutex
}

// NewRelay creates a relay from client into hub.
func NewRelay(client *redis.Client, hub *Hub, logger *slog.Logger) *Relay {
	return &Relay{
		client:     client,
		hub:        hub,
		logger:     logger.With("component", "realtime.relay"),
		minBackoff: DefaultMinBackoff,
		maxBackoff: DefaultMaxBackoff,
		ready:      make(chan struct{}),
	}
}

// SetBackoff overrides the reconnect backoff bounds.
func (r *Relay) SetBackoff(lo, hi time.Duration) {
	if lo > 0 {
		r.minBackoff = lo
	}
	if hi >= r.minBackoff {
		r.maxBackoff = hi
	}
}

// Ready is closed once the first subscription is confirmed by Redis.
func (r *Relay) Ready() <-chan struct{} {
	return r.ready
}

// Run subscribes and dispatches until ctx is cancelled, reconnecting with
// exponential backoff when the subscription drops.
func (r *Relay) Run(ctx context.Context) error {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return errors.New("relay already started")
	}
	r.started = true
	r.done = make(chan struct{})
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	defer close(r.done)

	r.logger.Info("event relay started", "pattern", ChannelPrefix+"*")

	backoff := r.minBackoff
	for {
		connected, err := r.subscribeOnce(ctx)
		if ctx.Err() != nil {
			r.logger.Info("event relay stopping")
			return nil
		}
		if connected {
			backoff = r.minBackoff
		}

		r.logger.Warn("event relay disconnected, retrying",
			"backoff_seconds", backoff.Seconds(),
			"error", err,
		)
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.logger.Info("event relay stopping")
			return nil
		case <-timer.C:
		}

		backoff *= 2
		if backoff > r.maxBackoff {
			backoff = r.maxBackoff
		}
	}
}

// Shutdown stops the relay and waits for the loop to exit.
func (r *Relay) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return nil
	}
	cancel := r.cancel
	done := r.done
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		r.logger.Warn("event relay shutdown timed out")
		return ctx.Err()
	}
}

// subscribeOnce runs a single subscription. connected reports whether
// Redis confirmed it before it ended.
func (r *Relay) subscribeOnce(ctx context.Context) (connected bool, err error) {
	pubsub := r.client.PSubscribe(ctx, ChannelPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return false, fmt.Errorf("psubscribe: %w", err)
	}
	r.readyOnce.Do(func() { close(r.ready) })

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return true, ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return true, errSubscriptionClosed
			}
			r.handleMessage(msg)
		}
	}
}

func (r *Relay) handleMessage(msg *redis.Message) {
	var ev Event
	if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
		r.logger.Warn("dropping undecodable event", "channel", msg.Channel, "error", err)
		return
	}

	// The channel names the recipient. A payload claiming another owner is dropped.
	if owner := strings.TrimPrefix(msg.Channel, ChannelPrefix); owner != ev.OwnerID {
		r.logger.Warn("dropping event with mismatched owner",
			"channel", msg.Channel,
			"owner_id", ev.OwnerID,
		)
		return
	}

	r.hub.Dispatch(ev)
}
