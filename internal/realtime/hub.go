package realtime

import (
	"context"
	"errors"
	"sync"

	"github.com/taskflow/taskflow/internal/metrics"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

// ErrHubClosed is returned when subscribing to a closed hub.
var ErrHubClosed = errors.New("hub closed")

// Subscription is one connected session of a user.
type Subscription struct {
	hub    *Hub
	userID string
	ch     chan Event
}

// C delivers the user's events. It is closed when the subscription or
// the hub is closed.
func (s *Subscription) C() <-chan Event {
	return s.ch
}

// UserID returns the subscribed user.
func (s *Subscription) UserID() string {
	return s.userID
}

// Close unsubscribes. It is safe to call more than once.
func (s *Subscription) Close() {
	s.hub.remove(s)
}

// Hub keeps the live subscriptions of every user on this instance.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*Subscription]struct{}
	buffer   int
	recorder metrics.Recorder
	closed   bool
}

// NewHub creates a hub. A buffer below one falls back to DefaultBuffer.
func NewHub(buffer int, recorder metrics.Recorder) *Hub {
	if buffer < 1 {
		buffer = DefaultBuffer
	}
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Hub{
		subs:     make(map[string]map[*Subscription]struct{}),
		buffer:   buffer,
		recorder: recorder,
	}
}

// Subscribe registers a new session for userID.
func (h *Hub) Subscribe(userID string) (*Subscription, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrHubClosed
	}

	sub := &Subscription{hub: h, userID: userID, ch: make(chan Event, h.buffer)}
	set, ok := h.subs[userID]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[userID] = set
	}
	set[sub] = struct{}{}
	h.recorder.AddStreamSubscribers(1)

	return sub, nil
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.userID]
	if !ok {
		return
	}
	if _, ok := set[sub]; !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.userID)
	}
	close(sub.ch)
	h.recorder.AddStreamSubscribers(-1)
}

// Dispatch delivers ev to every session of its owner and returns how many
// received it. A full buffer drops the event for that session.
func (h *Hub) Dispatch(ev Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for sub := range h.subs[ev.OwnerID] {
		select {
		case sub.ch <- ev:
			delivered++
		default:
			h.recorder.IncEventDropped()
		}
	}
	return delivered
}

// Publish lets the hub stand in for a broker on a single instance.
func (h *Hub) Publish(_ context.Context, ev Event) error {
	h.Dispatch(ev)
	return nil
}

// SubscriberCount returns the number of live sessions of userID.
func (h *Hub) SubscriberCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[userID])
}

// Close closes every subscription. Later subscribes fail with ErrHubClosed.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}
	h.closed = true
	for userID, set := range h.subs {
		for sub := range set {
			close(sub.ch)
			h.recorder.AddStreamSubscribers(-1)
		}
		delete(h.subs, userID)
	}
	return nil
}
