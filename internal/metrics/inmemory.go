package metrics

import "sync/atomic"

// Snapshot captures current in-memory counters.
type Snapshot struct {
	TasksCreated      uint64
	TasksUpdated      uint64
	TasksDeleted      uint64
	AuthSuccesses     uint64
	AuthFailures      uint64
	EventsPublished   uint64
	EventsFailed      uint64
	EventsDropped     uint64
	StreamSubscribers int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	tasksCreated      uint64
	tasksUpdated      uint64
	tasksDeleted      uint64
	authSuccesses     uint64
	authFailures      uint64
	eventsPublished   uint64
	eventsFailed      uint64
	eventsDropped     uint64
	streamSubscribers int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		TasksCreated:      atomic.LoadUint64(&m.tasksCreated),
		TasksUpdated:      atomic.LoadUint64(&m.tasksUpdated),
		TasksDeleted:      atomic.LoadUint64(&m.tasksDeleted),
		AuthSuccesses:     atomic.LoadUint64(&m.authSuccesses),
		AuthFailures:      atomic.LoadUint64(&m.authFailures),
		EventsPublished:   atomic.LoadUint64(&m.eventsPublished),
		EventsFailed:      atomic.LoadUint64(&m.eventsFailed),
		EventsDropped:     atomic.LoadUint64(&m.eventsDropped),
		StreamSubscribers: atomic.LoadInt64(&m.streamSubscribers),
	}
}

// IncTaskCreated increments the task created counter.
func (m *InMemoryRecorder) IncTaskCreated() {
	atomic.AddUint64(&m.tasksCreated, 1)
}

// IncTaskUpdated increments the task updated counter.
func (m *InMemoryRecorder) IncTaskUpdated() {
	atomic.AddUint64(&m.tasksUpdated, 1)
}

// IncTaskDeleted increments the task deleted counter.
func (m *InMemoryRecorder) IncTaskDeleted() {
	atomic.AddUint64(&m.tasksDeleted, 1)
}

// IncAuthAttempt counts an auth attempt by outcome.
func (m *InMemoryRecorder) IncAuthAttempt(_, outcome string) {
	if outcome == AuthSuccess {
		atomic.AddUint64(&m.authSuccesses, 1)
		return
	}
	atomic.AddUint64(&m.authFailures, 1)
}

// IncEventPublished counts a publish attempt by status.
func (m *InMemoryRecorder) IncEventPublished(status string) {
	if status == PublishSuccess {
		atomic.AddUint64(&m.eventsPublished, 1)
		return
	}
	atomic.AddUint64(&m.eventsFailed, 1)
}

// IncEventDropped counts an event dropped on a full subscriber buffer.
func (m *InMemoryRecorder) IncEventDropped() {
	atomic.AddUint64(&m.eventsDropped, 1)
}

// AddStreamSubscribers adjusts the live subscriber gauge.
func (m *InMemoryRecorder) AddStreamSubscribers(delta int64) {
	atomic.AddInt64(&m.streamSubscribers, delta)
}
