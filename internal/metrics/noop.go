package metrics

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// IncTaskCreated is a no-op.
func (n *NoopRecorder) IncTaskCreated() {}

// IncTaskUpdated is a no-op.
func (n *NoopRecorder) IncTaskUpdated() {}

// IncTaskDeleted is a no-op.
func (n *NoopRecorder) IncTaskDeleted() {}

// IncAuthAttempt is a no-op.
func (n *NoopRecorder) IncAuthAttempt(action, outcome string) {}

// IncEventPublished is a no-op.
func (n *NoopRecorder) IncEventPublished(status string) {}

// IncEventDropped is a no-op.
func (n *NoopRecorder) IncEventDropped() {}

// AddStreamSubscribers is a no-op.
func (n *NoopRecorder) AddStreamSubscribers(delta int64) {}
