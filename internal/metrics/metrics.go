// Package metrics provides lightweight hooks for instrumentation.
package metrics

// Event publish outcomes.
const (
	PublishSuccess = "success"
	PublishFailed  = "failed"
)

// Auth outcomes.
const (
	AuthSuccess = "success"
	AuthFailure = "failure"
)

// Recorder captures metric events for the application.
type Recorder interface {
	// Task mutations
	IncTaskCreated()
	IncTaskUpdated()
	IncTaskDeleted()

	// Auth attempts. action is "register" or "login".
	IncAuthAttempt(action, outcome string)

	// Realtime pipeline
	IncEventPublished(status string)
	IncEventDropped()
	AddStreamSubscribers(delta int64)
}

var (
	_ Recorder = (*NoopRecorder)(nil)
	_ Recorder = (*InMemoryRecorder)(nil)
	_ Recorder = (*PrometheusRecorder)(nil)
)
