package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncTaskCreated()
	m.IncTaskCreated()
	m.IncTaskUpdated()
	m.IncTaskDeleted()
	m.IncAuthAttempt("login", AuthSuccess)
	m.IncAuthAttempt("login", AuthFailure)
	m.IncEventPublished(PublishSuccess)
	m.IncEventPublished(PublishFailed)
	m.IncEventDropped()
	m.AddStreamSubscribers(2)
	m.AddStreamSubscribers(-1)

	got := m.Snapshot()
	want := Snapshot{
		TasksCreated:      2,
		TasksUpdated:      1,
		TasksDeleted:      1,
		AuthSuccesses:     1,
		AuthFailures:      1,
		EventsPublished:   1,
		EventsFailed:      1,
		EventsDropped:     1,
		StreamSubscribers: 1,
	}
	if got != want {
		t.Errorf("Snapshot() = %+v, want %+v", got, want)
	}
}

func TestPrometheusRecorder_Exposition(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncTaskCreated()
	p.IncAuthAttempt("register", AuthSuccess)
	p.IncEventPublished(PublishFailed)
	p.AddStreamSubscribers(3)

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`taskflow_task_mutations_total{op="create"} 1`,
		`taskflow_auth_attempts_total{action="register",outcome="success"} 1`,
		`taskflow_events_published_total{status="failed"} 1`,
		`taskflow_stream_subscribers 3`,
		`go_goroutines`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("exposition missing %q", want)
		}
	}
}

func TestNoopRecorder_Satisfies(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncTaskCreated()
	r.AddStreamSubscribers(1)
}
