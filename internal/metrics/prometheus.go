package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder exports metrics through a dedicated registry.
type PrometheusRecorder struct {
	registry          *prometheus.Registry
	tasks             *prometheus.CounterVec
	authAttempts      *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	eventsDropped     prometheus.Counter
	streamSubscribers prometheus.Gauge
}

// NewPrometheus registers the taskflow collectors plus the Go and process
// collectors on a fresh registry.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()

	p := &PrometheusRecorder{
		registry: reg,
		tasks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_task_mutations_total",
			Help: "Task mutations by operation.",
		}, []string{"op"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_auth_attempts_total",
			Help: "Register and login attempts by outcome.",
		}, []string{"action", "outcome"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "taskflow_events_published_total",
			Help: "Task events handed to the broker by status.",
		}, []string{"status"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "taskflow_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		}),
		streamSubscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "taskflow_stream_subscribers",
			Help: "Currently connected stream subscribers.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		p.tasks,
		p.authAttempts,
		p.eventsPublished,
		p.eventsDropped,
		p.streamSubscribers,
	)
	return p
}

// Handler serves the registry in the Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncTaskCreated() { p.tasks.WithLabelValues("create").Inc() }
func (p *PrometheusRecorder) IncTaskUpdated() { p.tasks.WithLabelValues("update").Inc() }
func (p *PrometheusRecorder) IncTaskDeleted() { p.tasks.WithLabelValues("delete").Inc() }

func (p *PrometheusRecorder) IncAuthAttempt(action, outcome string) {
	p.authAttempts.WithLabelValues(action, outcome).Inc()
}

func (p *PrometheusRecorder) IncEventPublished(status string) {
	p.eventsPublished.WithLabelValues(status).Inc()
}

func (p *PrometheusRecorder) IncEventDropped() { p.eventsDropped.Inc() }

func (p *PrometheusRecorder) AddStreamSubscribers(delta int64) {
	p.streamSubscribers.Add(float64(delta))
}
