// Package metrics holds the Prometheus collectors the server exports at
// /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is nil-safe so packages can be exercised in tests without a
// registry.
type Recorder struct {
	registry  *prometheus.Registry
	sessions  prometheus.Gauge
	commands  *prometheus.CounterVec
	answers   *prometheus.CounterVec
	clients   *prometheus.GaugeVec
	dropped   *prometheus.CounterVec
	requests  *prometheus.HistogramVec
	storeErrs prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "pkwy", Name: "sessions_active",
			Help: "Game sessions currently held in memory.",
		}),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkwy", Name: "commands_total",
			Help: "Session commands by type and result.",
		}, []string{"command", "result"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkwy", Name: "answers_total",
			Help: "Answer submissions by outcome.",
		}, []string{"outcome"}),
		clients: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pkwy", Name: "clients_connected",
			Help: "Connected WebSocket clients by role.",
		}, []string{"role"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pkwy", Name: "clients_dropped_total",
			Help: "Clients disconnected because their outbox was full.",
		}, []string{"role"}),
		requests: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "pkwy", Name: "http_request_duration_seconds",
			Help:    "HTTP request latency by route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		storeErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "pkwy", Name: "store_errors_total",
			Help: "Failed snapshot writes.",
		}),
	}
	r.registry.MustRegister(
		r.sessions, r.commands, r.answers, r.clients, r.dropped, r.requests, r.storeErrs,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) SessionOpened() {
	if r != nil {
		r.sessions.Inc()
	}
}

func (r *Recorder) SessionClosed() {
	if r != nil {
		r.sessions.Dec()
	}
}

func (r *Recorder) Command(command string, err error) {
	if r == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	r.commands.WithLabelValues(command, result).Inc()
}

// Answer counts a submission outcome: correct, wrong, pending, stale,
// duplicate or rejected.
func (r *Recorder) Answer(outcome string) {
	if r != nil {
		r.answers.WithLabelValues(outcome).Inc()
	}
}

func (r *Recorder) ClientConnected(role string) {
	if r != nil {
		r.clients.WithLabelValues(role).Inc()
	}
}

func (r *Recorder) ClientDisconnected(role string) {
	if r != nil {
		r.clients.WithLabelValues(role).Dec()
	}
}

func (r *Recorder) ClientDropped(role string) {
	if r != nil {
		r.dropped.WithLabelValues(role).Inc()
	}
}

func (r *Recorder) Request(method, route string, status int, d time.Duration) {
	if r != nil {
		r.requests.WithLabelValues(method, route, strconv.Itoa(status)).Observe(d.Seconds())
	}
}

func (r *Recorder) StoreError() {
	if r != nil {
		r.storeErrs.Inc()
	}
}
