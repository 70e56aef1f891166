package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the bot's Prometheus collectors on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	ticketsOpened    *prometheus.CounterVec
	openRejections   *prometheus.CounterVec
	transitions      *prometheus.CounterVec
	sideEffectErrors *prometheus.CounterVec
	sweepArchived    prometheus.Counter
	sweepFailures    prometheus.Counter
	interactions     *prometheus.CounterVec
}

// NewMetrics registers every collector on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildtickets_http_requests_total",
			Help: "HTTP requests served by the liveness server",
		}, []string{"path", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "guildtickets_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		ticketsOpened: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildtickets_tickets_opened_total",
			Help: "Tickets opened, by intake source",
		}, []string{"source"}),
		openRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildtickets_open_rejections_total",
			Help: "Ticket open attempts rejected, by reason",
		}, []string{"reason"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildtickets_transitions_total",
			Help: "Ticket lifecycle transitions applied",
		}, []string{"action"}),
		sideEffectErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildtickets_side_effect_failures_total",
			Help: "Advisory platform side effects that failed",
		}, []string{"op"}),
		sweepArchived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guildtickets_sweep_archived_total",
			Help: "Tickets archived by the retention sweep",
		}),
		sweepFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "guildtickets_sweep_failures_total",
			Help: "Per-guild or per-ticket failures during the retention sweep",
		}),
		interactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "guildtickets_interactions_total",
			Help: "Platform interactions handled, by kind and outcome",
		}, []string{"kind", "outcome"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.ticketsOpened,
		m.openRejections,
		m.transitions,
		m.sideEffectErrors,
		m.sweepArchived,
		m.sweepFailures,
		m.interactions,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.With(prometheus.Labels{"path": path, "method": method, "status": strconv.Itoa(status)}).Inc()
	m.httpDuration.With(prometheus.Labels{"path": path, "method": method}).Observe(duration.Seconds())
}

func (m *Metrics) TicketOpened(source string) {
	if m == nil {
		return
	}
	m.ticketsOpened.With(prometheus.Labels{"source": source}).Inc()
}

func (m *Metrics) OpenRejected(reason string) {
	if m == nil {
		return
	}
	m.openRejections.With(prometheus.Labels{"reason": reason}).Inc()
}

func (m *Metrics) Transition(action string) {
	if m == nil {
		return
	}
	m.transitions.With(prometheus.Labels{"action": action}).Inc()
}

func (m *Metrics) SideEffectFailed(op string) {
	if m == nil {
		return
	}
	m.sideEffectErrors.With(prometheus.Labels{"op": op}).Inc()
}

// SweepCompleted records one sweep pass.
func (m *Metrics) SweepCompleted(archived, failures int) {
	if m == nil {
		return
	}
	m.sweepArchived.Add(float64(archived))
	m.sweepFailures.Add(float64(failures))
}

func (m *Metrics) Interaction(kind, outcome string) {
	if m == nil {
		return
	}
	m.interactions.With(prometheus.Labels{"kind": kind, "outcome": outcome}).Inc()
}
