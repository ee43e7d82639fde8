package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is a
// valid no-op recorder.
type Metrics struct {
	registry *prometheus.Registry

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errors          *prometheus.CounterVec
	ticketsClosed   *prometheus.CounterVec
	dispatchClaims  *prometheus.CounterVec
	consumption     *prometheus.CounterVec
	cleaning        *prometheus.CounterVec
	cleared         prometheus.Counter
	sideEffects     *prometheus.CounterVec
	eventsDropped   prometheus.Counter
}

// NewMetrics registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector(), prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses by error code",
		}, []string{"method", "route", "code"}),
		ticketsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tickets_closed_total",
			Help: "Tickets closed, split by whether the SLA was breached",
		}, []string{"breached"}),
		dispatchClaims: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_claims_total",
			Help: "Dispatch attempts by result",
		}, []string{"result"}),
		consumption: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "consumption_submissions_total",
			Help: "Consumption submissions by outcome",
		}, []string{"outcome"}),
		cleaning: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cleaning_transitions_total",
			Help: "Cleaning assignment transitions by action",
		}, []string{"action"}),
		cleared: factory.NewCounter(prometheus.CounterOpts{
			Name: "consumption_records_cleared_total",
			Help: "Consumption records marked cleared",
		}),
		sideEffects: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "side_effect_failures_total",
			Help: "Best-effort side effects that failed after the primary write",
		}, []string{"kind"}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "events_dropped_total",
			Help: "Events dropped because the dispatch queue was full",
		}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest observes a completed HTTP request.
func (m *Metrics) RecordRequest(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordError counts an error response by domain code.
func (m *Metrics) RecordError(route, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(method, route, code).Inc()
}

// TicketClosed counts a closed ticket.
func (m *Metrics) TicketClosed(breached bool) {
	if m == nil {
		return
	}
	m.ticketsClosed.WithLabelValues(strconv.FormatBool(breached)).Inc()
}

// DispatchResult counts a dispatch attempt: claimed, none or error.
func (m *Metrics) DispatchResult(result string) {
	if m == nil {
		return
	}
	m.dispatchClaims.WithLabelValues(result).Inc()
}

// ConsumptionOutcome counts a consumption submission outcome.
func (m *Metrics) ConsumptionOutcome(outcome string) {
	if m == nil {
		return
	}
	m.consumption.WithLabelValues(outcome).Inc()
}

// CleaningTransition counts a cleaning assignment transition.
func (m *Metrics) CleaningTransition(action string) {
	if m == nil {
		return
	}
	m.cleaning.WithLabelValues(action).Inc()
}

// RecordsCleared adds n cleared consumption records.
func (m *Metrics) RecordsCleared(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.cleared.Add(float64(n))
}

// SideEffectFailed counts a failed best-effort side effect.
func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.sideEffects.WithLabelValues(kind).Inc()
}

// EventDropped counts an event rejected by a full queue.
func (m *Metrics) EventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
