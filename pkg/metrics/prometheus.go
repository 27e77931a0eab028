// Package metrics provides Prometheus metrics for the vists rating service.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager owns every Prometheus collector used by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Rating runs
	gamesProcessed prometheus.Counter
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	playersRated   prometheus.Gauge

	// Errors
	errorsByComponent *prometheus.CounterVec

	// Service state
	queueSize        prometheus.Gauge
	standingsPlayers prometheus.Gauge
	duplicateLedgers prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

type global struct {
	manager  *Manager
	registry *prometheus.Registry
}

var current atomic.Pointer[global] //nolint:gochecknoglobals // process-wide metrics state

func init() { //nolint:gochecknoinits // global metrics setup
	Configure()
}

// Configure replaces the global manager with one built from opts on a fresh
// registry without the default Go collectors. Call it at startup, before
// metrics are served.
func Configure(opts ...Option) {
	registry := prometheus.NewRegistry()
	opts = append(opts, WithPrometheusRegistry(registry))
	current.Store(&global{manager: NewManager(opts...), registry: registry})
}

func globalManager() *Manager { return current.Load().manager }

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "vists",
		subsystem:        "ratings",
		histogramBuckets: prometheus.ExponentialBuckets(1, 2.5, 12),
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one block per collector
	auto := promauto.With(m.registry)

	m.gamesProcessed = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "games_processed_total",
		Help:        "Total number of games rated and committed",
	})

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "runs_total",
		Help:        "Total number of recompute runs by outcome",
	}, []string{"status"})

	m.runDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "run_duration_milliseconds",
		Help:        "Duration of a full recompute pass in milliseconds",
		Buckets:     m.histogramBuckets,
	})

	m.playersRated = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "players_rated",
		Help:        "Number of distinct players rated by the last successful run",
	})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "errors_by_component_total",
		Help:        "Total number of errors by component and kind",
	}, []string{"component", "kind"})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "queue_size",
		Help:        "Number of recompute requests waiting in the queue",
	})

	m.standingsPlayers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "standings_players",
		Help:        "Number of players in the published standings",
	})

	m.duplicateLedgers = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "ledger_duplicates_total",
		Help:        "Total number of ledger submissions skipped as duplicates",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		ConstLabels: m.constLabels,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordGameProcessed increments the committed games counter.
func RecordGameProcessed() {
	globalManager().gamesProcessed.Inc()
}

// RecordRun counts a finished run with the given status ("success" or "failed").
func RecordRun(status string) {
	globalManager().runs.WithLabelValues(status).Inc()
}

// RecordRunDuration records the duration of a run in milliseconds.
func RecordRunDuration(ms float64) {
	globalManager().runDuration.Observe(ms)
}

// UpdatePlayersRated sets the number of players rated by the last run.
func UpdatePlayersRated(count int) {
	globalManager().playersRated.Set(float64(count))
}

// RecordErrorByComponent records an error with component and kind labels.
func RecordErrorByComponent(component, kind string) {
	globalManager().errorsByComponent.WithLabelValues(component, kind).Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager().queueSize.Set(float64(size))
}

// UpdateStandingsPlayers sets the number of players in the standings.
func UpdateStandingsPlayers(count int) {
	globalManager().standingsPlayers.Set(float64(count))
}

// RecordLedgerDuplicate increments the duplicate submissions counter.
func RecordLedgerDuplicate() {
	globalManager().duplicateLedgers.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager().httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, ms float64) {
	globalManager().httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(ms)
}

// GetRegistry returns the registry of the global manager.
func GetRegistry() *prometheus.Registry {
	return current.Load().registry
}

// Handler serves the global registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(GetRegistry(), promhttp.HandlerOpts{})
}
