package engine

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusMetrics provides Prometheus-compatible instrumentation for
// run submissions, namespaced "dagflow_":
//
//   - inflight_runs (gauge): Engine.Resolve calls currently in
//     progress.
//   - validation_failures_total (counter, by kind): MissingKey,
//     TypeMismatch, DuplicateEdge, Cycle, ParityViolation, ...
//   - propagation_writes_total (counter, by outcome): accept_first,
//     accept_shallower, accept_tiebreak, reject.
//   - run_commit_latency_ms (histogram): wall time of one
//     Engine.Resolve call; the registry commit that follows it is not
//     included.
type PrometheusMetrics struct {
	inflightRuns       prometheus.Gauge
	validationFailures *prometheus.CounterVec
	propagationWrites  *prometheus.CounterVec
	runCommitLatency   prometheus.Histogram

	mu      sync.RWMutex
	enabled bool
}

// NewPrometheusMetrics registers the engine's metrics against registry.
// A nil registry registers against prometheus.DefaultRegisterer.
func NewPrometheusMetrics(registry prometheus.Registerer) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registry)

	return &PrometheusMetrics{
		enabled: true,
		inflightRuns: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dagflow",
			Name:      "inflight_runs",
			Help:      "Resolve calls currently in progress",
		}),
		validationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dagflow",
			Name:      "validation_failures_total",
			Help:      "Validation failures by diagnostic kind",
		}, []string{"kind"}),
		propagationWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dagflow",
			Name:      "propagation_writes_total",
			Help:      "Write-ledger decisions made during propagation, by outcome",
		}, []string{"outcome"}),
		runCommitLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "dagflow",
			Name:      "run_commit_latency_ms",
			Help:      "Wall time of one Resolve call, in milliseconds",
			Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
		}),
	}
}

// StartRun marks a run as in-flight.
func (pm *PrometheusMetrics) StartRun() {
	if !pm.isEnabled() {
		return
	}
	pm.inflightRuns.Inc()
}

// FinishRun marks a run as no longer in-flight and records its Resolve
// latency.
func (pm *PrometheusMetrics) FinishRun(latency time.Duration) {
	if !pm.isEnabled() {
		return
	}
	pm.inflightRuns.Dec()
	pm.runCommitLatency.Observe(float64(latency.Milliseconds()))
}

// RecordValidationFailure increments the failure counter for kind.
func (pm *PrometheusMetrics) RecordValidationFailure(kind string) {
	if !pm.isEnabled() {
		return
	}
	pm.validationFailures.WithLabelValues(kind).Inc()
}

// RecordPropagationWrite increments the write-ledger decision counter
// for outcome ("accept_first", "accept_shallower", "accept_tiebreak",
// "reject").
func (pm *PrometheusMetrics) RecordPropagationWrite(outcome string) {
	if !pm.isEnabled() {
		return
	}
	pm.propagationWrites.WithLabelValues(outcome).Inc()
}

// Disable stops metric recording (useful for tests).
func (pm *PrometheusMetrics) Disable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = false
}

// Enable resumes metric recording after Disable.
func (pm *PrometheusMetrics) Enable() {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.enabled = true
}

func (pm *PrometheusMetrics) isEnabled() bool {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.enabled
}
