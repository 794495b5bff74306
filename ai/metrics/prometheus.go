// Package metrics provides Prometheus metrics export for the matching
// service. A nil *PrometheusExporter is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mirrormatch"

// PrometheusExporter exports matching metrics in Prometheus format.
type PrometheusExporter struct {
	registry *prometheus.Registry

	// Match pipeline
	matchRequests *prometheus.CounterVec
	matchLatency  *prometheus.HistogramVec
	candidatePool prometheus.Histogram
	rerankResults *prometheus.CounterVec

	// Text generation
	blurbFailures prometheus.Counter
	llmLatency    *prometheus.HistogramVec
	llmTokens     *prometheus.CounterVec

	// Team search
	teamSearches   *prometheus.CounterVec
	subsetsVisited prometheus.Histogram

	// Ledger reconciliation
	reconcilerRuns        *prometheus.CounterVec
	reconcilerTransitions *prometheus.CounterVec

	// Match history
	historyPersisted prometheus.Counter
	historyDropped   *prometheus.CounterVec
}

// Config configures the Prometheus exporter.
type Config struct {
	// Registry to use (if nil, creates a new one)
	Registry *prometheus.Registry

	// Buckets for latency histograms (in seconds)
	LatencyBuckets []float64
}

// DefaultConfig returns default Prometheus configuration.
func DefaultConfig() Config {
	return Config{
		LatencyBuckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
	}
}

// NewPrometheusExporter creates a new Prometheus metrics exporter.
func NewPrometheusExporter(cfg Config) *PrometheusExporter {
	if len(cfg.LatencyBuckets) == 0 {
		cfg.LatencyBuckets = DefaultConfig().LatencyBuckets
	}

	registry := cfg.Registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	e := &PrometheusExporter{registry: registry}

	e.matchRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "requests_total",
			Help:      "Total number of match requests",
		},
		[]string{"context", "status"},
	)

	e.matchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "latency_seconds",
			Help:      "Match request latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"context"},
	)

	e.candidatePool = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "candidate_pool_size",
			Help:      "Candidates returned by retrieval per request",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		},
	)

	e.rerankResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "results_total",
			Help:      "Re-ranked matches returned, by grade",
		},
		[]string{"grade"},
	)

	e.blurbFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "blurb_failures_total",
			Help:      "Blurbs that could not be generated",
		},
	)

	e.llmLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "latency_seconds",
			Help:      "Text generation latency in seconds",
			Buckets:   cfg.LatencyBuckets,
		},
		[]string{"provider", "prompt"},
	)

	e.llmTokens = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Total text generation tokens consumed",
		},
		[]string{"provider", "token_type"},
	)

	e.teamSearches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "team",
			Name:      "searches_total",
			Help:      "Total number of team searches",
		},
		[]string{"status"},
	)

	e.subsetsVisited = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "team",
			Name:      "subsets_evaluated",
			Help:      "Subsets scored per team search",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 12),
		},
	)

	e.reconcilerRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "reconciler_runs_total",
			Help:      "Ledger reconciliation ticks",
		},
		[]string{"status"},
	)

	e.reconcilerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "transitions_total",
			Help:      "Archetype rows updated from ledger counts, by resulting status",
		},
		[]string{"status"},
	)

	e.historyPersisted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "persisted_total",
			Help:      "Match records written",
		},
	)

	e.historyDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "dropped_total",
			Help:      "Match records that were not written",
		},
		[]string{"reason"},
	)

	// Register all metrics
	registry.MustRegister(
		e.matchRequests,
		e.matchLatency,
		e.candidatePool,
		e.rerankResults,
		e.blurbFailures,
		e.llmLatency,
		e.llmTokens,
		e.teamSearches,
		e.subsetsVisited,
		e.reconcilerRuns,
		e.reconcilerTransitions,
		e.historyPersisted,
		e.historyDropped,
	)

	return e
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordMatchRequest records one match request and its retrieval pool size.
func (e *PrometheusExporter) RecordMatchRequest(context string, latency time.Duration, poolSize int, success bool) {
	if e == nil {
		return
	}
	e.matchRequests.WithLabelValues(context, statusLabel(success)).Inc()
	e.matchLatency.WithLabelValues(context).Observe(latency.Seconds())
	if success {
		e.candidatePool.Observe(float64(poolSize))
	}
}

// RecordMatchResult counts one returned match.
func (e *PrometheusExporter) RecordMatchResult(grade string) {
	if e == nil {
		return
	}
	e.rerankResults.WithLabelValues(grade).Inc()
}

// RecordBlurbFailure counts a blurb that degraded to none.
func (e *PrometheusExporter) RecordBlurbFailure() {
	if e == nil {
		return
	}
	e.blurbFailures.Inc()
}

// RecordLLMCall records latency and token usage of one text-generation call.
func (e *PrometheusExporter) RecordLLMCall(provider, prompt string, latency time.Duration, promptTokens, completionTokens int) {
	if e == nil {
		return
	}
	e.llmLatency.WithLabelValues(provider, prompt).Observe(latency.Seconds())
	e.llmTokens.WithLabelValues(provider, "prompt").Add(float64(promptTokens))
	e.llmTokens.WithLabelValues(provider, "completion").Add(float64(completionTokens))
}

// RecordTeamSearch records one optimizer run.
func (e *PrometheusExporter) RecordTeamSearch(subsets int, success bool) {
	if e == nil {
		return
	}
	e.teamSearches.WithLabelValues(statusLabel(success)).Inc()
	if success {
		e.subsetsVisited.Observe(float64(subsets))
	}
}

// RecordReconcilerRun records one reconciler tick.
func (e *PrometheusExporter) RecordReconcilerRun(success bool) {
	if e == nil {
		return
	}
	e.reconcilerRuns.WithLabelValues(statusLabel(success)).Inc()
}

// RecordTransition records one ledger-driven row update.
func (e *PrometheusExporter) RecordTransition(status string) {
	if e == nil {
		return
	}
	e.reconcilerTransitions.WithLabelValues(status).Inc()
}

// RecordHistoryPersisted counts written match records.
func (e *PrometheusExporter) RecordHistoryPersisted(n int) {
	if e == nil {
		return
	}
	e.historyPersisted.Add(float64(n))
}

// RecordHistoryDropped counts match records lost for reason.
func (e *PrometheusExporter) RecordHistoryDropped(reason string, n int) {
	if e == nil {
		return
	}
	e.historyDropped.WithLabelValues(reason).Add(float64(n))
}

// Handler returns the HTTP handler for the metrics endpoint.
func (e *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// ServeHTTP implements http.Handler for the metrics endpoint.
func (e *PrometheusExporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.Handler().ServeHTTP(w, r)
}

// GetRegistry returns the Prometheus registry.
func (e *PrometheusExporter) GetRegistry() *prometheus.Registry {
	return e.registry
}
