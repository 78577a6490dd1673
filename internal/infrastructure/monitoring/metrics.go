package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/turtacn/riskgraph/pkg/constants"
)

// Metrics manages the engine's Prometheus metrics.
type Metrics struct {
	ScoreCalculations  *prometheus.CounterVec
	ScoreLatency       *prometheus.HistogramVec
	SimulationsStarted *prometheus.CounterVec
	SimulationsEnded   *prometheus.CounterVec
	CascadeDepth       prometheus.Histogram
	RegistrySize       prometheus.GaugeFunc
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// NewMetrics creates and registers the engine metrics. registrySize feeds
// the registry gauge on scrape.
func NewMetrics(registrySize func() int) *Metrics {
	return &Metrics{
		ScoreCalculations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgraph_score_calculations_total",
				Help: "Total number of risk score calculations.",
			},
			[]string{"tenant_id", "result"},
		),
		ScoreLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskgraph_score_calculation_seconds",
				Help:    "Latency of single risk score calculations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"tenant_id"},
		),
		SimulationsStarted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgraph_simulations_started_total",
				Help: "Total number of simulation runs started.",
			},
			[]string{"tenant_id", "type"},
		),
		SimulationsEnded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgraph_simulations_ended_total",
				Help: "Total number of simulation runs reaching a terminal state.",
			},
			[]string{"tenant_id", "type", "status"},
		),
		CascadeDepth: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "riskgraph_cascade_max_depth",
				Help:    "Maximum depth reached by cascade simulations.",
				Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
			},
		),
		RegistrySize: promauto.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "riskgraph_simulation_registry_size",
				Help: "Number of simulation runs tracked by the in-memory registry.",
			},
			func() float64 { return float64(registrySize()) },
		),
		HTTPRequests: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "riskgraph_http_requests_total",
				Help: "Total number of HTTP requests served.",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "riskgraph_http_request_seconds",
				Help:    "Latency of HTTP requests.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

// RecordScoreCalculation records one single-entity calculation.
func (m *Metrics) RecordScoreCalculation(tenantID, result string, duration time.Duration) {
	m.ScoreCalculations.WithLabelValues(tenantID, result).Inc()
	m.ScoreLatency.WithLabelValues(tenantID).Observe(duration.Seconds())
}

// RecordSimulationStarted records a run entering execution.
func (m *Metrics) RecordSimulationStarted(tenantID string, simType constants.SimulationType) {
	m.SimulationsStarted.WithLabelValues(tenantID, string(simType)).Inc()
}

// RecordSimulationEnded records a run reaching a terminal state.
func (m *Metrics) RecordSimulationEnded(tenantID string, simType constants.SimulationType, status constants.SimulationStatus) {
	m.SimulationsEnded.WithLabelValues(tenantID, string(simType), string(status)).Inc()
}

// RecordCascadeDepth records the maximum depth of a completed cascade.
func (m *Metrics) RecordCascadeDepth(depth int) {
	m.CascadeDepth.Observe(float64(depth))
}

// RecordHTTPRequest records one served HTTP request. path is the route
// template, not the raw URL, to keep cardinality bounded.
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.HTTPRequests.WithLabelValues(method, path, status).Inc()
	m.HTTPDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
