package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ShayCichocki/bakeoff/pkg/models"
)

const metricsNamespace = "bakeoff"

// Metrics holds round counters on a private registry. A CLI process has no
// scrape endpoint, so the registry is written out as a textfile at exit.
// Every method is safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// RoundsTotal counts rounds by outcome.
	RoundsTotal *prometheus.CounterVec
	// ResultsTotal counts validation results by status.
	ResultsTotal *prometheus.CounterVec
	// ValidationSeconds measures per-candidate validation time.
	ValidationSeconds *prometheus.HistogramVec
	// RoundSeconds measures whole-round duration.
	RoundSeconds prometheus.Histogram
	// WorkspacesCreated and WorkspacesDestroyed must match after every round.
	WorkspacesCreated   prometheus.Counter
	WorkspacesDestroyed prometheus.Counter
	// WorkspacesLive is created minus destroyed.
	WorkspacesLive prometheus.Gauge
}

// NewMetrics creates and registers the round metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RoundsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "rounds_total",
				Help:      "Validation rounds by outcome",
			},
			[]string{"outcome"},
		),
		ResultsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "validation_results_total",
				Help:      "Candidate validation results by status",
			},
			[]string{"status"},
		),
		ValidationSeconds: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "validation_duration_seconds",
				Help:      "Per-candidate validation time in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
			},
			[]string{"status"},
		),
		RoundSeconds: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "round_duration_seconds",
				Help:      "Whole-round duration in seconds",
				Buckets:   []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
		WorkspacesCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "workspaces_created_total",
			Help:      "Isolated workspaces created",
		}),
		WorkspacesDestroyed: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "workspaces_destroyed_total",
			Help:      "Isolated workspaces destroyed",
		}),
		WorkspacesLive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "workspaces_live",
			Help:      "Isolated workspaces currently on disk",
		}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveResult records one validation result.
func (m *Metrics) ObserveResult(r models.ValidationResult) {
	if m == nil {
		return
	}
	status := r.Status.String()
	m.ResultsTotal.WithLabelValues(status).Inc()
	m.ValidationSeconds.WithLabelValues(status).Observe(r.Duration.Seconds())
}

// WorkspaceCreated records one workspace creation.
func (m *Metrics) WorkspaceCreated() {
	if m == nil {
		return
	}
	m.WorkspacesCreated.Inc()
	m.WorkspacesLive.Inc()
}

// WorkspacesRemoved records n workspace destructions.
func (m *Metrics) WorkspacesRemoved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.WorkspacesDestroyed.Add(float64(n))
	m.WorkspacesLive.Sub(float64(n))
}

// ObserveRound records a closed round.
func (m *Metrics) ObserveRound(report *models.RoundReport) {
	if m == nil || report == nil {
		return
	}
	m.RoundsTotal.WithLabelValues(string(report.Outcome)).Inc()
	if !report.FinishedAt.IsZero() {
		m.RoundSeconds.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
}

// WriteFile writes the registry in the Prometheus text format, suitable
// for the node_exporter textfile collector.
func (m *Metrics) WriteFile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
