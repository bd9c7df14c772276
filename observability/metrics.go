// Package observability holds the stage metrics written as a Prometheus
// textfile and the clock used to time stages.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/YuminosukeSato/forestfire/pkg/errors"
)

const namespace = "forestfire"

// Metrics holds the gauges and counters for one CLI invocation. Each
// instance owns a fresh registry; nothing is registered globally.
type Metrics struct {
	registry *prometheus.Registry

	StageRuns     *prometheus.CounterVec // labels: stage, outcome={success,error}
	StageDuration *prometheus.GaugeVec   // labels: stage
	RowsLoaded    *prometheus.GaugeVec   // labels: stage
	RowsWritten   *prometheus.GaugeVec   // labels: stage
	RowsDropped   *prometheus.GaugeVec   // labels: stage, reason={duplicate,incomplete}

	DerivedFeatures prometheus.Gauge
	ModelAccuracy   prometheus.Gauge
	ModelAUC        prometheus.Gauge
	CVAccuracy      prometheus.Gauge
	Regressions     *prometheus.CounterVec // labels: outcome={fitted,skipped}
}

// NewMetrics creates the stage metrics on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		StageRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Stage invocations by outcome.",
		}, []string{"stage", "outcome"}),
		StageDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of the last stage run.",
		}, []string{"stage"}),
		RowsLoaded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_loaded",
			Help:      "Rows read from the stage input.",
		}, []string{"stage"}),
		RowsWritten: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_written",
			Help:      "Rows written to the stage output.",
		}, []string{"stage"}),
		RowsDropped: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "rows_dropped",
			Help:      "Rows removed during cleaning by reason.",
		}, []string{"stage", "reason"}),
		DerivedFeatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "derived_features",
			Help:      "Number of derived feature columns added.",
		}),
		ModelAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_accuracy",
			Help:      "Test-set accuracy of the random forest.",
		}),
		ModelAUC: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_roc_auc",
			Help:      "Test-set ROC AUC for binary labels.",
		}),
		CVAccuracy: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_cv_accuracy",
			Help:      "Mean k-fold accuracy on the training split.",
		}),
		Regressions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "regressions_total",
			Help:      "OLS formulas by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.StageRuns,
		m.StageDuration,
		m.RowsLoaded,
		m.RowsWritten,
		m.RowsDropped,
		m.DerivedFeatures,
		m.ModelAccuracy,
		m.ModelAUC,
		m.CVAccuracy,
		m.Regressions,
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveStage records the outcome and duration of a stage run.
func (m *Metrics) ObserveStage(stage string, seconds float64, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.StageRuns.WithLabelValues(stage, outcome).Inc()
	m.StageDuration.WithLabelValues(stage).Set(seconds)
}

// WriteTextfile writes all metrics in the node_exporter textfile format.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return errors.Wrapf(err, "write metrics textfile %s", path)
	}
	return nil
}
