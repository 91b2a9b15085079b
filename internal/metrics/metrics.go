// Package metrics exposes Prometheus collectors for scenario runs.
//
// Collectors live on a per-Recorder registry instead of the global default
// so concurrent runs and tests do not share state. A batch run writes the
// registry once at exit with WriteTextfile, for the node exporter textfile
// collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder records run, phase, and solve metrics.
type Recorder struct {
	reg *prometheus.Registry

	runs          *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
	solveDuration *prometheus.HistogramVec
	issues        *prometheus.CounterVec
	modelColumns  prometheus.Histogram
	modelRows     prometheus.Histogram
	inflight      prometheus.Gauge
}

// New creates a Recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridpath_scenario_runs_total",
			Help: "Scenario key runs by final status.",
		}, []string{"status"}),
		phaseDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridpath_phase_duration_seconds",
			Help:    "Duration of one lifecycle phase across all modules of a scenario key.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
		solveDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gridpath_solve_duration_seconds",
			Help:    "Solver wall time by solver status.",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"status"}),
		issues: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gridpath_validation_issues_total",
			Help: "Validation issues by module and severity.",
		}, []string{"module", "severity"}),
		modelColumns: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridpath_model_columns",
			Help:    "Variable columns per assembled model.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		modelRows: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "gridpath_model_rows",
			Help:    "Constraint rows per assembled model.",
			Buckets: prometheus.ExponentialBuckets(10, 4, 8),
		}),
		inflight: f.NewGauge(prometheus.GaugeOpts{
			Name: "gridpath_scenario_keys_inflight",
			Help: "Scenario keys currently being processed.",
		}),
	}
}

// Registry returns the recorder's registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.reg
}

// Run counts a finished scenario key.
func (r *Recorder) Run(status string) {
	r.runs.WithLabelValues(status).Inc()
}

// Phase observes a phase duration.
func (r *Recorder) Phase(phase string, d time.Duration) {
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Solve observes a solver call.
func (r *Recorder) Solve(status string, d time.Duration) {
	r.solveDuration.WithLabelValues(status).Observe(d.Seconds())
}

// Issue counts a validation issue.
func (r *Recorder) Issue(module, severity string) {
	r.issues.WithLabelValues(module, severity).Inc()
}

// ModelSize observes an assembled model's size.
func (r *Recorder) ModelSize(columns, rows int) {
	r.modelColumns.Observe(float64(columns))
	r.modelRows.Observe(float64(rows))
}

// Start marks a key in flight and returns the function that clears it.
func (r *Recorder) Start() func() {
	r.inflight.Inc()
	return r.inflight.Dec
}

// WriteTextfile writes every collected metric in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
