package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "semmap"

// Metrics holds run counters in a private registry. Counters accumulate
// across runs of the same process, as in watch mode.
type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	rows         *prometheus.CounterVec
	malformed    *prometheus.CounterVec
	warnings     *prometheus.CounterVec
	triples      *prometheus.CounterVec
	duplicates   *prometheus.CounterVec
	empty        *prometheus.CounterVec
	lastDuration prometheus.Gauge
	lastTriples  prometheus.Gauge
}

// NewMetrics creates and registers the run metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Mapping runs by outcome.",
		}, []string{"status"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rows_total",
			Help:      "Rows read per table.",
		}, []string{"table"}),
		malformed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "malformed_rows_total",
			Help:      "Rows skipped because they could not be parsed.",
		}, []string{"table"}),
		warnings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "coercion_warnings_total",
			Help:      "Coercion warnings per table and kind.",
		}, []string{"table", "kind"}),
		triples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "triples_total",
			Help:      "Distinct triples added to the graph per table.",
		}, []string{"table"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "duplicate_triples_total",
			Help:      "Triples dropped as duplicates per table.",
		}, []string{"table"}),
		empty: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "empty_contributions_total",
			Help:      "Rows that produced only a type assertion.",
		}, []string{"table"}),
		lastDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent run.",
		}),
		lastTriples: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_graph_triples",
			Help:      "Distinct triples in the most recent graph.",
		}),
	}
	m.registry.MustRegister(m.runs, m.rows, m.malformed, m.warnings, m.triples, m.duplicates, m.empty, m.lastDuration, m.lastTriples)
	return m
}

// Registry returns the registry holding the run metrics.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// WriteFile writes the metrics in text exposition format for the node
// exporter textfile collector. The file is replaced atomically.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observe(s *Summary, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(status).Inc()
	if s == nil {
		return
	}
	for _, t := range s.Tables {
		m.rows.WithLabelValues(t.Name).Add(float64(t.Rows))
		m.malformed.WithLabelValues(t.Name).Add(float64(t.Malformed))
		m.triples.WithLabelValues(t.Name).Add(float64(t.Triples))
		m.duplicates.WithLabelValues(t.Name).Add(float64(t.Duplicates))
		m.empty.WithLabelValues(t.Name).Add(float64(t.EmptyContributions))
		for kind, n := range t.Warnings {
			m.warnings.WithLabelValues(t.Name, string(kind)).Add(float64(n))
		}
	}
	m.lastDuration.Set(s.Duration.Seconds())
	m.lastTriples.Set(float64(s.Triples))
}
