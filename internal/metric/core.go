package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the pipeline-level metrics exported regardless of which
// backend or dissector is in use.
type Metrics struct {
	// RowsWritten counts rows successfully committed to the destination table.
	RowsWritten *prometheus.CounterVec

	// RowsDropped counts rows whose insert statement failed.
	RowsDropped *prometheus.CounterVec

	// QueueDepth reports the current number of rows buffered in the row queue.
	QueueDepth prometheus.Gauge

	// DDLOperations counts schema evolution statements issued (create_table,
	// add_column, alter_column, add_foreign_key) labeled by outcome.
	DDLOperations *prometheus.CounterVec

	// InsertDuration records wall-clock time of individual row inserts.
	InsertDuration *prometheus.HistogramVec

	// DissectorStatus reports the child dissector process state
	// (0=not started, 1=running, 2=exited clean, 3=exited error).
	DissectorStatus prometheus.Gauge

	// ErrorsTotal counts classified errors by component and class.
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics builds an unregistered Metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{
		RowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "c5sigma",
				Subsystem: "writer",
				Name:      "rows_written_total",
				Help:      "Total number of rows committed to the destination database, labeled by table.",
			},
			[]string{"table"},
		),
		RowsDropped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "c5sigma",
				Subsystem: "writer",
				Name:      "rows_dropped_total",
				Help:      "Total number of rows whose insert failed, labeled by table.",
			},
			[]string{"table"},
		),
		QueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "c5sigma",
				Subsystem: "rowqueue",
				Name:      "depth",
				Help:      "Current number of rows buffered between the transformer and the writer.",
			},
		),
		DDLOperations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "c5sigma",
				Subsystem: "writer",
				Name:      "ddl_operations_total",
				Help:      "Total number of schema evolution statements issued, labeled by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		InsertDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "c5sigma",
				Subsystem: "writer",
				Name:      "insert_duration_seconds",
				Help:      "Duration of individual row insert statements.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table"},
		),
		DissectorStatus: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "c5sigma",
				Subsystem: "dissector",
				Name:      "status",
				Help:      "Dissector child process status (0=not started,1=running,2=exited clean,3=exited error).",
			},
		),
		ErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "c5sigma",
				Subsystem: "pipeline",
				Name:      "errors_total",
				Help:      "Total number of classified errors, labeled by component and error class.",
			},
			[]string{"component", "class"},
		),
	}
}

// RecordRowWritten increments the rows-written counter for a table.
func (m *Metrics) RecordRowWritten(table string) {
	m.RowsWritten.WithLabelValues(table).Inc()
}

// RecordRowDropped increments the rows-dropped counter for a table.
func (m *Metrics) RecordRowDropped(table string) {
	m.RowsDropped.WithLabelValues(table).Inc()
}

// SetQueueDepth sets the current row queue depth gauge.
func (m *Metrics) SetQueueDepth(depth int) {
	m.QueueDepth.Set(float64(depth))
}

// RecordDDL increments the DDL operations counter for a kind/outcome pair.
func (m *Metrics) RecordDDL(kind, outcome string) {
	m.DDLOperations.WithLabelValues(kind, outcome).Inc()
}

// ObserveInsertDuration records an insert's wall-clock duration for a table.
func (m *Metrics) ObserveInsertDuration(table string, d time.Duration) {
	m.InsertDuration.WithLabelValues(table).Observe(d.Seconds())
}

// SetDissectorStatus updates the dissector child process status gauge.
func (m *Metrics) SetDissectorStatus(status int) {
	m.DissectorStatus.Set(float64(status))
}

// RecordError increments the errors counter for a component/class pair.
func (m *Metrics) RecordError(component, class string) {
	m.ErrorsTotal.WithLabelValues(component, class).Inc()
}
