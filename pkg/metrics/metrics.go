// Package metrics exposes Prometheus collectors for the statement import pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expense_tracker"

// Import outcomes.
const (
	OutcomeImported       = "imported"
	OutcomePreview        = "preview"
	OutcomeNoTransactions = "no_transactions"
	OutcomeNotPDF         = "not_pdf"
	OutcomeUnreadable     = "unreadable"
	OutcomeMissingDate    = "missing_report_date"
	OutcomePartial        = "partial"
	OutcomeError          = "error"
)

// ImportMetrics groups the pipeline collectors.
type ImportMetrics struct {
	imports      *prometheus.CounterVec
	transactions *prometheus.CounterVec
	skippedLines prometheus.Counter
	duration     *prometheus.HistogramVec
}

// NewImportMetrics registers the collectors on reg.
func NewImportMetrics(reg prometheus.Registerer) *ImportMetrics {
	m := &ImportMetrics{
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "statements_total",
			Help:      "Credit-card statements processed, by outcome.",
		}, []string{"outcome"}),
		transactions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "transactions_total",
			Help:      "Transactions produced by the pipeline, by stage and section.",
		}, []string{"stage", "section"}),
		skippedLines: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "skipped_lines_total",
			Help:      "Section lines that did not form a transaction.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "import",
			Name:      "duration_seconds",
			Help:      "Time spent importing one statement.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.imports, m.transactions, m.skippedLines, m.duration)
	return m
}

// ObserveImport records one finished pipeline run.
func (m *ImportMetrics) ObserveImport(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.imports.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// AddTransactions counts parsed or expanded transactions for a section.
func (m *ImportMetrics) AddTransactions(stage, section string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.transactions.WithLabelValues(stage, section).Add(float64(n))
}

// AddSkippedLines counts lines the parsers rejected.
func (m *ImportMetrics) AddSkippedLines(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.skippedLines.Add(float64(n))
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
