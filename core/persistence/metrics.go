package persistence

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Metrics holds the counters and histograms recorded by the executor and
// the report generator. A nil *Metrics records nothing.
type Metrics struct {
	// QueriesTotal counts compiled query executions by mode and status.
	QueriesTotal *prometheus.CounterVec
	// QueryDuration is the latency of compiled query executions.
	QueryDuration *prometheus.HistogramVec
	// RecordsTotal counts records returned (select) or affected (updates).
	RecordsTotal *prometheus.CounterVec
	// ReportsTotal counts generated reports by kind and status.
	ReportsTotal *prometheus.CounterVec
	// ReportRows counts record rows written into reports.
	ReportRows prometheus.Counter
}

// NewMetrics registers the collectors with reg. Passing nil registers them
// with the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		QueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdibase_queries_total",
				Help: "Total number of compiled query executions",
			},
			[]string{"mode", "status"},
		),
		QueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cdibase_query_duration_seconds",
				Help:    "Compiled query latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		RecordsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdibase_records_total",
				Help: "Total number of snapshot records returned or affected",
			},
			[]string{"mode"},
		),
		ReportsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cdibase_reports_total",
				Help: "Total number of generated reports",
			},
			[]string{"kind", "status"},
		),
		ReportRows: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "cdibase_report_rows_total",
				Help: "Total number of record rows written into reports",
			},
		),
	}
}

// ObserveQuery records one query execution.
func (m *Metrics) ObserveQuery(mode string, started time.Time, records int64, err error) {
	if m == nil {
		return
	}
	m.QueriesTotal.WithLabelValues(mode, status(err)).Inc()
	m.QueryDuration.WithLabelValues(mode).Observe(time.Since(started).Seconds())
	if err == nil {
		m.RecordsTotal.WithLabelValues(mode).Add(float64(records))
	}
}

// ObserveReport records one generated report.
func (m *Metrics) ObserveReport(kind string, rows int, err error) {
	if m == nil {
		return
	}
	m.ReportsTotal.WithLabelValues(kind, status(err)).Inc()
	if err == nil {
		m.ReportRows.Add(float64(rows))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// WriteMetrics writes every metric family gathered from g in the text
// exposition format.
func WriteMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}
	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(w, family); err != nil {
			return fmt.Errorf("failed to write metric family %s: %w", family.GetName(), err)
		}
	}
	return nil
}
