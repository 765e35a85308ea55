package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	SearchRequestsTotal   *prometheus.CounterVec
	SearchRequestDuration prometheus.Histogram

	RowsWrittenTotal  *prometheus.CounterVec
	RowsSkippedTotal  prometheus.Counter
	SubdivisionsTotal prometheus.Counter
	RegionsTotal      *prometheus.CounterVec

	SplitDepth prometheus.Histogram
}

func New() *Metrics {
	return NewWithRegisterer(prometheus.DefaultRegisterer)
}

// NewWithRegisterer is used by tests to avoid double registration on the default registry.
func NewWithRegisterer(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	m := &Metrics{
		SearchRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yelp_sweep_search_requests_total",
				Help: "Total number of search API requests",
			},
			[]string{"status"},
		),
		SearchRequestDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "yelp_sweep_search_request_duration_seconds",
				Help:    "Search request duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
		),

		RowsWrittenTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yelp_sweep_rows_written_total",
				Help: "Total number of rows appended to output streams",
			},
			[]string{"term"},
		),
		RowsSkippedTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "yelp_sweep_rows_skipped_total",
				Help: "Total number of raw businesses skipped for missing required fields",
			},
		),
		SubdivisionsTotal: f.NewCounter(
			prometheus.CounterOpts{
				Name: "yelp_sweep_subdivisions_total",
				Help: "Total number of region subdivisions",
			},
		),
		RegionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "yelp_sweep_regions_total",
				Help: "Top-level regions processed by outcome",
			},
			[]string{"outcome"},
		),

		SplitDepth: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "yelp_sweep_split_depth",
				Help:    "Deepest subdivision level reached per top-level region",
				Buckets: []float64{0, 1, 2, 3, 4, 5, 6, 8, 10},
			},
		),
	}

	return m
}

func Handler() http.Handler {
	return promhttp.Handler()
}

func (m *Metrics) RecordSearchRequest(status string, duration time.Duration) {
	m.SearchRequestsTotal.WithLabelValues(status).Inc()
	m.SearchRequestDuration.Observe(duration.Seconds())
}

func (m *Metrics) RecordRowsWritten(term string, n int) {
	m.RowsWrittenTotal.WithLabelValues(term).Add(float64(n))
}

func (m *Metrics) RecordRowsSkipped(n int) {
	m.RowsSkippedTotal.Add(float64(n))
}

func (m *Metrics) RecordSubdivision() {
	m.SubdivisionsTotal.Inc()
}

func (m *Metrics) RecordRegion(outcome string, depth int) {
	m.RegionsTotal.WithLabelValues(outcome).Inc()
	m.SplitDepth.Observe(float64(depth))
}
