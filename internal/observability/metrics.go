package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for ingestion and the query path.
type Metrics struct {
	ReportFetches *prometheus.CounterVec // labels: outcome={stored,skipped,failed}
	FetchRetries  *prometheus.CounterVec // labels: reason={timeout,connection_refused,connection_reset}

	StationsHarvested   prometheus.Counter
	CatalogLinesSkipped prometheus.Counter

	CacheLookups  *prometheus.CounterVec   // labels: kind={id,geo}, result={hit,miss}
	QueryDuration *prometheus.HistogramVec // labels: kind={id,geo}
}

// NewMetrics creates and registers all collectors with the given registerer;
// pass prometheus.DefaultRegisterer in production and a fresh registry in
// tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ReportFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metarwatch",
			Name:      "report_fetches_total",
			Help:      "Per-station report fetch attempts by terminal outcome.",
		}, []string{"outcome"}),
		FetchRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metarwatch",
			Name:      "fetch_retries_total",
			Help:      "Fetch retries by transient-failure reason.",
		}, []string{"reason"}),
		StationsHarvested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metarwatch",
			Name:      "stations_harvested_total",
			Help:      "Station records parsed and uploaded from the master catalog.",
		}),
		CatalogLinesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "metarwatch",
			Name:      "catalog_lines_skipped_total",
			Help:      "Catalog lines dropped by the well-formedness check.",
		}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "metarwatch",
			Name:      "cache_lookups_total",
			Help:      "Query cache lookups by query kind and result.",
		}, []string{"kind", "result"}),
		QueryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "metarwatch",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query duration including cache and store.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"kind"}),
	}

	reg.MustRegister(
		m.ReportFetches,
		m.FetchRetries,
		m.StationsHarvested,
		m.CatalogLinesSkipped,
		m.CacheLookups,
		m.QueryDuration,
	)
	return m
}

// NewTestMetrics returns metrics bound to a throwaway registry.
func NewTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
