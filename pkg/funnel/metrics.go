package funnel

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DagnetCompilationsTotal tracks finished edge compilations
	DagnetCompilationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dagnet_compilations_total",
			Help: "Total number of edge compilations by provider and status",
		},
		[]string{"provider", "status"},
	)

	// DagnetSynthesisChecks tracks reachability checks spent per compilation
	DagnetSynthesisChecks = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dagnet_synthesis_checks",
			Help:    "Reachability checks spent per compilation",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		},
	)

	// DagnetCompiledTerms tracks signed terms emitted per compilation
	DagnetCompiledTerms = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dagnet_compiled_terms",
			Help:    "Signed inclusion-exclusion terms emitted per compilation",
			Buckets: prometheus.LinearBuckets(0, 4, 16),
		},
	)

	// DagnetStoredGraphs tracks the number of graphs in the catalog
	DagnetStoredGraphs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "dagnet_stored_graphs",
			Help: "Number of named graphs in the catalog",
		},
	)
)

func init() {
	// Register metrics with the default registry
	prometheus.MustRegister(DagnetCompilationsTotal)
	prometheus.MustRegister(DagnetSynthesisChecks)
	prometheus.MustRegister(DagnetCompiledTerms)
	prometheus.MustRegister(DagnetStoredGraphs)
}
