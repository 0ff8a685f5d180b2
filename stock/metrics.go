package stock

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// ComputationsStarted counts generator invocations per ticker.
	ComputationsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocks_price_computations_total",
			Help: "Number of price computations started",
		},
		[]string{"ticker"},
	)

	ComputationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocks_price_computation_failures_total",
			Help: "Number of price computations that ended with an error",
		},
		[]string{"ticker"},
	)

	// CoalescedWaits counts callers that attached to a computation someone else started.
	CoalescedWaits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "stocks_coalesced_waits_total",
			Help: "Number of callers that joined an in-flight computation",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stocks_cache_hits_total",
			Help: "Number of reads answered from the per-second cache",
		},
		[]string{"op"},
	)

	ComputationLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stocks_price_computation_seconds",
			Help:    "Time spent in the price generator",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(ComputationsStarted, ComputationsFailed, CoalescedWaits)
	prometheus.MustRegister(CacheHits, ComputationLatency)
}
