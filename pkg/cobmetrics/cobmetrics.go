// Package cobmetrics defines and registers the Prometheus metrics exposed
// for the collaborative-object layer: append throughput and conflicts,
// fold latency, live object counts, and node-handle call latency.
package cobmetrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	EntriesAppendedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cob_entries_appended_total",
			Help: "Total number of entries successfully appended, by object type",
		},
		[]string{"type"},
	)

	AppendConflictsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cob_append_conflicts_total",
			Help: "Total number of append attempts that lost the heads compare-and-swap, by object type",
		},
		[]string{"type"},
	)

	FoldDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cob_fold_duration_seconds",
			Help:    "Time taken to fold one object's entry log into state, by object type",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"type"},
	)

	FoldRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cob_fold_retries_total",
			Help: "Total number of fold passes that had to retry operations due to a missing causal dependency",
		},
		[]string{"type"},
	)

	ObjectsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cob_objects_total",
			Help: "Number of known objects, by object type",
		},
		[]string{"type"},
	)

	NodeCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cob_node_calls_total",
			Help: "Total number of node-handle calls, by command and outcome",
		},
		[]string{"cmd", "outcome"},
	)

	NodeCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cob_node_call_duration_seconds",
			Help:    "Node-handle call duration in seconds, by command",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cmd"},
	)

	SignatureFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cob_signature_failures_total",
			Help: "Total number of entries dropped for failing signature verification, by object type",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		EntriesAppendedTotal,
		AppendConflictsTotal,
		FoldDuration,
		FoldRetriesTotal,
		ObjectsTotal,
		NodeCallsTotal,
		NodeCallDuration,
		SignatureFailuresTotal,
	)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer measures elapsed time for a single histogram observation.
type Timer struct {
	start time.Time
}

// NewTimer starts a timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the elapsed time to histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Observer) {
	histogram.Observe(time.Since(t.start).Seconds())
}
