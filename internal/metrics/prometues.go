package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	EventsRecorded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_recorded_total",
			Help: "Total number of bookkeeping events applied to the ledger",
		},
		[]string{"kind"},
	)

	EventsSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_events_skipped_total",
			Help: "Total number of bookkeeping events skipped without changing the ledger",
		},
		[]string{"kind", "reason"},
	)

	QueueSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ledger_event_queue_size",
			Help: "Current size of the ledger event queue",
		},
	)

	QueueDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_event_queue_dropped_total",
			Help: "Total number of events dropped because the queue was full",
		},
	)

	FeedAdsInserted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_ads_inserted_total",
			Help: "Total number of ads inserted into feed pages",
		},
	)

	FeedAdPathFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "feed_ad_path_failures_total",
			Help: "Total number of feed requests served without ads because ad selection failed",
		},
	)

	SnapshotStale = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_stale_total",
			Help: "Total number of daily snapshots served from the last known value",
		},
	)

	ResponseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "status_code"},
	)
)

func init() {
	prometheus.MustRegister(EventsRecorded)
	prometheus.MustRegister(EventsSkipped)
	prometheus.MustRegister(QueueSize)
	prometheus.MustRegister(QueueDropped)
	prometheus.MustRegister(FeedAdsInserted)
	prometheus.MustRegister(FeedAdPathFailures)
	prometheus.MustRegister(SnapshotStale)
	prometheus.MustRegister(ResponseTime)
}
