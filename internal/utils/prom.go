package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPDuration observes request latency per method/path/status.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "attribution",
		Name:      "http_request_duration_seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	// ReportsGenerated counts successfully assembled reports by type.
	ReportsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attribution",
		Name:      "reports_generated_total",
	}, []string{"report_type"})

	// ConsistencyChecks counts checker invocations by outcome.
	ConsistencyChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attribution",
		Name:      "consistency_checks_total",
	}, []string{"result"})

	// IngestEvents counts persisted events by stream (media, sales).
	IngestEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attribution",
		Name:      "ingest_events_total",
	}, []string{"stream"})
)
