package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//nolint:gochecknoglobals // Collectors are registered once with the default registry.
var (
	OccurrenceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhmexplorer_occurrence_requests_total",
		Help: "Total number of occurrence-search requests by outcome",
	}, []string{"outcome"})

	OccurrenceRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nhmexplorer_occurrence_request_duration_seconds",
		Help:    "Duration of occurrence-search requests in seconds",
		Buckets: prometheus.DefBuckets,
	})

	OccurrenceRecordsReturned = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "nhmexplorer_occurrence_records_returned",
		Help:    "Number of records returned per occurrence-search request",
		Buckets: []float64{0, 1, 5, 10, 20, 50, 100, 200, 500},
	})

	QuestionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhmexplorer_questions_total",
		Help: "Total number of table questions by outcome",
	}, []string{"outcome"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "nhmexplorer_http_requests_total",
		Help: "Total number of HTTP API requests",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "nhmexplorer_http_request_duration_seconds",
		Help:    "Duration of HTTP API requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})
)

const (
	OutcomeSuccess     = "success"
	OutcomeRemoteError = "remote_error"
	OutcomeError       = "error"
	OutcomeCached      = "cached"
)
