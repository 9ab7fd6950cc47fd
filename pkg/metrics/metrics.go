package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	FrontierSize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "crawl_frontier_size",
			Help: "Current number of fetch tasks waiting to be issued.",
		},
	)

	TasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_tasks_total",
			Help: "Total number of fetch tasks processed.",
		},
		[]string{"purpose", "status", "error_type"}, // status: success, failure
	)

	TasksDeduplicated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "crawl_tasks_deduplicated_total",
			Help: "Candidate tasks dropped because their identity was already issued.",
		},
	)

	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crawl_fetch_duration_seconds",
			Help:    "Duration of fetch operations.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"purpose"},
	)

	RecordsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "crawl_records_total",
			Help: "Records appended to the sink, by page type.",
		},
		[]string{"page_type"},
	)
)

var registerOnce sync.Once

// Init registers all collectors with the default registry. Safe to call
// more than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			HTTPRequestsTotal,
			HTTPRequestDuration,
			FrontierSize,
			TasksTotal,
			TasksDeduplicated,
			FetchDuration,
			RecordsTotal,
		)
	})
}
