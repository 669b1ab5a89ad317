// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Ingestion
	IngestCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyfeed_ingest_cycles_total",
		Help: "The total number of ingestion cycles by outcome",
	}, []string{"outcome"})

	ItemsImported = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storyfeed_items_imported_total",
		Help: "The total number of items inserted by ingestion",
	})

	ItemsRejected = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "storyfeed_items_rejected_total",
		Help: "The total number of fetched items dropped by the admission rule",
	})

	IngestLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyfeed_ingest_cycle_seconds",
		Help:    "The duration of ingestion cycles",
		Buckets: prometheus.DefBuckets,
	})

	SourceFetchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "storyfeed_source_fetch_seconds",
		Help:    "The latency of source fetches",
		Buckets: prometheus.DefBuckets,
	})

	Watermark = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "storyfeed_ingest_watermark_seconds",
		Help: "The created_at_i watermark observed at the start of the last cycle",
	})

	// Publishing
	EventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyfeed_events_published_total",
		Help: "The total number of event publish attempts by outcome",
	}, []string{"outcome"})

	// HTTP
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "storyfeed_http_requests_total",
		Help: "The total number of HTTP requests",
	}, []string{"method", "code"})

	HTTPLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "storyfeed_http_request_seconds",
		Help:    "The latency of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})
)

func init() {
	prometheus.MustRegister(IngestCycles)
	prometheus.MustRegister(ItemsImported)
	prometheus.MustRegister(ItemsRejected)
	prometheus.MustRegister(IngestLatency)
	prometheus.MustRegister(SourceFetchLatency)
	prometheus.MustRegister(Watermark)
	prometheus.MustRegister(EventsPublished)
	prometheus.MustRegister(HTTPRequests)
	prometheus.MustRegister(HTTPLatency)
}

// Cycle outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeSkipped = "skipped"
)

// ObservePublish records one publish attempt. It matches
// events.OnPublishFunc.
func ObservePublish(_ string, err error, _ time.Duration) {
	if err != nil {
		EventsPublished.WithLabelValues(OutcomeFailure).Inc()
		return
	}
	EventsPublished.WithLabelValues(OutcomeSuccess).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests and observes their latency.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		HTTPLatency.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
