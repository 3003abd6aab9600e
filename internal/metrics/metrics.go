package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	videosTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vidnest_videos_total",
		Help: "Total number of saved videos in database",
	})

	importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidnest_imports_total",
		Help: "Total number of video imports",
	}, []string{"platform", "status"})

	extractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidnest_metadata_extractions_total",
		Help: "Total number of metadata extractions",
	}, []string{"platform", "outcome"})

	extractionDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "vidnest_metadata_extraction_duration_seconds",
		Help:    "Duration of metadata extractions in seconds",
		Buckets: prometheus.DefBuckets,
	})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidnest_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	httpDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidnest_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	rateLimitedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidnest_rate_limited_total",
		Help: "Total number of requests rejected by a rate limiter",
	}, []string{"limiter"})

	botMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidnest_bot_messages_total",
		Help: "Total number of share bot messages handled",
	}, []string{"result"})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidnest_errors_total",
		Help: "Total number of errors",
	}, []string{"type"})
)

func init() {
	prometheus.MustRegister(videosTotal)
	prometheus.MustRegister(importsTotal)
	prometheus.MustRegister(extractionsTotal)
	prometheus.MustRegister(extractionDurationSeconds)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(rateLimitedTotal)
	prometheus.MustRegister(botMessagesTotal)
	prometheus.MustRegister(errorsTotal)
}

// UpdateVideoCount updates the videos_total metric
func UpdateVideoCount(count int64) {
	videosTotal.Set(float64(count))
}

// RecordImport records a video import attempt
func RecordImport(platform, status string) {
	importsTotal.WithLabelValues(platform, status).Inc()
}

// RecordExtraction records one metadata pipeline run
func RecordExtraction(platform string, degraded bool, duration time.Duration) {
	outcome := "fetched"
	if degraded {
		outcome = "degraded"
	}
	extractionsTotal.WithLabelValues(platform, outcome).Inc()
	extractionDurationSeconds.Observe(duration.Seconds())
}

// RecordRequest records a served HTTP request
func RecordRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDurationSeconds.WithLabelValues(route).Observe(duration.Seconds())
}

// RecordRateLimited records a request rejected by the named limiter
func RecordRateLimited(limiter string) {
	rateLimitedTotal.WithLabelValues(limiter).Inc()
}

// RecordBotMessage records a handled share bot message
func RecordBotMessage(result string) {
	botMessagesTotal.WithLabelValues(result).Inc()
}

// RecordError records an error metric
func RecordError(errorType string) {
	errorsTotal.WithLabelValues(errorType).Inc()
}
