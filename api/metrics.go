package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "forensic_http_requests_total",
		Help: "HTTP requests by method, route template and status code.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "forensic_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route template.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	deadlineFlagsUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forensic_deadline_flags_updated_total",
		Help: "Movements whose overdue or near-deadline flag changed during a refresh.",
	})

	deadlinesExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "forensic_deadlines_expired_total",
		Help: "Occurrences that turned overdue and got a system generated movement.",
	})

	liveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "forensic_live_subscribers",
		Help: "Open websocket connections on the live change feed.",
	})
)

// MetricsHandler exposes the registered collectors
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// RecordDeadlineRefresh counts the outcome of one flag refresh
func RecordDeadlineRefresh(updated, expired int) {
	deadlineFlagsUpdated.Add(float64(updated))
	deadlinesExpired.Add(float64(expired))
}

// LiveSubscriberJoined and LiveSubscriberLeft track the websocket feed
func LiveSubscriberJoined() { liveSubscribers.Inc() }

// LiveSubscriberLeft decrements the open subscriber gauge
func LiveSubscriberLeft() { liveSubscribers.Dec() }
