// Package metrics contains middlewares and counters for metrics gathering.
package metrics

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// HTTP Requests total counter
var totalRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP Requests.",
	},
	[]string{"path", "method"},
)

// HTTP Response duration
var duration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name: "http_duration_seconds",
		Help: "HTTP Requests Duration",
	},
	[]string{"path", "method"},
)

// Rejected scheduling requests, by reason
var schedulingRejections = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clinic_scheduling_rejections_total",
		Help: "Appointment and shift requests rejected by the scheduling rules.",
	},
	[]string{"reason"},
)

// Appointment lifecycle transitions, by action
var appointmentTransitions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "clinic_appointment_transitions_total",
		Help: "Appointment lifecycle transitions performed.",
	},
	[]string{"action"},
)

func init() {
	prometheus.MustRegister(totalRequests, duration, schedulingRejections, appointmentTransitions)
}

// routePattern returns the chi route pattern of the request, so the path label doesn't grow with
// every identifier in the URL.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// PrometheusMiddleware instruments the given request and register metrics.
func PrometheusMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
			duration.WithLabelValues(routePattern(r), r.Method).Observe(v)
		}))
		next.ServeHTTP(w, r)
		totalRequests.WithLabelValues(routePattern(r), r.Method).Inc()
		timer.ObserveDuration()
	})
}

// Handler exposes the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// SchedulingRejected counts a request rejected by a scheduling rule.
func SchedulingRejected(reason string) {
	schedulingRejections.WithLabelValues(reason).Inc()
}

// AppointmentTransitioned counts a performed lifecycle action.
func AppointmentTransitioned(action string) {
	appointmentTransitions.WithLabelValues(action).Inc()
}
