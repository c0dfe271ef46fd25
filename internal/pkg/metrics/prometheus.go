package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypilot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studypilot",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "studypilot",
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests currently being served",
		},
	)

	// Generation metrics
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypilot",
			Subsystem: "generation",
			Name:      "requests_total",
			Help:      "Total number of generation requests by feature and outcome",
		},
		[]string{"feature", "outcome"},
	)

	relayDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "studypilot",
			Subsystem: "generation",
			Name:      "relay_duration_seconds",
			Help:      "Duration of completion provider calls in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"feature"},
	)

	quotaDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypilot",
			Subsystem: "entitlement",
			Name:      "denials_total",
			Help:      "Total number of entitlement denials by feature",
		},
		[]string{"feature"},
	)

	planPromotionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studypilot",
			Subsystem: "billing",
			Name:      "plan_promotions_total",
			Help:      "Total number of free to premium promotions",
		},
	)

	webhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studypilot",
			Subsystem: "billing",
			Name:      "webhook_events_total",
			Help:      "Total number of billing webhook events by type and result",
		},
		[]string{"type", "result"},
	)
)

// RecordGeneration records a generation request outcome for a feature.
// Outcome is one of: ok, fallback, denied, invalid.
func RecordGeneration(feature, outcome string) {
	generationsTotal.WithLabelValues(feature, outcome).Inc()
}

// ObserveRelay records the duration of a single completion provider call.
func ObserveRelay(feature string, d time.Duration) {
	relayDuration.WithLabelValues(feature).Observe(d.Seconds())
}

// RecordQuotaDenial records an entitlement denial for a feature.
func RecordQuotaDenial(feature string) {
	quotaDenialsTotal.WithLabelValues(feature).Inc()
}

// RecordPlanPromotion records a free to premium promotion.
func RecordPlanPromotion() {
	planPromotionsTotal.Inc()
}

// RecordWebhookEvent records a billing webhook event result.
func RecordWebhookEvent(eventType, result string) {
	webhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

// Handler returns the Prometheus metrics HTTP handler.
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

// Middleware instruments HTTP requests with count, duration and in-flight
// metrics. The chi route pattern is used as the path label to keep
// cardinality bounded.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			path = rctx.RoutePattern()
		}

		status := strconv.Itoa(rec.status)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
	})
}
