// Package metrics holds the Prometheus collectors of the credit service.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "credit_service",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credit_service",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "credit_service",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	ledgerOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credit",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Ledger operations by kind and result.",
		},
		[]string{"operation", "result"},
	)

	ledgerCredits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credit",
			Subsystem: "ledger",
			Name:      "moved_total",
			Help:      "Absolute credits moved by transaction type.",
		},
		[]string{"transaction_type"},
	)

	unchargedActions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "credit_uncharged_actions_total",
			Help: "Metered actions that succeeded but could not be charged.",
		},
	)

	alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "credit",
			Subsystem: "audit",
			Name:      "alerts_total",
			Help:      "Stored credit alerts by risk level.",
		},
		[]string{"risk_level"},
	)

	auditOverflow = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "credit",
			Subsystem: "audit",
			Name:      "events_inline_total",
			Help:      "Audit events handled on the caller goroutine because the queue was full.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerOperations,
		ledgerCredits,
		unchargedActions,
		alerts,
		auditOverflow,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordLedgerOperation counts one ledger call. result is "ok" or an error class.
func RecordLedgerOperation(operation, result string) {
	ledgerOperations.WithLabelValues(operation, result).Inc()
}

// RecordCreditsMoved adds |amount| to the per-type volume counter.
func RecordCreditsMoved(transactionType string, amount int64) {
	if amount < 0 {
		amount = -amount
	}
	ledgerCredits.WithLabelValues(transactionType).Add(float64(amount))
}

func RecordUnchargedAction() {
	unchargedActions.Inc()
}

func RecordAlert(riskLevel string) {
	alerts.WithLabelValues(riskLevel).Inc()
}

func RecordAuditOverflow() {
	auditOverflow.Inc()
}

// InstrumentHandler wraps the router with HTTP metrics collection. Routes are
// labelled by their chi pattern to keep cardinality bounded.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
