package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memberbill_http_requests_total",
		Help: "HTTP requests by method, path and status",
	}, []string{"method", "path", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "memberbill_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	chargesIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memberbill_charges_total",
		Help: "Charge attempts by outcome (issued, skipped, failed)",
	}, []string{"outcome"})

	billingRunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "memberbill_billing_run_duration_seconds",
		Help:    "Duration of a full billing run",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 3600},
	})

	subscriptionSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memberbill_subscription_syncs_total",
		Help: "Subscription pause/resume decisions by action (pause, resume, noop, error)",
	}, []string{"action"})

	webhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memberbill_webhook_events_total",
		Help: "Webhook events by kind and outcome (applied, skipped, duplicate, unmatched, rejected)",
	}, []string{"kind", "outcome"})

	ledgerConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "memberbill_ledger_conflicts_total",
		Help: "Duplicate-charge inserts rejected by the ledger uniqueness constraint",
	})

	dbQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "memberbill_db_queries_total",
		Help: "Database operations by type and status",
	}, []string{"operation", "status"})

	dbConnsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "memberbill_db_connections_active",
		Help: "Currently acquired database connections",
	})
)

// Handler returns the metrics endpoint handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records HTTP request metrics
func RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, http.StatusText(statusCode)).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCharge records the outcome of one charge attempt
func RecordCharge(outcome string) {
	chargesIssued.WithLabelValues(outcome).Inc()
}

// RecordBillingRun records the duration of a completed billing run
func RecordBillingRun(duration time.Duration) {
	billingRunDuration.Observe(duration.Seconds())
}

// RecordSubscriptionSync records one pause/resume decision
func RecordSubscriptionSync(action string) {
	subscriptionSyncs.WithLabelValues(action).Inc()
}

// RecordWebhookEvent records one routed webhook event
func RecordWebhookEvent(kind, outcome string) {
	webhookEvents.WithLabelValues(kind, outcome).Inc()
}

// RecordLedgerConflict counts a rejected duplicate charge insert
func RecordLedgerConflict() {
	ledgerConflicts.Inc()
}

// RecordDBQuery records database query metrics
func RecordDBQuery(operation, status string) {
	dbQueries.WithLabelValues(operation, status).Inc()
}

// SetDBConnectionsActive sets the number of active database connections
func SetDBConnectionsActive(count float64) {
	dbConnsActive.Set(count)
}
