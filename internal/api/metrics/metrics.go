// Package metrics defines the custom Prometheus metrics of the account and
// billing API. Metrics are registered with the default registry at init via
// promauto; HTTP request metrics come from echoprometheus in the router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "billing"

// ── Webhook metrics ───────────────────────────────────────────────────────────

// WebhookDeliveriesTotal counts webhook deliveries by outcome.
// Label:
//   - result: "accepted", "rejected" (bad signature) or "error"
var WebhookDeliveriesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "webhook_deliveries_total",
		Help:      "Total number of payment webhook deliveries, by result.",
	},
	[]string{"result"},
)

// WebhookReceiveDuration measures verification plus recording of a delivery.
var WebhookReceiveDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "webhook_receive_duration_seconds",
		Help:      "Duration of webhook verification and recording.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Billing metrics ───────────────────────────────────────────────────────────

// PaymentIntentsCreatedTotal counts payment intents opened with the gateway.
// Label:
//   - currency: ISO code, lower case
var PaymentIntentsCreatedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "payment_intents_created_total",
		Help:      "Total number of payment intents created, by currency.",
	},
	[]string{"currency"},
)

// SubscriptionOpsTotal counts subscription lifecycle calls.
// Labels:
//   - op: "create", "change_plan" or "cancel"
//   - result: "ok" or "error"
var SubscriptionOpsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "subscription_operations_total",
		Help:      "Total number of subscription lifecycle operations, by op and result.",
	},
	[]string{"op", "result"},
)

// ── Auth metrics ──────────────────────────────────────────────────────────────

// LoginsTotal counts login attempts.
// Label:
//   - result: "ok" or "failed"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by result.",
	},
	[]string{"result"},
)

// Result maps an error to the "ok"/"error" label value.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RegisterQueueDepth exposes the number of webhook jobs waiting in the
// dispatcher. Call it at most once per process.
func RegisterQueueDepth(pending func() int) {
	promauto.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "webhook_queue_depth",
			Help:      "Current number of webhook jobs pending in the dispatcher.",
		},
		func() float64 { return float64(pending()) },
	)
}
