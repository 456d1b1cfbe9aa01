package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HistogramBuckets is the request latency ladder in milliseconds.
var HistogramBuckets = []float64{
	// fast responses
	25, 50, 75, 100, 150, 200, 300, 400, 500,
	// medium
	750, 1000, 1250, 1500, 1750, 2000,
	// slow
	2500, 3000, 4000, 5000, 7500, 10000, 15000,
	// webhook retries and provider timeouts can stretch this far
	20000, 30000, 60000,
}

// Billing counters. Registered on the default registry and exported by the
// same listener as the HTTP metrics.
var (
	PaymentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "payments_processed_total",
		Help:      "Payments applied to a subscription, by source and action type.",
	}, []string{"source", "action"})

	DuplicatePaymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "duplicate_payments_total",
		Help:      "Payment deliveries short-circuited by the idempotency ledger.",
	})

	SubscriptionsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "subscriptions_expired_total",
		Help:      "Subscriptions marked expired by the sweeper.",
	})

	WebhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Subsystem: "billing",
		Name:      "webhook_events_total",
		Help:      "Razorpay webhook deliveries, by event and outcome.",
	}, []string{"event", "outcome"})
)
