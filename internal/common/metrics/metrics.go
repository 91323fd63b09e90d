// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	VerificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_verifications_total",
			Help: "Total number of callable payment verifications by outcome",
		},
		[]string{"outcome"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_webhook_events_total",
			Help: "Total number of gateway webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	GatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "payments_gateway_request_duration_seconds",
			Help:    "Duration of transaction verification calls to the payment gateway",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	SubscriptionWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_subscription_writes_total",
			Help: "Total number of subscription merge writes by source and result",
		},
		[]string{"source", "result"},
	)
)
