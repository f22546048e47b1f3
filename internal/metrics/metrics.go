package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xafpay_gateway_requests_total",
		Help: "Outbound gateway requests by operation and result.",
	}, []string{"operation", "result"})

	CheckoutOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xafpay_checkout_outcomes_total",
		Help: "Terminal checkout outcomes.",
	}, []string{"outcome"})

	PollAttempts = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xafpay_poll_attempts",
		Help:    "Status-poll ticks used before an attempt reached a terminal state.",
		Buckets: prometheus.LinearBuckets(1, 2, 10),
	})
)
