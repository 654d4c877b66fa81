package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WebhooksTotal counts inbound webhooks by reconciliation outcome
// (applied, idempotent, stale, unauthorized, ignored, bad_request).
var WebhooksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "arcpay_webhooks_total",
	Help: "Inbound webhook deliveries by reconciliation outcome.",
}, []string{"outcome"})

var OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "arcpay_orders_created_total",
	Help: "Orders successfully created against the gateway.",
})

var ActiveSubscriptions = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "arcpay_active_subscriptions",
	Help: "Live order-stream subscriptions (SSE and WebSocket).",
})
