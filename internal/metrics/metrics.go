package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

var (
	EntitlementDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_entitlement_decisions_total",
			Help: "Product entitlement checks by result (allowed or denial reason)",
		},
		[]string{"result"},
	)

	SubscriptionEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_subscription_events_total",
			Help: "Subscription lifecycle events by kind",
		},
		[]string{"event"}, // created, replaced, upgraded, cancelled, activated, expired
	)

	ChargedAmountTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "marketplace_charged_amount_total",
			Help: "Sum of amounts recorded on payment records by payment kind",
		},
		[]string{"kind"},
	)
)

func RecordDecision(allowed bool, reason string) {
	if allowed {
		EntitlementDecisionsTotal.WithLabelValues("allowed").Inc()
		return
	}
	EntitlementDecisionsTotal.WithLabelValues(reason).Inc()
}

func RecordCharge(kind string, amount decimal.Decimal) {
	f, _ := amount.Float64()
	if f < 0 {
		return
	}
	ChargedAmountTotal.WithLabelValues(kind).Add(f)
}
