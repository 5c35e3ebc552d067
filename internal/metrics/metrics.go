package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 決済まわりのカウンタ。nilのままでも呼べる
type Metrics struct {
	OrdersCreated      *prometheus.CounterVec
	Settlements        *prometheus.CounterVec
	WebhookErrors      *prometheus.CounterVec
	SideEffectFailures *prometheus.CounterVec
	Withdrawals        *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgeshop",
			Name:      "orders_created_total",
			Help:      "Orders persisted in PENDING status.",
		}, []string{"gateway", "promo"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgeshop",
			Name:      "settlements_total",
			Help:      "Order settlements that changed order state.",
		}, []string{"gateway", "status"}),
		WebhookErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgeshop",
			Name:      "webhook_errors_total",
			Help:      "Webhook deliveries acknowledged without being applied.",
		}, []string{"gateway", "reason"}),
		SideEffectFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgeshop",
			Name:      "side_effect_failures_total",
			Help:      "Best-effort side effects that failed (email, pdf, events, commission).",
		}, []string{"kind"}),
		Withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badgeshop",
			Name:      "withdrawal_transitions_total",
			Help:      "Withdrawal request status transitions.",
		}, []string{"status"}),
	}

	if reg != nil {
		reg.MustRegister(m.OrdersCreated, m.Settlements, m.WebhookErrors, m.SideEffectFailures, m.Withdrawals)
	}
	return m
}

func (m *Metrics) OrderCreated(gateway string, withPromo bool) {
	if m == nil {
		return
	}
	promo := "none"
	if withPromo {
		promo = "applied"
	}
	m.OrdersCreated.WithLabelValues(gateway, promo).Inc()
}

func (m *Metrics) Settled(gateway string, status string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(gateway, status).Inc()
}

func (m *Metrics) WebhookError(gateway string, reason string) {
	if m == nil {
		return
	}
	m.WebhookErrors.WithLabelValues(gateway, reason).Inc()
}

func (m *Metrics) SideEffectFailed(kind string) {
	if m == nil {
		return
	}
	m.SideEffectFailures.WithLabelValues(kind).Inc()
}

func (m *Metrics) WithdrawalTransition(status string) {
	if m == nil {
		return
	}
	m.Withdrawals.WithLabelValues(status).Inc()
}
