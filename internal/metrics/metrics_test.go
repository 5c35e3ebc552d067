package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.WebhookError("cashfree", "invalid_signature")
	m.WebhookError("cashfree", "invalid_signature")
	m.Settled("razorpay", "SUCCESS")
	m.OrderCreated("cashfree", true)
	m.SideEffectFailed("email")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.WebhookErrors.WithLabelValues("cashfree", "invalid_signature")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settlements.WithLabelValues("razorpay", "SUCCESS")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.OrdersCreated.WithLabelValues("cashfree", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SideEffectFailures.WithLabelValues("email")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.WebhookError("x", "y")
		m.Settled("x", "y")
		m.OrderCreated("x", false)
		m.SideEffectFailed("x")
		m.WithdrawalTransition("paid")
	})
}
