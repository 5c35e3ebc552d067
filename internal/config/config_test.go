package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, int64(99), cfg.Shop.DeliveryCharge)
	assert.Equal(t, "INR", cfg.Shop.Currency)
	assert.Equal(t, int64(5), cfg.Shop.DefaultEarningPerUnit)
	assert.Equal(t, int64(100), cfg.Shop.MinWithdrawal)
	assert.Equal(t, "cashfree", cfg.Shop.DefaultGateway)
	assert.Equal(t, "badgeshop.orders", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoad_RequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_NestedPrefixes(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SHOP_DELIVERY_CHARGE", "49")
	t.Setenv("SHOP_DEFAULT_GATEWAY", "Razorpay")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_1")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("POSTGRES_HOST", "db")
	t.Setenv("POSTGRES_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, int64(49), cfg.Shop.DeliveryCharge)
	assert.Equal(t, "razorpay", cfg.Shop.DefaultGateway)
	assert.Equal(t, "rzp_test_1", cfg.Razorpay.KeyID)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Contains(t, cfg.PostgresDSN(), "host=db port=5433")
}

func TestLoad_InvalidGateway(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("SHOP_DEFAULT_GATEWAY", "paypal")

	_, err := Load()
	assert.Error(t, err)
}

func TestPostgresDSN_PrefersDatabaseURL(t *testing.T) {
	cfg := Config{DatabaseURL: "postgres://u:p@h:5432/d"}
	assert.Equal(t, "postgres://u:p@h:5432/d", cfg.PostgresDSN())
}
