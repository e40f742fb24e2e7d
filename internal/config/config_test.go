package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailstore/backend/internal/domain"
)

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")
	t.Setenv("MANAGER_PASSWORD", "")
	t.Setenv("CASHIER_PASSWORD", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.AuthSecret)
	assert.Empty(t, cfg.ManagerPassword)
	assert.Empty(t, cfg.CashierPassword)
}

func TestLoadDefaultsPricing(t *testing.T) {
	for _, key := range []string{"GROCERIES_MARKUP", "NON_FOODS_MARKUP", "NEAR_EXPIRY_DAYS", "NEAR_EXPIRY_DISCOUNT", "RECEIPT_DIR", "PORT"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "receipts", cfg.ReceiptDir)
	assert.Equal(t, ":8080", cfg.Address())

	p, err := cfg.Pricing()
	require.NoError(t, err)
	assert.Equal(t, "0.2", p.GroceriesMarkup().String())
	assert.Equal(t, "0.25", p.NonFoodsMarkup().String())
	assert.Equal(t, 5, p.NearExpiryDays())
	assert.Equal(t, "0.3", p.DiscountFraction().String())
}

func TestLoadRejectsMalformedPricing(t *testing.T) {
	t.Setenv("GROCERIES_MARKUP", "twenty percent")

	_, err := Load()
	require.Error(t, err)
	assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
}

func TestPricingRejectsOutOfRangeDiscount(t *testing.T) {
	t.Setenv("GROCERIES_MARKUP", "")
	t.Setenv("NEAR_EXPIRY_DISCOUNT", "1.5")

	cfg, err := Load()
	require.NoError(t, err)
	_, err = cfg.Pricing()
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
