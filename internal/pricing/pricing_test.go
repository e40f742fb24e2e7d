package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailstore/backend/internal/domain"
)

var today = time.Date(2024, time.March, 10, 14, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func mustConfig(t *testing.T, groceries, nonFoods string, days int, discount string) Config {
	t.Helper()
	cfg, err := NewConfig(dec(groceries), dec(nonFoods), days, dec(discount))
	require.NoError(t, err)
	return cfg
}

func TestNewConfigRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name      string
		groceries string
		nonFoods  string
		days      int
		discount  string
	}{
		{"negative groceries markup", "-0.01", "0.25", 5, "0.30"},
		{"negative non-foods markup", "0.20", "-1", 5, "0.30"},
		{"negative days", "0.20", "0.25", -1, "0.30"},
		{"negative discount", "0.20", "0.25", 5, "-0.10"},
		{"discount above one", "0.20", "0.25", 5, "1.01"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(dec(tc.groceries), dec(tc.nonFoods), tc.days, dec(tc.discount))
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidConfig))
			assert.Equal(t, domain.KindConfiguration, domain.KindOf(err))
		})
	}
}

func TestNewConfigAcceptsBounds(t *testing.T) {
	_, err := NewConfig(decimal.Zero, decimal.Zero, 0, decimal.Zero)
	require.NoError(t, err)
	_, err = NewConfig(dec("0.2"), dec("0.25"), 0, dec("1"))
	require.NoError(t, err)
}

func TestIsExpiredSameDay(t *testing.T) {
	assert.True(t, IsExpired(time.Date(2024, time.March, 10, 23, 59, 0, 0, time.UTC), today))
	assert.True(t, IsExpired(today.AddDate(0, 0, -1), today))
	assert.False(t, IsExpired(today.AddDate(0, 0, 1), today))
}

func TestSalePriceWithoutDiscountIsExactMarkup(t *testing.T) {
	cfg := DefaultConfig()
	food := domain.Product{ID: "F1", PurchasePrice: dec("1.50"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 10)}
	soap := domain.Product{ID: "N1", PurchasePrice: dec("1.80"), Category: domain.CategoryNonFoods, Expiry: today.AddDate(1, 0, 0)}

	assert.Equal(t, "1.80", cfg.SalePrice(food, today).StringFixed(2))
	assert.Equal(t, "2.25", cfg.SalePrice(soap, today).StringFixed(2))
}

func TestSalePriceDiscountBoundaryIsInclusive(t *testing.T) {
	cfg := mustConfig(t, "0.20", "0.25", 5, "0.30")
	product := domain.Product{ID: "F6", PurchasePrice: dec("2.00"), Category: domain.CategoryGroceries}

	product.Expiry = today.AddDate(0, 0, 5)
	assert.True(t, cfg.SalePrice(product, today).Equal(dec("1.68")))

	product.Expiry = today.AddDate(0, 0, 6)
	assert.True(t, cfg.SalePrice(product, today).Equal(dec("2.40")))

	product.Expiry = today.AddDate(0, 0, 1)
	assert.True(t, cfg.SalePrice(product, today).Equal(dec("1.68")))
}

func TestSalePriceZeroDayWindowNeverDiscounts(t *testing.T) {
	cfg := mustConfig(t, "0.20", "0.25", 0, "0.30")
	product := domain.Product{ID: "F2", PurchasePrice: dec("1.00"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 1)}
	assert.True(t, cfg.SalePrice(product, today).Equal(dec("1.20")))
}

func TestSalePriceIsDeterministic(t *testing.T) {
	cfg := DefaultConfig()
	product := domain.Product{ID: "F3", PurchasePrice: dec("2.50"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 3)}
	first := cfg.SalePrice(product, today)
	second := cfg.SalePrice(product, today.Add(3*time.Hour))
	assert.True(t, first.Equal(second))
	assert.Equal(t, "2.10", first.StringFixed(2))
}
