package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
)

// Config is immutable once built by NewConfig.
type Config struct {
	groceriesMarkup  decimal.Decimal
	nonFoodsMarkup   decimal.Decimal
	nearExpiryDays   int
	discountFraction decimal.Decimal
}

func NewConfig(groceriesMarkup, nonFoodsMarkup decimal.Decimal, nearExpiryDays int, discountFraction decimal.Decimal) (Config, error) {
	if groceriesMarkup.IsNegative() {
		return Config{}, fmt.Errorf("%w: groceries markup must be >= 0, got %s", domain.ErrInvalidConfig, groceriesMarkup)
	}
	if nonFoodsMarkup.IsNegative() {
		return Config{}, fmt.Errorf("%w: non-foods markup must be >= 0, got %s", domain.ErrInvalidConfig, nonFoodsMarkup)
	}
	if nearExpiryDays < 0 {
		return Config{}, fmt.Errorf("%w: near-expiry days must be >= 0, got %d", domain.ErrInvalidConfig, nearExpiryDays)
	}
	if discountFraction.IsNegative() || discountFraction.GreaterThan(decimal.NewFromInt(1)) {
		return Config{}, fmt.Errorf("%w: discount fraction must be within [0,1], got %s", domain.ErrInvalidConfig, discountFraction)
	}
	return Config{
		groceriesMarkup:  groceriesMarkup,
		nonFoodsMarkup:   nonFoodsMarkup,
		nearExpiryDays:   nearExpiryDays,
		discountFraction: discountFraction,
	}, nil
}

// DefaultConfig returns 20% groceries markup, 25% non-foods markup and 30% off within 5 days of expiry.
func DefaultConfig() Config {
	return Config{
		groceriesMarkup:  decimal.RequireFromString("0.20"),
		nonFoodsMarkup:   decimal.RequireFromString("0.25"),
		nearExpiryDays:   5,
		discountFraction: decimal.RequireFromString("0.30"),
	}
}

func (c Config) GroceriesMarkup() decimal.Decimal { return c.groceriesMarkup }

func (c Config) NonFoodsMarkup() decimal.Decimal { return c.nonFoodsMarkup }

func (c Config) NearExpiryDays() int { return c.nearExpiryDays }

func (c Config) DiscountFraction() decimal.Decimal { return c.discountFraction }

func (c Config) Markup(category domain.Category) decimal.Decimal {
	if category == domain.CategoryGroceries {
		return c.groceriesMarkup
	}
	return c.nonFoodsMarkup
}

// IsExpired reports whether expiry is not strictly after the calendar day of now.
func IsExpired(expiry time.Time, now time.Time) bool {
	return !domain.Date(expiry).After(domain.Date(now))
}

// NearExpiry reports whether an unexpired product is inside the discount window.
// The window includes the boundary day expiry-N.
func (c Config) NearExpiry(expiry time.Time, now time.Time) bool {
	if IsExpired(expiry, now) {
		return false
	}
	windowStart := domain.Date(expiry).AddDate(0, 0, -c.nearExpiryDays)
	return !windowStart.After(domain.Date(now))
}

// SalePrice returns the exact unit sale price of p at now. No rounding is applied.
func (c Config) SalePrice(p domain.Product, now time.Time) decimal.Decimal {
	price := p.PurchasePrice.Mul(decimal.NewFromInt(1).Add(c.Markup(p.Category)))
	if c.NearExpiry(p.Expiry, now) {
		price = price.Mul(decimal.NewFromInt(1).Sub(c.discountFraction))
	}
	return price
}
