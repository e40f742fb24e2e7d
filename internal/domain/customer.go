package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Customer holds a spendable balance. The balance only changes through Pay.
type Customer struct {
	ID      string
	Name    string
	balance decimal.Decimal
}

func NewCustomer(id string, name string, balance decimal.Decimal) (*Customer, error) {
	if balance.IsNegative() {
		return nil, fmt.Errorf("%w: balance of %s cannot be negative", ErrInvalidCustomer, id)
	}
	return &Customer{ID: id, Name: name, balance: balance}, nil
}

func (c *Customer) Balance() decimal.Decimal {
	return c.balance
}

// CanPay reports whether the balance covers amount.
func (c *Customer) CanPay(amount decimal.Decimal) bool {
	return c.balance.GreaterThanOrEqual(amount)
}

// Pay deducts amount, or leaves the balance untouched and returns an *InsufficientBudgetError.
func (c *Customer) Pay(amount decimal.Decimal) error {
	if !c.CanPay(amount) {
		return &InsufficientBudgetError{CustomerID: c.ID, Required: amount, Balance: c.balance}
	}
	c.balance = c.balance.Sub(amount)
	return nil
}
