package store

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
)

// Seed loads the demo cashiers, two desks and a small grocery/non-food range whose
// expiry dates are relative to today.
func Seed(s *Store, today time.Time) error {
	today = domain.Date(today)

	cashiers := []domain.Cashier{
		{ID: "C1", Name: "John Smith", MonthlySalary: decimal.NewFromInt(1200)},
		{ID: "C2", Name: "Mary Johnson", MonthlySalary: decimal.NewFromInt(1150)},
		{ID: "C3", Name: "Peter Brown", MonthlySalary: decimal.NewFromInt(1100)},
	}
	for _, c := range cashiers {
		if err := s.AddCashier(c); err != nil {
			return fmt.Errorf("seed cashier %s: %w", c.ID, err)
		}
	}

	s.AddCashDesk()
	s.AddCashDesk()

	products := []domain.Product{
		{ID: "F1", Name: "Milk", PurchasePrice: decimal.RequireFromString("1.50"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 10), Quantity: 50},
		{ID: "F2", Name: "Bread", PurchasePrice: decimal.RequireFromString("1.00"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 3), Quantity: 40},
		{ID: "F3", Name: "Eggs", PurchasePrice: decimal.RequireFromString("2.50"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 15), Quantity: 30},
		{ID: "F4", Name: "Cheese", PurchasePrice: decimal.RequireFromString("3.50"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 20), Quantity: 25},
		{ID: "F5", Name: "Yogurt", PurchasePrice: decimal.RequireFromString("1.20"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 4), Quantity: 35},
		{ID: "F6", Name: "Tomatoes", PurchasePrice: decimal.RequireFromString("2.00"), Category: domain.CategoryGroceries, Expiry: today.AddDate(0, 0, 2), Quantity: 15},
		{ID: "N1", Name: "Soap", PurchasePrice: decimal.RequireFromString("1.80"), Category: domain.CategoryNonFoods, Expiry: today.AddDate(1, 0, 0), Quantity: 40},
		{ID: "N2", Name: "Toothpaste", PurchasePrice: decimal.RequireFromString("2.20"), Category: domain.CategoryNonFoods, Expiry: today.AddDate(2, 0, 0), Quantity: 30},
		{ID: "N3", Name: "Shampoo", PurchasePrice: decimal.RequireFromString("4.00"), Category: domain.CategoryNonFoods, Expiry: today.AddDate(1, 0, 0), Quantity: 20},
	}
	for _, p := range products {
		if err := s.AddProduct(p); err != nil {
			return fmt.Errorf("seed product %s: %w", p.ID, err)
		}
	}
	return nil
}
