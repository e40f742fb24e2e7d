package store

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
)

// AddProduct registers a new product and adds purchasePrice*quantity to the supplied cost.
// An existing id is never overwritten.
func (s *Store) AddProduct(product domain.Product) error {
	product.ID = strings.TrimSpace(product.ID)
	product.Name = strings.TrimSpace(product.Name)
	if err := validateProduct(product); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.products[product.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateProduct, product.ID)
	}
	stored := product
	s.products[product.ID] = &stored
	s.suppliedCost = s.suppliedCost.Add(product.PurchasePrice.Mul(decimal.NewFromInt(int64(product.Quantity))))
	s.revision++
	return nil
}

func (s *Store) Restock(productID string, additionalQty int) (domain.Product, error) {
	if additionalQty <= 0 {
		return domain.Product{}, fmt.Errorf("%w: restock quantity %d", domain.ErrInvalidQuantity, additionalQty)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	product, ok := s.products[productID]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	product.Quantity += additionalQty
	s.suppliedCost = s.suppliedCost.Add(product.PurchasePrice.Mul(decimal.NewFromInt(int64(additionalQty))))
	s.revision++
	return *product, nil
}

// FindProduct never fails for an unknown id; it reports ok=false instead.
func (s *Store) FindProduct(id string) (domain.Product, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[id]
	if !ok {
		return domain.Product{}, false
	}
	return *product, true
}

// ListProducts returns copies sorted by id.
func (s *Store) ListProducts() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b domain.Product) int {
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func validateProduct(p domain.Product) error {
	switch {
	case p.ID == "":
		return fmt.Errorf("%w: id is required", domain.ErrInvalidProduct)
	case p.Name == "":
		return fmt.Errorf("%w: name is required for %s", domain.ErrInvalidProduct, p.ID)
	case p.PurchasePrice.IsNegative():
		return fmt.Errorf("%w: purchase price of %s cannot be negative", domain.ErrInvalidProduct, p.ID)
	case p.Quantity < 0:
		return fmt.Errorf("%w: quantity of %s cannot be negative", domain.ErrInvalidProduct, p.ID)
	case !p.Category.Valid():
		return fmt.Errorf("%w: unknown category %q", domain.ErrInvalidProduct, p.Category)
	case p.Expiry.IsZero():
		return fmt.Errorf("%w: expiry date is required for %s", domain.ErrInvalidProduct, p.ID)
	}
	return nil
}
