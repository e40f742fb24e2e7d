package store

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/pricing"
)

// Sell opens a receipt for the cashier and sells a single line on it. Nothing is
// mutated unless every check passes, including receipt number allocation.
func (s *Store) Sell(ctx context.Context, cashierID string, productID string, qty int, customer *domain.Customer) (domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.checkSale(cashierID, productID, qty, customer, s.now())
	if err != nil {
		return domain.Receipt{}, err
	}

	receipt, err := s.allocateReceipt(ctx, cashierID)
	if err != nil {
		return domain.Receipt{}, err
	}
	s.commitSale(receipt, item, customer)
	receipt.Closed = true
	s.logger.Debug().Int64("receipt", receipt.Number).Str("product_id", productID).Int("qty", qty).Msg("sale committed")
	return receipt.Clone(), nil
}

// CreateReceipt allocates an open receipt for a cashier who holds a desk.
func (s *Store) CreateReceipt(ctx context.Context, cashierID string) (domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.deskOf(cashierID) == nil {
		return domain.Receipt{}, fmt.Errorf("%w: %s", domain.ErrDeskNotAssigned, cashierID)
	}
	receipt, err := s.allocateReceipt(ctx, cashierID)
	if err != nil {
		return domain.Receipt{}, err
	}
	s.revision++
	return receipt.Clone(), nil
}

// AddToReceipt sells one more line on an open receipt, on behalf of the receipt's cashier.
func (s *Store) AddToReceipt(number int64, productID string, qty int, customer *domain.Customer) (domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, ok := s.receiptsByNum[number]
	if !ok {
		return domain.Receipt{}, fmt.Errorf("%w: #%d", domain.ErrReceiptNotFound, number)
	}
	if receipt.Closed {
		return domain.Receipt{}, fmt.Errorf("%w: #%d", domain.ErrReceiptClosed, number)
	}

	item, err := s.checkSale(receipt.Cashier.ID, productID, qty, customer, s.now())
	if err != nil {
		return domain.Receipt{}, err
	}
	s.commitSale(receipt, item, customer)
	return receipt.Clone(), nil
}

// CloseReceipt finalizes a receipt. Closing a closed receipt returns it unchanged.
func (s *Store) CloseReceipt(number int64) (domain.Receipt, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	receipt, ok := s.receiptsByNum[number]
	if !ok {
		return domain.Receipt{}, fmt.Errorf("%w: #%d", domain.ErrReceiptNotFound, number)
	}
	if !receipt.Closed {
		receipt.Closed = true
		s.revision++
	}
	return receipt.Clone(), nil
}

func (s *Store) Receipt(number int64) (domain.Receipt, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	receipt, ok := s.receiptsByNum[number]
	if !ok {
		return domain.Receipt{}, false
	}
	return receipt.Clone(), true
}

func (s *Store) ListReceipts() []domain.Receipt {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Receipt, 0, len(s.receipts))
	for _, r := range s.receipts {
		out = append(out, r.Clone())
	}
	return out
}

type saleItem struct {
	product   *domain.Product
	qty       int
	unitPrice decimal.Decimal
	total     decimal.Decimal
}

// checkSale runs every precondition in a fixed order and reports the first one violated.
// It does not mutate anything.
func (s *Store) checkSale(cashierID string, productID string, qty int, customer *domain.Customer, now time.Time) (saleItem, error) {
	if qty <= 0 {
		return saleItem{}, fmt.Errorf("%w: got %d", domain.ErrInvalidQuantity, qty)
	}
	if s.deskOf(cashierID) == nil {
		return saleItem{}, fmt.Errorf("%w: %s", domain.ErrDeskNotAssigned, cashierID)
	}
	product, ok := s.products[productID]
	if !ok {
		return saleItem{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	if pricing.IsExpired(product.Expiry, now) {
		return saleItem{}, fmt.Errorf("%w: %s expired on %s", domain.ErrProductExpired, product.ID, product.Expiry.Format("2006-01-02"))
	}
	if qty > product.Quantity {
		return saleItem{}, &domain.InsufficientStockError{ProductID: product.ID, Requested: qty, Available: product.Quantity}
	}

	unitPrice := s.pricing.SalePrice(*product, now)
	total := unitPrice.Mul(decimal.NewFromInt(int64(qty)))

	if customer == nil {
		return saleItem{}, fmt.Errorf("%w: customer is required", domain.ErrInvalidCustomer)
	}
	if !customer.CanPay(total) {
		return saleItem{}, &domain.InsufficientBudgetError{CustomerID: customer.ID, Required: total, Balance: customer.Balance()}
	}
	return saleItem{product: product, qty: qty, unitPrice: unitPrice, total: total}, nil
}

func (s *Store) commitSale(receipt *domain.Receipt, item saleItem, customer *domain.Customer) {
	// CanPay was checked under the same lock; Pay cannot fail here.
	_ = customer.Pay(item.total)
	item.product.Quantity -= item.qty
	s.soldItems[item.product.ID] += item.qty
	s.costOfSoldGoods = s.costOfSoldGoods.Add(item.product.PurchasePrice.Mul(decimal.NewFromInt(int64(item.qty))))
	receipt.Lines = append(receipt.Lines, domain.ReceiptLine{
		ProductID:   item.product.ID,
		ProductName: item.product.Name,
		Quantity:    item.qty,
		UnitPrice:   item.unitPrice,
	})
	s.revision++
}

func (s *Store) allocateReceipt(ctx context.Context, cashierID string) (*domain.Receipt, error) {
	number, err := s.seq.Next(ctx)
	if err != nil {
		return nil, domain.IOError("allocate receipt number", err)
	}
	cashier, _ := s.cashier(cashierID)
	receipt := &domain.Receipt{
		Number:    number,
		Cashier:   *cashier,
		CreatedAt: s.now(),
	}
	s.receipts = append(s.receipts, receipt)
	s.receiptsByNum[number] = receipt
	return receipt, nil
}
