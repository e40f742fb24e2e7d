package httpapi

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/receipts"
	"retailstore/backend/internal/xid"
)

// Quantities are range-checked by the store and surface as rule violations.

type productRequest struct {
	ID            string          `json:"id" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required,max=120"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Category      string          `json:"category" validate:"required,oneof=GROCERIES NON_FOODS"`
	Expiry        string          `json:"expiry" validate:"required,datetime=2006-01-02"`
	Quantity      int             `json:"quantity"`
}

func (r productRequest) toDomain() domain.Product {
	expiry, _ := time.Parse("2006-01-02", r.Expiry)
	return domain.Product{
		ID:            strings.TrimSpace(r.ID),
		Name:          strings.TrimSpace(r.Name),
		PurchasePrice: r.PurchasePrice,
		Category:      domain.Category(r.Category),
		Expiry:        expiry,
		Quantity:      r.Quantity,
	}
}

type restockRequest struct {
	Quantity int `json:"quantity"`
}

type cashierRequest struct {
	ID            string          `json:"id" validate:"required,max=64"`
	Name          string          `json:"name" validate:"required,max=120"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
}

type assignRequest struct {
	CashierID string `json:"cashier_id" validate:"required"`
}

type customerPayload struct {
	ID      string          `json:"id" validate:"omitempty,max=64"`
	Name    string          `json:"name" validate:"required,max=120"`
	Balance decimal.Decimal `json:"balance"`
}

func (c customerPayload) toDomain() (*domain.Customer, error) {
	id := strings.TrimSpace(c.ID)
	if id == "" {
		id = xid.New("cust")
	}
	return domain.NewCustomer(id, strings.TrimSpace(c.Name), c.Balance)
}

type saleRequest struct {
	CashierID string          `json:"cashier_id" validate:"required"`
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity"`
	Customer  customerPayload `json:"customer"`
}

type openReceiptRequest struct {
	CashierID string          `json:"cashier_id" validate:"required"`
	Customer  customerPayload `json:"customer"`
}

type receiptLineRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type receiptView struct {
	domain.Receipt
	Total string `json:"total"`
	Text  string `json:"text"`
}

func toReceiptView(r domain.Receipt) receiptView {
	return receiptView{Receipt: r, Total: r.Total().StringFixed(2), Text: receipts.Render(r)}
}

func toReceiptViews(list []domain.Receipt) []receiptView {
	out := make([]receiptView, 0, len(list))
	for _, r := range list {
		out = append(out, toReceiptView(r))
	}
	return out
}
