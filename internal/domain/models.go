package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category string

const (
	CategoryGroceries Category = "GROCERIES"
	CategoryNonFoods  Category = "NON_FOODS"
)

func (c Category) Valid() bool {
	return c == CategoryGroceries || c == CategoryNonFoods
}

// Product is a stocked article. Two products are the same product iff their IDs match.
type Product struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	Category      Category        `json:"category"`
	Expiry        time.Time       `json:"expiry"`
	Quantity      int             `json:"quantity"`
}

// ProductListing is a product as offered for sale on a given day.
type ProductListing struct {
	Product
	SalePrice  decimal.Decimal `json:"sale_price"`
	Expired    bool            `json:"expired"`
	NearExpiry bool            `json:"near_expiry"`
}

type Cashier struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
}

// CashDesk is Open exactly when a cashier is assigned.
type CashDesk struct {
	ID      string   `json:"id"`
	Cashier *Cashier `json:"cashier,omitempty"`
	Open    bool     `json:"open"`
}

func (d CashDesk) Occupied() bool {
	return d.Cashier != nil
}

// ReceiptLine is immutable once appended. UnitPrice is the sale price at the time of sale.
type ReceiptLine struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

func (l ReceiptLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type Receipt struct {
	Number    int64         `json:"number"`
	Cashier   Cashier       `json:"cashier"`
	CreatedAt time.Time     `json:"created_at"`
	Closed    bool          `json:"closed"`
	Lines     []ReceiptLine `json:"lines"`
}

func (r Receipt) Total() decimal.Decimal {
	total := decimal.Zero
	for _, line := range r.Lines {
		total = total.Add(line.Total())
	}
	return total
}

// Clone returns a copy that shares no slices with r.
func (r Receipt) Clone() Receipt {
	out := r
	out.Lines = append([]ReceiptLine(nil), r.Lines...)
	return out
}

type Financials struct {
	Turnover                 decimal.Decimal `json:"turnover"`
	CostOfSoldGoods          decimal.Decimal `json:"cost_of_sold_goods"`
	GrossProfit              decimal.Decimal `json:"gross_profit"`
	SalaryExpenses           decimal.Decimal `json:"salary_expenses"`
	Profit                   decimal.Decimal `json:"profit"`
	TotalCostOfGoodsSupplied decimal.Decimal `json:"total_cost_of_goods_supplied"`
	ReceiptCount             int             `json:"receipt_count"`
	SoldItems                map[string]int  `json:"sold_items"`
}

type Actor struct {
	Username string
	Role     string
}

const (
	RoleManager = "manager"
	RoleCashier = "cashier"
)

// Date truncates t to midnight UTC of its calendar day.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
