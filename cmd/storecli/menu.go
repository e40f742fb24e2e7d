package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/receipts"
	"retailstore/backend/internal/service"
	"retailstore/backend/internal/xid"
)

var errQuit = errors.New("quit")

type menu struct {
	svc *service.Service
	in  *bufio.Scanner
	out io.Writer
}

func newMenu(svc *service.Service, in io.Reader, out io.Writer) *menu {
	return &menu{svc: svc, in: bufio.NewScanner(in), out: out}
}

// Run loops until option 0, end of input or context cancellation.
func (m *menu) Run(ctx context.Context) error {
	m.printf("============================================\n")
	m.printf("      STORE MANAGEMENT SYSTEM\n")
	m.printf("============================================\n")

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		m.printMenu()
		line, ok := m.prompt("Choose an option: ")
		if !ok {
			return nil
		}
		choice, err := strconv.Atoi(line)
		if err != nil {
			m.printf("Please enter a valid number.\n")
			continue
		}
		if err := m.dispatch(ctx, choice); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			m.printf("Error: %v\n", err)
		}
	}
}

func (m *menu) printMenu() {
	m.printf("\n=== MENU ===\n")
	m.printf("1. List all products\n")
	m.printf("2. List all cashiers\n")
	m.printf("3. List all cash desks\n")
	m.printf("4. Assign cashier to desk\n")
	m.printf("5. Release cashier from desk\n")
	m.printf("6. Make a sale\n")
	m.printf("7. View store financial status\n")
	m.printf("8. View all receipts\n")
	m.printf("9. View receipt count\n")
	m.printf("0. Exit\n")
}

func (m *menu) dispatch(ctx context.Context, choice int) error {
	switch choice {
	case 1:
		m.listProducts(ctx)
	case 2:
		m.listCashiers(ctx)
	case 3:
		m.listDesks(ctx)
	case 4:
		return m.assign(ctx)
	case 5:
		return m.release(ctx)
	case 6:
		return m.sale(ctx)
	case 7:
		m.financials(ctx)
	case 8:
		return m.storedReceipts(ctx)
	case 9:
		m.printf("Total receipts issued: %d\n", m.svc.ReceiptCount(ctx))
	case 0:
		m.printf("Exiting application...\n")
		return errQuit
	default:
		m.printf("Invalid option, please try again.\n")
	}
	return nil
}

func (m *menu) listProducts(ctx context.Context) {
	listings := m.svc.ListProducts(ctx)
	if len(listings) == 0 {
		m.printf("No products available.\n")
		return
	}
	m.printf("\n=== PRODUCT INVENTORY ===\n")
	m.printf("%-6s %-20s %-10s %8s %8s %5s  %-10s %s\n", "ID", "Name", "Category", "Cost", "Price", "Qty", "Expiry", "Status")
	m.printf("%s\n", strings.Repeat("-", 85))
	for _, l := range listings {
		status := ""
		switch {
		case l.Expired:
			status = "EXPIRED"
		case l.NearExpiry:
			status = "DISCOUNTED"
		}
		m.printf("%-6s %-20s %-10s %8s %8s %5d  %-10s %s\n",
			l.ID, l.Name, l.Category, l.PurchasePrice.StringFixed(2), l.SalePrice.StringFixed(2),
			l.Quantity, l.Expiry.Format("2006-01-02"), status)
	}
}

func (m *menu) listCashiers(ctx context.Context) {
	cashiers := m.svc.ListCashiers(ctx)
	if len(cashiers) == 0 {
		m.printf("No cashiers available.\n")
		return
	}
	m.printf("\n=== CASHIERS ===\n")
	m.printf("%-6s %-20s %10s  %s\n", "ID", "Name", "Salary", "Desk")
	m.printf("%s\n", strings.Repeat("-", 63))
	for _, c := range cashiers {
		desk := "-"
		if d, ok := m.svc.AssignedDesk(ctx, c.ID); ok {
			desk = d.ID
		}
		m.printf("%-6s %-20s %10s  %s\n", c.ID, c.Name, c.MonthlySalary.StringFixed(2), desk)
	}
}

func (m *menu) listDesks(ctx context.Context) {
	desks := m.svc.ListDesks(ctx)
	if len(desks) == 0 {
		m.printf("No cash desks available.\n")
		return
	}
	m.printf("\n=== CASH DESKS ===\n")
	m.printf("%s\n", strings.Repeat("-", 45))
	for _, d := range desks {
		if d.Cashier == nil {
			m.printf("%-6s free\n", d.ID)
			continue
		}
		m.printf("%-6s open  %s (%s)\n", d.ID, d.Cashier.Name, d.Cashier.ID)
	}
}

func (m *menu) assign(ctx context.Context) error {
	cashierID, ok := m.prompt("Cashier ID: ")
	if !ok {
		return errQuit
	}
	deskID, ok := m.prompt("Desk ID: ")
	if !ok {
		return errQuit
	}
	desk, err := m.svc.AssignCashier(ctx, cashierID, deskID)
	if err != nil {
		return err
	}
	m.printf("Cashier %s assigned to desk %s.\n", desk.Cashier.Name, desk.ID)
	return nil
}

func (m *menu) release(ctx context.Context) error {
	deskID, ok := m.prompt("Desk ID: ")
	if !ok {
		return errQuit
	}
	for _, d := range m.svc.ListDesks(ctx) {
		if d.ID == deskID && d.Cashier == nil {
			m.printf("Desk %s is already free.\n", deskID)
			return nil
		}
	}
	if _, err := m.svc.ReleaseDesk(ctx, deskID); err != nil {
		return err
	}
	m.printf("Desk %s released.\n", deskID)
	return nil
}

func (m *menu) sale(ctx context.Context) error {
	cashierID, ok := m.prompt("Cashier ID: ")
	if !ok {
		return errQuit
	}
	if desk, assigned := m.svc.AssignedDesk(ctx, cashierID); assigned {
		m.printf("Cashier %s is at desk %s.\n", desk.Cashier.Name, desk.ID)
	} else {
		m.printf("Cashier %s is not currently assigned to an open cash desk.\n", cashierID)
		m.printf("Please assign the cashier to a desk first (Option 4).\n")
		return nil
	}

	name, ok := m.prompt("Customer name: ")
	if !ok {
		return errQuit
	}
	rawBudget, ok := m.prompt("Customer budget: ")
	if !ok {
		return errQuit
	}
	budget, err := decimal.NewFromString(rawBudget)
	if err != nil {
		return fmt.Errorf("invalid budget %q", rawBudget)
	}
	customer, err := domain.NewCustomer(xid.New("cust"), name, budget)
	if err != nil {
		return err
	}

	sale, err := m.svc.OpenSale(ctx, cashierID, customer)
	if err != nil {
		return err
	}
	number := sale.Receipt.Number

	for {
		productID, ok := m.prompt("Product ID (empty to finish): ")
		if !ok || productID == "" {
			break
		}
		rawQty, ok := m.prompt("Quantity: ")
		if !ok {
			break
		}
		qty, err := strconv.Atoi(rawQty)
		if err != nil {
			m.printf("Please enter a valid number.\n")
			continue
		}
		sale, err = m.svc.AddSaleLine(ctx, number, productID, qty)
		if err != nil {
			m.printf("Sale Error: %v\n", err)
			continue
		}
		m.printf("Product added successfully!\n")
		m.printf("Current receipt total: $%s\n", sale.Receipt.Total().StringFixed(2))
	}

	receipt, err := m.svc.FinishSale(ctx, number)
	if err != nil && receipt.Number == 0 {
		return err
	}
	m.printf("\n--- FINAL RECEIPT ---\n%s---------------------\n", receipts.Render(receipt))
	if err != nil {
		m.printf("Error saving receipt: %v\n", err)
	}
	return nil
}

func (m *menu) financials(ctx context.Context) {
	f := m.svc.Financials(ctx)
	m.printf("\n=== FINANCIAL STATUS ===\n")
	m.printf("%-35s %14s\n", "Turnover:", f.Turnover.StringFixed(2))
	m.printf("%-35s %14s\n", "Cost of sold goods:", f.CostOfSoldGoods.StringFixed(2))
	m.printf("%-35s %14s\n", "Gross profit:", f.GrossProfit.StringFixed(2))
	m.printf("%-35s %14s\n", "Salary expenses:", f.SalaryExpenses.StringFixed(2))
	m.printf("%-35s %14s\n", "Total cost of goods supplied:", f.TotalCostOfGoodsSupplied.StringFixed(2))
	m.printf("%s\n", strings.Repeat("-", 51))
	m.printf("%-35s %14s\n", "Profit:", f.Profit.StringFixed(2))

	if len(f.SoldItems) == 0 {
		return
	}
	ids := make([]string, 0, len(f.SoldItems))
	for id := range f.SoldItems {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	m.printf("\n=== SOLD ITEMS ===\n")
	m.printf("%s\n", strings.Repeat("-", 40))
	for _, id := range ids {
		m.printf("%-10s %6d\n", id, f.SoldItems[id])
	}
}

func (m *menu) storedReceipts(ctx context.Context) error {
	list, err := m.svc.StoredReceipts(ctx)
	if err != nil {
		return fmt.Errorf("loading receipts: %w", err)
	}
	if len(list) == 0 {
		m.printf("No receipts available.\n")
		return nil
	}
	m.printf("\n=== ALL RECEIPTS ===\n")
	for _, r := range list {
		m.printf("Receipt #%d - Cashier: %s - Total: $%s\n", r.Number, r.Cashier.Name, r.Total().StringFixed(2))
	}

	raw, ok := m.prompt("Receipt number to view (empty to skip): ")
	if !ok || raw == "" {
		return nil
	}
	number, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.printf("Please enter a valid number.\n")
		return nil
	}
	r, found, err := m.svc.StoredReceipt(ctx, number)
	if err != nil {
		return err
	}
	if !found {
		m.printf("Receipt not found.\n")
		return nil
	}
	m.printf("\n%s", receipts.Render(r))
	return nil
}

func (m *menu) prompt(label string) (string, bool) {
	m.printf("%s", label)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

func (m *menu) printf(format string, args ...any) {
	fmt.Fprintf(m.out, format, args...)
}
