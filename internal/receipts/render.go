package receipts

import (
	"fmt"
	"strings"

	"retailstore/backend/internal/domain"
)

const ruler = "----------------------------------------"

// Render returns the printable form of a receipt.
func Render(r domain.Receipt) string {
	var b strings.Builder
	fmt.Fprintf(&b, "RECEIPT #%d\n", r.Number)
	fmt.Fprintf(&b, "Date: %s\n", r.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Cashier: %s (ID: %s)\n", r.Cashier.Name, r.Cashier.ID)
	b.WriteString(ruler + "\n")
	b.WriteString("ITEMS:\n")
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "%-20s %3d x %7s = %8s\n",
			line.ProductName,
			line.Quantity,
			line.UnitPrice.StringFixed(2),
			line.Total().StringFixed(2),
		)
	}
	b.WriteString(ruler + "\n")
	fmt.Fprintf(&b, "TOTAL: %33s\n", r.Total().StringFixed(2))
	return b.String()
}
