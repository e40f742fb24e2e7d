package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind groups errors by how a caller is expected to react to them.
type Kind uint8

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindDuplicate
	KindNotFound
	KindConflict
	KindRuleViolation
	KindIO
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindDuplicate:
		return "duplicate"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindRuleViolation:
		return "rule_violation"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidConfig = errors.New("invalid store configuration")

	ErrDuplicateProduct = errors.New("duplicate product")
	ErrDuplicateCashier = errors.New("duplicate cashier")

	ErrProductNotFound = errors.New("product not found")
	ErrCashierNotFound = errors.New("cashier not found")
	ErrDeskNotFound    = errors.New("cash desk not found")
	ErrReceiptNotFound = errors.New("receipt not found")

	ErrDeskOccupied  = errors.New("cash desk occupied")
	ErrCashierBusy   = errors.New("cashier assigned to another desk")
	ErrReceiptClosed = errors.New("receipt closed")

	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrDeskNotAssigned    = errors.New("cashier not assigned to an open cash desk")
	ErrProductExpired     = errors.New("product expired")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientBudget = errors.New("insufficient budget")
	ErrInvalidProduct     = errors.New("invalid product")
	ErrInvalidCashier     = errors.New("invalid cashier")
	ErrInvalidCustomer    = errors.New("invalid customer")

	ErrIO = errors.New("receipt storage failure")
)

var kindsBySentinel = []struct {
	err  error
	kind Kind
}{
	{ErrInvalidConfig, KindConfiguration},
	{ErrDuplicateProduct, KindDuplicate},
	{ErrDuplicateCashier, KindDuplicate},
	{ErrProductNotFound, KindNotFound},
	{ErrCashierNotFound, KindNotFound},
	{ErrDeskNotFound, KindNotFound},
	{ErrReceiptNotFound, KindNotFound},
	{ErrDeskOccupied, KindConflict},
	{ErrCashierBusy, KindConflict},
	{ErrReceiptClosed, KindConflict},
	{ErrInvalidQuantity, KindRuleViolation},
	{ErrDeskNotAssigned, KindRuleViolation},
	{ErrProductExpired, KindRuleViolation},
	{ErrInsufficientStock, KindRuleViolation},
	{ErrInsufficientBudget, KindRuleViolation},
	{ErrInvalidProduct, KindRuleViolation},
	{ErrInvalidCashier, KindRuleViolation},
	{ErrInvalidCustomer, KindRuleViolation},
	{ErrIO, KindIO},
}

// KindOf classifies err. Errors not produced by this module report KindUnknown.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	for _, entry := range kindsBySentinel {
		if errors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindUnknown
}

// IOError marks a persistence failure so KindOf reports KindIO while keeping the cause inspectable.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, errors.Join(ErrIO, err))
}

type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d", e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type InsufficientBudgetError struct {
	CustomerID string
	Required   decimal.Decimal
	Balance    decimal.Decimal
}

func (e *InsufficientBudgetError) Shortfall() decimal.Decimal {
	return e.Required.Sub(e.Balance)
}

func (e *InsufficientBudgetError) Error() string {
	return fmt.Sprintf("customer %s lacks %s", e.CustomerID, e.Shortfall().StringFixed(2))
}

func (e *InsufficientBudgetError) Unwrap() error {
	return ErrInsufficientBudget
}

// AssignmentConflictError names the cashier and desk holding the conflicting state.
// Reason is ErrDeskOccupied or ErrCashierBusy.
type AssignmentConflictError struct {
	Reason      error
	DeskID      string
	CashierID   string
	CashierName string
	HolderID    string
	HolderName  string
	HeldDeskID  string
}

func (e *AssignmentConflictError) Error() string {
	if errors.Is(e.Reason, ErrCashierBusy) {
		return fmt.Sprintf("cashier %s (%s) is already assigned to desk %s", e.CashierName, e.CashierID, e.HeldDeskID)
	}
	return fmt.Sprintf("desk %s is already occupied by cashier %s (%s)", e.DeskID, e.HolderName, e.HolderID)
}

func (e *AssignmentConflictError) Unwrap() error {
	return e.Reason
}
