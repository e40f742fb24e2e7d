package store

import (
	"fmt"
	"strings"

	"retailstore/backend/internal/domain"
)

func (s *Store) AddCashier(cashier domain.Cashier) error {
	cashier.ID = strings.TrimSpace(cashier.ID)
	cashier.Name = strings.TrimSpace(cashier.Name)
	if cashier.ID == "" || cashier.Name == "" {
		return fmt.Errorf("%w: id and name are required", domain.ErrInvalidCashier)
	}
	if cashier.MonthlySalary.IsNegative() {
		return fmt.Errorf("%w: salary of %s cannot be negative", domain.ErrInvalidCashier, cashier.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.cashierIndex[cashier.ID]; exists {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateCashier, cashier.ID)
	}
	s.cashierIndex[cashier.ID] = len(s.cashiers)
	s.cashiers = append(s.cashiers, cashier)
	s.revision++
	return nil
}

// AddCashDesk opens a new, unassigned desk with the next sequential id (D1, D2, ...).
func (s *Store) AddCashDesk() domain.CashDesk {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := &desk{id: fmt.Sprintf("D%d", len(s.desks)+1)}
	s.desks = append(s.desks, d)
	s.deskIndex[d.id] = d
	s.revision++
	return s.deskView(d)
}

func (s *Store) ListCashiers() []domain.Cashier {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Cashier(nil), s.cashiers...)
}

func (s *Store) ListCashDesks() []domain.CashDesk {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.CashDesk, 0, len(s.desks))
	for _, d := range s.desks {
		out = append(out, s.deskView(d))
	}
	return out
}

func (s *Store) FindCashier(id string) (domain.Cashier, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.cashier(id)
	if !ok {
		return domain.Cashier{}, false
	}
	return *c, true
}

func (s *Store) FindCashDesk(id string) (domain.CashDesk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deskIndex[id]
	if !ok {
		return domain.CashDesk{}, false
	}
	return s.deskView(d), true
}

// AssignCashier puts the cashier on the desk. Assigning a cashier to the desk they already
// hold is a no-op. A cashier on another desk, or a desk held by another cashier, yields an
// *domain.AssignmentConflictError.
func (s *Store) AssignCashier(cashierID string, deskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cashier, ok := s.cashier(cashierID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrCashierNotFound, cashierID)
	}
	target, ok := s.deskIndex[deskID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDeskNotFound, deskID)
	}

	if held := s.deskOf(cashierID); held != nil {
		if held == target {
			return nil
		}
		return &domain.AssignmentConflictError{
			Reason:      domain.ErrCashierBusy,
			DeskID:      deskID,
			CashierID:   cashier.ID,
			CashierName: cashier.Name,
			HeldDeskID:  held.id,
		}
	}

	if target.open() {
		holder, _ := s.cashier(target.cashierID)
		conflict := &domain.AssignmentConflictError{
			Reason:      domain.ErrDeskOccupied,
			DeskID:      deskID,
			CashierID:   cashier.ID,
			CashierName: cashier.Name,
			HolderID:    target.cashierID,
		}
		if holder != nil {
			conflict.HolderName = holder.Name
		}
		return conflict
	}

	target.cashierID = cashier.ID
	s.revision++
	s.logger.Debug().Str("cashier_id", cashier.ID).Str("desk_id", deskID).Msg("cashier assigned")
	return nil
}

// ReleaseDesk frees the desk. Releasing a free desk does nothing.
func (s *Store) ReleaseDesk(deskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deskIndex[deskID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrDeskNotFound, deskID)
	}
	if !d.open() {
		return nil
	}
	previous := d.cashierID
	d.cashierID = ""
	s.revision++
	s.logger.Debug().Str("cashier_id", previous).Str("desk_id", deskID).Msg("desk released")
	return nil
}

// AssignedDesk returns the open desk the cashier currently holds.
func (s *Store) AssignedDesk(cashierID string) (domain.CashDesk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.deskOf(cashierID)
	if d == nil {
		return domain.CashDesk{}, false
	}
	return s.deskView(d), true
}

func (s *Store) cashier(id string) (*domain.Cashier, bool) {
	idx, ok := s.cashierIndex[id]
	if !ok {
		return nil, false
	}
	return &s.cashiers[idx], true
}

func (s *Store) deskOf(cashierID string) *desk {
	if cashierID == "" {
		return nil
	}
	for _, d := range s.desks {
		if d.open() && d.cashierID == cashierID {
			return d
		}
	}
	return nil
}

func (s *Store) deskView(d *desk) domain.CashDesk {
	view := domain.CashDesk{ID: d.id, Open: d.open()}
	if c, ok := s.cashier(d.cashierID); ok {
		copied := *c
		view.Cashier = &copied
	}
	return view
}
