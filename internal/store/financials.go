package store

import (
	"maps"

	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
)

// Turnover is the sum of every committed receipt line.
func (s *Store) Turnover() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnover()
}

func (s *Store) SalaryExpenses() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.salaryExpenses()
}

func (s *Store) CostOfSoldGoods() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.costOfSoldGoods
}

// Profit is turnover minus salaries minus cost of sold goods.
func (s *Store) Profit() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.turnover().Sub(s.salaryExpenses()).Sub(s.costOfSoldGoods)
}

func (s *Store) TotalCostOfAllGoodsSupplied() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.suppliedCost
}

func (s *Store) SoldItems() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.soldItems)
}

func (s *Store) ReceiptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.receipts)
}

// Financials reads every figure under one lock so they are mutually consistent.
func (s *Store) Financials() domain.Financials {
	s.mu.Lock()
	defer s.mu.Unlock()

	turnover := s.turnover()
	salaries := s.salaryExpenses()
	return domain.Financials{
		Turnover:                 turnover,
		CostOfSoldGoods:          s.costOfSoldGoods,
		GrossProfit:              turnover.Sub(s.costOfSoldGoods),
		SalaryExpenses:           salaries,
		Profit:                   turnover.Sub(salaries).Sub(s.costOfSoldGoods),
		TotalCostOfGoodsSupplied: s.suppliedCost,
		ReceiptCount:             len(s.receipts),
		SoldItems:                maps.Clone(s.soldItems),
	}
}

func (s *Store) turnover() decimal.Decimal {
	total := decimal.Zero
	for _, r := range s.receipts {
		total = total.Add(r.Total())
	}
	return total
}

func (s *Store) salaryExpenses() decimal.Decimal {
	total := decimal.Zero
	for _, c := range s.cashiers {
		total = total.Add(c.MonthlySalary)
	}
	return total
}
