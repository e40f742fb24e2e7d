package store

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/pricing"
)

// Store is the aggregate root. Every state change to products, desks, receipts and
// the accounting counters goes through its methods, and all of them share one mutex.
type Store struct {
	mu sync.Mutex

	pricing pricing.Config
	now     func() time.Time
	seq     Sequence
	logger  zerolog.Logger

	products map[string]*domain.Product

	cashiers     []domain.Cashier
	cashierIndex map[string]int

	desks     []*desk
	deskIndex map[string]*desk

	receipts      []*domain.Receipt
	receiptsByNum map[int64]*domain.Receipt

	soldItems       map[string]int
	costOfSoldGoods decimal.Decimal
	suppliedCost    decimal.Decimal

	revision uint64
}

type desk struct {
	id        string
	cashierID string
}

func (d *desk) open() bool {
	return d.cashierID != ""
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithSequence(seq Sequence) Option {
	return func(s *Store) {
		if seq != nil {
			s.seq = seq
		}
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

func New(cfg pricing.Config, opts ...Option) *Store {
	s := &Store{
		pricing:         cfg,
		now:             time.Now,
		seq:             &AtomicSequence{},
		logger:          zerolog.Nop(),
		products:        make(map[string]*domain.Product),
		cashierIndex:    make(map[string]int),
		deskIndex:       make(map[string]*desk),
		receiptsByNum:   make(map[int64]*domain.Receipt),
		soldItems:       make(map[string]int),
		costOfSoldGoods: decimal.Zero,
		suppliedCost:    decimal.Zero,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Pricing() pricing.Config {
	return s.pricing
}

func (s *Store) Now() time.Time {
	return s.now()
}

// Revision increases with every committed mutation.
func (s *Store) Revision() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// Reset clears receipts, the receipt sequence and the sales counters.
// Inventory, cashiers and desks are kept, as is their assignment state.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.seq.Reset(ctx); err != nil {
		return domain.IOError("reset receipt sequence", err)
	}
	s.receipts = nil
	s.receiptsByNum = make(map[int64]*domain.Receipt)
	s.soldItems = make(map[string]int)
	s.costOfSoldGoods = decimal.Zero
	s.suppliedCost = decimal.Zero
	s.revision++
	return nil
}
