package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"retailstore/backend/internal/cache"
	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/obs"
	"retailstore/backend/internal/pricing"
	"retailstore/backend/internal/store"
	"retailstore/backend/internal/xid"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

// ReceiptArchive persists finished receipts. Load reports found=false for unknown numbers.
type ReceiptArchive interface {
	Save(ctx context.Context, r domain.Receipt) error
	LoadAll(ctx context.Context) ([]domain.Receipt, error)
	Load(ctx context.Context, number int64) (domain.Receipt, bool, error)
}

// Sale is an open multi-line receipt together with the paying customer's remaining balance.
type Sale struct {
	Receipt    domain.Receipt  `json:"receipt"`
	CustomerID string          `json:"customer_id"`
	Balance    decimal.Decimal `json:"balance"`
}

type Service struct {
	store    *store.Store
	archive  ReceiptArchive
	cache    cache.FinancialsCache
	cacheTTL time.Duration
	metrics  *obs.Metrics
	logger   zerolog.Logger
	instance string

	mu       sync.Mutex
	sessions map[int64]*domain.Customer
}

type Option func(*Service)

func WithFinancialsCache(c cache.FinancialsCache, ttl time.Duration) Option {
	return func(s *Service) {
		if c != nil {
			s.cache = c
			s.cacheTTL = ttl
		}
	}
}

func WithMetrics(m *obs.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(st *store.Store, archive ReceiptArchive, opts ...Option) *Service {
	s := &Service{
		store:    st,
		archive:  archive,
		cache:    cache.NoopFinancialsCache{},
		cacheTTL: 30 * time.Second,
		logger:   zerolog.Nop(),
		instance: xid.New("store"),
		sessions: make(map[int64]*domain.Customer),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Pricing() pricing.Config {
	return s.store.Pricing()
}

func (s *Service) ListProducts(_ context.Context) []domain.ProductListing {
	now := s.store.Now()
	cfg := s.store.Pricing()
	products := s.store.ListProducts()

	out := make([]domain.ProductListing, 0, len(products))
	for _, p := range products {
		out = append(out, domain.ProductListing{
			Product:    p,
			SalePrice:  cfg.SalePrice(p, now),
			Expired:    pricing.IsExpired(p.Expiry, now),
			NearExpiry: cfg.NearExpiry(p.Expiry, now),
		})
	}
	return out
}

func (s *Service) FindProduct(_ context.Context, id string) (domain.Product, error) {
	product, ok := s.store.FindProduct(id)
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", domain.ErrProductNotFound, id)
	}
	return product, nil
}

func (s *Service) AddProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if err := s.store.AddProduct(product); err != nil {
		return domain.Product{}, err
	}
	created, _ := s.store.FindProduct(product.ID)
	s.logAudit(ctx, "product_create", "product", created.ID, fmt.Sprintf("name=%s,price=%s,qty=%d", created.Name, created.PurchasePrice, created.Quantity))
	return created, nil
}

func (s *Service) Restock(ctx context.Context, productID string, qty int) (domain.Product, error) {
	product, err := s.store.Restock(productID, qty)
	if err != nil {
		return domain.Product{}, err
	}
	s.logAudit(ctx, "product_restock", "product", productID, fmt.Sprintf("added=%d,qty=%d", qty, product.Quantity))
	return product, nil
}

func (s *Service) ListCashiers(_ context.Context) []domain.Cashier {
	return s.store.ListCashiers()
}

func (s *Service) AddCashier(ctx context.Context, cashier domain.Cashier) (domain.Cashier, error) {
	if err := s.store.AddCashier(cashier); err != nil {
		return domain.Cashier{}, err
	}
	created, _ := s.store.FindCashier(cashier.ID)
	s.logAudit(ctx, "cashier_create", "cashier", created.ID, "name="+created.Name)
	return created, nil
}

func (s *Service) ListDesks(_ context.Context) []domain.CashDesk {
	return s.store.ListCashDesks()
}

func (s *Service) AddDesk(ctx context.Context) domain.CashDesk {
	desk := s.store.AddCashDesk()
	s.logAudit(ctx, "desk_create", "desk", desk.ID, "")
	return desk
}

func (s *Service) AssignCashier(ctx context.Context, cashierID string, deskID string) (domain.CashDesk, error) {
	if err := s.store.AssignCashier(cashierID, deskID); err != nil {
		return domain.CashDesk{}, err
	}
	desk, _ := s.store.FindCashDesk(deskID)
	s.logAudit(ctx, "desk_assign", "desk", deskID, "cashier="+cashierID)
	return desk, nil
}

func (s *Service) ReleaseDesk(ctx context.Context, deskID string) (domain.CashDesk, error) {
	if err := s.store.ReleaseDesk(deskID); err != nil {
		return domain.CashDesk{}, err
	}
	desk, _ := s.store.FindCashDesk(deskID)
	s.logAudit(ctx, "desk_release", "desk", deskID, "")
	return desk, nil
}

func (s *Service) AssignedDesk(_ context.Context, cashierID string) (domain.CashDesk, bool) {
	return s.store.AssignedDesk(cashierID)
}

// Sell completes a one-line sale and archives the receipt. If only archiving fails the sale
// stays committed, and both the receipt and the I/O error are returned.
func (s *Service) Sell(ctx context.Context, cashierID string, productID string, qty int, customer *domain.Customer) (domain.Receipt, error) {
	receipt, err := s.store.Sell(ctx, cashierID, productID, qty, customer)
	if err != nil {
		s.rejected(err)
		return domain.Receipt{}, err
	}
	s.committed("sell")
	s.logAudit(ctx, "sale", "receipt", fmt.Sprint(receipt.Number), fmt.Sprintf("cashier=%s,product=%s,qty=%d,total=%s", cashierID, productID, qty, receipt.Total().StringFixed(2)))

	if err := s.persist(ctx, receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}

// OpenSale starts a multi-line receipt paid for by customer.
func (s *Service) OpenSale(ctx context.Context, cashierID string, customer *domain.Customer) (Sale, error) {
	if customer == nil {
		return Sale{}, fmt.Errorf("%w: customer is required", domain.ErrInvalidCustomer)
	}
	receipt, err := s.store.CreateReceipt(ctx, cashierID)
	if err != nil {
		s.rejected(err)
		return Sale{}, err
	}

	s.mu.Lock()
	s.sessions[receipt.Number] = customer
	s.mu.Unlock()

	s.logAudit(ctx, "sale_open", "receipt", fmt.Sprint(receipt.Number), "cashier="+cashierID)
	return Sale{Receipt: receipt, CustomerID: customer.ID, Balance: customer.Balance()}, nil
}

func (s *Service) AddSaleLine(ctx context.Context, number int64, productID string, qty int) (Sale, error) {
	customer := s.sessionCustomer(number)
	receipt, err := s.store.AddToReceipt(number, productID, qty, customer)
	if err != nil {
		s.rejected(err)
		return Sale{}, err
	}
	s.committed("receipt_line")
	s.logAudit(ctx, "sale_line", "receipt", fmt.Sprint(number), fmt.Sprintf("product=%s,qty=%d", productID, qty))
	return Sale{Receipt: receipt, CustomerID: customer.ID, Balance: customer.Balance()}, nil
}

// FinishSale closes the receipt and archives it.
func (s *Service) FinishSale(ctx context.Context, number int64) (domain.Receipt, error) {
	receipt, err := s.store.CloseReceipt(number)
	if err != nil {
		return domain.Receipt{}, err
	}

	s.mu.Lock()
	delete(s.sessions, number)
	s.mu.Unlock()

	s.logAudit(ctx, "sale_close", "receipt", fmt.Sprint(number), "total="+receipt.Total().StringFixed(2))
	if err := s.persist(ctx, receipt); err != nil {
		return receipt, err
	}
	return receipt, nil
}

func (s *Service) Receipt(_ context.Context, number int64) (domain.Receipt, error) {
	receipt, ok := s.store.Receipt(number)
	if !ok {
		return domain.Receipt{}, fmt.Errorf("%w: #%d", domain.ErrReceiptNotFound, number)
	}
	return receipt, nil
}

func (s *Service) ListReceipts(_ context.Context) []domain.Receipt {
	return s.store.ListReceipts()
}

func (s *Service) StoredReceipts(ctx context.Context) ([]domain.Receipt, error) {
	return s.archive.LoadAll(ctx)
}

func (s *Service) StoredReceipt(ctx context.Context, number int64) (domain.Receipt, bool, error) {
	return s.archive.Load(ctx, number)
}

func (s *Service) ReceiptCount(_ context.Context) int {
	return s.store.ReceiptCount()
}

// Financials returns the current snapshot, served from cache while the store is unchanged.
func (s *Service) Financials(ctx context.Context) domain.Financials {
	key := fmt.Sprintf("%s:rev-%d", s.instance, s.store.Revision())
	if cached, found, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("financials cache read failed")
	} else if found {
		return *cached
	}

	snapshot := s.store.Financials()
	if err := s.cache.Set(ctx, key, &snapshot, s.cacheTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("financials cache write failed")
	}
	return snapshot
}

// Reset clears receipts, counters and open sessions. Archived receipts are left alone.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	s.sessions = make(map[int64]*domain.Customer)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.Turnover.Set(0)
	}
	s.logAudit(ctx, "store_reset", "store", s.instance, "")
	return nil
}

func (s *Service) sessionCustomer(number int64) *domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.sessions[number]; ok {
		return c
	}
	return nil
}

func (s *Service) persist(ctx context.Context, receipt domain.Receipt) error {
	if err := s.archive.Save(ctx, receipt); err != nil {
		s.logger.Error().Err(err).Int64("receipt", receipt.Number).Msg("receipt archive failed")
		if s.metrics != nil {
			s.metrics.ReceiptsPersisted.WithLabelValues("error").Inc()
		}
		return err
	}
	if s.metrics != nil {
		s.metrics.ReceiptsPersisted.WithLabelValues("ok").Inc()
	}
	return nil
}

func (s *Service) committed(entry string) {
	if s.metrics == nil {
		return
	}
	s.metrics.SalesTotal.WithLabelValues(entry).Inc()
	s.metrics.Turnover.Set(s.store.Turnover().InexactFloat64())
}

func (s *Service) rejected(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.SaleRejections.WithLabelValues(domain.KindOf(err).String()).Inc()
}

func (s *Service) logAudit(ctx context.Context, action string, entityType string, entityID string, detail string) {
	actor, ok := ActorFromContext(ctx)
	if !ok {
		actor = domain.Actor{Username: "system", Role: "system"}
	}
	s.logger.Info().
		Str("action", action).
		Str("entity", entityType).
		Str("entity_id", entityID).
		Str("detail", detail).
		Str("actor", actor.Username).
		Str("actor_role", actor.Role).
		Msg("audit")
}
