package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/obs"
	"retailstore/backend/internal/service"
)

const maxBodyBytes = 1 << 20

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	metrics       http.Handler
	logger        zerolog.Logger
	validate      *validator.Validate
	loginLimiter  *attemptLimiter
}

type Options struct {
	AllowedOrigin string
	// Metrics is mounted at /metrics when set.
	Metrics http.Handler
	Logger  zerolog.Logger
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	origin := strings.TrimSpace(opts.AllowedOrigin)
	if origin == "" {
		origin = "*"
	}
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: origin,
		metrics:       opts.Metrics,
		logger:        opts.Logger,
		validate:      validator.New(validator.WithRequiredStructEnabled()),
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(obs.RequestLogger{Logger: a.logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{a.allowedOrigin},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(securityHeaders)
	r.Use(limitJSONBody)

	r.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleCashier, domain.RoleManager))
			r.Get("/products", a.handleListProducts)
			r.Get("/products/{id}", a.handleGetProduct)
			r.Get("/cashiers", a.handleListCashiers)
			r.Get("/desks", a.handleListDesks)
			r.Post("/sales", a.handleSell)
			r.Post("/receipts", a.handleOpenReceipt)
			r.Get("/receipts", a.handleListReceipts)
			r.Get("/receipts/stored", a.handleListStoredReceipts)
			r.Get("/receipts/stored/{number}", a.handleGetStoredReceipt)
			r.Get("/receipts/{number}", a.handleGetReceipt)
			r.Post("/receipts/{number}/lines", a.handleAddReceiptLine)
			r.Post("/receipts/{number}/close", a.handleCloseReceipt)
		})

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth(domain.RoleManager))
			r.Post("/products", a.handleAddProduct)
			r.Post("/products/{id}/restock", a.handleRestock)
			r.Post("/cashiers", a.handleAddCashier)
			r.Post("/desks", a.handleAddDesk)
			r.Post("/desks/{id}/assign", a.handleAssignCashier)
			r.Post("/desks/{id}/release", a.handleReleaseDesk)
			r.Get("/financials", a.handleFinancials)
			r.Post("/admin/reset", a.handleReset)
		})
	})

	return r
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
		next.ServeHTTP(w, r)
	})
}

func limitJSONBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Body != nil && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		}
		next.ServeHTTP(w, r)
	})
}

func (a *API) requireAuth(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
				return
			}
			actor, err := a.auth.ParseToken(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			if !hasRole(actor.Role, roles) {
				writeError(w, http.StatusForbidden, errors.New("forbidden role"))
				return
			}
			next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
		})
	}
}

func hasRole(role string, allowed []string) bool {
	for _, candidate := range allowed {
		if role == candidate {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":       true,
		"receipts": a.service.ReceiptCount(r.Context()),
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !a.loginLimiter.Allow(clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}
	var req LoginRequest
	if !a.bind(w, r, &req) {
		return
	}
	res, err := a.auth.Login(req)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.service.ListProducts(r.Context())})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.FindProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !a.bind(w, r, &req) {
		return
	}
	product, err := a.service.AddProduct(r.Context(), req.toDomain())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (a *API) handleRestock(w http.ResponseWriter, r *http.Request) {
	var req restockRequest
	if !a.bind(w, r, &req) {
		return
	}
	product, err := a.service.Restock(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleListCashiers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.service.ListCashiers(r.Context())})
}

func (a *API) handleAddCashier(w http.ResponseWriter, r *http.Request) {
	var req cashierRequest
	if !a.bind(w, r, &req) {
		return
	}
	cashier, err := a.service.AddCashier(r.Context(), domain.Cashier{
		ID:            strings.TrimSpace(req.ID),
		Name:          strings.TrimSpace(req.Name),
		MonthlySalary: req.MonthlySalary,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cashier)
}

func (a *API) handleListDesks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": a.service.ListDesks(r.Context())})
}

func (a *API) handleAddDesk(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusCreated, a.service.AddDesk(r.Context()))
}

func (a *API) handleAssignCashier(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if !a.bind(w, r, &req) {
		return
	}
	desk, err := a.service.AssignCashier(r.Context(), req.CashierID, chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desk)
}

func (a *API) handleReleaseDesk(w http.ResponseWriter, r *http.Request) {
	desk, err := a.service.ReleaseDesk(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, desk)
}

func (a *API) handleSell(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if !a.bind(w, r, &req) {
		return
	}
	customer, err := req.Customer.toDomain()
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	receipt, err := a.service.Sell(r.Context(), req.CashierID, req.ProductID, req.Quantity, customer)
	if err != nil && receipt.Number == 0 {
		a.writeDomainError(w, err)
		return
	}

	payload := map[string]any{
		"receipt":     toReceiptView(receipt),
		"customer_id": customer.ID,
		"balance":     customer.Balance(),
	}
	if err != nil {
		// the sale is committed; only archiving failed
		a.logger.Error().Err(err).Int64("receipt", receipt.Number).Msg("receipt archive failed")
		payload["archive_error"] = "receipt could not be archived"
	}
	writeJSON(w, http.StatusCreated, payload)
}

func (a *API) handleOpenReceipt(w http.ResponseWriter, r *http.Request) {
	var req openReceiptRequest
	if !a.bind(w, r, &req) {
		return
	}
	customer, err := req.Customer.toDomain()
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	sale, err := a.service.OpenSale(r.Context(), req.CashierID, customer)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saleView(sale))
}

func (a *API) handleAddReceiptLine(w http.ResponseWriter, r *http.Request) {
	number, ok := receiptNumber(w, r)
	if !ok {
		return
	}
	var req receiptLineRequest
	if !a.bind(w, r, &req) {
		return
	}
	sale, err := a.service.AddSaleLine(r.Context(), number, req.ProductID, req.Quantity)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, saleView(sale))
}

func (a *API) handleCloseReceipt(w http.ResponseWriter, r *http.Request) {
	number, ok := receiptNumber(w, r)
	if !ok {
		return
	}
	receipt, err := a.service.FinishSale(r.Context(), number)
	if err != nil && receipt.Number == 0 {
		a.writeDomainError(w, err)
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Int64("receipt", receipt.Number).Msg("receipt archive failed")
		writeJSON(w, http.StatusOK, map[string]any{
			"receipt":       toReceiptView(receipt),
			"archive_error": "receipt could not be archived",
		})
		return
	}
	writeJSON(w, http.StatusOK, toReceiptView(receipt))
}

func (a *API) handleListReceipts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": toReceiptViews(a.service.ListReceipts(r.Context()))})
}

func (a *API) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	number, ok := receiptNumber(w, r)
	if !ok {
		return
	}
	receipt, err := a.service.Receipt(r.Context(), number)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptView(receipt))
}

func (a *API) handleListStoredReceipts(w http.ResponseWriter, r *http.Request) {
	list, err := a.service.StoredReceipts(r.Context())
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": toReceiptViews(list)})
}

func (a *API) handleGetStoredReceipt(w http.ResponseWriter, r *http.Request) {
	number, ok := receiptNumber(w, r)
	if !ok {
		return
	}
	receipt, found, err := a.service.StoredReceipt(r.Context(), number)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, domain.ErrReceiptNotFound)
		return
	}
	writeJSON(w, http.StatusOK, toReceiptView(receipt))
}

func (a *API) handleFinancials(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Financials(r.Context()))
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Reset(r.Context()); err != nil {
		a.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func saleView(sale service.Sale) map[string]any {
	return map[string]any{
		"receipt":     toReceiptView(sale.Receipt),
		"customer_id": sale.CustomerID,
		"balance":     sale.Balance,
	}
}

func receiptNumber(w http.ResponseWriter, r *http.Request) (int64, bool) {
	number, err := strconv.ParseInt(chi.URLParam(r, "number"), 10, 64)
	if err != nil || number <= 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid receipt number"))
		return 0, false
	}
	return number, true
}

// bind decodes and validates a JSON body, writing a 400 on failure.
func (a *API) bind(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeJSON(r, dest); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	if err := a.validate.Struct(dest); err != nil {
		writeError(w, http.StatusBadRequest, validationError(err))
		return false
	}
	return true
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, strings.ToLower(fe.Field())+" failed "+fe.Tag())
	}
	return errors.New("invalid request: " + strings.Join(fields, ", "))
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dest)
}

func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindDuplicate, domain.KindConflict:
		return http.StatusConflict
	case domain.KindRuleViolation, domain.KindConfiguration:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status >= 500 {
		a.logger.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
		"kind":  domain.KindOf(err).String(),
	})
}

func writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
