package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"retailstore/backend/internal/domain"
	"retailstore/backend/internal/obs"
	"retailstore/backend/internal/pricing"
	"retailstore/backend/internal/receipts"
	"retailstore/backend/internal/service"
	"retailstore/backend/internal/store"
)

var today = time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)

// newTestAPI builds a full API over a seeded store, a file archive and a real
// AuthManager so handler tests exercise the complete request path.
func newTestAPI(t *testing.T) *API {
	t.Helper()

	st := store.New(pricing.DefaultConfig(), store.WithClock(func() time.Time { return today }))
	if err := store.Seed(st, today); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	reg := prometheus.NewRegistry()
	svc := service.New(st, receipts.NewFileArchive(t.TempDir(), zerolog.Nop()),
		service.WithMetrics(obs.NewMetrics("test", reg)))
	auth, err := NewAuthManager("test-secret-key", time.Hour, []Account{
		{Username: "manager", Password: "manager-pass", Role: domain.RoleManager},
		{Username: "cashier", Password: mustHashPassword(t, "cashier-pass"), Role: domain.RoleCashier},
	})
	if err != nil {
		t.Fatalf("auth manager: %v", err)
	}

	return New(svc, auth, Options{
		AllowedOrigin: "*",
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:        zerolog.Nop(),
	})
}

// mustHashPassword generates a bcrypt hash of the given password or fails the test.
func mustHashPassword(t *testing.T, plain string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	return string(hash)
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	payload, _ := json.Marshal(LoginRequest{Username: username, Password: password})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "198.51.100.7:4000"
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s failed: %d %s", username, rec.Code, rec.Body.String())
	}
	var res LoginResponse
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return res.AccessToken
}

func do(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decimalOf(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("decimal %q: %v", s, err)
	}
	return d
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	return body
}

func TestHandleHealth(t *testing.T) {
	handler := newTestAPI(t).Handler()
	rec := do(t, handler, http.MethodGet, "/healthz", "", nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["ok"] != true {
		t.Fatalf("expected ok:true, got %v", body["ok"])
	}
}

func TestHandleLogin_InvalidCredentials(t *testing.T) {
	handler := newTestAPI(t).Handler()
	rec := do(t, handler, http.MethodPost, "/api/v1/auth/login", "", LoginRequest{Username: "manager", Password: "wrongpassword"})

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleLogin_MissingFieldsFailValidation(t *testing.T) {
	handler := newTestAPI(t).Handler()
	rec := do(t, handler, http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "manager"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (body: %s)", rec.Code, rec.Body.String())
	}
}

func TestHandleProducts_RequiresAuth(t *testing.T) {
	handler := newTestAPI(t).Handler()
	rec := do(t, handler, http.MethodGet, "/api/v1/products", "", nil)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestHandleProducts_WithValidToken(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "cashier", "cashier-pass")

	rec := do(t, handler, http.MethodGet, "/api/v1/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (body: %s)", rec.Code, rec.Body.String())
	}
	items, ok := decodeBody(t, rec)["items"].([]any)
	if !ok || len(items) != 9 {
		t.Fatalf("expected 9 products, got %v", items)
	}
}

func TestCashierCannotUseManagerRoutes(t *testing.T) {
	handler := newTestAPI(t).Handler()
	token := login(t, handler, "cashier", "cashier-pass")

	rec := do(t, handler, http.MethodGet, "/api/v1/financials", token, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/desks/D1/assign", token, assignRequest{CashierID: "C1"})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
}

func TestSellFlowOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	manager := login(t, handler, "manager", "manager-pass")
	cashier := login(t, handler, "cashier", "cashier-pass")

	sale := saleRequest{
		CashierID: "C1",
		ProductID: "F6",
		Quantity:  1,
		Customer:  customerPayload{Name: "Alice", Balance: decimalOf(t, "10")},
	}

	rec := do(t, handler, http.MethodPost, "/api/v1/sales", cashier, sale)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 without desk, got %d (%s)", rec.Code, rec.Body.String())
	}
	if kind := decodeBody(t, rec)["kind"]; kind != "rule_violation" {
		t.Fatalf("expected rule_violation kind, got %v", kind)
	}

	rec = do(t, handler, http.MethodPost, "/api/v1/desks/D1/assign", manager, assignRequest{CashierID: "C1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("assign failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/desks/D1/assign", manager, assignRequest{CashierID: "C2"})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for occupied desk, got %d", rec.Code)
	}

	rec = do(t, handler, http.MethodPost, "/api/v1/sales", cashier, sale)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	receipt := body["receipt"].(map[string]any)
	if receipt["total"] != "1.68" {
		t.Fatalf("expected total 1.68, got %v", receipt["total"])
	}
	if body["balance"] != "8.32" {
		t.Fatalf("expected balance 8.32, got %v", body["balance"])
	}

	rec = do(t, handler, http.MethodGet, "/api/v1/receipts/stored/1", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected stored receipt, got %d", rec.Code)
	}
	rec = do(t, handler, http.MethodGet, "/api/v1/receipts/stored/99", cashier, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown stored receipt, got %d", rec.Code)
	}

	rec = do(t, handler, http.MethodGet, "/api/v1/financials", manager, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected financials, got %d", rec.Code)
	}
	fin := decodeBody(t, rec)
	if fin["turnover"] != "1.68" || fin["cost_of_sold_goods"] != "2" {
		t.Fatalf("unexpected financials: %v", fin)
	}

	rec = do(t, handler, http.MethodGet, "/metrics", "", nil)
	if !bytes.Contains(rec.Body.Bytes(), []byte(`test_sale_lines_total{entry="sell"} 1`)) {
		t.Fatalf("expected sales counter in metrics output")
	}
}

func TestReceiptSessionOverHTTP(t *testing.T) {
	handler := newTestAPI(t).Handler()
	manager := login(t, handler, "manager", "manager-pass")
	cashier := login(t, handler, "cashier", "cashier-pass")

	if rec := do(t, handler, http.MethodPost, "/api/v1/desks/D2/assign", manager, assignRequest{CashierID: "C2"}); rec.Code != http.StatusOK {
		t.Fatalf("assign failed: %d", rec.Code)
	}

	rec := do(t, handler, http.MethodPost, "/api/v1/receipts", cashier, openReceiptRequest{
		CashierID: "C2",
		Customer:  customerPayload{ID: "K9", Name: "Bob", Balance: decimalOf(t, "5")},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("open receipt failed: %d %s", rec.Code, rec.Body.String())
	}
	if id := decodeBody(t, rec)["customer_id"]; id != "K9" {
		t.Fatalf("expected customer K9, got %v", id)
	}

	rec = do(t, handler, http.MethodPost, "/api/v1/receipts/1/lines", cashier, receiptLineRequest{ProductID: "F1", Quantity: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("add line failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/receipts/1/lines", cashier, receiptLineRequest{ProductID: "F1", Quantity: 0})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422 for zero quantity, got %d", rec.Code)
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/receipts/1/lines", cashier, receiptLineRequest{ProductID: "NOPE", Quantity: 1})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown product, got %d", rec.Code)
	}

	rec = do(t, handler, http.MethodPost, "/api/v1/receipts/1/close", cashier, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("close failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(t, handler, http.MethodPost, "/api/v1/receipts/1/lines", cashier, receiptLineRequest{ProductID: "F1", Quantity: 1})
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for closed receipt, got %d", rec.Code)
	}
	rec = do(t, handler, http.MethodGet, "/api/v1/receipts/abc", cashier, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad receipt number, got %d", rec.Code)
	}
}

func TestAddProductValidation(t *testing.T) {
	handler := newTestAPI(t).Handler()
	manager := login(t, handler, "manager", "manager-pass")

	bad := productRequest{ID: "X1", Name: "Soap", PurchasePrice: decimalOf(t, "1"), Category: "TOYS", Expiry: "2024-05-01", Quantity: 1}
	if rec := do(t, handler, http.MethodPost, "/api/v1/products", manager, bad); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown category, got %d", rec.Code)
	}

	good := bad
	good.Category = string(domain.CategoryNonFoods)
	if rec := do(t, handler, http.MethodPost, "/api/v1/products", manager, good); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := do(t, handler, http.MethodPost, "/api/v1/products", manager, good); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}

	rec := do(t, handler, http.MethodPost, "/api/v1/products/X1/restock", manager, restockRequest{Quantity: 4})
	if rec.Code != http.StatusOK {
		t.Fatalf("restock failed: %d", rec.Code)
	}
	if qty := decodeBody(t, rec)["quantity"]; qty != float64(5) {
		t.Fatalf("expected quantity 5, got %v", qty)
	}
}
