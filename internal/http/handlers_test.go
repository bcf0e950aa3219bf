package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/idempotency"
	"autoservice/internal/notify"
	"autoservice/internal/repository"
	"autoservice/internal/service"
)

type testServer struct {
	*Server
	st     *repository.Store
	tokens map[string]string
}

func setupServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	st := repository.NewMemory()
	policy, err := auth.NewPolicy()
	if err != nil {
		t.Fatal(err)
	}
	iss := auth.NewIssuer("test-secret", time.Hour)
	dispatcher := notify.NewDispatcher(log, 1, 16, []notify.Sink{notify.NewLogSink(log)})
	t.Cleanup(dispatcher.Close)

	dir := service.NewDirectory(st)
	ledger := service.NewInventoryLedger(st.Products, log)
	s := NewServer(Deps{
		Users:        service.NewUserService(st.Users, policy),
		Catalog:      service.NewCatalogService(st.Services, policy),
		Products:     service.NewProductService(st.Products, ledger, policy),
		Appointments: service.NewAppointmentService(st.Appointments, dir, policy, dispatcher, log),
		Orders:       service.NewOrderService(st.Orders, ledger, dir, st.Tx, policy, dispatcher, log),
		Issuer:       iss,
		Idempotency:  idempotency.NewMemoryStore(time.Hour),
		Log:          log,
	})

	ts := &testServer{Server: s, st: st, tokens: map[string]string{}}
	for id, role := range map[string]domain.Role{
		"admin-1":  domain.RoleAdmin,
		"client-1": domain.RoleClient,
		"client-2": domain.RoleClient,
		"master-1": domain.RoleMaster,
	} {
		if err := st.Users.Create(context.Background(), &domain.User{ID: id, Email: id + "@example.com", FirstName: id, Role: role}); err != nil {
			t.Fatal(err)
		}
		tok, err := iss.Issue(auth.Principal{UserID: id, Roles: []domain.Role{role}})
		if err != nil {
			t.Fatal(err)
		}
		ts.tokens[id] = tok
	}
	return ts
}

func (ts *testServer) do(t *testing.T, as, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.Header.Set("Authorization", "Bearer "+ts.tokens[as])
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	ts.Engine().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func (ts *testServer) product(t *testing.T, name string, qty int) domain.Product {
	t.Helper()
	w := ts.do(t, "admin-1", http.MethodPost, "/api/v1/products", map[string]any{
		"name": name, "part_number": "PN-" + name, "price": "10.50", "quantity": qty,
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product %v: %s", w.Code, w.Body.String())
	}
	return decode[domain.Product](t, w)
}

func TestProductFlow(t *testing.T) {
	ts := setupServer(t)
	p := ts.product(t, "Brake pad", 5)
	if !p.IsActive || p.Quantity != 5 {
		t.Fatalf("unexpected product %+v", p)
	}

	w := ts.do(t, "", http.MethodGet, "/api/v1/products/"+p.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get code %v", w.Code)
	}

	w = ts.do(t, "admin-1", http.MethodPut, "/api/v1/products/"+p.ID, map[string]any{
		"name": "Brake pad+", "part_number": p.PartNumber, "price": 12, "quantity": 70,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("update code %v: %s", w.Code, w.Body.String())
	}
	if up := decode[domain.Product](t, w); up.Quantity != 5 || up.Name != "Brake pad+" {
		t.Fatalf("update must not touch stock: %+v", up)
	}

	w = ts.do(t, "", http.MethodGet, "/api/v1/products?q=brake&low_stock=true", nil)
	if list := decode[[]domain.Product](t, w); w.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list %v: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "admin-1", http.MethodPut, "/api/v1/products/"+p.ID+"/stock/decrease?quantity=9", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
	er := decode[errorResponse](t, w)
	if er.Error != "BUSINESS_RULE_VIOLATION" || er.Details["available"] != float64(5) {
		t.Fatalf("unexpected error body %s", w.Body.String())
	}

	w = ts.do(t, "admin-1", http.MethodPut, "/api/v1/products/"+p.ID+"/stock/increase?quantity=3", nil)
	if up := decode[domain.Product](t, w); w.Code != http.StatusOK || up.Quantity != 8 {
		t.Fatalf("increase %v: %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "admin-1", http.MethodDelete, "/api/v1/products/"+p.ID, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete code %v", w.Code)
	}
	w = ts.do(t, "", http.MethodGet, "/api/v1/products/"+p.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %v", w.Code)
	}
}

func TestOrderFlow(t *testing.T) {
	ts := setupServer(t)
	p := ts.product(t, "Filter", 5)

	w := ts.do(t, "client-1", http.MethodPost, "/api/v1/orders", map[string]any{
		"items":         []map[string]any{{"product_id": p.ID, "quantity": 3}},
		"contact_phone": "+7 (900) 123-45-67",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("create order %v: %s", w.Code, w.Body.String())
	}
	o := decode[domain.Order](t, w)
	if o.ClientID != "client-1" || o.Status != domain.OrderPending || o.TotalAmount.String() != "31.5" {
		t.Fatalf("unexpected order %+v", o)
	}

	if w = ts.do(t, "client-1", http.MethodGet, "/api/v1/orders/"+o.ID, nil); w.Code != http.StatusOK {
		t.Fatalf("get order %v", w.Code)
	}
	if w = ts.do(t, "client-2", http.MethodGet, "/api/v1/orders/"+o.ID, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign order must be 403, got %v", w.Code)
	}

	w = ts.do(t, "client-1", http.MethodPost, "/api/v1/orders/"+o.ID+"/items", map[string]any{"product_id": p.ID, "quantity": 3})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("overselling add item must be 400, got %v", w.Code)
	}
	w = ts.do(t, "client-1", http.MethodPost, "/api/v1/orders/"+o.ID+"/items", map[string]any{"product_id": p.ID, "quantity": 2})
	if w.Code != http.StatusOK {
		t.Fatalf("add item %v: %s", w.Code, w.Body.String())
	}

	if w = ts.do(t, "client-1", http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "CANCELLED"}); w.Code != http.StatusForbidden {
		t.Fatalf("clients may not change order status, got %v", w.Code)
	}
	w = ts.do(t, "admin-1", http.MethodPut, "/api/v1/orders/"+o.ID+"/status", map[string]any{"status": "CANCELLED"})
	if w.Code != http.StatusOK {
		t.Fatalf("cancel %v: %s", w.Code, w.Body.String())
	}
	w = ts.do(t, "", http.MethodGet, "/api/v1/products/"+p.ID, nil)
	if got := decode[domain.Product](t, w); got.Quantity != 5 {
		t.Fatalf("stock must be restored, got %d", got.Quantity)
	}

	w = ts.do(t, "client-1", http.MethodGet, "/api/v1/orders", nil)
	if list := decode[[]domain.Order](t, w); len(list) != 1 {
		t.Fatalf("expected 1 order, got %d", len(list))
	}
	if w = ts.do(t, "client-1", http.MethodDelete, "/api/v1/orders/"+o.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete order %v", w.Code)
	}
}

func TestAppointmentFlow(t *testing.T) {
	ts := setupServer(t)
	w := ts.do(t, "admin-1", http.MethodPost, "/api/v1/services", map[string]any{"name": "Oil change", "price": 50, "duration_minutes": 60})
	if w.Code != http.StatusCreated {
		t.Fatalf("create service %v: %s", w.Code, w.Body.String())
	}
	svc := decode[domain.Service](t, w)

	when := "2099-03-02T10:00:00Z"
	body := map[string]any{"service_id": svc.ID, "master_id": "master-1", "appointment_date": when}
	w = ts.do(t, "client-1", http.MethodPost, "/api/v1/appointments", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("book %v: %s", w.Code, w.Body.String())
	}
	a := decode[domain.Appointment](t, w)

	w = ts.do(t, "client-2", http.MethodPost, "/api/v1/appointments", body)
	if w.Code != http.StatusBadRequest || decode[errorResponse](t, w).Error != "BUSINESS_RULE_VIOLATION" {
		t.Fatalf("double booking must be rejected, got %v %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "", http.MethodGet, "/api/v1/appointments/available-slots/master-1?date=2099-03-02", nil)
	if slots := decode[[]time.Time](t, w); w.Code != http.StatusOK || len(slots) != 8 {
		t.Fatalf("slots %v: %s", w.Code, w.Body.String())
	}
	if w = ts.do(t, "", http.MethodGet, "/api/v1/appointments/available-slots/master-1?date=tomorrow", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("bad date must be 400, got %v", w.Code)
	}

	w = ts.do(t, "master-1", http.MethodPut, "/api/v1/appointments/"+a.ID+"/status", map[string]any{"status": "CONFIRMED"})
	if w.Code != http.StatusOK {
		t.Fatalf("confirm %v: %s", w.Code, w.Body.String())
	}
	if w = ts.do(t, "master-1", http.MethodGet, "/api/v1/appointments", nil); len(decode[[]domain.Appointment](t, w)) != 1 {
		t.Fatalf("master must see assigned appointment: %s", w.Body.String())
	}
	if w = ts.do(t, "client-2", http.MethodDelete, "/api/v1/appointments/"+a.ID, nil); w.Code != http.StatusForbidden {
		t.Fatalf("foreign delete must be 403, got %v", w.Code)
	}
	if w = ts.do(t, "client-1", http.MethodDelete, "/api/v1/appointments/"+a.ID, nil); w.Code != http.StatusNoContent {
		t.Fatalf("delete %v", w.Code)
	}

	w = ts.do(t, "", http.MethodGet, "/api/v1/appointments/statuses", nil)
	if st := decode[[]string](t, w); len(st) != 5 {
		t.Fatalf("unexpected statuses %v", st)
	}
}

func TestHTTP_AuthErrors(t *testing.T) {
	ts := setupServer(t)
	if w := ts.do(t, "", http.MethodPost, "/api/v1/orders", map[string]any{}); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %v", w.Code)
	}
	w := ts.do(t, "client-1", http.MethodPost, "/api/v1/products", map[string]any{"name": "A", "part_number": "A", "price": 1})
	if w.Code != http.StatusForbidden || decode[errorResponse](t, w).Error != "FORBIDDEN" {
		t.Fatalf("expected 403, got %v %s", w.Code, w.Body.String())
	}
	if w := ts.do(t, "client-1", http.MethodGet, "/api/v1/users/client-2", nil); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %v", w.Code)
	}
	if w := ts.do(t, "client-1", http.MethodGet, "/api/v1/users/client-1", nil); w.Code != http.StatusOK {
		t.Fatalf("self read expected 200, got %v", w.Code)
	}
}

func TestHTTP_BadRequests(t *testing.T) {
	ts := setupServer(t)
	w := ts.do(t, "admin-1", http.MethodPost, "/api/v1/products", map[string]any{"name": ""})
	if w.Code != http.StatusBadRequest || decode[errorResponse](t, w).Error != "VALIDATION_ERROR" {
		t.Fatalf("expected 400, got %v %s", w.Code, w.Body.String())
	}

	w = ts.do(t, "admin-1", http.MethodPost, "/api/v1/users", map[string]any{
		"email": "new@example.com", "first_name": "N", "role": "CLIENT", "phone": "call me",
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad phone expected 400, got %v", w.Code)
	}
	if er := decode[errorResponse](t, w); er.Details["Phone"] != "phone" {
		t.Fatalf("expected phone field error, got %s", w.Body.String())
	}

	w = ts.do(t, "client-1", http.MethodPost, "/api/v1/orders", map[string]any{"items": []map[string]any{}})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty order expected 400, got %v", w.Code)
	}
	if w = ts.do(t, "admin-1", http.MethodPut, "/api/v1/products/x/stock/increase?quantity=abc", nil); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %v", w.Code)
	}
}

func TestHTTP_IdempotentCreate(t *testing.T) {
	ts := setupServer(t)
	p := ts.product(t, "Filter", 5)
	body := map[string]any{"items": []map[string]any{{"product_id": p.ID, "quantity": 1}}}

	if w := ts.do(t, "client-1", http.MethodPost, "/api/v1/orders", body, idempotency.Header, "k1"); w.Code != http.StatusCreated {
		t.Fatalf("first %v", w.Code)
	}
	if w := ts.do(t, "client-1", http.MethodPost, "/api/v1/orders", body, idempotency.Header, "k1"); w.Code != http.StatusConflict {
		t.Fatalf("replay expected 409, got %v", w.Code)
	}
	// ключи разных пользователей не пересекаются
	if w := ts.do(t, "client-2", http.MethodPost, "/api/v1/orders", body, idempotency.Header, "k1"); w.Code != http.StatusCreated {
		t.Fatalf("other user %v", w.Code)
	}
	w := ts.do(t, "", http.MethodGet, "/api/v1/products/"+p.ID, nil)
	if got := decode[domain.Product](t, w); got.Quantity != 3 {
		t.Fatalf("expected stock 3, got %d", got.Quantity)
	}
}

func TestHealth(t *testing.T) {
	ts := setupServer(t)
	if w := ts.do(t, "", http.MethodGet, "/health", nil); w.Code != http.StatusOK {
		t.Fatalf("health %v", w.Code)
	}
}
