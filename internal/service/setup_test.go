package service

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/notify"
	"autoservice/internal/repository"
)

var testNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

type env struct {
	st       *repository.Store
	products *ProductService
	orders   *OrderService
	appts    *AppointmentService
	notifier *notify.MockNotifier
	policy   auth.Authorizer
	log      *slog.Logger

	admin   auth.Principal
	client  auth.Principal
	client2 auth.Principal
	master  auth.Principal
	master2 auth.Principal
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	st := repository.NewMemory()
	policy, err := auth.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}
	n := notify.NewMockNotifier(gomock.NewController(t))
	dir := NewDirectory(st)
	ledger := NewInventoryLedger(st.Products, log)

	e := &env{
		st:       st,
		policy:   policy,
		log:      log,
		products: NewProductService(st.Products, ledger, policy),
		orders:   NewOrderService(st.Orders, ledger, dir, st.Tx, policy, n, log),
		appts:    NewAppointmentService(st.Appointments, dir, policy, n, log, WithClock(func() time.Time { return testNow })),
		notifier: n,
	}
	users := []struct {
		p    *auth.Principal
		id   string
		role domain.Role
	}{
		{&e.admin, "admin-1", domain.RoleAdmin},
		{&e.client, "client-1", domain.RoleClient},
		{&e.client2, "client-2", domain.RoleClient},
		{&e.master, "master-1", domain.RoleMaster},
		{&e.master2, "master-2", domain.RoleMaster},
	}
	for _, u := range users {
		if err := st.Users.Create(ctx, &domain.User{ID: u.id, Email: u.id + "@example.com", FirstName: u.id, Role: u.role}); err != nil {
			t.Fatalf("seed user: %v", err)
		}
		*u.p = auth.Principal{UserID: u.id, Roles: []domain.Role{u.role}}
	}
	return e
}

// allowNotifications для тестов, которым не важны уведомления
func (e *env) allowNotifications() {
	e.notifier.EXPECT().Notify(gomock.Any(), gomock.Any()).AnyTimes()
}

func (e *env) product(t *testing.T, name string, price int64, qty int) *domain.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), e.admin, domain.Product{
		Name: name, PartNumber: "PN-" + name, Price: decimal.NewFromInt(price), Quantity: qty, IsActive: true,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (e *env) service(t *testing.T, price int64) *domain.Service {
	t.Helper()
	s := domain.Service{Name: "Oil change", Price: decimal.NewFromInt(price), DurationMinutes: 60, IsActive: true}
	if err := e.st.Services.Create(context.Background(), &s); err != nil {
		t.Fatalf("create service: %v", err)
	}
	return &s
}

func (e *env) stock(t *testing.T, id string) int {
	t.Helper()
	p, err := e.st.Products.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	return p.Quantity
}
