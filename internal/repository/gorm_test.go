package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"autoservice/internal/domain"
)

func setupGorm(t *testing.T) *Store {
	t.Helper()
	db, err := OpenGorm("sqlite", filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sqlDB, _ := db.DB()
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewGorm(db)
}

func TestGormProducts_AdjustStock(t *testing.T) {
	ctx := context.Background()
	st := setupGorm(t)

	p := domain.Product{Name: "Spark plug", PartNumber: "SP-1", Price: decimal.RequireFromString("7.50"), Quantity: 3}
	if err := st.Products.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.IsActive {
		t.Fatalf("inactive flag must be kept")
	}

	got, err := st.Products.AdjustStock(ctx, p.ID, -2)
	if err != nil || got.Quantity != 1 {
		t.Fatalf("decrease: %v %+v", err, got)
	}
	if _, err := st.Products.AdjustStock(ctx, p.ID, -2); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	got, _ = st.Products.GetByID(ctx, p.ID)
	if got.Quantity != 1 {
		t.Fatalf("stock must be unchanged, got %d", got.Quantity)
	}
	if !got.Price.Equal(decimal.RequireFromString("7.5")) {
		t.Fatalf("price roundtrip: %s", got.Price)
	}
	if _, err := st.Products.AdjustStock(ctx, "missing", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	dup := domain.Product{Name: "Copy", PartNumber: "SP-1", Price: decimal.NewFromInt(1)}
	if err := st.Products.Create(ctx, &dup); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("expected duplicate, got %v", err)
	}
}

func TestGormAppointments_SlotUnique(t *testing.T) {
	ctx := context.Background()
	st := setupGorm(t)
	master := "m1"
	at := time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC)

	a := domain.Appointment{ClientID: "c1", MasterID: &master, ServiceID: "s1", AppointmentDate: at, Status: domain.AppointmentPending, TotalPrice: decimal.NewFromInt(50)}
	if err := st.Appointments.Create(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	b := domain.Appointment{ClientID: "c2", MasterID: &master, ServiceID: "s1", AppointmentDate: at, Status: domain.AppointmentPending, TotalPrice: decimal.NewFromInt(50)}
	if err := st.Appointments.Create(ctx, &b); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected slot taken, got %v", err)
	}

	// две записи без мастера на одно время допустимы
	for i := 0; i < 2; i++ {
		c := domain.Appointment{ClientID: "c3", ServiceID: "s1", AppointmentDate: at, Status: domain.AppointmentPending, TotalPrice: decimal.NewFromInt(50)}
		if err := st.Appointments.Create(ctx, &c); err != nil {
			t.Fatalf("create without master: %v", err)
		}
	}

	a.Status = domain.AppointmentConfirmed
	if err := st.Appointments.Update(ctx, &a); err != nil {
		t.Fatalf("self update: %v", err)
	}
	got, err := st.Appointments.GetByID(ctx, a.ID)
	if err != nil || got.Status != domain.AppointmentConfirmed || !got.AppointmentDate.Equal(at) {
		t.Fatalf("get: %v %+v", err, got)
	}
}

func TestGormAppointments_StaleVersion(t *testing.T) {
	ctx := context.Background()
	st := setupGorm(t)
	master := "m1"

	a := domain.Appointment{ClientID: "c1", MasterID: &master, ServiceID: "s1", AppointmentDate: time.Date(2030, 3, 1, 9, 0, 0, 0, time.UTC), Status: domain.AppointmentConfirmed, TotalPrice: decimal.NewFromInt(50)}
	if err := st.Appointments.Create(ctx, &a); err != nil {
		t.Fatalf("create: %v", err)
	}
	stale, _ := st.Appointments.GetByID(ctx, a.ID)

	a.Status = domain.AppointmentInProgress
	if err := st.Appointments.Update(ctx, &a); err != nil || a.Version != 2 {
		t.Fatalf("update: %v version=%d", err, a.Version)
	}
	stale.Status = domain.AppointmentCancelled
	if err := st.Appointments.Update(ctx, stale); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := st.Appointments.Delete(ctx, a.ID, 1); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on stale delete, got %v", err)
	}
	got, _ := st.Appointments.GetByID(ctx, a.ID)
	if got.Status != domain.AppointmentInProgress || got.Version != 2 {
		t.Fatalf("stale write leaked: %+v", got)
	}
	if err := st.Appointments.Update(ctx, &domain.Appointment{ID: "missing", Version: 1}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGormOrders_ItemsAndRollback(t *testing.T) {
	ctx := context.Background()
	st := setupGorm(t)

	p := domain.Product{Name: "Pad", PartNumber: "P-1", Price: decimal.NewFromInt(20), Quantity: 4, IsActive: true}
	if err := st.Products.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	o := domain.Order{ClientID: "c1", Status: domain.OrderPending, Items: []domain.OrderItem{domain.NewOrderItem(p, 1)}}
	o.RecalculateTotal()
	if err := st.Orders.Create(ctx, &o); err != nil {
		t.Fatalf("create: %v", err)
	}

	o.Items = append(o.Items, domain.NewOrderItem(p, 2))
	o.RecalculateTotal()
	if err := st.Orders.Update(ctx, &o); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := st.Orders.GetByID(ctx, o.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Items) != 2 || got.Items[1].Quantity != 2 || !got.TotalAmount.Equal(decimal.NewFromInt(60)) {
		t.Fatalf("unexpected order: %+v", got)
	}

	err = st.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := st.Products.AdjustStock(ctx, p.ID, -3); err != nil {
			return err
		}
		if err := st.Orders.Delete(ctx, o.ID, o.Version); err != nil {
			return err
		}
		_, err := st.Products.AdjustStock(ctx, p.ID, -3)
		return err
	})
	if !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	pp, _ := st.Products.GetByID(ctx, p.ID)
	if pp.Quantity != 4 {
		t.Fatalf("stock must be rolled back, got %d", pp.Quantity)
	}
	if _, err := st.Orders.GetByID(ctx, o.ID); err != nil {
		t.Fatalf("order delete must be rolled back: %v", err)
	}

	if err := st.Orders.Delete(ctx, o.ID, o.Version-1); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected conflict on stale delete, got %v", err)
	}
	if err := st.Orders.Delete(ctx, o.ID, o.Version); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := st.Orders.GetByID(ctx, o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
