package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAppointmentTransitions(t *testing.T) {
	allowed := map[[2]AppointmentStatus]bool{
		{AppointmentPending, AppointmentConfirmed}:    true,
		{AppointmentPending, AppointmentCancelled}:    true,
		{AppointmentConfirmed, AppointmentInProgress}: true,
		{AppointmentConfirmed, AppointmentCancelled}:  true,
		{AppointmentInProgress, AppointmentCompleted}: true,
		{AppointmentInProgress, AppointmentCancelled}: true,
	}
	for _, from := range AppointmentStatuses {
		for _, to := range AppointmentStatuses {
			got := from.CanTransitionTo(to)
			if got != allowed[[2]AppointmentStatus{from, to}] {
				t.Fatalf("%s -> %s: got %v", from, to, got)
			}
		}
	}
	if !AppointmentCompleted.Terminal() || !AppointmentCancelled.Terminal() || AppointmentPending.Terminal() {
		t.Fatalf("terminal states wrong")
	}
	if AppointmentInProgress.Deletable() || AppointmentCompleted.Deletable() || !AppointmentPending.Deletable() {
		t.Fatalf("deletable states wrong")
	}
}

func TestOrderTransitions(t *testing.T) {
	chain := []OrderStatus{OrderPending, OrderConfirmed, OrderPreparing, OrderShipped, OrderDelivered}
	for i := 0; i < len(chain)-1; i++ {
		if !chain[i].CanTransitionTo(chain[i+1]) {
			t.Fatalf("%s -> %s should be allowed", chain[i], chain[i+1])
		}
		if !chain[i].CanTransitionTo(OrderCancelled) {
			t.Fatalf("%s -> CANCELLED should be allowed", chain[i])
		}
		if chain[i+1].CanTransitionTo(chain[i]) {
			t.Fatalf("backward %s -> %s should be rejected", chain[i+1], chain[i])
		}
	}
	if OrderDelivered.CanTransitionTo(OrderCancelled) || OrderCancelled.CanTransitionTo(OrderPending) {
		t.Fatalf("terminal states must not transition")
	}
	if OrderShipped.Deletable() || OrderDelivered.Deletable() || !OrderCancelled.Deletable() {
		t.Fatalf("deletable states wrong")
	}
	if OrderStatus("LOST").Valid() {
		t.Fatalf("unknown status must be invalid")
	}
}

func TestOrderTotals(t *testing.T) {
	a := Product{ID: "a", Name: "A", Price: decimal.NewFromInt(100)}
	b := Product{ID: "b", Name: "B", Price: decimal.NewFromInt(50)}
	o := Order{Items: []OrderItem{NewOrderItem(a, 3), NewOrderItem(b, 1)}}
	o.RecalculateTotal()
	if !o.TotalAmount.Equal(decimal.NewFromInt(350)) {
		t.Fatalf("expected 350, got %s", o.TotalAmount)
	}
}

func TestErrorKinds(t *testing.T) {
	err := fmt.Errorf("wrap: %w", InsufficientStock("Oil filter", 2, 5))
	if !errors.Is(err, ErrBusinessRule) {
		t.Fatalf("expected business rule kind")
	}
	if errors.Is(err, ErrNotFound) {
		t.Fatalf("unexpected not found kind")
	}
	if KindOf(err) != KindBusinessRule {
		t.Fatalf("kind: %s", KindOf(err))
	}
	if KindOf(errors.New("boom")) != KindInternalError {
		t.Fatalf("plain errors are internal")
	}
}
