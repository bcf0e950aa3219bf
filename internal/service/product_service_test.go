package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"autoservice/internal/domain"
	"autoservice/internal/repository"
)

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p, err := e.products.Create(ctx, e.admin, domain.Product{Name: "Brake pad", PartNumber: "BP-1", Price: decimal.NewFromInt(100), Quantity: 10})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected id assigned")
	}
	if p.Category != domain.CategoryOther {
		t.Fatalf("default category expected, got %s", p.Category)
	}
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	one := decimal.NewFromInt(1)
	invalid := []domain.Product{
		{Name: "", PartNumber: "S", Price: one, Quantity: 1},
		{Name: "N", PartNumber: "", Price: one, Quantity: 1},
		{Name: "N", PartNumber: "S", Price: decimal.NewFromInt(-1), Quantity: 1},
		{Name: "N", PartNumber: "S", Price: one, Quantity: -1},
		{Name: "N", PartNumber: "S", Price: one, Quantity: 1, Category: "FOOD"},
	}
	for _, p := range invalid {
		if _, err := e.products.Create(ctx, e.admin, p); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("expected validation error for %+v, got %v", p, err)
		}
	}
	if _, err := e.products.Create(ctx, e.client, domain.Product{Name: "N", PartNumber: "S", Price: one}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("clients may not manage products, got %v", err)
	}

	_, _ = e.products.Create(ctx, e.admin, domain.Product{Name: "N", PartNumber: "DUP", Price: one})
	if _, err := e.products.Create(ctx, e.admin, domain.Product{Name: "M", PartNumber: "DUP", Price: one}); !errors.Is(err, domain.ErrBusinessRule) {
		t.Fatalf("duplicate part number must be rejected, got %v", err)
	}
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 10, 5)

	got, err := e.products.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get failed: %v", err)
	}

	// остаток через Update не меняется
	p.Name = "A+"
	p.Price = decimal.NewFromInt(12)
	p.Quantity = 70
	up, err := e.products.Update(ctx, e.admin, *p)
	if err != nil {
		t.Fatalf("update err: %v", err)
	}
	if up.Name != "A+" || !up.Price.Equal(decimal.NewFromInt(12)) || up.Quantity != 5 {
		t.Fatalf("unexpected update result %+v", up)
	}

	toggled, err := e.products.ToggleStatus(ctx, e.admin, p.ID)
	if err != nil || toggled.IsActive {
		t.Fatalf("toggle: %v %+v", err, toggled)
	}

	if err := e.products.Delete(ctx, e.admin, p.ID); err != nil {
		t.Fatalf("delete err: %v", err)
	}
	if _, err := e.products.GetByID(ctx, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := e.products.Delete(ctx, e.admin, p.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestInventory_DecreaseStock(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	a := e.product(t, "A", 10, 10)

	if _, err := e.products.DecreaseStock(ctx, e.admin, a.ID, 3); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	// запрошено больше, чем есть: остаток не меняется
	_, err := e.products.DecreaseStock(ctx, e.admin, a.ID, 9)
	if !errors.Is(err, domain.ErrBusinessRule) {
		t.Fatalf("expected business rule violation, got %v", err)
	}
	if e.stock(t, a.ID) != 7 {
		t.Fatalf("stock expected 7, got %d", e.stock(t, a.ID))
	}

	for _, q := range []int{0, -1} {
		if _, err := e.products.IncreaseStock(ctx, e.admin, a.ID, q); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("increase %d: expected validation, got %v", q, err)
		}
		if _, err := e.products.DecreaseStock(ctx, e.admin, a.ID, q); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("decrease %d: expected validation, got %v", q, err)
		}
	}
	p, err := e.products.IncreaseStock(ctx, e.admin, a.ID, 5)
	if err != nil || p.Quantity != 12 {
		t.Fatalf("increase: %v %+v", err, p)
	}
	if _, err := e.products.IncreaseStock(ctx, e.admin, "missing", 1); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestProduct_List_Filtering(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	e.product(t, "Brake disc", 100, 5)
	e.product(t, "Oil filter", 50, 50)
	e.product(t, "Air filter", 150, 0)

	list, err := e.products.List(ctx, repository.ProductFilter{NameSubstring: "filter"})
	if err != nil {
		t.Fatalf("list err: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list))
	}

	min := decimal.NewFromInt(100)
	list, _ = e.products.List(ctx, repository.ProductFilter{MinPrice: &min})
	for _, p := range list {
		if p.Price.LessThan(min) {
			t.Fatalf("price filter failed")
		}
	}

	list, _ = e.products.List(ctx, repository.ProductFilter{LowStockOnly: true})
	if len(list) != 1 || list[0].Name != "Brake disc" {
		t.Fatalf("low stock filter failed: %+v", list)
	}

	max := decimal.NewFromInt(10)
	if _, err := e.products.List(ctx, repository.ProductFilter{MinPrice: &min, MaxPrice: &max}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("inverted price range must fail, got %v", err)
	}
}
