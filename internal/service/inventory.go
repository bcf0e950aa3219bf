package service

import (
	"context"
	"errors"
	"log/slog"

	"autoservice/internal/domain"
	"autoservice/internal/repository"
)

// InventoryLedger единственный путь изменения остатков.
// Каждое изменение выполняется одной условной записью в хранилище.
type InventoryLedger struct {
	products repository.ProductRepository
	log      *slog.Logger
}

func NewInventoryLedger(products repository.ProductRepository, log *slog.Logger) *InventoryLedger {
	return &InventoryLedger{products: products, log: log}
}

func (l *InventoryLedger) IncreaseStock(ctx context.Context, productID string, qty int) (*domain.Product, error) {
	if qty <= 0 {
		return nil, domain.Validation("quantity must be positive, got %d", qty)
	}
	p, err := l.products.AdjustStock(ctx, productID, qty)
	if err != nil {
		return nil, translateErr(err, "product %s not found", productID)
	}
	l.log.DebugContext(ctx, "stock increased", "product_id", productID, "qty", qty, "quantity", p.Quantity)
	return p, nil
}

// DecreaseStock списывает qty; при нехватке остаток не меняется
func (l *InventoryLedger) DecreaseStock(ctx context.Context, productID string, qty int) (*domain.Product, error) {
	if qty <= 0 {
		return nil, domain.Validation("quantity must be positive, got %d", qty)
	}
	p, err := l.products.AdjustStock(ctx, productID, -qty)
	if errors.Is(err, repository.ErrInsufficientStock) {
		name, available := productID, 0
		if cur, gerr := l.products.GetByID(ctx, productID); gerr == nil {
			name, available = cur.Name, cur.Quantity
		}
		return nil, domain.InsufficientStock(name, available, qty)
	}
	if err != nil {
		return nil, translateErr(err, "product %s not found", productID)
	}
	l.log.DebugContext(ctx, "stock decreased", "product_id", productID, "qty", qty, "quantity", p.Quantity)
	return p, nil
}
