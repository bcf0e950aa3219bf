package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/notify"
	"autoservice/internal/repository"
)

// OrderService реализует логику заказов: резервирование остатков при создании и добавлении позиций,
// возврат остатков при отмене и удалении
type OrderService struct {
	orders   repository.OrderRepository
	ledger   *InventoryLedger
	dir      Directory
	tx       repository.TxManager
	authz    auth.Authorizer
	notifier notify.Notifier
	log      *slog.Logger
	now      func() time.Time
}

func NewOrderService(orders repository.OrderRepository, ledger *InventoryLedger, dir Directory, tx repository.TxManager, authz auth.Authorizer, notifier notify.Notifier, log *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		ledger:   ledger,
		dir:      dir,
		tx:       tx,
		authz:    authz,
		notifier: notifier,
		log:      log,
		now:      time.Now,
	}
}

type OrderItemInput struct {
	ProductID string
	Quantity  int
}

type CreateOrderInput struct {
	ClientID        string
	Items           []OrderItemInput
	ShippingAddress string
	ContactPhone    string
	Notes           string
}

func validateItem(it OrderItemInput) error {
	if it.ProductID == "" {
		return domain.Validation("product id is required")
	}
	if it.Quantity <= 0 {
		return domain.Validation("quantity must be positive, got %d", it.Quantity)
	}
	return nil
}

// CreateOrder проверяет наличие товара и атомарно списывает запас по всем позициям
func (s *OrderService) CreateOrder(ctx context.Context, caller auth.Principal, in CreateOrderInput) (out *domain.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.CreateOrder", caller, attribute.Int("items", len(in.Items)))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.OrderCreate); err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(in.ClientID) {
		return nil, domain.Forbidden("clients may only place orders for themselves")
	}
	if in.ClientID == "" {
		return nil, domain.Validation("client id is required")
	}
	if len(in.Items) == 0 {
		return nil, domain.Validation("order must contain at least one item")
	}
	for _, it := range in.Items {
		if err := validateItem(it); err != nil {
			return nil, err
		}
	}
	client, err := s.dir.ResolveUser(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}

	o := domain.Order{
		ClientID:        client.ID,
		Status:          domain.OrderPending,
		ShippingAddress: strings.TrimSpace(in.ShippingAddress),
		ContactPhone:    strings.TrimSpace(in.ContactPhone),
		Notes:           strings.TrimSpace(in.Notes),
		CreatedAt:       s.now().UTC(),
	}
	// ошибка на k-й позиции откатывает резервы позиций 1..k-1
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		for _, it := range in.Items {
			item, err := s.reserve(ctx, it)
			if err != nil {
				return err
			}
			o.Items = append(o.Items, item)
		}
		o.RecalculateTotal()
		if err := s.orders.Create(ctx, &o); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "order created", "order_id", o.ID, "client_id", o.ClientID, "total", o.TotalAmount.String())
	s.notifier.Notify(ctx, notify.Event{
		EntityType:  notify.EntityOrder,
		EntityID:    o.ID,
		RecipientID: o.ClientID,
		Title:       "Order placed",
		Message:     fmt.Sprintf("Your order for %s has been placed", o.TotalAmount.StringFixed(2)),
	})
	return &o, nil
}

// reserve фиксирует цену товара и списывает остаток через ledger
func (s *OrderService) reserve(ctx context.Context, it OrderItemInput) (domain.OrderItem, error) {
	p, err := s.dir.ResolveProduct(ctx, it.ProductID)
	if err != nil {
		return domain.OrderItem{}, err
	}
	if !p.IsActive {
		return domain.OrderItem{}, domain.BusinessRule("product %q is not available for ordering", p.Name)
	}
	if it.Quantity > p.Quantity {
		return domain.OrderItem{}, domain.InsufficientStock(p.Name, p.Quantity, it.Quantity)
	}
	item := domain.NewOrderItem(*p, it.Quantity)
	if _, err := s.ledger.DecreaseStock(ctx, p.ID, it.Quantity); err != nil {
		return domain.OrderItem{}, err
	}
	return item, nil
}

// release возвращает остатки всех позиций; удалённые товары пропускаются
func (s *OrderService) release(ctx context.Context, o *domain.Order) error {
	for _, it := range o.Items {
		if _, err := s.ledger.IncreaseStock(ctx, it.ProductID, it.Quantity); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				s.log.WarnContext(ctx, "stock release skipped: product deleted", "order_id", o.ID, "product_id", it.ProductID)
				continue
			}
			return err
		}
	}
	return nil
}

func (s *OrderService) get(ctx context.Context, id string) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "order %s not found", id)
	}
	return o, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, caller auth.Principal, id string) (*domain.Order, error) {
	if err := auth.Require(s.authz, caller, auth.OrderRead); err != nil {
		return nil, err
	}
	o, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(o.ClientID) {
		return nil, domain.Forbidden("order %s belongs to another client", id)
	}
	return o, nil
}

func (s *OrderService) ListOrders(ctx context.Context, caller auth.Principal, f repository.OrderFilter) ([]domain.Order, error) {
	if err := auth.Require(s.authz, caller, auth.OrderRead); err != nil {
		return nil, err
	}
	if !caller.IsAdmin() {
		f.ClientID = caller.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Validation("unknown order status %q", f.Status)
	}
	return s.orders.List(ctx, f)
}

// AddItem добавляет позицию в заказ, пока он в статусе PENDING
func (s *OrderService) AddItem(ctx context.Context, caller auth.Principal, orderID string, in OrderItemInput) (out *domain.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.AddItem", caller, attribute.String("order.id", orderID))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.OrderAddItem); err != nil {
		return nil, err
	}
	if err := validateItem(in); err != nil {
		return nil, err
	}
	var updated *domain.Order
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.get(ctx, orderID)
		if err != nil {
			return err
		}
		if !caller.OwnsOrAdmin(o.ClientID) {
			return domain.Forbidden("order %s belongs to another client", orderID)
		}
		if o.Status != domain.OrderPending {
			return domain.BusinessRule("items can only be added to a pending order, current status %s", o.Status)
		}
		item, err := s.reserve(ctx, in)
		if err != nil {
			return err
		}
		o.Items = append(o.Items, item)
		o.RecalculateTotal()
		if err := s.orders.Update(ctx, o); err != nil {
			return translateErr(err, "order %s not found", orderID)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "order item added", "order_id", orderID, "product_id", in.ProductID, "qty", in.Quantity)
	return updated, nil
}

// UpdateStatus переводит заказ по таблице переходов; отмена возвращает остатки
func (s *OrderService) UpdateStatus(ctx context.Context, caller auth.Principal, id string, status domain.OrderStatus) (out *domain.Order, err error) {
	ctx, span := startSpan(ctx, "OrderService.UpdateStatus", caller, attribute.String("order.id", id), attribute.String("status", string(status)))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.OrderUpdateStatus); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.Validation("unknown order status %q", status)
	}
	var (
		updated *domain.Order
		changed bool
	)
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		updated = o
		if o.Status == status {
			return nil
		}
		if !o.Status.CanTransitionTo(status) {
			return domain.BusinessRule("cannot change order status from %s to %s", o.Status, status)
		}
		now := s.now().UTC()
		switch status {
		case domain.OrderConfirmed:
			if o.ConfirmedAt == nil {
				o.ConfirmedAt = &now
			}
		case domain.OrderShipped:
			if o.ShippedAt == nil {
				o.ShippedAt = &now
			}
		case domain.OrderDelivered:
			if o.DeliveredAt == nil {
				o.DeliveredAt = &now
			}
		}
		o.Status = status
		// сначала версионная запись: проигравший в гонке отмен получает конфликт и остатки не трогает
		if err := s.orders.Update(ctx, o); err != nil {
			return translateErr(err, "order %s not found", id)
		}
		if status == domain.OrderCancelled {
			if err := s.release(ctx, o); err != nil {
				return err
			}
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.InfoContext(ctx, "order status changed", "order_id", id, "to", status)
		s.notifier.Notify(ctx, notify.Event{
			EntityType:  notify.EntityOrder,
			EntityID:    updated.ID,
			RecipientID: updated.ClientID,
			Title:       "Order status updated",
			Message:     fmt.Sprintf("Your order status changed to %s", status),
		})
	}
	return updated, nil
}

// DeleteOrder удаляет заказ; если он не был отменён, остатки возвращаются на склад
func (s *OrderService) DeleteOrder(ctx context.Context, caller auth.Principal, id string) (err error) {
	ctx, span := startSpan(ctx, "OrderService.DeleteOrder", caller, attribute.String("order.id", id))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.OrderDelete); err != nil {
		return err
	}
	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.get(ctx, id)
		if err != nil {
			return err
		}
		if !caller.OwnsOrAdmin(o.ClientID) {
			return domain.Forbidden("order %s belongs to another client", id)
		}
		if !o.Status.Deletable() {
			return domain.BusinessRule("cannot delete order in status %s", o.Status)
		}
		if err := s.orders.Delete(ctx, id, o.Version); err != nil {
			return translateErr(err, "order %s not found", id)
		}
		if o.Status != domain.OrderCancelled {
			return s.release(ctx, o)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.log.InfoContext(ctx, "order deleted", "order_id", id)
	return nil
}

func (s *OrderService) Statuses() []domain.OrderStatus {
	return append([]domain.OrderStatus(nil), domain.OrderStatuses...)
}
