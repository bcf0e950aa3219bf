package notify

//go:generate mockgen -source=notify.go -destination=mock_notify.go -package=notify

import (
	"context"
	"time"
)

type EntityType string

const (
	EntityAppointment EntityType = "APPOINTMENT"
	EntityOrder       EntityType = "ORDER"
)

// Event уведомление о смене состояния записи или заказа
type Event struct {
	EntityType  EntityType `json:"entity_type"`
	EntityID    string     `json:"entity_id"`
	RecipientID string     `json:"recipient_id"`
	Title       string     `json:"title"`
	Message     string     `json:"message"`
	CreatedAt   time.Time  `json:"created_at"`
}

// Notifier принимает событие и не ждёт доставки
type Notifier interface {
	Notify(ctx context.Context, e Event)
}

// Sink конечный канал доставки
type Sink interface {
	Deliver(ctx context.Context, e Event) error
}
