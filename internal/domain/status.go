package domain

// AppointmentStatus статус записи
type AppointmentStatus string

const (
	AppointmentPending    AppointmentStatus = "PENDING"
	AppointmentConfirmed  AppointmentStatus = "CONFIRMED"
	AppointmentInProgress AppointmentStatus = "IN_PROGRESS"
	AppointmentCompleted  AppointmentStatus = "COMPLETED"
	AppointmentCancelled  AppointmentStatus = "CANCELLED"
)

// AppointmentStatuses в порядке жизненного цикла
var AppointmentStatuses = []AppointmentStatus{
	AppointmentPending,
	AppointmentConfirmed,
	AppointmentInProgress,
	AppointmentCompleted,
	AppointmentCancelled,
}

var appointmentTransitions = map[AppointmentStatus][]AppointmentStatus{
	AppointmentPending:    {AppointmentConfirmed, AppointmentCancelled},
	AppointmentConfirmed:  {AppointmentInProgress, AppointmentCancelled},
	AppointmentInProgress: {AppointmentCompleted, AppointmentCancelled},
}

func (s AppointmentStatus) Valid() bool {
	for _, v := range AppointmentStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentCompleted || s == AppointmentCancelled
}

// CanTransitionTo проверяет пару (текущий, запрошенный) по таблице переходов
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	for _, v := range appointmentTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Deletable запись нельзя удалить после начала работ
func (s AppointmentStatus) Deletable() bool {
	return s != AppointmentInProgress && s != AppointmentCompleted
}

// OrderStatus статус заказа
type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderConfirmed OrderStatus = "CONFIRMED"
	OrderPreparing OrderStatus = "PREPARING"
	OrderShipped   OrderStatus = "SHIPPED"
	OrderDelivered OrderStatus = "DELIVERED"
	OrderCancelled OrderStatus = "CANCELLED"
)

var OrderStatuses = []OrderStatus{
	OrderPending,
	OrderConfirmed,
	OrderPreparing,
	OrderShipped,
	OrderDelivered,
	OrderCancelled,
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderPending:   {OrderConfirmed, OrderCancelled},
	OrderConfirmed: {OrderPreparing, OrderCancelled},
	OrderPreparing: {OrderShipped, OrderCancelled},
	OrderShipped:   {OrderDelivered, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderDelivered || s == OrderCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, v := range orderTransitions[s] {
		if v == next {
			return true
		}
	}
	return false
}

// Deletable отправленный или доставленный заказ удалить нельзя
func (s OrderStatus) Deletable() bool {
	return s != OrderShipped && s != OrderDelivered
}
