package repository

import (
	"time"

	"github.com/shopspring/decimal"

	"autoservice/internal/domain"
)

type productRow struct {
	ID          string          `gorm:"primaryKey;type:varchar(36)"`
	Name        string          `gorm:"not null;index"`
	Description string
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Quantity    int             `gorm:"not null;check:quantity >= 0"`
	Category    string          `gorm:"type:varchar(32);index"`
	Brand       string
	PartNumber  string `gorm:"type:varchar(64);uniqueIndex"`
	IsActive    bool   `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

func (productRow) TableName() string { return "products" }

func productToRow(p *domain.Product) productRow {
	return productRow{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Quantity:    p.Quantity,
		Category:    string(p.Category),
		Brand:       p.Brand,
		PartNumber:  p.PartNumber,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
	}
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Quantity:    r.Quantity,
		Category:    domain.ProductCategory(r.Category),
		Brand:       r.Brand,
		PartNumber:  r.PartNumber,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
	}
}

type serviceRow struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)"`
	Name            string          `gorm:"not null"`
	Description     string
	Price           decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DurationMinutes int
	Category        string
	IsActive        bool `gorm:"not null;default:true"`
	CreatedAt       time.Time
}

func (serviceRow) TableName() string { return "services" }

func (r serviceRow) toDomain() domain.Service {
	return domain.Service{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Price:           r.Price,
		DurationMinutes: r.DurationMinutes,
		Category:        r.Category,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt,
	}
}

type userRow struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Email     string `gorm:"type:varchar(255);uniqueIndex;not null"`
	FirstName string
	LastName  string
	Phone     string
	Role      string `gorm:"type:varchar(16);index;not null"`
	CreatedAt time.Time
}

func (userRow) TableName() string { return "users" }

func (r userRow) toDomain() domain.User {
	return domain.User{
		ID:        r.ID,
		Email:     r.Email,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Role:      domain.Role(r.Role),
		CreatedAt: r.CreatedAt,
	}
}

// appointmentRow: уникальный индекс (master_id, appointment_date) закрывает гонку двойной записи.
// NULL в master_id не конфликтует сам с собой.
type appointmentRow struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)"`
	ClientID        string          `gorm:"type:varchar(36);index;not null"`
	MasterID        *string         `gorm:"type:varchar(36);uniqueIndex:idx_master_slot"`
	ServiceID       string          `gorm:"type:varchar(36);not null"`
	AppointmentDate time.Time       `gorm:"uniqueIndex:idx_master_slot;not null"`
	Status          string          `gorm:"type:varchar(16);index;not null"`
	Description     string
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	CreatedAt       time.Time
	CompletedAt     *time.Time
	Version         int `gorm:"not null;default:1"`
}

func (appointmentRow) TableName() string { return "appointments" }

func appointmentToRow(a *domain.Appointment) appointmentRow {
	return appointmentRow{
		ID:              a.ID,
		ClientID:        a.ClientID,
		MasterID:        a.MasterID,
		ServiceID:       a.ServiceID,
		AppointmentDate: a.AppointmentDate,
		Status:          string(a.Status),
		Description:     a.Description,
		TotalPrice:      a.TotalPrice,
		CreatedAt:       a.CreatedAt,
		CompletedAt:     a.CompletedAt,
		Version:         a.Version,
	}
}

func (r appointmentRow) toDomain() domain.Appointment {
	a := domain.Appointment{
		ID:              r.ID,
		ClientID:        r.ClientID,
		MasterID:        r.MasterID,
		ServiceID:       r.ServiceID,
		AppointmentDate: r.AppointmentDate.UTC(),
		Status:          domain.AppointmentStatus(r.Status),
		Description:     r.Description,
		TotalPrice:      r.TotalPrice,
		CreatedAt:       r.CreatedAt,
		CompletedAt:     r.CompletedAt,
		Version:         r.Version,
	}
	return a
}

type orderRow struct {
	ID              string          `gorm:"primaryKey;type:varchar(36)"`
	ClientID        string          `gorm:"type:varchar(36);index;not null"`
	Status          string          `gorm:"type:varchar(16);index;not null"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	ShippingAddress string
	ContactPhone    string
	Notes           string
	CreatedAt       time.Time `gorm:"index"`
	ConfirmedAt     *time.Time
	ShippedAt       *time.Time
	DeliveredAt     *time.Time
	Version         int            `gorm:"not null;default:1"`
	Items           []orderItemRow `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (orderRow) TableName() string { return "orders" }

type orderItemRow struct {
	ID          uint   `gorm:"primaryKey;autoIncrement"`
	OrderID     string `gorm:"type:varchar(36);index;not null"`
	Position    int    `gorm:"not null"`
	ProductID   string `gorm:"type:varchar(36);index;not null"`
	ProductName string
	Quantity    int             `gorm:"not null;check:quantity > 0"`
	UnitPrice   decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:numeric(12,2);not null"`
}

func (orderItemRow) TableName() string { return "order_items" }

func orderItemsToRows(orderID string, items []domain.OrderItem) []orderItemRow {
	rows := make([]orderItemRow, 0, len(items))
	for i, it := range items {
		rows = append(rows, orderItemRow{
			OrderID:     orderID,
			Position:    i,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return rows
}

func orderToRow(o *domain.Order) orderRow {
	return orderRow{
		ID:              o.ID,
		ClientID:        o.ClientID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		ContactPhone:    o.ContactPhone,
		Notes:           o.Notes,
		CreatedAt:       o.CreatedAt,
		ConfirmedAt:     o.ConfirmedAt,
		ShippedAt:       o.ShippedAt,
		DeliveredAt:     o.DeliveredAt,
		Version:         o.Version,
		Items:           orderItemsToRows(o.ID, o.Items),
	}
}

func (r orderRow) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, domain.OrderItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TotalPrice:  it.TotalPrice,
		})
	}
	return domain.Order{
		ID:              r.ID,
		ClientID:        r.ClientID,
		Items:           items,
		Status:          domain.OrderStatus(r.Status),
		TotalAmount:     r.TotalAmount,
		ShippingAddress: r.ShippingAddress,
		ContactPhone:    r.ContactPhone,
		Notes:           r.Notes,
		CreatedAt:       r.CreatedAt,
		ConfirmedAt:     r.ConfirmedAt,
		ShippedAt:       r.ShippedAt,
		DeliveredAt:     r.DeliveredAt,
		Version:         r.Version,
	}
}

// Models список моделей для AutoMigrate
func Models() []any {
	return []any{
		&productRow{},
		&serviceRow{},
		&userRow{},
		&appointmentRow{},
		&orderRow{},
		&orderItemRow{},
	}
}
