package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role роль пользователя
type Role string

const (
	RoleClient Role = "CLIENT"
	RoleMaster Role = "MASTER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleMaster, RoleAdmin:
		return true
	}
	return false
}

// User клиент, мастер или администратор
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Phone     string    `json:"phone"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}

// ProductCategory категория запчасти
type ProductCategory string

const (
	CategoryEngineParts     ProductCategory = "ENGINE_PARTS"
	CategoryBrakeParts      ProductCategory = "BRAKE_PARTS"
	CategorySuspension      ProductCategory = "SUSPENSION"
	CategoryElectricalParts ProductCategory = "ELECTRICAL_PARTS"
	CategoryBodyParts       ProductCategory = "BODY_PARTS"
	CategoryFilters         ProductCategory = "FILTERS"
	CategoryOilsFluids      ProductCategory = "OILS_FLUIDS"
	CategoryTiresWheels     ProductCategory = "TIRES_WHEELS"
	CategoryAccessories     ProductCategory = "ACCESSORIES"
	CategoryOther           ProductCategory = "OTHER"
)

var ProductCategories = []ProductCategory{
	CategoryEngineParts, CategoryBrakeParts, CategorySuspension, CategoryElectricalParts, CategoryBodyParts,
	CategoryFilters, CategoryOilsFluids, CategoryTiresWheels, CategoryAccessories, CategoryOther,
}

func (c ProductCategory) Valid() bool {
	for _, v := range ProductCategories {
		if v == c {
			return true
		}
	}
	return false
}

// LowStockThreshold остаток, начиная с которого товар считается заканчивающимся
const LowStockThreshold = 10

// Product запчасть на складе
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
	Category    ProductCategory `json:"category,omitempty"`
	Brand       string          `json:"brand,omitempty"`
	PartNumber  string          `json:"part_number"`
	IsActive    bool            `json:"is_active"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p Product) InStock() bool  { return p.Quantity > 0 }
func (p Product) LowStock() bool { return p.Quantity > 0 && p.Quantity <= LowStockThreshold }

// Service услуга автосервиса
type Service struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DurationMinutes int             `json:"duration_minutes"`
	Category        string          `json:"category,omitempty"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
}

// Appointment запись клиента на услугу
type Appointment struct {
	ID              string            `json:"id"`
	ClientID        string            `json:"client_id"`
	MasterID        *string           `json:"master_id"`
	ServiceID       string            `json:"service_id"`
	AppointmentDate time.Time         `json:"appointment_date"`
	Status          AppointmentStatus `json:"status"`
	Description     string            `json:"description,omitempty"`
	TotalPrice      decimal.Decimal   `json:"total_price"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	// Version растёт с каждым сохранением; устаревшая копия не перезапишет запись
	Version int `json:"version"`
}

// HasMaster сравнивает назначенного мастера
func (a Appointment) HasMaster(masterID string) bool {
	return a.MasterID != nil && *a.MasterID == masterID
}

// OrderItem позиция в заказе
type OrderItem struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// NewOrderItem фиксирует цену товара на момент добавления
func NewOrderItem(p Product, quantity int) OrderItem {
	return OrderItem{
		ProductID:   p.ID,
		ProductName: p.Name,
		Quantity:    quantity,
		UnitPrice:   p.Price,
		TotalPrice:  p.Price.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Order заказ запчастей
type Order struct {
	ID              string          `json:"id"`
	ClientID        string          `json:"client_id"`
	Items           []OrderItem     `json:"items"`
	Status          OrderStatus     `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	ShippingAddress string          `json:"shipping_address,omitempty"`
	ContactPhone    string          `json:"contact_phone,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	ConfirmedAt     *time.Time      `json:"confirmed_at,omitempty"`
	ShippedAt       *time.Time      `json:"shipped_at,omitempty"`
	DeliveredAt     *time.Time      `json:"delivered_at,omitempty"`
	// Version растёт при каждом сохранении; Update с устаревшей версией отклоняется
	Version int `json:"version"`
}

// RecalculateTotal пересчитывает сумму заказа по позициям
func (o *Order) RecalculateTotal() {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.TotalPrice)
	}
	o.TotalAmount = total
}
