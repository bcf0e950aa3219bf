package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"autoservice/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock условное списание отклонено: остаток ушёл бы в минус
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrSlotTaken у мастера уже есть запись на это же время
	ErrSlotTaken = errors.New("master slot already taken")
	// ErrDuplicate нарушена уникальность (артикул, email)
	ErrDuplicate = errors.New("duplicate")
	// ErrConflict запись изменена параллельно (устаревшая версия)
	ErrConflict = errors.New("concurrent modification")
)

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
	Category      domain.ProductCategory
	Brand         string
	InStockOnly   bool
	LowStockOnly  bool
	ActiveOnly    bool
}

func (f ProductFilter) match(p domain.Product) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) && !containsIgnoreCase(p.Description, f.NameSubstring) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Brand != "" && !strings.EqualFold(p.Brand, f.Brand) {
		return false
	}
	if f.InStockOnly && !p.InStock() {
		return false
	}
	if f.LowStockOnly && !p.LowStock() {
		return false
	}
	if f.ActiveOnly && !p.IsActive {
		return false
	}
	return true
}

// AppointmentFilter выборка записей; пустые поля не ограничивают
type AppointmentFilter struct {
	ClientID string
	MasterID string
	Status   domain.AppointmentStatus
	From     *time.Time
	To       *time.Time
}

func (f AppointmentFilter) match(a domain.Appointment) bool {
	if f.ClientID != "" && a.ClientID != f.ClientID {
		return false
	}
	if f.MasterID != "" && !a.HasMaster(f.MasterID) {
		return false
	}
	if f.Status != "" && a.Status != f.Status {
		return false
	}
	return inRange(a.AppointmentDate, f.From, f.To)
}

// OrderFilter выборка заказов
type OrderFilter struct {
	ClientID string
	Status   domain.OrderStatus
	From     *time.Time
	To       *time.Time
}

func (f OrderFilter) match(o domain.Order) bool {
	if f.ClientID != "" && o.ClientID != f.ClientID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return inRange(o.CreatedAt, f.From, f.To)
}

// ProductRepository интерфейс репозитория товаров.
// Количество на складе меняется только через AdjustStock.
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	// AdjustStock атомарно прибавляет delta к остатку, если результат не отрицателен.
	// Иначе возвращает ErrInsufficientStock и остаток не меняется.
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error)
}

type ServiceRepository interface {
	Create(ctx context.Context, s *domain.Service) error
	GetByID(ctx context.Context, id string) (*domain.Service, error)
	List(ctx context.Context, activeOnly bool) ([]domain.Service, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	List(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// AppointmentRepository хранит записи. Create и Update отклоняют запись с ErrSlotTaken,
// если у того же мастера уже есть другая запись с тем же временем.
// Update и Delete проходят, только если версия совпадает с сохранённой, иначе ErrConflict;
// Update при успехе увеличивает a.Version.
type AppointmentRepository interface {
	Create(ctx context.Context, a *domain.Appointment) error
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	Update(ctx context.Context, a *domain.Appointment) error
	Delete(ctx context.Context, id string, version int) error
	List(ctx context.Context, f AppointmentFilter) ([]domain.Appointment, error)
}

// OrderRepository интерфейс репозитория заказов.
// Update и Delete проходят, только если версия совпадает с сохранённой, иначе ErrConflict;
// Update при успехе увеличивает o.Version.
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id string, version int) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// TxManager абстракция транзакции: либо все записи внутри fn применяются, либо ни одна.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store набор репозиториев одного хранилища
type Store struct {
	Products     ProductRepository
	Services     ServiceRepository
	Users        UserRepository
	Appointments AppointmentRepository
	Orders       OrderRepository
	Tx           TxManager
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && !t.Before(*to) {
		return false
	}
	return true
}

// slotKey канонический вид времени записи: тот же момент в UTC, без округления.
// Время с долями секунды отсекает валидация сервиса.
func slotKey(t time.Time) time.Time {
	return t.UTC()
}
