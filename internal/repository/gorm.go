package repository

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"autoservice/internal/domain"
)

// OpenGorm подключается к sqlite или postgres и выполняет миграции
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Silent,
				IgnoreRecordNotFoundError: true,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// NewGorm собирает Store поверх *gorm.DB
func NewGorm(db *gorm.DB) *Store {
	g := &gormConn{db: db}
	return &Store{
		Products:     &GormProducts{g},
		Services:     &GormServices{g},
		Users:        &GormUsers{g},
		Appointments: &GormAppointments{g},
		Orders:       &GormOrders{g},
		Tx:           &GormTx{g},
	}
}

type gormTxKey struct{}

type gormConn struct{ db *gorm.DB }

// conn возвращает текущую транзакцию из контекста либо общее подключение
func (g *gormConn) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return g.db.WithContext(ctx)
}

// atomically выполняет fn в транзакции; внутри внешней транзакции использует её
func (g *gormConn) atomically(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(tx)
	}
	return g.db.WithContext(ctx).Transaction(fn)
}

func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

// GormTx транзакция базы данных
type GormTx struct{ *gormConn }

var _ TxManager = (*GormTx)(nil)

func (t *GormTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

// GormProducts товары
type GormProducts struct{ *gormConn }

var _ ProductRepository = (*GormProducts)(nil)

func (r *GormProducts) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	row := productToRow(p)
	// Select("*"): иначе is_active=false заменится значением по умолчанию
	return translate(r.conn(ctx).Select("*").Create(&row).Error)
}

func (r *GormProducts) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	var row productRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	p := row.toDomain()
	return &p, nil
}

// Update не трогает quantity: остаток меняется только через AdjustStock
func (r *GormProducts) Update(ctx context.Context, p *domain.Product) error {
	res := r.conn(ctx).Model(&productRow{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":        p.Name,
		"description": p.Description,
		"price":       p.Price,
		"category":    string(p.Category),
		"brand":       p.Brand,
		"part_number": p.PartNumber,
		"is_active":   p.IsActive,
	})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	cur, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *cur
	return nil
}

func (r *GormProducts) Delete(ctx context.Context, id string) error {
	res := r.conn(ctx).Delete(&productRow{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *GormProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	q := r.conn(ctx).Model(&productRow{})
	if f.NameSubstring != "" {
		like := "%" + f.NameSubstring + "%"
		q = q.Where("LOWER(name) LIKE LOWER(?) OR LOWER(description) LIKE LOWER(?)", like, like)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	if f.Category != "" {
		q = q.Where("category = ?", string(f.Category))
	}
	if f.Brand != "" {
		q = q.Where("LOWER(brand) = LOWER(?)", f.Brand)
	}
	if f.InStockOnly {
		q = q.Where("quantity > 0")
	}
	if f.LowStockOnly {
		q = q.Where("quantity > 0 AND quantity <= ?", domain.LowStockThreshold)
	}
	if f.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []productRow
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// AdjustStock одно условное UPDATE: строка меняется, только если остаток не уйдёт в минус
func (r *GormProducts) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	res := r.conn(ctx).Model(&productRow{}).
		Where("id = ? AND quantity + ? >= 0", id, delta).
		Update("quantity", gorm.Expr("quantity + ?", delta))
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrInsufficientStock
	}
	return r.GetByID(ctx, id)
}

// GormServices каталог услуг
type GormServices struct{ *gormConn }

var _ ServiceRepository = (*GormServices)(nil)

func (r *GormServices) Create(ctx context.Context, s *domain.Service) error {
	s.ID = uuid.NewString()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	row := serviceRow{
		ID:              s.ID,
		Name:            s.Name,
		Description:     s.Description,
		Price:           s.Price,
		DurationMinutes: s.DurationMinutes,
		Category:        s.Category,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt,
	}
	return translate(r.conn(ctx).Select("*").Create(&row).Error)
}

func (r *GormServices) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	var row serviceRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	s := row.toDomain()
	return &s, nil
}

func (r *GormServices) List(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	q := r.conn(ctx).Model(&serviceRow{})
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []serviceRow
	if err := q.Order("name").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Service, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// GormUsers справочник пользователей
type GormUsers struct{ *gormConn }

var _ UserRepository = (*GormUsers)(nil)

func (r *GormUsers) Create(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	row := userRow{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      string(u.Role),
		CreatedAt: u.CreatedAt,
	}
	return translate(r.conn(ctx).Create(&row).Error)
}

func (r *GormUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	var row userRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	u := row.toDomain()
	return &u, nil
}

func (r *GormUsers) List(ctx context.Context, role domain.Role) ([]domain.User, error) {
	q := r.conn(ctx).Model(&userRow{})
	if role != "" {
		q = q.Where("role = ?", string(role))
	}
	var rows []userRow
	if err := q.Order("email").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// GormAppointments записи; двойную запись мастера отсекает уникальный индекс idx_master_slot
type GormAppointments struct{ *gormConn }

var _ AppointmentRepository = (*GormAppointments)(nil)

func slotErr(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrSlotTaken
	}
	return translate(err)
}

func (r *GormAppointments) Create(ctx context.Context, a *domain.Appointment) error {
	a.ID = uuid.NewString()
	a.Version = 1
	a.AppointmentDate = slotKey(a.AppointmentDate)
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	row := appointmentToRow(a)
	return slotErr(r.conn(ctx).Create(&row).Error)
}

func (r *GormAppointments) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	var row appointmentRow
	if err := r.conn(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	a := row.toDomain()
	return &a, nil
}

func (r *GormAppointments) Update(ctx context.Context, a *domain.Appointment) error {
	a.AppointmentDate = slotKey(a.AppointmentDate)
	row := appointmentToRow(a)
	row.Version = a.Version + 1
	db := r.conn(ctx)
	res := db.Model(&appointmentRow{}).Where("id = ? AND version = ?", a.ID, a.Version).
		Select("*").Omit("id", "created_at").Updates(&row)
	if res.Error != nil {
		return slotErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return missingOrStale(db, &appointmentRow{}, a.ID)
	}
	a.Version = row.Version
	return nil
}

func (r *GormAppointments) Delete(ctx context.Context, id string, version int) error {
	db := r.conn(ctx)
	res := db.Delete(&appointmentRow{}, "id = ? AND version = ?", id, version)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return missingOrStale(db, &appointmentRow{}, id)
	}
	return nil
}

// missingOrStale объясняет условную запись, не задевшую ни одной строки
func missingOrStale(db *gorm.DB, model any, id string) error {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrConflict
}

func (r *GormAppointments) List(ctx context.Context, f AppointmentFilter) ([]domain.Appointment, error) {
	q := r.conn(ctx).Model(&appointmentRow{})
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.MasterID != "" {
		q = q.Where("master_id = ?", f.MasterID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.From != nil {
		q = q.Where("appointment_date >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("appointment_date < ?", f.To.UTC())
	}
	var rows []appointmentRow
	if err := q.Order("appointment_date").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Appointment, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// GormOrders заказы с позициями в order_items
type GormOrders struct{ *gormConn }

var _ OrderRepository = (*GormOrders)(nil)

func (r *GormOrders) Create(ctx context.Context, o *domain.Order) error {
	o.ID = uuid.NewString()
	o.Version = 1
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	row := orderToRow(o)
	return translate(r.conn(ctx).Create(&row).Error)
}

func preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
}

func (r *GormOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var row orderRow
	if err := preloadItems(r.conn(ctx)).First(&row, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	o := row.toDomain()
	return &o, nil
}

// Update перезаписывает заказ и заменяет его позиции целиком
func (r *GormOrders) Update(ctx context.Context, o *domain.Order) error {
	row := orderToRow(o)
	row.Version = o.Version + 1
	err := r.atomically(ctx, func(tx *gorm.DB) error {
		res := tx.Model(&orderRow{}).Where("id = ? AND version = ?", o.ID, o.Version).
			Select("*").Omit("id", "created_at", "Items").Updates(&row)
		if res.Error != nil {
			return translate(res.Error)
		}
		if res.RowsAffected == 0 {
			return missingOrStale(tx, &orderRow{}, o.ID)
		}
		if err := tx.Where("order_id = ?", o.ID).Delete(&orderItemRow{}).Error; err != nil {
			return err
		}
		if len(row.Items) == 0 {
			return nil
		}
		return tx.Create(&row.Items).Error
	})
	if err != nil {
		return err
	}
	o.Version = row.Version
	return nil
}

func (r *GormOrders) Delete(ctx context.Context, id string, version int) error {
	return r.atomically(ctx, func(tx *gorm.DB) error {
		res := tx.Delete(&orderRow{}, "id = ? AND version = ?", id, version)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return missingOrStale(tx, &orderRow{}, id)
		}
		return tx.Where("order_id = ?", id).Delete(&orderItemRow{}).Error
	})
}

func (r *GormOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	q := preloadItems(r.conn(ctx).Model(&orderRow{}))
	if f.ClientID != "" {
		q = q.Where("client_id = ?", f.ClientID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if f.From != nil {
		q = q.Where("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		q = q.Where("created_at < ?", f.To.UTC())
	}
	var rows []orderRow
	if err := q.Order("created_at").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}
