package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"autoservice/internal/domain"
)

// MemoryStore объединённое in-memory хранилище
type MemoryStore struct {
	mu           sync.RWMutex
	productsByID map[string]domain.Product
	servicesByID map[string]domain.Service
	usersByID    map[string]domain.User
	apptsByID    map[string]domain.Appointment
	ordersByID   map[string]domain.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		productsByID: make(map[string]domain.Product),
		servicesByID: make(map[string]domain.Service),
		usersByID:    make(map[string]domain.User),
		apptsByID:    make(map[string]domain.Appointment),
		ordersByID:   make(map[string]domain.Order),
	}
}

// NewMemory собирает Store поверх одного MemoryStore
func NewMemory() *Store {
	m := NewMemoryStore()
	return &Store{
		Products:     m,
		Services:     &MemoryServices{store: m},
		Users:        &MemoryUsers{store: m},
		Appointments: &MemoryAppointments{store: m},
		Orders:       NewMemoryOrders(m),
		Tx:           NewMemoryTx(m),
	}
}

// journal журнал отката для MemoryTx: каждая запись внутри транзакции регистрирует обратную операцию
type journal struct {
	mu   sync.Mutex
	undo []func() error
}

type txKey struct{}

func journalFrom(ctx context.Context) *journal {
	j, _ := ctx.Value(txKey{}).(*journal)
	return j
}

// record вызывается под m.mu; откат выполняется после снятия блокировки.
// Обратная операция не должна ломать инварианты хранилища: если это невозможно, она возвращает ошибку и ничего не пишет.
func record(ctx context.Context, fn func() error) {
	if j := journalFrom(ctx); j != nil {
		j.mu.Lock()
		j.undo = append(j.undo, fn)
		j.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.productsByID {
		if p.PartNumber != "" && ex.PartNumber == p.PartNumber {
			return ErrDuplicate
		}
	}
	p.ID = uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	m.productsByID[p.ID] = *p
	id := p.ID
	record(ctx, func() error { return m.deleteProduct(id) })
	return nil
}

func (m *MemoryStore) deleteProduct(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

// Update сохраняет карточку товара; остаток берётся из хранилища, а не из p
func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	prev, ok := m.productsByID[p.ID]
	if !ok {
		return ErrNotFound
	}
	for id, ex := range m.productsByID {
		if id != p.ID && p.PartNumber != "" && ex.PartNumber == p.PartNumber {
			return ErrDuplicate
		}
	}
	p.Quantity = prev.Quantity
	p.CreatedAt = prev.CreatedAt
	m.productsByID[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.productsByID[id]; !ok {
		return ErrNotFound
	}
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if f.match(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AdjustStock проверка и запись выполняются под одной блокировкой
func (m *MemoryStore) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	if p.Quantity+delta < 0 {
		return nil, ErrInsufficientStock
	}
	p.Quantity += delta
	m.productsByID[id] = p
	record(ctx, func() error { return m.restock(id, -delta) })
	cp := p
	return &cp, nil
}

// restock откат AdjustStock с той же проверкой, что и прямая запись:
// возвращённые единицы могли уже уйти в другой заказ, тогда остаток не трогаем.
// Товар мог быть удалён параллельно.
func (m *MemoryStore) restock(id string, delta int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.productsByID[id]
	if !ok {
		return nil
	}
	if p.Quantity+delta < 0 {
		return fmt.Errorf("rollback stock of product %s by %d: %w", id, delta, ErrInsufficientStock)
	}
	p.Quantity += delta
	m.productsByID[id] = p
	return nil
}

// MemoryServices каталог услуг
type MemoryServices struct{ store *MemoryStore }

var _ ServiceRepository = (*MemoryServices)(nil)

func (ms *MemoryServices) Create(ctx context.Context, s *domain.Service) error {
	ms.store.mu.Lock()
	defer ms.store.mu.Unlock()
	s.ID = uuid.NewString()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	ms.store.servicesByID[s.ID] = *s
	return nil
}

func (ms *MemoryServices) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	ms.store.mu.RLock()
	defer ms.store.mu.RUnlock()
	s, ok := ms.store.servicesByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (ms *MemoryServices) List(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	ms.store.mu.RLock()
	defer ms.store.mu.RUnlock()
	out := make([]domain.Service, 0, len(ms.store.servicesByID))
	for _, s := range ms.store.servicesByID {
		if activeOnly && !s.IsActive {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// MemoryUsers справочник пользователей
type MemoryUsers struct{ store *MemoryStore }

var _ UserRepository = (*MemoryUsers)(nil)

func (us *MemoryUsers) Create(ctx context.Context, u *domain.User) error {
	us.store.mu.Lock()
	defer us.store.mu.Unlock()
	for _, ex := range us.store.usersByID {
		if ex.Email == u.Email {
			return ErrDuplicate
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	us.store.usersByID[u.ID] = *u
	return nil
}

func (us *MemoryUsers) GetByID(ctx context.Context, id string) (*domain.User, error) {
	us.store.mu.RLock()
	defer us.store.mu.RUnlock()
	u, ok := us.store.usersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (us *MemoryUsers) List(ctx context.Context, role domain.Role) ([]domain.User, error) {
	us.store.mu.RLock()
	defer us.store.mu.RUnlock()
	out := make([]domain.User, 0)
	for _, u := range us.store.usersByID {
		if role != "" && u.Role != role {
			continue
		}
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// MemoryAppointments записи; уникальность (мастер, время) проверяется под блокировкой хранилища
type MemoryAppointments struct{ store *MemoryStore }

var _ AppointmentRepository = (*MemoryAppointments)(nil)

// slotTaken вызывается под store.mu
func (ma *MemoryAppointments) slotTaken(a *domain.Appointment) bool {
	if a.MasterID == nil {
		return false
	}
	for id, ex := range ma.store.apptsByID {
		if id == a.ID || !ex.HasMaster(*a.MasterID) {
			continue
		}
		if ex.AppointmentDate.Equal(a.AppointmentDate) {
			return true
		}
	}
	return false
}

func (ma *MemoryAppointments) Create(ctx context.Context, a *domain.Appointment) error {
	ma.store.mu.Lock()
	defer ma.store.mu.Unlock()
	a.AppointmentDate = slotKey(a.AppointmentDate)
	if ma.slotTaken(a) {
		return ErrSlotTaken
	}
	a.ID = uuid.NewString()
	a.Version = 1
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	ma.store.apptsByID[a.ID] = cloneAppointment(*a)
	return nil
}

func (ma *MemoryAppointments) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	ma.store.mu.RLock()
	defer ma.store.mu.RUnlock()
	a, ok := ma.store.apptsByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneAppointment(a)
	return &cp, nil
}

func (ma *MemoryAppointments) Update(ctx context.Context, a *domain.Appointment) error {
	ma.store.mu.Lock()
	defer ma.store.mu.Unlock()
	prev, ok := ma.store.apptsByID[a.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.Version != a.Version {
		return ErrConflict
	}
	a.AppointmentDate = slotKey(a.AppointmentDate)
	if ma.slotTaken(a) {
		return ErrSlotTaken
	}
	a.Version++
	ma.store.apptsByID[a.ID] = cloneAppointment(*a)
	return nil
}

func (ma *MemoryAppointments) Delete(ctx context.Context, id string, version int) error {
	ma.store.mu.Lock()
	defer ma.store.mu.Unlock()
	prev, ok := ma.store.apptsByID[id]
	if !ok {
		return ErrNotFound
	}
	if prev.Version != version {
		return ErrConflict
	}
	delete(ma.store.apptsByID, id)
	return nil
}

func (ma *MemoryAppointments) List(ctx context.Context, f AppointmentFilter) ([]domain.Appointment, error) {
	ma.store.mu.RLock()
	defer ma.store.mu.RUnlock()
	out := make([]domain.Appointment, 0)
	for _, a := range ma.store.apptsByID {
		if f.match(a) {
			out = append(out, cloneAppointment(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AppointmentDate.Before(out[j].AppointmentDate) })
	return out, nil
}

func cloneAppointment(a domain.Appointment) domain.Appointment {
	if a.MasterID != nil {
		id := *a.MasterID
		a.MasterID = &id
	}
	if a.CompletedAt != nil {
		t := *a.CompletedAt
		a.CompletedAt = &t
	}
	return a
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	o.ID = uuid.NewString()
	o.Version = 1
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	id := o.ID
	record(ctx, func() error {
		mo.store.mu.Lock()
		defer mo.store.mu.Unlock()
		delete(mo.store.ordersByID, id)
		return nil
	})
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	prev, ok := mo.store.ordersByID[o.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.Version != o.Version {
		return ErrConflict
	}
	o.Version++
	mo.store.ordersByID[o.ID] = cloneOrder(*o)
	written := o.Version
	record(ctx, func() error { return mo.restore(prev, written) })
	return nil
}

// restore откат Update: возвращает prev, только если заказ с тех пор никто не менял
func (mo *MemoryOrders) restore(prev domain.Order, written int) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	cur, ok := mo.store.ordersByID[prev.ID]
	if !ok || cur.Version != written {
		return fmt.Errorf("rollback order %s: %w", prev.ID, ErrConflict)
	}
	mo.store.ordersByID[prev.ID] = prev
	return nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id string, version int) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	prev, ok := mo.store.ordersByID[id]
	if !ok {
		return ErrNotFound
	}
	if prev.Version != version {
		return ErrConflict
	}
	delete(mo.store.ordersByID, id)
	record(ctx, func() error {
		mo.store.mu.Lock()
		defer mo.store.mu.Unlock()
		if _, ok := mo.store.ordersByID[prev.ID]; ok {
			return fmt.Errorf("rollback delete of order %s: %w", prev.ID, ErrConflict)
		}
		mo.store.ordersByID[prev.ID] = prev
		return nil
	})
	return nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if f.match(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func cloneOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}

// MemoryTx транзакция поверх журнала отката. Глобальной блокировки нет:
// каждая запись атомарна сама по себе, а при ошибке fn записи отменяются в обратном порядке.
// Отменить нельзя только то, что уже успели использовать другие (например, возвращённый
// на склад товар); такие сбои отката возвращаются вместе с ошибкой fn.
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if journalFrom(ctx) != nil {
		// вложенная транзакция пишет в журнал внешней
		return fn(ctx)
	}
	j := &journal{}
	if err := fn(context.WithValue(ctx, txKey{}, j)); err != nil {
		j.mu.Lock()
		undo := j.undo
		j.undo = nil
		j.mu.Unlock()
		for i := len(undo) - 1; i >= 0; i-- {
			if uerr := undo[i](); uerr != nil {
				err = errors.Join(err, uerr)
			}
		}
		return err
	}
	return nil
}
