package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/notify"
	"autoservice/internal/repository"
)

// рабочие часы для слотов: с 9 до 17 включительно, шаг один час
const (
	firstSlotHour = 9
	lastSlotHour  = 17
)

// AppointmentService жизненный цикл записей и занятость мастеров
type AppointmentService struct {
	repo     repository.AppointmentRepository
	dir      Directory
	authz    auth.Authorizer
	notifier notify.Notifier
	log      *slog.Logger
	loc      *time.Location
	now      func() time.Time
}

type AppointmentOption func(*AppointmentService)

// WithClock подменяет источник текущего времени
func WithClock(now func() time.Time) AppointmentOption {
	return func(s *AppointmentService) { s.now = now }
}

// WithLocation часовой пояс, в котором считаются рабочие часы
func WithLocation(loc *time.Location) AppointmentOption {
	return func(s *AppointmentService) { s.loc = loc }
}

func NewAppointmentService(repo repository.AppointmentRepository, dir Directory, authz auth.Authorizer, notifier notify.Notifier, log *slog.Logger, opts ...AppointmentOption) *AppointmentService {
	s := &AppointmentService{
		repo:     repo,
		dir:      dir,
		authz:    authz,
		notifier: notifier,
		log:      log,
		loc:      time.UTC,
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CreateAppointmentInput struct {
	ClientID        string
	ServiceID       string
	MasterID        *string
	AppointmentDate time.Time
	Description     string
	TotalPrice      *decimal.Decimal
}

func (s *AppointmentService) Create(ctx context.Context, caller auth.Principal, in CreateAppointmentInput) (out *domain.Appointment, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.Create", caller, attribute.String("service.id", in.ServiceID))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.AppointmentCreate); err != nil {
		return nil, err
	}
	if !caller.OwnsOrAdmin(in.ClientID) {
		return nil, domain.Forbidden("clients may only book appointments for themselves")
	}
	switch {
	case in.ClientID == "":
		return nil, domain.Validation("client id is required")
	case in.ServiceID == "":
		return nil, domain.Validation("service id is required")
	case in.AppointmentDate.IsZero():
		return nil, domain.Validation("appointment date is required")
	case !in.AppointmentDate.After(s.now()):
		return nil, domain.Validation("appointment date must be in the future")
	case in.AppointmentDate.Nanosecond() != 0:
		return nil, domain.Validation("appointment date must not have fractional seconds")
	case in.TotalPrice != nil && in.TotalPrice.IsNegative():
		return nil, domain.Validation("total price must not be negative")
	}

	client, err := s.dir.ResolveUser(ctx, in.ClientID)
	if err != nil {
		return nil, err
	}
	svc, err := s.dir.ResolveService(ctx, in.ServiceID)
	if err != nil {
		return nil, err
	}
	if in.MasterID != nil && *in.MasterID != "" {
		if _, err := s.resolveMaster(ctx, *in.MasterID); err != nil {
			return nil, err
		}
	} else {
		in.MasterID = nil
	}

	a := domain.Appointment{
		ClientID:        client.ID,
		MasterID:        in.MasterID,
		ServiceID:       svc.ID,
		AppointmentDate: in.AppointmentDate,
		Status:          domain.AppointmentPending,
		Description:     strings.TrimSpace(in.Description),
		TotalPrice:      svc.Price,
		CreatedAt:       s.now().UTC(),
	}
	if in.TotalPrice != nil {
		a.TotalPrice = *in.TotalPrice
	}
	if err := s.repo.Create(ctx, &a); err != nil {
		return nil, s.slotErr(err, a)
	}

	s.log.InfoContext(ctx, "appointment created", "appointment_id", a.ID, "client_id", a.ClientID, "date", a.AppointmentDate)
	s.notifier.Notify(ctx, notify.Event{
		EntityType:  notify.EntityAppointment,
		EntityID:    a.ID,
		RecipientID: a.ClientID,
		Title:       "Appointment booked",
		Message:     fmt.Sprintf("Your appointment for %s is booked for %s", svc.Name, a.AppointmentDate.In(s.loc).Format("2006-01-02 15:04")),
	})
	return &a, nil
}

func (s *AppointmentService) resolveMaster(ctx context.Context, id string) (*domain.User, error) {
	m, err := s.dir.ResolveUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.Role != domain.RoleMaster {
		return nil, domain.BusinessRule("user %s is not a master", id)
	}
	return m, nil
}

func (s *AppointmentService) slotErr(err error, a domain.Appointment) error {
	if errors.Is(err, repository.ErrSlotTaken) {
		return domain.BusinessRule("master already booked for %s", a.AppointmentDate.In(s.loc).Format("2006-01-02 15:04"))
	}
	return translateErr(err, "appointment %s not found", a.ID)
}

func (s *AppointmentService) get(ctx context.Context, id string) (*domain.Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "appointment %s not found", id)
	}
	return a, nil
}

// Get клиент видит свои записи, мастер назначенные ему, администратор все
func (s *AppointmentService) Get(ctx context.Context, caller auth.Principal, id string) (*domain.Appointment, error) {
	if err := auth.Require(s.authz, caller, auth.AppointmentRead); err != nil {
		return nil, err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && a.ClientID != caller.UserID && !a.HasMaster(caller.UserID) {
		return nil, domain.Forbidden("appointment %s belongs to another user", id)
	}
	return a, nil
}

// List для не-администраторов выборка сужается до собственных записей
func (s *AppointmentService) List(ctx context.Context, caller auth.Principal, f repository.AppointmentFilter) ([]domain.Appointment, error) {
	if err := auth.Require(s.authz, caller, auth.AppointmentRead); err != nil {
		return nil, err
	}
	switch {
	case caller.IsAdmin():
	case caller.Has(domain.RoleMaster):
		f.MasterID = caller.UserID
	default:
		f.ClientID = caller.UserID
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Validation("unknown appointment status %q", f.Status)
	}
	return s.repo.List(ctx, f)
}

func (s *AppointmentService) UpdateStatus(ctx context.Context, caller auth.Principal, id string, status domain.AppointmentStatus) (out *domain.Appointment, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.UpdateStatus", caller, attribute.String("appointment.id", id), attribute.String("status", string(status)))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.AppointmentUpdateStatus); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, domain.Validation("unknown appointment status %q", status)
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !a.HasMaster(caller.UserID) {
		return nil, domain.Forbidden("appointment %s is not assigned to %s", id, caller.UserID)
	}
	if a.Status == status {
		return a, nil
	}
	if !a.Status.CanTransitionTo(status) {
		return nil, domain.BusinessRule("cannot change appointment status from %s to %s", a.Status, status)
	}

	prev := a.Status
	a.Status = status
	if status == domain.AppointmentCompleted && a.CompletedAt == nil {
		t := s.now().UTC()
		a.CompletedAt = &t
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, s.slotErr(err, *a)
	}

	s.log.InfoContext(ctx, "appointment status changed", "appointment_id", a.ID, "from", prev, "to", status)
	s.notifier.Notify(ctx, notify.Event{
		EntityType:  notify.EntityAppointment,
		EntityID:    a.ID,
		RecipientID: a.ClientID,
		Title:       "Appointment status updated",
		Message:     fmt.Sprintf("Your appointment status changed to %s", status),
	})
	return a, nil
}

// AssignMaster назначает мастера и подтверждает запись
func (s *AppointmentService) AssignMaster(ctx context.Context, caller auth.Principal, id, masterID string) (out *domain.Appointment, err error) {
	ctx, span := startSpan(ctx, "AppointmentService.AssignMaster", caller, attribute.String("appointment.id", id), attribute.String("master.id", masterID))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.AppointmentAssignMaster); err != nil {
		return nil, err
	}
	if masterID == "" {
		return nil, domain.Validation("master id is required")
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != domain.AppointmentPending && a.Status != domain.AppointmentConfirmed {
		return nil, domain.BusinessRule("cannot assign master to appointment in status %s", a.Status)
	}
	master, err := s.resolveMaster(ctx, masterID)
	if err != nil {
		return nil, err
	}

	a.MasterID = &master.ID
	a.Status = domain.AppointmentConfirmed
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, s.slotErr(err, *a)
	}

	s.log.InfoContext(ctx, "master assigned", "appointment_id", a.ID, "master_id", master.ID)
	when := a.AppointmentDate.In(s.loc).Format("2006-01-02 15:04")
	s.notifier.Notify(ctx, notify.Event{
		EntityType:  notify.EntityAppointment,
		EntityID:    a.ID,
		RecipientID: a.ClientID,
		Title:       "Master assigned",
		Message:     fmt.Sprintf("%s will serve your appointment on %s", master.FullName(), when),
	})
	s.notifier.Notify(ctx, notify.Event{
		EntityType:  notify.EntityAppointment,
		EntityID:    a.ID,
		RecipientID: master.ID,
		Title:       "New appointment",
		Message:     fmt.Sprintf("You have been assigned an appointment on %s", when),
	})
	return a, nil
}

func (s *AppointmentService) Delete(ctx context.Context, caller auth.Principal, id string) (err error) {
	ctx, span := startSpan(ctx, "AppointmentService.Delete", caller, attribute.String("appointment.id", id))
	defer func() { endSpan(span, err) }()

	if err := auth.Require(s.authz, caller, auth.AppointmentDelete); err != nil {
		return err
	}
	a, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if !caller.OwnsOrAdmin(a.ClientID) {
		return domain.Forbidden("appointment %s belongs to another client", id)
	}
	if !a.Status.Deletable() {
		return domain.BusinessRule("cannot delete appointment in status %s", a.Status)
	}
	if err := s.repo.Delete(ctx, id, a.Version); err != nil {
		return translateErr(err, "appointment %s not found", id)
	}
	s.log.InfoContext(ctx, "appointment deleted", "appointment_id", id)
	return nil
}

// AvailableSlots свободные часы мастера в календарный день date (берутся год, месяц и день date).
// Отменённые записи тоже занимают слот.
func (s *AppointmentService) AvailableSlots(ctx context.Context, masterID string, date time.Time) ([]time.Time, error) {
	if _, err := s.resolveMaster(ctx, masterID); err != nil {
		return nil, err
	}
	y, m, d := date.Date()
	dayStart := time.Date(y, m, d, 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	booked, err := s.repo.List(ctx, repository.AppointmentFilter{MasterID: masterID, From: &dayStart, To: &dayEnd})
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	now := s.now()
	slots := make([]time.Time, 0, lastSlotHour-firstSlotHour+1)
	for h := firstSlotHour; h <= lastSlotHour; h++ {
		slot := time.Date(y, m, d, h, 0, 0, 0, s.loc)
		if !slot.After(now) {
			continue
		}
		taken := false
		for _, a := range booked {
			if a.AppointmentDate.Equal(slot) {
				taken = true
				break
			}
		}
		if !taken {
			slots = append(slots, slot)
		}
	}
	return slots, nil
}

func (s *AppointmentService) Statuses() []domain.AppointmentStatus {
	return append([]domain.AppointmentStatus(nil), domain.AppointmentStatuses...)
}
