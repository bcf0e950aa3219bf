package service

import (
	"context"
	"errors"
	"strings"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/repository"
)

// CatalogService каталог услуг автосервиса
type CatalogService struct {
	repo  repository.ServiceRepository
	authz auth.Authorizer
}

func NewCatalogService(repo repository.ServiceRepository, authz auth.Authorizer) *CatalogService {
	return &CatalogService{repo: repo, authz: authz}
}

func (s *CatalogService) Create(ctx context.Context, caller auth.Principal, svc domain.Service) (*domain.Service, error) {
	if err := auth.Require(s.authz, caller, auth.ServiceManage); err != nil {
		return nil, err
	}
	switch {
	case strings.TrimSpace(svc.Name) == "":
		return nil, domain.Validation("service name is required")
	case svc.Price.IsNegative():
		return nil, domain.Validation("price must not be negative")
	case svc.DurationMinutes <= 0:
		return nil, domain.Validation("duration must be positive")
	}
	cp := svc
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, translateErr(err, "service not found")
	}
	return &cp, nil
}

func (s *CatalogService) GetByID(ctx context.Context, id string) (*domain.Service, error) {
	svc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "service %s not found", id)
	}
	return svc, nil
}

func (s *CatalogService) List(ctx context.Context, activeOnly bool) ([]domain.Service, error) {
	return s.repo.List(ctx, activeOnly)
}

// UserService справочник пользователей
type UserService struct {
	repo  repository.UserRepository
	authz auth.Authorizer
}

func NewUserService(repo repository.UserRepository, authz auth.Authorizer) *UserService {
	return &UserService{repo: repo, authz: authz}
}

func (s *UserService) Create(ctx context.Context, caller auth.Principal, u domain.User) (*domain.User, error) {
	if err := auth.Require(s.authz, caller, auth.UserManage); err != nil {
		return nil, err
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	switch {
	case !strings.Contains(u.Email, "@"):
		return nil, domain.Validation("invalid email %q", u.Email)
	case strings.TrimSpace(u.FirstName) == "":
		return nil, domain.Validation("first name is required")
	case !u.Role.Valid():
		return nil, domain.Validation("unknown role %q", u.Role)
	}
	cp := u
	if err := s.repo.Create(ctx, &cp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.BusinessRule("user with email %s already exists", u.Email)
		}
		return nil, translateErr(err, "user not found")
	}
	return &cp, nil
}

// Get администратор видит всех, остальные только себя
func (s *UserService) Get(ctx context.Context, caller auth.Principal, id string) (*domain.User, error) {
	if !caller.OwnsOrAdmin(id) {
		return nil, domain.Forbidden("user %s may not read user %s", caller.UserID, id)
	}
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "user %s not found", id)
	}
	return u, nil
}

func (s *UserService) List(ctx context.Context, caller auth.Principal, role domain.Role) ([]domain.User, error) {
	if err := auth.Require(s.authz, caller, auth.UserManage); err != nil {
		return nil, err
	}
	if role != "" && !role.Valid() {
		return nil, domain.Validation("unknown role %q", role)
	}
	return s.repo.List(ctx, role)
}

// Masters список мастеров доступен любому пользователю для выбора при записи
func (s *UserService) Masters(ctx context.Context) ([]domain.User, error) {
	return s.repo.List(ctx, domain.RoleMaster)
}
