package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"

	"autoservice/internal/domain"
	"autoservice/internal/repository"
)

var tracer = otel.Tracer("autoservice/service")

// Directory разрешает ссылки на клиентов, мастеров, услуги и товары
type Directory interface {
	ResolveUser(ctx context.Context, id string) (*domain.User, error)
	ResolveService(ctx context.Context, id string) (*domain.Service, error)
	ResolveProduct(ctx context.Context, id string) (*domain.Product, error)
}

// StoreDirectory Directory поверх репозиториев хранилища
type StoreDirectory struct {
	users    repository.UserRepository
	services repository.ServiceRepository
	products repository.ProductRepository
}

func NewDirectory(st *repository.Store) *StoreDirectory {
	return &StoreDirectory{users: st.Users, services: st.Services, products: st.Products}
}

var _ Directory = (*StoreDirectory)(nil)

func (d *StoreDirectory) ResolveUser(ctx context.Context, id string) (*domain.User, error) {
	u, err := d.users.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "user %s not found", id)
	}
	return u, nil
}

func (d *StoreDirectory) ResolveService(ctx context.Context, id string) (*domain.Service, error) {
	s, err := d.services.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "service %s not found", id)
	}
	return s, nil
}

func (d *StoreDirectory) ResolveProduct(ctx context.Context, id string) (*domain.Product, error) {
	p, err := d.products.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "product %s not found", id)
	}
	return p, nil
}

// translateErr переводит ошибки хранилища в доменные; format описывает ненайденную сущность
func translateErr(err error, format string, args ...any) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return domain.NotFound(format, args...)
	case errors.Is(err, repository.ErrConflict):
		return domain.BusinessRule("concurrent modification, retry the request")
	}
	var de *domain.Error
	if errors.As(err, &de) {
		return err
	}
	return fmt.Errorf("storage: %w", err)
}
