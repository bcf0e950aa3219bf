package service

import (
	"context"
	"errors"
	"strings"

	"autoservice/internal/auth"
	"autoservice/internal/domain"
	"autoservice/internal/repository"
)

// ProductService каталог запчастей; остатки меняет только через InventoryLedger
type ProductService struct {
	repo   repository.ProductRepository
	ledger *InventoryLedger
	authz  auth.Authorizer
}

func NewProductService(repo repository.ProductRepository, ledger *InventoryLedger, authz auth.Authorizer) *ProductService {
	return &ProductService{repo: repo, ledger: ledger, authz: authz}
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return domain.Validation("product name is required")
	case strings.TrimSpace(p.PartNumber) == "":
		return domain.Validation("part number is required")
	case p.Price.IsNegative():
		return domain.Validation("price must not be negative")
	case p.Quantity < 0:
		return domain.Validation("quantity must not be negative")
	case !p.Category.Valid():
		return domain.Validation("unknown category %q", p.Category)
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, caller auth.Principal, p domain.Product) (*domain.Product, error) {
	if err := auth.Require(s.authz, caller, auth.ProductManage); err != nil {
		return nil, err
	}
	if p.Category == "" {
		p.Category = domain.CategoryOther
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.BusinessRule("product with part number %s already exists", p.PartNumber)
		}
		return nil, translateErr(err, "product not found")
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, domain.Validation("product id is required")
	}
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateErr(err, "product %s not found", id)
	}
	return p, nil
}

// Update меняет карточку товара; количество на складе игнорируется
func (s *ProductService) Update(ctx context.Context, caller auth.Principal, p domain.Product) (*domain.Product, error) {
	if err := auth.Require(s.authz, caller, auth.ProductManage); err != nil {
		return nil, err
	}
	if p.Category == "" {
		p.Category = domain.CategoryOther
	}
	p.Quantity = 0
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, domain.BusinessRule("product with part number %s already exists", p.PartNumber)
		}
		return nil, translateErr(err, "product %s not found", p.ID)
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, caller auth.Principal, id string) error {
	if err := auth.Require(s.authz, caller, auth.ProductManage); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateErr(err, "product %s not found", id)
	}
	return nil
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && f.MinPrice.GreaterThan(*f.MaxPrice) {
		return nil, domain.Validation("min price is greater than max price")
	}
	return s.repo.List(ctx, f)
}

// ToggleStatus включает и выключает товар для заказа
func (s *ProductService) ToggleStatus(ctx context.Context, caller auth.Principal, id string) (*domain.Product, error) {
	if err := auth.Require(s.authz, caller, auth.ProductManage); err != nil {
		return nil, err
	}
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.IsActive = !p.IsActive
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, translateErr(err, "product %s not found", id)
	}
	return p, nil
}

func (s *ProductService) IncreaseStock(ctx context.Context, caller auth.Principal, id string, qty int) (*domain.Product, error) {
	if err := auth.Require(s.authz, caller, auth.ProductManage); err != nil {
		return nil, err
	}
	return s.ledger.IncreaseStock(ctx, id, qty)
}

func (s *ProductService) DecreaseStock(ctx context.Context, caller auth.Principal, id string, qty int) (*domain.Product, error) {
	if err := auth.Require(s.authz, caller, auth.ProductManage); err != nil {
		return nil, err
	}
	return s.ledger.DecreaseStock(ctx, id, qty)
}
