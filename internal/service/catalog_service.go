package service

import (
	"context"
	"strings"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

// CatalogService мерчанты, категории и адреса; тонкая обёртка над хранилищем
type CatalogService struct {
	repo repository.CatalogRepository
}

func NewCatalogService(repo repository.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

func validateAddress(a domain.Address) error {
	if strings.TrimSpace(a.Line1) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" || strings.TrimSpace(a.Country) == "" {
		return domain.ErrInvalidInput
	}
	return a.Location.Validate()
}

func (s *CatalogService) CreateAddress(ctx context.Context, a domain.Address) (*domain.Address, error) {
	if err := validateAddress(a); err != nil {
		return nil, err
	}
	if err := s.repo.CreateAddress(ctx, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *CatalogService) GetAddress(ctx context.Context, id int64) (*domain.Address, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.GetAddress(ctx, id)
}

func (s *CatalogService) CreateCategory(ctx context.Context, name string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 80 {
		return nil, domain.ErrInvalidInput
	}
	c := domain.Category{Name: name}
	if err := s.repo.CreateCategory(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.repo.ListCategories(ctx)
}

func (s *CatalogService) DeleteCategory(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidInput
	}
	return s.repo.DeleteCategory(ctx, id)
}

// CreateDeliveryZone имя до 120 символов, полигон с замкнутыми кольцами
func (s *CatalogService) CreateDeliveryZone(ctx context.Context, z domain.DeliveryZone) (*domain.DeliveryZone, error) {
	z.Name = strings.TrimSpace(z.Name)
	if z.Name == "" || len(z.Name) > 120 {
		return nil, domain.ErrInvalidInput
	}
	if err := z.Area.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.CreateDeliveryZone(ctx, &z); err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *CatalogService) GetDeliveryZone(ctx context.Context, id int64) (*domain.DeliveryZone, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.GetDeliveryZone(ctx, id)
}

func (s *CatalogService) ListDeliveryZones(ctx context.Context) ([]domain.DeliveryZone, error) {
	return s.repo.ListDeliveryZones(ctx)
}

func (s *CatalogService) DeleteDeliveryZone(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidInput
	}
	return s.repo.DeleteDeliveryZone(ctx, id)
}

func validateMerchant(m domain.Merchant) error {
	if strings.TrimSpace(m.Name) == "" || len(m.Name) > 120 {
		return domain.ErrInvalidInput
	}
	return validateAddress(m.Address)
}

// CreateMerchant регистрирует мерчанта пользователя вместе с адресом
func (s *CatalogService) CreateMerchant(ctx context.Context, m domain.Merchant) (*domain.Merchant, error) {
	if m.UserID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := validateMerchant(m); err != nil {
		return nil, err
	}
	if err := s.repo.CreateMerchant(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *CatalogService) GetMerchant(ctx context.Context, id int64) (*domain.Merchant, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.GetMerchant(ctx, id)
}

func (s *CatalogService) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	return s.repo.ListMerchants(ctx)
}

func (s *CatalogService) UpdateMerchant(ctx context.Context, m domain.Merchant) (*domain.Merchant, error) {
	if m.ID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	if err := validateMerchant(m); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateMerchant(ctx, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *CatalogService) DeleteMerchant(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidInput
	}
	return s.repo.DeleteMerchant(ctx, id)
}

func (s *CatalogService) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}
