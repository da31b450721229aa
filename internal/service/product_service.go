package service

import (
	"context"
	"log/slog"
	"strings"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров
type ProductService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) *ProductService {
	return &ProductService{repo: repo}
}

func validateProduct(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" || len(p.Name) > 120 || p.MerchantID <= 0 || p.CategoryID <= 0 {
		return domain.ErrInvalidInput
	}
	// decimal(10,2): не больше двух знаков после запятой
	if p.Price.IsNegative() || !p.Price.Equal(p.Price.Round(2)) {
		return domain.ErrInvalidInput
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	cp := p
	if err := validateProduct(&cp); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	cp := p
	if err := validateProduct(&cp); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

// Publish и Unpublish не сбрасывают кэш поиска: устаревание ограничено TTL
func (s *ProductService) Publish(ctx context.Context, id int64) (*domain.Product, error) {
	return s.setPublished(ctx, id, true)
}

func (s *ProductService) Unpublish(ctx context.Context, id int64) (*domain.Product, error) {
	return s.setPublished(ctx, id, false)
}

func (s *ProductService) setPublished(ctx context.Context, id int64, published bool) (*domain.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsPublished == published {
		return p, nil
	}
	p.IsPublished = published
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "product publish state changed", "product_id", id, "published", published)
	return p, nil
}
