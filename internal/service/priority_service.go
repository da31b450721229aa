package service

import (
	"context"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

// NearestCandidate кандидат с минимальным расстоянием до origin.
// При равенстве побеждает первый по порядку; ok=false для пустого списка.
func NearestCandidate(origin domain.GeoPoint, candidates []domain.Candidate) (best domain.Candidate, distanceKm float64, ok bool) {
	for _, c := range candidates {
		d := origin.DistanceKm(c.Location)
		if !ok || d < distanceKm {
			best, distanceKm, ok = c, d, true
		}
	}
	return best, distanceKm, ok
}

// PriorityService назначает доставку ближайшему к мерчанту заказа кандидату
type PriorityService struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
}

func NewPriorityService(orders repository.OrderRepository, catalog repository.CatalogRepository) *PriorityService {
	return &PriorityService{orders: orders, catalog: catalog}
}

// Assign возвращает nil без ошибки, если кандидатов нет
func (s *PriorityService) Assign(ctx context.Context, orderID int64, candidates []domain.Candidate) (*domain.Assignment, error) {
	if orderID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	for _, c := range candidates {
		if err := c.Location.Validate(); err != nil {
			return nil, err
		}
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	m, err := s.catalog.GetMerchant(ctx, o.MerchantID)
	if err != nil {
		return nil, err
	}
	best, d, ok := NearestCandidate(m.Address.Location, candidates)
	if !ok {
		return nil, nil
	}
	return &domain.Assignment{OrderID: o.ID, Candidate: best, DistanceKm: d}, nil
}
