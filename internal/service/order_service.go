package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

// OrderService оформление заказов поверх учёта остатков
type OrderService struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	inventory *InventoryService
	tx        repository.TxManager
}

func NewOrderService(products repository.ProductRepository, orders repository.OrderRepository, inventory *InventoryService, tx repository.TxManager) *OrderService {
	return &OrderService{products: products, orders: orders, inventory: inventory, tx: tx}
}

// PlaceOrderRequest проверенный на границе запрос
type PlaceOrderRequest struct {
	UserID     int64
	MerchantID int64
	AddressID  int64
	Items      []domain.LineItem
}

func (r PlaceOrderRequest) validate() error {
	if r.UserID <= 0 || r.MerchantID <= 0 || r.AddressID <= 0 || len(r.Items) == 0 {
		return domain.ErrInvalidInput
	}
	for _, it := range r.Items {
		if it.ProductID <= 0 {
			return domain.ErrInvalidInput
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: product %d quantity %d", domain.ErrInvalidQuantity, it.ProductID, it.Quantity)
		}
	}
	return nil
}

// PlaceOrder списывает остатки по каждой позиции в порядке запроса и сохраняет заказ.
// Вся операция выполняется в одной транзакции: любая ошибка откатывает заказ,
// позиции и все уже сделанные списания.
func (s *OrderService) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o := domain.Order{
			Reference:  uuid.NewString(),
			UserID:     req.UserID,
			MerchantID: req.MerchantID,
			AddressID:  req.AddressID,
			Status:     domain.OrderStatusPending,
			Total:      decimal.Zero,
		}
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(req.Items))
		total := decimal.Zero
		for _, line := range req.Items {
			p, err := s.products.GetByID(ctx, line.ProductID)
			if err != nil {
				return fmt.Errorf("line product %d: %w", line.ProductID, err)
			}
			if p.MerchantID != req.MerchantID {
				return fmt.Errorf("%w: product %d is not sold by merchant %d", domain.ErrProductNotFound, p.ID, req.MerchantID)
			}
			if _, err := s.inventory.DecrementStock(ctx, req.MerchantID, p.ID, line.Quantity); err != nil {
				return err
			}
			lineTotal := p.Price.Mul(decimal.NewFromInt(line.Quantity))
			items = append(items, domain.OrderItem{
				ProductID: p.ID,
				Quantity:  line.Quantity,
				UnitPrice: p.Price,
				LineTotal: lineTotal,
			})
			total = total.Add(lineTotal)
		}

		if err := s.orders.AddItems(ctx, o.ID, items); err != nil {
			return err
		}
		o.Total = total
		if err := s.orders.Update(ctx, &o); err != nil {
			return err
		}
		o.Items = items
		created = &o
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "order rejected",
			"user_id", req.UserID, "merchant_id", req.MerchantID, "error", err)
		return nil, err
	}
	slog.InfoContext(ctx, "order placed",
		"order_id", created.ID, "reference", created.Reference, "total", created.Total.StringFixed(2), "items", len(created.Items))
	return created, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidInput
	}
	return s.orders.List(ctx, f)
}

// SalesByProduct аналитика заказов: сколько штук каждого товара заказано
func (s *OrderService) SalesByProduct(ctx context.Context, f repository.SalesFilter) ([]domain.ProductSales, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.ErrInvalidInput
	}
	if f.MerchantID < 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.orders.SalesByProduct(ctx, f)
}

// UpdateStatus простое обновление поля; остатки не трогает
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	if id <= 0 || !status.Valid() {
		return nil, domain.ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		o.Status = status
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
