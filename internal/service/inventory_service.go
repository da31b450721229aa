package service

import (
	"context"
	"errors"
	"log/slog"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

// InventoryService учёт остатков (merchant, product).
//
// Списание выполняется под эксклюзивной блокировкой строки: проверка остатка и
// запись происходят в одной транзакции, поэтому два конкурентных списания с одной
// строкой никогда не проходят оба сверх остатка.
type InventoryService struct {
	inventory repository.InventoryRepository
	tx        repository.TxManager
}

func NewInventoryService(inventory repository.InventoryRepository, tx repository.TxManager) *InventoryService {
	return &InventoryService{inventory: inventory, tx: tx}
}

// SetStock идемпотентно перезаписывает остаток, создавая строку при необходимости
func (s *InventoryService) SetStock(ctx context.Context, merchantID, productID, quantity int64) (*domain.Inventory, error) {
	if quantity < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	if merchantID <= 0 || productID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	inv, err := s.inventory.SetStock(ctx, merchantID, productID, quantity)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "stock set", "merchant_id", merchantID, "product_id", productID, "stock", inv.Stock)
	return inv, nil
}

// DecrementStock атомарно проверяет stock >= quantity и списывает.
// Внутри внешней транзакции присоединяется к ней, и блокировка строки держится до её конца.
func (s *InventoryService) DecrementStock(ctx context.Context, merchantID, productID, quantity int64) (*domain.Inventory, error) {
	if quantity <= 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out domain.Inventory
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		inv, err := s.inventory.GetForUpdate(ctx, merchantID, productID)
		if errors.Is(err, domain.ErrInventoryNotFound) {
			// нет строки остатка: продавать нечего
			return &domain.InsufficientStockError{ProductID: productID, Requested: quantity}
		}
		if err != nil {
			return err
		}
		if inv.Stock < quantity {
			return &domain.InsufficientStockError{ProductID: productID, Requested: quantity, Available: inv.Stock}
		}
		inv.Stock -= quantity
		if err := s.inventory.UpdateStock(ctx, inv); err != nil {
			return err
		}
		out = *inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *InventoryService) GetStock(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error) {
	return s.inventory.Get(ctx, merchantID, productID)
}

func (s *InventoryService) ListByMerchant(ctx context.Context, merchantID int64) ([]domain.Inventory, error) {
	if merchantID <= 0 {
		return nil, domain.ErrInvalidInput
	}
	return s.inventory.ListByMerchant(ctx, merchantID)
}
