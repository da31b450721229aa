package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidQuantity   = errors.New("invalid quantity")
	ErrInvalidGeometry   = errors.New("invalid geometry")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrMerchantNotFound  = errors.New("merchant not found")
	ErrCategoryNotFound  = errors.New("category not found")
	ErrAddressNotFound   = errors.New("address not found")
	ErrInventoryNotFound = errors.New("inventory not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrZoneNotFound      = errors.New("delivery zone not found")
	// ErrConflict нарушение уникальности
	ErrConflict = errors.New("conflict")
	// ErrInUse удаление запрещено: на запись ссылаются другие
	ErrInUse = errors.New("in use")
	// ErrLockTimeout не дождались блокировки строки
	ErrLockTimeout = errors.New("lock wait timeout exceeded")
)

// InsufficientStockError остатка не хватает для списания
type InsufficientStockError struct {
	ProductID int64
	Requested int64
	Available int64
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %d: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
