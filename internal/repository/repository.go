package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/shopspring/decimal"

	"geomarket/internal/domain"
)

// ErrNoTransaction блокирующее чтение вызвано вне транзакции
var ErrNoTransaction = errors.New("locking read requires a transaction")

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	MerchantID    int64
	CategoryID    int64
	NameSubstring string
	PublishedOnly bool
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

// OrderFilter параметры фильтрации списка заказов
type OrderFilter struct {
	UserID     int64
	MerchantID int64
	Status     domain.OrderStatus
}

// SalesFilter ограничивает выборку заказов для аналитики
type SalesFilter struct {
	MerchantID int64
	Status     domain.OrderStatus
}

// NearbyQuery параметры радиусного поиска
type NearbyQuery struct {
	Center       domain.GeoPoint
	RadiusKm     float64
	NameContains string
	Limit        int
}

// CatalogRepository адреса, категории и мерчанты
type CatalogRepository interface {
	CreateAddress(ctx context.Context, a *domain.Address) error
	GetAddress(ctx context.Context, id int64) (*domain.Address, error)

	CreateCategory(ctx context.Context, c *domain.Category) error
	ListCategories(ctx context.Context) ([]domain.Category, error)
	// DeleteCategory отклоняется с ErrInUse, пока на категорию ссылаются товары
	DeleteCategory(ctx context.Context, id int64) error

	CreateDeliveryZone(ctx context.Context, z *domain.DeliveryZone) error
	GetDeliveryZone(ctx context.Context, id int64) (*domain.DeliveryZone, error)
	ListDeliveryZones(ctx context.Context) ([]domain.DeliveryZone, error)
	// DeleteDeliveryZone удаляет зону и отвязывает её от мерчантов
	DeleteDeliveryZone(ctx context.Context, id int64) error

	// CreateMerchant создаёт мерчанта вместе с его адресом; второй мерчант того же
	// пользователя отклоняется с ErrConflict
	CreateMerchant(ctx context.Context, m *domain.Merchant) error
	GetMerchant(ctx context.Context, id int64) (*domain.Merchant, error)
	ListMerchants(ctx context.Context) ([]domain.Merchant, error)
	UpdateMerchant(ctx context.Context, m *domain.Merchant) error
	// DeleteMerchant каскадно удаляет товары, остатки, заказы и адрес мерчанта
	DeleteMerchant(ctx context.Context, id int64) error

	Ping(ctx context.Context) error
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	// Delete отклоняется с ErrInUse, пока товар есть в заказах, включая ещё не
	// закоммиченные: строка остатка товара блокируется так же, как при списании
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
}

// InventoryRepository учёт остатков.
//
// GetForUpdate берёт эксклюзивную блокировку строки (merchant, product) до конца
// текущей транзакции; вне транзакции возвращает ErrNoTransaction.
type InventoryRepository interface {
	Get(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error)
	GetForUpdate(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error)
	UpdateStock(ctx context.Context, inv *domain.Inventory) error
	// SetStock перезаписывает остаток, создавая строку при отсутствии
	SetStock(ctx context.Context, merchantID, productID, stock int64) (*domain.Inventory, error)
	ListByMerchant(ctx context.Context, merchantID int64) ([]domain.Inventory, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	AddItems(ctx context.Context, orderID int64, items []domain.OrderItem) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	// SalesByProduct суммирует количество по товарам, по убыванию суммы
	SalesByProduct(ctx context.Context, f SalesFilter) ([]domain.ProductSales, error)
}

// SpatialIndex отвечает на радиусные запросы с сортировкой по расстоянию
type SpatialIndex interface {
	Nearby(ctx context.Context, q NearbyQuery) ([]domain.NearbyProduct, error)
}

// TxManager абстракция транзакции: fn либо применяется целиком, либо не применяется вовсе.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store всё хранилище целиком; реализуется MemoryStore и GormStore
type Store interface {
	Catalog() CatalogRepository
	Products() ProductRepository
	Inventory() InventoryRepository
	Orders() OrderRepository
	Spatial() SpatialIndex
	Tx() TxManager
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
