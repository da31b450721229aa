package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// moneyPlaces денежные суммы отдаются строкой с двумя знаками: "1.50"
const moneyPlaces = 2

// Address почтовый адрес с геоточкой; принадлежит ровно одному мерчанту
type Address struct {
	ID         int64    `json:"id"`
	Line1      string   `json:"line1"`
	Line2      string   `json:"line2"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	PostalCode string   `json:"postal_code"`
	Country    string   `json:"country"`
	Location   GeoPoint `json:"location"`
}

// Category категория товаров
type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DeliveryZone зона доставки. Один мерчант обслуживает любое число зон,
// одна зона может принадлежать нескольким мерчантам.
type DeliveryZone struct {
	ID   int64      `json:"id"`
	Name string     `json:"name"`
	Area GeoPolygon `json:"area"`
}

// Merchant продавец с собственным адресом; у пользователя не больше одного мерчанта
type Merchant struct {
	ID              int64   `json:"id"`
	UserID          int64   `json:"user"`
	Name            string  `json:"name"`
	Address         Address `json:"address"`
	CategoryIDs     []int64 `json:"categories"`
	DeliveryZoneIDs []int64 `json:"delivery_zones"`
}

// Product товар мерчанта
type Product struct {
	ID          int64           `json:"id"`
	MerchantID  int64           `json:"merchant"`
	CategoryID  int64           `json:"category"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	IsPublished bool            `json:"is_published"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (p Product) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Price string `json:"price"`
	}{alias(p), p.Price.StringFixed(moneyPlaces)})
}

// Inventory остаток товара у мерчанта; одна запись на пару (merchant, product)
type Inventory struct {
	ID         int64     `json:"id"`
	MerchantID int64     `json:"merchant"`
	ProductID  int64     `json:"product"`
	Stock      int64     `json:"stock"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusConfirmed OrderStatus = "confirmed"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusCancelled OrderStatus = "cancelled"
)

// Valid сообщает, входит ли статус в допустимый набор
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusFulfilled, OrderStatusCancelled:
		return true
	}
	return false
}

// OrderItem позиция в заказе. UnitPrice фиксируется в момент оформления.
type OrderItem struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"-"`
	ProductID int64           `json:"product"`
	Quantity  int64           `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

func (it OrderItem) MarshalJSON() ([]byte, error) {
	type alias OrderItem
	return json.Marshal(struct {
		alias
		UnitPrice string `json:"unit_price"`
		LineTotal string `json:"line_total"`
	}{alias(it), it.UnitPrice.StringFixed(moneyPlaces), it.LineTotal.StringFixed(moneyPlaces)})
}

// Order сущность заказа
type Order struct {
	ID         int64           `json:"id"`
	Reference  string          `json:"reference"`
	UserID     int64           `json:"user"`
	MerchantID int64           `json:"merchant"`
	AddressID  int64           `json:"address"`
	Status     OrderStatus     `json:"status"`
	Total      decimal.Decimal `json:"total"`
	Items      []OrderItem     `json:"items"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

func (o Order) MarshalJSON() ([]byte, error) {
	type alias Order
	return json.Marshal(struct {
		alias
		Total string `json:"total"`
	}{alias(o), o.Total.StringFixed(moneyPlaces)})
}

// ProductSales сколько штук товара заказано суммарно и в скольких заказах.
// Ключ product__name сохранён для совместимости с прежним API аналитики.
type ProductSales struct {
	ProductID     int64  `json:"product_id"`
	ProductName   string `json:"product__name"`
	TotalQuantity int64  `json:"total_quantity"`
	OrderCount    int64  `json:"order_count"`
}

// LineItem строка запроса на оформление заказа
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

// NearbyProduct товар из результата геопоиска вместе с расстоянием до центра
type NearbyProduct struct {
	Product
	MerchantName string  `json:"merchant_name"`
	DistanceKm   float64 `json:"distance_km"`
}

// MarshalJSON нужен явно: иначе поднимется метод встроенного Product и потеряет поля поиска
func (n NearbyProduct) MarshalJSON() ([]byte, error) {
	type alias Product
	return json.Marshal(struct {
		alias
		Price        string  `json:"price"`
		MerchantName string  `json:"merchant_name"`
		DistanceKm   float64 `json:"distance_km"`
	}{alias(n.Product), n.Price.StringFixed(moneyPlaces), n.MerchantName, n.DistanceKm})
}

// Candidate кандидат на доставку (курьер) с координатами
type Candidate struct {
	ID       string   `json:"id"`
	Location GeoPoint `json:"location"`
}

// Assignment результат выбора кандидата
type Assignment struct {
	OrderID    int64     `json:"order_id"`
	Candidate  Candidate `json:"candidate"`
	DistanceKm float64   `json:"distance_km"`
}
