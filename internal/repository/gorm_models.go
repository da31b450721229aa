package repository

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"geomarket/internal/domain"
)

type addressModel struct {
	ID         int64   `gorm:"primaryKey"`
	Line1      string  `gorm:"size:255;not null"`
	Line2      string  `gorm:"size:255;not null;default:''"`
	City       string  `gorm:"size:80;not null"`
	State      string  `gorm:"size:80;not null"`
	PostalCode string  `gorm:"size:20;not null"`
	Country    string  `gorm:"size:80;not null"`
	Latitude   float64 `gorm:"not null;index:idx_address_location"`
	Longitude  float64 `gorm:"not null;index:idx_address_location"`
}

func (addressModel) TableName() string { return "addresses" }

type categoryModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:80;not null;uniqueIndex"`
}

func (categoryModel) TableName() string { return "product_categories" }

// deliveryZoneModel полигон хранится GeoJSON-документом; запросов на попадание в зону нет
type deliveryZoneModel struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"size:120;not null"`
	Area string `gorm:"type:json;not null"`
}

func (deliveryZoneModel) TableName() string { return "delivery_zones" }

type merchantModel struct {
	ID            int64               `gorm:"primaryKey"`
	UserID        int64               `gorm:"not null;uniqueIndex"`
	Name          string              `gorm:"size:120;not null"`
	AddressID     int64               `gorm:"not null;uniqueIndex"`
	Address       addressModel        `gorm:"foreignKey:AddressID;constraint:OnDelete:CASCADE"`
	Categories    []categoryModel     `gorm:"many2many:merchant_categories;joinForeignKey:MerchantID;joinReferences:CategoryID"`
	DeliveryZones []deliveryZoneModel `gorm:"many2many:merchant_delivery_zones;joinForeignKey:MerchantID;joinReferences:DeliveryZoneID"`
}

func (merchantModel) TableName() string { return "merchants" }

type productModel struct {
	ID          int64           `gorm:"primaryKey"`
	Name        string          `gorm:"size:120;not null;uniqueIndex:idx_product_identity"`
	MerchantID  int64           `gorm:"not null;uniqueIndex:idx_product_identity;index:idx_product_merchant_category"`
	CategoryID  int64           `gorm:"not null;uniqueIndex:idx_product_identity;index:idx_product_merchant_category"`
	Description string          `gorm:"type:text"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	IsPublished bool            `gorm:"not null"`
	CreatedAt   time.Time
	Merchant    merchantModel `gorm:"constraint:OnDelete:CASCADE"`
	Category    categoryModel `gorm:"constraint:OnDelete:RESTRICT"`
}

func (productModel) TableName() string { return "products" }

type inventoryModel struct {
	ID         int64 `gorm:"primaryKey"`
	MerchantID int64 `gorm:"not null;uniqueIndex:idx_inventory_pair"`
	ProductID  int64 `gorm:"not null;uniqueIndex:idx_inventory_pair"`
	Stock      int64 `gorm:"not null;check:chk_inventory_stock,stock >= 0"`
	UpdatedAt  time.Time
	Merchant   merchantModel `gorm:"constraint:OnDelete:CASCADE"`
	Product    productModel  `gorm:"constraint:OnDelete:CASCADE"`
}

func (inventoryModel) TableName() string { return "inventories" }

type orderModel struct {
	ID         int64           `gorm:"primaryKey"`
	Reference  string          `gorm:"size:36;not null;uniqueIndex"`
	UserID     int64           `gorm:"not null;index"`
	MerchantID int64           `gorm:"not null;index"`
	AddressID  int64           `gorm:"not null"`
	Status     string          `gorm:"size:16;not null;default:pending;index"`
	Total      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Items      []orderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Merchant   merchantModel    `gorm:"constraint:OnDelete:CASCADE"`
	Address    addressModel     `gorm:"constraint:OnDelete:RESTRICT"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID        int64           `gorm:"primaryKey"`
	OrderID   int64           `gorm:"not null;index"`
	ProductID int64           `gorm:"not null;index"`
	Quantity  int64           `gorm:"not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(10,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Product   productModel    `gorm:"constraint:OnDelete:RESTRICT"`
}

func (orderItemModel) TableName() string { return "order_items" }

// Migrate создаёт или дополняет схему
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&addressModel{},
		&categoryModel{},
		&deliveryZoneModel{},
		&merchantModel{},
		&productModel{},
		&inventoryModel{},
		&orderModel{},
		&orderItemModel{},
	)
}

func addressFromDomain(a domain.Address) addressModel {
	return addressModel{
		ID:         a.ID,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Latitude:   a.Location.Lat,
		Longitude:  a.Location.Lng,
	}
}

func (a addressModel) toDomain() domain.Address {
	return domain.Address{
		ID:         a.ID,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
		Location:   domain.GeoPoint{Lat: a.Latitude, Lng: a.Longitude},
	}
}

func zoneFromDomain(z domain.DeliveryZone) (deliveryZoneModel, error) {
	if err := z.Area.Validate(); err != nil {
		return deliveryZoneModel{}, err
	}
	area, err := json.Marshal(z.Area)
	if err != nil {
		return deliveryZoneModel{}, err
	}
	return deliveryZoneModel{ID: z.ID, Name: z.Name, Area: string(area)}, nil
}

func (z deliveryZoneModel) toDomain() (domain.DeliveryZone, error) {
	out := domain.DeliveryZone{ID: z.ID, Name: z.Name}
	if err := json.Unmarshal([]byte(z.Area), &out.Area); err != nil {
		return domain.DeliveryZone{}, fmt.Errorf("delivery zone %d area: %w", z.ID, err)
	}
	return out, nil
}

func (m merchantModel) toDomain() domain.Merchant {
	ids := make([]int64, 0, len(m.Categories))
	for _, c := range m.Categories {
		ids = append(ids, c.ID)
	}
	zones := make([]int64, 0, len(m.DeliveryZones))
	for _, z := range m.DeliveryZones {
		zones = append(zones, z.ID)
	}
	return domain.Merchant{
		ID:              m.ID,
		UserID:          m.UserID,
		Name:            m.Name,
		Address:         m.Address.toDomain(),
		CategoryIDs:     ids,
		DeliveryZoneIDs: zones,
	}
}

func productFromDomain(p domain.Product) productModel {
	return productModel{
		ID:          p.ID,
		Name:        p.Name,
		MerchantID:  p.MerchantID,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		Price:       p.Price,
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt,
	}
}

func (p productModel) toDomain() domain.Product {
	return domain.Product{
		ID:          p.ID,
		MerchantID:  p.MerchantID,
		CategoryID:  p.CategoryID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		IsPublished: p.IsPublished,
		CreatedAt:   p.CreatedAt,
	}
}

func (i inventoryModel) toDomain() domain.Inventory {
	return domain.Inventory{
		ID:         i.ID,
		MerchantID: i.MerchantID,
		ProductID:  i.ProductID,
		Stock:      i.Stock,
		UpdatedAt:  i.UpdatedAt,
	}
}

func (o orderModel) toDomain() domain.Order {
	items := make([]domain.OrderItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, domain.OrderItem{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		})
	}
	return domain.Order{
		ID:         o.ID,
		Reference:  o.Reference,
		UserID:     o.UserID,
		MerchantID: o.MerchantID,
		AddressID:  o.AddressID,
		Status:     domain.OrderStatus(o.Status),
		Total:      o.Total,
		Items:      items,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
}
