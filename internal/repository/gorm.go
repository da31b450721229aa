package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"geomarket/internal/domain"
)

// номера ошибок сервера MySQL
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrDeadlock        = 1213
	mysqlErrRowIsReferenced = 1451
	mysqlErrNoReferencedRow = 1452
)

// GormStore хранилище поверх gorm/MySQL. Блокировки строк остатков берутся
// через SELECT ... FOR UPDATE, радиусный поиск считается ST_Distance_Sphere.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore { return &GormStore{db: db} }

var (
	_ Store               = (*GormStore)(nil)
	_ CatalogRepository   = (*GormStore)(nil)
	_ ProductRepository   = (*GormStore)(nil)
	_ SpatialIndex        = (*GormStore)(nil)
	_ InventoryRepository = (*GormInventory)(nil)
	_ OrderRepository     = (*GormOrders)(nil)
	_ TxManager           = (*GormTx)(nil)
)

func (s *GormStore) Catalog() CatalogRepository { return s }
func (s *GormStore) Products() ProductRepository { return s }
func (s *GormStore) Spatial() SpatialIndex { return s }
func (s *GormStore) Inventory() InventoryRepository { return &GormInventory{store: s} }
func (s *GormStore) Orders() OrderRepository { return &GormOrders{store: s} }
func (s *GormStore) Tx() TxManager { return &GormTx{db: s.db} }

type gormTxKey struct{}

func gormTxFrom(ctx context.Context) (*gorm.DB, bool) {
	tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB)
	return tx, ok
}

// conn возвращает транзакцию из контекста либо общий пул
func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := gormTxFrom(ctx); ok {
		return tx.WithContext(ctx)
	}
	return s.db.WithContext(ctx)
}

// GormTx кладёт *gorm.DB транзакции в контекст; репозитории берут его через conn
type GormTx struct{ db *gorm.DB }

func (t *GormTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := gormTxFrom(ctx); ok {
		return fn(ctx)
	}
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

func (s *GormStore) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.Tx().WithTransaction(ctx, fn)
}

// translate переводит ошибки драйвера в доменные; notFound подставляется вместо gorm.ErrRecordNotFound
func translate(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) && notFound != nil {
		return notFound
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("%w: %s", domain.ErrConflict, myErr.Message)
		case mysqlErrLockWaitTimeout, mysqlErrDeadlock:
			return fmt.Errorf("%w: %s", domain.ErrLockTimeout, myErr.Message)
		case mysqlErrRowIsReferenced:
			return fmt.Errorf("%w: %s", domain.ErrInUse, myErr.Message)
		case mysqlErrNoReferencedRow:
			return fmt.Errorf("%w: %s", domain.ErrInvalidInput, myErr.Message)
		}
	}
	return err
}

// CatalogRepository implementation

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) CreateAddress(ctx context.Context, a *domain.Address) error {
	if err := a.Location.Validate(); err != nil {
		return err
	}
	row := addressFromDomain(*a)
	row.ID = 0
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return translate(err, nil)
	}
	a.ID = row.ID
	return nil
}

func (s *GormStore) GetAddress(ctx context.Context, id int64) (*domain.Address, error) {
	var row addressModel
	if err := s.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err, domain.ErrAddressNotFound)
	}
	a := row.toDomain()
	return &a, nil
}

func (s *GormStore) CreateCategory(ctx context.Context, c *domain.Category) error {
	row := categoryModel{Name: c.Name}
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return translate(err, nil)
	}
	c.ID = row.ID
	return nil
}

func (s *GormStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	var rows []categoryModel
	if err := s.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Category{ID: r.ID, Name: r.Name})
	}
	return out, nil
}

func (s *GormStore) DeleteCategory(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var row categoryModel
		if err := db.First(&row, id).Error; err != nil {
			return translate(err, domain.ErrCategoryNotFound)
		}
		var inUse int64
		if err := db.Model(&productModel{}).Where("category_id = ?", id).Count(&inUse).Error; err != nil {
			return err
		}
		if inUse > 0 {
			return fmt.Errorf("%w: category %d has products", domain.ErrInUse, id)
		}
		if err := db.Exec("DELETE FROM merchant_categories WHERE category_id = ?", id).Error; err != nil {
			return err
		}
		return translate(db.Delete(&row).Error, nil)
	})
}

func (s *GormStore) CreateDeliveryZone(ctx context.Context, z *domain.DeliveryZone) error {
	row, err := zoneFromDomain(*z)
	if err != nil {
		return err
	}
	row.ID = 0
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return translate(err, nil)
	}
	z.ID = row.ID
	return nil
}

func (s *GormStore) GetDeliveryZone(ctx context.Context, id int64) (*domain.DeliveryZone, error) {
	var row deliveryZoneModel
	if err := s.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err, domain.ErrZoneNotFound)
	}
	z, err := row.toDomain()
	if err != nil {
		return nil, err
	}
	return &z, nil
}

func (s *GormStore) ListDeliveryZones(ctx context.Context) ([]domain.DeliveryZone, error) {
	var rows []deliveryZoneModel
	if err := s.conn(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DeliveryZone, 0, len(rows))
	for _, r := range rows {
		z, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, z)
	}
	return out, nil
}

func (s *GormStore) DeleteDeliveryZone(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		if err := db.Exec("DELETE FROM merchant_delivery_zones WHERE delivery_zone_id = ?", id).Error; err != nil {
			return err
		}
		res := db.Delete(&deliveryZoneModel{}, id)
		if res.Error != nil {
			return translate(res.Error, nil)
		}
		if res.RowsAffected == 0 {
			return domain.ErrZoneNotFound
		}
		return nil
	})
}

func (s *GormStore) loadZones(db *gorm.DB, ids []int64) ([]deliveryZoneModel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var zones []deliveryZoneModel
	if err := db.Where("id IN ?", ids).Find(&zones).Error; err != nil {
		return nil, err
	}
	if len(zones) != len(uniqueIDs(ids)) {
		return nil, domain.ErrZoneNotFound
	}
	return zones, nil
}

func (s *GormStore) loadCategories(db *gorm.DB, ids []int64) ([]categoryModel, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var cats []categoryModel
	if err := db.Where("id IN ?", ids).Find(&cats).Error; err != nil {
		return nil, err
	}
	if len(cats) != len(uniqueIDs(ids)) {
		return nil, domain.ErrCategoryNotFound
	}
	return cats, nil
}

func (s *GormStore) CreateMerchant(ctx context.Context, m *domain.Merchant) error {
	if err := m.Address.Location.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		cats, err := s.loadCategories(db, m.CategoryIDs)
		if err != nil {
			return err
		}
		zones, err := s.loadZones(db, m.DeliveryZoneIDs)
		if err != nil {
			return err
		}
		addr := addressFromDomain(m.Address)
		addr.ID = 0
		if err := db.Create(&addr).Error; err != nil {
			return translate(err, nil)
		}
		row := merchantModel{UserID: m.UserID, Name: m.Name, AddressID: addr.ID}
		if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
			return translate(err, nil)
		}
		if len(cats) > 0 {
			if err := db.Model(&row).Association("Categories").Replace(&cats); err != nil {
				return err
			}
		}
		if len(zones) > 0 {
			if err := db.Model(&row).Association("DeliveryZones").Replace(&zones); err != nil {
				return err
			}
		}
		m.ID = row.ID
		m.Address.ID = addr.ID
		return nil
	})
}

func (s *GormStore) GetMerchant(ctx context.Context, id int64) (*domain.Merchant, error) {
	var row merchantModel
	err := s.conn(ctx).Preload("Address").Preload("Categories").Preload("DeliveryZones").First(&row, id).Error
	if err != nil {
		return nil, translate(err, domain.ErrMerchantNotFound)
	}
	m := row.toDomain()
	return &m, nil
}

func (s *GormStore) ListMerchants(ctx context.Context) ([]domain.Merchant, error) {
	var rows []merchantModel
	if err := s.conn(ctx).Preload("Address").Preload("Categories").Preload("DeliveryZones").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Merchant, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

func (s *GormStore) UpdateMerchant(ctx context.Context, m *domain.Merchant) error {
	if err := m.Address.Location.Validate(); err != nil {
		return err
	}
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var row merchantModel
		if err := db.First(&row, m.ID).Error; err != nil {
			return translate(err, domain.ErrMerchantNotFound)
		}
		cats, err := s.loadCategories(db, m.CategoryIDs)
		if err != nil {
			return err
		}
		zones, err := s.loadZones(db, m.DeliveryZoneIDs)
		if err != nil {
			return err
		}
		addr := addressFromDomain(m.Address)
		addr.ID = row.AddressID
		if err := db.Save(&addr).Error; err != nil {
			return translate(err, nil)
		}
		if err := db.Model(&row).Update("name", m.Name).Error; err != nil {
			return translate(err, nil)
		}
		if err := db.Model(&row).Association("Categories").Replace(&cats); err != nil {
			return err
		}
		if err := db.Model(&row).Association("DeliveryZones").Replace(&zones); err != nil {
			return err
		}
		m.UserID = row.UserID
		m.Address.ID = row.AddressID
		return nil
	})
}

func (s *GormStore) DeleteMerchant(ctx context.Context, id int64) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var row merchantModel
		if err := db.First(&row, id).Error; err != nil {
			return translate(err, domain.ErrMerchantNotFound)
		}
		// сначала собственные заказы: их позиции держат товары мерчанта (RESTRICT);
		// товары, остатки и позиции уходят каскадом по внешним ключам
		if err := db.Where("merchant_id = ?", id).Delete(&orderModel{}).Error; err != nil {
			return translate(err, nil)
		}
		if err := db.Exec("DELETE FROM merchant_categories WHERE merchant_id = ?", id).Error; err != nil {
			return err
		}
		if err := db.Exec("DELETE FROM merchant_delivery_zones WHERE merchant_id = ?", id).Error; err != nil {
			return err
		}
		if err := db.Delete(&row).Error; err != nil {
			return translate(err, nil)
		}
		return translate(db.Delete(&addressModel{}, row.AddressID).Error, nil)
	})
}

// ProductRepository implementation

func (s *GormStore) checkProductRefs(db *gorm.DB, p *domain.Product) error {
	if err := db.Select("id").First(&merchantModel{}, p.MerchantID).Error; err != nil {
		return translate(err, domain.ErrMerchantNotFound)
	}
	if err := db.Select("id").First(&categoryModel{}, p.CategoryID).Error; err != nil {
		return translate(err, domain.ErrCategoryNotFound)
	}
	return nil
}

func (s *GormStore) Create(ctx context.Context, p *domain.Product) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		if err := s.checkProductRefs(db, p); err != nil {
			return err
		}
		row := productFromDomain(*p)
		row.ID = 0
		if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
			return translate(err, nil)
		}
		p.ID = row.ID
		p.CreatedAt = row.CreatedAt
		return nil
	})
}

func (s *GormStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	var row productModel
	if err := s.conn(ctx).First(&row, id).Error; err != nil {
		return nil, translate(err, domain.ErrProductNotFound)
	}
	p := row.toDomain()
	return &p, nil
}

func (s *GormStore) Update(ctx context.Context, p *domain.Product) error {
	return s.inTx(ctx, func(ctx context.Context) error {
		db := s.conn(ctx)
		var old productModel
		if err := db.First(&old, p.ID).Error; err != nil {
			return translate(err, domain.ErrProductNotFound)
		}
		if err := s.checkProductRefs(db, p); err != nil {
			return err
		}
		row := productFromDomain(*p)
		row.CreatedAt = old.CreatedAt
		if err := db.Omit(clause.Associations).Save(&row).Error; err != nil {
			return translate(err, nil)
		}
		p.CreatedAt = old.CreatedAt
		return nil
	})
}

func (s *GormStore) Delete(ctx context.Context, id int64) error {
	res := s.conn(ctx).Delete(&productModel{}, id)
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (s *GormStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	q := s.conn(ctx).Model(&productModel{})
	if f.MerchantID != 0 {
		q = q.Where("merchant_id = ?", f.MerchantID)
	}
	if f.CategoryID != 0 {
		q = q.Where("category_id = ?", f.CategoryID)
	}
	if f.PublishedOnly {
		q = q.Where("is_published = ?", true)
	}
	if f.NameSubstring != "" {
		q = q.Where("LOWER(name) LIKE ?", likePattern(f.NameSubstring))
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	var rows []productModel
	if err := q.Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// SpatialIndex implementation

type nearbyRow struct {
	ID           int64
	MerchantID   int64
	CategoryID   int64
	Name         string
	Description  string
	Price        decimal.Decimal
	IsPublished  bool
	CreatedAt    time.Time
	MerchantName string
	DistanceM    float64
}

const distanceExpr = "ST_Distance_Sphere(POINT(addresses.longitude, addresses.latitude), POINT(?, ?))"

func (s *GormStore) Nearby(ctx context.Context, q NearbyQuery) ([]domain.NearbyProduct, error) {
	lng, lat := q.Center.Lng, q.Center.Lat
	db := s.conn(ctx).Table("products").
		Select("products.*, merchants.name AS merchant_name, "+distanceExpr+" AS distance_m", lng, lat).
		Joins("JOIN merchants ON merchants.id = products.merchant_id").
		Joins("JOIN addresses ON addresses.id = merchants.address_id").
		Where("products.is_published = ?", true).
		Where(distanceExpr+" <= ?", lng, lat, q.RadiusKm*1000)
	if q.NameContains != "" {
		db = db.Where("LOWER(products.name) LIKE ?", likePattern(q.NameContains))
	}
	db = db.Order("distance_m ASC, products.id ASC")
	if q.Limit > 0 {
		db = db.Limit(q.Limit)
	}
	var rows []nearbyRow
	if err := db.Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.NearbyProduct, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.NearbyProduct{
			Product: domain.Product{
				ID:          r.ID,
				MerchantID:  r.MerchantID,
				CategoryID:  r.CategoryID,
				Name:        r.Name,
				Description: r.Description,
				Price:       r.Price,
				IsPublished: r.IsPublished,
				CreatedAt:   r.CreatedAt,
			},
			MerchantName: r.MerchantName,
			DistanceKm:   r.DistanceM / 1000,
		})
	}
	return out, nil
}

// InventoryRepository implementation on wrapper type
type GormInventory struct{ store *GormStore }

func (gi *GormInventory) Get(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error) {
	var row inventoryModel
	err := gi.store.conn(ctx).Where("merchant_id = ? AND product_id = ?", merchantID, productID).First(&row).Error
	if err != nil {
		return nil, translate(err, domain.ErrInventoryNotFound)
	}
	inv := row.toDomain()
	return &inv, nil
}

func (gi *GormInventory) GetForUpdate(ctx context.Context, merchantID, productID int64) (*domain.Inventory, error) {
	tx, ok := gormTxFrom(ctx)
	if !ok {
		return nil, ErrNoTransaction
	}
	var row inventoryModel
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("merchant_id = ? AND product_id = ?", merchantID, productID).
		First(&row).Error
	if err != nil {
		return nil, translate(err, domain.ErrInventoryNotFound)
	}
	inv := row.toDomain()
	return &inv, nil
}

func (gi *GormInventory) UpdateStock(ctx context.Context, inv *domain.Inventory) error {
	if inv.Stock < 0 {
		return domain.ErrInvalidQuantity
	}
	now := time.Now().UTC()
	res := gi.store.conn(ctx).Model(&inventoryModel{}).
		Where("merchant_id = ? AND product_id = ?", inv.MerchantID, inv.ProductID).
		Updates(map[string]any{"stock": inv.Stock, "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrInventoryNotFound
	}
	inv.UpdatedAt = now
	return nil
}

// SetStock INSERT ... ON DUPLICATE KEY UPDATE; MySQL держит блокировку строки до конца транзакции
func (gi *GormInventory) SetStock(ctx context.Context, merchantID, productID, stock int64) (*domain.Inventory, error) {
	if stock < 0 {
		return nil, domain.ErrInvalidQuantity
	}
	var out domain.Inventory
	err := gi.store.inTx(ctx, func(ctx context.Context) error {
		db := gi.store.conn(ctx)
		var p productModel
		if err := db.Select("id", "merchant_id").First(&p, productID).Error; err != nil {
			return translate(err, domain.ErrProductNotFound)
		}
		if p.MerchantID != merchantID {
			return domain.ErrProductNotFound
		}
		row := inventoryModel{MerchantID: merchantID, ProductID: productID, Stock: stock, UpdatedAt: time.Now().UTC()}
		err := db.Omit(clause.Associations).Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "merchant_id"}, {Name: "product_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"stock", "updated_at"}),
		}).Create(&row).Error
		if err != nil {
			return translate(err, nil)
		}
		var saved inventoryModel
		if err := db.Where("merchant_id = ? AND product_id = ?", merchantID, productID).First(&saved).Error; err != nil {
			return translate(err, domain.ErrInventoryNotFound)
		}
		out = saved.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (gi *GormInventory) ListByMerchant(ctx context.Context, merchantID int64) ([]domain.Inventory, error) {
	var rows []inventoryModel
	if err := gi.store.conn(ctx).Where("merchant_id = ?", merchantID).Order("product_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Inventory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// OrderRepository implementation on wrapper type
type GormOrders struct{ store *GormStore }

func (g *GormOrders) Create(ctx context.Context, o *domain.Order) error {
	db := g.store.conn(ctx)
	if err := db.Select("id").First(&merchantModel{}, o.MerchantID).Error; err != nil {
		return translate(err, domain.ErrMerchantNotFound)
	}
	if err := db.Select("id").First(&addressModel{}, o.AddressID).Error; err != nil {
		return translate(err, domain.ErrAddressNotFound)
	}
	row := orderModel{
		Reference:  o.Reference,
		UserID:     o.UserID,
		MerchantID: o.MerchantID,
		AddressID:  o.AddressID,
		Status:     string(o.Status),
		Total:      o.Total,
	}
	if err := db.Omit(clause.Associations).Create(&row).Error; err != nil {
		return translate(err, nil)
	}
	o.ID = row.ID
	o.CreatedAt = row.CreatedAt
	o.UpdatedAt = row.UpdatedAt
	return nil
}

func (g *GormOrders) AddItems(ctx context.Context, orderID int64, items []domain.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	rows := make([]orderItemModel, len(items))
	for i, it := range items {
		rows[i] = orderItemModel{
			OrderID:   orderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			LineTotal: it.LineTotal,
		}
	}
	if err := g.store.conn(ctx).Omit(clause.Associations).Create(&rows).Error; err != nil {
		return translate(err, nil)
	}
	for i := range items {
		items[i].ID = rows[i].ID
		items[i].OrderID = orderID
	}
	return nil
}

func (g *GormOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var row orderModel
	err := g.store.conn(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&row, id).Error
	if err != nil {
		return nil, translate(err, domain.ErrOrderNotFound)
	}
	o := row.toDomain()
	return &o, nil
}

func (g *GormOrders) Update(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	res := g.store.conn(ctx).Model(&orderModel{}).Where("id = ?", o.ID).
		Updates(map[string]any{"status": string(o.Status), "total": o.Total, "updated_at": now})
	if res.Error != nil {
		return translate(res.Error, nil)
	}
	if res.RowsAffected == 0 {
		return domain.ErrOrderNotFound
	}
	o.UpdatedAt = now
	return nil
}

func (g *GormOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	q := g.store.conn(ctx).Model(&orderModel{})
	if f.UserID != 0 {
		q = q.Where("user_id = ?", f.UserID)
	}
	if f.MerchantID != 0 {
		q = q.Where("merchant_id = ?", f.MerchantID)
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	var rows []orderModel
	if err := q.Preload("Items").Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

type salesRow struct {
	ProductID     int64
	ProductName   string
	TotalQuantity int64
	OrderCount    int64
}

func (g *GormOrders) SalesByProduct(ctx context.Context, f SalesFilter) ([]domain.ProductSales, error) {
	q := g.store.conn(ctx).Table("order_items").
		Select("order_items.product_id AS product_id, products.name AS product_name, " +
			"SUM(order_items.quantity) AS total_quantity, COUNT(DISTINCT order_items.order_id) AS order_count").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Joins("JOIN products ON products.id = order_items.product_id")
	if f.MerchantID != 0 {
		q = q.Where("orders.merchant_id = ?", f.MerchantID)
	}
	if f.Status != "" {
		q = q.Where("orders.status = ?", string(f.Status))
	}
	var rows []salesRow
	err := q.Group("order_items.product_id, products.name").
		Order("total_quantity DESC, order_items.product_id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductSales, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.ProductSales{
			ProductID:     r.ProductID,
			ProductName:   r.ProductName,
			TotalQuantity: r.TotalQuantity,
			OrderCount:    r.OrderCount,
		})
	}
	return out, nil
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}

func uniqueIDs(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
