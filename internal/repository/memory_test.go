package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomarket/internal/domain"
)

func seed(t *testing.T, store *MemoryStore) (domain.Merchant, domain.Product) {
	t.Helper()
	ctx := context.Background()
	c := domain.Category{Name: "grocery"}
	require.NoError(t, store.CreateCategory(ctx, &c))
	m := domain.Merchant{
		UserID:      1,
		Name:        "corner shop",
		Address:     domain.Address{Line1: "1 Main St", City: "Springfield", PostalCode: "62701", Country: "US", Location: domain.GeoPoint{Lat: 1, Lng: 1}},
		CategoryIDs: []int64{c.ID},
	}
	require.NoError(t, store.CreateMerchant(ctx, &m))
	p := domain.Product{MerchantID: m.ID, CategoryID: c.ID, Name: "Milk", Price: decimal.RequireFromString("1.20"), IsPublished: true}
	require.NoError(t, store.Create(ctx, &p))
	_, err := store.Inventory().SetStock(ctx, m.ID, p.ID, 5)
	require.NoError(t, err)
	return m, p
}

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, p := seed(t, store)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.Name, got.Name)

	p.Price = decimal.RequireFromString("1.50")
	require.NoError(t, store.Update(ctx, &p))

	dup := domain.Product{MerchantID: m.ID, CategoryID: p.CategoryID, Name: "Milk"}
	assert.ErrorIs(t, store.Create(ctx, &dup), domain.ErrConflict)

	list, err := store.List(ctx, ProductFilter{NameSubstring: "MIL", MinPrice: &p.Price})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, store.Delete(ctx, p.ID))
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = store.Inventory().Get(ctx, m.ID, p.ID)
	assert.ErrorIs(t, err, domain.ErrInventoryNotFound, "inventory must cascade with product")
}

func TestMemoryTx_RollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, p := seed(t, store)
	inv := store.Inventory()
	orders := store.Orders()

	boom := errors.New("boom")
	err := store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		row, err := inv.GetForUpdate(ctx, m.ID, p.ID)
		if err != nil {
			return err
		}
		row.Stock -= 3
		if err := inv.UpdateStock(ctx, row); err != nil {
			return err
		}
		o := domain.Order{UserID: 2, MerchantID: m.ID, AddressID: m.Address.ID, Status: domain.OrderStatusPending}
		if err := orders.Create(ctx, &o); err != nil {
			return err
		}
		// внутри транзакции видны собственные записи
		staged, err := inv.Get(ctx, m.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), staged.Stock)
		return boom
	})
	require.ErrorIs(t, err, boom)

	row, err := inv.Get(ctx, m.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), row.Stock)
	list, err := orders.List(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryTx_CommitAppliesWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, p := seed(t, store)
	orders := store.Orders()

	var orderID int64
	err := store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		o := domain.Order{UserID: 2, MerchantID: m.ID, AddressID: m.Address.ID, Status: domain.OrderStatusPending}
		if err := orders.Create(ctx, &o); err != nil {
			return err
		}
		items := []domain.OrderItem{{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price, LineTotal: p.Price}}
		if err := orders.AddItems(ctx, o.ID, items); err != nil {
			return err
		}
		assert.NotZero(t, items[0].ID)
		o.Total = p.Price
		orderID = o.ID
		return orders.Update(ctx, &o)
	})
	require.NoError(t, err)

	got, err := orders.GetByID(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)
	assert.True(t, got.Total.Equal(p.Price))
}

func TestMemoryInventory_LockingReadNeedsTransaction(t *testing.T) {
	store := NewMemoryStore()
	m, p := seed(t, store)
	_, err := store.Inventory().GetForUpdate(context.Background(), m.ID, p.ID)
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestMemoryInventory_LockTimeout(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithLockWait(20 * time.Millisecond))
	m, p := seed(t, store)
	inv := store.Inventory()

	held := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
			if _, err := inv.GetForUpdate(ctx, m.ID, p.ID); err != nil {
				return err
			}
			close(held)
			<-done
			return nil
		})
	}()
	<-held

	err := store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		_, err := inv.GetForUpdate(ctx, m.ID, p.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	close(done)
}

func TestMemoryStore_MerchantCascadeAndRestrict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, p := seed(t, store)

	other := domain.Merchant{UserID: 2, Name: "other", Address: domain.Address{Location: domain.GeoPoint{Lat: 2, Lng: 2}}}
	require.NoError(t, store.CreateMerchant(ctx, &other))

	// заказ другого мерчанта с товаром m держит m от удаления
	orders := store.Orders()
	o := domain.Order{UserID: 3, MerchantID: other.ID, AddressID: other.Address.ID, Status: domain.OrderStatusPending}
	require.NoError(t, orders.Create(ctx, &o))
	require.NoError(t, orders.AddItems(ctx, o.ID, []domain.OrderItem{{ProductID: p.ID, Quantity: 1}}))
	assert.ErrorIs(t, store.DeleteMerchant(ctx, m.ID), domain.ErrInUse)

	require.NoError(t, store.DeleteMerchant(ctx, other.ID))
	_, err := orders.GetByID(ctx, o.ID)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)

	require.NoError(t, store.DeleteMerchant(ctx, m.ID))
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = store.GetAddress(ctx, m.Address.ID)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)
	list, err := store.Inventory().ListByMerchant(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore_NearbyOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := domain.Category{Name: "grocery"}
	require.NoError(t, store.CreateCategory(ctx, &c))

	for i, lat := range []float64{0.03, 0.01, 0.02} {
		m := domain.Merchant{UserID: int64(i + 1), Name: "m", Address: domain.Address{Location: domain.GeoPoint{Lat: lat}}}
		require.NoError(t, store.CreateMerchant(ctx, &m))
		p := domain.Product{MerchantID: m.ID, CategoryID: c.ID, Name: "Tea", IsPublished: true}
		require.NoError(t, store.Create(ctx, &p))
	}

	res, err := store.Nearby(ctx, NearbyQuery{Center: domain.GeoPoint{}, RadiusKm: 10, Limit: 2})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, int64(2), res[0].MerchantID)
	assert.Equal(t, int64(3), res[1].MerchantID)
}

// placeOrderLocked держит строку остатка p, пока не закрыт release, затем пишет заказ с позицией
func placeOrderLocked(store *MemoryStore, m domain.Merchant, p domain.Product, held chan<- struct{}, release <-chan struct{}) error {
	ctx := context.Background()
	inv := store.Inventory()
	orders := store.Orders()
	return store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		row, err := inv.GetForUpdate(ctx, m.ID, p.ID)
		if err != nil {
			return err
		}
		close(held)
		<-release
		row.Stock--
		if err := inv.UpdateStock(ctx, row); err != nil {
			return err
		}
		o := domain.Order{UserID: 7, MerchantID: m.ID, AddressID: m.Address.ID, Status: domain.OrderStatusPending}
		if err := orders.Create(ctx, &o); err != nil {
			return err
		}
		return orders.AddItems(ctx, o.ID, []domain.OrderItem{{ProductID: p.ID, Quantity: 1, UnitPrice: p.Price, LineTotal: p.Price}})
	})
}

func TestMemoryStore_DeleteProductTimesOutOnLockedRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(WithLockWait(20 * time.Millisecond))
	m, p := seed(t, store)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- placeOrderLocked(store, m, p, held, release) }()
	<-held

	assert.ErrorIs(t, store.Delete(ctx, p.ID), domain.ErrLockTimeout)
	assert.ErrorIs(t, store.DeleteMerchant(ctx, m.ID), domain.ErrLockTimeout)

	close(release)
	require.NoError(t, <-done)

	_, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	row, err := store.Inventory().Get(ctx, m.ID, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), row.Stock)
	list, err := store.Orders().List(ctx, OrderFilter{MerchantID: m.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Len(t, list[0].Items, 1)
}

func TestMemoryStore_DeleteProductWaitsForOrderCommit(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, p := seed(t, store)

	held := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- placeOrderLocked(store, m, p, held, release) }()
	<-held

	deleted := make(chan error, 1)
	go func() { deleted <- store.Delete(ctx, p.ID) }()
	close(release)

	require.NoError(t, <-done)
	assert.ErrorIs(t, <-deleted, domain.ErrInUse)
	_, err := store.GetByID(ctx, p.ID)
	assert.NoError(t, err)
}

func TestMemoryTx_CommitFailsWhenProductDeleted(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := seed(t, store)
	orders := store.Orders()

	// товар без строки остатка: транзакция его не блокирует
	loose := domain.Product{MerchantID: m.ID, CategoryID: m.CategoryIDs[0], Name: "Bread", Price: decimal.NewFromInt(2)}
	require.NoError(t, store.Create(ctx, &loose))

	err := store.Tx().WithTransaction(ctx, func(txCtx context.Context) error {
		o := domain.Order{UserID: 7, MerchantID: m.ID, AddressID: m.Address.ID, Status: domain.OrderStatusPending}
		if err := orders.Create(txCtx, &o); err != nil {
			return err
		}
		if err := orders.AddItems(txCtx, o.ID, []domain.OrderItem{{ProductID: loose.ID, Quantity: 1}}); err != nil {
			return err
		}
		return store.Delete(ctx, loose.ID)
	})
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	list, err := orders.List(ctx, OrderFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryStore_MerchantUniquePerUser(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, _ := seed(t, store)

	again := domain.Merchant{UserID: m.UserID, Name: "second shop", Address: domain.Address{Location: domain.GeoPoint{Lat: 3, Lng: 3}}}
	assert.ErrorIs(t, store.CreateMerchant(ctx, &again), domain.ErrConflict)

	list, err := store.ListMerchants(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func square(size float64) domain.GeoPolygon {
	return domain.GeoPolygon{Polygon: orb.Polygon{orb.Ring{{0, 0}, {0, size}, {size, size}, {size, 0}, {0, 0}}}}
}

func TestMemoryStore_DeliveryZones(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	bad := domain.DeliveryZone{Name: "open", Area: domain.GeoPolygon{Polygon: orb.Polygon{orb.Ring{{0, 0}, {0, 1}, {1, 1}, {1, 0}}}}}
	assert.ErrorIs(t, store.CreateDeliveryZone(ctx, &bad), domain.ErrInvalidGeometry)

	center := domain.DeliveryZone{Name: "center", Area: square(1)}
	require.NoError(t, store.CreateDeliveryZone(ctx, &center))
	suburbs := domain.DeliveryZone{Name: "suburbs", Area: square(3)}
	require.NoError(t, store.CreateDeliveryZone(ctx, &suburbs))

	got, err := store.GetDeliveryZone(ctx, center.ID)
	require.NoError(t, err)
	assert.Equal(t, "center", got.Name)
	assert.Equal(t, center.Area.Polygon, got.Area.Polygon)

	m := domain.Merchant{
		UserID:          1,
		Name:            "corner shop",
		Address:         domain.Address{Location: domain.GeoPoint{Lat: 0.5, Lng: 0.5}},
		DeliveryZoneIDs: []int64{center.ID, suburbs.ID},
	}
	require.NoError(t, store.CreateMerchant(ctx, &m))

	unknown := domain.Merchant{UserID: 2, Name: "x", DeliveryZoneIDs: []int64{99}}
	assert.ErrorIs(t, store.CreateMerchant(ctx, &unknown), domain.ErrZoneNotFound)

	require.NoError(t, store.DeleteDeliveryZone(ctx, center.ID))
	assert.ErrorIs(t, store.DeleteDeliveryZone(ctx, center.ID), domain.ErrZoneNotFound)

	saved, err := store.GetMerchant(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{suburbs.ID}, saved.DeliveryZoneIDs)

	zones, err := store.ListDeliveryZones(ctx)
	require.NoError(t, err)
	require.Len(t, zones, 1)
	assert.Equal(t, suburbs.ID, zones[0].ID)
}

func TestMemoryOrders_SalesByProduct(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	m, milk := seed(t, store)
	orders := store.Orders()

	bread := domain.Product{MerchantID: m.ID, CategoryID: m.CategoryIDs[0], Name: "Bread", Price: decimal.NewFromInt(2)}
	require.NoError(t, store.Create(ctx, &bread))

	place := func(status domain.OrderStatus, items ...domain.OrderItem) {
		o := domain.Order{UserID: 7, MerchantID: m.ID, AddressID: m.Address.ID, Status: status}
		require.NoError(t, orders.Create(ctx, &o))
		require.NoError(t, orders.AddItems(ctx, o.ID, items))
	}
	place(domain.OrderStatusPending,
		domain.OrderItem{ProductID: milk.ID, Quantity: 2},
		domain.OrderItem{ProductID: bread.ID, Quantity: 3})
	place(domain.OrderStatusConfirmed, domain.OrderItem{ProductID: milk.ID, Quantity: 4})

	all, err := orders.SalesByProduct(ctx, SalesFilter{})
	require.NoError(t, err)
	assert.Equal(t, []domain.ProductSales{
		{ProductID: milk.ID, ProductName: "Milk", TotalQuantity: 6, OrderCount: 2},
		{ProductID: bread.ID, ProductName: "Bread", TotalQuantity: 3, OrderCount: 1},
	}, all)

	confirmed, err := orders.SalesByProduct(ctx, SalesFilter{MerchantID: m.ID, Status: domain.OrderStatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, []domain.ProductSales{{ProductID: milk.ID, ProductName: "Milk", TotalQuantity: 4, OrderCount: 1}}, confirmed)

	none, err := orders.SalesByProduct(ctx, SalesFilter{MerchantID: m.ID + 100})
	require.NoError(t, err)
	assert.Empty(t, none)
}
