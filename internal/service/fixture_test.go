package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"geomarket/internal/cache"
	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

// kmPerDegree длина градуса меридиана на сфере радиуса orb.EarthRadius
const kmPerDegree = 111.319491

type fixture struct {
	store     *repository.MemoryStore
	catalog   *CatalogService
	products  *ProductService
	inventory *InventoryService
	orders    *OrderService
	search    *SearchService
	priority  *PriorityService
	category  domain.Category
	nextUser  int64
}

func newFixture(t *testing.T, opts ...repository.MemoryOption) *fixture {
	t.Helper()
	store := repository.NewMemoryStore(opts...)
	inv := NewInventoryService(store.Inventory(), store.Tx())
	f := &fixture{
		store:     store,
		catalog:   NewCatalogService(store.Catalog()),
		products:  NewProductService(store.Products()),
		inventory: inv,
		orders:    NewOrderService(store.Products(), store.Orders(), inv, store.Tx()),
		search:    NewSearchService(store.Spatial(), cache.NewMemory(), SearchConfig{}),
		priority:  NewPriorityService(store.Orders(), store.Catalog()),
	}
	c, err := f.catalog.CreateCategory(context.Background(), "grocery")
	require.NoError(t, err)
	f.category = *c
	return f
}

// pointNorthKm точка в km километрах к северу от начала координат
func pointNorthKm(km float64) domain.GeoPoint {
	return domain.GeoPoint{Lat: km / kmPerDegree, Lng: 0}
}

func (f *fixture) merchant(t *testing.T, name string, at domain.GeoPoint) *domain.Merchant {
	t.Helper()
	// у каждого пользователя не больше одного мерчанта
	f.nextUser++
	m, err := f.catalog.CreateMerchant(context.Background(), domain.Merchant{
		UserID: 100 + f.nextUser,
		Name:   name,
		Address: domain.Address{
			Line1:      "1 Main St",
			City:       "Springfield",
			State:      "IL",
			PostalCode: "62701",
			Country:    "US",
			Location:   at,
		},
		CategoryIDs: []int64{f.category.ID},
	})
	require.NoError(t, err)
	return m
}

func (f *fixture) product(t *testing.T, merchantID int64, name, price string, stock int64) *domain.Product {
	t.Helper()
	ctx := context.Background()
	p, err := f.products.Create(ctx, domain.Product{
		MerchantID:  merchantID,
		CategoryID:  f.category.ID,
		Name:        name,
		Price:       decimal.RequireFromString(price),
		IsPublished: true,
	})
	require.NoError(t, err)
	_, err = f.inventory.SetStock(ctx, merchantID, p.ID, stock)
	require.NoError(t, err)
	return p
}

func (f *fixture) stock(t *testing.T, merchantID, productID int64) int64 {
	t.Helper()
	inv, err := f.inventory.GetStock(context.Background(), merchantID, productID)
	require.NoError(t, err)
	return inv.Stock
}
