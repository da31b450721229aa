package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

func TestProduct_CRUD(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0))

	p, err := f.products.Create(ctx, domain.Product{
		MerchantID: m.ID, CategoryID: f.category.ID, Name: "  Milk  ", Price: decimal.RequireFromString("1.20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Milk", p.Name)
	assert.False(t, p.IsPublished)

	p.Description = "2.5%"
	p.Price = decimal.RequireFromString("1.35")
	upd, err := f.products.Update(ctx, *p)
	require.NoError(t, err)
	assert.Equal(t, p.CreatedAt, upd.CreatedAt)

	got, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("1.35")))

	pub, err := f.products.Publish(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, pub.IsPublished)

	list, err := f.products.List(ctx, repository.ProductFilter{MerchantID: m.ID, PublishedOnly: true})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, f.products.Delete(ctx, p.ID))
	_, err = f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}

func TestProduct_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0))

	cases := map[string]domain.Product{
		"empty name":     {MerchantID: m.ID, CategoryID: f.category.ID, Name: " ", Price: decimal.NewFromInt(1)},
		"negative price": {MerchantID: m.ID, CategoryID: f.category.ID, Name: "A", Price: decimal.NewFromInt(-1)},
		"three decimals": {MerchantID: m.ID, CategoryID: f.category.ID, Name: "A", Price: decimal.RequireFromString("1.005")},
		"no merchant":    {CategoryID: f.category.ID, Name: "A", Price: decimal.NewFromInt(1)},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.products.Create(ctx, p)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	_, err := f.products.Create(ctx, domain.Product{MerchantID: m.ID, CategoryID: 999, Name: "A", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
}

func TestProduct_UniqueIdentity(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0))
	f.product(t, m.ID, "Milk", "1.20", 1)

	_, err := f.products.Create(ctx, domain.Product{MerchantID: m.ID, CategoryID: f.category.ID, Name: "Milk", Price: decimal.NewFromInt(2)})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestProduct_DeleteRestrictedByOrders(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0))
	p := f.product(t, m.ID, "Milk", "1.20", 5)
	_, err := f.orders.PlaceOrder(ctx, PlaceOrderRequest{
		UserID: 42, MerchantID: m.ID, AddressID: m.Address.ID,
		Items: []domain.LineItem{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.products.Delete(ctx, p.ID), domain.ErrInUse)
}

func TestCatalog_CategoryRestrictAndMerchantCascade(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0))
	p := f.product(t, m.ID, "Milk", "1.20", 5)

	_, err := f.catalog.CreateCategory(ctx, "grocery")
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, f.catalog.DeleteCategory(ctx, f.category.ID), domain.ErrInUse)

	require.NoError(t, f.catalog.DeleteMerchant(ctx, m.ID))
	_, err = f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
	_, err = f.catalog.GetAddress(ctx, m.Address.ID)
	assert.ErrorIs(t, err, domain.ErrAddressNotFound)

	require.NoError(t, f.catalog.DeleteCategory(ctx, f.category.ID))
	cats, err := f.catalog.ListCategories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats)
}

func TestCatalog_MerchantValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.catalog.CreateMerchant(ctx, domain.Merchant{UserID: 1, Name: "x", Address: domain.Address{Line1: "a"}})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.catalog.CreateMerchant(ctx, domain.Merchant{
		UserID: 1, Name: "x",
		Address: domain.Address{Line1: "a", City: "b", PostalCode: "c", Country: "d", Location: domain.GeoPoint{Lat: 10, Lng: 200}},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidGeometry)
}
