package service

import (
	"context"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomarket/internal/domain"
)

func ring(size float64) domain.GeoPolygon {
	return domain.GeoPolygon{Polygon: orb.Polygon{orb.Ring{{0, 0}, {0, size}, {size, size}, {size, 0}, {0, 0}}}}
}

func TestCatalog_DeliveryZones(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.catalog.CreateDeliveryZone(ctx, domain.DeliveryZone{Name: "  ", Area: ring(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.catalog.CreateDeliveryZone(ctx, domain.DeliveryZone{Name: strings.Repeat("z", 121), Area: ring(1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.catalog.CreateDeliveryZone(ctx, domain.DeliveryZone{Name: "empty"})
	assert.ErrorIs(t, err, domain.ErrInvalidGeometry)

	z, err := f.catalog.CreateDeliveryZone(ctx, domain.DeliveryZone{Name: " Zone1 ", Area: ring(2)})
	require.NoError(t, err)
	assert.Equal(t, "Zone1", z.Name)

	m := f.merchant(t, "corner shop", pointNorthKm(0))
	m.DeliveryZoneIDs = []int64{z.ID}
	updated, err := f.catalog.UpdateMerchant(ctx, *m)
	require.NoError(t, err)
	assert.Equal(t, []int64{z.ID}, updated.DeliveryZoneIDs)

	got, err := f.catalog.GetMerchant(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{z.ID}, got.DeliveryZoneIDs)

	m.DeliveryZoneIDs = []int64{z.ID + 10}
	_, err = f.catalog.UpdateMerchant(ctx, *m)
	assert.ErrorIs(t, err, domain.ErrZoneNotFound)

	_, err = f.catalog.GetDeliveryZone(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	require.NoError(t, f.catalog.DeleteDeliveryZone(ctx, z.ID))
	_, err = f.catalog.GetDeliveryZone(ctx, z.ID)
	assert.ErrorIs(t, err, domain.ErrZoneNotFound)

	got, err = f.catalog.GetMerchant(ctx, m.ID)
	require.NoError(t, err)
	assert.Empty(t, got.DeliveryZoneIDs)
}

func TestCatalog_OneMerchantPerUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0))

	second := *m
	second.ID = 0
	second.Name = "second shop"
	_, err := f.catalog.CreateMerchant(ctx, second)
	assert.ErrorIs(t, err, domain.ErrConflict)
}
