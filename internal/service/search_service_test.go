package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geomarket/internal/cache"
	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

type countingIndex struct {
	repository.SpatialIndex
	calls atomic.Int64
}

func (c *countingIndex) Nearby(ctx context.Context, q repository.NearbyQuery) ([]domain.NearbyProduct, error) {
	c.calls.Add(1)
	return c.SpatialIndex.Nearby(ctx, q)
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("connection refused")
}

func (brokenCache) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}

func strPtr(s string) *string { return &s }

func TestSearchNearby_RadiusBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	near := f.merchant(t, "near", pointNorthKm(1))
	far := f.merchant(t, "far", pointNorthKm(3))
	pNear := f.product(t, near.ID, "Apples", "3.00", 1)
	f.product(t, far.ID, "Apples", "2.00", 1)

	res, err := f.search.SearchNearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 2})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, pNear.ID, res[0].ID)
	assert.Equal(t, "near", res[0].MerchantName)
	assert.InDelta(t, 1.0, res[0].DistanceKm, 0.01)

	res, err = f.search.SearchNearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 5})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Less(t, res[0].DistanceKm, res[1].DistanceKm)
}

func TestSearchNearby_TruncatesToNearest(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	for i := 0; i < 40; i++ {
		m := f.merchant(t, fmt.Sprintf("shop-%02d", i), pointNorthKm(float64(40-i)*0.1))
		f.product(t, m.ID, "Water", "0.50", 1)
	}

	res, err := f.search.SearchNearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 10})
	require.NoError(t, err)
	require.Len(t, res, DefaultSearchLimit)
	for i := 1; i < len(res); i++ {
		assert.LessOrEqual(t, res[i-1].DistanceKm, res[i].DistanceKm)
	}
	// самый дальний из попавших ближе исключённых
	assert.InDelta(t, 3.0, res[len(res)-1].DistanceKm, 0.01)
}

func TestSearchNearby_PublishedAndNameFilter(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0.5))
	cola := f.product(t, m.ID, "Coca-Cola", "1.00", 1)
	f.product(t, m.ID, "Pepsi", "1.00", 1)
	hidden := f.product(t, m.ID, "Cola Zero", "1.10", 1)
	_, err := f.products.Unpublish(ctx, hidden.ID)
	require.NoError(t, err)

	res, err := f.search.SearchNearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 1, Name: strPtr("COLA")})
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, cola.ID, res[0].ID)

	res, err = f.search.SearchNearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 1})
	require.NoError(t, err)
	assert.Len(t, res, 2)
}

func TestSearchNearby_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := f.search.Nearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: r})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, "radius %v", r)
	}
	_, err := f.search.Nearby(ctx, NearbyParams{Center: domain.GeoPoint{Lat: 91}, RadiusKm: 1})
	assert.ErrorIs(t, err, domain.ErrInvalidGeometry)
}

func TestNearby_CacheHitAndExpiry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0.5))
	f.product(t, m.ID, "Milk", "1.20", 1)

	mr := miniredis.RunT(t)
	idx := &countingIndex{SpatialIndex: f.store.Spatial()}
	svc := NewSearchService(idx, cache.NewRedisCache(mr.Addr(), "geomarket"), SearchConfig{})
	params := NearbyParams{Center: pointNorthKm(0), RadiusKm: 2}

	first, err := svc.Nearby(ctx, params)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Equal(t, int64(1), idx.calls.Load())

	// новый товар не виден до истечения TTL
	f.product(t, m.ID, "Bread", "2.50", 1)
	second, err := svc.Nearby(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(1), idx.calls.Load(), "second call must be served from cache")
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].Price.Equal(second[0].Price))
	assert.Len(t, second, 1)

	// другой фильтр имени это другой ключ; пустая строка отличается от отсутствия фильтра
	_, err = svc.Nearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 2, Name: strPtr("")})
	require.NoError(t, err)
	assert.Equal(t, int64(2), idx.calls.Load())

	mr.FastForward(DefaultCacheTTL)
	third, err := svc.Nearby(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(3), idx.calls.Load())
	assert.Len(t, third, 2)
}

func TestNearby_VersionBumpInvalidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0.5))
	f.product(t, m.ID, "Milk", "1.20", 1)

	mem := cache.NewMemory()
	idx := &countingIndex{SpatialIndex: f.store.Spatial()}
	params := NearbyParams{Center: pointNorthKm(0), RadiusKm: 2}

	_, err := NewSearchService(idx, mem, SearchConfig{CacheVersion: "v2"}).Nearby(ctx, params)
	require.NoError(t, err)
	_, err = NewSearchService(idx, mem, SearchConfig{CacheVersion: "v3"}).Nearby(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(2), idx.calls.Load())
	assert.Equal(t, 2, mem.Len())
}

func TestNearby_CacheFailureFallsBackToLiveQuery(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	m := f.merchant(t, "corner shop", pointNorthKm(0.5))
	f.product(t, m.ID, "Milk", "1.20", 1)

	svc := NewSearchService(f.store.Spatial(), brokenCache{}, SearchConfig{})
	res, err := svc.Nearby(ctx, NearbyParams{Center: pointNorthKm(0), RadiusKm: 2})
	require.NoError(t, err)
	assert.Len(t, res, 1)
}

func TestNearbyParams_CacheKeyQuantization(t *testing.T) {
	base := NearbyParams{Center: domain.GeoPoint{Lat: 55.75, Lng: 37.61}, RadiusKm: 2}
	same := NearbyParams{Center: domain.GeoPoint{Lat: 55.7500000001, Lng: 37.61}, RadiusKm: 2.0000001}
	assert.Equal(t, base.cacheKey("v2"), same.cacheKey("v2"))

	moved := NearbyParams{Center: domain.GeoPoint{Lat: 55.750001, Lng: 37.61}, RadiusKm: 2}
	assert.NotEqual(t, base.cacheKey("v2"), moved.cacheKey("v2"))

	wider := NearbyParams{Center: base.Center, RadiusKm: 2.001}
	assert.NotEqual(t, base.cacheKey("v2"), wider.cacheKey("v2"))
}
