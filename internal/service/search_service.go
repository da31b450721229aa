package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"time"

	"geomarket/internal/cache"
	"geomarket/internal/domain"
	"geomarket/internal/repository"
)

const (
	DefaultSearchLimit  = 30
	DefaultCacheTTL     = 120 * time.Second
	DefaultCacheVersion = "v2"

	productSearchQuery = "product_search"
)

// NearbyParams параметры поиска; Name == nil означает отсутствие фильтра
type NearbyParams struct {
	Center   domain.GeoPoint
	RadiusKm float64
	Name     *string
}

func (p NearbyParams) validate() error {
	if err := p.Center.Validate(); err != nil {
		return err
	}
	if math.IsNaN(p.RadiusKm) || math.IsInf(p.RadiusKm, 0) || p.RadiusKm <= 0 {
		return fmt.Errorf("%w: radius must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// cacheKey канонизирует параметры: координаты до 1e-6 градуса, радиус в целых метрах,
// имя в кавычках (отсутствие фильтра и пустая строка дают разные ключи).
func (p NearbyParams) cacheKey(version string) string {
	name := "-"
	if p.Name != nil {
		name = strconv.Quote(*p.Name)
	}
	return cache.Fingerprint(version, productSearchQuery,
		strconv.FormatFloat(p.Center.Lat, 'f', 6, 64),
		strconv.FormatFloat(p.Center.Lng, 'f', 6, 64),
		strconv.FormatInt(int64(math.Round(p.RadiusKm*1000)), 10),
		name,
	)
}

// SearchConfig настройки поиска и его кэша
type SearchConfig struct {
	Limit        int
	CacheTTL     time.Duration
	CacheVersion string
}

// SearchService радиусный поиск товаров с read-through кэшем.
// Кэш не инвалидируется при изменении остатков или публикации: результат может
// устареть не дольше чем на TTL.
type SearchService struct {
	index   repository.SpatialIndex
	cache   cache.Cache
	limit   int
	ttl     time.Duration
	version string
}

func NewSearchService(index repository.SpatialIndex, c cache.Cache, cfg SearchConfig) *SearchService {
	s := &SearchService{
		index:   index,
		cache:   c,
		limit:   cfg.Limit,
		ttl:     cfg.CacheTTL,
		version: cfg.CacheVersion,
	}
	if s.limit <= 0 {
		s.limit = DefaultSearchLimit
	}
	if s.ttl <= 0 {
		s.ttl = DefaultCacheTTL
	}
	if s.version == "" {
		s.version = DefaultCacheVersion
	}
	return s
}

// SearchNearby живой запрос к индексу без кэша
func (s *SearchService) SearchNearby(ctx context.Context, p NearbyParams) ([]domain.NearbyProduct, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	q := repository.NearbyQuery{Center: p.Center, RadiusKm: p.RadiusKm, Limit: s.limit}
	if p.Name != nil {
		q.NameContains = *p.Name
	}
	return s.index.Nearby(ctx, q)
}

// Nearby SearchNearby через кэш. Ошибки кэша логируются и не ломают поиск.
func (s *SearchService) Nearby(ctx context.Context, p NearbyParams) ([]domain.NearbyProduct, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	key := p.cacheKey(s.version)

	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		slog.WarnContext(ctx, "search cache read failed", "error", err)
	} else if ok {
		var hit []domain.NearbyProduct
		if err := json.Unmarshal(raw, &hit); err == nil {
			return hit, nil
		}
		slog.WarnContext(ctx, "search cache entry corrupt", "key", key)
	}

	res, err := s.SearchNearby(ctx, p)
	if err != nil {
		return nil, err
	}
	raw, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		slog.WarnContext(ctx, "search cache write failed", "error", err)
	}
	return res, nil
}
