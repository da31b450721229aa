package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"geomarket/internal/cache"
	"geomarket/internal/config"
	"geomarket/internal/db"
	httpapi "geomarket/internal/http"
	"geomarket/internal/repository"
	"geomarket/internal/service"
)

// app собранные по конфигу хранилище, кэш и сервисы
type app struct {
	store    repository.Store
	services httpapi.Services
	closers  []func() error
}

func openStore(ctx context.Context, c config.DBConfig) (repository.Store, *gorm.DB, error) {
	switch c.Driver {
	case "mysql":
		gdb, err := db.Open(ctx, db.Config{
			DSN:             c.DSN,
			MaxOpenConns:    c.MaxOpenConns,
			MaxIdleConns:    c.MaxIdleConns,
			ConnMaxLifetime: c.ConnMaxLifetime,
			LockWaitTimeout: c.LockWaitTimeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return repository.NewGormStore(gdb), gdb, nil
	default:
		return repository.NewMemoryStore(repository.WithLockWait(c.LockWaitTimeout)), nil, nil
	}
}

func newApp(ctx context.Context, cfg *config.Config, migrate bool) (*app, error) {
	a := &app{}
	store, gdb, err := openStore(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if gdb != nil {
		a.closers = append(a.closers, func() error { return db.Close(gdb) })
		if migrate {
			if err := repository.Migrate(gdb.WithContext(ctx)); err != nil {
				a.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
	}
	a.store = store

	var c cache.Cache
	switch cfg.Cache.Driver {
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.Addr})
		a.closers = append(a.closers, client.Close)
		if err := client.Ping(ctx).Err(); err != nil {
			// поиск работает и без кэша: ошибки кэша только логируются
			slog.WarnContext(ctx, "redis unavailable", "addr", cfg.Cache.Addr, "error", err)
		}
		c = cache.NewRedisCacheFromClient(client, cfg.Cache.Prefix)
	default:
		mem := cache.NewMemory()
		mem.Start()
		a.closers = append(a.closers, func() error { mem.Stop(); return nil })
		c = mem
	}

	inventory := service.NewInventoryService(store.Inventory(), store.Tx())
	a.services = httpapi.Services{
		Catalog:   service.NewCatalogService(store.Catalog()),
		Products:  service.NewProductService(store.Products()),
		Inventory: inventory,
		Orders:    service.NewOrderService(store.Products(), store.Orders(), inventory, store.Tx()),
		Search: service.NewSearchService(store.Spatial(), c, service.SearchConfig{
			Limit:        cfg.Search.Limit,
			CacheTTL:     cfg.Cache.TTL,
			CacheVersion: cfg.Cache.Version,
		}),
		Priority: service.NewPriorityService(store.Orders(), store.Catalog()),
	}
	return a, nil
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
