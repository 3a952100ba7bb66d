package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/Mariodrm17/Practica1/internal/catalog"
	"github.com/Mariodrm17/Practica1/internal/config"
	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/inventory"
	"github.com/Mariodrm17/Practica1/internal/messagelog"
	"github.com/Mariodrm17/Practica1/internal/repository"
	"github.com/Mariodrm17/Practica1/pkg/database"
	pkglog "github.com/Mariodrm17/Practica1/pkg/log"
)

// app owns the storage backends a command runs against.
type app struct {
	cfg     *config.Config
	db      *gorm.DB
	redis   redis.UniversalClient
	store   *catalog.GormCatalog
	catalog catalog.Catalog
	ledger  inventory.Ledger
	carts   repository.CartRepository
	history messagelog.Log
}

// openDatabase connects and migrates every table.
func openDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := database.AutoMigrate(db, domain.Models()...); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return db, nil
}

func openRedis(ctx context.Context, cfg config.RedisConfig) (redis.UniversalClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}
	return client, nil
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := pkglog.L()
	a := &app{cfg: cfg}
	ready := false
	defer func() {
		if !ready {
			_ = a.close()
		}
	}()

	var err error
	if a.db, err = openDatabase(cfg); err != nil {
		return nil, err
	}
	logger.Info().Str("driver", cfg.Database.Driver).Msg("database ready")

	if cfg.Inventory.Driver == "redis" || cfg.Catalog.CacheEnabled {
		if a.redis, err = openRedis(ctx, cfg.Redis); err != nil {
			return nil, err
		}
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}

	a.store = catalog.NewGormCatalog(a.db)
	a.catalog = a.store
	if cfg.Catalog.CacheEnabled {
		a.catalog = catalog.NewCachedCatalog(a.store, a.redis, cfg.Catalog.CachePrefix, cfg.Catalog.CacheTTL)
	}

	a.carts = repository.NewGormCartRepository(a.db)
	switch cfg.Inventory.Driver {
	case "memory":
		a.ledger = inventory.NewMemoryLedger()
	case "redis":
		a.ledger = inventory.NewRedisLedger(a.redis, cfg.Inventory.KeyPrefix)
	default:
		a.ledger = inventory.NewGormLedger(a.db)
	}

	switch cfg.Chat.LogDriver {
	case "memory":
		a.history = messagelog.NewMemoryLog()
	case "badger":
		badgerLog, err := messagelog.OpenBadgerLog(cfg.Chat.BadgerPath)
		if err != nil {
			return nil, fmt.Errorf("open chat log: %w", err)
		}
		a.history = badgerLog
	default:
		a.history = messagelog.NewGormLog(a.db)
	}
	logger.Info().
		Str("inventory", cfg.Inventory.Driver).
		Str("chat_log", cfg.Chat.LogDriver).
		Bool("catalog_cache", cfg.Catalog.CacheEnabled).
		Msg("backends ready")

	ready = true
	return a, nil
}

// seed loads the configured seed file into the catalog, then primes the ledger with
// every cell it does not know yet. The memory ledger starts empty on every run, so its
// cells are primed net of the units stored carts still hold.
func (a *app) seed(ctx context.Context) error {
	if path := a.cfg.Inventory.SeedFile; path != "" {
		products, err := catalog.LoadSeedFile(path)
		if err != nil {
			return err
		}
		if err := a.store.Upsert(ctx, products); err != nil {
			return fmt.Errorf("upsert catalog: %w", err)
		}
		if cached, ok := a.catalog.(*catalog.CachedCatalog); ok {
			ids := make([]string, 0, len(products))
			for _, p := range products {
				ids = append(ids, p.ID)
			}
			if err := cached.Invalidate(ctx, ids...); err != nil {
				l := pkglog.Ctx(ctx)
				l.Warn().Err(err).Msg("failed to invalidate catalog cache")
			}
		}
	}

	products, err := a.catalog.ListProducts(ctx)
	if err != nil {
		return fmt.Errorf("list products: %w", err)
	}
	var held map[domain.LineKey]int
	if a.cfg.Inventory.Driver == "memory" {
		if held, err = a.carts.Reserved(ctx); err != nil {
			return fmt.Errorf("sum cart reservations: %w", err)
		}
	}
	if err := inventory.SeedProductsHeld(ctx, a.ledger, products, held); err != nil {
		return err
	}
	l := pkglog.Ctx(ctx)
	l.Info().Int("products", len(products)).Msg("stock ledger primed")
	return nil
}

func (a *app) close() error {
	var errs []error
	if a.history != nil {
		errs = append(errs, a.history.Close())
	}
	if a.ledger != nil {
		errs = append(errs, a.ledger.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, database.Close(a.db))
	}
	return errors.Join(errs...)
}
