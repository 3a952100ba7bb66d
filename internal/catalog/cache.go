package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

var errCacheMiss = errors.New("cache miss")

// CachedCatalog is a redis read-through cache in front of another Catalog.
// Concurrent misses for the same product share one backend read.
type CachedCatalog struct {
	next   Catalog
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	sf     singleflight.Group
}

func NewCachedCatalog(next Catalog, client redis.UniversalClient, prefix string, ttl time.Duration) *CachedCatalog {
	return &CachedCatalog{
		next:   next,
		client: client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (c *CachedCatalog) key(id string) string {
	return fmt.Sprintf("%s:%s", c.prefix, id)
}

func (c *CachedCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	result, err, _ := c.sf.Do(id, func() (interface{}, error) {
		return c.fetchWithCache(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	p, ok := result.(*domain.Product)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	// Callers may mutate what they get back.
	cp := *p
	return &cp, nil
}

func (c *CachedCatalog) fetchWithCache(ctx context.Context, id string) (*domain.Product, error) {
	cached, err := c.get(ctx, id)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, errCacheMiss) {
		l := log.Ctx(ctx)
		l.Warn().Err(err).Str(log.FieldProductID, id).Msg("catalog cache get error")
	}

	p, err := c.next.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	go func(p domain.Product) {
		cacheCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := c.set(cacheCtx, &p); err != nil {
			l := log.L()
			l.Warn().Err(err).Str(log.FieldProductID, p.ID).Msg("catalog cache set error")
		}
	}(*p)

	return p, nil
}

func (c *CachedCatalog) get(ctx context.Context, id string) (*domain.Product, error) {
	data, err := c.client.Get(ctx, c.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, errCacheMiss
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	var p domain.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache data: %w", err)
	}
	return &p, nil
}

func (c *CachedCatalog) set(ctx context.Context, p *domain.Product) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal cache data: %w", err)
	}
	if err := c.client.Set(ctx, c.key(p.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set in redis: %w", err)
	}
	return nil
}

// ListProducts is not cached.
func (c *CachedCatalog) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	return c.next.ListProducts(ctx)
}

// Invalidate drops cached entries for the given products.
func (c *CachedCatalog) Invalidate(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.key(id)
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	return nil
}
