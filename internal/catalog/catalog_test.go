package catalog

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/testutil"
)

type countingCatalog struct {
	Catalog
	calls atomic.Int32
}

func (c *countingCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	c.calls.Add(1)
	return c.Catalog.GetProduct(ctx, id)
}

func TestGormCatalog_UpsertAndGet(t *testing.T) {
	ctx := context.Background()
	c := NewGormCatalog(testutil.NewSQLite(t))

	jersey := testutil.Jersey("j1", map[string]int{"S": 2, "M": 3})
	ball := testutil.Ball("b1", 4)
	ball.Active = false
	require.NoError(t, c.Upsert(ctx, []*domain.Product{jersey, ball}))

	got, err := c.GetProduct(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, jersey.Name, got.Name)
	assert.Equal(t, []string{"S", "M"}, got.Variants)
	assert.Equal(t, map[string]int{"S": 2, "M": 3}, got.Stock)
	assert.Equal(t, int64(8999), got.PriceCents)

	got, err = c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 4, got.Stock[domain.AnyVariant])

	_, err = c.GetProduct(ctx, "nope")
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)

	all, err := c.ListProducts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "b1", all[0].ID)
	assert.Equal(t, "j1", all[1].ID)
}

func TestGormCatalog_UpsertUpdatesProduct(t *testing.T) {
	ctx := context.Background()
	c := NewGormCatalog(testutil.NewSQLite(t))

	ball := testutil.Ball("b1", 4)
	require.NoError(t, c.Upsert(ctx, []*domain.Product{ball}))

	ball.PriceCents = 3000
	require.NoError(t, c.Upsert(ctx, []*domain.Product{ball}))

	got, err := c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(3000), got.PriceCents)
}

func TestCachedCatalog_ReadThrough(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	backend := &countingCatalog{Catalog: NewMemoryCatalog(testutil.Ball("b1", 4))}
	c := NewCachedCatalog(backend, client, "catalog", time.Minute)

	p, err := c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", p.ID)

	require.Eventually(t, func() bool { return mr.Exists("catalog:b1") }, time.Second, 10*time.Millisecond)

	p, err = c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock[domain.AnyVariant])
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestCachedCatalog_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	c := NewCachedCatalog(NewMemoryCatalog(), client, "catalog", time.Minute)

	_, err := c.GetProduct(ctx, "ghost")
	assert.ErrorIs(t, err, domain.ErrProductUnavailable)
	assert.False(t, mr.Exists("catalog:ghost"))
}

func TestCachedCatalog_FallsBackWhenRedisDown(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	backend := &countingCatalog{Catalog: NewMemoryCatalog(testutil.Ball("b1", 4))}
	c := NewCachedCatalog(backend, client, "catalog", time.Minute)
	mr.Close()

	p, err := c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, "b1", p.ID)
}

func TestCachedCatalog_Invalidate(t *testing.T) {
	ctx := context.Background()
	mr, client := testutil.NewRedis(t)
	mem := NewMemoryCatalog(testutil.Ball("b1", 4))
	c := NewCachedCatalog(mem, client, "catalog", time.Minute)

	_, err := c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return mr.Exists("catalog:b1") }, time.Second, 10*time.Millisecond)

	updated := testutil.Ball("b1", 4)
	updated.PriceCents = 100
	mem.Put(updated)
	require.NoError(t, c.Invalidate(ctx, "b1"))

	p, err := c.GetProduct(ctx, "b1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), p.PriceCents)
}

func TestCachedCatalog_ConcurrentMissesShareFetch(t *testing.T) {
	ctx := context.Background()
	_, client := testutil.NewRedis(t)
	backend := &countingCatalog{Catalog: NewMemoryCatalog(testutil.Ball("b1", 4))}
	c := NewCachedCatalog(backend, client, "catalog", time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.GetProduct(ctx, "b1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, backend.calls.Load(), int32(1))
}

func TestLoadSeedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	body := `[
  {"id": "j1", "name": "Camiseta", "category": "Camisetas", "price_cents": 8999,
   "variants": ["S", "M"], "stock": {"S": 1, "M": 2}, "active": true},
  {"id": "b1", "name": "Balón", "category": "Accesorios", "price_cents": 2500,
   "stock": {"any": 5}, "active": true}
]`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	products, err := LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, domain.VariantRequired, products[0].Policy())
	assert.Equal(t, 5, products[1].Stock[domain.AnyVariant])

	require.NoError(t, os.WriteFile(path, []byte(`[{"name": "x"}]`), 0o600))
	_, err = LoadSeedFile(path)
	assert.Error(t, err)
}
