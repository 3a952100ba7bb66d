package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mariodrm17/Practica1/internal/catalog"
	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/inventory"
	"github.com/Mariodrm17/Practica1/internal/repository"
	"github.com/Mariodrm17/Practica1/internal/testutil"
)

type flakyRepo struct {
	repository.CartRepository
	failSave atomic.Bool
}

func (r *flakyRepo) Save(ctx context.Context, cart *domain.Cart) error {
	if r.failSave.Load() {
		return domain.Unavailable("save cart", errors.New("disk full"))
	}
	return r.CartRepository.Save(ctx, cart)
}

type fixture struct {
	svc     CartService
	catalog *catalog.MemoryCatalog
	ledger  *inventory.MemoryLedger
	repo    *flakyRepo
}

func newFixture(t *testing.T, products ...*domain.Product) *fixture {
	t.Helper()
	cat := catalog.NewMemoryCatalog(products...)
	ledger := inventory.NewMemoryLedger()
	require.NoError(t, inventory.SeedProducts(context.Background(), ledger, products))
	repo := &flakyRepo{CartRepository: repository.NewMemoryCartRepository()}
	return &fixture{
		svc:     NewCartService(cat, ledger, repo),
		catalog: cat,
		ledger:  ledger,
		repo:    repo,
	}
}

func (f *fixture) stock(t *testing.T, productID, variant string) int {
	t.Helper()
	n, err := f.ledger.CurrentStock(context.Background(), productID, variant)
	require.NoError(t, err)
	return n
}

func add(productID string, qty int, variant *string) *domain.AddItemRequest {
	return &domain.AddItemRequest{ProductID: productID, Quantity: &qty, Variant: variant}
}

func TestAddItem_ReservesAndCreatesLine(t *testing.T) {
	f := newFixture(t, testutil.Jersey("j1", map[string]int{"M": 5}))
	ctx := context.Background()

	view, err := f.svc.AddItem(ctx, "u1", add("j1", 2, testutil.Ptr("M")))
	require.NoError(t, err)

	require.Len(t, view.Items, 1)
	item := view.Items[0]
	assert.Equal(t, "j1", item.ProductID)
	assert.Equal(t, "M", *item.Variant)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, int64(8999), item.UnitPriceCents)
	assert.Equal(t, int64(17998), item.SubtotalCents)
	assert.Equal(t, int64(17998), view.TotalCents)
	assert.Equal(t, 2, view.ItemCount)
	require.NotNil(t, item.Product)
	assert.Equal(t, 3, item.Product.LiveStock)
	assert.Equal(t, 3, f.stock(t, "j1", "M"))
}

func TestAddItem_DefaultsQuantityToOne(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 5))

	view, err := f.svc.AddItem(context.Background(), "u1", &domain.AddItemRequest{ProductID: "b1"})
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Nil(t, view.Items[0].Variant)
	assert.Equal(t, 4, f.stock(t, "b1", domain.AnyVariant))
}

func TestAddItem_Validation(t *testing.T) {
	inactive := testutil.Ball("off", 5)
	inactive.Active = false
	f := newFixture(t,
		testutil.Jersey("j1", map[string]int{"M": 5}),
		testutil.Ball("b1", 5),
		inactive,
	)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *domain.AddItemRequest
		want *domain.Error
	}{
		{"zero quantity", add("b1", 0, nil), domain.ErrInvalidQuantity},
		{"negative quantity", add("b1", -3, nil), domain.ErrInvalidQuantity},
		{"unknown product", add("nope", 1, nil), domain.ErrProductUnavailable},
		{"inactive product", add("off", 1, nil), domain.ErrProductUnavailable},
		{"shirt without size", add("j1", 1, nil), domain.ErrVariantRequired},
		{"shirt with empty size", add("j1", 1, testutil.Ptr("")), domain.ErrVariantRequired},
		{"shirt with unknown size", add("j1", 1, testutil.Ptr("XXL")), domain.ErrVariantInvalid},
		{"ball with size", add("b1", 1, testutil.Ptr("M")), domain.ErrVariantInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.AddItem(ctx, "u1", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}

	view, err := f.svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 5, f.stock(t, "j1", "M"))
	assert.Equal(t, 5, f.stock(t, "b1", domain.AnyVariant))
}

func TestAddItem_BeyondStockLeavesCartAndStockUnchanged(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 3))
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", add("b1", 2, nil))
	require.NoError(t, err)

	_, err = f.svc.AddItem(ctx, "u1", add("b1", 2, nil))
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	view, err := f.svc.View(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, 1, f.stock(t, "b1", domain.AnyVariant))
}

func TestAddItem_MergeKeepsOriginalPrice(t *testing.T) {
	ball := testutil.Ball("b1", 10)
	f := newFixture(t, ball)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", add("b1", 1, nil))
	require.NoError(t, err)

	repriced := *ball
	repriced.PriceCents = 9999
	f.catalog.Put(&repriced)

	view, err := f.svc.AddItem(ctx, "u1", add("b1", 2, nil))
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, int64(2500), view.Items[0].UnitPriceCents)
	assert.Equal(t, int64(7500), view.TotalCents)
}

func TestAddItem_DifferentSizesAreSeparateLines(t *testing.T) {
	f := newFixture(t, testutil.Jersey("j1", map[string]int{"S": 2, "M": 2}))
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", add("j1", 1, testutil.Ptr("S")))
	require.NoError(t, err)
	view, err := f.svc.AddItem(ctx, "u1", add("j1", 1, testutil.Ptr("M")))
	require.NoError(t, err)

	assert.Len(t, view.Items, 2)
	assert.Equal(t, 1, f.stock(t, "j1", "S"))
	assert.Equal(t, 1, f.stock(t, "j1", "M"))
}

func TestAddItem_SaveFailureReleasesReservation(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 3))
	f.repo.failSave.Store(true)

	_, err := f.svc.AddItem(context.Background(), "u1", add("b1", 2, nil))
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.True(t, domain.IsCode(err, domain.ErrCodeStorageUnavailable))
	assert.Equal(t, 3, f.stock(t, "b1", domain.AnyVariant))
}

func TestAddRemove_RoundTripRestoresStock(t *testing.T) {
	f := newFixture(t, testutil.Jersey("j1", map[string]int{"L": 4}))
	ctx := context.Background()

	view, err := f.svc.AddItem(ctx, "u1", add("j1", 3, testutil.Ptr("L")))
	require.NoError(t, err)
	assert.Equal(t, 1, f.stock(t, "j1", "L"))

	view, err = f.svc.RemoveItem(ctx, "u1", view.Items[0].ID)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.TotalCents)
	assert.Equal(t, 4, f.stock(t, "j1", "L"))
}

func TestUpdateQuantity(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 5))
	ctx := context.Background()

	view, err := f.svc.AddItem(ctx, "u1", add("b1", 2, nil))
	require.NoError(t, err)
	lineID := view.Items[0].ID

	view, err = f.svc.UpdateQuantity(ctx, "u1", lineID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)
	assert.Equal(t, 1, f.stock(t, "b1", domain.AnyVariant))

	view, err = f.svc.UpdateQuantity(ctx, "u1", lineID, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, view.Items[0].Quantity)
	assert.Equal(t, 4, f.stock(t, "b1", domain.AnyVariant))

	_, err = f.svc.UpdateQuantity(ctx, "u1", lineID, 6)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 4, f.stock(t, "b1", domain.AnyVariant))

	_, err = f.svc.UpdateQuantity(ctx, "u1", lineID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.svc.UpdateQuantity(ctx, "u1", "missing", 2)
	assert.ErrorIs(t, err, domain.ErrLineItemNotFound)

	view, err = f.svc.View(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, view.Items[0].Quantity)
}

func TestUpdateQuantity_SaveFailureReleasesDelta(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 5))
	ctx := context.Background()

	view, err := f.svc.AddItem(ctx, "u1", add("b1", 1, nil))
	require.NoError(t, err)

	f.repo.failSave.Store(true)
	_, err = f.svc.UpdateQuantity(ctx, "u1", view.Items[0].ID, 3)
	assert.ErrorIs(t, err, domain.ErrStorageUnavailable)
	assert.Equal(t, 4, f.stock(t, "b1", domain.AnyVariant))
}

func TestRemoveItem_NotFound(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 5))

	_, err := f.svc.RemoveItem(context.Background(), "u1", "missing")
	assert.ErrorIs(t, err, domain.ErrLineItemNotFound)
}

func TestClear_ReleasesEveryLine(t *testing.T) {
	f := newFixture(t,
		testutil.Jersey("j1", map[string]int{"S": 3, "M": 3}),
		testutil.Ball("b1", 3),
	)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", add("j1", 2, testutil.Ptr("S")))
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u1", add("j1", 1, testutil.Ptr("M")))
	require.NoError(t, err)
	_, err = f.svc.AddItem(ctx, "u1", add("b1", 3, nil))
	require.NoError(t, err)

	view, err := f.svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, 3, f.stock(t, "j1", "S"))
	assert.Equal(t, 3, f.stock(t, "j1", "M"))
	assert.Equal(t, 3, f.stock(t, "b1", domain.AnyVariant))

	view, err = f.svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestView_IsIdempotent(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 5))
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", add("b1", 2, nil))
	require.NoError(t, err)

	first, err := f.svc.View(ctx, "u1")
	require.NoError(t, err)
	second, err := f.svc.View(ctx, "u1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 3, f.stock(t, "b1", domain.AnyVariant))
}

func TestView_InactiveProductStillShown(t *testing.T) {
	ball := testutil.Ball("b1", 5)
	f := newFixture(t, ball)
	ctx := context.Background()

	_, err := f.svc.AddItem(ctx, "u1", add("b1", 1, nil))
	require.NoError(t, err)

	gone := *ball
	gone.Active = false
	f.catalog.Put(&gone)

	view, err := f.svc.View(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	require.NotNil(t, view.Items[0].Product)
	assert.False(t, view.Items[0].Product.Active)
}

func TestConcurrentAddsNeverOversell(t *testing.T) {
	f := newFixture(t, testutil.Jersey("j1", map[string]int{"M": 10}))
	ctx := context.Background()

	const users = 30
	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AddItem(ctx, fmt.Sprintf("u%d", i), add("j1", 1, testutil.Ptr("M")))
			if err == nil {
				ok.Add(1)
				return
			}
			assert.ErrorIs(t, err, domain.ErrInsufficientStock)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 10, ok.Load())
	assert.Equal(t, 0, f.stock(t, "j1", "M"))

	total := 0
	for i := 0; i < users; i++ {
		view, err := f.svc.View(ctx, fmt.Sprintf("u%d", i))
		require.NoError(t, err)
		total += view.ItemCount
	}
	assert.Equal(t, 10, total)
}

func TestConcurrentMutationsConserveStock(t *testing.T) {
	f := newFixture(t, testutil.Ball("b1", 20))
	ctx := context.Background()

	var wg sync.WaitGroup
	for u := 0; u < 4; u++ {
		userID := fmt.Sprintf("u%d", u)
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				view, err := f.svc.AddItem(ctx, userID, add("b1", 1, nil))
				if err != nil || len(view.Items) == 0 {
					continue
				}
				lineID := view.Items[0].ID
				switch i % 3 {
				case 0:
					_, _ = f.svc.UpdateQuantity(ctx, userID, lineID, 1+i%4)
				case 1:
					_, _ = f.svc.RemoveItem(ctx, userID, lineID)
				}
			}
		}()
	}
	wg.Wait()

	held := 0
	for u := 0; u < 4; u++ {
		view, err := f.svc.View(ctx, fmt.Sprintf("u%d", u))
		require.NoError(t, err)
		held += view.ItemCount
	}
	stock := f.stock(t, "b1", domain.AnyVariant)
	assert.GreaterOrEqual(t, stock, 0)
	assert.Equal(t, 20, stock+held)
}

func TestKeyedMutex_ForgetsReleasedKeys(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	assert.Equal(t, 1, k.len())
	unlock()
	assert.Equal(t, 0, k.len())
}
