package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Mariodrm17/Practica1/internal/audit"
	"github.com/Mariodrm17/Practica1/internal/catalog"
	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/internal/inventory"
	"github.com/Mariodrm17/Practica1/internal/repository"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

// releaseTimeout bounds ledger releases that outlive the caller's context.
const releaseTimeout = 5 * time.Second

// cartServiceImpl implements CartService.
//
// Lock order is inventory before cart: AddItem reserves before it takes the cart lock.
// The other mutations hold the cart lock while calling the ledger, whose critical
// section never waits on another lock.
type cartServiceImpl struct {
	catalog catalog.Catalog
	ledger  inventory.Ledger
	repo    repository.CartRepository
	locks   *keyedMutex
	now     func() time.Time
}

// NewCartService creates a new cart service.
func NewCartService(cat catalog.Catalog, ledger inventory.Ledger, repo repository.CartRepository) CartService {
	return &cartServiceImpl{
		catalog: cat,
		ledger:  ledger,
		repo:    repo,
		locks:   newKeyedMutex(),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// View returns the cart enriched with catalog data and live stock. It never mutates.
func (s *cartServiceImpl) View(ctx context.Context, userID string) (*domain.CartView, error) {
	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.buildView(ctx, cart)
}

// AddItem reserves stock and merges it into the cart.
func (s *cartServiceImpl) AddItem(ctx context.Context, userID string, req *domain.AddItemRequest) (*domain.CartView, error) {
	qty := req.QuantityOrDefault()
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	product, err := s.catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.Active {
		return nil, domain.ErrProductUnavailable
	}
	variant, err := product.ResolveVariant(req.Variant)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Reserve(ctx, product.ID, variant, qty); err != nil {
		return nil, err
	}

	cart, err := s.mutate(ctx, userID, func(cart *domain.Cart) error {
		key := domain.LineKey{ProductID: product.ID, Variant: variant}
		if idx := cart.FindByKey(key); idx >= 0 {
			// The line keeps the price it was first added at.
			cart.Items[idx].Quantity += qty
			return nil
		}
		cart.Items = append(cart.Items, domain.CartLineItem{
			ID:             uuid.NewString(),
			ProductID:      product.ID,
			Variant:        storedVariant(variant),
			Quantity:       qty,
			UnitPriceCents: product.PriceCents,
			AddedAt:        s.now(),
		})
		return nil
	})
	if err != nil {
		s.release(ctx, product.ID, variant, qty)
		return nil, err
	}

	audit.LogLine(ctx, audit.ActionCartAdd, userID, product.ID, variant, qty, "item added to cart")
	return s.buildView(ctx, cart)
}

// UpdateQuantity sets a line's quantity, reserving or releasing the difference.
func (s *cartServiceImpl) UpdateQuantity(ctx context.Context, userID, lineItemID string, qty int) (*domain.CartView, error) {
	if qty < 1 {
		return nil, domain.ErrInvalidQuantity
	}

	var (
		productID, variant string
		delta              int
	)
	cart, err := s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindByID(lineItemID)
		if idx < 0 {
			return domain.ErrLineItemNotFound
		}
		li := &cart.Items[idx]
		productID, variant = li.ProductID, li.StockVariant()
		delta = qty - li.Quantity
		if delta > 0 {
			if err := s.ledger.Reserve(ctx, productID, variant, delta); err != nil {
				return err
			}
		}
		li.Quantity = qty
		return nil
	}, func() {
		if delta > 0 {
			s.release(ctx, productID, variant, delta)
		}
	})
	if err != nil {
		return nil, err
	}
	if delta < 0 {
		s.release(ctx, productID, variant, -delta)
	}

	audit.LogLine(ctx, audit.ActionCartUpdate, userID, productID, variant, qty, "cart quantity updated")
	return s.buildView(ctx, cart)
}

// RemoveItem deletes a line and returns its units to stock.
func (s *cartServiceImpl) RemoveItem(ctx context.Context, userID, lineItemID string) (*domain.CartView, error) {
	var removed domain.CartLineItem
	cart, err := s.mutate(ctx, userID, func(cart *domain.Cart) error {
		idx := cart.FindByID(lineItemID)
		if idx < 0 {
			return domain.ErrLineItemNotFound
		}
		removed = cart.Items[idx]
		cart.Items = append(cart.Items[:idx], cart.Items[idx+1:]...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.release(ctx, removed.ProductID, removed.StockVariant(), removed.Quantity)

	audit.LogLine(ctx, audit.ActionCartRemove, userID, removed.ProductID, removed.StockVariant(), removed.Quantity, "item removed from cart")
	return s.buildView(ctx, cart)
}

// Clear empties the cart and returns every unit to stock.
func (s *cartServiceImpl) Clear(ctx context.Context, userID string) (*domain.CartView, error) {
	var removed []domain.CartLineItem
	cart, err := s.mutate(ctx, userID, func(cart *domain.Cart) error {
		removed = cart.Items
		cart.Items = []domain.CartLineItem{}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, li := range removed {
		s.release(ctx, li.ProductID, li.StockVariant(), li.Quantity)
	}

	audit.Log(ctx, audit.ActionCartClear, userID, "cart cleared")
	return s.buildView(ctx, cart)
}

// mutate loads the cart under the identity's lock, applies fn and saves the result.
// When saving fails, onSaveError runs while the lock is still held.
func (s *cartServiceImpl) mutate(ctx context.Context, userID string, fn func(*domain.Cart) error, onSaveError ...func()) (*domain.Cart, error) {
	unlock := s.locks.Lock(userID)
	defer unlock()

	cart, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, cart); err != nil {
		for _, f := range onSaveError {
			f()
		}
		return nil, err
	}
	return cart, nil
}

// release returns units to the ledger on a context detached from the caller, so a
// cancelled request still gives back what it reserved.
func (s *cartServiceImpl) release(ctx context.Context, productID, variant string, qty int) {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.ledger.Release(rctx, productID, variant, qty); err != nil {
		l := log.Ctx(ctx)
		l.Error().Err(err).
			Str(log.FieldProductID, productID).
			Str(log.FieldVariant, variant).
			Int(log.FieldQuantity, qty).
			Msg("failed to release stock")
	}
}

func (s *cartServiceImpl) buildView(ctx context.Context, cart *domain.Cart) (*domain.CartView, error) {
	lines := make([]domain.CartLineView, 0, len(cart.Items))
	for _, li := range cart.Items {
		summary, err := s.summary(ctx, &li)
		if err != nil {
			return nil, err
		}
		lines = append(lines, domain.CartLineView{
			CartLineItem:  li,
			Product:       summary,
			SubtotalCents: li.Subtotal(),
		})
	}
	return &domain.CartView{
		UserID:     cart.UserID,
		Items:      lines,
		ItemCount:  cart.ItemCount(),
		TotalCents: lo.SumBy(lines, func(l domain.CartLineView) int64 { return l.SubtotalCents }),
	}, nil
}

// summary returns nil for products that have left the catalog.
func (s *cartServiceImpl) summary(ctx context.Context, li *domain.CartLineItem) (*domain.ProductSummary, error) {
	product, err := s.catalog.GetProduct(ctx, li.ProductID)
	if err != nil {
		if errors.Is(err, domain.ErrProductUnavailable) {
			return nil, nil
		}
		return nil, err
	}
	stock, err := s.ledger.CurrentStock(ctx, li.ProductID, li.StockVariant())
	if err != nil && !errors.Is(err, domain.ErrProductUnavailable) {
		return nil, err
	}
	return &domain.ProductSummary{
		Name:      product.Name,
		Image:     product.Image,
		Category:  product.Category,
		Active:    product.Active,
		LiveStock: stock,
	}, nil
}

func storedVariant(variant string) *string {
	if variant == domain.AnyVariant {
		return nil
	}
	return &variant
}
