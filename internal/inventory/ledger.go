package inventory

import (
	"context"
	"fmt"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

// Ledger is the authoritative available-stock count per (product, variant) cell.
// Reserve is an atomic check-and-decrement and never drives a cell below zero.
type Ledger interface {
	// Reserve takes qty units. It returns domain.ErrInsufficientStock when fewer are
	// available and domain.ErrProductUnavailable when the cell does not exist.
	Reserve(ctx context.Context, productID, variant string, qty int) error
	// Release returns qty units. The cell is clamped at its capacity.
	Release(ctx context.Context, productID, variant string, qty int) error
	CurrentStock(ctx context.Context, productID, variant string) (int, error)
	// Seed creates a cell. An existing cell is left untouched, so priming at startup
	// never resets outstanding reservations.
	Seed(ctx context.Context, productID, variant string, available, capacity int) error
	Close() error
}

// SeedProducts primes a ledger with every stock cell the products declare. Capacity is
// the declared stock.
func SeedProducts(ctx context.Context, l Ledger, products []*domain.Product) error {
	return SeedProductsHeld(ctx, l, products, nil)
}

// SeedProductsHeld primes new cells with capacity minus the units already held in
// stored carts. A ledger that forgets its cells on restart must be primed this way.
func SeedProductsHeld(ctx context.Context, l Ledger, products []*domain.Product, held map[domain.LineKey]int) error {
	for _, p := range products {
		for variant, qty := range p.StockCells() {
			available := qty - held[domain.LineKey{ProductID: p.ID, Variant: variant}]
			if available < 0 {
				logger := log.Ctx(ctx)
				logger.Warn().
					Str(log.FieldProductID, p.ID).
					Str(log.FieldVariant, variant).
					Int("capacity", qty).
					Int("held", qty-available).
					Msg("carts hold more than capacity")
				available = 0
			}
			if err := l.Seed(ctx, p.ID, variant, available, qty); err != nil {
				return fmt.Errorf("seed %s/%s: %w", p.ID, variant, err)
			}
		}
	}
	return nil
}

func checkQty(qty int) error {
	if qty < 1 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func warnClamp(ctx context.Context, productID, variant string, qty, capacity int) {
	logger := log.Ctx(ctx)
	logger.Warn().
		Str(log.FieldProductID, productID).
		Str(log.FieldVariant, variant).
		Int(log.FieldQuantity, qty).
		Int("capacity", capacity).
		Msg("release exceeds capacity, clamped")
}
