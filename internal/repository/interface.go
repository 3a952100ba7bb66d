package repository

import (
	"context"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// CartRepository persists carts. Get returns an empty cart for identities that have
// none yet.
type CartRepository interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	// Save replaces the stored line items of cart.UserID.
	Save(ctx context.Context, cart *domain.Cart) error
	// Reserved sums line quantities across every stored cart per stock cell.
	Reserved(ctx context.Context) (map[domain.LineKey]int, error)
}
