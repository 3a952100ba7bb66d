//go:generate go run go.uber.org/mock/mockgen -source=interface.go -destination=../mocks/mock_cart_service.go -package=mocks

package service

import (
	"context"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// CartService manages per-identity carts against the inventory ledger. Mutations of
// one identity's cart are serialized; different identities proceed in parallel.
type CartService interface {
	View(ctx context.Context, userID string) (*domain.CartView, error)
	AddItem(ctx context.Context, userID string, req *domain.AddItemRequest) (*domain.CartView, error)
	UpdateQuantity(ctx context.Context, userID, lineItemID string, qty int) (*domain.CartView, error)
	RemoveItem(ctx context.Context, userID, lineItemID string) (*domain.CartView, error)
	Clear(ctx context.Context, userID string) (*domain.CartView, error)
}
