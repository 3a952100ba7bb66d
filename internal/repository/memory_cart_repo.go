package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// MemoryCartRepository keeps carts in process memory.
type MemoryCartRepository struct {
	mu    sync.RWMutex
	carts map[string]*domain.Cart
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{carts: make(map[string]*domain.Cart)}
}

func (r *MemoryCartRepository) Get(_ context.Context, userID string) (*domain.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.carts[userID]; ok {
		return c.Clone(), nil
	}
	return domain.NewCart(userID), nil
}

func (r *MemoryCartRepository) Save(_ context.Context, cart *domain.Cart) error {
	cart.UpdatedAt = time.Now().UTC()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts[cart.UserID] = cart.Clone()
	return nil
}

func (r *MemoryCartRepository) Reserved(_ context.Context) (map[domain.LineKey]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	held := make(map[domain.LineKey]int)
	for _, c := range r.carts {
		for i := range c.Items {
			held[c.Items[i].Key()] += c.Items[i].Quantity
		}
	}
	return held, nil
}
