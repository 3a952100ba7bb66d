package catalog

import (
	"context"
	"sort"
	"sync"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// MemoryCatalog serves a fixed product set.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products map[string]*domain.Product
}

func NewMemoryCatalog(products ...*domain.Product) *MemoryCatalog {
	c := &MemoryCatalog{products: make(map[string]*domain.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *MemoryCatalog) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, domain.ErrProductUnavailable
	}
	cp := *p
	return &cp, nil
}

func (c *MemoryCatalog) ListProducts(_ context.Context) ([]*domain.Product, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*domain.Product, 0, len(c.products))
	for _, p := range c.products {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Put adds or replaces a product.
func (c *MemoryCatalog) Put(p *domain.Product) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}
