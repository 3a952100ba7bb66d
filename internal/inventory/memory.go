package inventory

import (
	"context"
	"sync"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

type cellKey struct {
	productID string
	variant   string
}

type cell struct {
	mu        sync.Mutex
	available int
	capacity  int
}

// MemoryLedger keeps cells in process memory. Each cell has its own lock, so unrelated
// products never contend.
type MemoryLedger struct {
	mu    sync.RWMutex
	cells map[cellKey]*cell
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{cells: make(map[cellKey]*cell)}
}

func (l *MemoryLedger) lookup(productID, variant string) (*cell, error) {
	l.mu.RLock()
	c, ok := l.cells[cellKey{productID, variant}]
	l.mu.RUnlock()
	if !ok {
		return nil, domain.ErrProductUnavailable
	}
	return c, nil
}

func (l *MemoryLedger) Reserve(ctx context.Context, productID, variant string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	c, err := l.lookup(productID, variant)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.available < qty {
		return domain.ErrInsufficientStock.Withf("only %d left in stock", c.available)
	}
	c.available -= qty
	return nil
}

func (l *MemoryLedger) Release(ctx context.Context, productID, variant string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	c, err := l.lookup(productID, variant)
	if err != nil {
		return err
	}

	c.mu.Lock()
	next := c.available + qty
	clamped := next > c.capacity
	if clamped {
		next = c.capacity
	}
	c.available = next
	capacity := c.capacity
	c.mu.Unlock()

	if clamped {
		warnClamp(ctx, productID, variant, qty, capacity)
	}
	return nil
}

func (l *MemoryLedger) CurrentStock(_ context.Context, productID, variant string) (int, error) {
	c, err := l.lookup(productID, variant)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.available, nil
}

func (l *MemoryLedger) Seed(_ context.Context, productID, variant string, available, capacity int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	k := cellKey{productID, variant}
	if _, ok := l.cells[k]; ok {
		return nil
	}
	l.cells[k] = &cell{available: available, capacity: capacity}
	return nil
}

func (l *MemoryLedger) Close() error {
	return nil
}
