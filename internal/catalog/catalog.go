// Package catalog is the read model of products offered by the storefront.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// Catalog looks up products. GetProduct returns domain.ErrProductUnavailable for
// unknown ids; inactive products are returned with Active=false.
type Catalog interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]*domain.Product, error)
}

// LoadSeedFile reads a JSON array of products.
func LoadSeedFile(path string) ([]*domain.Product, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var products []*domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	for i, p := range products {
		if p.ID == "" {
			return nil, fmt.Errorf("seed file entry %d has no id", i)
		}
		if p.Stock == nil {
			p.Stock = map[string]int{}
		}
	}
	return products, nil
}
