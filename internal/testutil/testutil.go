// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/pkg/database"
)

// NewSQLite opens a migrated sqlite database in a per-test directory.
func NewSQLite(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, domain.Models()...))
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

// NewRedis starts an in-process redis server and returns a client for it.
func NewRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Jersey is a size-variant product with stock per size.
func Jersey(id string, stock map[string]int) *domain.Product {
	variants := make([]string, 0, len(stock))
	for _, size := range []string{"S", "M", "L", "XL"} {
		if _, ok := stock[size]; ok {
			variants = append(variants, size)
		}
	}
	return &domain.Product{
		ID:         id,
		Name:       "Camiseta " + id,
		Category:   domain.CategoryShirts,
		League:     "LaLiga",
		Image:      "/img/" + id + ".png",
		PriceCents: 8999,
		Variants:   variants,
		Stock:      stock,
		Active:     true,
	}
}

// Ball is a product without variants.
func Ball(id string, stock int) *domain.Product {
	return &domain.Product{
		ID:         id,
		Name:       "Balón " + id,
		Category:   "Accesorios",
		Image:      "/img/" + id + ".png",
		PriceCents: 2500,
		Stock:      map[string]int{domain.AnyVariant: stock},
		Active:     true,
	}
}
