package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/pkg/log"
)

// GormCartRepository implements CartRepository using GORM.
type GormCartRepository struct {
	db *gorm.DB
}

// NewGormCartRepository creates a new GORM-based cart repository.
func NewGormCartRepository(db *gorm.DB) *GormCartRepository {
	return &GormCartRepository{db: db}
}

// Get loads the cart's line items in insertion order.
func (r *GormCartRepository) Get(ctx context.Context, userID string) (*domain.Cart, error) {
	l := log.Ctx(ctx)

	var models []domain.CartItemModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&models)
	if result.Error != nil {
		l.Error().Err(result.Error).Str(log.FieldUserID, userID).Msg("failed to load cart")
		return nil, domain.Unavailable("load cart", result.Error)
	}

	cart := domain.NewCart(userID)
	for i := range models {
		cart.Items = append(cart.Items, models[i].ToDomain())
		if models[i].AddedAt.After(cart.UpdatedAt) {
			cart.UpdatedAt = models[i].AddedAt
		}
	}
	return cart, nil
}

// Save replaces every line of the cart in one transaction.
func (r *GormCartRepository) Save(ctx context.Context, cart *domain.Cart) error {
	l := log.Ctx(ctx)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", cart.UserID).Delete(&domain.CartItemModel{}).Error; err != nil {
			return err
		}
		if len(cart.Items) == 0 {
			return nil
		}
		models := make([]*domain.CartItemModel, len(cart.Items))
		for i, li := range cart.Items {
			models[i] = domain.CartItemToModel(cart.UserID, i, li)
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		l.Error().Err(err).Str(log.FieldUserID, cart.UserID).Msg("failed to save cart")
		return domain.Unavailable("save cart", err)
	}

	cart.UpdatedAt = time.Now().UTC()
	l.Debug().Str(log.FieldUserID, cart.UserID).Int("items", len(cart.Items)).Msg("cart saved")
	return nil
}

// Reserved groups every stored line by cell. NULL and empty variants both count
// against the "any" cell.
func (r *GormCartRepository) Reserved(ctx context.Context) (map[domain.LineKey]int, error) {
	var rows []struct {
		ProductID string
		Variant   *string
		Quantity  int
	}
	err := r.db.WithContext(ctx).
		Model(&domain.CartItemModel{}).
		Select("product_id, variant, SUM(quantity) AS quantity").
		Group("product_id, variant").
		Scan(&rows).Error
	if err != nil {
		return nil, domain.Unavailable("sum reserved stock", err)
	}

	held := make(map[domain.LineKey]int, len(rows))
	for _, row := range rows {
		li := domain.CartLineItem{ProductID: row.ProductID, Variant: row.Variant}
		held[li.Key()] += row.Quantity
	}
	return held, nil
}
