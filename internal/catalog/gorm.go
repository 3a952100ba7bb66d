package catalog

import (
	"context"
	"errors"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mariodrm17/Practica1/internal/domain"
	"github.com/Mariodrm17/Practica1/pkg/database"
)

// GormCatalog reads products and their declared stock (stock_levels.capacity).
type GormCatalog struct {
	db *gorm.DB
}

func NewGormCatalog(db *gorm.DB) *GormCatalog {
	return &GormCatalog{db: db}
}

func (c *GormCatalog) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	var model domain.ProductModel
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProductUnavailable
		}
		return nil, domain.Unavailable("get product", err)
	}

	var levels []domain.StockLevelModel
	if err := c.db.WithContext(ctx).Where("product_id = ?", id).Find(&levels).Error; err != nil {
		return nil, domain.Unavailable("get product stock", err)
	}
	return toProduct(&model, levels), nil
}

func (c *GormCatalog) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	var models []domain.ProductModel
	if err := c.db.WithContext(ctx).Order("id").Find(&models).Error; err != nil {
		return nil, domain.Unavailable("list products", err)
	}
	if len(models) == 0 {
		return []*domain.Product{}, nil
	}

	ids := lo.Map(models, func(m domain.ProductModel, _ int) string { return m.ID })
	var levels []domain.StockLevelModel
	if err := c.db.WithContext(ctx).Where("product_id IN ?", ids).Find(&levels).Error; err != nil {
		return nil, domain.Unavailable("list product stock", err)
	}
	byProduct := lo.GroupBy(levels, func(l domain.StockLevelModel) string { return l.ProductID })

	return lo.Map(models, func(m domain.ProductModel, _ int) *domain.Product {
		return toProduct(&m, byProduct[m.ID])
	}), nil
}

// Upsert writes products and creates missing stock rows at full capacity.
func (c *GormCatalog) Upsert(ctx context.Context, products []*domain.Product) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range products {
			model := domain.ProductModel{
				ID:          p.ID,
				Name:        p.Name,
				Description: p.Description,
				Category:    p.Category,
				League:      p.League,
				Image:       p.Image,
				PriceCents:  p.PriceCents,
				Variants:    database.StringArray(p.Variants),
				Active:      p.Active,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&model).Error; err != nil {
				return err
			}
			for variant, qty := range p.StockCells() {
				level := domain.StockLevelModel{
					ProductID: p.ID,
					Variant:   variant,
					Available: qty,
					Capacity:  qty,
				}
				if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&level).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func toProduct(m *domain.ProductModel, levels []domain.StockLevelModel) *domain.Product {
	p := m.ToDomain()
	for _, l := range levels {
		p.Stock[l.Variant] = l.Capacity
	}
	return p
}
