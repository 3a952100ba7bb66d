package inventory

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Mariodrm17/Practica1/internal/domain"
)

// GormLedger keeps cells in the stock_levels table. Reserve is a single conditional
// UPDATE, so the database row lock is the cell's critical section.
type GormLedger struct {
	db *gorm.DB
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db}
}

func (l *GormLedger) cell(ctx context.Context, productID, variant string) *gorm.DB {
	return l.db.WithContext(ctx).
		Model(&domain.StockLevelModel{}).
		Where("product_id = ? AND variant = ?", productID, variant)
}

func (l *GormLedger) Reserve(ctx context.Context, productID, variant string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	res := l.cell(ctx, productID, variant).
		Where("available >= ?", qty).
		Update("available", gorm.Expr("available - ?", qty))
	if res.Error != nil {
		return domain.Unavailable("reserve stock", res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	if _, err := l.CurrentStock(ctx, productID, variant); err != nil {
		return err
	}
	return domain.ErrInsufficientStock
}

// Release adds qty back in one UPDATE whose CASE clamps at capacity. The prior read
// only decides whether to warn.
func (l *GormLedger) Release(ctx context.Context, productID, variant string, qty int) error {
	if err := checkQty(qty); err != nil {
		return err
	}
	var level domain.StockLevelModel
	if err := l.cell(ctx, productID, variant).First(&level).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrProductUnavailable
		}
		return domain.Unavailable("release stock", err)
	}

	// MySQL reports zero affected rows when the cell is already at capacity, so the
	// row count is not checked.
	err := l.cell(ctx, productID, variant).
		Update("available", gorm.Expr("CASE WHEN available + ? > capacity THEN capacity ELSE available + ? END", qty, qty)).
		Error
	if err != nil {
		return domain.Unavailable("release stock", err)
	}
	if level.Available+qty > level.Capacity {
		warnClamp(ctx, productID, variant, qty, level.Capacity)
	}
	return nil
}

func (l *GormLedger) CurrentStock(ctx context.Context, productID, variant string) (int, error) {
	var level domain.StockLevelModel
	err := l.db.WithContext(ctx).
		Where("product_id = ? AND variant = ?", productID, variant).
		First(&level).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, domain.ErrProductUnavailable
		}
		return 0, domain.Unavailable("read stock", err)
	}
	return level.Available, nil
}

func (l *GormLedger) Seed(ctx context.Context, productID, variant string, available, capacity int) error {
	level := domain.StockLevelModel{
		ProductID: productID,
		Variant:   variant,
		Available: available,
		Capacity:  capacity,
	}
	err := l.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&level).Error
	if err != nil {
		return domain.Unavailable("seed stock", err)
	}
	return nil
}

// Close is a no-op; the *gorm.DB is owned by the caller.
func (l *GormLedger) Close() error {
	return nil
}
