package domain

import (
	"time"

	"github.com/samber/lo"
)

// LineKey identifies a line item for merge purposes.
type LineKey struct {
	ProductID string
	Variant   string
}

// CartLineItem holds a reservation of Quantity units at a snapshot price.
type CartLineItem struct {
	ID             string    `json:"id"`
	ProductID      string    `json:"product_id"`
	Variant        *string   `json:"variant"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	AddedAt        time.Time `json:"added_at"`
}

// Key returns the line's merge key.
func (li *CartLineItem) Key() LineKey {
	return LineKey{ProductID: li.ProductID, Variant: li.StockVariant()}
}

// StockVariant returns the ledger variant key the line reserves against.
func (li *CartLineItem) StockVariant() string {
	if li.Variant == nil || *li.Variant == "" {
		return AnyVariant
	}
	return *li.Variant
}

// Subtotal is unit price times quantity.
func (li *CartLineItem) Subtotal() int64 {
	return li.UnitPriceCents * int64(li.Quantity)
}

// Cart is owned by exactly one identity.
type Cart struct {
	UserID    string         `json:"user_id"`
	Items     []CartLineItem `json:"items"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// NewCart returns an empty cart for userID.
func NewCart(userID string) *Cart {
	return &Cart{UserID: userID, Items: []CartLineItem{}}
}

// Total is always derived from the line items.
func (c *Cart) Total() int64 {
	return lo.SumBy(c.Items, func(li CartLineItem) int64 { return li.Subtotal() })
}

// ItemCount is the number of units in the cart.
func (c *Cart) ItemCount() int {
	return lo.SumBy(c.Items, func(li CartLineItem) int { return li.Quantity })
}

// FindByKey returns the index of the line with the given merge key, or -1.
func (c *Cart) FindByKey(key LineKey) int {
	_, idx, ok := lo.FindIndexOf(c.Items, func(li CartLineItem) bool { return li.Key() == key })
	if !ok {
		return -1
	}
	return idx
}

// FindByID returns the index of the line with the given id, or -1.
func (c *Cart) FindByID(id string) int {
	_, idx, ok := lo.FindIndexOf(c.Items, func(li CartLineItem) bool { return li.ID == id })
	if !ok {
		return -1
	}
	return idx
}

// Clone returns a deep copy so callers can mutate without touching stored state.
func (c *Cart) Clone() *Cart {
	cp := &Cart{UserID: c.UserID, UpdatedAt: c.UpdatedAt, Items: make([]CartLineItem, len(c.Items))}
	for i, li := range c.Items {
		if li.Variant != nil {
			v := *li.Variant
			li.Variant = &v
		}
		cp.Items[i] = li
	}
	return cp
}

// ProductSummary is the catalog display data joined into a cart view.
type ProductSummary struct {
	Name      string `json:"name"`
	Image     string `json:"image,omitempty"`
	Category  string `json:"category,omitempty"`
	Active    bool   `json:"active"`
	LiveStock int    `json:"live_stock"`
}

// CartLineView is a line item enriched with product display data.
type CartLineView struct {
	CartLineItem
	Product       *ProductSummary `json:"product,omitempty"`
	SubtotalCents int64           `json:"subtotal_cents"`
}

// CartView is the read-only, enriched representation of a cart.
type CartView struct {
	UserID     string         `json:"user_id"`
	Items      []CartLineView `json:"items"`
	ItemCount  int            `json:"item_count"`
	TotalCents int64          `json:"total_cents"`
}
