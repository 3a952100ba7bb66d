package domain

import (
	"time"

	"github.com/Mariodrm17/Practica1/pkg/database"
)

// ProductModel is the GORM model for the catalog's products table.
type ProductModel struct {
	ID          string               `gorm:"type:varchar(36);primaryKey"`
	Name        string               `gorm:"type:varchar(200);not null"`
	Description string               `gorm:"type:text"`
	Category    string               `gorm:"type:varchar(50);index;not null"`
	League      string               `gorm:"type:varchar(20)"`
	Image       string               `gorm:"type:varchar(500)"`
	PriceCents  int64                `gorm:"not null"`
	Variants    database.StringArray `gorm:"type:text"`
	Active      bool                 `gorm:"index;not null"`
	CreatedAt   time.Time            `gorm:"autoCreateTime"`
	UpdatedAt   time.Time            `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for ProductModel.
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts ProductModel to a domain Product with an empty stock map.
func (m *ProductModel) ToDomain() *Product {
	return &Product{
		ID:          m.ID,
		Name:        m.Name,
		Description: m.Description,
		Category:    m.Category,
		League:      m.League,
		Image:       m.Image,
		PriceCents:  m.PriceCents,
		Variants:    []string(m.Variants),
		Active:      m.Active,
		Stock:       make(map[string]int),
	}
}

// StockLevelModel is one (product, variant) inventory cell. Capacity is the total
// catalog stock of the cell and bounds releases.
type StockLevelModel struct {
	ProductID string    `gorm:"type:varchar(36);primaryKey"`
	Variant   string    `gorm:"type:varchar(50);primaryKey"`
	Available int       `gorm:"not null;check:available >= 0"`
	Capacity  int       `gorm:"not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName specifies the table name for StockLevelModel.
func (StockLevelModel) TableName() string {
	return "stock_levels"
}

// CartItemModel is the GORM model for cart line items.
type CartItemModel struct {
	ID             string    `gorm:"type:varchar(36);primaryKey"`
	UserID         string    `gorm:"type:varchar(64);index;not null"`
	ProductID      string    `gorm:"type:varchar(36);not null"`
	Variant        *string   `gorm:"type:varchar(50)"`
	Quantity       int       `gorm:"not null"`
	UnitPriceCents int64     `gorm:"not null"`
	Position       int       `gorm:"not null;default:0"`
	AddedAt        time.Time `gorm:"not null"`
}

// TableName specifies the table name for CartItemModel.
func (CartItemModel) TableName() string {
	return "cart_items"
}

// ToDomain converts CartItemModel to a domain line item.
func (m *CartItemModel) ToDomain() CartLineItem {
	return CartLineItem{
		ID:             m.ID,
		ProductID:      m.ProductID,
		Variant:        m.Variant,
		Quantity:       m.Quantity,
		UnitPriceCents: m.UnitPriceCents,
		AddedAt:        m.AddedAt,
	}
}

// CartItemToModel converts a domain line item to CartItemModel.
func CartItemToModel(userID string, position int, li CartLineItem) *CartItemModel {
	return &CartItemModel{
		ID:             li.ID,
		UserID:         userID,
		ProductID:      li.ProductID,
		Variant:        li.Variant,
		Quantity:       li.Quantity,
		UnitPriceCents: li.UnitPriceCents,
		Position:       position,
		AddedAt:        li.AddedAt,
	}
}

// ChatMessageModel is the GORM model for the append-only chat log.
type ChatMessageModel struct {
	ID        string    `gorm:"type:varchar(36);primaryKey"`
	Room      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_room_seq,priority:1"`
	Seq       int64     `gorm:"not null;uniqueIndex:idx_room_seq,priority:2"`
	UserID    *string   `gorm:"type:varchar(64)"`
	Username  string    `gorm:"type:varchar(100);not null"`
	Body      string    `gorm:"type:text;not null"`
	Kind      string    `gorm:"type:varchar(20);not null;default:'message'"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName specifies the table name for ChatMessageModel.
func (ChatMessageModel) TableName() string {
	return "chat_messages"
}

// ToDomain converts ChatMessageModel to a domain ChatMessage.
func (m *ChatMessageModel) ToDomain() ChatMessage {
	return ChatMessage{
		ID:        m.ID,
		Room:      m.Room,
		Seq:       m.Seq,
		UserID:    m.UserID,
		Username:  m.Username,
		Body:      m.Body,
		Kind:      MessageKind(m.Kind),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// ChatMessageToModel converts a stored domain ChatMessage to ChatMessageModel.
func ChatMessageToModel(m *ChatMessage) *ChatMessageModel {
	return &ChatMessageModel{
		ID:        m.ID,
		Room:      m.Room,
		Seq:       m.Seq,
		UserID:    m.UserID,
		Username:  m.Username,
		Body:      m.Body,
		Kind:      string(m.Kind),
		CreatedAt: m.CreatedAt,
	}
}

// Models lists every table the storefront migrates.
func Models() []interface{} {
	return []interface{}{
		&ProductModel{},
		&StockLevelModel{},
		&CartItemModel{},
		&ChatMessageModel{},
	}
}
