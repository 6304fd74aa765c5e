package model

import (
	"time"
)

// CartItem holds one product line in a user's cart. A user has at most one
// row per product; adding the same product again bumps the quantity.
// Cart rows are deleted outright, not soft-deleted, so the unique index
// stays enforceable.
type CartItem struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"user_id"`
	ProductID uint      `gorm:"not null;uniqueIndex:idx_cart_user_product" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1" json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relationships
	User    User    `gorm:"foreignKey:UserID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (CartItem) TableName() string {
	return "cart_items"
}

// Subtotal is the line total at the product's current price.
func (c *CartItem) Subtotal() float64 {
	return c.Product.Price * float64(c.Quantity)
}
