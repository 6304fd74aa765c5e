package model

import (
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// Catalog price and stock bounds enforced at the service layer.
const (
	MinProductPrice = 10
	MaxProductPrice = 100000
	MinStock        = 0
	MaxStock        = 10000
)

type Product struct {
	ID            uint           `gorm:"primarykey" json:"id"`
	Name          string         `gorm:"not null;index" json:"name"`
	Description   string         `gorm:"type:text" json:"description"`
	Category      string         `gorm:"type:varchar(50);index" json:"category"` // e.g. fruits, vegetables, dairy
	Price         float64        `gorm:"not null" json:"price"`
	Unit          string         `gorm:"type:varchar(20)" json:"unit"` // e.g. kg, bunch, litre
	StockQuantity int            `gorm:"default:0" json:"stock_quantity"`
	ImageURL      string         `json:"image_url"`
	Tags          pq.StringArray `gorm:"type:text[]" json:"tags"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`

	// Relationships
	OrderItems []OrderItem `gorm:"foreignKey:ProductID" json:"-"`
	CartItems  []CartItem  `gorm:"foreignKey:ProductID" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// InStock reports whether the requested quantity can be fulfilled.
func (p *Product) InStock(quantity int) bool {
	return p.StockQuantity >= quantity
}
