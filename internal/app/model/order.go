package model

import (
	"time"

	"gorm.io/gorm"
)

type OrderStatus string
type PaymentStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusCanceled  OrderStatus = "canceled"

	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// orderTransitions defines every legal status move. Anything absent from
// this table is rejected, including admin requests. Only pending orders
// move; shipped, completed and canceled are all terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:   {OrderStatusShipped, OrderStatusCompleted, OrderStatusCanceled},
	OrderStatusShipped:   {},
	OrderStatusCompleted: {},
	OrderStatusCanceled:  {},
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s OrderStatus) bool {
	_, ok := orderTransitions[s]
	return ok
}

// CanTransitionTo reports whether an order may move from its current
// status to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uint          `gorm:"primarykey" json:"id"`
	UserID        uint          `gorm:"not null;index" json:"user_id"`
	TotalPrice    float64       `gorm:"not null" json:"total_price"`
	Status        OrderStatus   `gorm:"type:varchar(20);default:'pending'" json:"status"`
	PaymentStatus PaymentStatus `gorm:"type:varchar(20);default:'pending'" json:"payment_status"`
	PaymentMethod string        `gorm:"type:varchar(20);default:'mobile'" json:"payment_method"`

	// Mobile money payment trail
	CheckoutRequestID string     `gorm:"type:varchar(100);index" json:"checkout_request_id,omitempty"`
	Receipt           string     `gorm:"type:varchar(50)" json:"receipt,omitempty"`
	PaidAt            *time.Time `json:"paid_at,omitempty"`

	// Shipping details captured at checkout
	Name        string `gorm:"not null" json:"name"`
	Email       string `gorm:"not null" json:"email"`
	PhoneNumber string `gorm:"not null" json:"phone_number"`
	Address     string `gorm:"not null" json:"address"`
	City        string `gorm:"not null" json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `gorm:"default:'Kenya'" json:"country"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	User       User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	OrderItems []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"order_items,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// Cancellable reports whether the owner may still cancel the order.
// Only pending orders qualify; shipped and later states are locked in.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending
}

// OrderItem snapshots a product line at checkout time. Name and Price are
// copied from the product so later catalog edits leave order history intact.
type OrderItem struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	OrderID   uint           `gorm:"not null;index" json:"order_id"`
	ProductID uint           `gorm:"not null;index" json:"product_id"`
	Name      string         `gorm:"not null" json:"name"`
	Quantity  int            `gorm:"not null" json:"quantity"`
	Price     float64        `gorm:"not null" json:"price"`
	Subtotal  float64        `gorm:"not null" json:"subtotal"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Order   Order   `gorm:"foreignKey:OrderID" json:"-"`
	Product Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
