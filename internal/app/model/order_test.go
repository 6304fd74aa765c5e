package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name    string
		from    OrderStatus
		to      OrderStatus
		allowed bool
	}{
		{"pending to shipped", OrderStatusPending, OrderStatusShipped, true},
		{"pending to completed", OrderStatusPending, OrderStatusCompleted, true},
		{"pending to canceled", OrderStatusPending, OrderStatusCanceled, true},
		{"shipped is terminal", OrderStatusShipped, OrderStatusCompleted, false},
		{"shipped cannot be canceled", OrderStatusShipped, OrderStatusCanceled, false},
		{"shipped back to pending", OrderStatusShipped, OrderStatusPending, false},
		{"completed is terminal", OrderStatusCompleted, OrderStatusShipped, false},
		{"canceled is terminal", OrderStatusCanceled, OrderStatusPending, false},
		{"no self transition", OrderStatusPending, OrderStatusPending, false},
		{"unknown status", OrderStatus("refunded"), OrderStatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus(OrderStatusPending))
	assert.True(t, ValidOrderStatus(OrderStatusShipped))
	assert.True(t, ValidOrderStatus(OrderStatusCompleted))
	assert.True(t, ValidOrderStatus(OrderStatusCanceled))
	assert.False(t, ValidOrderStatus(OrderStatus("delivered")))
	assert.False(t, ValidOrderStatus(OrderStatus("")))
}

func TestOrder_Cancellable(t *testing.T) {
	assert.True(t, (&Order{Status: OrderStatusPending}).Cancellable())
	assert.False(t, (&Order{Status: OrderStatusShipped}).Cancellable())
	assert.False(t, (&Order{Status: OrderStatusCompleted}).Cancellable())
	assert.False(t, (&Order{Status: OrderStatusCanceled}).Cancellable())
}
