package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID uint) *Client {
	return &Client{
		Hub:    hub,
		UserID: userID,
		Send:   make(chan []byte, 8),
	}
}

func receiveEvent(t *testing.T, c *Client) OrderEvent {
	t.Helper()
	select {
	case data := <-c.Send:
		var event OrderEvent
		require.NoError(t, json.Unmarshal(data, &event))
		return event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for order event")
		return OrderEvent{}
	}
}

func TestHub_NotifyOrderStatus_FansOutToAllSessions(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := newTestClient(hub, 1)
	second := newTestClient(hub, 1)
	other := newTestClient(hub, 2)
	hub.Register(first)
	hub.Register(second)
	hub.Register(other)

	require.Eventually(t, func() bool {
		return hub.IsUserOnline(1) && hub.IsUserOnline(2)
	}, time.Second, 10*time.Millisecond)

	hub.NotifyOrderStatus(1, 42, model.OrderStatusShipped)

	for _, c := range []*Client{first, second} {
		event := receiveEvent(t, c)
		assert.Equal(t, "order_status", event.Type)
		assert.Equal(t, uint(42), event.OrderID)
		assert.Equal(t, model.OrderStatusShipped, event.Status)
	}

	select {
	case <-other.Send:
		t.Fatal("event delivered to a different user")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_NotifyOrderStatus_OfflineUserDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// No sessions registered; the push is best effort and must not block
	hub.NotifyOrderStatus(7, 99, model.OrderStatusCanceled)
}

func TestHub_Unregister_RemovesOnlyThatSession(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	first := newTestClient(hub, 1)
	second := newTestClient(hub, 1)
	hub.Register(first)
	hub.Register(second)

	require.Eventually(t, func() bool { return hub.IsUserOnline(1) }, time.Second, 10*time.Millisecond)

	hub.Unregister(first)
	// Send closes once the hub has processed the removal
	select {
	case _, ok := <-first.Send:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for session teardown")
	}

	// Unregistering the same session again must not panic or touch the
	// surviving session
	hub.Unregister(first)

	hub.NotifyOrderStatus(1, 5, model.OrderStatusCompleted)
	event := receiveEvent(t, second)
	assert.Equal(t, uint(5), event.OrderID)

	hub.Unregister(second)
	require.Eventually(t, func() bool { return !hub.IsUserOnline(1) }, time.Second, 10*time.Millisecond)
}
