package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
)

// Client is one connected browser session.
type Client struct {
	Hub    *Hub
	Conn   *Conn
	UserID uint
	Send   chan []byte
}

// OrderEvent is pushed to the order's owner when its status changes.
type OrderEvent struct {
	Type      string            `json:"type"`
	OrderID   uint              `json:"order_id"`
	Status    model.OrderStatus `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
}

type directMessage struct {
	UserID  uint
	Message []byte
}

// Hub tracks connected clients per user and fans status events out to
// every open session that user has.
type Hub struct {
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	direct     chan *directMessage

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		direct:     make(chan *directMessage, 1024),
	}
}

// Run processes registrations and outbound events. Call it once, in its
// own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":  client.UserID,
				"sessions": len(h.clients[client.UserID]),
			})

		case client := <-h.unregister:
			h.mu.Lock()
			removed := false
			if clientList, ok := h.clients[client.UserID]; ok {
				newList := make([]*Client, 0, len(clientList))
				for _, c := range clientList {
					if c != client {
						newList = append(newList, c)
					} else {
						removed = true
					}
				}
				if len(newList) == 0 {
					delete(h.clients, client.UserID)
				} else {
					h.clients[client.UserID] = newList
				}
			}
			h.mu.Unlock()
			// A client can be unregistered twice (buffer-full drop, then
			// read pump exit); only the removal that found it closes Send.
			if removed {
				close(client.Send)
				logger.Info("WebSocket client unregistered", map[string]interface{}{
					"user_id": client.UserID,
				})
			}

		case msg := <-h.direct:
			h.mu.RLock()
			for _, client := range h.clients[msg.UserID] {
				select {
				case client.Send <- msg.Message:
				default:
					// Send buffer full: drop the session rather than block the hub
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"user_id": msg.UserID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsUserOnline reports whether the user has at least one open session.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[userID]
	return ok
}

// NotifyOrderStatus pushes an order status event to the order's owner.
// Events for offline users are dropped; the order record is the source of
// truth and the push is best effort.
func (h *Hub) NotifyOrderStatus(userID, orderID uint, status model.OrderStatus) {
	event := OrderEvent{
		Type:      "order_status",
		OrderID:   orderID,
		Status:    status,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal order event", err, map[string]interface{}{
			"order_id": orderID,
		})
		return
	}

	select {
	case h.direct <- &directMessage{UserID: userID, Message: data}:
	default:
		logger.Warn("Event channel full, order event dropped", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
	}
}
