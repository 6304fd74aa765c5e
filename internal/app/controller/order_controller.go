package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/internal/app/service"
	apperrors "github.com/freshlyhq/freshly-backend/internal/errors"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type OrderController struct {
	orderService service.OrderService
}

func NewOrderController(orderService service.OrderService) *OrderController {
	return &OrderController{orderService: orderService}
}

type CheckoutRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Checkout places an order from the caller's cart
// POST /api/v1/orders
func (ctrl *OrderController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid checkout request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the checkout details")
		return
	}

	details := service.CheckoutDetails{
		Name:        req.Name,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Address:     req.Address,
		City:        req.City,
		PostalCode:  req.PostalCode,
		Country:     req.Country,
	}

	// Re-run field validation here so the response can name the fields
	if fields := details.Validate(); len(fields) > 0 {
		apperrors.RespondWithValidationError(c, fields)
		return
	}

	order, err := ctrl.orderService.CreateOrderFromCart(userID, details)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyCart):
			apperrors.BadRequest(c, apperrors.CartEmpty, "Your cart is empty")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.Conflict(c, apperrors.ProductOutOfStock, "An item in your cart is no longer available in that quantity")
		default:
			log.Error("Checkout failed", err, map[string]interface{}{
				"user_id": userID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "checkout")
		}
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"user_id":     userID,
		"order_id":    order.ID,
		"total_price": order.TotalPrice,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Order placed successfully",
		"order":   order,
	})
}

// ListMyOrders returns the caller's order history
// GET /api/v1/orders
func (ctrl *OrderController) ListMyOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	orders, err := ctrl.orderService.GetUserOrders(userID)
	if err != nil {
		log.Error("Failed to list orders", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
	})
}

// GetOrder returns one of the caller's orders
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	order, err := ctrl.orderService.GetOrderByID(userID, uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to get order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get order")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// GetLastCheckoutDetails returns shipping details from the most recent order
// GET /api/v1/orders/last-address
func (ctrl *OrderController) GetLastCheckoutDetails(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	details, err := ctrl.orderService.GetLastCheckoutDetails(userID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "No previous orders")
			return
		}
		log.Error("Failed to get last checkout details", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get checkout details")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"details": details,
	})
}

// CancelOrder cancels one of the caller's pending orders
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) CancelOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	order, err := ctrl.orderService.CancelOrder(userID, uint(orderID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrOrderNotCancellable):
			apperrors.Conflict(c, apperrors.OrderNotCancellable, "Only pending orders can be cancelled")
		default:
			log.Error("Failed to cancel order", err, map[string]interface{}{
				"user_id":  userID,
				"order_id": orderID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cancel order")
		}
		return
	}

	log.Info("Order cancelled", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order cancelled",
		"order":   order,
	})
}

// ListAllOrders returns orders across all customers (admin)
// GET /api/v1/admin/orders
func (ctrl *OrderController) ListAllOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	filter.Limit = limit
	filter.Offset = offset

	orders, err := ctrl.orderService.GetAllOrders(filter)
	if err != nil {
		if errors.Is(err, service.ErrInvalidOrderStatus) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown order status")
			return
		}
		log.Error("Failed to list all orders", err, map[string]interface{}{
			"status": filter.Status,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// UpdateOrderStatus moves an order through its lifecycle (admin)
// PUT /api/v1/admin/orders/:id/status
func (ctrl *OrderController) UpdateOrderStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Status is required")
		return
	}

	order, err := ctrl.orderService.UpdateOrderStatus(uint(orderID), model.OrderStatus(req.Status))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrInvalidOrderStatus):
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown order status")
		case errors.Is(err, service.ErrInvalidStatusTransition):
			apperrors.Conflict(c, apperrors.OrderInvalidTransition, "That status change is not allowed")
		default:
			log.Error("Failed to update order status", err, map[string]interface{}{
				"order_id": orderID,
				"status":   req.Status,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update order status")
		}
		return
	}

	log.Info("Order status updated", map[string]interface{}{
		"order_id": orderID,
		"status":   req.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order status updated",
		"order":   order,
	})
}

// DeleteOrder removes an order record (admin)
// DELETE /api/v1/admin/orders/:id
func (ctrl *OrderController) DeleteOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	orderID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid order ID")
		return
	}

	if err := ctrl.orderService.DeleteOrder(uint(orderID)); err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to delete order", err, map[string]interface{}{
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete order")
		return
	}

	log.Info("Order deleted", map[string]interface{}{
		"order_id": orderID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Order deleted",
	})
}
