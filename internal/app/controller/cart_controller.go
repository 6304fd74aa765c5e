package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/freshlyhq/freshly-backend/internal/app/service"
	apperrors "github.com/freshlyhq/freshly-backend/internal/errors"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{cartService: cartService}
}

type AddToCartRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	// Quantity is optional; an omitted quantity adds a single unit
	Quantity int `json:"quantity" binding:"omitempty,min=1"`
}

type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

// GetCart returns the caller's cart with resolved products and totals
// GET /api/v1/cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	cart, err := ctrl.cartService.GetUserCart(userID)
	if err != nil {
		log.Error("Failed to get cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get cart")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items":       cart.Items,
		"total_items": cart.TotalItems,
		"total_price": cart.TotalPrice,
	})
}

// AddToCart adds a product line to the cart, merging with any existing line
// POST /api/v1/cart/items
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	var req AddToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid add to cart request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "A valid product is required")
		return
	}

	if err := ctrl.cartService.AddToCart(userID, req.ProductID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.BadRequest(c, apperrors.ProductOutOfStock, "Not enough stock for that quantity")
		default:
			log.Error("Failed to add to cart", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": req.ProductID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "add to cart")
		}
		return
	}

	log.Info("Item added to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": req.ProductID,
		"quantity":   req.Quantity,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Item added to cart",
	})
}

// SetQuantity sets the quantity of a cart line; zero removes it
// PUT /api/v1/cart/items/:productID
func (ctrl *CartController) SetQuantity(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	productID, err := strconv.ParseUint(c.Param("productID"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	var req SetQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Quantity is required")
		return
	}

	if err := ctrl.cartService.SetQuantity(userID, uint(productID), *req.Quantity); err != nil {
		switch {
		case errors.Is(err, service.ErrProductNotFound):
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
		case errors.Is(err, service.ErrInsufficientStock):
			apperrors.BadRequest(c, apperrors.ProductOutOfStock, "Not enough stock for that quantity")
		default:
			log.Error("Failed to set cart quantity", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update cart")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart updated",
	})
}

// RemoveFromCart removes a product line; removing an absent line succeeds
// DELETE /api/v1/cart/items/:productID
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	productID, err := strconv.ParseUint(c.Param("productID"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	if err := ctrl.cartService.RemoveFromCart(userID, uint(productID)); err != nil {
		log.Error("Failed to remove cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "remove cart item")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Item removed from cart",
	})
}

// ClearCart empties the caller's cart
// DELETE /api/v1/cart
func (ctrl *CartController) ClearCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	if err := ctrl.cartService.ClearCart(userID); err != nil {
		log.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "clear cart")
		return
	}

	log.Info("Cart cleared", map[string]interface{}{
		"user_id": userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Cart cleared",
	})
}
