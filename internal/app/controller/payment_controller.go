package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/freshlyhq/freshly-backend/internal/app/service"
	apperrors "github.com/freshlyhq/freshly-backend/internal/errors"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/freshlyhq/freshly-backend/pkg/mpesa"
	"github.com/gin-gonic/gin"
)

type PaymentController struct {
	paymentService service.PaymentService
}

func NewPaymentController(paymentService service.PaymentService) *PaymentController {
	return &PaymentController{paymentService: paymentService}
}

type InitiatePaymentRequest struct {
	OrderID     uint   `json:"order_id" binding:"required"`
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// InitiatePayment sends an STK push to the customer's phone
// POST /api/v1/payments/initiate
func (ctrl *PaymentController) InitiatePayment(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	var req InitiatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid payment request", map[string]interface{}{
			"user_id": userID,
			"error":   err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Order and phone number are required")
		return
	}

	result, err := ctrl.paymentService.InitiatePayment(c.Request.Context(), userID, req.OrderID, req.PhoneNumber)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
		case errors.Is(err, service.ErrInvalidPhoneNumber):
			apperrors.BadRequest(c, apperrors.ValidationInvalidPhone, "Phone number is not a valid Safaricom number")
		case errors.Is(err, service.ErrPaymentAlreadyProcessed):
			apperrors.Conflict(c, apperrors.PaymentAlreadyPaid, "This order has already been paid")
		case errors.Is(err, service.ErrInvalidPaymentAmount):
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Order total is not payable")
		default:
			log.Error("Failed to initiate payment", err, map[string]interface{}{
				"user_id":  userID,
				"order_id": req.OrderID,
			})
			apperrors.RespondWithError(c, http.StatusBadGateway, apperrors.PaymentFailed, "Could not reach the payment provider. Please try again")
		}
		return
	}

	log.Info("Payment initiated", map[string]interface{}{
		"user_id":             userID,
		"order_id":            result.OrderID,
		"checkout_request_id": result.CheckoutRequestID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment request sent. Check your phone",
		"payment": result,
	})
}

// Callback receives the asynchronous payment result from the provider.
// The endpoint is public; unmatched callbacks are acknowledged and dropped
// so the provider stops retrying.
// POST /api/v1/payments/callback
func (ctrl *PaymentController) Callback(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	callback, err := mpesa.ParseCallback(c.Request.Body)
	if err != nil {
		log.Warn("Malformed payment callback", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Malformed callback payload")
		return
	}

	if err := ctrl.paymentService.HandleCallback(c.Request.Context(), callback); err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) {
			log.Warn("Callback for unknown checkout request", map[string]interface{}{
				"checkout_request_id": callback.CheckoutRequestID,
			})
			c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
			return
		}
		log.Error("Failed to process payment callback", err, map[string]interface{}{
			"checkout_request_id": callback.CheckoutRequestID,
		})
		apperrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// GetPaymentStatus reports the payment state of an order, polling the
// provider when the callback has not arrived yet
// GET /api/v1/payments/orders/:id
func (ctrl *PaymentController) GetPaymentStatus(c *gin.Context) {
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

	status, err := ctrl.paymentService.GetPaymentStatus(c.Request.Context(), userID, uint(orderID))
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			apperrors.NotFound(c, apperrors.OrderNotFound, "Order not found")
			return
		}
		log.Error("Failed to get payment status", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get payment status")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment": status,
	})
}
