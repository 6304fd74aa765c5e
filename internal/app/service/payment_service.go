package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"github.com/freshlyhq/freshly-backend/pkg/mpesa"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrPaymentAlreadyProcessed = errors.New("payment already processed")
	ErrInvalidPaymentAmount    = errors.New("invalid payment amount")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrInvalidPhoneNumber      = errors.New("invalid phone number")
)

// PaymentInitResponse is returned after a successful STK push so the
// client can poll for the result.
type PaymentInitResponse struct {
	OrderID           uint   `json:"order_id"`
	CheckoutRequestID string `json:"checkout_request_id"`
	CustomerMessage   string `json:"customer_message"`
}

// PaymentStatusResponse reports where an order's payment stands.
type PaymentStatusResponse struct {
	OrderID       uint                `json:"order_id"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Receipt       string              `json:"receipt,omitempty"`
	PaidAt        *time.Time          `json:"paid_at,omitempty"`
}

type PaymentService interface {
	InitiatePayment(ctx context.Context, userID, orderID uint, phone string) (*PaymentInitResponse, error)
	HandleCallback(ctx context.Context, callback *mpesa.STKCallback) error
	GetPaymentStatus(ctx context.Context, userID, orderID uint) (*PaymentStatusResponse, error)
	SweepStalePending(ctx context.Context, pendingExpiry time.Duration) (int, error)
}

type paymentService struct {
	orderRepo   repository.OrderRepository
	mpesaClient *mpesa.Client
	notifier    OrderNotifier
	db          *gorm.DB
}

// NewPaymentService creates the mobile money payment service.
func NewPaymentService(
	orderRepo repository.OrderRepository,
	mpesaClient *mpesa.Client,
	notifier OrderNotifier,
	db *gorm.DB,
) PaymentService {
	return &paymentService{
		orderRepo:   orderRepo,
		mpesaClient: mpesaClient,
		notifier:    notifier,
		db:          db,
	}
}

// InitiatePayment sends an STK push to the customer's phone for the order
// total. The returned checkout request ID ties the asynchronous callback
// back to the order.
func (s *paymentService) InitiatePayment(ctx context.Context, userID, orderID uint, phone string) (*PaymentInitResponse, error) {
	logger.Info("Initiating payment", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})

	normalizedPhone, err := mpesa.NormalizePhone(phone)
	if err != nil {
		logger.Warn("Payment initiation rejected: invalid phone", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, ErrInvalidPhoneNumber
	}

	// Lock the order row so concurrent pushes can't double-charge
	var order model.Order
	if err := s.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ? AND user_id = ?", orderID, userID).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order.PaymentStatus == model.PaymentStatusCompleted {
		logger.Warn("Payment initiation rejected: already paid", map[string]interface{}{
			"order_id": orderID,
		})
		return nil, ErrPaymentAlreadyProcessed
	}

	if order.Status == model.OrderStatusCanceled {
		return nil, ErrOrderNotFound
	}

	if order.TotalPrice <= 0 {
		return nil, ErrInvalidPaymentAmount
	}

	// Daraja only takes whole shillings
	amount := int64(math.Ceil(order.TotalPrice))
	accountRef := fmt.Sprintf("FRESHLY-%d", order.ID)

	resp, err := s.mpesaClient.STKPush(ctx, normalizedPhone, amount, accountRef, "Freshly Groceries order")
	if err != nil {
		logger.Error("STK push failed", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	order.CheckoutRequestID = resp.CheckoutRequestID
	order.PaymentStatus = model.PaymentStatusPending

	if err := s.db.Save(&order).Error; err != nil {
		logger.Error("Failed to store checkout request ID", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, fmt.Errorf("failed to update order: %w", err)
	}

	logger.Info("Payment initiated successfully", map[string]interface{}{
		"order_id":            orderID,
		"checkout_request_id": resp.CheckoutRequestID,
		"amount":              amount,
	})

	return &PaymentInitResponse{
		OrderID:           order.ID,
		CheckoutRequestID: resp.CheckoutRequestID,
		CustomerMessage:   resp.CustomerMessage,
	}, nil
}

// HandleCallback processes the asynchronous payment result. Success records
// the receipt and payment time; failure marks the payment failed so the
// customer can retry.
func (s *paymentService) HandleCallback(ctx context.Context, callback *mpesa.STKCallback) error {
	logger.Info("Processing payment callback", map[string]interface{}{
		"checkout_request_id": callback.CheckoutRequestID,
		"result_code":         callback.ResultCode,
	})

	order, err := s.orderRepo.FindByCheckoutRequestID(callback.CheckoutRequestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Callback for unknown checkout request", map[string]interface{}{
				"checkout_request_id": callback.CheckoutRequestID,
			})
			return ErrPaymentNotFound
		}
		logger.Error("Failed to find order for callback", err, map[string]interface{}{
			"checkout_request_id": callback.CheckoutRequestID,
		})
		return err
	}

	// Callbacks can be delivered more than once
	if order.PaymentStatus == model.PaymentStatusCompleted {
		logger.Debug("Callback ignored: payment already completed", map[string]interface{}{
			"order_id": order.ID,
		})
		return nil
	}

	if !callback.Succeeded() {
		logger.Warn("Payment failed or cancelled by customer", map[string]interface{}{
			"order_id":    order.ID,
			"result_code": callback.ResultCode,
			"result_desc": callback.ResultDesc,
		})
		if err := s.orderRepo.UpdatePaymentStatus(order.ID, model.PaymentStatusFailed); err != nil {
			return err
		}
		return nil
	}

	now := time.Now()
	order.PaymentStatus = model.PaymentStatusCompleted
	order.Receipt = callback.Receipt()
	order.PaidAt = &now

	if err := s.orderRepo.Update(order); err != nil {
		logger.Error("Failed to record completed payment", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyOrderStatus(order.UserID, order.ID, order.Status)
	}

	logger.Info("Payment completed successfully", map[string]interface{}{
		"order_id": order.ID,
		"receipt":  order.Receipt,
	})
	return nil
}

// GetPaymentStatus returns the recorded payment state for polling clients.
// While the payment is still pending the gateway is queried for a fresher
// answer.
func (s *paymentService) GetPaymentStatus(ctx context.Context, userID, orderID uint) (*PaymentStatusResponse, error) {
	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	if order.UserID != userID {
		return nil, ErrOrderNotFound
	}

	if order.PaymentStatus == model.PaymentStatusPending && order.CheckoutRequestID != "" {
		query, err := s.mpesaClient.Query(ctx, order.CheckoutRequestID)
		if err != nil {
			// Gateway hiccups shouldn't break polling; report the stored state
			logger.Warn("Payment status query failed, returning stored state", map[string]interface{}{
				"order_id": orderID,
				"error":    err.Error(),
			})
		} else if query.ResultCode == "0" {
			now := time.Now()
			order.PaymentStatus = model.PaymentStatusCompleted
			order.PaidAt = &now
			if err := s.orderRepo.Update(order); err != nil {
				return nil, err
			}
		}
	}

	return &PaymentStatusResponse{
		OrderID:       order.ID,
		PaymentStatus: order.PaymentStatus,
		Receipt:       order.Receipt,
		PaidAt:        order.PaidAt,
	}, nil
}

// SweepStalePending cancels pending orders whose payment never arrived
// within pendingExpiry, restocking their items. Returns how many orders
// were cancelled.
func (s *paymentService) SweepStalePending(ctx context.Context, pendingExpiry time.Duration) (int, error) {
	cutoff := time.Now().Add(-pendingExpiry)

	logger.Info("Sweeping stale pending payments", map[string]interface{}{
		"cutoff": cutoff,
	})

	orders, err := s.orderRepo.FindStalePending(cutoff)
	if err != nil {
		logger.Error("Failed to find stale pending orders", err, nil)
		return 0, err
	}

	swept := 0
	for _, order := range orders {
		tx := s.db.Begin()

		for _, item := range order.OrderItems {
			if err := tx.Model(&model.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
				tx.Rollback()
				logger.Error("Failed to restock product during sweep", err, map[string]interface{}{
					"order_id":   order.ID,
					"product_id": item.ProductID,
				})
				return swept, err
			}
		}

		if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).
			Updates(map[string]interface{}{
				"status":         model.OrderStatusCanceled,
				"payment_status": model.PaymentStatusFailed,
			}).Error; err != nil {
			tx.Rollback()
			logger.Error("Failed to cancel stale order during sweep", err, map[string]interface{}{
				"order_id": order.ID,
			})
			return swept, err
		}

		if err := tx.Commit().Error; err != nil {
			logger.Error("Failed to commit sweep transaction", err, map[string]interface{}{
				"order_id": order.ID,
			})
			return swept, err
		}

		if s.notifier != nil {
			s.notifier.NotifyOrderStatus(order.UserID, order.ID, model.OrderStatusCanceled)
		}
		swept++
	}

	logger.Info("Stale pending payment sweep completed", map[string]interface{}{
		"swept": swept,
	})
	return swept, nil
}
