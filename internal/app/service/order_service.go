package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrOrderNotFound           = errors.New("order not found")
	ErrOrderNotCancellable     = errors.New("order can no longer be cancelled")
	ErrInvalidOrderStatus      = errors.New("invalid order status")
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	ErrInvalidCheckoutDetails  = errors.New("invalid checkout details")
)

var (
	checkoutPhonePattern = regexp.MustCompile(`^(07|01)\d{8}$`)
	checkoutEmailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// CheckoutDetails is the shipping and contact information captured when an
// order is placed.
type CheckoutDetails struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Address     string `json:"address"`
	City        string `json:"city"`
	PostalCode  string `json:"postal_code"`
	Country     string `json:"country"`
}

// Validate returns per-field messages for anything missing or malformed.
// An empty map means the details are acceptable.
func (d *CheckoutDetails) Validate() map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(d.Name) == "" {
		fields["name"] = "Name is required"
	}
	if strings.TrimSpace(d.Email) == "" {
		fields["email"] = "Email is required"
	} else if !checkoutEmailPattern.MatchString(d.Email) {
		fields["email"] = "Email is invalid"
	}
	if strings.TrimSpace(d.PhoneNumber) == "" {
		fields["phone_number"] = "Phone number is required"
	} else if !checkoutPhonePattern.MatchString(d.PhoneNumber) {
		fields["phone_number"] = "Phone number must start with 07 or 01 and have 10 digits"
	}
	if strings.TrimSpace(d.Address) == "" {
		fields["address"] = "Address is required"
	}
	if strings.TrimSpace(d.City) == "" {
		fields["city"] = "City is required"
	}

	return fields
}

// OrderNotifier pushes order status changes to connected clients.
type OrderNotifier interface {
	NotifyOrderStatus(userID, orderID uint, status model.OrderStatus)
}

type OrderService interface {
	CreateOrderFromCart(userID uint, details CheckoutDetails) (*model.Order, error)
	GetUserOrders(userID uint) ([]model.Order, error)
	GetOrderByID(userID, orderID uint) (*model.Order, error)
	GetLastCheckoutDetails(userID uint) (*CheckoutDetails, error)
	CancelOrder(userID, orderID uint) (*model.Order, error)
	GetAllOrders(filter repository.OrderFilter) ([]model.Order, error)
	UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error)
	DeleteOrder(orderID uint) error
}

type orderService struct {
	orderRepo repository.OrderRepository
	cartRepo  repository.CartRepository
	notifier  OrderNotifier
	db        *gorm.DB
}

// NewOrderService wires the checkout pipeline. notifier may be nil when no
// push channel is configured.
func NewOrderService(
	orderRepo repository.OrderRepository,
	cartRepo repository.CartRepository,
	notifier OrderNotifier,
	db *gorm.DB,
) OrderService {
	return &orderService{
		orderRepo: orderRepo,
		cartRepo:  cartRepo,
		notifier:  notifier,
		db:        db,
	}
}

// CreateOrderFromCart turns the user's cart into an order in one
// transaction: products are locked, stock checked and decremented, line
// items snapshotted at current prices, and the cart cleared. Any failure
// rolls the whole checkout back.
func (s *orderService) CreateOrderFromCart(userID uint, details CheckoutDetails) (*model.Order, error) {
	logger.Info("Creating order from cart", map[string]interface{}{
		"user_id": userID,
		"city":    details.City,
	})

	if fields := details.Validate(); len(fields) > 0 {
		logger.Warn("Checkout details validation failed", map[string]interface{}{
			"user_id": userID,
			"fields":  fields,
		})
		return nil, ErrInvalidCheckoutDetails
	}

	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch cart items", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	if len(cartItems) == 0 {
		logger.Warn("Cannot create order: cart is empty", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrEmptyCart
	}

	logger.Debug("Processing cart items for order", map[string]interface{}{
		"user_id":    userID,
		"item_count": len(cartItems),
	})

	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order creation, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"user_id": userID,
			})
		}
	}()

	var (
		totalPrice float64
		orderItems []model.OrderItem
	)

	for _, cartItem := range cartItems {
		var product model.Product
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&product, cartItem.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				// Product removed after it was carted: skip the line
				logger.Warn("Skipping cart line for removed product", map[string]interface{}{
					"user_id":    userID,
					"product_id": cartItem.ProductID,
				})
				continue
			}
			tx.Rollback()
			logger.Error("Failed to fetch product during order creation", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": cartItem.ProductID,
			})
			return nil, err
		}

		if product.StockQuantity < cartItem.Quantity {
			tx.Rollback()
			logger.Warn("Order creation failed: insufficient product stock", map[string]interface{}{
				"user_id":    userID,
				"product_id": cartItem.ProductID,
				"requested":  cartItem.Quantity,
				"available":  product.StockQuantity,
			})
			return nil, ErrInsufficientStock
		}

		subtotal := product.Price * float64(cartItem.Quantity)
		orderItems = append(orderItems, model.OrderItem{
			ProductID: cartItem.ProductID,
			Name:      product.Name,
			Quantity:  cartItem.Quantity,
			Price:     product.Price,
			Subtotal:  subtotal,
		})
		totalPrice += subtotal

		if err := tx.Model(&model.Product{}).
			Where("id = ?", product.ID).
			Update("stock_quantity", gorm.Expr("stock_quantity - ?", cartItem.Quantity)).Error; err != nil {
			tx.Rollback()
			logger.Error("Failed to update product stock", err, map[string]interface{}{
				"user_id":    userID,
				"product_id": product.ID,
			})
			return nil, err
		}
	}

	if len(orderItems) == 0 {
		tx.Rollback()
		logger.Warn("Cannot create order: no purchasable items left in cart", map[string]interface{}{
			"user_id": userID,
		})
		return nil, ErrEmptyCart
	}

	country := details.Country
	if country == "" {
		country = "Kenya"
	}

	order := &model.Order{
		UserID:        userID,
		TotalPrice:    totalPrice,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusPending,
		PaymentMethod: "mobile",
		Name:          details.Name,
		Email:         details.Email,
		PhoneNumber:   details.PhoneNumber,
		Address:       details.Address,
		City:          details.City,
		PostalCode:    details.PostalCode,
		Country:       country,
		OrderItems:    orderItems,
	}

	if err := tx.Create(order).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to create order", err, map[string]interface{}{
			"user_id":     userID,
			"total_price": totalPrice,
		})
		return nil, err
	}

	if err := tx.Where("user_id = ?", userID).Delete(&model.CartItem{}).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to clear cart after order creation", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": order.ID,
		})
		return nil, err
	}

	logger.Info("Order created successfully", map[string]interface{}{
		"user_id":     userID,
		"order_id":    order.ID,
		"total_price": totalPrice,
		"item_count":  len(orderItems),
	})

	return s.orderRepo.FindByID(order.ID)
}

func (s *orderService) GetUserOrders(userID uint) ([]model.Order, error) {
	logger.Debug("Fetching user orders", map[string]interface{}{
		"user_id": userID,
	})

	orders, err := s.orderRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user orders", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("User orders fetched successfully", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

func (s *orderService) GetOrderByID(userID, orderID uint) (*model.Order, error) {
	logger.Debug("Fetching order by ID", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order not found", map[string]interface{}{
				"user_id":  userID,
				"order_id": orderID,
			})
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch order", err, map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
		})
		return nil, err
	}

	// Ownership mismatch reads as not-found so order IDs can't be probed
	if order.UserID != userID {
		logger.Warn("Order access denied: ownership mismatch", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"owner_id": order.UserID,
		})
		return nil, ErrOrderNotFound
	}

	return order, nil
}

// GetLastCheckoutDetails returns shipping details from the user's most
// recent order so the checkout form can be prefilled. A user with no
// orders gets ErrOrderNotFound.
func (s *orderService) GetLastCheckoutDetails(userID uint) (*CheckoutDetails, error) {
	order, err := s.orderRepo.FindLatestByUserID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch latest order for prefill", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	return &CheckoutDetails{
		Name:        order.Name,
		Email:       order.Email,
		PhoneNumber: order.PhoneNumber,
		Address:     order.Address,
		City:        order.City,
		PostalCode:  order.PostalCode,
		Country:     order.Country,
	}, nil
}

// CancelOrder lets the owner cancel an order that has not shipped yet.
// Stock reserved by the order is returned to the catalog.
func (s *orderService) CancelOrder(userID, orderID uint) (*model.Order, error) {
	logger.Info("Cancelling order", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})

	order, err := s.GetOrderByID(userID, orderID)
	if err != nil {
		return nil, err
	}

	if !order.Cancellable() {
		logger.Warn("Order cancellation rejected: not pending", map[string]interface{}{
			"user_id":  userID,
			"order_id": orderID,
			"status":   order.Status,
		})
		return nil, ErrOrderNotCancellable
	}

	if err := s.transitionOrder(order, model.OrderStatusCanceled); err != nil {
		return nil, err
	}

	logger.Info("Order cancelled successfully", map[string]interface{}{
		"user_id":  userID,
		"order_id": orderID,
	})
	return s.orderRepo.FindByID(orderID)
}

func (s *orderService) GetAllOrders(filter repository.OrderFilter) ([]model.Order, error) {
	logger.Debug("Fetching all orders", map[string]interface{}{
		"status": filter.Status,
	})

	if filter.Status != "" && !model.ValidOrderStatus(filter.Status) {
		return nil, ErrInvalidOrderStatus
	}

	orders, err := s.orderRepo.FindAll(filter)
	if err != nil {
		logger.Error("Failed to fetch all orders", err, map[string]interface{}{
			"status": filter.Status,
		})
		return nil, err
	}

	logger.Info("Orders fetched successfully", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

// UpdateOrderStatus moves an order to a new status, enforcing the
// transition table. Cancelling restocks the order's items.
func (s *orderService) UpdateOrderStatus(orderID uint, status model.OrderStatus) (*model.Order, error) {
	logger.Info("Updating order status", map[string]interface{}{
		"order_id":   orderID,
		"new_status": status,
	})

	if !model.ValidOrderStatus(status) {
		logger.Warn("Unknown order status requested", map[string]interface{}{
			"order_id": orderID,
			"status":   status,
		})
		return nil, ErrInvalidOrderStatus
	}

	order, err := s.orderRepo.FindByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		logger.Error("Failed to fetch order for status update", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}

	if !order.Status.CanTransitionTo(status) {
		logger.Warn("Order status transition rejected", map[string]interface{}{
			"order_id": orderID,
			"from":     order.Status,
			"to":       status,
		})
		return nil, ErrInvalidStatusTransition
	}

	if err := s.transitionOrder(order, status); err != nil {
		return nil, err
	}

	logger.Info("Order status updated successfully", map[string]interface{}{
		"order_id": orderID,
		"status":   status,
	})
	return s.orderRepo.FindByID(orderID)
}

// transitionOrder applies a validated status change, restocking items when
// the order is cancelled, and notifies the owner.
func (s *orderService) transitionOrder(order *model.Order, status model.OrderStatus) error {
	tx := s.db.Begin()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if status == model.OrderStatusCanceled {
		for _, item := range order.OrderItems {
			if err := tx.Model(&model.Product{}).
				Where("id = ?", item.ProductID).
				Update("stock_quantity", gorm.Expr("stock_quantity + ?", item.Quantity)).Error; err != nil {
				tx.Rollback()
				logger.Error("Failed to restock product on cancellation", err, map[string]interface{}{
					"order_id":   order.ID,
					"product_id": item.ProductID,
				})
				return err
			}
		}
	}

	if err := tx.Model(&model.Order{}).Where("id = ?", order.ID).
		Update("status", status).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to update order status", err, map[string]interface{}{
			"order_id": order.ID,
			"status":   status,
		})
		return err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit status transition", err, map[string]interface{}{
			"order_id": order.ID,
		})
		return err
	}

	if s.notifier != nil {
		s.notifier.NotifyOrderStatus(order.UserID, order.ID, status)
	}
	return nil
}

// DeleteOrder removes an order from the back office. Stock is not
// returned; cancel first if the reservation should be released.
func (s *orderService) DeleteOrder(orderID uint) error {
	logger.Info("Deleting order", map[string]interface{}{
		"order_id": orderID,
	})

	if _, err := s.orderRepo.FindByID(orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrOrderNotFound
		}
		return err
	}

	if err := s.orderRepo.Delete(orderID); err != nil {
		logger.Error("Failed to delete order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return err
	}

	logger.Info("Order deleted successfully", map[string]interface{}{
		"order_id": orderID,
	})
	return nil
}
