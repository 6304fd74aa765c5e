package repository

import (
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"gorm.io/gorm"
)

type OrderFilter struct {
	Status model.OrderStatus
	Limit  int
	Offset int
}

type OrderRepository interface {
	Create(order *model.Order) error
	FindByID(id uint) (*model.Order, error)
	FindByUserID(userID uint) ([]model.Order, error)
	FindLatestByUserID(userID uint) (*model.Order, error)
	FindByCheckoutRequestID(checkoutRequestID string) (*model.Order, error)
	FindAll(filter OrderFilter) ([]model.Order, error)
	FindPaidSince(since time.Time) ([]model.Order, error)
	FindStalePending(olderThan time.Time) ([]model.Order, error)
	Update(order *model.Order) error
	UpdatePaymentStatus(id uint, status model.PaymentStatus) error
	Delete(id uint) error
	Count() (int64, error)
	CountByStatus(status model.OrderStatus) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) preloadOrder() *gorm.DB {
	return r.db.Preload("OrderItems", func(db *gorm.DB) *gorm.DB {
		return db.Preload("Product")
	}).Preload("User")
}

func (r *orderRepository) Create(order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"user_id":     order.UserID,
		"total_price": order.TotalPrice,
		"item_count":  len(order.OrderItems),
	})

	if err := r.db.Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"user_id":     order.UserID,
			"total_price": order.TotalPrice,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":    order.ID,
		"user_id":     order.UserID,
		"total_price": order.TotalPrice,
	})
	return nil
}

func (r *orderRepository) FindByID(id uint) (*model.Order, error) {
	logger.Debug("Finding order by ID in database", map[string]interface{}{
		"order_id": id,
	})

	var order model.Order
	if err := r.preloadOrder().First(&order, id).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})
	return &order, nil
}

func (r *orderRepository) FindByUserID(userID uint) ([]model.Order, error) {
	logger.Debug("Finding orders by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var orders []model.Order
	if err := r.preloadOrder().Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find orders by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Orders found by user ID in database", map[string]interface{}{
		"user_id": userID,
		"count":   len(orders),
	})
	return orders, nil
}

// FindLatestByUserID returns the user's most recent order. Used to prefill
// shipping details at checkout.
func (r *orderRepository) FindLatestByUserID(userID uint) (*model.Order, error) {
	logger.Debug("Finding latest order by user ID in database", map[string]interface{}{
		"user_id": userID,
	})

	var order model.Order
	if err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&order).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find latest order by user ID in database", err, map[string]interface{}{
				"user_id": userID,
			})
		}
		return nil, err
	}

	return &order, nil
}

func (r *orderRepository) FindByCheckoutRequestID(checkoutRequestID string) (*model.Order, error) {
	logger.Debug("Finding order by checkout request ID in database", map[string]interface{}{
		"checkout_request_id": checkoutRequestID,
	})

	var order model.Order
	if err := r.preloadOrder().
		Where("checkout_request_id = ?", checkoutRequestID).
		First(&order).Error; err != nil {
		if err != gorm.ErrRecordNotFound {
			logger.Error("Failed to find order by checkout request ID in database", err, map[string]interface{}{
				"checkout_request_id": checkoutRequestID,
			})
		}
		return nil, err
	}

	logger.Debug("Order found by checkout request ID in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
	})
	return &order, nil
}

func (r *orderRepository) FindAll(filter OrderFilter) ([]model.Order, error) {
	logger.Debug("Finding all orders in database", map[string]interface{}{
		"status": filter.Status,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})

	query := r.preloadOrder().Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var orders []model.Order
	if err := query.Find(&orders).Error; err != nil {
		logger.Error("Failed to find all orders in database", err, map[string]interface{}{
			"status": filter.Status,
		})
		return nil, err
	}

	logger.Debug("Orders found in database", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

// FindPaidSince returns orders paid on or after since, oldest first.
func (r *orderRepository) FindPaidSince(since time.Time) ([]model.Order, error) {
	logger.Debug("Finding paid orders since date in database", map[string]interface{}{
		"since": since,
	})

	var orders []model.Order
	if err := r.db.
		Where("payment_status = ? AND paid_at >= ?", model.PaymentStatusCompleted, since).
		Order("paid_at ASC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find paid orders since date in database", err, map[string]interface{}{
			"since": since,
		})
		return nil, err
	}

	logger.Debug("Paid orders found since date in database", map[string]interface{}{
		"since": since,
		"count": len(orders),
	})
	return orders, nil
}

// FindStalePending returns orders still awaiting payment that were created
// before olderThan. The payment sweep cancels these.
func (r *orderRepository) FindStalePending(olderThan time.Time) ([]model.Order, error) {
	logger.Debug("Finding stale pending orders in database", map[string]interface{}{
		"older_than": olderThan,
	})

	var orders []model.Order
	if err := r.preloadOrder().
		Where("status = ? AND payment_status = ? AND created_at < ?",
			model.OrderStatusPending, model.PaymentStatusPending, olderThan).
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find stale pending orders in database", err, map[string]interface{}{
			"older_than": olderThan,
		})
		return nil, err
	}

	logger.Debug("Stale pending orders found in database", map[string]interface{}{
		"count": len(orders),
	})
	return orders, nil
}

func (r *orderRepository) Update(order *model.Order) error {
	logger.Debug("Updating order in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})

	if err := r.db.Save(order).Error; err != nil {
		logger.Error("Failed to update order in database", err, map[string]interface{}{
			"order_id": order.ID,
			"user_id":  order.UserID,
		})
		return err
	}

	logger.Debug("Order updated in database", map[string]interface{}{
		"order_id": order.ID,
		"user_id":  order.UserID,
		"status":   order.Status,
	})
	return nil
}

func (r *orderRepository) UpdatePaymentStatus(id uint, status model.PaymentStatus) error {
	logger.Debug("Updating order payment status in database", map[string]interface{}{
		"order_id":       id,
		"payment_status": status,
	})

	if err := r.db.Model(&model.Order{}).Where("id = ?", id).
		Update("payment_status", status).Error; err != nil {
		logger.Error("Failed to update order payment status in database", err, map[string]interface{}{
			"order_id":       id,
			"payment_status": status,
		})
		return err
	}

	logger.Debug("Order payment status updated in database", map[string]interface{}{
		"order_id":       id,
		"payment_status": status,
	})
	return nil
}

// Delete removes the order and its line items for good. Back-office
// deletion is a hard removal, not an archive.
func (r *orderRepository) Delete(id uint) error {
	logger.Debug("Deleting order from database", map[string]interface{}{
		"order_id": id,
	})

	tx := r.db.Begin()
	defer func() {
		if rec := recover(); rec != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Unscoped().Where("order_id = ?", id).
		Delete(&model.OrderItem{}).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to delete order items from database", err, map[string]interface{}{
			"order_id": id,
		})
		return err
	}

	if err := tx.Unscoped().Delete(&model.Order{}, id).Error; err != nil {
		tx.Rollback()
		logger.Error("Failed to delete order from database", err, map[string]interface{}{
			"order_id": id,
		})
		return err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order deletion", err, map[string]interface{}{
			"order_id": id,
		})
		return err
	}

	logger.Debug("Order deleted from database", map[string]interface{}{
		"order_id": id,
	})
	return nil
}

func (r *orderRepository) Count() (int64, error) {
	var count int64
	if err := r.db.Model(&model.Order{}).Count(&count).Error; err != nil {
		logger.Error("Failed to count orders in database", err, nil)
		return 0, err
	}
	return count, nil
}

func (r *orderRepository) CountByStatus(status model.OrderStatus) (int64, error) {
	var count int64
	if err := r.db.Model(&model.Order{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		logger.Error("Failed to count orders by status in database", err, map[string]interface{}{
			"status": status,
		})
		return 0, err
	}
	return count, nil
}
