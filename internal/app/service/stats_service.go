package service

import (
	"bytes"
	"errors"
	"fmt"
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"
)

// DashboardStats is the back-office landing summary.
type DashboardStats struct {
	TotalUsers      int64   `json:"total_users"`
	TotalProducts   int64   `json:"total_products"`
	TotalOrders     int64   `json:"total_orders"`
	PendingOrders   int64   `json:"pending_orders"`
	ShippedOrders   int64   `json:"shipped_orders"`
	CompletedOrders int64   `json:"completed_orders"`
	CanceledOrders  int64   `json:"canceled_orders"`
	Revenue30Days   float64 `json:"revenue_30_days"`
}

// RevenuePoint is one day of paid order revenue.
type RevenuePoint struct {
	Date    string  `json:"date"`
	Orders  int     `json:"orders"`
	Revenue float64 `json:"revenue"`
}

type StatsService interface {
	GetDashboard() (*DashboardStats, error)
	GetRevenue(days int) ([]RevenuePoint, error)
	ListUsers(limit, offset int) ([]model.User, int64, error)
	DeleteUser(actorID, userID uint) error
	ExportOrders(filter repository.OrderFilter) ([]byte, error)
}

type statsService struct {
	userRepo    repository.UserRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
}

func NewStatsService(
	userRepo repository.UserRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
) StatsService {
	return &statsService{
		userRepo:    userRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
	}
}

func (s *statsService) GetDashboard() (*DashboardStats, error) {
	logger.Debug("Building dashboard stats", nil)

	stats := &DashboardStats{}

	var err error
	if stats.TotalUsers, err = s.userRepo.Count(); err != nil {
		return nil, err
	}
	if stats.TotalProducts, err = s.productRepo.Count(); err != nil {
		return nil, err
	}
	if stats.TotalOrders, err = s.orderRepo.Count(); err != nil {
		return nil, err
	}
	if stats.PendingOrders, err = s.orderRepo.CountByStatus(model.OrderStatusPending); err != nil {
		return nil, err
	}
	if stats.ShippedOrders, err = s.orderRepo.CountByStatus(model.OrderStatusShipped); err != nil {
		return nil, err
	}
	if stats.CompletedOrders, err = s.orderRepo.CountByStatus(model.OrderStatusCompleted); err != nil {
		return nil, err
	}
	if stats.CanceledOrders, err = s.orderRepo.CountByStatus(model.OrderStatusCanceled); err != nil {
		return nil, err
	}

	points, err := s.GetRevenue(30)
	if err != nil {
		return nil, err
	}
	total := decimal.Zero
	for _, p := range points {
		total = total.Add(decimal.NewFromFloat(p.Revenue))
	}
	stats.Revenue30Days, _ = total.Round(2).Float64()

	logger.Info("Dashboard stats built", map[string]interface{}{
		"total_orders":    stats.TotalOrders,
		"revenue_30_days": stats.Revenue30Days,
	})
	return stats, nil
}

// GetRevenue aggregates paid order totals per day over the trailing
// window. Sums are carried as decimals so float drift can't creep into
// the reported figures.
func (s *statsService) GetRevenue(days int) ([]RevenuePoint, error) {
	if days <= 0 {
		days = 30
	}

	since := time.Now().AddDate(0, 0, -days).Truncate(24 * time.Hour)

	logger.Debug("Aggregating revenue", map[string]interface{}{
		"days":  days,
		"since": since,
	})

	orders, err := s.orderRepo.FindPaidSince(since)
	if err != nil {
		logger.Error("Failed to fetch paid orders for revenue", err, map[string]interface{}{
			"days": days,
		})
		return nil, err
	}

	type bucket struct {
		orders int
		total  decimal.Decimal
	}
	buckets := make(map[string]*bucket)
	var dates []string

	for _, order := range orders {
		if order.PaidAt == nil {
			continue
		}
		date := order.PaidAt.Format("2006-01-02")
		b, ok := buckets[date]
		if !ok {
			b = &bucket{total: decimal.Zero}
			buckets[date] = b
			dates = append(dates, date)
		}
		b.orders++
		b.total = b.total.Add(decimal.NewFromFloat(order.TotalPrice))
	}

	points := make([]RevenuePoint, 0, len(dates))
	for _, date := range dates {
		b := buckets[date]
		revenue, _ := b.total.Round(2).Float64()
		points = append(points, RevenuePoint{
			Date:    date,
			Orders:  b.orders,
			Revenue: revenue,
		})
	}

	logger.Info("Revenue aggregated", map[string]interface{}{
		"days":   days,
		"points": len(points),
	})
	return points, nil
}

func (s *statsService) ListUsers(limit, offset int) ([]model.User, int64, error) {
	logger.Debug("Listing users for back office", map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	})

	users, err := s.userRepo.FindAll(limit, offset)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.userRepo.Count()
	if err != nil {
		return nil, 0, err
	}

	return users, total, nil
}

// DeleteUser removes an account from the back office. Admins cannot delete
// themselves.
func (s *statsService) DeleteUser(actorID, userID uint) error {
	logger.Info("Deleting user from back office", map[string]interface{}{
		"actor_id": actorID,
		"user_id":  userID,
	})

	if actorID == userID {
		logger.Warn("Admin attempted to delete own account", map[string]interface{}{
			"user_id": userID,
		})
		return ErrUserNotFound
	}

	if _, err := s.userRepo.FindByID(userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	return s.userRepo.Delete(userID)
}

// ExportOrders renders the order book as an xlsx workbook for back-office
// reporting.
func (s *statsService) ExportOrders(filter repository.OrderFilter) ([]byte, error) {
	logger.Info("Exporting orders to spreadsheet", map[string]interface{}{
		"status": filter.Status,
	})

	orders, err := s.orderRepo.FindAll(filter)
	if err != nil {
		logger.Error("Failed to fetch orders for export", err, nil)
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Orders"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Order ID", "Customer", "Email", "Phone", "City", "Status", "Payment", "Receipt", "Total (Ksh)", "Placed At"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, order := range orders {
		values := []interface{}{
			order.ID,
			order.Name,
			order.Email,
			order.PhoneNumber,
			order.City,
			string(order.Status),
			string(order.PaymentStatus),
			order.Receipt,
			order.TotalPrice,
			order.CreatedAt.Format(time.RFC3339),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		logger.Error("Failed to write spreadsheet", err, nil)
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	logger.Info("Orders exported", map[string]interface{}{
		"count": len(orders),
	})
	return buf.Bytes(), nil
}
