package controller

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/internal/app/service"
	apperrors "github.com/freshlyhq/freshly-backend/internal/errors"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/gin-gonic/gin"
)

// AdminController serves the back-office dashboard and user management.
type AdminController struct {
	statsService service.StatsService
}

func NewAdminController(statsService service.StatsService) *AdminController {
	return &AdminController{statsService: statsService}
}

// GetDashboard returns store-wide counters and recent revenue
// GET /api/v1/admin/dashboard
func (ctrl *AdminController) GetDashboard(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	stats, err := ctrl.statsService.GetDashboard()
	if err != nil {
		log.Error("Failed to build dashboard", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get dashboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats": stats,
	})
}

// GetRevenue returns daily revenue buckets for the requested window
// GET /api/v1/admin/revenue?days=30
func (ctrl *AdminController) GetRevenue(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	days, err := strconv.Atoi(c.DefaultQuery("days", "30"))
	if err != nil || days <= 0 || days > 365 {
		days = 30
	}

	points, err := ctrl.statsService.GetRevenue(days)
	if err != nil {
		log.Error("Failed to build revenue report", err, map[string]interface{}{
			"days": days,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get revenue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"days":    days,
		"revenue": points,
	})
}

// ListUsers returns registered customers
// GET /api/v1/admin/users
func (ctrl *AdminController) ListUsers(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	if err != nil || limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	users, total, err := ctrl.statsService.ListUsers(limit, offset)
	if err != nil {
		log.Error("Failed to list users", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}

// DeleteUser removes a customer account. Admins cannot delete themselves.
// DELETE /api/v1/admin/users/:id
func (ctrl *AdminController) DeleteUser(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	actorID, exists := middleware.GetUserID(c)
	if !exists {
		apperrors.Unauthorized(c, "You need to be logged in")
		return
	}

	userID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid user ID")
		return
	}

	if err := ctrl.statsService.DeleteUser(actorID, uint(userID)); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			apperrors.NotFound(c, apperrors.ResourceNotFound, "User not found")
			return
		}
		log.Error("Failed to delete user", err, map[string]interface{}{
			"user_id": userID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete user")
		return
	}

	log.Info("User deleted", map[string]interface{}{
		"actor_id": actorID,
		"user_id":  userID,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "User deleted",
	})
}

// ExportOrders streams an xlsx export of orders
// GET /api/v1/admin/orders/export?status=completed
func (ctrl *AdminController) ExportOrders(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
	}
	if filter.Status != "" && !model.ValidOrderStatus(filter.Status) {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Unknown order status")
		return
	}

	data, err := ctrl.statsService.ExportOrders(filter)
	if err != nil {
		log.Error("Failed to export orders", err, map[string]interface{}{
			"status": filter.Status,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "export orders")
		return
	}

	filename := fmt.Sprintf("orders-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
