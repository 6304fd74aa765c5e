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

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type ProductController struct {
	productService service.ProductService
}

func NewProductController(productService service.ProductService) *ProductController {
	return &ProductController{productService: productService}
}

type CreateProductRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category" binding:"required"`
	Price         float64  `json:"price" binding:"required"`
	Unit          string   `json:"unit"`
	StockQuantity int      `json:"stock_quantity"`
	ImageURL      string   `json:"image_url"`
	Tags          []string `json:"tags"`
}

type UpdateProductRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category" binding:"required"`
	Price         float64  `json:"price" binding:"required"`
	Unit          string   `json:"unit"`
	StockQuantity int      `json:"stock_quantity"`
	ImageURL      string   `json:"image_url"`
	Tags          []string `json:"tags"`
}

type RestockRequest struct {
	Quantity int `json:"quantity" binding:"required,min=1"`
}

// parseProductFilter reads catalog filters from the query string.
func parseProductFilter(c *gin.Context) repository.ProductFilter {
	filter := repository.ProductFilter{
		Category: c.Query("category"),
		Search:   c.Query("search"),
		Tag:      c.Query("tag"),
	}

	switch c.Query("sort") {
	case "price":
		filter.SortBy = repository.ProductSortPrice
	case "name":
		filter.SortBy = repository.ProductSortName
	default:
		filter.SortBy = repository.ProductSortCreatedAt
	}
	filter.SortAscending = c.Query("order") == "asc"

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

	return filter
}

// ListProducts returns the catalog with optional filters
// GET /api/v1/products
func (ctrl *ProductController) ListProducts(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	filter := parseProductFilter(c)
	products, err := ctrl.productService.GetAllProducts(filter)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			apperrors.NotFound(c, apperrors.CategoryNotFound, "Category not found")
			return
		}
		log.Error("Failed to list products", err, map[string]interface{}{
			"category": filter.Category,
			"search":   filter.Search,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list products")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"count":    len(products),
		"limit":    filter.Limit,
		"offset":   filter.Offset,
	})
}

// GetProduct returns a single product
// GET /api/v1/products/:id
func (ctrl *ProductController) GetProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	product, err := ctrl.productService.GetProductByID(uint(id))
	if err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to get product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "get product")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product": product,
	})
}

// ListCategories returns the distinct catalog categories
// GET /api/v1/products/categories
func (ctrl *ProductController) ListCategories(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	categories, err := ctrl.productService.ListCategories()
	if err != nil {
		log.Error("Failed to list categories", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list categories")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"categories": categories,
	})
}

// CreateProduct adds a product to the catalog (admin)
// POST /api/v1/admin/products
func (ctrl *ProductController) CreateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid create product request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the product details")
		return
	}

	product := &model.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		Unit:          req.Unit,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		Tags:          req.Tags,
	}

	if err := ctrl.productService.CreateProduct(product); err != nil {
		if errors.Is(err, service.ErrInvalidProductData) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Product price or stock is out of range")
			return
		}
		log.Error("Failed to create product", err, map[string]interface{}{
			"name": req.Name,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "create product")
		return
	}

	log.Info("Product created", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	c.JSON(http.StatusCreated, gin.H{
		"message": "Product created successfully",
		"product": product,
	})
}

// UpdateProduct replaces a product's catalog entry (admin)
// PUT /api/v1/admin/products/:id
func (ctrl *ProductController) UpdateProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid update product request", map[string]interface{}{
			"product_id": id,
			"error":      err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please check the product details")
		return
	}

	product := &model.Product{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Price:         req.Price,
		Unit:          req.Unit,
		StockQuantity: req.StockQuantity,
		ImageURL:      req.ImageURL,
		Tags:          req.Tags,
	}
	product.ID = uint(id)

	if err := ctrl.productService.UpdateProduct(product); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		if errors.Is(err, service.ErrInvalidProductData) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Product price or stock is out of range")
			return
		}
		log.Error("Failed to update product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update product")
		return
	}

	log.Info("Product updated", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product updated successfully",
		"product": product,
	})
}

// DeleteProduct removes a product from the catalog (admin)
// DELETE /api/v1/admin/products/:id
func (ctrl *ProductController) DeleteProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	if err := ctrl.productService.DeleteProduct(uint(id)); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		log.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "delete product")
		return
	}

	log.Info("Product deleted", map[string]interface{}{
		"product_id": id,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product deleted successfully",
	})
}

// RestockProduct adds stock to a product (admin)
// POST /api/v1/admin/products/:id/restock
func (ctrl *ProductController) RestockProduct(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid product ID")
		return
	}

	var req RestockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Restock quantity must be at least 1")
		return
	}

	if err := ctrl.productService.RestockProduct(uint(id), req.Quantity); err != nil {
		if errors.Is(err, service.ErrProductNotFound) {
			apperrors.NotFound(c, apperrors.ProductNotFound, "Product not found")
			return
		}
		if errors.Is(err, service.ErrInvalidProductData) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidRange, "Restock would exceed the stock limit")
			return
		}
		log.Error("Failed to restock product", err, map[string]interface{}{
			"product_id": id,
			"quantity":   req.Quantity,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "restock product")
		return
	}

	log.Info("Product restocked", map[string]interface{}{
		"product_id": id,
		"quantity":   req.Quantity,
	})

	c.JSON(http.StatusOK, gin.H{
		"message": "Product restocked successfully",
	})
}
