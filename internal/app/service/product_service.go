package service

import (
	"errors"
	"strings"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCategoryNotFound   = errors.New("category not found")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInvalidProductData = errors.New("invalid product data")
)

type ProductService interface {
	CreateProduct(product *model.Product) error
	GetAllProducts(filter repository.ProductFilter) ([]model.Product, error)
	GetProductByID(id uint) (*model.Product, error)
	GetProductsByCategory(category string) ([]model.Product, error)
	ListCategories() ([]string, error)
	UpdateProduct(product *model.Product) error
	DeleteProduct(id uint) error
	RestockProduct(id uint, quantity int) error
}

type productService struct {
	productRepo repository.ProductRepository
}

func NewProductService(productRepo repository.ProductRepository) ProductService {
	return &productService{productRepo: productRepo}
}

// validateProduct enforces catalog bounds: price within the allowed band,
// stock non-negative and capped, name present.
func validateProduct(product *model.Product) error {
	if strings.TrimSpace(product.Name) == "" {
		return ErrInvalidProductData
	}
	if product.Price < model.MinProductPrice || product.Price > model.MaxProductPrice {
		return ErrInvalidProductData
	}
	if product.StockQuantity < model.MinStock || product.StockQuantity > model.MaxStock {
		return ErrInvalidProductData
	}
	return nil
}

func (s *productService) CreateProduct(product *model.Product) error {
	logger.Info("Creating product", map[string]interface{}{
		"name":     product.Name,
		"category": product.Category,
		"price":    product.Price,
		"stock":    product.StockQuantity,
	})

	if err := validateProduct(product); err != nil {
		logger.Warn("Product validation failed", map[string]interface{}{
			"name":  product.Name,
			"price": product.Price,
			"stock": product.StockQuantity,
		})
		return err
	}

	if err := s.productRepo.Create(product); err != nil {
		logger.Error("Failed to create product", err, map[string]interface{}{
			"name": product.Name,
		})
		return err
	}

	logger.Info("Product created successfully", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})
	return nil
}

func (s *productService) GetAllProducts(filter repository.ProductFilter) ([]model.Product, error) {
	logger.Debug("Fetching products", map[string]interface{}{
		"category": filter.Category,
		"search":   filter.Search,
	})

	// Filtering on a category nobody stocks is a not-found, not an
	// empty result.
	if filter.Category != "" {
		known, err := s.categoryExists(filter.Category)
		if err != nil {
			return nil, err
		}
		if !known {
			logger.Warn("Category not found", map[string]interface{}{
				"category": filter.Category,
			})
			return nil, ErrCategoryNotFound
		}
	}

	products, err := s.productRepo.FindWithFilter(filter)
	if err != nil {
		logger.Error("Failed to fetch products", err, map[string]interface{}{
			"category": filter.Category,
			"search":   filter.Search,
		})
		return nil, err
	}

	logger.Info("Products fetched successfully", map[string]interface{}{
		"count": len(products),
	})
	return products, nil
}

func (s *productService) GetProductByID(id uint) (*model.Product, error) {
	logger.Debug("Fetching product by ID", map[string]interface{}{
		"product_id": id,
	})

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found", map[string]interface{}{
				"product_id": id,
			})
			return nil, ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": id,
		})
		return nil, err
	}

	return product, nil
}

func (s *productService) categoryExists(category string) (bool, error) {
	categories, err := s.productRepo.ListCategories()
	if err != nil {
		logger.Error("Failed to list categories", err, map[string]interface{}{
			"category": category,
		})
		return false, err
	}
	for _, c := range categories {
		if strings.EqualFold(c, category) {
			return true, nil
		}
	}
	return false, nil
}

func (s *productService) GetProductsByCategory(category string) ([]model.Product, error) {
	logger.Debug("Fetching products by category", map[string]interface{}{
		"category": category,
	})

	products, err := s.productRepo.FindByCategory(category)
	if err != nil {
		logger.Error("Failed to fetch products by category", err, map[string]interface{}{
			"category": category,
		})
		return nil, err
	}

	logger.Info("Products fetched by category", map[string]interface{}{
		"category": category,
		"count":    len(products),
	})
	return products, nil
}

func (s *productService) ListCategories() ([]string, error) {
	categories, err := s.productRepo.ListCategories()
	if err != nil {
		logger.Error("Failed to list categories", err, nil)
		return nil, err
	}
	return categories, nil
}

func (s *productService) UpdateProduct(product *model.Product) error {
	logger.Info("Updating product", map[string]interface{}{
		"product_id": product.ID,
		"name":       product.Name,
	})

	if err := validateProduct(product); err != nil {
		logger.Warn("Product validation failed on update", map[string]interface{}{
			"product_id": product.ID,
			"price":      product.Price,
			"stock":      product.StockQuantity,
		})
		return err
	}

	if _, err := s.productRepo.FindByID(product.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found for update", map[string]interface{}{
				"product_id": product.ID,
			})
			return ErrProductNotFound
		}
		return err
	}

	if err := s.productRepo.Update(product); err != nil {
		logger.Error("Failed to update product", err, map[string]interface{}{
			"product_id": product.ID,
		})
		return err
	}

	logger.Info("Product updated successfully", map[string]interface{}{
		"product_id": product.ID,
	})
	return nil
}

func (s *productService) DeleteProduct(id uint) error {
	logger.Info("Deleting product", map[string]interface{}{
		"product_id": id,
	})

	if _, err := s.productRepo.FindByID(id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Product not found for deletion", map[string]interface{}{
				"product_id": id,
			})
			return ErrProductNotFound
		}
		return err
	}

	if err := s.productRepo.Delete(id); err != nil {
		logger.Error("Failed to delete product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product deleted successfully", map[string]interface{}{
		"product_id": id,
	})
	return nil
}

// RestockProduct increases stock by quantity, keeping within the cap.
func (s *productService) RestockProduct(id uint, quantity int) error {
	logger.Info("Restocking product", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})

	if quantity <= 0 {
		return ErrInvalidProductData
	}

	product, err := s.productRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	if product.StockQuantity+quantity > model.MaxStock {
		logger.Warn("Restock would exceed stock cap", map[string]interface{}{
			"product_id": id,
			"current":    product.StockQuantity,
			"quantity":   quantity,
		})
		return ErrInvalidProductData
	}

	if err := s.productRepo.UpdateStock(id, quantity); err != nil {
		logger.Error("Failed to restock product", err, map[string]interface{}{
			"product_id": id,
		})
		return err
	}

	logger.Info("Product restocked successfully", map[string]interface{}{
		"product_id": id,
		"quantity":   quantity,
	})
	return nil
}
