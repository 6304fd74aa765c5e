package service

import (
	"errors"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrEmptyCart        = errors.New("cart is empty")
)

// CartSummary is a user's cart with line items resolved against the live
// catalog. Items whose product has been removed are pruned, never surfaced.
type CartSummary struct {
	Items      []model.CartItem `json:"items"`
	TotalItems int              `json:"total_items"`
	TotalPrice float64          `json:"total_price"`
}

type CartService interface {
	GetUserCart(userID uint) (*CartSummary, error)
	AddToCart(userID, productID uint, quantity int) error
	SetQuantity(userID, productID uint, quantity int) error
	RemoveFromCart(userID, productID uint) error
	ClearCart(userID uint) error
}

type cartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) GetUserCart(userID uint) (*CartSummary, error) {
	logger.Debug("Fetching user cart", map[string]interface{}{
		"user_id": userID,
	})

	cartItems, err := s.cartRepo.FindByUserID(userID)
	if err != nil {
		logger.Error("Failed to fetch user cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	summary := &CartSummary{Items: make([]model.CartItem, 0, len(cartItems))}
	for _, item := range cartItems {
		// Product deleted since it was added: drop the stale row
		if item.Product.ID == 0 {
			logger.Warn("Pruning cart item for removed product", map[string]interface{}{
				"user_id":      userID,
				"cart_item_id": item.ID,
				"product_id":   item.ProductID,
			})
			if err := s.cartRepo.Delete(item.ID); err != nil {
				logger.Error("Failed to prune stale cart item", err, map[string]interface{}{
					"cart_item_id": item.ID,
				})
			}
			continue
		}

		summary.Items = append(summary.Items, item)
		summary.TotalItems += item.Quantity
		summary.TotalPrice += item.Subtotal()
	}

	logger.Info("User cart fetched successfully", map[string]interface{}{
		"user_id":     userID,
		"line_count":  len(summary.Items),
		"total_items": summary.TotalItems,
		"total_price": summary.TotalPrice,
	})
	return summary, nil
}

// AddToCart adds quantity of a product to the cart, merging with any
// existing line for the same product.
func (s *cartService) AddToCart(userID, productID uint, quantity int) error {
	if quantity <= 0 {
		quantity = 1
	}

	logger.Info("Adding item to cart", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	existingItem, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to check existing cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	requestedQuantity := quantity
	if existingItem != nil {
		requestedQuantity = existingItem.Quantity + quantity
	}

	if !product.InStock(requestedQuantity) {
		logger.Warn("Cannot add to cart: insufficient stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  requestedQuantity,
			"available":  product.StockQuantity,
		})
		return ErrInsufficientStock
	}

	if existingItem != nil {
		logger.Debug("Merging into existing cart item", map[string]interface{}{
			"cart_item_id": existingItem.ID,
			"old_qty":      existingItem.Quantity,
			"new_qty":      requestedQuantity,
		})
		existingItem.Quantity = requestedQuantity
		if err := s.cartRepo.Update(existingItem); err != nil {
			logger.Error("Failed to update cart item", err, map[string]interface{}{
				"cart_item_id": existingItem.ID,
			})
			return err
		}
		return nil
	}

	cartItem := &model.CartItem{
		UserID:    userID,
		ProductID: productID,
		Quantity:  quantity,
	}

	if err := s.cartRepo.Create(cartItem); err != nil {
		logger.Error("Failed to create cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	logger.Info("Cart item added successfully", map[string]interface{}{
		"cart_item_id": cartItem.ID,
	})
	return nil
}

// SetQuantity pins the cart line for a product to an absolute quantity.
// Zero or negative removes the line. Setting a quantity for a product not
// yet in the cart creates the line.
func (s *cartService) SetQuantity(userID, productID uint, quantity int) error {
	logger.Info("Setting cart item quantity", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
		"quantity":   quantity,
	})

	if quantity <= 0 {
		return s.RemoveFromCart(userID, productID)
	}

	product, err := s.productRepo.FindByID(productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot set quantity: product not found", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return ErrProductNotFound
		}
		logger.Error("Failed to fetch product", err, map[string]interface{}{
			"product_id": productID,
		})
		return err
	}

	if !product.InStock(quantity) {
		logger.Warn("Cannot set quantity: insufficient stock", map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
			"requested":  quantity,
			"available":  product.StockQuantity,
		})
		return ErrInsufficientStock
	}

	cartItem, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cartItem = &model.CartItem{
				UserID:    userID,
				ProductID: productID,
				Quantity:  quantity,
			}
			if err := s.cartRepo.Create(cartItem); err != nil {
				logger.Error("Failed to create cart item from set quantity", err, map[string]interface{}{
					"user_id":    userID,
					"product_id": productID,
				})
				return err
			}
			return nil
		}
		logger.Error("Failed to fetch cart item", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	cartItem.Quantity = quantity
	if err := s.cartRepo.Update(cartItem); err != nil {
		logger.Error("Failed to update cart item quantity", err, map[string]interface{}{
			"cart_item_id": cartItem.ID,
		})
		return err
	}

	logger.Info("Cart item quantity set", map[string]interface{}{
		"cart_item_id": cartItem.ID,
		"quantity":     quantity,
	})
	return nil
}

// RemoveFromCart drops a product from the cart. Removing a product that is
// not in the cart succeeds without effect.
func (s *cartService) RemoveFromCart(userID, productID uint) error {
	logger.Info("Removing cart item", map[string]interface{}{
		"user_id":    userID,
		"product_id": productID,
	})

	cartItem, err := s.cartRepo.FindByUserAndProduct(userID, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("Cart item already absent", map[string]interface{}{
				"user_id":    userID,
				"product_id": productID,
			})
			return nil
		}
		logger.Error("Failed to fetch cart item for removal", err, map[string]interface{}{
			"user_id":    userID,
			"product_id": productID,
		})
		return err
	}

	if err := s.cartRepo.Delete(cartItem.ID); err != nil {
		logger.Error("Failed to delete cart item", err, map[string]interface{}{
			"cart_item_id": cartItem.ID,
		})
		return err
	}

	logger.Info("Cart item removed", map[string]interface{}{
		"cart_item_id": cartItem.ID,
	})
	return nil
}

func (s *cartService) ClearCart(userID uint) error {
	logger.Info("Clearing user cart", map[string]interface{}{
		"user_id": userID,
	})

	if err := s.cartRepo.DeleteByUserID(userID); err != nil {
		logger.Error("Failed to clear cart", err, map[string]interface{}{
			"user_id": userID,
		})
		return err
	}

	logger.Info("User cart cleared", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}
