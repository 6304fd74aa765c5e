package service

import (
	"testing"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartServiceTest(t *testing.T) (CartService, *model.User, *model.Product, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := NewCartService(cartRepo, productRepo)

	user := &model.User{
		Email:        "shopper@example.com",
		PasswordHash: "hash",
		Name:         "Test Shopper",
		Role:         model.RoleUser,
	}
	testDB.Create(user)

	product := &model.Product{
		Name:          "Hass Avocado",
		Category:      "fruits",
		Price:         50,
		Unit:          "piece",
		StockQuantity: 10,
	}
	testDB.Create(product)

	return cartService, user, product, testDB
}

func TestCartService_GetUserCart(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	// Initially empty
	cart, err := cartService.GetUserCart(user.ID)
	assert.NoError(t, err)
	assert.Len(t, cart.Items, 0)
	assert.Zero(t, cart.TotalPrice)

	err = cartService.AddToCart(user.ID, product.ID, 2)
	require.NoError(t, err)

	cart, err = cartService.GetUserCart(user.ID)
	assert.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 2, cart.Items[0].Quantity)
	assert.Equal(t, 2, cart.TotalItems)
	assert.Equal(t, float64(100), cart.TotalPrice)
}

func TestCartService_GetUserCart_PrunesRemovedProducts(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))

	// Product removed from the catalog after it was carted
	require.NoError(t, testDB.Delete(&model.Product{}, product.ID).Error)

	cart, err := cartService.GetUserCart(user.ID)
	assert.NoError(t, err)
	assert.Empty(t, cart.Items)
	assert.Zero(t, cart.TotalPrice)

	// Stale row is gone, not just hidden
	var count int64
	testDB.Model(&model.CartItem{}).Where("user_id = ?", user.ID).Count(&count)
	assert.Zero(t, count)
}

func TestCartService_GetUserCart_Totals(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	other := &model.Product{Name: "Sukuma Wiki", Category: "vegetables", Price: 25, StockQuantity: 20}
	testDB.Create(other)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 4)) // 200
	require.NoError(t, cartService.AddToCart(user.ID, other.ID, 2))   // 50

	cart, err := cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Len(t, cart.Items, 2)
	assert.Equal(t, 6, cart.TotalItems)
	assert.Equal(t, float64(250), cart.TotalPrice)

	// Removing a line recomputes the total from what remains
	require.NoError(t, cartService.RemoveFromCart(user.ID, product.ID))
	cart, err = cartService.GetUserCart(user.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(50), cart.TotalPrice)
}

func TestCartService_AddToCart_Success(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	err := cartService.AddToCart(user.ID, product.ID, 3)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
}

func TestCartService_AddToCart_DefaultQuantity(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	// Zero or negative quantity defaults to one
	err := cartService.AddToCart(user.ID, product.ID, 0)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 1, cart.Items[0].Quantity)
}

func TestCartService_AddToCart_ProductNotFound(t *testing.T) {
	cartService, user, _, _ := setupCartServiceTest(t)

	err := cartService.AddToCart(user.ID, 9999, 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestCartService_AddToCart_InsufficientStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	err := cartService.AddToCart(user.ID, product.ID, 100)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_AddToCart_MergesExistingLine(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))
	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 3))

	cart, _ := cartService.GetUserCart(user.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 5, cart.Items[0].Quantity)
}

func TestCartService_AddToCart_MergeRespectsStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 8))

	// 8 + 3 exceeds the 10 in stock
	err := cartService.AddToCart(user.ID, product.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_SetQuantity(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))

	err := cartService.SetQuantity(user.ID, product.ID, 7)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 7, cart.Items[0].Quantity)
}

func TestCartService_SetQuantity_ZeroRemoves(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))

	err := cartService.SetQuantity(user.ID, product.ID, 0)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	assert.Empty(t, cart.Items)
}

func TestCartService_SetQuantity_CreatesMissingLine(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	err := cartService.SetQuantity(user.ID, product.ID, 4)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, 4, cart.Items[0].Quantity)
}

func TestCartService_SetQuantity_InsufficientStock(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))

	err := cartService.SetQuantity(user.ID, product.ID, 50)
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCartService_RemoveFromCart(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))

	err := cartService.RemoveFromCart(user.ID, product.ID)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	assert.Empty(t, cart.Items)
}

func TestCartService_RemoveFromCart_AbsentIsNoop(t *testing.T) {
	cartService, user, product, _ := setupCartServiceTest(t)

	err := cartService.RemoveFromCart(user.ID, product.ID)
	assert.NoError(t, err)
}

func TestCartService_ClearCart(t *testing.T) {
	cartService, user, product, testDB := setupCartServiceTest(t)

	other := &model.Product{Name: "Fresh Milk", Category: "dairy", Price: 60, StockQuantity: 20}
	testDB.Create(other)

	require.NoError(t, cartService.AddToCart(user.ID, product.ID, 2))
	require.NoError(t, cartService.AddToCart(user.ID, other.ID, 1))

	err := cartService.ClearCart(user.ID)
	assert.NoError(t, err)

	cart, _ := cartService.GetUserCart(user.ID)
	assert.Empty(t, cart.Items)
}
