package controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/internal/app/service"
	"github.com/freshlyhq/freshly-backend/internal/db"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartControllerTest(t *testing.T) (*CartController, *gin.Engine, *gorm.DB, *model.User, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	cartRepo := repository.NewCartRepository(testDB)
	productRepo := repository.NewProductRepository(testDB)
	cartService := service.NewCartService(cartRepo, productRepo)
	cartController := NewCartController(cartService)

	user := &model.User{
		Email:        "jane@example.com",
		PasswordHash: "hash",
		Name:         "Jane Wanjiku",
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

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return cartController, router, testDB, user, product
}

func authenticatedAs(userID uint, handler gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		handler(c)
	}
}

func TestCartController_GetCart(t *testing.T) {
	controller, router, testDB, user, product := setupCartControllerTest(t)

	cartRepo := repository.NewCartRepository(testDB)
	require.NoError(t, cartRepo.Create(&model.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
	}))

	router.GET("/cart", authenticatedAs(user.ID, controller.GetCart))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, float64(2), response["total_items"])
	assert.Equal(t, float64(100), response["total_price"])
}

func TestCartController_GetCart_Empty(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.GET("/cart", authenticatedAs(user.ID, controller.GetCart))

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))

	assert.Equal(t, float64(0), response["total_items"])
	assert.Equal(t, float64(0), response["total_price"])
}

func TestCartController_GetCart_Unauthorized(t *testing.T) {
	controller, router, _, _, _ := setupCartControllerTest(t)

	router.GET("/cart", controller.GetCart)

	req := httptest.NewRequest(http.MethodGet, "/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCartController_AddToCart(t *testing.T) {
	controller, router, _, user, product := setupCartControllerTest(t)

	router.POST("/cart/items", authenticatedAs(user.ID, controller.AddToCart))

	body, _ := json.Marshal(AddToCartRequest{ProductID: product.ID, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCartController_AddToCart_DefaultsToOneUnit(t *testing.T) {
	controller, router, testDB, user, product := setupCartControllerTest(t)

	router.POST("/cart/items", authenticatedAs(user.ID, controller.AddToCart))

	// Quantity omitted entirely; one unit goes in the cart
	body, _ := json.Marshal(map[string]interface{}{"product_id": product.ID})
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var line model.CartItem
	require.NoError(t, testDB.Where("user_id = ? AND product_id = ?", user.ID, product.ID).
		First(&line).Error)
	assert.Equal(t, 1, line.Quantity)
}

func TestCartController_AddToCart_ProductNotFound(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.POST("/cart/items", authenticatedAs(user.ID, controller.AddToCart))

	body, _ := json.Marshal(AddToCartRequest{ProductID: 9999, Quantity: 2})
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "PRODUCT_NOT_FOUND", response["error"])
}

func TestCartController_AddToCart_InsufficientStock(t *testing.T) {
	controller, router, _, user, product := setupCartControllerTest(t)

	router.POST("/cart/items", authenticatedAs(user.ID, controller.AddToCart))

	body, _ := json.Marshal(AddToCartRequest{ProductID: product.ID, Quantity: 100})
	req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "PRODUCT_OUT_OF_STOCK", response["error"])
}

func TestCartController_AddToCart_InvalidRequest(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.POST("/cart/items", authenticatedAs(user.ID, controller.AddToCart))

	tests := []struct {
		name    string
		reqBody map[string]interface{}
	}{
		{"missing product_id", map[string]interface{}{"quantity": 2}},
		{"missing quantity", map[string]interface{}{"product_id": 1}},
		{"zero quantity", map[string]interface{}{"product_id": 1, "quantity": 0}},
		{"negative quantity", map[string]interface{}{"product_id": 1, "quantity": -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, _ := json.Marshal(tt.reqBody)
			req := httptest.NewRequest(http.MethodPost, "/cart/items", bytes.NewBuffer(body))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestCartController_SetQuantity(t *testing.T) {
	controller, router, testDB, user, product := setupCartControllerTest(t)

	cartRepo := repository.NewCartRepository(testDB)
	require.NoError(t, cartRepo.Create(&model.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
	}))

	router.PUT("/cart/items/:productID", authenticatedAs(user.ID, controller.SetQuantity))

	five := 5
	body, _ := json.Marshal(SetQuantityRequest{Quantity: &five})
	req := httptest.NewRequest(http.MethodPut, "/cart/items/1", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	items, err := cartRepo.FindByUserID(user.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, 5, items[0].Quantity)
}

func TestCartController_SetQuantity_ZeroRemoves(t *testing.T) {
	controller, router, testDB, user, product := setupCartControllerTest(t)

	cartRepo := repository.NewCartRepository(testDB)
	require.NoError(t, cartRepo.Create(&model.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
	}))

	router.PUT("/cart/items/:productID", authenticatedAs(user.ID, controller.SetQuantity))

	zero := 0
	body, _ := json.Marshal(SetQuantityRequest{Quantity: &zero})
	req := httptest.NewRequest(http.MethodPut, "/cart/items/1", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	items, err := cartRepo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartController_SetQuantity_InvalidID(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.PUT("/cart/items/:productID", authenticatedAs(user.ID, controller.SetQuantity))

	five := 5
	body, _ := json.Marshal(SetQuantityRequest{Quantity: &five})
	req := httptest.NewRequest(http.MethodPut, "/cart/items/invalid", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCartController_RemoveFromCart(t *testing.T) {
	controller, router, testDB, user, product := setupCartControllerTest(t)

	cartRepo := repository.NewCartRepository(testDB)
	require.NoError(t, cartRepo.Create(&model.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
	}))

	router.DELETE("/cart/items/:productID", authenticatedAs(user.ID, controller.RemoveFromCart))

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	items, err := cartRepo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartController_RemoveFromCart_AbsentSucceeds(t *testing.T) {
	controller, router, _, user, _ := setupCartControllerTest(t)

	router.DELETE("/cart/items/:productID", authenticatedAs(user.ID, controller.RemoveFromCart))

	req := httptest.NewRequest(http.MethodDelete, "/cart/items/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCartController_ClearCart(t *testing.T) {
	controller, router, testDB, user, product := setupCartControllerTest(t)

	other := &model.Product{Name: "Sukuma Wiki", Category: "vegetables", Price: 30, StockQuantity: 20}
	testDB.Create(other)

	cartRepo := repository.NewCartRepository(testDB)
	require.NoError(t, cartRepo.Create(&model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}))
	require.NoError(t, cartRepo.Create(&model.CartItem{UserID: user.ID, ProductID: other.ID, Quantity: 3}))

	router.DELETE("/cart", authenticatedAs(user.ID, controller.ClearCart))

	req := httptest.NewRequest(http.MethodDelete, "/cart", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	items, err := cartRepo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
