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
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductControllerTest(t *testing.T) (*ProductController, *gin.Engine, *gorm.DB) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() {
		db.CleanupTestDB(testDB)
	})

	productRepo := repository.NewProductRepository(testDB)
	productService := service.NewProductService(productRepo)
	productController := NewProductController(productService)

	gin.SetMode(gin.TestMode)
	router := gin.New()

	return productController, router, testDB
}

func seedCatalog(t *testing.T, testDB *gorm.DB) {
	t.Helper()
	products := []model.Product{
		{Name: "Hass Avocado", Category: "fruits", Price: 50, Unit: "piece", StockQuantity: 10},
		{Name: "Ripe Bananas", Category: "fruits", Price: 120, Unit: "kg", StockQuantity: 15},
		{Name: "Sukuma Wiki", Category: "vegetables", Price: 30, Unit: "bunch", StockQuantity: 25},
	}
	for i := range products {
		require.NoError(t, testDB.Create(&products[i]).Error)
	}
}

func TestProductController_ListProducts(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(3), response["count"])
}

func TestProductController_ListProducts_CategoryFilter(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products?category=fruits", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(2), response["count"])
}

func TestProductController_ListProducts_UnknownCategory(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products?category=electronics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "CATEGORY_NOT_FOUND", response["error"])
}

func TestProductController_ListProducts_SortByPrice(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.GET("/products", controller.ListProducts)

	req := httptest.NewRequest(http.MethodGet, "/products?sort=price&order=asc", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Products []model.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	require.Len(t, response.Products, 3)
	assert.Equal(t, "Sukuma Wiki", response.Products[0].Name)
	assert.Equal(t, "Ripe Bananas", response.Products[2].Name)
}

func TestProductController_GetProduct(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.GET("/products/:id", controller.GetProduct)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Product model.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "Hass Avocado", response.Product.Name)
}

func TestProductController_GetProduct_NotFound(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.GET("/products/:id", controller.GetProduct)

	req := httptest.NewRequest(http.MethodGet, "/products/9999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "PRODUCT_NOT_FOUND", response["error"])
}

func TestProductController_GetProduct_InvalidID(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.GET("/products/:id", controller.GetProduct)

	req := httptest.NewRequest(http.MethodGet, "/products/invalid", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductController_ListCategories(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.GET("/products/categories", controller.ListCategories)

	req := httptest.NewRequest(http.MethodGet, "/products/categories", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.ElementsMatch(t, []string{"fruits", "vegetables"}, response.Categories)
}

func TestProductController_CreateProduct(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.POST("/admin/products", controller.CreateProduct)

	body, _ := json.Marshal(CreateProductRequest{
		Name:          "Fresh Milk",
		Category:      "dairy",
		Price:         60,
		Unit:          "litre",
		StockQuantity: 40,
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var response struct {
		Product model.Product `json:"product"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.NotZero(t, response.Product.ID)
	assert.Equal(t, "Fresh Milk", response.Product.Name)
}

func TestProductController_CreateProduct_OutOfRange(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.POST("/admin/products", controller.CreateProduct)

	body, _ := json.Marshal(CreateProductRequest{
		Name:     "Gold Leaf Garnish",
		Category: "specialty",
		Price:    500000,
	})
	req := httptest.NewRequest(http.MethodPost, "/admin/products", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "VALIDATION_INVALID_RANGE", response["error"])
}

func TestProductController_UpdateProduct(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.PUT("/admin/products/:id", controller.UpdateProduct)

	body, _ := json.Marshal(UpdateProductRequest{
		Name:          "Hass Avocado",
		Category:      "fruits",
		Price:         55,
		Unit:          "piece",
		StockQuantity: 10,
	})
	req := httptest.NewRequest(http.MethodPut, "/admin/products/1", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var product model.Product
	require.NoError(t, testDB.First(&product, 1).Error)
	assert.Equal(t, float64(55), product.Price)
}

func TestProductController_UpdateProduct_NotFound(t *testing.T) {
	controller, router, _ := setupProductControllerTest(t)

	router.PUT("/admin/products/:id", controller.UpdateProduct)

	body, _ := json.Marshal(UpdateProductRequest{
		Name:     "Ghost Product",
		Category: "fruits",
		Price:    55,
	})
	req := httptest.NewRequest(http.MethodPut, "/admin/products/9999", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductController_DeleteProduct(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.DELETE("/admin/products/:id", controller.DeleteProduct)

	req := httptest.NewRequest(http.MethodDelete, "/admin/products/1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	testDB.Model(&model.Product{}).Where("id = ?", 1).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestProductController_RestockProduct(t *testing.T) {
	controller, router, testDB := setupProductControllerTest(t)
	seedCatalog(t, testDB)

	router.POST("/admin/products/:id/restock", controller.RestockProduct)

	body, _ := json.Marshal(RestockRequest{Quantity: 5})
	req := httptest.NewRequest(http.MethodPost, "/admin/products/1/restock", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var product model.Product
	require.NoError(t, testDB.First(&product, 1).Error)
	assert.Equal(t, 15, product.StockQuantity)
}
