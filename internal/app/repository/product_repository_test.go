package repository

import (
	"testing"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupProductTest(t *testing.T) (*gorm.DB, ProductRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	return testDB, NewProductRepository(testDB)
}

func seedCatalog(t *testing.T, repo ProductRepository) {
	products := []*model.Product{
		{Name: "Hass Avocado", Category: "fruits", Price: 50, Unit: "piece", StockQuantity: 100},
		{Name: "Sukuma Wiki", Category: "vegetables", Price: 30, Unit: "bunch", StockQuantity: 80},
		{Name: "Fresh Milk", Category: "dairy", Price: 60, Unit: "litre", StockQuantity: 40},
		{Name: "Ripe Bananas", Category: "fruits", Price: 120, Unit: "kg", StockQuantity: 60},
	}
	for _, p := range products {
		require.NoError(t, repo.Create(p))
	}
}

func TestProductRepository_Create(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := &model.Product{
		Name:          "Hass Avocado",
		Description:   "Creamy ripe avocados",
		Category:      "fruits",
		Price:         50,
		Unit:          "piece",
		StockQuantity: 100,
	}

	err := repo.Create(product)
	assert.NoError(t, err)
	assert.NotZero(t, product.ID)
}

func TestProductRepository_FindAll(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	products, err := repo.FindAll()
	require.NoError(t, err)
	assert.Len(t, products, 4)
}

func TestProductRepository_FindWithFilter_Category(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	products, err := repo.FindWithFilter(ProductFilter{Category: "fruits"})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	for _, p := range products {
		assert.Equal(t, "fruits", p.Category)
	}
}

func TestProductRepository_FindWithFilter_Search(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	products, err := repo.FindWithFilter(ProductFilter{Search: "Milk"})
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Fresh Milk", products[0].Name)
}

func TestProductRepository_FindWithFilter_SortByPrice(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	products, err := repo.FindWithFilter(ProductFilter{SortBy: ProductSortPrice, SortAscending: true})
	require.NoError(t, err)
	require.Len(t, products, 4)
	assert.Equal(t, "Sukuma Wiki", products[0].Name)
	assert.Equal(t, "Ripe Bananas", products[3].Name)
}

func TestProductRepository_FindWithFilter_Pagination(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	page1, err := repo.FindWithFilter(ProductFilter{SortBy: ProductSortName, SortAscending: true, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)

	page2, err := repo.FindWithFilter(ProductFilter{SortBy: ProductSortName, SortAscending: true, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)
}

func TestProductRepository_FindByID(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := &model.Product{Name: "Hass Avocado", Category: "fruits", Price: 50, StockQuantity: 100}
	require.NoError(t, repo.Create(product))

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, product.Name, found.Name)

	_, err = repo.FindByID(9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_FindByCategory(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	products, err := repo.FindByCategory("dairy")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Fresh Milk", products[0].Name)

	products, err = repo.FindByCategory("bakery")
	require.NoError(t, err)
	assert.Empty(t, products)
}

func TestProductRepository_ListCategories(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	seedCatalog(t, repo)

	categories, err := repo.ListCategories()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"dairy", "fruits", "vegetables"}, categories)
}

func TestProductRepository_Update(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := &model.Product{Name: "Hass Avocado", Category: "fruits", Price: 50, StockQuantity: 100}
	require.NoError(t, repo.Create(product))

	product.Price = 55
	product.StockQuantity = 90
	require.NoError(t, repo.Update(product))

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, float64(55), found.Price)
	assert.Equal(t, 90, found.StockQuantity)
}

func TestProductRepository_Delete(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := &model.Product{Name: "Hass Avocado", Category: "fruits", Price: 50}
	require.NoError(t, repo.Create(product))

	require.NoError(t, repo.Delete(product.ID))

	_, err := repo.FindByID(product.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestProductRepository_UpdateStock(t *testing.T) {
	testDB, repo := setupProductTest(t)
	defer db.CleanupTestDB(testDB)

	product := &model.Product{Name: "Hass Avocado", Category: "fruits", Price: 50, StockQuantity: 10}
	require.NoError(t, repo.Create(product))

	require.NoError(t, repo.UpdateStock(product.ID, -3))

	found, err := repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, found.StockQuantity)

	require.NoError(t, repo.UpdateStock(product.ID, 5))

	found, err = repo.FindByID(product.ID)
	require.NoError(t, err)
	assert.Equal(t, 12, found.StockQuantity)
}
