package repository

import (
	"testing"

	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupCartTest(t *testing.T) (*gorm.DB, CartRepository, *model.User, *model.Product) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewCartRepository(testDB)

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
		StockQuantity: 100,
	}
	testDB.Create(product)

	return testDB, repo, user, product
}

func TestCartRepository_Create(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  2,
	}

	err := repo.Create(cartItem)
	assert.NoError(t, err)
	assert.NotZero(t, cartItem.ID)
}

func TestCartRepository_Create_DuplicateProduct(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	first := &model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}
	require.NoError(t, repo.Create(first))

	// One row per user+product is enforced by the unique index
	second := &model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 3}
	err := repo.Create(second)
	assert.Error(t, err)
}

func TestCartRepository_FindByUserID(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	other := &model.Product{Name: "Sukuma Wiki", Category: "vegetables", Price: 30, StockQuantity: 50}
	testDB.Create(other)

	require.NoError(t, repo.Create(&model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}))
	require.NoError(t, repo.Create(&model.CartItem{UserID: user.ID, ProductID: other.ID, Quantity: 1}))

	items, err := repo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, "Hass Avocado", items[0].Product.Name)
}

func TestCartRepository_FindByUserID_Empty(t *testing.T) {
	testDB, repo, user, _ := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	items, err := repo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCartRepository_FindByID(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{
		UserID:    user.ID,
		ProductID: product.ID,
		Quantity:  3,
	}
	require.NoError(t, repo.Create(cartItem))

	found, err := repo.FindByID(cartItem.ID)
	require.NoError(t, err)
	assert.Equal(t, cartItem.ID, found.ID)
	assert.Equal(t, 3, found.Quantity)
	assert.Equal(t, product.Name, found.Product.Name)
}

func TestCartRepository_FindByUserAndProduct(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}
	require.NoError(t, repo.Create(cartItem))

	found, err := repo.FindByUserAndProduct(user.ID, product.ID)
	require.NoError(t, err)
	assert.Equal(t, cartItem.ID, found.ID)

	_, err = repo.FindByUserAndProduct(user.ID, 9999)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_Update(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}
	require.NoError(t, repo.Create(cartItem))

	cartItem.Quantity = 5
	require.NoError(t, repo.Update(cartItem))

	found, err := repo.FindByID(cartItem.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, found.Quantity)
}

func TestCartRepository_Delete(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	cartItem := &model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 1}
	require.NoError(t, repo.Create(cartItem))

	require.NoError(t, repo.Delete(cartItem.ID))

	_, err := repo.FindByID(cartItem.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCartRepository_DeleteByUserID(t *testing.T) {
	testDB, repo, user, product := setupCartTest(t)
	defer db.CleanupTestDB(testDB)

	other := &model.Product{Name: "Fresh Milk", Category: "dairy", Price: 60, StockQuantity: 40}
	testDB.Create(other)

	require.NoError(t, repo.Create(&model.CartItem{UserID: user.ID, ProductID: product.ID, Quantity: 2}))
	require.NoError(t, repo.Create(&model.CartItem{UserID: user.ID, ProductID: other.ID, Quantity: 1}))

	require.NoError(t, repo.DeleteByUserID(user.ID))

	items, err := repo.FindByUserID(user.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}
