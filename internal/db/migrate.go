package db

import (
	"github.com/freshlyhq/freshly-backend/internal/app/model"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"github.com/freshlyhq/freshly-backend/pkg/util"
)

// Migrate runs database migrations
func Migrate() error {
	logger.Info("Running database migrations...")

	models := []interface{}{
		&model.User{},
		&model.Product{},
		&model.CartItem{},
		&model.Order{},
		&model.OrderItem{},
	}

	if err := DB.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := seedInitialData(); err != nil {
		logger.Error("Failed to seed initial data during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// Seed adds initial data to the database (optional)
func Seed() error {
	return seedInitialData()
}

func seedInitialData() error {
	logger.Info("Seeding initial data...")

	if err := seedAdminUser(); err != nil {
		logger.Error("Failed to seed admin user", err)
		return err
	}

	logger.Info("Initial data seeded successfully")
	return nil
}

// seedAdminUser creates the default back-office account when no admin
// exists yet. Credentials are meant to be rotated on first login.
func seedAdminUser() error {
	var count int64
	if err := DB.Model(&model.User{}).
		Where("role = ?", model.RoleAdmin).
		Count(&count).Error; err != nil {
		return err
	}

	if count > 0 {
		logger.Info("Admin user already seeded, skipping...", map[string]interface{}{
			"existing_count": count,
		})
		return nil
	}

	hash, err := util.HashPassword("admin1234")
	if err != nil {
		return err
	}

	admin := model.User{
		Email:        "admin@freshly.co.ke",
		PasswordHash: hash,
		Name:         "Freshly Admin",
		Role:         model.RoleAdmin,
	}

	if err := DB.Create(&admin).Error; err != nil {
		return err
	}

	logger.Info("Admin user seeded successfully", map[string]interface{}{
		"email": admin.Email,
	})
	return nil
}
