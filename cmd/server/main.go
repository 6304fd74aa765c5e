package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freshlyhq/freshly-backend/config"
	"github.com/freshlyhq/freshly-backend/internal/app/controller"
	"github.com/freshlyhq/freshly-backend/internal/app/repository"
	"github.com/freshlyhq/freshly-backend/internal/app/service"
	"github.com/freshlyhq/freshly-backend/internal/db"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/freshlyhq/freshly-backend/internal/router"
	"github.com/freshlyhq/freshly-backend/internal/scheduler"
	"github.com/freshlyhq/freshly-backend/internal/storage"
	"github.com/freshlyhq/freshly-backend/internal/ws"
	"github.com/freshlyhq/freshly-backend/pkg/logger"
	"github.com/freshlyhq/freshly-backend/pkg/mpesa"
	"github.com/freshlyhq/freshly-backend/pkg/redis"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      "console", // Use "json" for production
		EnableColor: true,
	})

	logger.Info("Starting Freshly Backend Server", map[string]interface{}{
		"environment": cfg.Server.Environment,
		"port":        cfg.Server.Port,
		"log_level":   logLevel,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations (seeds the initial admin account too)
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis backs the token blacklist. Auth still works without it;
	// logout just becomes a client-side operation.
	var tokenBlacklist middleware.TokenBlacklist
	var tokenRevoker service.TokenRevoker
	if err := redis.Init(&cfg.Redis); err != nil {
		logger.Warn("Redis unavailable, token revocation disabled", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		tokenBlacklist = redis.Blacklist{}
		tokenRevoker = redis.Blacklist{}
	}

	// M-Pesa client for STK push payments
	mpesaClient, err := mpesa.NewClient(mpesa.Config{
		ConsumerKey:    cfg.Payment.Mpesa.ConsumerKey,
		ConsumerSecret: cfg.Payment.Mpesa.ConsumerSecret,
		ShortCode:      cfg.Payment.Mpesa.ShortCode,
		Passkey:        cfg.Payment.Mpesa.Passkey,
		BaseURL:        cfg.Payment.Mpesa.BaseURL,
		CallbackURL:    cfg.Payment.Mpesa.CallbackURL,
	})
	if err != nil {
		logger.Fatal("Failed to initialize M-Pesa client", err)
	}

	// WebSocket hub for order status pushes
	hub := ws.NewHub()
	go hub.Run()

	// Initialize repositories
	userRepo := repository.NewUserRepository(db.GetDB())
	productRepo := repository.NewProductRepository(db.GetDB())
	orderRepo := repository.NewOrderRepository(db.GetDB())
	cartRepo := repository.NewCartRepository(db.GetDB())

	// Initialize services
	authService := service.NewAuthService(
		userRepo,
		tokenRevoker,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	productService := service.NewProductService(productRepo)
	cartService := service.NewCartService(cartRepo, productRepo)
	orderService := service.NewOrderService(orderRepo, cartRepo, hub, db.GetDB())
	paymentService := service.NewPaymentService(orderRepo, mpesaClient, hub, db.GetDB())
	statsService := service.NewStatsService(userRepo, productRepo, orderRepo)

	// S3 presigned uploads for product images
	s3Storage := storage.NewS3Storage(cfg.S3)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	productController := controller.NewProductController(productService)
	cartController := controller.NewCartController(cartService)
	orderController := controller.NewOrderController(orderService)
	paymentController := controller.NewPaymentController(paymentService)
	adminController := controller.NewAdminController(statsService)
	uploadController := controller.NewUploadController(s3Storage)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret, tokenBlacklist)

	// Setup router
	r := router.NewRouter(
		authController,
		productController,
		cartController,
		orderController,
		paymentController,
		adminController,
		uploadController,
		authMiddleware,
		hub,
		cfg,
	)
	engine := r.Setup()

	// Background sweep that cancels STK pushes that never got a callback
	sweep := scheduler.NewPaymentSweepScheduler(paymentService, cfg.Payment.Mpesa.PendingExpiry)
	if err := sweep.Start(); err != nil {
		logger.Fatal("Failed to start payment sweep scheduler", err)
	}
	defer sweep.Stop()

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		logger.Info("Server started successfully", map[string]interface{}{
			"address": addr,
			"pid":     os.Getpid(),
		})
		if err := engine.Run(addr); err != nil {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
}
