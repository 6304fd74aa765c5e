package router

import (
	"github.com/freshlyhq/freshly-backend/config"
	"github.com/freshlyhq/freshly-backend/internal/app/controller"
	"github.com/freshlyhq/freshly-backend/internal/middleware"
	"github.com/freshlyhq/freshly-backend/internal/ws"
	"github.com/gin-gonic/gin"
)

type Router struct {
	authController    *controller.AuthController
	productController *controller.ProductController
	cartController    *controller.CartController
	orderController   *controller.OrderController
	paymentController *controller.PaymentController
	adminController   *controller.AdminController
	uploadController  *controller.UploadController
	authMiddleware    *middleware.AuthMiddleware
	hub               *ws.Hub
	config            *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	orderController *controller.OrderController,
	paymentController *controller.PaymentController,
	adminController *controller.AdminController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	hub *ws.Hub,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		productController: productController,
		cartController:    cartController,
		orderController:   orderController,
		paymentController: paymentController,
		adminController:   adminController,
		uploadController:  uploadController,
		authMiddleware:    authMiddleware,
		hub:               hub,
		config:            cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Freshly API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.OptionalAuthenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
			auth.PUT("/me", r.authMiddleware.Authenticate(), r.authController.UpdateMe)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.productController.ListProducts)
			products.GET("/categories", r.productController.ListCategories)
			products.GET("/:id", r.productController.GetProduct)
		}

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("/items", r.cartController.AddToCart)
			cart.PUT("/items/:productID", r.cartController.SetQuantity)
			cart.DELETE("/items/:productID", r.cartController.RemoveFromCart)
			cart.DELETE("", r.cartController.ClearCart)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.POST("", r.orderController.Checkout)
			orders.GET("", r.orderController.ListMyOrders)
			orders.GET("/last-address", r.orderController.GetLastCheckoutDetails)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.POST("/:id/cancel", r.orderController.CancelOrder)
		}

		payments := v1.Group("/payments")
		{
			// The provider posts results here; it cannot authenticate
			payments.POST("/callback", r.paymentController.Callback)

			payments.POST("/initiate", r.authMiddleware.Authenticate(), r.paymentController.InitiatePayment)
			payments.GET("/orders/:id", r.authMiddleware.Authenticate(), r.paymentController.GetPaymentStatus)
		}

		v1.GET("/ws/orders", r.authMiddleware.Authenticate(), ws.ServeWS(r.hub))

		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			admin.GET("/dashboard", r.adminController.GetDashboard)
			admin.GET("/revenue", r.adminController.GetRevenue)

			admin.GET("/users", r.adminController.ListUsers)
			admin.DELETE("/users/:id", r.adminController.DeleteUser)

			admin.POST("/products", r.productController.CreateProduct)
			admin.PUT("/products/:id", r.productController.UpdateProduct)
			admin.DELETE("/products/:id", r.productController.DeleteProduct)
			admin.POST("/products/:id/restock", r.productController.RestockProduct)

			admin.GET("/orders", r.orderController.ListAllOrders)
			admin.GET("/orders/export", r.adminController.ExportOrders)
			admin.PUT("/orders/:id/status", r.orderController.UpdateOrderStatus)
			admin.DELETE("/orders/:id", r.orderController.DeleteOrder)

			admin.POST("/uploads/product-image", r.uploadController.PresignProductImage)
		}
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
