package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"nulex/internal/auth"
	"nulex/internal/config"
	"nulex/internal/database"
	"nulex/internal/handlers"
	"nulex/internal/korapay"
	"nulex/internal/services"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize JWT
	auth.InitJWT(cfg.App.JWTSecret)

	// Connect to database
	if err := database.Connect(cfg.GetDSN()); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run migrations
	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db := database.GetDB()

	// Payment processor client
	korapayClient := korapay.NewClient(cfg.Korapay.SecretKey, cfg.Korapay.WebhookSecret, cfg.Korapay.BaseURL)

	// Initialize services
	settingsService := services.NewSettingsService(db)
	ledgerService := services.NewLedgerService(db)
	referralService := services.NewReferralService(db, ledgerService, settingsService)
	authService := services.NewAuthService(db)
	userService := services.NewUserService(db, referralService, cfg.App.FrontendURL)
	taskService := services.NewTaskService(db, ledgerService)
	adminService := services.NewAdminService(db)
	paymentService := services.NewPaymentService(db, korapayClient, ledgerService, referralService,
		settingsService, cfg.App.BaseURL+"/api/payments/webhook", cfg.App.FrontendURL+"/payment/complete")
	withdrawalService := services.NewWithdrawalService(db, korapayClient, ledgerService, settingsService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userService, referralService)
	taskHandler := handlers.NewTaskHandler(taskService)
	paymentHandler := handlers.NewPaymentHandler(paymentService, korapayClient)
	withdrawalHandler := handlers.NewWithdrawalHandler(withdrawalService)
	adminHandler := handlers.NewAdminHandler(db, adminService, taskService, withdrawalService, settingsService)

	// Set up Gin router
	router := gin.Default()

	// CORS middleware
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{
		cfg.App.FrontendURL,
		"http://localhost:3000",
		"http://localhost:5173",
	}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Public routes
	router.POST("/api/auth/register", authHandler.Register)
	router.POST("/api/auth/login", authHandler.Login)
	router.POST("/api/payments/webhook", paymentHandler.Webhook)

	// Protected routes
	api := router.Group("/api")
	api.Use(auth.AuthMiddleware())
	{
		api.GET("/profile", userHandler.GetProfile)
		api.GET("/transactions", userHandler.GetTransactions)
		api.GET("/referrals", userHandler.GetReferrals)

		api.GET("/tasks", taskHandler.ListTasks)
		api.GET("/tasks/mine", taskHandler.GetMyTasks)
		api.GET("/tasks/:id", taskHandler.GetTask)
		api.POST("/tasks/:id/start", taskHandler.StartTask)
		api.POST("/tasks/:id/submit", taskHandler.SubmitTask)

		api.POST("/packages", paymentHandler.InitializePackage)
		api.GET("/packages", paymentHandler.GetMyPackages)
		api.GET("/payments/verify/:reference", paymentHandler.VerifyPayment)

		api.GET("/withdrawals/portal", withdrawalHandler.GetPortalStatus)
		api.POST("/withdrawals", withdrawalHandler.CreateWithdrawal)
		api.GET("/withdrawals", withdrawalHandler.GetMyWithdrawals)
		api.POST("/withdrawals/verify-account", withdrawalHandler.VerifyBankAccount)
	}

	// Admin routes (protected + admin only)
	admin := router.Group("/api/admin")
	admin.Use(auth.AuthMiddleware())
	admin.Use(adminHandler.AdminMiddleware())
	{
		admin.GET("/dashboard", adminHandler.GetDashboard)
		admin.GET("/logs", adminHandler.GetAdminLogs)

		// User management
		admin.GET("/users", adminHandler.GetUsers)
		admin.PUT("/users/:id/blocked", adminHandler.SetUserBlocked)

		// Task management
		admin.POST("/tasks", adminHandler.CreateTask)
		admin.PUT("/tasks/:id/active", adminHandler.SetTaskActive)
		admin.GET("/reviews", adminHandler.GetPendingReviews)
		admin.POST("/reviews/:id", adminHandler.ReviewTask)

		// Withdrawal management
		admin.GET("/withdrawals", adminHandler.GetWithdrawals)
		admin.PUT("/withdrawals/:id/status", adminHandler.UpdateWithdrawalStatus)
		admin.POST("/withdrawals/:id/settle", adminHandler.SettleWithdrawal)
		admin.PUT("/withdrawals/portal", adminHandler.UpdatePortal)

		// Settings
		admin.GET("/settings", adminHandler.GetSettings)
		admin.PUT("/settings", adminHandler.UpdateSetting)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with 5 second timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}
