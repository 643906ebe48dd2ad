package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"order-lifecycle-service/internal/config"
	"order-lifecycle-service/internal/events"
	"order-lifecycle-service/internal/handlers"
	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/models"
	"order-lifecycle-service/internal/repository"
	"order-lifecycle-service/internal/services"
)

// @title Order Lifecycle Service API
// @version 1.0
// @description Order status lifecycle, cancellation with wallet refunds, and the return/refund workflow

// @host localhost:8080
// @BasePath /api/v1
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	if level, err := logrus.ParseLevel(cfg.App.LogLevel); err == nil {
		logger.SetLevel(level)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	if err := migrateDatabase(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis is optional; caching degrades gracefully when it is absent
	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		opt, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Printf("Warning: Failed to parse Redis URL: %v", err)
			log.Println("Continuing without Redis caching...")
		} else {
			redisClient = redis.NewClient(opt)

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := redisClient.Ping(ctx).Err(); err != nil {
				log.Printf("Warning: Failed to connect to Redis: %v", err)
				log.Println("Continuing without Redis caching...")
				redisClient = nil
			} else {
				log.Println("✓ Connected to Redis for caching")
			}
		}
	} else {
		log.Println("REDIS_URL not configured, caching disabled")
	}

	// Event publishing is optional as well
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.NATS.URL != "" {
		natsPublisher, err := events.NewNATSPublisher(cfg.NATS.URL, logger)
		if err != nil {
			log.Printf("WARNING: Failed to initialize NATS events publisher: %v (continuing without events)", err)
		} else {
			publisher = natsPublisher
			log.Println("✓ NATS events publisher initialized")
		}
	} else {
		log.Println("NATS_URL not configured, event publishing disabled")
	}

	// Repositories
	orderRepo := repository.NewOrderRepository(db, redisClient)
	returnRepo := repository.NewReturnRepository(db)
	cancellationLogRepo := repository.NewCancellationLogRepository(db)
	walletRepo := repository.NewWalletRepository(db, redisClient)
	txRunner := repository.NewTxRunner(db)

	// Services
	orderService := services.NewOrderService(orderRepo, publisher)
	cancellationService := services.NewCancellationService(orderRepo, cancellationLogRepo, walletRepo, txRunner, publisher)
	returnService := services.NewReturnService(returnRepo, orderRepo, walletRepo, txRunner, publisher, cfg.Policy.ReturnWindowDays)
	walletService := services.NewWalletService(walletRepo, publisher)

	// Handlers
	orderHandler := handlers.NewOrderHandler(orderService, cancellationService)
	returnHandler := handlers.NewReturnHandler(returnService)
	walletHandler := handlers.NewWalletHandler(walletService)
	healthHandler := handlers.NewHealthHandler(db, orderRepo)

	router := setupRouter(cfg, orderHandler, returnHandler, walletHandler, healthHandler)

	// Graceful shutdown handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down Order Lifecycle Service...")
		publisher.Close()
		log.Println("✓ Events publisher closed")
		if redisClient != nil {
			redisClient.Close()
		}
		log.Println("Order lifecycle service stopped")
		os.Exit(0)
	}()

	log.Printf("Starting Order Lifecycle Service on %s", cfg.GetServerAddress())
	if err := router.Run(cfg.GetServerAddress()); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initDatabase initializes the database connection
func initDatabase(cfg *config.Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.GetDatabaseDSN()), &gorm.Config{
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return db, nil
}

// migrateDatabase runs database migrations
func migrateDatabase(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.CancellationLog{},
		&models.ReturnRequest{},
		&models.ReturnTimeline{},
		&models.Wallet{},
		&models.WalletTransaction{},
	)
}

// setupRouter configures the Gin router with middleware and routes
func setupRouter(cfg *config.Config, orderHandler *handlers.OrderHandler, returnHandler *handlers.ReturnHandler, walletHandler *handlers.WalletHandler, healthHandler *handlers.HealthHandler) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS())
	router.Use(middleware.Metrics())

	// Probes and operational endpoints
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// API routes require an authenticated actor; the gateway injects the
	// identity headers
	api := router.Group("/api/v1")
	api.Use(middleware.Actor())
	{
		api.GET("/cancellation-reasons", orderHandler.GetCancellationReasons)

		orders := api.Group("/orders")
		{
			orders.GET("", orderHandler.ListOrders)
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/number/:orderNumber", orderHandler.GetOrderByNumber)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.GET("/:id/valid-transitions", orderHandler.GetValidTransitions)
			orders.PATCH("/:id/status", orderHandler.UpdateOrderStatus)
			orders.POST("/:id/ship", orderHandler.ShipOrder)
			orders.POST("/:id/cancel", orderHandler.CancelOrder)
			orders.GET("/:id/cancellation", orderHandler.GetCancellation)
		}

		returns := api.Group("/returns")
		{
			returns.GET("", returnHandler.ListReturns)
			returns.POST("", returnHandler.CreateReturn)
			returns.GET("/eligibility/:orderId", returnHandler.CheckEligibility)
			returns.GET("/:id", returnHandler.GetReturn)
			returns.POST("/:id/review", middleware.RequireRole(models.RoleAdmin), returnHandler.BeginReview)
			returns.POST("/:id/respond", returnHandler.SellerRespond)
			returns.POST("/:id/ship-back", returnHandler.ShipBack)
			returns.POST("/:id/received", returnHandler.ConfirmReceived)
			returns.POST("/:id/override", middleware.RequireRole(models.RoleAdmin), returnHandler.AdminOverride)
			returns.POST("/:id/refund", middleware.RequireRole(models.RoleAdmin), returnHandler.ProcessRefund)
		}

		wallet := api.Group("/wallet")
		{
			wallet.GET("", walletHandler.GetWallet)
			wallet.GET("/transactions", walletHandler.ListTransactions)
			wallet.POST("/adjust", middleware.RequireRole(models.RoleAdmin), walletHandler.Adjust)
		}
	}

	return router
}
