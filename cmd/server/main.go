package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging
	"time"    // Idempotency key TTL

	"payout_system/internal/api"        // Custom package for API handlers
	"payout_system/internal/config"     // Custom package for configuration
	"payout_system/internal/faucetpay"  // FaucetPay gateway client
	"payout_system/internal/ledger"     // Balance ledger
	"payout_system/internal/middleware" // Custom package for middleware
	"payout_system/internal/service"    // Orchestrators

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if cfg.FaucetPayAPIKey == "" {
		logrus.Fatal("FAUCETPAY_API_KEY is not configured")
	}

	// Setup Data Source Name (DSN) and connect to the database
	dsn := cfg.DBUser + ":" + cfg.DBPassword + "@tcp(" + cfg.DBHost + ":" + cfg.DBPort + ")/" + cfg.DBName + "?parseTime=true"
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})

	// Test Redis connection
	_, err = redisClient.Ping(context.Background()).Result()
	if err != nil {
		logrus.Fatalf("failed to connect to Redis: %v", err)
	}

	// Wire the core: ledger on the DB, FaucetPay gateway, orchestrators with
	// injected fee/minimum/reward parameters.
	led := ledger.New(db)
	gateway := faucetpay.New(cfg.FaucetPayAPIKey, cfg.FaucetPayBaseURL, cfg.Currency, cfg.ProviderTimeout)
	idem := service.NewRedisIdempotencyGuard(redisClient, 24*time.Hour)
	withdrawals := service.NewWithdrawal(led, gateway, idem, cfg.WithdrawalFee, cfg.MinWithdrawal)
	referrals := service.NewReferral(led, cfg.ReferredReward, cfg.ReferrerReward)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default() // Gin router instance

	// Set trusted proxies for Gin
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}

	// Auth routes
	r.POST("/user", api.RegisterHandler(db))            // Registration endpoint
	r.GET("/user", api.LoginHandler(db, cfg.JWTSecret)) // Login endpoint

	// Payout routes (protected by JWT)
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	authed.POST("/validate-payout-address", api.ValidatePayoutAddressHandler(withdrawals)) // Address validation endpoint
	authed.POST("/request-withdrawal", api.RequestWithdrawalHandler(withdrawals, redisClient))
	authed.POST("/apply-referral-code", api.ApplyReferralCodeHandler(referrals, redisClient))
	authed.GET("/wallet", api.GetWalletHandler(db, redisClient))
	authed.GET("/wallet/transactions", api.GetTransactionHistoryHandler(db, redisClient))

	// Admin routes (protected, admin only)
	adminGroup := r.Group("/admin")
	adminGroup.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret), middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, redisClient))
	adminGroup.GET("/transactions", api.ListTransactionsHandler(db, redisClient))

	log.Println("Server running on " + cfg.AppPort) // Log server start
	r.Run(":" + cfg.AppPort)                        // Start the server on port cfg.AppPort
}
