// Package main is the entry point for the wallet API.
// It initializes all dependencies, sets up the HTTP server,
// and starts the application.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fxwallet/internal/config"
	"fxwallet/internal/handlers"
	"fxwallet/internal/logger"
	"fxwallet/internal/middleware"
	"fxwallet/internal/repositories"
	"fxwallet/internal/repositories/cache"
	"fxwallet/internal/repositories/memory"
	"fxwallet/internal/routes"
	"fxwallet/internal/services/currency"
	"fxwallet/internal/services/history"
	"fxwallet/internal/services/risk"
	"fxwallet/internal/services/transaction"
	"fxwallet/internal/services/wallet"
	"fxwallet/internal/stream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

const (
	balanceCacheTTL = 5 * time.Minute
	shutdownTimeout = 10 * time.Second
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.HealthChecker{}

	// Storage
	var store repositories.Store
	var db *gorm.DB
	switch cfg.StoreDriver {
	case "memory":
		store = memory.New()
		logger.Warn("Using in-memory store; balances are lost on restart")
	default:
		var err error
		db, err = repositories.InitDB(cfg.Database)
		if err != nil {
			logger.Fatalf("Failed to initialize database: %v", err)
		}
		store = repositories.NewGormStore(db)
		checks["database"] = func(ctx context.Context) error { return repositories.Ping(ctx, db) }
	}
	defer func() {
		if err := repositories.Close(db); err != nil {
			logger.Warnf("Failed to close database connection: %v", err)
		}
	}()

	// Balance cache
	var balanceCache wallet.BalanceCache
	redisCache := cache.NewCacheService(cache.NewRedisClient(cfg.Redis), balanceCacheTTL)
	if err := redisCache.HealthCheck(ctx); err != nil {
		logger.Warnf("Redis unavailable, balance cache disabled: %v", err)
		_ = redisCache.Close()
	} else {
		balanceCache = redisCache
		checks["redis"] = redisCache.HealthCheck
		defer func() {
			if err := redisCache.Close(); err != nil {
				logger.Warnf("Failed to close Redis connection: %v", err)
			}
		}()
		logger.Info("Redis connected")
	}

	// Event stream
	var events transaction.EventPublisher = transaction.NoopPublisher{}
	if cfg.KafkaBrokers != "" {
		ks, err := stream.New(cfg.KafkaBrokers)
		if err != nil {
			logger.Fatalf("Failed to create Kafka producer: %v", err)
		}
		events = ks
		defer ks.Close(shutdownTimeout)
		logger.Infof("Publishing ledger events to %s", cfg.KafkaBrokers)
	}

	// Currencies
	table, err := currency.LoadTable(ctx, store.Currencies())
	if err != nil {
		logger.Fatalf("Failed to load currency rates: %v", err)
	}
	if len(table.Codes()) == 0 {
		if table, err = currency.Seed(ctx, store.Currencies(), currency.DefaultBaseRates); err != nil {
			logger.Fatalf("Failed to seed currency rates: %v", err)
		}
	}
	converter := currency.NewConverter(table)
	go currency.NewRefresher(store.Currencies(), converter, cfg.Ledger.RateRefreshInterval).Run(ctx)

	// Services
	ledger := wallet.NewLedger(store, converter, balanceCache, wallet.Config{
		DailyLimit:      cfg.Ledger.DailyLimit,
		DefaultCurrency: cfg.Ledger.DefaultCurrency,
	})
	engine := risk.NewEngine(risk.NewStoreHistory(store), risk.Config{
		DailyLimit: cfg.Ledger.DailyLimit,
		Thresholds: risk.Thresholds{
			Medium: cfg.Ledger.MediumRiskThreshold,
			High:   cfg.Ledger.HighRiskThreshold,
		},
	})
	processor := transaction.NewProcessor(transaction.Deps{
		Store:     store,
		Ledger:    ledger,
		Recorder:  history.NewRecorder(store, nil),
		Converter: converter,
		Risk:      engine,
		Events:    events,
	}, transaction.Config{ProcessingTimeout: cfg.Ledger.ProcessingTimeout})

	// HTTP
	app := fiber.New(fiber.Config{ErrorHandler: errorHandler})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: config.GetEnv("CORS_ORIGINS", "http://localhost:5173"),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,HEAD,PATCH",
	}))
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
		Output: logger.Logger().Writer(),
	}))
	app.Use("/api/wallet", limiter.New(limiter.Config{
		Max:        config.GetIntEnv("RATE_LIMIT_PER_MINUTE", 60),
		Expiration: time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please try again later.",
			})
		},
	}))

	routes.SetupRoutes(app,
		handlers.NewWalletHandler(processor),
		handlers.NewHealthHandler(checks),
		middleware.NewAuthMiddleware(cfg.JWTSecret),
	)

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down server")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			logger.Errorf("Server shutdown failed: %v", err)
		}
	}()

	logger.Infof("Server listening on :%s (%s)", cfg.Port, cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Errorf("Server stopped: %v", err)
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}
	if code >= fiber.StatusInternalServerError {
		logger.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
