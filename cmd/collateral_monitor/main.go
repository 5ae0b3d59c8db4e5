package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"collateral_monitor/internal/app/port"
	"collateral_monitor/internal/app/service"
	"collateral_monitor/internal/client"
	"collateral_monitor/internal/infrastructure/configloader"
	"collateral_monitor/internal/infrastructure/restapi"
	"collateral_monitor/internal/infrastructure/storage/memory"
	"collateral_monitor/internal/infrastructure/storage/postgres"
	"collateral_monitor/internal/infrastructure/walletloader"
	"collateral_monitor/internal/pkg/logger"
	"collateral_monitor/internal/pkg/metrics"
	"collateral_monitor/internal/pkg/utils"

	"github.com/gin-gonic/gin"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := utils.GetEnv("CONFIG_PATH", "config/config.yml")
	cfg, err := configloader.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to load configuration from %s: %v\n", cfgPath, err)
		os.Exit(1)
	}

	zapLogger, err := logger.NewZap(cfg.Logging.Level, cfg.Logging.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: failed to initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()

	logger.InitWithZap(zapLogger, cfg.Logging.Level)
	logger.Info("Collateral monitor starting", "config", cfgPath, "level", cfg.Logging.Level)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics.MustRegisterMetrics()

	appLogger := logger.NewSlogAdapter()

	repo, closeRepo, err := openRepository(cfg)
	if err != nil {
		logger.Fatal("Failed to initialize customer store", "error", err)
	}
	defer closeRepo()

	limiter := rate.NewLimiter(rate.Limit(cfg.DeBank.RateLimitPerSecond), cfg.DeBank.RateLimitBurst)
	debankClient := client.NewDeBankClient(
		cfg.DeBank.BaseURL,
		cfg.DeBank.AccessKey,
		time.Duration(cfg.DeBank.RequestTimeoutMillis)*time.Millisecond,
		limiter,
		zapLogger,
	)
	logger.Info("DeBank client initialized", "baseURL", cfg.DeBank.BaseURL)

	aggregator := service.NewCollateralAggregator(debankClient, appLogger, cfg)
	customerService := service.NewCustomerService(repo, aggregator, appLogger, cfg)
	logger.Info("Customer service initialized", "maxConcurrentRequests", cfg.CustomerService.MaxConcurrentRequests)

	if cfg.Seed.WalletsFile != "" {
		seedCtx, cancelSeed := context.WithTimeout(context.Background(), 2*time.Minute)
		created, err := walletloader.NewWalletFileLoader(cfg.Seed.WalletsFile, appLogger).Seed(seedCtx, customerService)
		cancelSeed()
		if err != nil {
			logger.Error("Customer seeding failed", "file", cfg.Seed.WalletsFile, "created", created, "error", err)
		}
	}

	var scheduler *service.RefreshScheduler
	if cfg.Refresh.Schedule != "" {
		scheduler, err = service.NewRefreshScheduler(customerService, appLogger, cfg.Refresh.Schedule, 0)
		if err != nil {
			logger.Fatal("Failed to initialize refresh scheduler", "schedule", cfg.Refresh.Schedule, "error", err)
		}
		scheduler.Start()
	}

	handler := restapi.NewCustomerHandler(customerService, repo, appLogger)
	router := restapi.SetupRouter(handler, cfg, zapLogger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	go func() {
		logger.Info("Starting HTTP server", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start HTTP server", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if scheduler != nil {
		scheduler.Stop(ctx)
	}
	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Error("Server forced to shutdown", zap.Error(err))
	}
	logger.Info("Server exiting")
}

// openRepository returns the configured customer store and a close function.
func openRepository(cfg *configloader.Config) (port.CustomerRepository, func(), error) {
	if cfg.Database.UseMemory {
		logger.Warn("Using in-memory customer store; data is lost on restart")
		return memory.NewCustomerStore(), func() {}, nil
	}

	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}
		logger.Info("Database schema is up to date")
	}
	logger.Info("Connected to database", "driver", cfg.Database.Driver)

	return postgres.NewCustomerStore(db), func() { _ = db.Close() }, nil
}
