package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lms/internal/app"
	"lms/internal/config"
	"lms/internal/handler"
	"lms/internal/repository/postgres"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	logger := app.NewLogger(cfg.Server.Env)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.Server.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Initialize New Relic FIRST (before database so we can instrument DB).
	var nrApp *newrelic.Application
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.Warn("failed to initialize New Relic", zap.Error(err))
		} else {
			logger.Info("New Relic enabled", zap.String("app", cfg.NewRelic.AppName))
		}
	}

	// Initialize database with New Relic instrumentation.
	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			logger.Fatal("migrate", zap.Error(err))
		}
	}

	// Initialize Redis with New Relic instrumentation.
	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
		logger.Info("connected to Redis")
	}

	// Wire dependencies.
	services, err := app.NewServices(ctx, cfg, db, redisClient, logger)
	if err != nil {
		logger.Fatal("wire services", zap.Error(err))
	}
	defer services.Close()

	server := wireServer(db, redisClient, nrApp, services, cfg, logger)

	// Background jobs stop when runCtx is cancelled.
	runCtx, stopJobs := context.WithCancel(context.Background())
	var jobs sync.WaitGroup

	if cfg.Worker.Enabled && services.Processor != nil {
		jobs.Add(1)
		go func() {
			defer jobs.Done()
			services.Processor.Run(runCtx)
		}()
		logger.Info("invoice document worker started", zap.String("queue", cfg.Worker.Queue))
	}

	if cfg.Sweeper.Enabled {
		if err := services.Sweeper.Start(cfg.Sweeper.Spec); err != nil {
			logger.Fatal("start sweeper", zap.Error(err))
		}
	}

	// Start server in goroutine.
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	services.Sweeper.Stop(shutdownCtx)
	stopJobs()
	jobs.Wait()

	if nrApp != nil {
		nrApp.Shutdown(5 * time.Second)
	}
	logger.Info("server exited")
}

// wireServer builds handlers and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, nrApp *newrelic.Application, services *app.Services, cfg *config.Config, logger *zap.Logger) *http.Server {
	// Initialize handlers.
	paymentHandler := handler.NewPaymentHandler(services.Payments)
	voucherHandler := handler.NewVoucherHandler(services.Vouchers, services.Catalog)
	enrollmentHandler := handler.NewEnrollmentHandler(services.Enrollments)

	// Create router.
	router := app.NewRouter(app.RouterDeps{
		PaymentHandler:    paymentHandler,
		VoucherHandler:    voucherHandler,
		EnrollmentHandler: enrollmentHandler,
		RedisClient:       redisClient,
		NewRelicApp:       nrApp,
		Logger:            logger,
		AllowedOrigins:    cfg.Server.AllowedOrigins,
		HealthCheck: func() error {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.PingContext(ctx)
		},
	})

	// Create HTTP server.
	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
