package app

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"lms/internal/handler"
	"lms/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	PaymentHandler    *handler.PaymentHandler
	VoucherHandler    *handler.VoucherHandler
	EnrollmentHandler *handler.EnrollmentHandler
	RedisClient       *redis.Client
	NewRelicApp       *newrelic.Application
	Logger            *zap.Logger
	AllowedOrigins    []string
	HealthCheck       func() error
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.CORS(deps.AllowedOrigins))

	// Add New Relic middleware if enabled.
	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Replays only apply to purchase initiation; gateway callbacks are idempotent on their own.
	idempotency := func(c *gin.Context) { c.Next() }
	if deps.RedisClient != nil {
		idempotency = middleware.Idempotency(deps.RedisClient, logger)
	}

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Voucher routes.
		v1.GET("/vouchers/:code/validate", deps.VoucherHandler.Validate)

		// Payment routes.
		payments := v1.Group("/payments")
		{
			payments.POST("", idempotency, deps.PaymentHandler.CreatePayment)
			payments.GET("", deps.PaymentHandler.ListPayments)
			payments.GET("/vnpay/ipn", deps.PaymentHandler.IPN)
			payments.GET("/vnpay/return", deps.PaymentHandler.Return)
			payments.GET("/:id", deps.PaymentHandler.GetPayment)
		}

		// Enrollment routes.
		v1.GET("/enrollments", deps.EnrollmentHandler.ListEnrollments)
		v1.GET("/enrollments/access", deps.EnrollmentHandler.CheckAccess)
		v1.GET("/combo-enrollments", deps.EnrollmentHandler.ListComboEnrollments)
	}

	return router
}
