package app

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lms/internal/config"
	"lms/internal/events"
	"lms/internal/gateway"
	"lms/internal/queue"
	internalRedis "lms/internal/redis"
	"lms/internal/repository/postgres"
	"lms/internal/service"
	"lms/internal/storage"
	"lms/internal/worker"
)

const kafkaConnectAttempts = 5

// Services holds every wired service. Optional collaborators are nil when
// disabled in configuration.
type Services struct {
	UnitOfWork    *postgres.UnitOfWork
	Catalog       service.CatalogReader
	Vouchers      *service.VoucherService
	Numbers       *service.NumberGenerator
	Grantor       *service.EntitlementGrantor
	Payments      *service.PaymentService
	Enrollments   *service.EnrollmentService
	Notifications *service.NotificationService
	Sweeper       *service.ExpirationSweeper
	Documents     *service.InvoiceDocumentService
	Queue         *queue.Queue
	Processor     *worker.InvoiceDocumentProcessor
	Publisher     events.Publisher
}

// NewServices wires repositories, stores and services. redisClient may be nil.
func NewServices(ctx context.Context, cfg *config.Config, db *sql.DB, redisClient *redis.Client, logger *zap.Logger) (*Services, error) {
	taxRate, err := decimal.NewFromString(cfg.Billing.TaxRate)
	if err != nil {
		return nil, fmt.Errorf("parse tax rate %q: %w", cfg.Billing.TaxRate, err)
	}
	loc, err := time.LoadLocation(cfg.Gateway.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Gateway.Timezone, err)
	}
	vnpay, err := gateway.NewVNPay(cfg.Gateway)
	if err != nil {
		return nil, err
	}

	s := &Services{UnitOfWork: postgres.NewUnitOfWork(db)}

	// Redis-backed stores. Without Redis the engine still works: locks are
	// skipped, the catalog is read directly and numbers come from a local sequence.
	var (
		lockStore internalRedis.LockStoreInterface
		sequence  service.Sequence = service.NewMemorySequence()
	)
	s.Catalog = s.UnitOfWork.Catalog()
	if redisClient != nil {
		lockStore = internalRedis.NewLockStore(redisClient)
		sequence = internalRedis.NewSequenceStore(redisClient)
		s.Catalog = service.NewCachedCatalog(s.UnitOfWork.Catalog(), internalRedis.NewCacheStore(redisClient), logger)
	} else {
		logger.Warn("redis disabled: invoice numbers are only unique within this process")
	}

	s.Publisher = events.NewLogPublisher(logger)
	if cfg.Kafka.Enabled {
		kp, err := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, kafkaConnectAttempts, 2*time.Second, logger)
		if err != nil {
			return nil, fmt.Errorf("kafka: %w", err)
		}
		s.Publisher = kp
	}

	s.Notifications = service.NewNotificationService(logger)
	s.Vouchers = service.NewVoucherService(s.UnitOfWork, logger)
	s.Numbers = service.NewNumberGenerator(sequence, cfg.Billing.InvoicePrefix, cfg.Billing.CertificatePrefix, loc)
	s.Grantor = service.NewEntitlementGrantor(s.Vouchers, s.Numbers, logger)
	s.Enrollments = service.NewEnrollmentService(s.UnitOfWork)
	s.Sweeper = service.NewExpirationSweeper(s.UnitOfWork, lockStore, cfg.Sweeper.LockTTL, cfg.Sweeper.Timeout, logger)

	var documents service.DocumentQueue
	if redisClient != nil && cfg.Storage.Enabled {
		s3, err := storage.NewS3(ctx, storage.S3Config{
			Region:          cfg.Storage.Region,
			AccessKeyID:     cfg.Storage.AccessKey,
			SecretAccessKey: cfg.Storage.SecretKey,
			Bucket:          cfg.Storage.Bucket,
			Endpoint:        cfg.Storage.Endpoint,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("s3: %w", err)
		}
		s.Queue = queue.NewQueue(redisClient, cfg.Worker.Queue, queue.Options{
			MaxRetries:   cfg.Worker.MaxRetries,
			RetryBackoff: cfg.Worker.RetryBackoff,
		}, logger)
		s.Documents = service.NewInvoiceDocumentService(s.UnitOfWork, s3, s.Notifications, logger)
		s.Processor = worker.NewInvoiceDocumentProcessor(s.Documents, s.Queue, logger)
		documents = s.Queue
	}

	s.Payments = service.NewPaymentService(
		s.UnitOfWork,
		s.Catalog,
		vnpay,
		s.Vouchers,
		s.Grantor,
		lockStore,
		s.Publisher,
		documents,
		s.Notifications,
		taxRate,
		logger,
	)
	return s, nil
}

// Close releases producer connections.
func (s *Services) Close() error {
	if s.Publisher != nil {
		return s.Publisher.Close()
	}
	return nil
}
