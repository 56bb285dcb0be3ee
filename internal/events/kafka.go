// Package events publishes payment lifecycle events after a unit of work commits.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Event types.
const (
	TypePaymentCompleted   = "payment.completed"
	TypePaymentFailed      = "payment.failed"
	TypePaymentRefunded    = "payment.refunded"
	TypeEntitlementGranted = "entitlement.granted"
)

// PaymentEvent is the message body written to the payment topic.
type PaymentEvent struct {
	Type              string    `json:"type"`
	PaymentID         string    `json:"payment_id"`
	TxnRef            string    `json:"txn_ref"`
	UserID            string    `json:"user_id"`
	PurchaseType      string    `json:"purchase_type"`
	ItemID            string    `json:"item_id"`
	Amount            int64     `json:"amount"`
	EnrollmentID      string    `json:"enrollment_id,omitempty"`
	ComboEnrollmentID string    `json:"combo_enrollment_id,omitempty"`
	InvoiceNumber     string    `json:"invoice_number,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
}

// Publisher sends payment events.
type Publisher interface {
	Publish(ctx context.Context, event PaymentEvent) error
	Close() error
}

// KafkaPublisher writes events to a single topic keyed by txn ref so that events
// of one payment stay ordered.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher connects to the brokers, retrying while Kafka starts up.
func NewKafkaPublisher(brokers []string, topic string, attempts int, backoff time.Duration, logger *zap.Logger) (*KafkaPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if attempts < 1 {
		attempts = 1
	}

	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Idempotent = true
	config.Net.MaxOpenRequests = 1

	var producer sarama.SyncProducer
	var err error
	for i := 1; i <= attempts; i++ {
		producer, err = sarama.NewSyncProducer(brokers, config)
		if err == nil {
			logger.Info("kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
			return NewKafkaPublisherWithProducer(producer, topic, logger), nil
		}
		logger.Warn("waiting for kafka", zap.Int("attempt", i), zap.Int("max_attempts", attempts), zap.Error(err))
		if i < attempts {
			time.Sleep(backoff)
		}
	}
	return nil, fmt.Errorf("start kafka producer: %w", err)
}

// NewKafkaPublisherWithProducer wraps an existing producer.
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

// Publish sends one event and waits for all in-sync replicas.
func (p *KafkaPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event.Type, err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.TxnRef),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.Type)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send %s event: %w", event.Type, err)
	}

	p.logger.Debug("published payment event",
		zap.String("type", event.Type),
		zap.String("txn_ref", event.TxnRef),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// LogPublisher logs events instead of sending them. Used when Kafka is disabled.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(ctx context.Context, event PaymentEvent) error {
	p.logger.Info("payment event",
		zap.String("type", event.Type),
		zap.String("payment_id", event.PaymentID),
		zap.String("txn_ref", event.TxnRef),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

var (
	_ Publisher = (*KafkaPublisher)(nil)
	_ Publisher = (*LogPublisher)(nil)
)
