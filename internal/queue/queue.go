// Package queue is a Redis list backed job queue with retry and dead-lettering.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultMaxRetries is the number of attempts before a job moves to the DLQ.
	DefaultMaxRetries = 3
	// DefaultRetryBackoff is the delay between retries.
	DefaultRetryBackoff = 10 * time.Second

	dlqSuffix = ":dlq"
)

// JobType identifies the job kind.
type JobType string

const (
	JobTypeInvoiceDocument JobType = "invoice_document"
)

// InvoiceDocumentPayload is the payload for invoice document jobs.
type InvoiceDocumentPayload struct {
	InvoiceID string `json:"invoice_id"`
	PaymentID string `json:"payment_id"`
}

// Job is a generic job envelope.
type Job struct {
	ID        string          `json:"id"`
	Type      JobType         `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Attempt   int             `json:"attempt"`
	CreatedAt time.Time       `json:"created_at"`
}

// Options tune retry behaviour.
type Options struct {
	MaxRetries   int
	RetryBackoff time.Duration
}

// Queue enqueues and dequeues jobs on one Redis list.
type Queue struct {
	client *redis.Client
	name   string
	opts   Options
	logger *zap.Logger
}

// NewQueue creates a Redis-backed job queue stored under name.
func NewQueue(client *redis.Client, name string, opts Options, logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = DefaultMaxRetries
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &Queue{client: client, name: name, opts: opts, logger: logger}
}

// RetryBackoff returns the configured delay between attempts.
func (q *Queue) RetryBackoff() time.Duration {
	return q.opts.RetryBackoff
}

// EnqueueInvoiceDocument schedules rendering and upload of an invoice document.
func (q *Queue) EnqueueInvoiceDocument(ctx context.Context, invoiceID, paymentID string) error {
	return q.enqueue(ctx, JobTypeInvoiceDocument, InvoiceDocumentPayload{InvoiceID: invoiceID, PaymentID: paymentID})
}

func (q *Queue) enqueue(ctx context.Context, jobType JobType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	job := Job{
		ID:        uuid.New().String(),
		Type:      jobType,
		Payload:   body,
		CreatedAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.RPush(ctx, q.name, raw).Err(); err != nil {
		return fmt.Errorf("rpush: %w", err)
	}
	q.logger.Debug("enqueued job", zap.String("job_id", job.ID), zap.String("type", string(jobType)))
	return nil
}

// Dequeue blocks up to timeout for a job. It returns nil, nil on timeout or on an
// unparsable entry.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (*Job, error) {
	result, err := q.client.BLPop(ctx, timeout, q.name).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}
	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		q.logger.Warn("invalid job payload", zap.String("raw", result[1]), zap.Error(err))
		return nil, nil
	}
	return &job, nil
}

// Retry re-enqueues a job with an incremented attempt, or moves it to the DLQ
// once the attempt reaches MaxRetries.
func (q *Queue) Retry(ctx context.Context, job *Job) error {
	job.Attempt++
	raw, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if job.Attempt >= q.opts.MaxRetries {
		if err := q.client.RPush(ctx, q.name+dlqSuffix, raw).Err(); err != nil {
			q.logger.Error("dlq push failed", zap.Error(err), zap.String("job_id", job.ID))
			return err
		}
		q.logger.Warn("job moved to DLQ", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
		return nil
	}
	if err := q.client.RPush(ctx, q.name, raw).Err(); err != nil {
		return err
	}
	q.logger.Info("job retried", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt))
	return nil
}
