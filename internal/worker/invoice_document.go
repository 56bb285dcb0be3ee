// Package worker runs background jobs taken from the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lms/internal/domain"
	"lms/internal/queue"
)

const dequeueTimeout = 5 * time.Second

// JobQueue is the part of queue.Queue the worker needs.
type JobQueue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
	RetryBackoff() time.Duration
}

// DocumentPublisher renders and stores one invoice document.
type DocumentPublisher interface {
	Publish(ctx context.Context, invoiceID string) (*domain.Invoice, error)
}

// Ensure queue.Queue implements JobQueue.
var _ JobQueue = (*queue.Queue)(nil)

// InvoiceDocumentProcessor processes invoice document jobs: render, upload to S3, store the URL.
type InvoiceDocumentProcessor struct {
	documents DocumentPublisher
	queue     JobQueue
	logger    *zap.Logger
}

// NewInvoiceDocumentProcessor creates an invoice document processor.
func NewInvoiceDocumentProcessor(documents DocumentPublisher, q JobQueue, logger *zap.Logger) *InvoiceDocumentProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceDocumentProcessor{documents: documents, queue: q, logger: logger}
}

// Process executes one invoice document job.
func (p *InvoiceDocumentProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeInvoiceDocument {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.InvoiceDocumentPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}
	if payload.InvoiceID == "" {
		return fmt.Errorf("job %s: missing invoice id", job.ID)
	}

	inv, err := p.documents.Publish(ctx, payload.InvoiceID)
	if err != nil {
		return fmt.Errorf("publish invoice %s: %w", payload.InvoiceID, err)
	}

	p.logger.Info("invoice document job completed",
		zap.String("job_id", job.ID),
		zap.String("invoice_id", inv.ID),
		zap.String("payment_id", payload.PaymentID),
	)
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *InvoiceDocumentProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("invoice document worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx, dequeueTimeout)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Int("attempt", job.Attempt), zap.Error(err))
			if reErr := p.queue.Retry(context.WithoutCancel(ctx), job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *InvoiceDocumentProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.queue.RetryBackoff())
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
