package repository

import (
	"context"
	"time"

	"lms/internal/domain"
)

// PaymentRepository defines the persistence operations for payments.
type PaymentRepository interface {
	// Create persists a new payment. Returns ErrDuplicate when the txn ref is taken.
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by ID.
	GetByID(ctx context.Context, id string) (*domain.Payment, error)

	// GetByTxnRef retrieves a payment by its gateway reference.
	GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error)

	// GetByTxnRefForUpdate is GetByTxnRef with a row lock held until the unit of work ends.
	GetByTxnRefForUpdate(ctx context.Context, txnRef string) (*domain.Payment, error)

	// Update persists status, gateway fields and timestamps.
	Update(ctx context.Context, payment *domain.Payment) error

	// LinkEnrollment sets the course entitlement link only when no link exists.
	// Returns ErrConditionFailed when the payment is already linked.
	LinkEnrollment(ctx context.Context, paymentID, enrollmentID string, now time.Time) error

	// LinkComboEnrollment is LinkEnrollment for bundle entitlements.
	LinkComboEnrollment(ctx context.Context, paymentID, comboEnrollmentID string, now time.Time) error

	// ListByUser returns a user's payments, newest first.
	ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error)
}
