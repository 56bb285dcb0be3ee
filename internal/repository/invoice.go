package repository

import (
	"context"
	"time"

	"lms/internal/domain"
)

// InvoiceRepository defines the persistence operations for invoices.
type InvoiceRepository interface {
	// Create persists a new invoice. Returns ErrDuplicate when the invoice number
	// or the payment is already taken; the enclosing unit of work stays usable.
	Create(ctx context.Context, invoice *domain.Invoice) error

	GetByID(ctx context.Context, id string) (*domain.Invoice, error)

	GetByPaymentID(ctx context.Context, paymentID string) (*domain.Invoice, error)

	// SetDocumentURL records where the rendered document was stored.
	SetDocumentURL(ctx context.Context, id, url string, now time.Time) error
}

// PaymentEventRepository appends to the payment event log.
type PaymentEventRepository interface {
	Create(ctx context.Context, event *domain.PaymentEvent) error

	ListByTxnRef(ctx context.Context, txnRef string) ([]*domain.PaymentEvent, error)
}

// CatalogRepository reads the collaborator data the payment engine depends on.
type CatalogRepository interface {
	GetCourse(ctx context.Context, id string) (*domain.Course, error)
	GetCombo(ctx context.Context, id string) (*domain.Combo, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
}
