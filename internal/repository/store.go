package repository

import "context"

// Store exposes every repository bound to the same connection or transaction.
type Store interface {
	Payments() PaymentRepository
	Enrollments() EnrollmentRepository
	ComboEnrollments() ComboEnrollmentRepository
	Vouchers() VoucherRepository
	Invoices() InvoiceRepository
	Events() PaymentEventRepository
	Catalog() CatalogRepository
}

// UnitOfWork runs a group of writes atomically.
//
// WithinTx begins a transaction, hands fn a Store bound to it and commits when fn
// returns nil. Any error (or panic) from fn rolls every write back.
type UnitOfWork interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
}
