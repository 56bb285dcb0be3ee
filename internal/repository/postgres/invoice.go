package postgres

import (
	"context"
	"database/sql"
	"time"

	"lms/internal/domain"
	"lms/internal/repository"
)

// InvoiceRepository is a PostgreSQL implementation of repository.InvoiceRepository.
type InvoiceRepository struct {
	q    Querier
	inTx bool
}

// NewInvoiceRepository creates a new PostgreSQL invoice repository.
func NewInvoiceRepository(db *sql.DB) *InvoiceRepository {
	return &InvoiceRepository{q: db}
}

// NewInvoiceRepositoryWithTx creates an invoice repository using a transaction.
func NewInvoiceRepositoryWithTx(tx *sql.Tx) *InvoiceRepository {
	return &InvoiceRepository{q: tx, inTx: true}
}

const invoiceColumns = `
	id, invoice_number, user_id, payment_id, base_amount, discount_amount, tax_amount, total_amount, status,
	customer_name, customer_email, customer_phone, customer_address,
	document_url, issued_at, created_at, updated_at`

func scanInvoice(row rowScanner) (*domain.Invoice, error) {
	var inv domain.Invoice
	var paymentID, name, email, phone, address, documentURL sql.NullString

	if err := row.Scan(
		&inv.ID,
		&inv.InvoiceNumber,
		&inv.UserID,
		&paymentID,
		&inv.BaseAmount,
		&inv.DiscountAmount,
		&inv.TaxAmount,
		&inv.TotalAmount,
		&inv.Status,
		&name,
		&email,
		&phone,
		&address,
		&documentURL,
		&inv.IssuedAt,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inv.PaymentID = paymentID.String
	inv.CustomerName = name.String
	inv.CustomerEmail = email.String
	inv.CustomerPhone = phone.String
	inv.CustomerAddress = address.String
	inv.DocumentURL = documentURL.String
	return &inv, nil
}

// Create persists a new invoice. Inside a transaction the insert runs under a
// savepoint so a unique violation leaves the transaction usable for a retry.
func (r *InvoiceRepository) Create(ctx context.Context, inv *domain.Invoice) error {
	if !r.inTx {
		return r.insert(ctx, inv)
	}

	if _, err := r.q.ExecContext(ctx, `SAVEPOINT invoice_insert`); err != nil {
		return err
	}
	if err := r.insert(ctx, inv); err != nil {
		if _, rbErr := r.q.ExecContext(ctx, `ROLLBACK TO SAVEPOINT invoice_insert`); rbErr != nil {
			return rbErr
		}
		return err
	}
	_, err := r.q.ExecContext(ctx, `RELEASE SAVEPOINT invoice_insert`)
	return err
}

func (r *InvoiceRepository) insert(ctx context.Context, inv *domain.Invoice) error {
	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := r.q.ExecContext(ctx, query,
		inv.ID,
		inv.InvoiceNumber,
		inv.UserID,
		nullString(inv.PaymentID),
		inv.BaseAmount,
		inv.DiscountAmount,
		inv.TaxAmount,
		inv.TotalAmount,
		inv.Status,
		nullString(inv.CustomerName),
		nullString(inv.CustomerEmail),
		nullString(inv.CustomerPhone),
		nullString(inv.CustomerAddress),
		nullString(inv.DocumentURL),
		inv.IssuedAt,
		inv.CreatedAt,
		inv.UpdatedAt,
	)
	return mapError(err)
}

// GetByID retrieves an invoice by ID.
func (r *InvoiceRepository) GetByID(ctx context.Context, id string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	inv, err := scanInvoice(r.q.QueryRowContext(ctx, query, id))
	return inv, mapError(err)
}

// GetByPaymentID retrieves the invoice issued for a payment.
func (r *InvoiceRepository) GetByPaymentID(ctx context.Context, paymentID string) (*domain.Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE payment_id = $1`
	inv, err := scanInvoice(r.q.QueryRowContext(ctx, query, paymentID))
	return inv, mapError(err)
}

// SetDocumentURL records the rendered document location.
func (r *InvoiceRepository) SetDocumentURL(ctx context.Context, id, url string, now time.Time) error {
	result, err := r.q.ExecContext(ctx,
		`UPDATE invoices SET document_url = $1, updated_at = $2 WHERE id = $3`,
		url, now, id,
	)
	if err != nil {
		return err
	}
	return expectAffected(result, repository.ErrNotFound)
}
