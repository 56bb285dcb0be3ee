package postgres

import (
	"context"
	"database/sql"
	"time"

	"lms/internal/domain"
	"lms/internal/repository"
)

// PaymentRepository is a PostgreSQL implementation of repository.PaymentRepository.
type PaymentRepository struct {
	q Querier
}

// NewPaymentRepository creates a new PostgreSQL payment repository.
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{q: db}
}

// NewPaymentRepositoryWithTx creates a payment repository using a transaction.
func NewPaymentRepositoryWithTx(tx *sql.Tx) *PaymentRepository {
	return &PaymentRepository{q: tx}
}

const paymentColumns = `
	id, txn_ref, user_id, purchase_type, item_id, voucher_code,
	original_price, discount_amount, base_amount, tax_amount, amount,
	status, method, enrollment_id, combo_enrollment_id,
	gateway_transaction_no, bank_code, response_code,
	confirmed_at, refunded_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row rowScanner) (*domain.Payment, error) {
	var p domain.Payment
	var voucherCode, enrollmentID, comboEnrollmentID sql.NullString
	var txnNo, bankCode, responseCode sql.NullString
	var confirmedAt, refundedAt sql.NullTime

	err := row.Scan(
		&p.ID,
		&p.TxnRef,
		&p.UserID,
		&p.PurchaseType,
		&p.ItemID,
		&voucherCode,
		&p.OriginalPrice,
		&p.DiscountAmount,
		&p.BaseAmount,
		&p.TaxAmount,
		&p.Amount,
		&p.Status,
		&p.Method,
		&enrollmentID,
		&comboEnrollmentID,
		&txnNo,
		&bankCode,
		&responseCode,
		&confirmedAt,
		&refundedAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.VoucherCode = voucherCode.String
	p.EnrollmentID = enrollmentID.String
	p.ComboEnrollmentID = comboEnrollmentID.String
	p.GatewayTransactionNo = txnNo.String
	p.BankCode = bankCode.String
	p.ResponseCode = responseCode.String
	if confirmedAt.Valid {
		p.ConfirmedAt = confirmedAt.Time
	}
	if refundedAt.Valid {
		p.RefundedAt = refundedAt.Time
	}
	return &p, nil
}

// Create persists a new payment.
func (r *PaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`

	_, err := r.q.ExecContext(ctx, query,
		payment.ID,
		payment.TxnRef,
		payment.UserID,
		payment.PurchaseType,
		payment.ItemID,
		nullString(payment.VoucherCode),
		payment.OriginalPrice,
		payment.DiscountAmount,
		payment.BaseAmount,
		payment.TaxAmount,
		payment.Amount,
		payment.Status,
		payment.Method,
		nullString(payment.EnrollmentID),
		nullString(payment.ComboEnrollmentID),
		nullString(payment.GatewayTransactionNo),
		nullString(payment.BankCode),
		nullString(payment.ResponseCode),
		nullTime(payment.ConfirmedAt),
		nullTime(payment.RefundedAt),
		payment.CreatedAt,
		payment.UpdatedAt,
	)

	return mapError(err)
}

// GetByID retrieves a payment by ID.
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`
	p, err := scanPayment(r.q.QueryRowContext(ctx, query, id))
	return p, mapError(err)
}

// GetByTxnRef retrieves a payment by its gateway reference.
func (r *PaymentRepository) GetByTxnRef(ctx context.Context, txnRef string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE txn_ref = $1`
	p, err := scanPayment(r.q.QueryRowContext(ctx, query, txnRef))
	return p, mapError(err)
}

// GetByTxnRefForUpdate locks the payment row for the rest of the transaction.
func (r *PaymentRepository) GetByTxnRefForUpdate(ctx context.Context, txnRef string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE txn_ref = $1 FOR UPDATE`
	p, err := scanPayment(r.q.QueryRowContext(ctx, query, txnRef))
	return p, mapError(err)
}

// Update persists status, gateway fields and timestamps. The entitlement link is
// never written here.
func (r *PaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	query := `
		UPDATE payments
		SET status = $1, method = $2, gateway_transaction_no = $3, bank_code = $4, response_code = $5,
		    confirmed_at = $6, refunded_at = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := r.q.ExecContext(ctx, query,
		payment.Status,
		payment.Method,
		nullString(payment.GatewayTransactionNo),
		nullString(payment.BankCode),
		nullString(payment.ResponseCode),
		nullTime(payment.ConfirmedAt),
		nullTime(payment.RefundedAt),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(result, repository.ErrNotFound)
}

// LinkEnrollment sets enrollment_id only when the payment has no link yet.
func (r *PaymentRepository) LinkEnrollment(ctx context.Context, paymentID, enrollmentID string, now time.Time) error {
	return r.link(ctx, "enrollment_id", paymentID, enrollmentID, now)
}

// LinkComboEnrollment sets combo_enrollment_id only when the payment has no link yet.
func (r *PaymentRepository) LinkComboEnrollment(ctx context.Context, paymentID, comboEnrollmentID string, now time.Time) error {
	return r.link(ctx, "combo_enrollment_id", paymentID, comboEnrollmentID, now)
}

func (r *PaymentRepository) link(ctx context.Context, column, paymentID, targetID string, now time.Time) error {
	query := `
		UPDATE payments SET ` + column + ` = $1, updated_at = $2
		WHERE id = $3 AND enrollment_id IS NULL AND combo_enrollment_id IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, targetID, now, paymentID)
	if err != nil {
		return mapError(err)
	}
	return expectAffected(result, repository.ErrConditionFailed)
}

// ListByUser returns a user's payments, newest first.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE user_id = $1 ORDER BY created_at DESC LIMIT 100`

	rows, err := r.q.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*domain.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
