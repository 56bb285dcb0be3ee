package postgres

import (
	"context"
	"database/sql"
	"time"

	"lms/internal/domain"
	"lms/internal/repository"
)

// VoucherRepository is a PostgreSQL implementation of repository.VoucherRepository.
type VoucherRepository struct {
	q Querier
}

// NewVoucherRepository creates a new PostgreSQL voucher repository.
func NewVoucherRepository(db *sql.DB) *VoucherRepository {
	return &VoucherRepository{q: db}
}

// NewVoucherRepositoryWithTx creates a voucher repository using a transaction.
func NewVoucherRepositoryWithTx(tx *sql.Tx) *VoucherRepository {
	return &VoucherRepository{q: tx}
}

// GetByCode retrieves a voucher by its code.
func (r *VoucherRepository) GetByCode(ctx context.Context, code string) (*domain.Voucher, error) {
	query := `
		SELECT id, code, discount_amount, minimum_purchase_amount, valid_from, valid_to,
		       max_usage, usage_count, active, course_id, created_at, updated_at
		FROM vouchers WHERE code = $1
	`

	var v domain.Voucher
	var courseID sql.NullString
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&v.ID,
		&v.Code,
		&v.DiscountAmount,
		&v.MinimumPurchaseAmount,
		&v.ValidFrom,
		&v.ValidTo,
		&v.MaxUsage,
		&v.UsageCount,
		&v.Active,
		&courseID,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	v.CourseID = courseID.String
	return &v, nil
}

// IncrementUsage consumes one use. The predicate is evaluated under the row lock
// taken by UPDATE, so concurrent redemptions can never exceed max_usage.
func (r *VoucherRepository) IncrementUsage(ctx context.Context, voucherID string, now time.Time) error {
	query := `
		UPDATE vouchers
		SET usage_count = usage_count + 1, updated_at = $2
		WHERE id = $1 AND usage_count < max_usage AND active
		  AND valid_from <= $2 AND valid_to > $2
	`

	result, err := r.q.ExecContext(ctx, query, voucherID, now)
	if err != nil {
		return err
	}
	return expectAffected(result, repository.ErrConditionFailed)
}

// CreateUsage records a redemption.
func (r *VoucherRepository) CreateUsage(ctx context.Context, u *domain.VoucherUsage) error {
	query := `
		INSERT INTO voucher_usages (id, voucher_id, user_id, course_id, payment_id, used_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.q.ExecContext(ctx, query,
		u.ID,
		u.VoucherID,
		u.UserID,
		nullString(u.CourseID),
		nullString(u.PaymentID),
		u.UsedAt,
	)
	return mapError(err)
}

// CountUsagesByPayment counts redemptions recorded for a payment.
func (r *VoucherRepository) CountUsagesByPayment(ctx context.Context, paymentID string) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM voucher_usages WHERE payment_id = $1`, paymentID).Scan(&n)
	return n, err
}
