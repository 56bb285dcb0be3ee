package repository

import (
	"context"
	"time"

	"lms/internal/domain"
)

// VoucherRepository defines the persistence operations for vouchers and their usages.
type VoucherRepository interface {
	GetByCode(ctx context.Context, code string) (*domain.Voucher, error)

	// IncrementUsage adds one use only while the voucher is active, inside its
	// window and under its cap. Returns ErrConditionFailed otherwise.
	IncrementUsage(ctx context.Context, voucherID string, now time.Time) error

	CreateUsage(ctx context.Context, usage *domain.VoucherUsage) error

	CountUsagesByPayment(ctx context.Context, paymentID string) (int, error)
}
