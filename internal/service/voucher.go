package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lms/internal/domain"
	"lms/internal/repository"
)

// VoucherService validates, prices and redeems vouchers.
type VoucherService struct {
	uow    repository.UnitOfWork
	logger *zap.Logger
	now    Clock
}

// NewVoucherService creates a new VoucherService.
func NewVoucherService(uow repository.UnitOfWork, logger *zap.Logger) *VoucherService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VoucherService{uow: uow, logger: logger, now: systemClock}
}

// SetClock replaces the time source.
func (s *VoucherService) SetClock(clock Clock) {
	s.now = clock
}

// VoucherQuote is the outcome of applying a voucher to a price. Valid follows
// IsValid; a valid voucher below its minimum purchase quotes a zero discount.
type VoucherQuote struct {
	Code     string
	Valid    bool
	Discount int64
	Payable  int64
}

// IsValid reports whether the voucher exists, is active, is inside its window at
// now, has uses left and applies to courseID. An unknown code is not an error.
func (s *VoucherService) IsValid(ctx context.Context, code, courseID string, now time.Time) (bool, error) {
	v, err := s.lookup(ctx, code)
	if err != nil || v == nil {
		return false, err
	}
	return v.ValidFor(courseID, now), nil
}

// CalculateDiscount returns min(discount, price) for a valid voucher whose
// minimum purchase is met, otherwise 0.
func (s *VoucherService) CalculateDiscount(ctx context.Context, code, courseID string, originalPrice int64) (int64, error) {
	q, err := s.Quote(ctx, code, courseID, originalPrice)
	if err != nil {
		return 0, err
	}
	return q.Discount, nil
}

// Quote applies a voucher to a price.
func (s *VoucherService) Quote(ctx context.Context, code, courseID string, price int64) (*VoucherQuote, error) {
	if price < 0 {
		return nil, ErrInvalidPrice
	}
	quote := &VoucherQuote{Code: code, Payable: price}

	v, err := s.lookup(ctx, code)
	if err != nil || v == nil {
		return quote, err
	}
	if !v.ValidFor(courseID, s.now()) {
		return quote, nil
	}

	quote.Valid = true
	quote.Discount = v.DiscountFor(price)
	quote.Payable = price - quote.Discount
	return quote, nil
}

// RedeemRequest identifies one redemption.
type RedeemRequest struct {
	Code      string
	CourseID  string // empty for bundle purchases
	UserID    string
	PaymentID string
}

// Redeem consumes one use of a voucher in its own unit of work.
func (s *VoucherService) Redeem(ctx context.Context, req RedeemRequest) (*domain.VoucherUsage, error) {
	var usage *domain.VoucherUsage
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		var err error
		usage, err = s.RedeemTx(ctx, tx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return usage, nil
}

// RedeemTx re-checks validity, increments usage conditionally and records the
// usage, all inside the caller's unit of work.
func (s *VoucherService) RedeemTx(ctx context.Context, tx repository.Store, req RedeemRequest) (*domain.VoucherUsage, error) {
	if req.Code == "" {
		return nil, ErrInvalidVoucherCode
	}
	if req.UserID == "" {
		return nil, ErrInvalidUserID
	}

	now := s.now()
	v, err := tx.Vouchers().GetByCode(ctx, req.Code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrVoucherInvalid
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	if !v.AppliesTo(req.CourseID) {
		return nil, ErrVoucherInvalid
	}
	if v.UsageCount >= v.MaxUsage {
		return nil, ErrVoucherExhausted
	}
	if !v.ValidAt(now) {
		return nil, ErrVoucherInvalid
	}

	// IncrementUsage enforces the cap under concurrency; the checks above only
	// pick the error.
	if err := tx.Vouchers().IncrementUsage(ctx, v.ID, now); err != nil {
		if errors.Is(err, repository.ErrConditionFailed) {
			return nil, ErrVoucherExhausted
		}
		return nil, fmt.Errorf("increment voucher usage: %w", err)
	}

	usage := &domain.VoucherUsage{
		ID:        uuid.New().String(),
		VoucherID: v.ID,
		UserID:    req.UserID,
		CourseID:  req.CourseID,
		PaymentID: req.PaymentID,
		UsedAt:    now,
	}
	if err := tx.Vouchers().CreateUsage(ctx, usage); err != nil {
		return nil, fmt.Errorf("create voucher usage: %w", err)
	}

	s.logger.Info("voucher redeemed",
		zap.String("code", v.Code),
		zap.String("user_id", req.UserID),
		zap.String("payment_id", req.PaymentID),
		zap.Int("usage_count", v.UsageCount+1),
		zap.Int("max_usage", v.MaxUsage),
	)
	return usage, nil
}

func (s *VoucherService) lookup(ctx context.Context, code string) (*domain.Voucher, error) {
	if code == "" {
		return nil, nil
	}
	v, err := s.uow.Vouchers().GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get voucher: %w", err)
	}
	return v, nil
}
