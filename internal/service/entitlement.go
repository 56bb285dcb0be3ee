package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lms/internal/domain"
	"lms/internal/repository"
)

// GrantResult describes what a successful grant wrote.
type GrantResult struct {
	Enrollment      *domain.Enrollment
	ComboEnrollment *domain.ComboEnrollment
	Invoice         *domain.Invoice
	VoucherUsage    *domain.VoucherUsage
}

// EntitlementGrantor turns a confirmed payment into an enrollment, an invoice and
// a voucher usage. It never opens its own transaction.
type EntitlementGrantor struct {
	vouchers *VoucherService
	numbers  *NumberGenerator
	logger   *zap.Logger
	now      Clock
}

// NewEntitlementGrantor creates a new EntitlementGrantor.
func NewEntitlementGrantor(vouchers *VoucherService, numbers *NumberGenerator, logger *zap.Logger) *EntitlementGrantor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntitlementGrantor{
		vouchers: vouchers,
		numbers:  numbers,
		logger:   logger,
		now:      systemClock,
	}
}

// SetClock replaces the time source.
func (g *EntitlementGrantor) SetClock(clock Clock) {
	g.now = clock
}

// GrantTx performs every entitlement write for p inside tx. p must be COMPLETED
// and, when called from callback processing, locked for update.
//
// It returns ErrAlreadyGranted when p is already linked to an entitlement. Any
// other error means the caller must roll back.
func (g *EntitlementGrantor) GrantTx(ctx context.Context, tx repository.Store, p *domain.Payment) (*GrantResult, error) {
	if p.Status != domain.PaymentStatusCompleted {
		return nil, fmt.Errorf("grant for %s payment: %w", p.Status, ErrInvalidTransition)
	}
	if p.HasEntitlement() {
		return nil, ErrAlreadyGranted
	}

	now := g.now()
	result := &GrantResult{}
	var voucherScope string

	switch p.PurchaseType {
	case domain.PurchaseTypeCourse:
		course, err := tx.Catalog().GetCourse(ctx, p.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get course %s: %w", p.ItemID, err)
		}
		e := domain.NewEnrollment(uuid.New().String(), p.UserID, course.ID, p.ID, course.DurationDays, now)
		if err := tx.Enrollments().Create(ctx, e); err != nil {
			return nil, linkError("create enrollment", err)
		}
		if err := tx.Payments().LinkEnrollment(ctx, p.ID, e.ID, now); err != nil {
			return nil, linkError("link enrollment", err)
		}
		p.EnrollmentID = e.ID
		result.Enrollment = e
		voucherScope = course.ID

	case domain.PurchaseTypeCombo:
		combo, err := tx.Catalog().GetCombo(ctx, p.ItemID)
		if err != nil {
			return nil, fmt.Errorf("get combo %s: %w", p.ItemID, err)
		}
		ce := domain.NewComboEnrollment(uuid.New().String(), p.UserID, combo.ID, p.ID, combo.DurationDays, now)
		if err := tx.ComboEnrollments().Create(ctx, ce); err != nil {
			return nil, linkError("create combo enrollment", err)
		}
		if err := tx.Payments().LinkComboEnrollment(ctx, p.ID, ce.ID, now); err != nil {
			return nil, linkError("link combo enrollment", err)
		}
		p.ComboEnrollmentID = ce.ID
		result.ComboEnrollment = ce

	default:
		return nil, fmt.Errorf("grant for purchase type %q: %w", p.PurchaseType, ErrInvalidPurchaseType)
	}
	p.Touch(now)

	if p.VoucherCode != "" {
		usage, err := g.vouchers.RedeemTx(ctx, tx, RedeemRequest{
			Code:      p.VoucherCode,
			CourseID:  voucherScope,
			UserID:    p.UserID,
			PaymentID: p.ID,
		})
		switch {
		case err == nil:
			result.VoucherUsage = usage
		case p.Method == domain.PaymentMethodFree:
			// Nothing was charged, so the voucher is the only thing paying for access.
			return nil, err
		case errors.Is(err, ErrVoucherExhausted), errors.Is(err, ErrVoucherInvalid):
			// The customer already paid the discounted price; honour it.
			g.logger.Warn("voucher could not be redeemed for confirmed payment",
				zap.String("payment_id", p.ID),
				zap.String("txn_ref", p.TxnRef),
				zap.String("code", p.VoucherCode),
				zap.Error(err),
			)
			anomaly := &domain.PaymentEvent{
				ID:           uuid.New().String(),
				PaymentID:    p.ID,
				TxnRef:       p.TxnRef,
				EventType:    domain.EventTypeVoucherAnomaly,
				Status:       domain.PaymentEventAnomaly,
				ErrorMessage: err.Error(),
				CreatedAt:    now,
			}
			if err := tx.Events().Create(ctx, anomaly); err != nil {
				return nil, fmt.Errorf("record voucher anomaly: %w", err)
			}
		default:
			return nil, fmt.Errorf("redeem voucher: %w", err)
		}
	}

	customer, err := tx.Catalog().GetUser(ctx, p.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("get user %s: %w", p.UserID, err)
		}
		g.logger.Warn("invoice issued without customer snapshot", zap.String("user_id", p.UserID))
		customer = nil
	}

	_, err = g.numbers.WithInvoiceNumber(ctx, func(number string) error {
		result.Invoice = domain.NewPaidInvoice(uuid.New().String(), number, p, customer, now)
		return tx.Invoices().Create(ctx, result.Invoice)
	})
	if err != nil {
		if repository.IsDuplicateOn(err, repository.ConstraintInvoicePayment) {
			return nil, ErrAlreadyGranted
		}
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	g.logger.Info("entitlement granted",
		zap.String("payment_id", p.ID),
		zap.String("txn_ref", p.TxnRef),
		zap.String("purchase_type", string(p.PurchaseType)),
		zap.String("item_id", p.ItemID),
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
	)
	return result, nil
}

// linkError maps a lost race on the one-entitlement-per-payment constraint to ErrAlreadyGranted.
func linkError(op string, err error) error {
	if errors.Is(err, repository.ErrDuplicate) || errors.Is(err, repository.ErrConditionFailed) {
		return ErrAlreadyGranted
	}
	return fmt.Errorf("%s: %w", op, err)
}
