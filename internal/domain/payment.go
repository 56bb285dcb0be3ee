package domain

import (
	"errors"
	"fmt"
	"time"
)

// PaymentStatus represents the current status of a payment.
type PaymentStatus string

const (
	PaymentStatusCreated   PaymentStatus = "CREATED"
	PaymentStatusPending   PaymentStatus = "PENDING"
	PaymentStatusCompleted PaymentStatus = "COMPLETED"
	PaymentStatusFailed    PaymentStatus = "FAILED"
	PaymentStatusRefunded  PaymentStatus = "REFUNDED"
)

// PaymentMethod tags how a payment was settled.
type PaymentMethod string

const (
	PaymentMethodVNPay PaymentMethod = "VNPAY"
	PaymentMethodFree  PaymentMethod = "FREE"
)

// PurchaseType distinguishes a single course purchase from a bundle purchase.
type PurchaseType string

const (
	PurchaseTypeCourse PurchaseType = "COURSE"
	PurchaseTypeCombo  PurchaseType = "COMBO"
)

// Valid reports whether t is a known purchase type.
func (t PurchaseType) Valid() bool {
	return t == PurchaseTypeCourse || t == PurchaseTypeCombo
}

// ErrInvalidTransition is returned when a status change is not allowed by the payment lifecycle.
var ErrInvalidTransition = errors.New("invalid payment status transition")

// TransitionError describes a rejected transition. It matches ErrInvalidTransition with errors.Is.
type TransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("invalid payment status transition %s -> %s", e.From, e.To)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// Payment represents one monetary transaction with the gateway for a purchase.
// Amounts are whole VND.
type Payment struct {
	ID     string
	TxnRef string // unique reference sent to the gateway

	UserID       string
	PurchaseType PurchaseType
	ItemID       string // course or combo ID
	VoucherCode  string

	OriginalPrice  int64
	DiscountAmount int64
	BaseAmount     int64 // OriginalPrice - DiscountAmount
	TaxAmount      int64
	Amount         int64 // charged: BaseAmount + TaxAmount

	Status PaymentStatus
	Method PaymentMethod

	// Entitlement link. At most one is ever set and never changes afterwards.
	EnrollmentID      string
	ComboEnrollmentID string

	GatewayTransactionNo string
	BankCode             string
	ResponseCode         string

	ConfirmedAt time.Time
	RefundedAt  time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPayment stamps a new payment in CREATED state.
func NewPayment(id, txnRef string, now time.Time) *Payment {
	return &Payment{
		ID:        id,
		TxnRef:    txnRef,
		Status:    PaymentStatusCreated,
		Method:    PaymentMethodVNPay,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasEntitlement reports whether an enrollment has already been linked to this payment.
func (p *Payment) HasEntitlement() bool {
	return p.EnrollmentID != "" || p.ComboEnrollmentID != ""
}

// IsTerminal reports whether no gateway-driven transition can leave the current status.
func (p *Payment) IsTerminal() bool {
	switch p.Status {
	case PaymentStatusFailed, PaymentStatusRefunded:
		return true
	default:
		return false
	}
}

// CanTransitionTo validates a status change.
//
// Valid transitions are:
//   - CREATED → PENDING
//   - PENDING → COMPLETED, FAILED
//   - COMPLETED → REFUNDED
//
// Re-applying the current status is allowed for PENDING, COMPLETED and FAILED so
// that duplicate gateway callbacks are harmless; callers detect the no-op with
// IsNoop.
func (p *Payment) CanTransitionTo(target PaymentStatus) error {
	if p.IsNoop(target) {
		return nil
	}

	switch p.Status {
	case PaymentStatusCreated:
		if target == PaymentStatusPending {
			return nil
		}
	case PaymentStatusPending:
		if target == PaymentStatusCompleted || target == PaymentStatusFailed {
			return nil
		}
	case PaymentStatusCompleted:
		if target == PaymentStatusRefunded {
			return nil
		}
	}
	return &TransitionError{From: p.Status, To: target}
}

// IsNoop reports whether applying target would leave the payment unchanged.
func (p *Payment) IsNoop(target PaymentStatus) bool {
	if p.Status != target {
		return false
	}
	switch target {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed:
		return true
	default:
		return false
	}
}

// TransitionTo applies a validated status change and restamps UpdatedAt.
func (p *Payment) TransitionTo(target PaymentStatus, now time.Time) error {
	if err := p.CanTransitionTo(target); err != nil {
		return err
	}
	if p.IsNoop(target) {
		return nil
	}
	p.Status = target
	switch target {
	case PaymentStatusCompleted:
		p.ConfirmedAt = now
	case PaymentStatusRefunded:
		p.RefundedAt = now
	}
	p.Touch(now)
	return nil
}

// Touch restamps the last-modified time.
func (p *Payment) Touch(now time.Time) {
	p.UpdatedAt = now
}
