package service

import (
	"errors"

	"lms/internal/domain"
)

var (
	// ErrVoucherInvalid is returned when a voucher does not exist, is inactive, is
	// outside its window, does not apply to the item or the price is below its minimum.
	ErrVoucherInvalid = errors.New("voucher invalid")

	// ErrVoucherExhausted is returned when a voucher has reached its usage cap.
	ErrVoucherExhausted = errors.New("voucher exhausted")

	// ErrPaymentVerificationFailed is returned when a gateway callback fails
	// signature, field or amount verification.
	ErrPaymentVerificationFailed = errors.New("payment verification failed")

	// ErrAmountMismatch is returned alongside ErrPaymentVerificationFailed when the
	// callback amount differs from the charged amount.
	ErrAmountMismatch = errors.New("callback amount does not match payment")

	// ErrInvalidTransition is returned when a payment status change is not allowed.
	ErrInvalidTransition = domain.ErrInvalidTransition

	// ErrEntitlementWriteFailed is returned when the atomic grant rolled back.
	// The payment stays unconfirmed and the gateway is expected to retry.
	ErrEntitlementWriteFailed = errors.New("entitlement write failed")

	// ErrNumberGenerationCollision is returned when no unique document number
	// could be allocated within the retry bound.
	ErrNumberGenerationCollision = errors.New("document number collision")

	// ErrAlreadyGranted is returned when the payment already has an entitlement.
	ErrAlreadyGranted = errors.New("entitlement already granted")

	// ErrAlreadyEnrolled is returned when the user already owns the item being purchased.
	ErrAlreadyEnrolled = errors.New("already enrolled")

	// ErrCallbackInProgress is returned when another delivery of the same callback
	// holds the payment lock. The gateway retries.
	ErrCallbackInProgress = errors.New("callback already being processed")

	// ErrPaymentNotFound is returned when no payment matches an ID or txn ref.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrItemNotFound is returned when the purchased course or combo does not exist.
	ErrItemNotFound = errors.New("course or combo not found")

	// ErrInvalidPaymentID is returned when payment ID is empty.
	ErrInvalidPaymentID = errors.New("invalid payment id")

	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidItemID is returned when the course or combo ID is empty.
	ErrInvalidItemID = errors.New("invalid item id")

	// ErrInvalidPurchaseType is returned when purchase type is not COURSE or COMBO.
	ErrInvalidPurchaseType = errors.New("invalid purchase type")

	// ErrInvalidPrice is returned when a quoted price is negative.
	ErrInvalidPrice = errors.New("invalid price")

	// ErrInvalidVoucherCode is returned when voucher code is empty.
	ErrInvalidVoucherCode = errors.New("invalid voucher code")
)
