package repository

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when a write violates a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate entity")

	// ErrConditionFailed is returned when a conditional update matched no rows.
	ErrConditionFailed = errors.New("conditional update matched no rows")
)

// Unique constraints callers tell apart.
const (
	ConstraintInvoiceNumber  = "invoices_invoice_number_key"
	ConstraintInvoicePayment = "invoices_payment_id_key"
)

// DuplicateError names the unique constraint a write violated. It matches ErrDuplicate.
type DuplicateError struct {
	Constraint string
}

func (e *DuplicateError) Error() string {
	return ErrDuplicate.Error() + ": " + e.Constraint
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// IsDuplicateOn reports whether err violated the named unique constraint.
func IsDuplicateOn(err error, constraint string) bool {
	var dup *DuplicateError
	return errors.As(err, &dup) && dup.Constraint == constraint
}
