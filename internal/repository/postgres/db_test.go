package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"

	"lms/internal/repository"
)

func TestMapError(t *testing.T) {
	t.Parallel()

	other := errors.New("connection reset")
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"no rows", sql.ErrNoRows, repository.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", sql.ErrNoRows), repository.ErrNotFound},
		{"unique violation", &pq.Error{Code: "23505", Constraint: "invoices_invoice_number_key"}, repository.ErrDuplicate},
		{"other pq error", &pq.Error{Code: "23503"}, nil},
		{"other error", other, other},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mapError(tt.in)
			if tt.want == nil {
				if errors.Is(got, repository.ErrDuplicate) || errors.Is(got, repository.ErrNotFound) {
					t.Errorf("expected passthrough, got %v", got)
				}
				return
			}
			if !errors.Is(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}

	dup := mapError(&pq.Error{Code: "23505", Constraint: repository.ConstraintInvoicePayment})
	if !repository.IsDuplicateOn(dup, repository.ConstraintInvoicePayment) {
		t.Errorf("expected constraint to be preserved, got %v", dup)
	}
	if repository.IsDuplicateOn(dup, repository.ConstraintInvoiceNumber) {
		t.Error("expected invoice number constraint not to match")
	}

	if mapError(nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestNullHelpers(t *testing.T) {
	t.Parallel()

	if nullString("").Valid {
		t.Error("empty string should be NULL")
	}
	if !nullString("x").Valid {
		t.Error("non-empty string should be valid")
	}
	if nullTime(sql.NullTime{}.Time).Valid {
		t.Error("zero time should be NULL")
	}
}
