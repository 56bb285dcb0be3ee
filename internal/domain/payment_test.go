package domain

import (
	"errors"
	"testing"
	"time"
)

func TestPayment_CanTransitionTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    PaymentStatus
		to      PaymentStatus
		wantErr bool
	}{
		{PaymentStatusCreated, PaymentStatusPending, false},
		{PaymentStatusCreated, PaymentStatusCompleted, true},
		{PaymentStatusCreated, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusCompleted, false},
		{PaymentStatusPending, PaymentStatusFailed, false},
		{PaymentStatusPending, PaymentStatusPending, false},
		{PaymentStatusPending, PaymentStatusRefunded, true},
		{PaymentStatusCompleted, PaymentStatusCompleted, false},
		{PaymentStatusCompleted, PaymentStatusFailed, true},
		{PaymentStatusCompleted, PaymentStatusRefunded, false},
		{PaymentStatusCompleted, PaymentStatusPending, true},
		{PaymentStatusFailed, PaymentStatusFailed, false},
		{PaymentStatusFailed, PaymentStatusCompleted, true},
		{PaymentStatusRefunded, PaymentStatusRefunded, true},
		{PaymentStatusRefunded, PaymentStatusCompleted, true},
	}

	for _, tt := range tests {
		p := &Payment{Status: tt.from}
		err := p.CanTransitionTo(tt.to)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("%s -> %s: expected ErrInvalidTransition, got %v", tt.from, tt.to, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s -> %s: unexpected error: %v", tt.from, tt.to, err)
		}
	}
}

func TestPayment_TransitionToStampsTimes(t *testing.T) {
	t.Parallel()

	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	p := NewPayment("pay-1", "REF1", created)
	if p.Status != PaymentStatusCreated {
		t.Fatalf("expected CREATED, got %s", p.Status)
	}

	later := created.Add(time.Minute)
	if err := p.TransitionTo(PaymentStatusPending, later); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	done := later.Add(time.Minute)
	if err := p.TransitionTo(PaymentStatusCompleted, done); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !p.ConfirmedAt.Equal(done) || !p.UpdatedAt.Equal(done) {
		t.Errorf("expected confirmed/updated at %v, got %v / %v", done, p.ConfirmedAt, p.UpdatedAt)
	}
	if !p.CreatedAt.Equal(created) {
		t.Errorf("created-at must not change, got %v", p.CreatedAt)
	}

	// Duplicate confirmation leaves timestamps alone.
	if err := p.TransitionTo(PaymentStatusCompleted, done.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error on duplicate: %v", err)
	}
	if !p.ConfirmedAt.Equal(done) {
		t.Errorf("duplicate confirmation must be a no-op, confirmed at %v", p.ConfirmedAt)
	}
}
