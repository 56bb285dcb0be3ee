package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lms/internal/domain"
)

// PaymentEventRepository is a PostgreSQL implementation of repository.PaymentEventRepository.
type PaymentEventRepository struct {
	q Querier
}

// NewPaymentEventRepository creates a new PostgreSQL payment event repository.
func NewPaymentEventRepository(db *sql.DB) *PaymentEventRepository {
	return &PaymentEventRepository{q: db}
}

// NewPaymentEventRepositoryWithTx creates a payment event repository using a transaction.
func NewPaymentEventRepositoryWithTx(tx *sql.Tx) *PaymentEventRepository {
	return &PaymentEventRepository{q: tx}
}

// Create appends an event. Raw params are stored as JSONB.
func (r *PaymentEventRepository) Create(ctx context.Context, e *domain.PaymentEvent) error {
	raw, err := json.Marshal(e.RawParams)
	if err != nil {
		return fmt.Errorf("marshal raw params: %w", err)
	}

	query := `
		INSERT INTO payment_events (id, payment_id, txn_ref, event_type, status, raw_params, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err = r.q.ExecContext(ctx, query,
		e.ID,
		nullString(e.PaymentID),
		e.TxnRef,
		e.EventType,
		e.Status,
		raw,
		nullString(e.ErrorMessage),
		e.CreatedAt,
	)
	return mapError(err)
}

// ListByTxnRef returns the events of one gateway reference in arrival order.
func (r *PaymentEventRepository) ListByTxnRef(ctx context.Context, txnRef string) ([]*domain.PaymentEvent, error) {
	query := `
		SELECT id, payment_id, txn_ref, event_type, status, raw_params, error_message, created_at
		FROM payment_events WHERE txn_ref = $1 ORDER BY created_at ASC
	`

	rows, err := r.q.QueryContext(ctx, query, txnRef)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*domain.PaymentEvent
	for rows.Next() {
		var e domain.PaymentEvent
		var paymentID, errMsg sql.NullString
		var raw []byte
		if err := rows.Scan(&e.ID, &paymentID, &e.TxnRef, &e.EventType, &e.Status, &raw, &errMsg, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.PaymentID = paymentID.String
		e.ErrorMessage = errMsg.String
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &e.RawParams); err != nil {
				return nil, fmt.Errorf("unmarshal raw params: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
