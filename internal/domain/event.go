package domain

import "time"

// PaymentEventStatus is the outcome recorded for a gateway callback or grant attempt.
type PaymentEventStatus string

const (
	PaymentEventReceived  PaymentEventStatus = "RECEIVED"
	PaymentEventProcessed PaymentEventStatus = "PROCESSED"
	PaymentEventRejected  PaymentEventStatus = "REJECTED"
	PaymentEventFailed    PaymentEventStatus = "FAILED"
	PaymentEventAnomaly   PaymentEventStatus = "ANOMALY"
)

// Event types.
const (
	EventTypeIPN            = "vnpay.ipn"
	EventTypeReturn         = "vnpay.return"
	EventTypeGrant          = "entitlement.grant"
	EventTypeVoucherAnomaly = "voucher.redeem"
	EventTypeRefund         = "payment.refund"
)

// PaymentEvent is an append-only log entry. A charged payment whose entitlement
// write rolled back is recorded here with status FAILED.
type PaymentEvent struct {
	ID           string
	PaymentID    string
	TxnRef       string
	EventType    string
	Status       PaymentEventStatus
	RawParams    map[string]string
	ErrorMessage string
	CreatedAt    time.Time
}
