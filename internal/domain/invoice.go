package domain

import "time"

// InvoiceStatus represents the settlement state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "PENDING"
	InvoiceStatusPaid      InvoiceStatus = "PAID"
	InvoiceStatusCancelled InvoiceStatus = "CANCELLED"
)

// Invoice is the billing record issued for a confirmed payment.
// TotalAmount always equals BaseAmount + TaxAmount.
type Invoice struct {
	ID             string
	InvoiceNumber  string
	UserID         string
	PaymentID      string
	BaseAmount     int64
	DiscountAmount int64
	TaxAmount      int64
	TotalAmount    int64
	Status         InvoiceStatus

	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string

	DocumentURL string
	IssuedAt    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewPaidInvoice builds the invoice for a completed payment using its charged breakdown.
func NewPaidInvoice(id, number string, p *Payment, customer *User, now time.Time) *Invoice {
	inv := &Invoice{
		ID:             id,
		InvoiceNumber:  number,
		UserID:         p.UserID,
		PaymentID:      p.ID,
		BaseAmount:     p.BaseAmount,
		DiscountAmount: p.DiscountAmount,
		TaxAmount:      p.TaxAmount,
		TotalAmount:    p.BaseAmount + p.TaxAmount,
		Status:         InvoiceStatusPaid,
		IssuedAt:       now,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if customer != nil {
		inv.CustomerName = customer.FullName
		inv.CustomerEmail = customer.Email
		inv.CustomerPhone = customer.Phone
		inv.CustomerAddress = customer.Address
	}
	return inv
}

// Touch restamps the last-modified time.
func (i *Invoice) Touch(now time.Time) {
	i.UpdatedAt = now
}
