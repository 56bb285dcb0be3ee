package service

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"lms/internal/domain"
	"lms/internal/repository"
	"lms/internal/storage"
)

// DocumentUploader stores a rendered document and returns its URL.
type DocumentUploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}

// InvoiceDocumentService renders invoices and publishes them to object storage.
type InvoiceDocumentService struct {
	store    repository.Store
	uploader DocumentUploader
	notifier Notifier
	logger   *zap.Logger
	now      Clock
}

// NewInvoiceDocumentService creates a new InvoiceDocumentService.
func NewInvoiceDocumentService(
	store repository.Store,
	uploader DocumentUploader,
	notifier Notifier,
	logger *zap.Logger,
) *InvoiceDocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceDocumentService{
		store:    store,
		uploader: uploader,
		notifier: notifier,
		logger:   logger,
		now:      systemClock,
	}
}

// SetClock replaces the time source.
func (s *InvoiceDocumentService) SetClock(clock Clock) {
	s.now = clock
}

// Publish renders the invoice, uploads it and records the URL. An invoice that
// already has a document is left alone.
func (s *InvoiceDocumentService) Publish(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	inv, err := s.store.Invoices().GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("get invoice %s: %w", invoiceID, err)
	}
	if inv.DocumentURL != "" {
		s.logger.Info("invoice document already published", zap.String("invoice_id", inv.ID))
		return inv, nil
	}

	var payment *domain.Payment
	if inv.PaymentID != "" {
		payment, err = s.store.Payments().GetByID(ctx, inv.PaymentID)
		if err != nil {
			return nil, fmt.Errorf("get payment %s: %w", inv.PaymentID, err)
		}
	}

	body := FormatInvoice(inv, payment)
	url, err := s.uploader.Upload(ctx, storage.InvoiceKey(inv.UserID, inv.InvoiceNumber), "text/plain; charset=utf-8", strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.store.Invoices().SetDocumentURL(ctx, inv.ID, url, now); err != nil {
		return nil, fmt.Errorf("set document url: %w", err)
	}
	inv.DocumentURL = url
	inv.Touch(now)

	if s.notifier != nil {
		if err := s.notifier.NotifyInvoiceReady(ctx, inv); err != nil {
			s.logger.Warn("notification failed",
				zap.String("notification", "invoice_ready"),
				zap.String("invoice_id", inv.ID),
				zap.Error(err),
			)
		}
	}
	s.logger.Info("invoice document published",
		zap.String("invoice_id", inv.ID),
		zap.String("invoice_number", inv.InvoiceNumber),
		zap.String("url", url),
	)
	return inv, nil
}

// FormatInvoice renders the invoice as plain text (for email/print).
func FormatInvoice(inv *domain.Invoice, payment *domain.Payment) string {
	method, txnRef, item := "-", "-", "-"
	if payment != nil {
		method = string(payment.Method)
		txnRef = payment.TxnRef
		item = string(payment.PurchaseType) + " " + payment.ItemID
	}

	return `
=====================================
            INVOICE
=====================================
Invoice No: ` + inv.InvoiceNumber + `
Issued:     ` + inv.IssuedAt.Format("Jan 02, 2006 3:04 PM") + `
Status:     ` + string(inv.Status) + `

BILL TO
-------------------------------------
Name:    ` + orDash(inv.CustomerName) + `
Email:   ` + orDash(inv.CustomerEmail) + `
Phone:   ` + orDash(inv.CustomerPhone) + `
Address: ` + orDash(inv.CustomerAddress) + `

ITEM
-------------------------------------
` + item + `

AMOUNT
-------------------------------------
Subtotal:   ` + formatVND(inv.BaseAmount+inv.DiscountAmount) + `
Discount:  -` + formatVND(inv.DiscountAmount) + `
Tax:        ` + formatVND(inv.TaxAmount) + `
-------------------------------------
TOTAL:      ` + formatVND(inv.TotalAmount) + `

PAYMENT
-------------------------------------
Method: ` + method + `
Ref:    ` + txnRef + `

=====================================
    Thank you for learning with us!
=====================================
`
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// formatVND renders whole dong with dot thousands separators, e.g. 150.000 VND.
func formatVND(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	digits := strconv.FormatInt(amount, 10)
	var b strings.Builder
	for i, r := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + " VND"
}
