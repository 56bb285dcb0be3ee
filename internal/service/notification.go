package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"lms/internal/domain"
)

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationPaymentSuccess     NotificationType = "PAYMENT_SUCCESS"
	NotificationPaymentFailed      NotificationType = "PAYMENT_FAILED"
	NotificationPaymentRefunded    NotificationType = "PAYMENT_REFUNDED"
	NotificationEnrollmentGranted  NotificationType = "ENROLLMENT_GRANTED"
	NotificationComboEnrollmentSet NotificationType = "COMBO_ENROLLMENT_GRANTED"
	NotificationInvoiceReady       NotificationType = "INVOICE_READY"
)

// Notification represents a notification to be sent.
type Notification struct {
	Type        NotificationType
	RecipientID string
	Title       string
	Message     string
	Data        map[string]interface{}
	CreatedAt   time.Time
}

// Notifier delivers customer-facing notifications.
type Notifier interface {
	NotifyPaymentSuccess(ctx context.Context, payment *domain.Payment) error
	NotifyPaymentFailed(ctx context.Context, payment *domain.Payment) error
	NotifyPaymentRefunded(ctx context.Context, payment *domain.Payment) error
	NotifyEntitlementGranted(ctx context.Context, grant *GrantResult) error
	NotifyInvoiceReady(ctx context.Context, invoice *domain.Invoice) error
}

var _ Notifier = (*NotificationService)(nil)

// NotificationService handles notification delivery.
type NotificationService struct {
	logger *zap.Logger
	now    Clock
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{logger: logger, now: systemClock}
}

// NotifyPaymentSuccess notifies the student of a confirmed payment.
func (s *NotificationService) NotifyPaymentSuccess(ctx context.Context, payment *domain.Payment) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentSuccess,
		RecipientID: payment.UserID,
		Title:       "Payment Successful",
		Message:     fmt.Sprintf("Payment of %s was successful", formatVND(payment.Amount)),
		Data: map[string]interface{}{
			"payment_id": payment.ID,
			"txn_ref":    payment.TxnRef,
			"amount":     payment.Amount,
		},
	})
}

// NotifyPaymentFailed notifies the student of a failed payment.
func (s *NotificationService) NotifyPaymentFailed(ctx context.Context, payment *domain.Payment) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentFailed,
		RecipientID: payment.UserID,
		Title:       "Payment Failed",
		Message:     fmt.Sprintf("Payment of %s failed. Please try again.", formatVND(payment.Amount)),
		Data: map[string]interface{}{
			"payment_id":    payment.ID,
			"response_code": payment.ResponseCode,
		},
	})
}

// NotifyPaymentRefunded notifies the student of a refund.
func (s *NotificationService) NotifyPaymentRefunded(ctx context.Context, payment *domain.Payment) error {
	return s.send(ctx, Notification{
		Type:        NotificationPaymentRefunded,
		RecipientID: payment.UserID,
		Title:       "Payment Refunded",
		Message:     fmt.Sprintf("Payment of %s has been refunded", formatVND(payment.Amount)),
		Data: map[string]interface{}{
			"payment_id": payment.ID,
		},
	})
}

// NotifyEntitlementGranted notifies the student that access was granted.
func (s *NotificationService) NotifyEntitlementGranted(ctx context.Context, grant *GrantResult) error {
	switch {
	case grant.Enrollment != nil:
		e := grant.Enrollment
		return s.send(ctx, Notification{
			Type:        NotificationEnrollmentGranted,
			RecipientID: e.StudentID,
			Title:       "Enrollment Confirmed",
			Message:     "You now have access to your course",
			Data: map[string]interface{}{
				"enrollment_id": e.ID,
				"course_id":     e.CourseID,
				"expires_at":    e.ExpiresAt,
			},
		})
	case grant.ComboEnrollment != nil:
		c := grant.ComboEnrollment
		return s.send(ctx, Notification{
			Type:        NotificationComboEnrollmentSet,
			RecipientID: c.StudentID,
			Title:       "Bundle Enrollment Confirmed",
			Message:     "You now have access to every course in your bundle",
			Data: map[string]interface{}{
				"combo_enrollment_id": c.ID,
				"combo_id":            c.ComboID,
				"expiration_date":     c.ExpirationDate,
			},
		})
	}
	return nil
}

// NotifyInvoiceReady notifies the student that the invoice document is available.
func (s *NotificationService) NotifyInvoiceReady(ctx context.Context, invoice *domain.Invoice) error {
	return s.send(ctx, Notification{
		Type:        NotificationInvoiceReady,
		RecipientID: invoice.UserID,
		Title:       "Invoice Ready",
		Message:     fmt.Sprintf("Your invoice %s for %s is ready", invoice.InvoiceNumber, formatVND(invoice.TotalAmount)),
		Data: map[string]interface{}{
			"invoice_id":     invoice.ID,
			"invoice_number": invoice.InvoiceNumber,
			"document_url":   invoice.DocumentURL,
		},
	})
}

// send delivers a notification. Delivery channels are external; the service logs.
func (s *NotificationService) send(ctx context.Context, notification Notification) error {
	notification.CreatedAt = s.now()

	s.logger.Info("notification",
		zap.String("type", string(notification.Type)),
		zap.String("recipient_id", notification.RecipientID),
		zap.String("title", notification.Title),
		zap.String("message", notification.Message),
	)
	return nil
}
