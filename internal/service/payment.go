package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lms/internal/domain"
	"lms/internal/events"
	"lms/internal/gateway"
	"lms/internal/redis"
	"lms/internal/repository"
)

const paymentLockTTL = 15 * time.Second

// Gateway builds and verifies signed gateway messages.
type Gateway interface {
	BuildSignedRequest(order gateway.Order) (*gateway.SignedRequest, error)
	VerifyCallback(params map[string]string) (*gateway.CallbackResult, error)
}

// DocumentQueue schedules invoice document rendering.
type DocumentQueue interface {
	EnqueueInvoiceDocument(ctx context.Context, invoiceID, paymentID string) error
}

// Ensure VNPay implements Gateway.
var _ Gateway = (*gateway.VNPay)(nil)

// PaymentService handles purchase initiation, gateway callbacks and refunds.
type PaymentService struct {
	uow       repository.UnitOfWork
	catalog   CatalogReader
	gateway   Gateway
	vouchers  *VoucherService
	grantor   *EntitlementGrantor
	lockStore redis.LockStoreInterface
	publisher events.Publisher
	documents DocumentQueue
	notifier  Notifier
	taxRate   decimal.Decimal
	logger    *zap.Logger
	now       Clock
}

// NewPaymentService creates a new PaymentService. catalog, lockStore, publisher,
// documents and notifier are optional.
func NewPaymentService(
	uow repository.UnitOfWork,
	catalog CatalogReader,
	gw Gateway,
	vouchers *VoucherService,
	grantor *EntitlementGrantor,
	lockStore redis.LockStoreInterface,
	publisher events.Publisher,
	documents DocumentQueue,
	notifier Notifier,
	taxRate decimal.Decimal,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = uow.Catalog()
	}
	return &PaymentService{
		uow:       uow,
		catalog:   catalog,
		gateway:   gw,
		vouchers:  vouchers,
		grantor:   grantor,
		lockStore: lockStore,
		publisher: publisher,
		documents: documents,
		notifier:  notifier,
		taxRate:   taxRate,
		logger:    logger,
		now:       systemClock,
	}
}

// SetClock replaces the time source.
func (s *PaymentService) SetClock(clock Clock) {
	s.now = clock
}

// CreatePaymentRequest contains the parameters for starting a purchase.
type CreatePaymentRequest struct {
	UserID       string
	PurchaseType domain.PurchaseType
	ItemID       string
	VoucherCode  string
	IPAddr       string
	BankCode     string // optional; preselects a bank on the gateway page
}

// CreatePaymentResponse contains the created payment and, for paid purchases,
// the URL the customer must follow.
type CreatePaymentResponse struct {
	Payment    *domain.Payment
	PaymentURL string
	Grant      *GrantResult // set for free purchases, which complete immediately
}

// CreatePayment prices a purchase and records a PENDING payment with a signed
// gateway request. When a voucher brings the total to zero the payment completes
// at once and the entitlement is granted in the same unit of work.
func (s *PaymentService) CreatePayment(ctx context.Context, req CreatePaymentRequest) (*CreatePaymentResponse, error) {
	// Validate input.
	if err := s.validateCreateRequest(req); err != nil {
		return nil, err
	}

	item, err := s.lookupItem(ctx, req.PurchaseType, req.ItemID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.checkNotEnrolled(ctx, req, now); err != nil {
		return nil, err
	}

	// Apply voucher. Bundles accept only vouchers without a course scope. A voucher
	// that discounts nothing is not attached, so it is never redeemed.
	var discount int64
	voucherCode := req.VoucherCode
	if voucherCode != "" {
		scope := ""
		if req.PurchaseType == domain.PurchaseTypeCourse {
			scope = item.ID
		}
		quote, err := s.vouchers.Quote(ctx, req.VoucherCode, scope, item.Price)
		if err != nil {
			return nil, err
		}
		if !quote.Valid {
			return nil, ErrVoucherInvalid
		}
		discount = quote.Discount
		if discount == 0 {
			voucherCode = ""
		}
	}

	base := item.Price - discount
	tax := s.Tax(base)

	txnRef := newTxnRef(now)

	payment := domain.NewPayment(uuid.New().String(), txnRef, now)
	payment.UserID = req.UserID
	payment.PurchaseType = req.PurchaseType
	payment.ItemID = item.ID
	payment.VoucherCode = voucherCode
	payment.OriginalPrice = item.Price
	payment.DiscountAmount = discount
	payment.BaseAmount = base
	payment.TaxAmount = tax
	payment.Amount = base + tax

	if payment.Amount == 0 {
		return s.completeFree(ctx, payment)
	}

	signed, err := s.gateway.BuildSignedRequest(gateway.Order{
		TxnRef:    txnRef,
		Amount:    payment.Amount,
		OrderInfo: orderInfo(item),
		IPAddr:    req.IPAddr,
		BankCode:  req.BankCode,
		CreatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}

	if err := payment.TransitionTo(domain.PaymentStatusPending, now); err != nil {
		return nil, err
	}
	if err := s.uow.Payments().Create(ctx, payment); err != nil {
		return nil, fmt.Errorf("create payment: %w", err)
	}

	s.logger.Info("payment created",
		zap.String("payment_id", payment.ID),
		zap.String("txn_ref", payment.TxnRef),
		zap.String("user_id", payment.UserID),
		zap.String("purchase_type", string(payment.PurchaseType)),
		zap.String("item_id", payment.ItemID),
		zap.Int64("amount", payment.Amount),
	)
	return &CreatePaymentResponse{Payment: payment, PaymentURL: signed.URL}, nil
}

// completeFree walks a zero-amount payment through PENDING to COMPLETED and grants
// the entitlement, all in one unit of work.
func (s *PaymentService) completeFree(ctx context.Context, payment *domain.Payment) (*CreatePaymentResponse, error) {
	payment.Method = domain.PaymentMethodFree

	var grant *GrantResult
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		now := s.now()
		if err := payment.TransitionTo(domain.PaymentStatusPending, now); err != nil {
			return err
		}
		if err := payment.TransitionTo(domain.PaymentStatusCompleted, now); err != nil {
			return err
		}
		if err := tx.Payments().Create(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		var err error
		grant, err = s.grantor.GrantTx(ctx, tx, payment)
		if err != nil {
			return err
		}
		return tx.Events().Create(ctx, s.newEvent(payment, payment.TxnRef, domain.EventTypeGrant, domain.PaymentEventProcessed, nil, nil))
	})
	if err != nil {
		if errors.Is(err, ErrVoucherExhausted) || errors.Is(err, ErrVoucherInvalid) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrEntitlementWriteFailed, err)
	}

	s.logger.Info("free purchase completed",
		zap.String("payment_id", payment.ID),
		zap.String("txn_ref", payment.TxnRef),
		zap.String("user_id", payment.UserID),
	)
	s.afterCompleted(ctx, payment, grant)
	return &CreatePaymentResponse{Payment: payment, Grant: grant}, nil
}

// CallbackResult is the outcome of processing one gateway callback.
type CallbackResult struct {
	Payment   *domain.Payment
	Outcome   gateway.Outcome
	Duplicate bool // the callback changed nothing
	Grant     *GrantResult
}

// HandleCallback verifies a server-to-server gateway notification and applies it.
//
// The payment row is locked for the whole unit of work. The first callback that
// confirms a payment also grants the entitlement; if that grant fails nothing is
// committed, a FAILED event is recorded and ErrEntitlementWriteFailed is returned
// so the gateway retries. Duplicate deliveries return a result with Duplicate set.
func (s *PaymentService) HandleCallback(ctx context.Context, params map[string]string) (*CallbackResult, error) {
	cb, err := s.gateway.VerifyCallback(params)
	if err != nil {
		s.logger.Warn("gateway callback rejected",
			zap.String("txn_ref", params[gateway.ParamTxnRef]),
			zap.Error(err),
		)
		s.recordEvent(ctx, nil, params[gateway.ParamTxnRef], domain.EventTypeIPN, domain.PaymentEventRejected, params, err)
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerificationFailed, err)
	}

	if s.lockStore != nil {
		name := redis.PaymentLockName(cb.TxnRef)
		token, ok, err := s.lockStore.Acquire(ctx, name, paymentLockTTL)
		switch {
		case err != nil:
			s.logger.Warn("payment lock unavailable", zap.String("txn_ref", cb.TxnRef), zap.Error(err))
		case !ok:
			return nil, ErrCallbackInProgress
		default:
			defer func() {
				if err := s.lockStore.Release(context.WithoutCancel(ctx), name, token); err != nil {
					s.logger.Warn("release payment lock", zap.String("txn_ref", cb.TxnRef), zap.Error(err))
				}
			}()
		}
	}

	result := &CallbackResult{Outcome: cb.Outcome}
	var previous domain.PaymentStatus
	err = s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		p, err := tx.Payments().GetByTxnRefForUpdate(ctx, cb.TxnRef)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("get payment %s: %w", cb.TxnRef, err)
		}
		result.Payment = p
		previous = p.Status

		if cb.Amount != p.Amount {
			return fmt.Errorf("%w: %w: got %d, want %d", ErrPaymentVerificationFailed, ErrAmountMismatch, cb.Amount, p.Amount)
		}

		target, ok := targetStatus(cb.Outcome)
		if !ok || p.IsNoop(target) {
			result.Duplicate = true
			return tx.Events().Create(ctx, s.newEvent(p, cb.TxnRef, domain.EventTypeIPN, domain.PaymentEventReceived, params, nil))
		}

		now := s.now()
		if p.Status == domain.PaymentStatusCreated && target != domain.PaymentStatusPending {
			if err := p.TransitionTo(domain.PaymentStatusPending, now); err != nil {
				return err
			}
		}
		if err := p.CanTransitionTo(target); err != nil {
			return err
		}

		p.GatewayTransactionNo = cb.TransactionNo
		p.BankCode = cb.BankCode
		p.ResponseCode = cb.ResponseCode
		if err := p.TransitionTo(target, now); err != nil {
			return err
		}
		if err := tx.Payments().Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		if target == domain.PaymentStatusCompleted {
			grant, err := s.grantor.GrantTx(ctx, tx, p)
			if err != nil {
				if errors.Is(err, ErrAlreadyGranted) {
					return err
				}
				return fmt.Errorf("%w: %w", ErrEntitlementWriteFailed, err)
			}
			result.Grant = grant
		}

		return tx.Events().Create(ctx, s.newEvent(p, cb.TxnRef, domain.EventTypeIPN, domain.PaymentEventProcessed, params, nil))
	})

	switch {
	case err == nil:
	case errors.Is(err, ErrAlreadyGranted):
		// Another delivery won the race and committed first.
		p, getErr := s.uow.Payments().GetByTxnRef(ctx, cb.TxnRef)
		if getErr != nil {
			return nil, fmt.Errorf("get payment %s: %w", cb.TxnRef, getErr)
		}
		return &CallbackResult{Payment: p, Outcome: cb.Outcome, Duplicate: true}, nil
	case errors.Is(err, ErrPaymentNotFound), errors.Is(err, ErrAmountMismatch):
		s.logger.Warn("gateway callback rejected", zap.String("txn_ref", cb.TxnRef), zap.Error(err))
		s.recordEvent(ctx, result.Payment, cb.TxnRef, domain.EventTypeIPN, domain.PaymentEventRejected, params, err)
		return nil, err
	case errors.Is(err, ErrInvalidTransition):
		s.logger.Warn("gateway callback conflicts with payment state",
			zap.String("txn_ref", cb.TxnRef),
			zap.String("status", string(previous)),
			zap.String("outcome", string(cb.Outcome)),
			zap.Error(err),
		)
		s.recordEvent(ctx, result.Payment, cb.TxnRef, domain.EventTypeIPN, domain.PaymentEventAnomaly, params, err)
		return nil, err
	default:
		s.logger.Error("gateway callback processing failed",
			zap.String("txn_ref", cb.TxnRef),
			zap.String("outcome", string(cb.Outcome)),
			zap.Error(err),
		)
		s.recordEvent(ctx, result.Payment, cb.TxnRef, domain.EventTypeIPN, domain.PaymentEventFailed, params, err)
		return nil, err
	}

	p := result.Payment
	if result.Duplicate {
		s.logger.Info("gateway callback already applied",
			zap.String("txn_ref", p.TxnRef),
			zap.String("status", string(p.Status)),
			zap.String("outcome", string(cb.Outcome)),
		)
		return result, nil
	}

	s.logger.Info("gateway callback applied",
		zap.String("txn_ref", p.TxnRef),
		zap.String("from", string(previous)),
		zap.String("to", string(p.Status)),
		zap.String("response_code", cb.ResponseCode),
	)
	switch p.Status {
	case domain.PaymentStatusCompleted:
		s.afterCompleted(ctx, p, result.Grant)
	case domain.PaymentStatusFailed:
		s.afterFailed(ctx, p)
	}
	return result, nil
}

// ReturnStatus is what the customer-facing return page shows.
type ReturnStatus string

const (
	ReturnStatusSuccess ReturnStatus = "SUCCESS"
	ReturnStatusFailed  ReturnStatus = "FAILED"
	ReturnStatusPending ReturnStatus = "PENDING"
)

// ReturnResult is the outcome of a customer redirect back from the gateway.
type ReturnResult struct {
	Payment *domain.Payment
	Status  ReturnStatus
	Outcome gateway.Outcome
}

// HandleReturn verifies the customer redirect and reports the stored payment
// state. It never changes the payment; only the server-to-server callback does.
func (s *PaymentService) HandleReturn(ctx context.Context, params map[string]string) (*ReturnResult, error) {
	cb, err := s.gateway.VerifyCallback(params)
	if err != nil {
		s.logger.Warn("gateway return rejected", zap.String("txn_ref", params[gateway.ParamTxnRef]), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrPaymentVerificationFailed, err)
	}

	p, err := s.uow.Payments().GetByTxnRef(ctx, cb.TxnRef)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("get payment %s: %w", cb.TxnRef, err)
	}
	if cb.Amount != p.Amount {
		return nil, fmt.Errorf("%w: %w: got %d, want %d", ErrPaymentVerificationFailed, ErrAmountMismatch, cb.Amount, p.Amount)
	}

	s.recordEvent(ctx, p, cb.TxnRef, domain.EventTypeReturn, domain.PaymentEventReceived, params, nil)

	result := &ReturnResult{Payment: p, Status: ReturnStatusPending, Outcome: cb.Outcome}
	switch p.Status {
	case domain.PaymentStatusCompleted:
		result.Status = ReturnStatusSuccess
	case domain.PaymentStatusFailed:
		result.Status = ReturnStatusFailed
	}
	return result, nil
}

// Refund moves a COMPLETED payment to REFUNDED. The refund itself is settled with
// the gateway out of band; the entitlement is kept.
func (s *PaymentService) Refund(ctx context.Context, paymentID, reason string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	var payment *domain.Payment
	err := s.uow.WithinTx(ctx, func(ctx context.Context, tx repository.Store) error {
		p, err := tx.Payments().GetByID(ctx, paymentID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("get payment %s: %w", paymentID, err)
		}
		p, err = tx.Payments().GetByTxnRefForUpdate(ctx, p.TxnRef)
		if err != nil {
			return fmt.Errorf("lock payment %s: %w", paymentID, err)
		}

		if err := p.TransitionTo(domain.PaymentStatusRefunded, s.now()); err != nil {
			return err
		}
		if err := tx.Payments().Update(ctx, p); err != nil {
			return fmt.Errorf("update payment: %w", err)
		}

		var reasonErr error
		if reason != "" {
			reasonErr = errors.New(reason)
		}
		payment = p
		return tx.Events().Create(ctx, s.newEvent(p, p.TxnRef, domain.EventTypeRefund, domain.PaymentEventProcessed, nil, reasonErr))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment refunded",
		zap.String("payment_id", payment.ID),
		zap.String("txn_ref", payment.TxnRef),
		zap.String("reason", reason),
	)
	s.publish(ctx, events.TypePaymentRefunded, payment, nil)
	if s.notifier != nil {
		s.notified("payment_refunded", payment.ID, s.notifier.NotifyPaymentRefunded(ctx, payment))
	}
	return payment, nil
}

// GetPayment retrieves a payment by ID.
func (s *PaymentService) GetPayment(ctx context.Context, paymentID string) (*domain.Payment, error) {
	if paymentID == "" {
		return nil, ErrInvalidPaymentID
	}

	p, err := s.uow.Payments().GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPayments returns a user's payments, newest first.
func (s *PaymentService) ListPayments(ctx context.Context, userID string) ([]*domain.Payment, error) {
	if userID == "" {
		return nil, ErrInvalidUserID
	}
	return s.uow.Payments().ListByUser(ctx, userID)
}

// Events returns the event log of a payment.
func (s *PaymentService) Events(ctx context.Context, txnRef string) ([]*domain.PaymentEvent, error) {
	return s.uow.Events().ListByTxnRef(ctx, txnRef)
}

// Tax returns the tax on base, rounded to whole VND.
func (s *PaymentService) Tax(base int64) int64 {
	if base <= 0 || s.taxRate.IsZero() {
		return 0
	}
	return decimal.NewFromInt(base).Mul(s.taxRate).Round(0).IntPart()
}

// validateCreateRequest validates the create payment request.
func (s *PaymentService) validateCreateRequest(req CreatePaymentRequest) error {
	if req.UserID == "" {
		return ErrInvalidUserID
	}
	if !req.PurchaseType.Valid() {
		return ErrInvalidPurchaseType
	}
	if req.ItemID == "" {
		return ErrInvalidItemID
	}
	return nil
}

func (s *PaymentService) lookupItem(ctx context.Context, t domain.PurchaseType, id string) (domain.CatalogItem, error) {
	var (
		item domain.CatalogItem
		err  error
	)
	switch t {
	case domain.PurchaseTypeCourse:
		var c *domain.Course
		if c, err = s.catalog.GetCourse(ctx, id); err == nil {
			item = c.Item()
		}
	case domain.PurchaseTypeCombo:
		var c *domain.Combo
		if c, err = s.catalog.GetCombo(ctx, id); err == nil {
			item = c.Item()
		}
	default:
		return item, ErrInvalidPurchaseType
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return item, ErrItemNotFound
		}
		return item, fmt.Errorf("get %s %s: %w", strings.ToLower(string(t)), id, err)
	}
	if item.Price < 0 {
		return item, ErrInvalidPrice
	}
	return item, nil
}

// checkNotEnrolled rejects a purchase of something the user can already access.
func (s *PaymentService) checkNotEnrolled(ctx context.Context, req CreatePaymentRequest, now time.Time) error {
	switch req.PurchaseType {
	case domain.PurchaseTypeCourse:
		e, err := s.uow.Enrollments().GetByStudentAndCourse(ctx, req.UserID, req.ItemID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("get enrollment: %w", err)
		}
		if e.Active(now) {
			return ErrAlreadyEnrolled
		}
	case domain.PurchaseTypeCombo:
		_, err := s.uow.ComboEnrollments().GetActiveByStudentAndCombo(ctx, req.UserID, req.ItemID, now)
		if err == nil {
			return ErrAlreadyEnrolled
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("get combo enrollment: %w", err)
		}
	}
	return nil
}

func (s *PaymentService) afterCompleted(ctx context.Context, p *domain.Payment, grant *GrantResult) {
	s.publish(ctx, events.TypePaymentCompleted, p, nil)
	if grant == nil {
		return
	}
	s.publish(ctx, events.TypeEntitlementGranted, p, grant)

	if s.documents != nil && grant.Invoice != nil {
		if err := s.documents.EnqueueInvoiceDocument(ctx, grant.Invoice.ID, p.ID); err != nil {
			s.logger.Error("enqueue invoice document",
				zap.String("invoice_id", grant.Invoice.ID),
				zap.String("payment_id", p.ID),
				zap.Error(err),
			)
		}
	}
	if s.notifier != nil {
		s.notified("payment_success", p.ID, s.notifier.NotifyPaymentSuccess(ctx, p))
		s.notified("entitlement_granted", p.ID, s.notifier.NotifyEntitlementGranted(ctx, grant))
	}
}

func (s *PaymentService) afterFailed(ctx context.Context, p *domain.Payment) {
	s.publish(ctx, events.TypePaymentFailed, p, nil)
	if s.notifier != nil {
		s.notified("payment_failed", p.ID, s.notifier.NotifyPaymentFailed(ctx, p))
	}
}

// notified logs a failed notification. Delivery never affects the payment outcome.
func (s *PaymentService) notified(kind, paymentID string, err error) {
	if err == nil {
		return
	}
	s.logger.Warn("notification failed",
		zap.String("notification", kind),
		zap.String("payment_id", paymentID),
		zap.Error(err),
	)
}

// publish sends a lifecycle event. Failures are logged; the database is the source of truth.
func (s *PaymentService) publish(ctx context.Context, eventType string, p *domain.Payment, grant *GrantResult) {
	if s.publisher == nil {
		return
	}
	event := events.PaymentEvent{
		Type:              eventType,
		PaymentID:         p.ID,
		TxnRef:            p.TxnRef,
		UserID:            p.UserID,
		PurchaseType:      string(p.PurchaseType),
		ItemID:            p.ItemID,
		Amount:            p.Amount,
		EnrollmentID:      p.EnrollmentID,
		ComboEnrollmentID: p.ComboEnrollmentID,
		OccurredAt:        s.now(),
	}
	if grant != nil && grant.Invoice != nil {
		event.InvoiceNumber = grant.Invoice.InvoiceNumber
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("publish payment event",
			zap.String("type", eventType),
			zap.String("txn_ref", p.TxnRef),
			zap.Error(err),
		)
	}
}

func (s *PaymentService) newEvent(p *domain.Payment, txnRef, eventType string, status domain.PaymentEventStatus, params map[string]string, cause error) *domain.PaymentEvent {
	event := &domain.PaymentEvent{
		ID:        uuid.New().String(),
		TxnRef:    txnRef,
		EventType: eventType,
		Status:    status,
		RawParams: params,
		CreatedAt: s.now(),
	}
	if p != nil {
		event.PaymentID = p.ID
	}
	if cause != nil {
		event.ErrorMessage = cause.Error()
	}
	return event
}

// recordEvent appends an event outside any unit of work. Failures are logged only.
func (s *PaymentService) recordEvent(ctx context.Context, p *domain.Payment, txnRef, eventType string, status domain.PaymentEventStatus, params map[string]string, cause error) {
	event := s.newEvent(p, txnRef, eventType, status, params, cause)
	if err := s.uow.Events().Create(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Error("record payment event",
			zap.String("txn_ref", txnRef),
			zap.String("status", string(status)),
			zap.Error(err),
		)
	}
}

// targetStatus maps a verified gateway outcome to the status it asks for.
// UNKNOWN asks for nothing.
func targetStatus(o gateway.Outcome) (domain.PaymentStatus, bool) {
	switch o {
	case gateway.OutcomeSuccess:
		return domain.PaymentStatusCompleted, true
	case gateway.OutcomeFailed:
		return domain.PaymentStatusFailed, true
	case gateway.OutcomePending:
		return domain.PaymentStatusPending, true
	default:
		return "", false
	}
}

// newTxnRef returns a gateway reference of the form YYYYMMDD + 12 hex chars.
func newTxnRef(now time.Time) string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return now.Format("20060102") + strings.ToUpper(id[:12])
}

func orderInfo(item domain.CatalogItem) string {
	return fmt.Sprintf("Thanh toan %s %s", strings.ToLower(string(item.Type)), item.ID)
}
