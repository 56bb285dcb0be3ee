package tests

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"lms/internal/config"
	"lms/internal/domain"
	"lms/internal/gateway"
	"lms/internal/repository"
	"lms/internal/service"
)

var fixedNow = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

var errDuplicateNumber = &repository.DuplicateError{Constraint: repository.ConstraintInvoiceNumber}

const (
	testUserID   = "user-1"
	testCourseID = "course-go"
	testComboID  = "combo-backend"
	coursePrice  = int64(150000)
	comboPrice   = int64(300000)
)

// harness wires the payment engine against in-memory stores and a real gateway signer.
type harness struct {
	uow       *MockUnitOfWork
	gw        *gateway.VNPay
	locks     *MockLockStore
	publisher *MockPublisher
	documents *MockDocumentQueue
	vouchers  *service.VoucherService
	numbers   *service.NumberGenerator
	grantor   *service.EntitlementGrantor
	payments  *service.PaymentService
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	gw, err := gateway.NewVNPay(config.GatewayConfig{
		TmnCode:    "LMSTEST1",
		HashSecret: "SECRETKEY123456",
		PayURL:     "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "https://lms.example.com/return",
		Version:    "2.1.0",
		Command:    "pay",
		CurrCode:   "VND",
		Locale:     "vn",
		OrderType:  "other",
		Timezone:   "Asia/Ho_Chi_Minh",
		ExpireIn:   15 * time.Minute,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	uow := NewMockUnitOfWork()
	uow.AddCourse(&domain.Course{ID: testCourseID, Title: "Go co ban", Price: coursePrice, DurationDays: 365})
	uow.AddCourse(&domain.Course{ID: "course-sql", Title: "SQL", Price: 120000})
	uow.AddCombo(&domain.Combo{
		ID:           testComboID,
		Title:        "Backend",
		Price:        comboPrice,
		DurationDays: 180,
		CourseIDs:    []string{testCourseID, "course-sql"},
	})
	uow.AddUser(&domain.User{ID: testUserID, FullName: "Nguyen Van A", Email: "a@example.com"})

	h := &harness{
		uow:       uow,
		gw:        gw,
		locks:     NewMockLockStore(),
		publisher: NewMockPublisher(),
		documents: NewMockDocumentQueue(),
	}

	h.vouchers = service.NewVoucherService(uow, nil)
	h.vouchers.SetClock(fixedClock)
	h.numbers = service.NewNumberGenerator(service.NewMemorySequence(), "INV", "CERT", time.UTC)
	h.numbers.SetClock(fixedClock)
	h.grantor = service.NewEntitlementGrantor(h.vouchers, h.numbers, nil)
	h.grantor.SetClock(fixedClock)

	h.payments = service.NewPaymentService(
		uow,
		nil,
		gw,
		h.vouchers,
		h.grantor,
		h.locks,
		h.publisher,
		h.documents,
		service.NewNotificationService(nil),
		decimal.RequireFromString("0.1"),
		nil,
	)
	h.payments.SetClock(fixedClock)
	return h
}

// addVoucher seeds a voucher valid around fixedNow.
func (h *harness) addVoucher(code string, discount int64, maxUsage int, courseID string) {
	h.uow.AddVoucher(&domain.Voucher{
		Code:           code,
		DiscountAmount: discount,
		ValidFrom:      fixedNow.Add(-24 * time.Hour),
		ValidTo:        fixedNow.Add(24 * time.Hour),
		MaxUsage:       maxUsage,
		Active:         true,
		CourseID:       courseID,
	})
}

func (h *harness) createPending(t *testing.T, purchaseType domain.PurchaseType, itemID, voucherCode string) *domain.Payment {
	t.Helper()
	resp, err := h.payments.CreatePayment(context.Background(), service.CreatePaymentRequest{
		UserID:       testUserID,
		PurchaseType: purchaseType,
		ItemID:       itemID,
		VoucherCode:  voucherCode,
		IPAddr:       "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("expected no error creating payment, got: %v", err)
	}
	if resp.Payment.Status != domain.PaymentStatusPending {
		t.Fatalf("expected PENDING payment, got %s", resp.Payment.Status)
	}
	return resp.Payment
}

// callback builds a correctly signed gateway notification.
func (h *harness) callback(txnRef string, amount int64, responseCode string) map[string]string {
	status := responseCode
	if responseCode != "00" {
		status = "02"
	}
	params := map[string]string{
		"vnp_TmnCode":              "LMSTEST1",
		gateway.ParamTxnRef:        txnRef,
		gateway.ParamAmount:        strconv.FormatInt(amount*100, 10),
		gateway.ParamResponseCode:  responseCode,
		gateway.ParamTxnStatus:     status,
		gateway.ParamTransactionNo: "14000001",
		gateway.ParamBankCode:      "NCB",
		gateway.ParamPayDate:       "20240301160000",
		"vnp_OrderInfo":            "Thanh toan course " + testCourseID,
	}
	params[gateway.ParamSecureHash] = h.gw.Sign(params)
	return params
}
