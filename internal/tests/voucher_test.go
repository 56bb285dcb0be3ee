package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"lms/internal/domain"
	"lms/internal/repository"
	"lms/internal/service"
)

// ──────────────────────────────────────────────
// 1. VALIDITY AND DISCOUNTS
// ──────────────────────────────────────────────

func TestVoucherQuote_Rules(t *testing.T) {
	t.Parallel()

	uow := NewMockUnitOfWork()
	base := domain.Voucher{
		DiscountAmount: 50000,
		ValidFrom:      fixedNow.Add(-time.Hour),
		ValidTo:        fixedNow.Add(time.Hour),
		MaxUsage:       10,
		Active:         true,
	}
	add := func(code string, mod func(v *domain.Voucher)) {
		v := base
		v.Code = code
		if mod != nil {
			mod(&v)
		}
		uow.AddVoucher(&v)
	}
	add("OK", nil)
	add("INACTIVE", func(v *domain.Voucher) { v.Active = false })
	add("EARLY", func(v *domain.Voucher) { v.ValidFrom = fixedNow.Add(time.Minute) })
	add("ENDED", func(v *domain.Voucher) { v.ValidTo = fixedNow })
	add("STARTS_NOW", func(v *domain.Voucher) { v.ValidFrom = fixedNow })
	add("USED_UP", func(v *domain.Voucher) { v.UsageCount = 10 })
	add("SCOPED", func(v *domain.Voucher) { v.CourseID = "course-sql" })
	add("MINIMUM", func(v *domain.Voucher) { v.MinimumPurchaseAmount = 200000 })
	add("HUGE", func(v *domain.Voucher) { v.DiscountAmount = 1000000 })

	svc := service.NewVoucherService(uow, nil)
	svc.SetClock(fixedClock)

	testCases := []struct {
		code         string
		wantValid    bool
		wantDiscount int64
	}{
		{"OK", true, 50000},
		{"INACTIVE", false, 0},
		{"EARLY", false, 0},
		{"ENDED", false, 0},
		{"STARTS_NOW", true, 50000},
		{"USED_UP", false, 0},
		{"SCOPED", false, 0},
		{"MINIMUM", true, 0},
		{"HUGE", true, coursePrice},
		{"MISSING", false, 0},
	}

	for _, tc := range testCases {
		q, err := svc.Quote(context.Background(), tc.code, testCourseID, coursePrice)
		if err != nil {
			t.Fatalf("%s: expected no error, got: %v", tc.code, err)
		}
		if q.Valid != tc.wantValid {
			t.Errorf("%s: expected valid=%v, got %v", tc.code, tc.wantValid, q.Valid)
		}
		if q.Discount != tc.wantDiscount {
			t.Errorf("%s: expected discount %d, got %d", tc.code, tc.wantDiscount, q.Discount)
		}
		if q.Payable != coursePrice-tc.wantDiscount {
			t.Errorf("%s: expected payable %d, got %d", tc.code, coursePrice-tc.wantDiscount, q.Payable)
		}
	}

	if _, err := svc.Quote(context.Background(), "OK", testCourseID, -1); !errors.Is(err, service.ErrInvalidPrice) {
		t.Errorf("expected ErrInvalidPrice, got %v", err)
	}

	ok, err := svc.IsValid(context.Background(), "SCOPED", "course-sql", fixedNow)
	if err != nil || !ok {
		t.Errorf("expected scoped voucher to be valid for its course, got %v, %v", ok, err)
	}
}

// ──────────────────────────────────────────────
// 2. REDEMPTION
// ──────────────────────────────────────────────

func TestVoucherRedeem_ErrorSelection(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addVoucher("FULL", 10000, 1, "")
	h.addVoucher("SCOPED", 10000, 5, "course-sql")
	h.uow.AddVoucher(&domain.Voucher{
		Code:           "OFF",
		DiscountAmount: 10000,
		ValidFrom:      fixedNow.Add(-time.Hour),
		ValidTo:        fixedNow.Add(time.Hour),
		MaxUsage:       5,
	})

	if _, err := h.vouchers.Redeem(context.Background(), service.RedeemRequest{Code: "FULL", UserID: testUserID}); err != nil {
		t.Fatalf("expected first redemption to succeed, got: %v", err)
	}

	testCases := []struct {
		name    string
		req     service.RedeemRequest
		wantErr error
	}{
		{"exhausted", service.RedeemRequest{Code: "FULL", UserID: testUserID}, service.ErrVoucherExhausted},
		{"wrong course", service.RedeemRequest{Code: "SCOPED", CourseID: testCourseID, UserID: testUserID}, service.ErrVoucherInvalid},
		{"inactive", service.RedeemRequest{Code: "OFF", UserID: testUserID}, service.ErrVoucherInvalid},
		{"unknown", service.RedeemRequest{Code: "NOPE", UserID: testUserID}, service.ErrVoucherInvalid},
		{"empty code", service.RedeemRequest{UserID: testUserID}, service.ErrInvalidVoucherCode},
		{"empty user", service.RedeemRequest{Code: "SCOPED"}, service.ErrInvalidUserID},
	}

	for _, tc := range testCases {
		if _, err := h.vouchers.Redeem(context.Background(), tc.req); !errors.Is(err, tc.wantErr) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
	}

	if h.uow.UsageCount() != 1 {
		t.Errorf("expected only the first redemption to be recorded, got %d", h.uow.UsageCount())
	}
}

func TestVoucherRedeem_ConcurrentLastUse_OneWinner(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addVoucher("LAST", 10000, 1, "")

	const buyers = 10
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded, exhausted := 0, 0

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := h.vouchers.Redeem(context.Background(), service.RedeemRequest{
				Code:      "LAST",
				UserID:    fmt.Sprintf("user-%d", i),
				PaymentID: fmt.Sprintf("payment-%d", i),
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, service.ErrVoucherExhausted):
				exhausted++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if succeeded != 1 {
		t.Errorf("expected exactly 1 redemption, got %d", succeeded)
	}
	if exhausted != buyers-1 {
		t.Errorf("expected %d exhausted, got %d", buyers-1, exhausted)
	}
	if v := h.uow.Voucher("LAST"); v.UsageCount != 1 {
		t.Errorf("expected usage count 1, got %d", v.UsageCount)
	}
	if h.uow.UsageCount() != 1 {
		t.Errorf("expected 1 usage row, got %d", h.uow.UsageCount())
	}
}

func TestVoucherRedeem_LostIncrement_MapsToExhausted(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addVoucher("RACE", 10000, 3, "")
	h.uow.FailOn(OpVoucherIncrement, repository.ErrConditionFailed, 1)

	_, err := h.vouchers.Redeem(context.Background(), service.RedeemRequest{Code: "RACE", UserID: testUserID})
	if !errors.Is(err, service.ErrVoucherExhausted) {
		t.Errorf("expected ErrVoucherExhausted, got %v", err)
	}
	if h.uow.UsageCount() != 0 {
		t.Error("expected no usage row")
	}
}
