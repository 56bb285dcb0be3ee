package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"

	"lms/internal/domain"
	"lms/internal/gateway"
	"lms/internal/handler"
	"lms/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestRouter(h *harness) *gin.Engine {
	payments := handler.NewPaymentHandler(h.payments)
	vouchers := handler.NewVoucherHandler(h.vouchers, h.uow.Catalog())
	enrollments := handler.NewEnrollmentHandler(service.NewEnrollmentService(h.uow))

	r := gin.New()
	v1 := r.Group("/v1")
	v1.GET("/vouchers/:code/validate", vouchers.Validate)
	v1.POST("/payments", payments.CreatePayment)
	v1.GET("/payments", payments.ListPayments)
	v1.GET("/payments/vnpay/ipn", payments.IPN)
	v1.GET("/payments/vnpay/return", payments.Return)
	v1.GET("/payments/:id", payments.GetPayment)
	v1.GET("/enrollments", enrollments.ListEnrollments)
	v1.GET("/enrollments/access", enrollments.CheckAccess)
	return r
}

func doRequest(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func ipnURL(params map[string]string) string {
	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	return "/v1/payments/vnpay/ipn?" + q.Encode()
}

func decodeIPN(t *testing.T, w *httptest.ResponseRecorder) handler.IPNResponse {
	t.Helper()
	if w.Code != http.StatusOK {
		t.Fatalf("expected IPN to always answer 200, got %d", w.Code)
	}
	var resp handler.IPNResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return resp
}

// ──────────────────────────────────────────────
// 1. GATEWAY ACKNOWLEDGEMENTS
// ──────────────────────────────────────────────

func TestIPNHandler_ResponseCodes(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newTestRouter(h)
	p := h.createPending(t, domain.PurchaseTypeCourse, testCourseID, "")

	tampered := h.callback(p.TxnRef, p.Amount, "00")
	tampered[gateway.ParamBankCode] = "VCB"

	tests := []struct {
		name   string
		params map[string]string
		want   string
	}{
		{"bad signature", tampered, handler.RspInvalidSignature},
		{"unknown order", h.callback("20240301FFFFFFFFFFFF", p.Amount, "00"), handler.RspOrderNotFound},
		{"wrong amount", h.callback(p.TxnRef, p.Amount+1, "00"), handler.RspInvalidAmount},
		{"confirmed", h.callback(p.TxnRef, p.Amount, "00"), handler.RspConfirmSuccess},
		{"repeated", h.callback(p.TxnRef, p.Amount, "00"), handler.RspAlreadyConfirmed},
		{"late failure", h.callback(p.TxnRef, p.Amount, "24"), handler.RspAlreadyConfirmed},
	}

	// Order matters: the payment is confirmed part way through.
	for _, tt := range tests {
		resp := decodeIPN(t, doRequest(r, http.MethodGet, ipnURL(tt.params), nil))
		if resp.RspCode != tt.want {
			t.Errorf("%s: expected RspCode %s, got %s (%s)", tt.name, tt.want, resp.RspCode, resp.Message)
		}
	}
}

func TestIPNHandler_GrantFailureAsksForRetry(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newTestRouter(h)
	p := h.createPending(t, domain.PurchaseTypeCourse, testCourseID, "")
	h.uow.FailOn(OpEnrollmentCreate, errors.New("connection lost"), 1)

	resp := decodeIPN(t, doRequest(r, http.MethodGet, ipnURL(h.callback(p.TxnRef, p.Amount, "00")), nil))
	if resp.RspCode != handler.RspUnknownError {
		t.Errorf("expected RspCode 99, got %s", resp.RspCode)
	}
	if h.uow.Payment(p.ID).Status != domain.PaymentStatusPending {
		t.Error("expected payment to stay PENDING for the retry")
	}
}

func TestReturnHandler(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newTestRouter(h)
	p := h.createPending(t, domain.PurchaseTypeCourse, testCourseID, "")
	params := h.callback(p.TxnRef, p.Amount, "24")

	if _, err := h.payments.HandleCallback(context.Background(), params); err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	w := doRequest(r, http.MethodGet, "/v1/payments/vnpay/return?"+q.Encode(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp handler.ReturnResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Status != "FAILED" || resp.PaymentID != p.ID {
		t.Errorf("expected FAILED for %s, got %+v", p.ID, resp)
	}

	q.Set(gateway.ParamSecureHash, "00")
	if w := doRequest(r, http.MethodGet, "/v1/payments/vnpay/return?"+q.Encode(), nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for a forged return, got %d", w.Code)
	}
}

// ──────────────────────────────────────────────
// 2. PURCHASE API
// ──────────────────────────────────────────────

func TestCreatePaymentHandler(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addVoucher("USED", 10000, 0, "")
	r := newTestRouter(h)

	tests := []struct {
		name       string
		body       any
		wantStatus int
	}{
		{"created", handler.CreatePaymentRequest{UserID: testUserID, PurchaseType: "COURSE", ItemID: testCourseID}, http.StatusCreated},
		{"bad json", "not an object", http.StatusBadRequest},
		{"missing user", handler.CreatePaymentRequest{PurchaseType: "COURSE", ItemID: testCourseID}, http.StatusBadRequest},
		{"bad type", handler.CreatePaymentRequest{UserID: testUserID, PurchaseType: "BOOK", ItemID: testCourseID}, http.StatusBadRequest},
		{"unknown course", handler.CreatePaymentRequest{UserID: testUserID, PurchaseType: "COURSE", ItemID: "nope"}, http.StatusNotFound},
		{"invalid voucher", handler.CreatePaymentRequest{UserID: testUserID, PurchaseType: "COURSE", ItemID: testCourseID, VoucherCode: "USED"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		w := doRequest(r, http.MethodPost, "/v1/payments", tt.body)
		if w.Code != tt.wantStatus {
			t.Errorf("%s: expected %d, got %d (%s)", tt.name, tt.wantStatus, w.Code, w.Body.String())
		}
	}

	list := doRequest(r, http.MethodGet, "/v1/payments?user_id="+testUserID, nil)
	var payments []handler.PaymentResponse
	if err := json.Unmarshal(list.Body.Bytes(), &payments); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(payments) != 1 || payments[0].Amount != 165000 {
		t.Errorf("expected the one created payment, got %+v", payments)
	}

	if w := doRequest(r, http.MethodGet, "/v1/payments/"+payments[0].ID, nil); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/v1/payments/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
}

func TestVoucherValidateHandler(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.addVoucher("SAVE", 20000, 5, "")
	r := newTestRouter(h)

	w := doRequest(r, http.MethodGet, "/v1/vouchers/SAVE/validate?course_id="+testCourseID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var quote handler.VoucherQuoteResponse
	if err := json.Unmarshal(w.Body.Bytes(), &quote); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !quote.Valid || quote.Discount != 20000 || quote.Payable != coursePrice-20000 {
		t.Errorf("expected catalog-priced quote, got %+v", quote)
	}

	if w := doRequest(r, http.MethodGet, "/v1/vouchers/SAVE/validate?price=abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad price, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, "/v1/vouchers/SAVE/validate", nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without price, got %d", w.Code)
	}
}

func TestCheckAccessHandler(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	r := newTestRouter(h)
	h.uow.AddEnrollment(&domain.Enrollment{ID: "e-1", StudentID: testUserID, CourseID: testCourseID, EnrolledAt: fixedNow})

	w := doRequest(r, http.MethodGet, "/v1/enrollments/access?user_id="+testUserID+"&course_id="+testCourseID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp handler.AccessResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.HasAccess {
		t.Error("expected access")
	}

	if w := doRequest(r, http.MethodGet, "/v1/enrollments/access?course_id="+testCourseID, nil); w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 without user, got %d", w.Code)
	}
}
