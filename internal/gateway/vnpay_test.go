package gateway

import (
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"lms/internal/config"
)

func testConfig() config.GatewayConfig {
	return config.GatewayConfig{
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
	}
}

func newTestVNPay(t *testing.T) *VNPay {
	t.Helper()
	v, err := NewVNPay(testConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return v
}

func signedCallback(v *VNPay, mod func(map[string]string)) map[string]string {
	params := map[string]string{
		"vnp_TmnCode":       "LMSTEST1",
		ParamTxnRef:         "REF123",
		ParamAmount:         "15000000",
		ParamResponseCode:   "00",
		ParamTxnStatus:      "00",
		ParamTransactionNo:  "14000001",
		ParamBankCode:       "NCB",
		ParamPayDate:        "20240101103000",
		"vnp_OrderInfo":     "Thanh toan khoa hoc Go co ban",
		ParamSecureHashType: "HmacSHA512",
	}
	if mod != nil {
		mod(params)
	}
	params[ParamSecureHash] = v.Sign(params)
	return params
}

func TestBuildSignedRequest(t *testing.T) {
	t.Parallel()

	v := newTestVNPay(t)
	order := Order{
		TxnRef:    "REF123",
		Amount:    150000,
		OrderInfo: "Thanh toan khoa hoc",
		IPAddr:    "127.0.0.1",
		CreatedAt: time.Date(2024, 1, 1, 3, 0, 0, 0, time.UTC),
	}

	req, err := v.BuildSignedRequest(order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Params[ParamAmount] != "15000000" {
		t.Errorf("expected amount in minor units, got %s", req.Params[ParamAmount])
	}
	// 03:00 UTC is 10:00 in Asia/Ho_Chi_Minh.
	if req.Params["vnp_CreateDate"] != "20240101100000" {
		t.Errorf("expected create date in gateway timezone, got %s", req.Params["vnp_CreateDate"])
	}
	if req.Params["vnp_ExpireDate"] != "20240101101500" {
		t.Errorf("expected expire date 15 minutes later, got %s", req.Params["vnp_ExpireDate"])
	}
	if _, ok := req.Params[ParamBankCode]; ok {
		t.Error("bank code should be omitted when empty")
	}
	if !strings.HasPrefix(req.URL, testConfig().PayURL+"?") {
		t.Errorf("unexpected url %s", req.URL)
	}

	again, err := v.BuildSignedRequest(order)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.URL != req.URL {
		t.Error("signing must be deterministic")
	}

	// The URL must verify on the gateway side with the same secret.
	u, err := url.Parse(req.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	flat := map[string]string{}
	for k, vals := range u.Query() {
		flat[k] = vals[0]
	}
	if flat[ParamSecureHash] != v.Sign(flat) {
		t.Error("signature in URL does not match its parameters")
	}
}

func TestBuildSignedRequest_RejectsBadOrders(t *testing.T) {
	t.Parallel()

	v := newTestVNPay(t)
	now := time.Now()
	for _, o := range []Order{
		{Amount: 1000, CreatedAt: now},
		{TxnRef: "R", Amount: 0, CreatedAt: now},
		{TxnRef: "R", Amount: 1000},
	} {
		if _, err := v.BuildSignedRequest(o); !errors.Is(err, ErrInvalidOrder) {
			t.Errorf("expected ErrInvalidOrder for %+v, got %v", o, err)
		}
	}
}

func TestVerifyCallback_Valid(t *testing.T) {
	t.Parallel()

	v := newTestVNPay(t)
	res, err := v.VerifyCallback(signedCallback(v, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TxnRef != "REF123" || res.Amount != 150000 || res.Outcome != OutcomeSuccess {
		t.Errorf("unexpected result %+v", res)
	}

	// Duplicate deliveries verify identically.
	res2, err := v.VerifyCallback(signedCallback(v, nil))
	if err != nil || *res2 != *res {
		t.Errorf("expected identical result, got %+v, %v", res2, err)
	}
}

func TestVerifyCallback_TamperedFieldsRejected(t *testing.T) {
	t.Parallel()

	v := newTestVNPay(t)
	base := signedCallback(v, nil)

	for key := range base {
		if key == ParamSecureHash || key == ParamSecureHashType {
			continue
		}
		key := key
		t.Run(key, func(t *testing.T) {
			t.Parallel()
			params := make(map[string]string, len(base))
			for k, val := range base {
				params[k] = val
			}
			params[key] = params[key] + "9"

			if _, err := v.VerifyCallback(params); !errors.Is(err, ErrInvalidSignature) {
				t.Errorf("expected ErrInvalidSignature after tampering %s, got %v", key, err)
			}
		})
	}
}

func TestVerifyCallback_FailsClosed(t *testing.T) {
	t.Parallel()

	v := newTestVNPay(t)

	noHash := signedCallback(v, nil)
	delete(noHash, ParamSecureHash)
	if _, err := v.VerifyCallback(noHash); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature without hash, got %v", err)
	}

	wrongSecret := testConfig()
	wrongSecret.HashSecret = "ANOTHERSECRET99"
	other, err := NewVNPay(wrongSecret)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := v.VerifyCallback(signedCallback(other, nil)); !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for foreign secret, got %v", err)
	}

	badAmount := signedCallback(v, func(p map[string]string) { p[ParamAmount] = "12ab" })
	if _, err := v.VerifyCallback(badAmount); !errors.Is(err, ErrMalformedCallback) {
		t.Errorf("expected ErrMalformedCallback for bad amount, got %v", err)
	}

	noRef := signedCallback(v, func(p map[string]string) { delete(p, ParamTxnRef) })
	if _, err := v.VerifyCallback(noRef); !errors.Is(err, ErrMalformedCallback) {
		t.Errorf("expected ErrMalformedCallback without txn ref, got %v", err)
	}

	// The hash type is never part of the signed payload.
	hashType := signedCallback(v, nil)
	hashType[ParamSecureHashType] = "SHA256"
	if _, err := v.VerifyCallback(hashType); err != nil {
		t.Errorf("hash type must be ignored, got %v", err)
	}
}

func TestClassify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		code, status string
		want         Outcome
	}{
		{"00", "", OutcomeSuccess},
		{"00", "00", OutcomeSuccess},
		{"00", "02", OutcomeUnknown},
		{"01", "", OutcomePending},
		{"02", "", OutcomePending},
		{"24", "02", OutcomeFailed},
		{"51", "", OutcomeFailed},
		{"07", "", OutcomeUnknown},
		{"zz", "", OutcomeUnknown},
	}
	for _, tt := range tests {
		if got := Classify(tt.code, tt.status); got != tt.want {
			t.Errorf("Classify(%q, %q): expected %s, got %s", tt.code, tt.status, tt.want, got)
		}
	}
}

func TestCanonicalize(t *testing.T) {
	t.Parallel()

	got := Canonicalize(map[string]string{
		"vnp_b": "x y",
		"vnp_a": "1&2",
		"vnp_c": "",
	})
	want := "vnp_a=1%262&vnp_b=x+y"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
