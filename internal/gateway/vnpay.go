// Package gateway speaks the VNPay redirect and IPN protocol.
package gateway

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"lms/internal/config"
)

const (
	ParamSecureHash     = "vnp_SecureHash"
	ParamSecureHashType = "vnp_SecureHashType"
	ParamTxnRef         = "vnp_TxnRef"
	ParamAmount         = "vnp_Amount"
	ParamResponseCode   = "vnp_ResponseCode"
	ParamTxnStatus      = "vnp_TransactionStatus"
	ParamTransactionNo  = "vnp_TransactionNo"
	ParamBankCode       = "vnp_BankCode"
	ParamPayDate        = "vnp_PayDate"

	paramPrefix = "vnp_"
	dateLayout  = "20060102150405"
)

var (
	// ErrInvalidSignature is returned when the callback signature is missing or does not match.
	ErrInvalidSignature = errors.New("invalid gateway signature")

	// ErrMalformedCallback is returned when required callback fields are missing or unparsable.
	ErrMalformedCallback = errors.New("malformed gateway callback")

	// ErrInvalidOrder is returned when an outbound order cannot be signed.
	ErrInvalidOrder = errors.New("invalid gateway order")
)

// Outcome is the gateway's verdict on a transaction.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomePending Outcome = "PENDING"
	OutcomeFailed  Outcome = "FAILED"
	OutcomeUnknown Outcome = "UNKNOWN"
)

var failureCodes = map[string]bool{
	"09": true, // card not registered for internet banking
	"10": true, // authentication failed more than 3 times
	"11": true, // payment window expired
	"12": true, // card locked
	"13": true, // wrong OTP
	"24": true, // customer cancelled
	"51": true, // insufficient funds
	"65": true, // daily limit exceeded
	"75": true, // bank under maintenance
	"79": true, // too many wrong passwords
}

// Order is a purchase to be paid through the gateway. Amount is whole VND.
type Order struct {
	TxnRef    string
	Amount    int64
	OrderInfo string
	IPAddr    string
	BankCode  string
	CreatedAt time.Time
}

// SignedRequest is the redirect the customer follows to pay.
type SignedRequest struct {
	URL       string
	Params    map[string]string
	Signature string
}

// CallbackResult is a verified callback. Amount is whole VND.
type CallbackResult struct {
	TxnRef            string
	Amount            int64
	ResponseCode      string
	TransactionStatus string
	TransactionNo     string
	BankCode          string
	PayDate           string
	Outcome           Outcome
}

// VNPay builds and verifies signed gateway messages. It holds configuration only.
type VNPay struct {
	cfg config.GatewayConfig
	loc *time.Location
}

// NewVNPay creates an adapter for the given merchant configuration.
func NewVNPay(cfg config.GatewayConfig) (*VNPay, error) {
	if cfg.TmnCode == "" || cfg.HashSecret == "" {
		return nil, fmt.Errorf("vnpay: merchant code and hash secret are required")
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("vnpay: load timezone %q: %w", cfg.Timezone, err)
	}
	return &VNPay{cfg: cfg, loc: loc}, nil
}

// BuildSignedRequest returns the payment URL for an order. The same order always
// produces the same URL.
func (v *VNPay) BuildSignedRequest(order Order) (*SignedRequest, error) {
	if order.TxnRef == "" {
		return nil, fmt.Errorf("%w: missing txn ref", ErrInvalidOrder)
	}
	if order.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrInvalidOrder)
	}
	if order.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing creation time", ErrInvalidOrder)
	}

	created := order.CreatedAt.In(v.loc)
	params := map[string]string{
		"vnp_Version":    v.cfg.Version,
		"vnp_Command":    v.cfg.Command,
		"vnp_TmnCode":    v.cfg.TmnCode,
		ParamAmount:      strconv.FormatInt(order.Amount*100, 10),
		"vnp_CurrCode":   v.cfg.CurrCode,
		ParamTxnRef:      order.TxnRef,
		"vnp_OrderInfo":  order.OrderInfo,
		"vnp_OrderType":  v.cfg.OrderType,
		"vnp_Locale":     v.cfg.Locale,
		"vnp_ReturnUrl":  v.cfg.ReturnURL,
		"vnp_IpAddr":     order.IPAddr,
		"vnp_CreateDate": created.Format(dateLayout),
		"vnp_ExpireDate": created.Add(v.cfg.ExpireIn).Format(dateLayout),
	}
	if order.BankCode != "" {
		params[ParamBankCode] = order.BankCode
	}

	canonical := Canonicalize(params)
	signature := v.sign(canonical)
	params[ParamSecureHash] = signature

	return &SignedRequest{
		URL:       v.cfg.PayURL + "?" + canonical + "&" + ParamSecureHash + "=" + signature,
		Params:    params,
		Signature: signature,
	}, nil
}

// VerifyCallback checks the signature over every vnp_ field except the hash
// fields and decodes the result. It fails closed.
func (v *VNPay) VerifyCallback(params map[string]string) (*CallbackResult, error) {
	received := params[ParamSecureHash]
	if received == "" {
		return nil, fmt.Errorf("%w: missing %s", ErrInvalidSignature, ParamSecureHash)
	}

	signed := make(map[string]string, len(params))
	for k, val := range params {
		if !strings.HasPrefix(k, paramPrefix) || k == ParamSecureHash || k == ParamSecureHashType {
			continue
		}
		signed[k] = val
	}

	expected := v.sign(Canonicalize(signed))
	if !hmac.Equal([]byte(strings.ToLower(received)), []byte(expected)) {
		return nil, ErrInvalidSignature
	}

	res := &CallbackResult{
		TxnRef:            signed[ParamTxnRef],
		ResponseCode:      signed[ParamResponseCode],
		TransactionStatus: signed[ParamTxnStatus],
		TransactionNo:     signed[ParamTransactionNo],
		BankCode:          signed[ParamBankCode],
		PayDate:           signed[ParamPayDate],
	}
	if res.TxnRef == "" || res.ResponseCode == "" {
		return nil, fmt.Errorf("%w: missing txn ref or response code", ErrMalformedCallback)
	}
	minor, err := strconv.ParseInt(signed[ParamAmount], 10, 64)
	if err != nil || minor < 0 || minor%100 != 0 {
		return nil, fmt.Errorf("%w: amount %q", ErrMalformedCallback, signed[ParamAmount])
	}
	res.Amount = minor / 100
	res.Outcome = Classify(res.ResponseCode, res.TransactionStatus)
	return res, nil
}

// Sign returns the signature for a parameter set; the hash fields themselves are excluded.
func (v *VNPay) Sign(params map[string]string) string {
	signed := make(map[string]string, len(params))
	for k, val := range params {
		if k == ParamSecureHash || k == ParamSecureHashType {
			continue
		}
		signed[k] = val
	}
	return v.sign(Canonicalize(signed))
}

func (v *VNPay) sign(canonical string) string {
	mac := hmac.New(sha512.New, []byte(v.cfg.HashSecret))
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}

// Canonicalize sorts keys and joins key=QueryEscape(value) with '&', skipping empty values.
func Canonicalize(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, val := range params {
		if val == "" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	return b.String()
}

// Classify maps a response code and transaction status to an outcome.
func Classify(responseCode, transactionStatus string) Outcome {
	switch {
	case responseCode == "00":
		if transactionStatus == "" || transactionStatus == "00" {
			return OutcomeSuccess
		}
		return OutcomeUnknown
	case responseCode == "01" || responseCode == "02":
		return OutcomePending
	case failureCodes[responseCode]:
		return OutcomeFailed
	default:
		return OutcomeUnknown
	}
}
