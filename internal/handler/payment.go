package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"lms/internal/domain"
	"lms/internal/service"
)

// Gateway acknowledgement codes.
const (
	RspConfirmSuccess   = "00"
	RspOrderNotFound    = "01"
	RspAlreadyConfirmed = "02"
	RspInvalidAmount    = "04"
	RspInvalidSignature = "97"
	RspUnknownError     = "99"
)

// PaymentHandler handles HTTP requests for payments.
type PaymentHandler struct {
	paymentService *service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePaymentRequest is the HTTP request body for starting a purchase.
type CreatePaymentRequest struct {
	UserID       string `json:"user_id"`
	PurchaseType string `json:"purchase_type"` // COURSE or COMBO
	ItemID       string `json:"item_id"`
	VoucherCode  string `json:"voucher_code,omitempty"`
	BankCode     string `json:"bank_code,omitempty"`
}

// CreatePaymentResponse is the HTTP response for purchase initiation.
type CreatePaymentResponse struct {
	PaymentID  string `json:"payment_id"`
	TxnRef     string `json:"txn_ref"`
	Amount     int64  `json:"amount"`
	PaymentURL string `json:"payment_url,omitempty"`
	Status     string `json:"status"`
}

// PaymentResponse is the HTTP response for payment reads.
type PaymentResponse struct {
	ID                string `json:"id"`
	TxnRef            string `json:"txn_ref"`
	UserID            string `json:"user_id"`
	PurchaseType      string `json:"purchase_type"`
	ItemID            string `json:"item_id"`
	VoucherCode       string `json:"voucher_code,omitempty"`
	OriginalPrice     int64  `json:"original_price"`
	DiscountAmount    int64  `json:"discount_amount"`
	TaxAmount         int64  `json:"tax_amount"`
	Amount            int64  `json:"amount"`
	Status            string `json:"status"`
	Method            string `json:"method"`
	EnrollmentID      string `json:"enrollment_id,omitempty"`
	ComboEnrollmentID string `json:"combo_enrollment_id,omitempty"`
	TransactionNo     string `json:"transaction_no,omitempty"`
	ConfirmedAt       string `json:"confirmed_at,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// IPNResponse is the acknowledgement body the gateway expects.
type IPNResponse struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// ReturnResponse is shown to the customer after the gateway redirect.
type ReturnResponse struct {
	Status    string `json:"status"` // SUCCESS, FAILED or PENDING
	Message   string `json:"message"`
	TxnRef    string `json:"txn_ref,omitempty"`
	PaymentID string `json:"payment_id,omitempty"`
}

// CreatePayment handles POST /v1/payments
func (h *PaymentHandler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "user_id is required"})
		return
	}

	if req.ItemID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "item_id is required"})
		return
	}

	res, err := h.paymentService.CreatePayment(c.Request.Context(), service.CreatePaymentRequest{
		UserID:       req.UserID,
		PurchaseType: domain.PurchaseType(req.PurchaseType),
		ItemID:       req.ItemID,
		VoucherCode:  req.VoucherCode,
		IPAddr:       c.ClientIP(),
		BankCode:     req.BankCode,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, CreatePaymentResponse{
		PaymentID:  res.Payment.ID,
		TxnRef:     res.Payment.TxnRef,
		Amount:     res.Payment.Amount,
		PaymentURL: res.PaymentURL,
		Status:     string(res.Payment.Status),
	})
}

// GetPayment handles GET /v1/payments/:id
func (h *PaymentHandler) GetPayment(c *gin.Context) {
	paymentID := c.Param("id")

	payment, err := h.paymentService.GetPayment(c.Request.Context(), paymentID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toPaymentResponse(payment))
}

// ListPayments handles GET /v1/payments?user_id=
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	payments, err := h.paymentService.ListPayments(c.Request.Context(), c.Query("user_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, toPaymentResponse(p))
	}
	respondJSON(c, http.StatusOK, out)
}

// IPN handles GET /v1/payments/vnpay/ipn. It always answers 200; the outcome is
// carried in RspCode.
func (h *PaymentHandler) IPN(c *gin.Context) {
	res, err := h.paymentService.HandleCallback(c.Request.Context(), queryParams(c))
	if err != nil {
		if mapErrorToHTTPStatus(err) >= http.StatusInternalServerError {
			_ = c.Error(err)
		}
		c.JSON(http.StatusOK, ipnError(err))
		return
	}

	if res.Duplicate && res.Payment.Status != domain.PaymentStatusPending {
		c.JSON(http.StatusOK, IPNResponse{RspCode: RspAlreadyConfirmed, Message: "Order already confirmed"})
		return
	}
	c.JSON(http.StatusOK, IPNResponse{RspCode: RspConfirmSuccess, Message: "Confirm Success"})
}

// Return handles GET /v1/payments/vnpay/return
func (h *PaymentHandler) Return(c *gin.Context) {
	res, err := h.paymentService.HandleReturn(c.Request.Context(), queryParams(c))
	if err != nil {
		c.JSON(mapErrorToHTTPStatus(err), ReturnResponse{
			Status:  string(service.ReturnStatusFailed),
			Message: err.Error(),
		})
		return
	}

	message := "Payment is being processed"
	switch res.Status {
	case service.ReturnStatusSuccess:
		message = "Payment successful"
	case service.ReturnStatusFailed:
		message = "Payment failed"
	}
	respondJSON(c, http.StatusOK, ReturnResponse{
		Status:    string(res.Status),
		Message:   message,
		TxnRef:    res.Payment.TxnRef,
		PaymentID: res.Payment.ID,
	})
}

// ipnError maps a callback processing error to the gateway acknowledgement.
func ipnError(err error) IPNResponse {
	switch {
	case errors.Is(err, service.ErrPaymentNotFound):
		return IPNResponse{RspCode: RspOrderNotFound, Message: "Order not found"}
	case errors.Is(err, service.ErrAmountMismatch):
		return IPNResponse{RspCode: RspInvalidAmount, Message: "Invalid amount"}
	case errors.Is(err, service.ErrPaymentVerificationFailed):
		return IPNResponse{RspCode: RspInvalidSignature, Message: "Invalid signature"}
	case errors.Is(err, service.ErrInvalidTransition):
		return IPNResponse{RspCode: RspAlreadyConfirmed, Message: "Order already confirmed"}
	default:
		return IPNResponse{RspCode: RspUnknownError, Message: "Unknown error"}
	}
}

// queryParams flattens the query string; gateway callbacks never repeat a key.
func queryParams(c *gin.Context) map[string]string {
	query := c.Request.URL.Query()
	params := make(map[string]string, len(query))
	for k, v := range query {
		if len(v) > 0 {
			params[k] = v[0]
		}
	}
	return params
}

func toPaymentResponse(p *domain.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:                p.ID,
		TxnRef:            p.TxnRef,
		UserID:            p.UserID,
		PurchaseType:      string(p.PurchaseType),
		ItemID:            p.ItemID,
		VoucherCode:       p.VoucherCode,
		OriginalPrice:     p.OriginalPrice,
		DiscountAmount:    p.DiscountAmount,
		TaxAmount:         p.TaxAmount,
		Amount:            p.Amount,
		Status:            string(p.Status),
		Method:            string(p.Method),
		EnrollmentID:      p.EnrollmentID,
		ComboEnrollmentID: p.ComboEnrollmentID,
		TransactionNo:     p.GatewayTransactionNo,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
	if !p.ConfirmedAt.IsZero() {
		resp.ConfirmedAt = p.ConfirmedAt.Format(time.RFC3339)
	}
	return resp
}
