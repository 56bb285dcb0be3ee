package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"lms/internal/service"
)

// VoucherHandler handles HTTP requests for vouchers.
type VoucherHandler struct {
	voucherService *service.VoucherService
	catalog        service.CatalogReader
}

// NewVoucherHandler creates a new VoucherHandler. catalog prices a course when
// the request does not carry a price.
func NewVoucherHandler(voucherService *service.VoucherService, catalog service.CatalogReader) *VoucherHandler {
	return &VoucherHandler{voucherService: voucherService, catalog: catalog}
}

// VoucherQuoteResponse is the HTTP response for voucher validation.
type VoucherQuoteResponse struct {
	Code     string `json:"code"`
	Valid    bool   `json:"valid"`
	Discount int64  `json:"discount"`
	Payable  int64  `json:"payable"`
}

// Validate handles GET /v1/vouchers/:code/validate?course_id=&price=
func (h *VoucherHandler) Validate(c *gin.Context) {
	code := c.Param("code")
	courseID := c.Query("course_id")

	var price int64
	switch raw := c.Query("price"); {
	case raw != "":
		p, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || p < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "price must be a non-negative integer"})
			return
		}
		price = p
	case courseID != "" && h.catalog != nil:
		course, err := h.catalog.GetCourse(c.Request.Context(), courseID)
		if err != nil {
			respondError(c, err)
			return
		}
		price = course.Price
	default:
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "price or course_id is required"})
		return
	}

	quote, err := h.voucherService.Quote(c.Request.Context(), code, courseID, price)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, VoucherQuoteResponse{
		Code:     code,
		Valid:    quote.Valid,
		Discount: quote.Discount,
		Payable:  quote.Payable,
	})
}
