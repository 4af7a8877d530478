package handlers

import (
	"strconv"

	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/http/response"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"
	"github.com/paycore/internal/service"

	"github.com/gin-gonic/gin"
)

type chargeRequest struct {
	AccountID       uint    `json:"account_id" binding:"required"`
	PaymentMethodID *uint   `json:"payment_method_id"`
	Amount          int64   `json:"amount" binding:"required"` // minor units
	CurrencyCode    string  `json:"currency_code"`
	Notes           string  `json:"notes"`
	PaymentID       *uint   `json:"payment_id"` // sale only: release a suspended payment
}

func (r chargeRequest) toInput() service.ChargeInput {
	return service.ChargeInput{
		AccountID:       r.AccountID,
		PaymentMethodID: r.PaymentMethodID,
		Amount:          models.Amount(r.Amount),
		CurrencyCode:    r.CurrencyCode,
		Initiator:       constants.InitiatorAPI,
		Notes:           r.Notes,
	}
}

// Authorize places a hold.
func (h *Handler) Authorize(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	payment, err := h.payments.Authorize(c.Request.Context(), req.toInput())
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

// Sale runs authorize+capture, or releases a suspended payment when
// payment_id is given.
func (h *Handler) Sale(c *gin.Context) {
	var req chargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	payment, err := h.payments.AuthorizeAndCapture(c.Request.Context(), req.toInput(), req.PaymentID)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

// Capture collects a previously authorized payment.
func (h *Handler) Capture(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Capture(c.Request.Context(), id, constants.InitiatorAPI)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

// Cancel voids a payment at the gateway.
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Cancel(c.Request.Context(), id, constants.InitiatorAPI)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

type refundRequest struct {
	Amount         *int64  `json:"amount"` // minor units; nil refunds in full
	OverrideWindow bool    `json:"override_window"`
	ExternalRefID  *string `json:"external_ref_id"`
}

// Refund credits money back for a captured or settled payment.
func (h *Handler) Refund(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	input := service.RefundInput{
		OriginalPaymentID: id,
		OverrideWindow:    req.OverrideWindow,
		ExternalRefID:     req.ExternalRefID,
		Initiator:         constants.InitiatorAPI,
	}
	if req.Amount != nil {
		amount := models.Amount(*req.Amount)
		input.Amount = &amount
	}
	refund, err := h.refunds.Refund(c.Request.Context(), input)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, refund)
}

// GetPayment fetches one payment.
func (h *Handler) GetPayment(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	payment, err := h.payments.GetPayment(id)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

// GetPaymentByRef fetches one payment by its gateway reference id.
func (h *Handler) GetPaymentByRef(c *gin.Context) {
	ref := c.Param("ref")
	if ref == "" {
		response.Fail(c, response.BadRequest("invalid payment ref"))
		return
	}
	payment, err := h.payments.GetPaymentByRef(ref)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

// ListPayments returns a filtered page.
func (h *Handler) ListPayments(c *gin.Context) {
	filter := repository.PaymentListFilter{
		AccountID:       queryUint(c, "account_id"),
		PaymentMethodID: queryUint(c, "payment_method_id"),
		Gateway:         c.Query("gateway"),
		PaymentType:     c.Query("payment_type"),
		Status:          c.Query("status"),
		Page:            int(queryUint(c, "page")),
		PageSize:        int(queryUint(c, "page_size")),
	}
	payments, total, err := h.payments.ListPayments(filter)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, gin.H{"items": payments, "total": total})
}

func paymentID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.BadRequest("invalid payment id"))
		return 0, false
	}
	return uint(id), true
}

func queryUint(c *gin.Context, key string) uint {
	value, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(value)
}
