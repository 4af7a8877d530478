package handlers

import (
	"strconv"

	"github.com/paycore/internal/http/response"
	"github.com/paycore/internal/service"

	"github.com/gin-gonic/gin"
)

// ListPaymentMethods returns an account's live methods, primary first.
func (h *Handler) ListPaymentMethods(c *gin.Context) {
	accountID, err := strconv.ParseUint(c.Param("account_id"), 10, 64)
	if err != nil || accountID == 0 {
		response.Fail(c, response.BadRequest("invalid account id"))
		return
	}
	methods, err := h.methods.ListForAccount(uint(accountID))
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, methods)
}

// SetPrimaryMethod makes one method the account's primary instrument.
func (h *Handler) SetPrimaryMethod(c *gin.Context) {
	id, ok := methodID(c)
	if !ok {
		return
	}
	method, err := h.methods.SetPrimary(id)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, method)
}

// DeletePaymentMethod soft-deletes a non-primary method.
func (h *Handler) DeletePaymentMethod(c *gin.Context) {
	id, ok := methodID(c)
	if !ok {
		return
	}
	if err := h.methods.Delete(id); err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, nil)
}

type billingDetailsRequest struct {
	BillingName   string `json:"billing_name" binding:"required"`
	BillingStreet string `json:"billing_street"`
	BillingCity   string `json:"billing_city"`
	BillingState  string `json:"billing_state"`
	BillingZip    string `json:"billing_zip"`
	CardExpMonth  int    `json:"card_exp_month"`
	CardExpYear   int    `json:"card_exp_year"`
}

// UpdateBillingDetails saves new billing fields and pushes them to the
// gateway's stored account.
func (h *Handler) UpdateBillingDetails(c *gin.Context) {
	id, ok := methodID(c)
	if !ok {
		return
	}
	var req billingDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	method, err := h.methods.UpdateBillingDetails(c.Request.Context(), id, service.BillingDetailsInput{
		BillingName:   req.BillingName,
		BillingStreet: req.BillingStreet,
		BillingCity:   req.BillingCity,
		BillingState:  req.BillingState,
		BillingZip:    req.BillingZip,
		CardExpMonth:  req.CardExpMonth,
		CardExpYear:   req.CardExpYear,
	})
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, method)
}

// RefreshPaymentMethod syncs the gateway's stored-account profile into the
// local row.
func (h *Handler) RefreshPaymentMethod(c *gin.Context) {
	id, ok := methodID(c)
	if !ok {
		return
	}
	method, err := h.methods.RefreshProfile(c.Request.Context(), id)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, method)
}

func methodID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, response.BadRequest("invalid payment method id"))
		return 0, false
	}
	return uint(id), true
}
