package handlers

import (
	"time"

	"github.com/paycore/internal/http/response"

	"github.com/gin-gonic/gin"
)

type terminateRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// Terminate permanently cancels a suspended payment.
func (h *Handler) Terminate(c *gin.Context) {
	id, ok := paymentID(c)
	if !ok {
		return
	}
	var req terminateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	payment, err := h.payments.Terminate(c.Request.Context(), id, req.Actor)
	if err != nil {
		response.Fail(c, mapServiceError(err))
		return
	}
	response.OK(c, payment)
}

type retryArchivedRequest struct {
	Limit int `json:"limit"`
}

// RetryArchived re-runs dead-lettered batch tasks.
func (h *Handler) RetryArchived(c *gin.Context) {
	var req retryArchivedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	retried, err := h.deadLetter.RetryArchived(req.Limit)
	if err != nil {
		response.Fail(c, response.Internal(err.Error()))
		return
	}
	response.OK(c, gin.H{"retried": retried})
}

// ArchivedCount reports the dead-letter backlog.
func (h *Handler) ArchivedCount(c *gin.Context) {
	count, err := h.deadLetter.ArchivedCount()
	if err != nil {
		response.Fail(c, response.Internal(err.Error()))
		return
	}
	response.OK(c, gin.H{"archived": count})
}

type runBillingRequest struct {
	AreaID int `json:"area_id" binding:"required"`
}

// RunBilling kicks unpaid-invoice discovery for one area outside its cron
// schedule.
func (h *Handler) RunBilling(c *gin.Context) {
	var req runBillingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	dispatched, err := h.scheduler.DispatchUnpaidInvoiceAccounts(c.Request.Context(), req.AreaID)
	if err != nil {
		response.Fail(c, response.Internal(err.Error()))
		return
	}
	response.OK(c, gin.H{"dispatched": dispatched})
}

type runRefundDiscoveryRequest struct {
	AreaID int    `json:"area_id" binding:"required"`
	From   string `json:"from"` // 2006-01-02; defaults to 45 days back
	To     string `json:"to"`   // 2006-01-02; defaults to now
}

// RunRefundDiscovery kicks refund discovery for one area.
func (h *Handler) RunRefundDiscovery(c *gin.Context) {
	var req runRefundDiscoveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, response.BadRequest(err.Error()))
		return
	}
	to := time.Now()
	from := to.AddDate(0, 0, -45)
	if req.From != "" {
		parsed, err := time.Parse("2006-01-02", req.From)
		if err != nil {
			response.Fail(c, response.BadRequest("invalid from date"))
			return
		}
		from = parsed
	}
	if req.To != "" {
		parsed, err := time.Parse("2006-01-02", req.To)
		if err != nil {
			response.Fail(c, response.BadRequest("invalid to date"))
			return
		}
		to = parsed
	}
	dispatched, err := h.scheduler.DispatchExternalRefunds(c.Request.Context(), req.AreaID, from, to)
	if err != nil {
		response.Fail(c, response.Internal(err.Error()))
		return
	}
	response.OK(c, gin.H{"dispatched": dispatched})
}

// RunAchPolls kicks unsettled-ACH discovery.
func (h *Handler) RunAchPolls(c *gin.Context) {
	dispatched, err := h.scheduler.DispatchUnsettledAchPayments(c.Request.Context())
	if err != nil {
		response.Fail(c, response.Internal(err.Error()))
		return
	}
	response.OK(c, gin.H{"dispatched": dispatched})
}
