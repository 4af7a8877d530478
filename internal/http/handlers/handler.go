package handlers

import (
	"github.com/paycore/internal/service"
	"github.com/paycore/internal/worker"
)

// Handler bundles the services the HTTP surface exposes.
type Handler struct {
	payments   *service.PaymentService
	refunds    *service.RefundService
	methods    *service.PaymentMethodService
	scheduler  *service.BillingScheduler
	deadLetter *worker.DeadLetterService
}

// New creates the handler set.
func New(
	payments *service.PaymentService,
	refunds *service.RefundService,
	methods *service.PaymentMethodService,
	scheduler *service.BillingScheduler,
	deadLetter *worker.DeadLetterService,
) *Handler {
	return &Handler{
		payments:   payments,
		refunds:    refunds,
		methods:    methods,
		scheduler:  scheduler,
		deadLetter: deadLetter,
	}
}
