package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/queue"
	"github.com/paycore/internal/repository"
	"github.com/paycore/internal/service"

	"github.com/hibiken/asynq"
)

// Consumer holds the task handlers. Batch tasks run with MaxRetry(0), so a
// returned error archives the task into the dead-letter set; recoverable
// conditions are consumed with a nil return instead.
type Consumer struct {
	batch       *service.BatchPaymentService
	refunds     *service.RefundService
	gatewayOps  *service.GatewayOperationService
	scheduler   *service.BillingScheduler
	paymentRepo repository.PaymentRepository
	billing     config.BillingConfig
}

// NewConsumer creates the worker-side task consumer.
func NewConsumer(
	batch *service.BatchPaymentService,
	refunds *service.RefundService,
	gatewayOps *service.GatewayOperationService,
	scheduler *service.BillingScheduler,
	paymentRepo repository.PaymentRepository,
	billing config.BillingConfig,
) *Consumer {
	return &Consumer{
		batch:       batch,
		refunds:     refunds,
		gatewayOps:  gatewayOps,
		scheduler:   scheduler,
		paymentRepo: paymentRepo,
		billing:     billing,
	}
}

// Register binds every task handler onto the mux.
func (c *Consumer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TaskProcessAccountPayment, c.HandleProcessAccountPayment)
	mux.HandleFunc(queue.TaskProcessRefund, c.HandleProcessRefund)
	mux.HandleFunc(queue.TaskCheckAchStatus, c.HandleCheckAchStatus)
	mux.HandleFunc(queue.TaskEventDispatch, c.HandleEventDispatch)
	mux.HandleFunc(constants.TaskDispatchBilling, c.HandleDispatchBilling)
	mux.HandleFunc(constants.TaskDispatchRefunds, c.HandleDispatchRefunds)
	mux.HandleFunc(constants.TaskDispatchAchPolls, c.HandleDispatchAchPolls)
}

// HandleProcessAccountPayment runs one per-account billing unit.
func (c *Consumer) HandleProcessAccountPayment(ctx context.Context, t *asynq.Task) error {
	var payload queue.ProcessAccountPaymentPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("process_account payload: %w", err)
	}
	result, err := c.batch.ProcessAccountPayment(ctx, payload.AccountID, payload.AreaID, payload.InvoiceIDs)
	if err != nil {
		if service.IsDataInconsistency(err) {
			logger.Errorw("batch_unit_data_inconsistency",
				"account_id", payload.AccountID,
				"area_id", payload.AreaID,
				"error", err,
			)
			return err
		}
		if errors.Is(err, service.ErrAccountNotFound) {
			logger.Warnw("batch_unit_account_missing", "account_id", payload.AccountID)
			return nil
		}
		return err
	}
	if result.Skipped {
		return nil
	}
	logger.Infow("batch_unit_processed",
		"account_id", payload.AccountID,
		"payment_id", result.PaymentID,
		"status", result.Status,
	)
	return nil
}

// HandleProcessRefund executes one CRM-imported refund at the gateway.
func (c *Consumer) HandleProcessRefund(ctx context.Context, t *asynq.Task) error {
	var payload queue.ProcessRefundPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("process_refund payload: %w", err)
	}
	err := c.refunds.ProcessExternalRefund(ctx, payload.PaymentID)
	if err != nil {
		if errors.Is(err, service.ErrPaymentNotFound) || errors.Is(err, service.ErrPaymentStateConflict) {
			logger.Warnw("refund_unit_skipped", "payment_id", payload.PaymentID, "error", err)
			return nil
		}
		return err
	}
	return nil
}

// HandleCheckAchStatus polls one ACH payment for settlement. Transient
// gateway failures are consumed; the next discovery run re-dispatches the
// poll.
func (c *Consumer) HandleCheckAchStatus(ctx context.Context, t *asynq.Task) error {
	var payload queue.CheckAchStatusPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("check_ach_status payload: %w", err)
	}
	payment, err := c.paymentRepo.GetByID(payload.PaymentID)
	if err != nil {
		return err
	}
	if payment == nil {
		logger.Warnw("ach_poll_payment_missing", "payment_id", payload.PaymentID)
		return nil
	}
	if _, err := c.gatewayOps.Status(ctx, payment); err != nil {
		if errors.Is(err, service.ErrGatewayCommunication) {
			logger.Warnw("ach_poll_gateway_unreachable", "payment_id", payment.ID, "error", err)
			return nil
		}
		return err
	}
	return nil
}

// HandleEventDispatch is the hand-off point for notification and reporting
// listeners. The core's responsibility ends at a structured log of the
// event.
func (c *Consumer) HandleEventDispatch(ctx context.Context, t *asynq.Task) error {
	var payload queue.EventDispatchPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("event_dispatch payload: %w", err)
	}
	logger.Infow("domain_event",
		"kind", payload.Kind,
		"occurred_at", payload.OccurredAt,
		"data", string(payload.Data),
	)
	return nil
}

// HandleDispatchBilling runs unpaid-invoice discovery for every configured
// area.
func (c *Consumer) HandleDispatchBilling(ctx context.Context, _ *asynq.Task) error {
	return c.scheduler.RunAllAreas(ctx)
}

// HandleDispatchRefunds runs refund discovery for every configured area over
// the refund window.
func (c *Consumer) HandleDispatchRefunds(ctx context.Context, _ *asynq.Task) error {
	to := time.Now()
	from := to.AddDate(0, 0, -c.billing.RefundWindowDays)
	for _, areaID := range c.billing.AreaIDs {
		if _, err := c.scheduler.DispatchExternalRefunds(ctx, areaID, from, to); err != nil {
			return err
		}
	}
	return nil
}

// HandleDispatchAchPolls runs unsettled-ACH discovery.
func (c *Consumer) HandleDispatchAchPolls(ctx context.Context, _ *asynq.Task) error {
	_, err := c.scheduler.DispatchUnsettledAchPayments(ctx)
	return err
}
