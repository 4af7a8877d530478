package service

import (
	"context"
	"time"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/event"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/queue"
	"github.com/paycore/internal/repository"
)

// Job kinds carried on payment.scheduled events.
const (
	JobKindUnpaidInvoices  = "unpaid_invoices"
	JobKindRefundDiscovery = "refund_discovery"
	JobKindAchSettlement   = "ach_settlement"
)

// BatchDispatcher is the producer side of the batch queue. *queue.Client
// satisfies it; tests substitute a recorder.
type BatchDispatcher interface {
	EnqueueProcessAccountPayment(payload queue.ProcessAccountPaymentPayload) error
	EnqueueProcessRefund(payload queue.ProcessRefundPayload) error
	EnqueueCheckAchStatus(payload queue.CheckAchStatusPayload) error
}

// BillingScheduler runs the three discovery jobs. Each pages over a
// repository query and dispatches exactly one task per unit, so a single
// unit's failure can never block or roll back its peers.
type BillingScheduler struct {
	accountRepo repository.AccountRepository
	paymentRepo repository.PaymentRepository
	invoiceRepo repository.InvoiceRepository
	dispatcher  BatchDispatcher
	publisher   event.Publisher
	billing     config.BillingConfig
}

// NewBillingScheduler creates the discovery scheduler.
func NewBillingScheduler(
	accountRepo repository.AccountRepository,
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	dispatcher BatchDispatcher,
	publisher event.Publisher,
	billing config.BillingConfig,
) *BillingScheduler {
	return &BillingScheduler{
		accountRepo: accountRepo,
		paymentRepo: paymentRepo,
		invoiceRepo: invoiceRepo,
		dispatcher:  dispatcher,
		publisher:   publisher,
		billing:     billing,
	}
}

func (s *BillingScheduler) pageSize() int {
	if s.billing.BatchPageSize > 0 {
		return s.billing.BatchPageSize
	}
	return 500
}

// DispatchUnpaidInvoiceAccounts enumerates an area's accounts with an unpaid
// balance and dispatches one billing task per account. Returns the number of
// units dispatched.
func (s *BillingScheduler) DispatchUnpaidInvoiceAccounts(ctx context.Context, areaID int) (int, error) {
	pageSize := s.pageSize()
	dispatched := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		accounts, err := s.accountRepo.ListWithUnpaidBalanceForArea(areaID, page, pageSize)
		if err != nil {
			return dispatched, err
		}
		for i := range accounts {
			account := &accounts[i]
			invoices, err := s.invoiceRepo.ListUnpaidForAccount(account.ID)
			if err != nil {
				return dispatched, err
			}
			err = s.dispatcher.EnqueueProcessAccountPayment(queue.ProcessAccountPaymentPayload{
				AccountID:  account.ID,
				AreaID:     areaID,
				InvoiceIDs: invoiceModelIDs(invoices),
			})
			if err != nil {
				logger.Errorw("billing_dispatch_failed",
					"job", JobKindUnpaidInvoices,
					"account_id", account.ID,
					"error", err,
				)
				return dispatched, err
			}
			dispatched++
		}
		if len(accounts) < pageSize {
			break
		}
	}
	s.finishRun(JobKindUnpaidInvoices, areaID, dispatched)
	return dispatched, nil
}

// DispatchExternalRefunds enumerates an area's CRM-imported refunds that
// have no gateway transaction yet and dispatches one refund task per row.
func (s *BillingScheduler) DispatchExternalRefunds(ctx context.Context, areaID int, from, to time.Time) (int, error) {
	pageSize := s.pageSize()
	dispatched := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		payments, err := s.paymentRepo.GetExternalRefundsWithoutTransactionsForArea(areaID, from, to, page, pageSize)
		if err != nil {
			return dispatched, err
		}
		for i := range payments {
			err := s.dispatcher.EnqueueProcessRefund(queue.ProcessRefundPayload{
				PaymentID: payments[i].ID,
			})
			if err != nil {
				logger.Errorw("billing_dispatch_failed",
					"job", JobKindRefundDiscovery,
					"payment_id", payments[i].ID,
					"error", err,
				)
				return dispatched, err
			}
			dispatched++
		}
		if len(payments) < pageSize {
			break
		}
	}
	s.finishRun(JobKindRefundDiscovery, areaID, dispatched)
	return dispatched, nil
}

// DispatchUnsettledAchPayments enumerates captured ACH payments still
// awaiting settlement and dispatches one status poll per payment. ACH
// settlement is not area-scoped; the gateway reports per payment.
func (s *BillingScheduler) DispatchUnsettledAchPayments(ctx context.Context) (int, error) {
	pageSize := s.pageSize()
	dispatched := 0
	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return dispatched, err
		}
		payments, err := s.paymentRepo.GetNotFullySettledAchPayments(page, pageSize)
		if err != nil {
			return dispatched, err
		}
		for i := range payments {
			err := s.dispatcher.EnqueueCheckAchStatus(queue.CheckAchStatusPayload{
				PaymentID: payments[i].ID,
			})
			if err != nil {
				logger.Errorw("billing_dispatch_failed",
					"job", JobKindAchSettlement,
					"payment_id", payments[i].ID,
					"error", err,
				)
				return dispatched, err
			}
			dispatched++
		}
		if len(payments) < pageSize {
			break
		}
	}
	s.finishRun(JobKindAchSettlement, 0, dispatched)
	return dispatched, nil
}

// RunAllAreas runs the unpaid-invoice discovery for every configured area.
func (s *BillingScheduler) RunAllAreas(ctx context.Context) error {
	for _, areaID := range s.billing.AreaIDs {
		if _, err := s.DispatchUnpaidInvoiceAccounts(ctx, areaID); err != nil {
			return err
		}
	}
	return nil
}

func (s *BillingScheduler) finishRun(jobKind string, areaID, dispatched int) {
	s.publisher.Publish(event.KindScheduled, event.ScheduledPayload{
		JobKind:         jobKind,
		AreaID:          areaID,
		UnitsDispatched: dispatched,
	})
	logger.Infow("billing_discovery_finished",
		"job", jobKind,
		"area_id", areaID,
		"units_dispatched", dispatched,
	)
}
