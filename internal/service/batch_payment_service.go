package service

import (
	"context"
	"fmt"
	"time"

	"github.com/paycore/internal/cache"
	"github.com/paycore/internal/config"
	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/event"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"

	"gorm.io/gorm"
)

// BatchChargeResult is the outcome of one per-account batch unit.
type BatchChargeResult struct {
	PaymentID  uint
	Status     string
	Skipped    bool
	SkipReason string
	Suspended  bool
}

// BatchPaymentService is the per-unit batch processor: it validates charge
// eligibility for one account, suspends duplicates, or runs the sale. Skips
// are normal outcomes; only data inconsistencies surface as errors.
type BatchPaymentService struct {
	paymentRepo repository.PaymentRepository
	methodRepo  repository.PaymentMethodRepository
	accountRepo repository.AccountRepository
	invoiceRepo repository.InvoiceRepository
	gatewayOps  *GatewayOperationService
	duplicates  DuplicatePaymentChecker
	publisher   event.Publisher
	billing     config.BillingConfig
}

// NewBatchPaymentService creates the batch processor.
func NewBatchPaymentService(
	paymentRepo repository.PaymentRepository,
	methodRepo repository.PaymentMethodRepository,
	accountRepo repository.AccountRepository,
	invoiceRepo repository.InvoiceRepository,
	gatewayOps *GatewayOperationService,
	duplicates DuplicatePaymentChecker,
	publisher event.Publisher,
	billing config.BillingConfig,
) *BatchPaymentService {
	return &BatchPaymentService{
		paymentRepo: paymentRepo,
		methodRepo:  methodRepo,
		accountRepo: accountRepo,
		invoiceRepo: invoiceRepo,
		gatewayOps:  gatewayOps,
		duplicates:  duplicates,
		publisher:   publisher,
		billing:     billing,
	}
}

// ProcessAccountPayment charges one account's unpaid balance. The
// eligibility gates run in a fixed order; the first failing gate skips the
// unit with a skipped event. Gate failures on the invoice-link and balance
// checks are data inconsistencies and fail the job instead.
func (s *BatchPaymentService) ProcessAccountPayment(ctx context.Context, accountID uint, areaID int, invoiceIDs []uint) (*BatchChargeResult, error) {
	ttl := time.Duration(s.billing.AccountLockTTLSeconds) * time.Second
	acquired, err := cache.AcquireAccountLease(ctx, accountID, ttl)
	if err != nil {
		return nil, err
	}
	if !acquired {
		logger.Warnw("batch_account_lease_held",
			"account_id", accountID,
			"area_id", areaID,
		)
		return &BatchChargeResult{Skipped: true, SkipReason: "lease_held"}, nil
	}
	defer func() {
		if err := cache.ReleaseAccountLease(ctx, accountID); err != nil {
			logger.Warnw("batch_account_lease_release_failed", "account_id", accountID, "error", err)
		}
	}()

	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, fmt.Errorf("%w: account %d", ErrAccountNotFound, accountID)
	}

	// Gate 1: something to collect.
	if account.LedgerBalance <= 0 {
		return s.skip(account, areaID, constants.SkipReasonNoBalance, "")
	}

	// Gate 2: at least one stored method.
	methodCount, err := s.methodRepo.CountForAccount(account.ID)
	if err != nil {
		return nil, err
	}
	if methodCount == 0 {
		return s.skip(account, areaID, constants.SkipReasonNoPaymentMethods, "")
	}

	// Gate 3: a resolvable, chargeable autopay method.
	method, err := s.methodRepo.FindAutopayMethodForAccount(account)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return s.skip(account, areaID, constants.SkipReasonNoAutopayMethod, "")
	}
	if !method.Chargeable() {
		return s.skip(account, areaID, constants.SkipReasonMethodInactive, method.ExternalStatus)
	}

	// Gate 4: the last N attempts on the method must not all be declines.
	maxDeclines := s.billing.MaxConsecutiveDeclines
	if maxDeclines <= 0 {
		maxDeclines = 3
	}
	recent, err := s.paymentRepo.GetLatestForPaymentMethod(method.ID, maxDeclines)
	if err != nil {
		return nil, err
	}
	if len(recent) >= maxDeclines && allDeclined(recent) {
		return s.skip(account, areaID, constants.SkipReasonTotalAttemptsExceeded,
			fmt.Sprintf("last %d attempts declined", maxDeclines))
	}

	// Gate 5: at most one declined attempt per day per method.
	dailyCap := s.billing.DailyDeclineCap
	if dailyCap <= 0 {
		dailyCap = 1
	}
	declinedToday, err := s.paymentRepo.GetDeclinedForPaymentMethodCount(method.ID, startOfDay(time.Now()))
	if err != nil {
		return nil, err
	}
	if declinedToday >= int64(dailyCap) {
		return s.skip(account, areaID, constants.SkipReasonDailyAttemptsExceeded, "")
	}

	// Gate 6: no future-dated payment hold.
	if method.PaymentHoldDate != nil && method.PaymentHoldDate.After(time.Now()) {
		return s.skip(account, areaID, constants.SkipReasonPaymentHold,
			method.PaymentHoldDate.Format("2006-01-02"))
	}

	// Gate 7: the preferred billing day must have arrived this month.
	if !billingDayReached(account.PreferredBillingDay, time.Now()) {
		return s.skip(account, areaID, constants.SkipReasonBillingDayNotReached,
			fmt.Sprintf("preferred day %d", *account.PreferredBillingDay))
	}

	invoices, err := s.resolveInvoices(account.ID, invoiceIDs)
	if err != nil {
		return nil, err
	}
	ids := invoiceModelIDs(invoices)

	// Gate 8: the invoice set must not already hang off a terminated payment.
	linked, err := s.paymentRepo.GetSuspendedOrTerminatedByInvoiceIDs(ids, account.ID)
	if err != nil {
		return nil, err
	}
	for i := range linked {
		if linked[i].Status == constants.PaymentStatusTerminated {
			logger.Errorw("batch_terminated_payment_linked",
				"account_id", account.ID,
				"terminated_payment_id", linked[i].ID,
				"invoice_ids", ids,
			)
			return nil, fmt.Errorf("%w: payment %d", ErrTerminatedPaymentLinked, linked[i].ID)
		}
	}

	// Gate 9: invoice balances must reconcile with the ledger.
	var invoiceTotal models.Amount
	for i := range invoices {
		invoiceTotal += invoices[i].Balance
	}
	if invoiceTotal != account.LedgerBalance {
		logger.Errorw("batch_invoice_balance_mismatch",
			"account_id", account.ID,
			"invoice_total", int64(invoiceTotal),
			"ledger_balance", int64(account.LedgerBalance),
		)
		return nil, fmt.Errorf("%w: invoices %d, ledger %d",
			ErrInvoiceBalanceMismatch, int64(invoiceTotal), int64(account.LedgerBalance))
	}

	return s.chargeAccount(ctx, account, method, invoices)
}

// chargeAccount creates the attempt row, checks for duplication, and either
// suspends or runs the sale, all within one transaction. Events fire after
// commit. A gateway communication failure declines the attempt; it never
// escapes the job.
func (s *BatchPaymentService) chargeAccount(ctx context.Context, account *models.Account, method *models.PaymentMethod, invoices []models.Invoice) (*BatchChargeResult, error) {
	currency := account.CurrencyCode
	if currency == "" {
		currency = constants.DefaultCurrencyCode
	}

	var payment *models.Payment
	var original *models.Payment
	var opResult *GatewayOperationResult
	var opErr error

	txErr := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.(*repository.GormPaymentRepository).WithTx(tx)

		methodID := method.ID
		payment = &models.Payment{
			AccountID:       account.ID,
			PaymentMethodID: &methodID,
			PaymentType:     method.Type,
			PaymentGateway:  method.Gateway,
			Amount:          account.LedgerBalance,
			CurrencyCode:    currency,
			Status:          constants.PaymentStatusAuthCapturing,
			CreatedBy:       constants.InitiatorBatch,
			UpdatedBy:       constants.InitiatorBatch,
		}
		if err := paymentRepo.Create(payment); err != nil {
			return err
		}
		links := make([]models.PaymentInvoice, 0, len(invoices))
		for i := range invoices {
			links = append(links, models.PaymentInvoice{
				InvoiceID:     invoices[i].ID,
				AppliedAmount: invoices[i].Balance,
			})
		}
		if err := paymentRepo.LinkInvoices(payment.ID, links); err != nil {
			return err
		}

		ids := invoiceModelIDs(invoices)
		isDup, err := s.duplicates.IsDuplicatePayment(tx, ids, payment.Amount, account.ID, payment.PaymentMethodID)
		if err != nil {
			return err
		}
		if isDup {
			original = s.duplicates.OriginalPayment()
			now := time.Now()
			originalID := original.ID
			payment.Status = constants.PaymentStatusSuspended
			payment.OriginalPaymentID = &originalID
			payment.SuspendReason = constants.SuspendReasonDuplicate
			payment.SuspendedAt = &now
			return paymentRepo.Update(payment)
		}

		opResult, opErr = s.gatewayOps.AuthorizeAndCapture(ctx, tx, payment, method)
		if opErr != nil && opResult == nil {
			return opErr
		}
		next, err := FlowNext(FlowSale, payment.Status, opResult.IsSuccess)
		if err != nil {
			return err
		}
		now := time.Now()
		payment.Status = next
		payment.ProcessedAt = &now
		return paymentRepo.Update(payment)
	})
	if txErr != nil {
		return nil, txErr
	}

	if original != nil {
		s.publisher.Publish(event.KindSuspended, event.SuspendedPayload{
			PaymentID:         payment.ID,
			OriginalPaymentID: original.ID,
			AccountID:         account.ID,
			Reason:            constants.SuspendReasonDuplicate,
		})
		logger.Infow("batch_payment_suspended",
			"payment_id", payment.ID,
			"original_payment_id", original.ID,
			"account_id", account.ID,
		)
		return &BatchChargeResult{PaymentID: payment.ID, Status: payment.Status, Suspended: true}, nil
	}

	message := opResult.Message
	if opErr != nil {
		// Communication failures decline the attempt and stay inside the job.
		logger.Errorw("batch_gateway_call_failed",
			"payment_id", payment.ID,
			"account_id", account.ID,
			"error", opErr,
		)
		message = opErr.Error()
	}
	s.publisher.Publish(event.KindAttempted, event.AttemptedPayload{
		PaymentID: payment.ID,
		AccountID: account.ID,
		OldStatus: constants.PaymentStatusAuthCapturing,
		NewStatus: payment.Status,
		Operation: constants.TransactionTypeSale,
		Initiator: constants.InitiatorBatch,
		Amount:    int64(payment.Amount),
		Message:   message,
	})
	return &BatchChargeResult{PaymentID: payment.ID, Status: payment.Status}, nil
}

// resolveInvoices loads the dispatched invoice set, or discovers the
// account's unpaid invoices when the task carried none.
func (s *BatchPaymentService) resolveInvoices(accountID uint, invoiceIDs []uint) ([]models.Invoice, error) {
	if len(invoiceIDs) == 0 {
		return s.invoiceRepo.ListUnpaidForAccount(accountID)
	}
	return s.invoiceRepo.GetByIDs(invoiceIDs)
}

func (s *BatchPaymentService) skip(account *models.Account, areaID int, reason, detail string) (*BatchChargeResult, error) {
	s.publisher.Publish(event.KindSkipped, event.SkippedPayload{
		AccountID: account.ID,
		AreaID:    areaID,
		Reason:    reason,
		Detail:    detail,
	})
	logger.Infow("batch_account_skipped",
		"account_id", account.ID,
		"area_id", areaID,
		"reason", reason,
	)
	return &BatchChargeResult{Skipped: true, SkipReason: reason}, nil
}

func allDeclined(payments []models.Payment) bool {
	for i := range payments {
		if payments[i].Status != constants.PaymentStatusDeclined {
			return false
		}
	}
	return len(payments) > 0
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// billingDayReached clamps the preferred day to the month's length so a
// day-31 preference still bills in February.
func billingDayReached(preferred *int, now time.Time) bool {
	if preferred == nil {
		return true
	}
	day := *preferred
	lastDay := time.Date(now.Year(), now.Month()+1, 0, 0, 0, 0, 0, now.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return now.Day() >= day
}

func invoiceModelIDs(invoices []models.Invoice) []uint {
	ids := make([]uint, 0, len(invoices))
	for i := range invoices {
		ids = append(ids, invoices[i].ID)
	}
	return ids
}
