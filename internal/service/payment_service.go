package service

import (
	"context"
	"fmt"
	"time"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/event"
	"github.com/paycore/internal/gateway"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"

	"gorm.io/gorm"
)

// ChargeInput is the request shape shared by authorize and auth+capture.
type ChargeInput struct {
	AccountID       uint
	PaymentMethodID *uint // nil resolves to the account's primary method
	Amount          models.Amount
	CurrencyCode    string
	Initiator       string
	Notes           string
}

// PaymentService orchestrates the single-payment use cases: validation,
// transactional state transition, gateway call, event.
type PaymentService struct {
	paymentRepo repository.PaymentRepository
	methodRepo  repository.PaymentMethodRepository
	accountRepo repository.AccountRepository
	txnRepo     repository.TransactionRepository
	gatewayOps  *GatewayOperationService
	registry    *gateway.Registry
	publisher   event.Publisher
	billing     config.BillingConfig
}

// NewPaymentService creates the single-payment handler service.
func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	methodRepo repository.PaymentMethodRepository,
	accountRepo repository.AccountRepository,
	txnRepo repository.TransactionRepository,
	gatewayOps *GatewayOperationService,
	registry *gateway.Registry,
	publisher event.Publisher,
	billing config.BillingConfig,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		methodRepo:  methodRepo,
		accountRepo: accountRepo,
		txnRepo:     txnRepo,
		gatewayOps:  gatewayOps,
		registry:    registry,
		publisher:   publisher,
		billing:     billing,
	}
}

// resolveChargeable validates the input and returns the account plus the
// method that will be charged.
func (s *PaymentService) resolveChargeable(input ChargeInput) (*models.Account, *models.PaymentMethod, error) {
	if input.Amount <= 0 {
		return nil, nil, ErrAmountInvalid
	}
	account, err := s.accountRepo.GetByID(input.AccountID)
	if err != nil {
		return nil, nil, err
	}
	if account == nil {
		return nil, nil, ErrAccountNotFound
	}

	var method *models.PaymentMethod
	if input.PaymentMethodID != nil {
		method, err = s.methodRepo.GetByID(*input.PaymentMethodID)
		if err != nil {
			return nil, nil, err
		}
		if method == nil {
			return nil, nil, ErrPaymentMethodNotFound
		}
		if method.AccountID != account.ID {
			return nil, nil, ErrMethodAccountMismatch
		}
	} else {
		method, err = s.methodRepo.GetPrimaryForAccount(account.ID)
		if err != nil {
			return nil, nil, err
		}
		if method == nil {
			return nil, nil, ErrPaymentMethodNotFound
		}
	}
	if !method.Chargeable() {
		return nil, nil, ErrMethodNotChargeable
	}
	return account, method, nil
}

// Authorize places a hold on the method for the amount. The payment ends in
// authorized or declined.
func (s *PaymentService) Authorize(ctx context.Context, input ChargeInput) (*models.Payment, error) {
	return s.charge(ctx, input, FlowAuthorize, nil)
}

// AuthorizeAndCapture runs a combined sale. When existingPaymentID is
// non-nil the referenced payment must be suspended; it is released and
// charged instead of creating a new row.
func (s *PaymentService) AuthorizeAndCapture(ctx context.Context, input ChargeInput, existingPaymentID *uint) (*models.Payment, error) {
	var existing *models.Payment
	if existingPaymentID != nil {
		payment, err := s.paymentRepo.GetByID(*existingPaymentID)
		if err != nil {
			return nil, err
		}
		if payment == nil {
			return nil, ErrPaymentNotFound
		}
		if payment.Status != constants.PaymentStatusSuspended {
			return nil, fmt.Errorf("%w: payment %d is %s, expected %s",
				ErrPaymentStateConflict, payment.ID, payment.Status, constants.PaymentStatusSuspended)
		}
		if payment.AccountID != input.AccountID {
			return nil, fmt.Errorf("%w: payment %d belongs to account %d",
				ErrPaymentAccountMismatch, payment.ID, payment.AccountID)
		}
		existing = payment
	}
	return s.charge(ctx, input, FlowSale, existing)
}

// charge is the shared authorize / sale path: create or release the row in
// its pending status, call the gateway, land the outcome, emit the attempted
// event after commit.
func (s *PaymentService) charge(ctx context.Context, input ChargeInput, op FlowOp, existing *models.Payment) (*models.Payment, error) {
	account, method, err := s.resolveChargeable(input)
	if err != nil {
		return nil, err
	}
	currency := input.CurrencyCode
	if currency == "" {
		currency = constants.DefaultCurrencyCode
	}
	initiator := input.Initiator
	if initiator == "" {
		initiator = constants.InitiatorAPI
	}

	var payment *models.Payment
	var oldStatus string
	var opResult *GatewayOperationResult
	var opErr error

	txErr := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.(*repository.GormPaymentRepository).WithTx(tx)

		if existing != nil {
			pending, err := FlowPending(op, existing.Status)
			if err != nil {
				return err
			}
			oldStatus = existing.Status
			existing.Status = pending
			existing.UpdatedBy = initiator
			if err := paymentRepo.Update(existing); err != nil {
				return err
			}
			payment = existing
		} else {
			pending, err := FlowPending(op, initialStatusFor(op))
			if err != nil {
				return err
			}
			oldStatus = pending
			methodID := method.ID
			payment = &models.Payment{
				AccountID:       account.ID,
				PaymentMethodID: &methodID,
				PaymentType:     method.Type,
				PaymentGateway:  method.Gateway,
				Amount:          input.Amount,
				CurrencyCode:    currency,
				Status:          pending,
				CreatedBy:       initiator,
				UpdatedBy:       initiator,
				Notes:           input.Notes,
			}
			if err := paymentRepo.Create(payment); err != nil {
				return err
			}
		}

		if op == FlowSale {
			opResult, opErr = s.gatewayOps.AuthorizeAndCapture(ctx, tx, payment, method)
		} else {
			opResult, opErr = s.gatewayOps.Authorize(ctx, tx, payment, method)
		}
		if opErr != nil && opResult == nil {
			// Never dispatched: no transaction row to land, roll back.
			return opErr
		}

		next, err := FlowNext(op, payment.Status, opResult.IsSuccess)
		if err != nil {
			return err
		}
		now := time.Now()
		payment.Status = next
		payment.ProcessedAt = &now
		payment.UpdatedBy = initiator
		return paymentRepo.Update(payment)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publisher.Publish(event.KindAttempted, event.AttemptedPayload{
		PaymentID: payment.ID,
		AccountID: payment.AccountID,
		OldStatus: oldStatus,
		NewStatus: payment.Status,
		Operation: operationName(op),
		Initiator: initiator,
		Amount:    int64(payment.Amount),
		Message:   opResult.Message,
	})
	if opErr != nil {
		return payment, opErr
	}
	return payment, nil
}

func initialStatusFor(op FlowOp) string {
	if op == FlowSale {
		return constants.PaymentStatusAuthCapturing
	}
	return constants.PaymentStatusAuthorizing
}

func operationName(op FlowOp) string {
	switch op {
	case FlowSale:
		return constants.TransactionTypeSale
	case FlowCapture:
		return constants.TransactionTypeCapture
	case FlowCancel:
		return constants.TransactionTypeCancel
	default:
		return constants.TransactionTypeAuthorize
	}
}

// Capture collects a previously authorized payment. Past the capture window
// the payment is cancelled instead and the caller gets an expired error;
// capture never silently succeeds late.
func (s *PaymentService) Capture(ctx context.Context, paymentID uint, initiator string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	if !FlowAllowed(FlowCapture, payment.Status) {
		return nil, fmt.Errorf("%w: cannot capture from %s", ErrPaymentStateConflict, payment.Status)
	}

	window := time.Duration(s.billing.CaptureWindowHours) * time.Hour
	if window > 0 {
		anchor, err := s.captureAnchor(payment)
		if err != nil {
			return nil, err
		}
		if time.Since(anchor) > window {
			logger.Warnw("capture_window_expired",
				"payment_id", payment.ID,
				"authorized_at", anchor,
				"window_hours", s.billing.CaptureWindowHours,
			)
			cancelled, cancelErr := s.Cancel(ctx, paymentID, initiator)
			if cancelErr != nil {
				return cancelled, fmt.Errorf("%w: %v", ErrAuthorizationExpired, cancelErr)
			}
			return cancelled, ErrAuthorizationExpired
		}
	}

	return s.followUp(ctx, payment, FlowCapture, initiator)
}

// captureAnchor picks the moment the capture window counts from: the prior
// authorize transaction's processing time when one exists, else the row's
// creation. A gateway that answers the authorize late must not shrink the
// window.
func (s *PaymentService) captureAnchor(payment *models.Payment) (time.Time, error) {
	prior, err := s.txnRepo.GetLatestOfTypeForPayment(payment.ID, constants.TransactionTypeAuthorize)
	if err != nil {
		return time.Time{}, err
	}
	if prior != nil && prior.ProcessedAt != nil {
		return *prior.ProcessedAt, nil
	}
	return payment.CreatedAt, nil
}

// Cancel voids an authorized or captured payment at the gateway. Only real
// gateways support it, and a payment already settled there cannot be voided.
func (s *PaymentService) Cancel(ctx context.Context, paymentID uint, initiator string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	adapter, ok := s.registry.Resolve(payment.PaymentGateway)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, payment.PaymentGateway)
	}
	if !adapter.Real() {
		return nil, ErrCancelNotAllowed
	}
	if payment.Status == constants.PaymentStatusSettled {
		return nil, ErrPaymentAlreadySettled
	}
	if !FlowAllowed(FlowCancel, payment.Status) {
		return nil, fmt.Errorf("%w: cannot cancel from %s", ErrPaymentStateConflict, payment.Status)
	}

	cancelled, err := s.followUp(ctx, payment, FlowCancel, initiator)
	if err != nil {
		return cancelled, fmt.Errorf("%w: %v", ErrCancellationFailed, err)
	}
	return cancelled, nil
}

// followUp is the shared capture / cancel path over an existing row.
func (s *PaymentService) followUp(ctx context.Context, payment *models.Payment, op FlowOp, initiator string) (*models.Payment, error) {
	if initiator == "" {
		initiator = constants.InitiatorAPI
	}
	oldStatus := payment.Status
	var opResult *GatewayOperationResult
	var opErr error

	txErr := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.(*repository.GormPaymentRepository).WithTx(tx)

		pending, err := FlowPending(op, payment.Status)
		if err != nil {
			return err
		}
		if pending != payment.Status {
			payment.Status = pending
			if err := paymentRepo.Update(payment); err != nil {
				return err
			}
		}

		if op == FlowCancel {
			opResult, opErr = s.gatewayOps.Cancel(ctx, tx, payment)
		} else {
			opResult, opErr = s.gatewayOps.Capture(ctx, tx, payment)
		}
		if opErr != nil && opResult == nil {
			return opErr
		}

		next, err := FlowNext(op, payment.Status, opResult.IsSuccess)
		if err != nil {
			return err
		}
		now := time.Now()
		payment.Status = next
		payment.ProcessedAt = &now
		payment.UpdatedBy = initiator
		return paymentRepo.Update(payment)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publisher.Publish(event.KindAttempted, event.AttemptedPayload{
		PaymentID: payment.ID,
		AccountID: payment.AccountID,
		OldStatus: oldStatus,
		NewStatus: payment.Status,
		Operation: operationName(op),
		Initiator: initiator,
		Amount:    int64(payment.Amount),
		Message:   opResult.Message,
	})
	if opErr != nil {
		return payment, opErr
	}
	return payment, nil
}

// Terminate permanently cancels a suspended payment. Any other starting
// status is rejected.
func (s *PaymentService) Terminate(ctx context.Context, paymentID uint, actor string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return nil, err
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	next, err := FlowNext(FlowTerminate, payment.Status, true)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	err = s.paymentRepo.UpdateStatus(payment.ID, next, map[string]interface{}{
		"terminated_at": &now,
		"terminated_by": actor,
		"updated_by":    actor,
	})
	if err != nil {
		return nil, err
	}
	payment.Status = next
	payment.TerminatedAt = &now
	payment.TerminatedBy = actor

	s.publisher.Publish(event.KindTerminated, event.TerminatedPayload{
		PaymentID:    payment.ID,
		AccountID:    payment.AccountID,
		TerminatedBy: actor,
	})
	logger.Infow("payment_terminated",
		"payment_id", payment.ID,
		"account_id", payment.AccountID,
		"terminated_by", actor,
	)
	return payment, nil
}

// GetPayment fetches one payment or a typed not-found.
func (s *PaymentService) GetPayment(id uint) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFetchFailed, err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// GetPaymentByRef fetches one payment by the reference id sent to gateways.
func (s *PaymentService) GetPaymentByRef(ref string) (*models.Payment, error) {
	payment, err := s.paymentRepo.GetByPaymentRef(ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPaymentFetchFailed, err)
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

// ListPayments returns a filtered page.
func (s *PaymentService) ListPayments(filter repository.PaymentListFilter) ([]models.Payment, int64, error) {
	return s.paymentRepo.List(filter)
}
