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

// RefundResult is what a refund executor reports back.
type RefundResult struct {
	IsSuccess     bool
	Status        string
	TransactionID string
	ErrorMessage  string
}

// RefundExecutor moves the money for a refund. The core locates the original
// payment and assembles the request; how the processor is credited is the
// executor's business.
type RefundExecutor interface {
	Refund(ctx context.Context, original *models.Payment, amount models.Amount, externalRefID *string) (*RefundResult, error)
}

// VoidRefundExecutor refunds through the gateway's void endpoint keyed by
// the original charge's transaction id. Manual gateways are book-keeping
// only and always succeed without a processor call.
type VoidRefundExecutor struct {
	registry *gateway.Registry
	txnRepo  repository.TransactionRepository
}

// NewVoidRefundExecutor creates the gateway-backed executor.
func NewVoidRefundExecutor(registry *gateway.Registry, txnRepo repository.TransactionRepository) *VoidRefundExecutor {
	return &VoidRefundExecutor{registry: registry, txnRepo: txnRepo}
}

// Refund credits the amount back against the original charge.
func (e *VoidRefundExecutor) Refund(ctx context.Context, original *models.Payment, amount models.Amount, externalRefID *string) (*RefundResult, error) {
	adapter, ok := e.registry.Resolve(original.PaymentGateway)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, original.PaymentGateway)
	}
	if !adapter.Real() {
		return &RefundResult{IsSuccess: true, Status: constants.PaymentStatusCredited}, nil
	}

	var prior *models.Transaction
	for _, txnType := range []string{constants.TransactionTypeSale, constants.TransactionTypeAuthorize} {
		candidate, err := e.txnRepo.GetLatestOfTypeForPayment(original.ID, txnType)
		if err != nil {
			return nil, err
		}
		if candidate != nil && candidate.Success {
			prior = candidate
			break
		}
	}
	if prior == nil {
		return nil, fmt.Errorf("%w: payment %d", ErrTransactionNotFound, original.ID)
	}

	processor := gateway.NewProcessor()
	processor.SetGateway(adapter)
	fields := map[gateway.Field]string{
		gateway.FieldReferenceID:  original.PaymentRef,
		gateway.FieldGatewayTxnID: prior.GatewayTransactionID,
		gateway.FieldAmount:       amount.String(),
		gateway.FieldCurrency:     original.CurrencyCode,
	}
	if externalRefID != nil {
		fields[gateway.FieldDescription] = fmt.Sprintf("refund %s", *externalRefID)
	}
	processor.Populate(fields)

	ok, err := processor.Cancel(ctx)
	if err != nil {
		return &RefundResult{IsSuccess: false, Status: constants.PaymentStatusDeclined, ErrorMessage: err.Error()},
			fmt.Errorf("%w: %v", ErrGatewayCommunication, err)
	}
	result := processor.Result()
	status := constants.PaymentStatusCredited
	if !ok {
		status = constants.PaymentStatusDeclined
	}
	return &RefundResult{
		IsSuccess:     ok,
		Status:        status,
		TransactionID: result.TransactionID,
		ErrorMessage:  result.Message,
	}, nil
}

// RefundService handles refunds: window and amount validation, the
// append-only credited row linked to the original, and the refund
// transaction record.
type RefundService struct {
	paymentRepo repository.PaymentRepository
	txnRepo     repository.TransactionRepository
	executor    RefundExecutor
	publisher   event.Publisher
	billing     config.BillingConfig
}

// NewRefundService creates the refund service.
func NewRefundService(
	paymentRepo repository.PaymentRepository,
	txnRepo repository.TransactionRepository,
	executor RefundExecutor,
	publisher event.Publisher,
	billing config.BillingConfig,
) *RefundService {
	return &RefundService{
		paymentRepo: paymentRepo,
		txnRepo:     txnRepo,
		executor:    executor,
		publisher:   publisher,
		billing:     billing,
	}
}

// RefundInput shapes one refund request. A nil Amount refunds the full
// original amount. OverrideWindow lets operators refund past the window.
type RefundInput struct {
	OriginalPaymentID uint
	Amount            *models.Amount
	OverrideWindow    bool
	ExternalRefID     *string
	Initiator         string
}

// Refund credits money back for a captured or settled payment. The original
// row is untouched; the refund is a new row linked through
// original_payment_id, CREDITED only when the gateway accepted the credit
// and DECLINED otherwise.
func (s *RefundService) Refund(ctx context.Context, input RefundInput) (*models.Payment, error) {
	original, err := s.paymentRepo.GetByID(input.OriginalPaymentID)
	if err != nil {
		return nil, err
	}
	if original == nil {
		return nil, ErrPaymentNotFound
	}
	switch original.Status {
	case constants.PaymentStatusCaptured, constants.PaymentStatusSettled:
	default:
		return nil, fmt.Errorf("%w: cannot refund from %s", ErrPaymentStateConflict, original.Status)
	}

	if !input.OverrideWindow && s.billing.RefundWindowDays > 0 {
		refundableUntil := refundAnchor(original).AddDate(0, 0, s.billing.RefundWindowDays)
		if time.Now().After(refundableUntil) {
			return nil, fmt.Errorf("%w: %d days", ErrRefundWindowExceeded, s.billing.RefundWindowDays)
		}
	}

	amount := original.Amount
	if input.Amount != nil {
		amount = *input.Amount
	}
	if amount <= 0 || amount > original.Amount {
		return nil, ErrRefundAmountInvalid
	}

	result, execErr := s.executor.Refund(ctx, original, amount, input.ExternalRefID)
	if execErr != nil && result == nil {
		return nil, execErr
	}

	initiator := input.Initiator
	if initiator == "" {
		initiator = constants.InitiatorAPI
	}

	refundStatus := result.Status
	if refundStatus == "" {
		refundStatus = constants.PaymentStatusDeclined
	}

	var refund *models.Payment
	txErr := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.(*repository.GormPaymentRepository).WithTx(tx)
		txnRepo := s.txnRepo.(*repository.GormTransactionRepository).WithTx(tx)

		created, err := paymentRepo.CloneAndCreateFromExistingPayment(original, refundStatus)
		if err != nil {
			return err
		}
		refund = created
		refund.Amount = amount
		refund.ExternalRefID = input.ExternalRefID
		refund.CreatedBy = initiator
		refund.UpdatedBy = initiator
		if err := paymentRepo.Update(refund); err != nil {
			return err
		}
		return txnRepo.Create(refundTransaction(refund.ID, result))
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publisher.Publish(event.KindAttempted, event.AttemptedPayload{
		PaymentID: refund.ID,
		AccountID: refund.AccountID,
		OldStatus: original.Status,
		NewStatus: refund.Status,
		Operation: constants.TransactionTypeRefund,
		Initiator: initiator,
		Amount:    int64(amount),
		Message:   result.ErrorMessage,
	})
	if execErr != nil {
		return refund, execErr
	}
	if !result.IsSuccess {
		logger.Warnw("refund_declined",
			"payment_id", refund.ID,
			"original_payment_id", original.ID,
			"message", result.ErrorMessage,
		)
	}
	return refund, nil
}

// ProcessExternalRefund executes a CRM-imported refund that has no gateway
// transaction yet: the credited row already exists, the money has not moved.
func (s *RefundService) ProcessExternalRefund(ctx context.Context, paymentID uint) error {
	credited, err := s.paymentRepo.GetByID(paymentID)
	if err != nil {
		return err
	}
	if credited == nil {
		return ErrPaymentNotFound
	}
	if credited.Status != constants.PaymentStatusCredited {
		return fmt.Errorf("%w: payment %d is %s, expected %s",
			ErrPaymentStateConflict, credited.ID, credited.Status, constants.PaymentStatusCredited)
	}
	count, err := s.txnRepo.CountForPayment(credited.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		// Another run already executed it; nothing to do.
		return nil
	}

	// The credited row points at the charge it refunds; the gateway call is
	// keyed by that charge's transaction.
	charged := credited
	if credited.OriginalPaymentID != nil {
		original, err := s.paymentRepo.GetByID(*credited.OriginalPaymentID)
		if err != nil {
			return err
		}
		if original != nil {
			charged = original
		}
	}

	result, execErr := s.executor.Refund(ctx, charged, credited.Amount, credited.ExternalRefID)
	if execErr != nil && result == nil {
		return execErr
	}
	if err := s.txnRepo.Create(refundTransaction(credited.ID, result)); err != nil {
		return err
	}
	if !result.IsSuccess {
		// The CRM already booked this row as credited; a processor decline
		// needs operator eyes, not a silent retry.
		logger.Warnw("external_refund_declined",
			"payment_id", credited.ID,
			"message", result.ErrorMessage,
		)
	}

	s.publisher.Publish(event.KindAttempted, event.AttemptedPayload{
		PaymentID: credited.ID,
		AccountID: credited.AccountID,
		OldStatus: credited.Status,
		NewStatus: credited.Status,
		Operation: constants.TransactionTypeRefund,
		Initiator: constants.InitiatorBatch,
		Amount:    int64(credited.Amount),
		Message:   result.ErrorMessage,
	})
	return execErr
}

// refundAnchor picks the moment the refund window counts from.
func refundAnchor(payment *models.Payment) time.Time {
	if payment.ProcessedAt != nil {
		return *payment.ProcessedAt
	}
	return payment.CreatedAt
}

func refundTransaction(paymentID uint, result *RefundResult) *models.Transaction {
	now := time.Now()
	return &models.Transaction{
		PaymentID:            paymentID,
		TransactionType:      constants.TransactionTypeRefund,
		GatewayTransactionID: result.TransactionID,
		GatewayMessage:       result.ErrorMessage,
		Success:              result.IsSuccess,
		ProcessedAt:          &now,
	}
}
