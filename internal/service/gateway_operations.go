package service

import (
	"context"
	"fmt"
	"time"

	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/event"
	"github.com/paycore/internal/gateway"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"

	"gorm.io/gorm"
)

// GatewayOperationResult is the outcome of one orchestrated gateway call.
type GatewayOperationResult struct {
	IsSuccess     bool
	TransactionID string
	Message       string
}

// GatewayOperationService translates a payment and its method into an
// operation data bag, dispatches the gateway primitive, and persists the
// resulting transaction row. It never mutates payment status; that belongs
// to the handler owning the transition.
type GatewayOperationService struct {
	registry    *gateway.Registry
	paymentRepo repository.PaymentRepository
	txnRepo     repository.TransactionRepository
	publisher   event.Publisher
}

// NewGatewayOperationService creates the gateway orchestration service.
func NewGatewayOperationService(registry *gateway.Registry, paymentRepo repository.PaymentRepository, txnRepo repository.TransactionRepository, publisher event.Publisher) *GatewayOperationService {
	return &GatewayOperationService{
		registry:    registry,
		paymentRepo: paymentRepo,
		txnRepo:     txnRepo,
		publisher:   publisher,
	}
}

// resolveAdapter returns the adapter for the payment's gateway.
func (s *GatewayOperationService) resolveAdapter(payment *models.Payment) (gateway.Adapter, error) {
	adapter, ok := s.registry.Resolve(payment.PaymentGateway)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGatewayNotFound, payment.PaymentGateway)
	}
	return adapter, nil
}

// populateCharge fills the bag with everything an authorize or sale needs.
func populateCharge(processor *gateway.Processor, payment *models.Payment, method *models.PaymentMethod) {
	fields := map[gateway.Field]string{
		gateway.FieldAmount:      payment.Amount.String(),
		gateway.FieldCurrency:    payment.CurrencyCode,
		gateway.FieldReferenceID: payment.PaymentRef,
		gateway.FieldDescription: fmt.Sprintf("account %d payment %s", payment.AccountID, payment.PaymentRef),
	}
	if method != nil {
		fields[gateway.FieldToken] = method.GatewayToken
		fields[gateway.FieldBillingName] = method.BillingName
		fields[gateway.FieldBillingStreet] = method.BillingStreet
		fields[gateway.FieldBillingCity] = method.BillingCity
		fields[gateway.FieldBillingState] = method.BillingState
		fields[gateway.FieldBillingZip] = method.BillingZip
		if method.Type == constants.PaymentTypeACH {
			fields[gateway.FieldAchRoutingNo] = method.AchRoutingNo
			fields[gateway.FieldAchAccountNo] = method.AchAccountNo
		}
	}
	processor.Populate(fields)
}

// Authorize places a hold for the payment's amount.
func (s *GatewayOperationService) Authorize(ctx context.Context, tx *gorm.DB, payment *models.Payment, method *models.PaymentMethod) (*GatewayOperationResult, error) {
	return s.charge(ctx, tx, payment, method, constants.TransactionTypeAuthorize)
}

// AuthorizeAndCapture runs a combined sale.
func (s *GatewayOperationService) AuthorizeAndCapture(ctx context.Context, tx *gorm.DB, payment *models.Payment, method *models.PaymentMethod) (*GatewayOperationResult, error) {
	return s.charge(ctx, tx, payment, method, constants.TransactionTypeSale)
}

func (s *GatewayOperationService) charge(ctx context.Context, tx *gorm.DB, payment *models.Payment, method *models.PaymentMethod, txnType string) (*GatewayOperationResult, error) {
	adapter, err := s.resolveAdapter(payment)
	if err != nil {
		return nil, err
	}
	processor := gateway.NewProcessor()
	processor.SetGateway(adapter)
	populateCharge(processor, payment, method)

	var ok bool
	var callErr error
	if txnType == constants.TransactionTypeSale {
		ok, callErr = processor.Sale(ctx)
	} else {
		ok, callErr = processor.Authorize(ctx)
	}
	return s.finishCall(tx, payment, txnType, processor, ok, callErr)
}

// Capture collects a previously authorized payment. A missing prior
// authorize transaction is a hard inconsistency, never created silently.
func (s *GatewayOperationService) Capture(ctx context.Context, tx *gorm.DB, payment *models.Payment) (*GatewayOperationResult, error) {
	return s.followUp(ctx, tx, payment, constants.TransactionTypeCapture)
}

// Cancel voids a previously authorized payment.
func (s *GatewayOperationService) Cancel(ctx context.Context, tx *gorm.DB, payment *models.Payment) (*GatewayOperationResult, error) {
	return s.followUp(ctx, tx, payment, constants.TransactionTypeCancel)
}

func (s *GatewayOperationService) followUp(ctx context.Context, tx *gorm.DB, payment *models.Payment, txnType string) (*GatewayOperationResult, error) {
	adapter, err := s.resolveAdapter(payment)
	if err != nil {
		return nil, err
	}
	prior, err := s.priorAuthorizeTransaction(tx, payment)
	if err != nil {
		return nil, err
	}

	processor := gateway.NewProcessor()
	processor.SetGateway(adapter)
	processor.Populate(map[gateway.Field]string{
		gateway.FieldReferenceID:  payment.PaymentRef,
		gateway.FieldGatewayTxnID: prior.GatewayTransactionID,
		gateway.FieldAmount:       payment.Amount.String(),
		gateway.FieldCurrency:     payment.CurrencyCode,
	})

	var ok bool
	var callErr error
	if txnType == constants.TransactionTypeCancel {
		ok, callErr = processor.Cancel(ctx)
	} else {
		ok, callErr = processor.Capture(ctx)
	}
	return s.finishCall(tx, payment, txnType, processor, ok, callErr)
}

// priorAuthorizeTransaction finds the authorize-type transaction that
// capture, cancel and status operations build on.
func (s *GatewayOperationService) priorAuthorizeTransaction(tx *gorm.DB, payment *models.Payment) (*models.Transaction, error) {
	txnRepo := s.txnRepo
	if tx != nil {
		txnRepo = s.txnRepo.(*repository.GormTransactionRepository).WithTx(tx)
	}
	for _, txnType := range []string{constants.TransactionTypeAuthorize, constants.TransactionTypeSale} {
		prior, err := txnRepo.GetLatestOfTypeForPayment(payment.ID, txnType)
		if err != nil {
			return nil, err
		}
		if prior != nil && prior.Success {
			return prior, nil
		}
	}
	logger.Errorw("gateway_op_prior_transaction_missing",
		"payment_id", payment.ID,
		"status", payment.Status,
	)
	return nil, fmt.Errorf("%w: payment %d", ErrTransactionNotFound, payment.ID)
}

// finishCall persists the transaction row for the dispatched call and maps
// the outcome. A transport failure is still recorded, then surfaced as a
// gateway-communication error.
func (s *GatewayOperationService) finishCall(tx *gorm.DB, payment *models.Payment, txnType string, processor *gateway.Processor, ok bool, callErr error) (*GatewayOperationResult, error) {
	txnRepo := s.txnRepo
	if tx != nil {
		txnRepo = s.txnRepo.(*repository.GormTransactionRepository).WithTx(tx)
	}
	now := time.Now()
	txn := models.Transaction{
		PaymentID:       payment.ID,
		TransactionType: txnType,
		Success:         ok,
		ProcessedAt:     &now,
	}
	if result := processor.Result(); result != nil {
		txn.GatewayTransactionID = result.TransactionID
		txn.GatewayResponseCode = result.ResponseCode
		txn.GatewayMessage = result.Message
		if result.Raw != nil {
			txn.RawResponse = models.JSON(result.Raw)
		}
	} else {
		txn.GatewayMessage = processor.Err()
	}
	if err := txnRepo.Create(&txn); err != nil {
		return nil, err
	}

	if callErr != nil {
		return &GatewayOperationResult{
			IsSuccess: false,
			Message:   callErr.Error(),
		}, fmt.Errorf("%w: %v", ErrGatewayCommunication, callErr)
	}
	return &GatewayOperationResult{
		IsSuccess:     ok,
		TransactionID: txn.GatewayTransactionID,
		Message:       txn.GatewayMessage,
	}, nil
}

// Status queries the gateway for the payment's current state. For ACH
// payments a gateway-reported return produces a new RETURNED row cloned
// from the original (the original keeps its status), and a settlement moves
// the same row to settled; anything else is informational only.
func (s *GatewayOperationService) Status(ctx context.Context, payment *models.Payment) (*GatewayOperationResult, error) {
	// A queued poll can race a settlement or return already applied;
	// terminal rows take no further gateway calls.
	if IsTerminalStatus(payment.Status) {
		return &GatewayOperationResult{IsSuccess: true, Message: payment.Status}, nil
	}
	adapter, err := s.resolveAdapter(payment)
	if err != nil {
		return nil, err
	}
	prior, err := s.priorAuthorizeTransaction(nil, payment)
	if err != nil {
		return nil, err
	}

	processor := gateway.NewProcessor()
	processor.SetGateway(adapter)
	processor.Populate(map[gateway.Field]string{
		gateway.FieldReferenceID:  payment.PaymentRef,
		gateway.FieldGatewayTxnID: prior.GatewayTransactionID,
	})
	ok, callErr := processor.Status(ctx)
	if callErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayCommunication, callErr)
	}
	result := processor.Result()

	if payment.PaymentType != constants.PaymentTypeACH {
		return &GatewayOperationResult{IsSuccess: ok, TransactionID: result.TransactionID, Message: result.Message}, nil
	}

	switch result.AchStatus {
	case constants.AchStatusReturned:
		return s.applyAchReturn(payment, prior, result)
	case constants.AchStatusSettled:
		return s.applyAchSettlement(payment, result)
	default:
		logger.Infow("ach_status_unchanged",
			"payment_id", payment.ID,
			"ach_status", result.AchStatus,
		)
		return &GatewayOperationResult{IsSuccess: ok, TransactionID: result.TransactionID, Message: result.Message}, nil
	}
}

func (s *GatewayOperationService) applyAchReturn(payment *models.Payment, checked *models.Transaction, result *gateway.Result) (*GatewayOperationResult, error) {
	var clone *models.Payment
	err := models.DB.Transaction(func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.(*repository.GormPaymentRepository).WithTx(tx)
		txnRepo := s.txnRepo.(*repository.GormTransactionRepository).WithTx(tx)

		created, err := paymentRepo.CloneAndCreateFromExistingPayment(payment, constants.PaymentStatusReturned)
		if err != nil {
			return err
		}
		clone = created

		// Re-point the checked transaction at the clone so the return is
		// traceable from the new row.
		checked.PaymentID = clone.ID
		return txnRepo.Update(checked)
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(event.KindReturned, event.ReturnedPayload{
		OriginalPaymentID: payment.ID,
		ReturnedPaymentID: clone.ID,
		AccountID:         payment.AccountID,
	})
	return &GatewayOperationResult{IsSuccess: true, TransactionID: result.TransactionID, Message: result.Message}, nil
}

func (s *GatewayOperationService) applyAchSettlement(payment *models.Payment, result *gateway.Result) (*GatewayOperationResult, error) {
	next, err := FlowNext(FlowSettle, payment.Status, true)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	err = s.paymentRepo.UpdateStatus(payment.ID, next, map[string]interface{}{
		"processed_at": &now,
		"updated_at":   now,
	})
	if err != nil {
		return nil, err
	}
	s.publisher.Publish(event.KindSettled, event.SettledPayload{
		PaymentID: payment.ID,
		AccountID: payment.AccountID,
	})
	return &GatewayOperationResult{IsSuccess: true, TransactionID: result.TransactionID, Message: result.Message}, nil
}
