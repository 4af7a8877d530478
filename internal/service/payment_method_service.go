package service

import (
	"context"
	"fmt"

	"github.com/paycore/internal/gateway"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"

	"gorm.io/gorm"
)

// PaymentMethodService manages the stored charge instruments: listing,
// primary selection, soft deletion, and keeping the gateway's stored account
// in step with local billing details. Instrument creation stays with the
// CRM; this surface only maintains what already exists.
type PaymentMethodService struct {
	methodRepo  repository.PaymentMethodRepository
	accountRepo repository.AccountRepository
	registry    *gateway.Registry
}

// NewPaymentMethodService creates the method-management service.
func NewPaymentMethodService(
	methodRepo repository.PaymentMethodRepository,
	accountRepo repository.AccountRepository,
	registry *gateway.Registry,
) *PaymentMethodService {
	return &PaymentMethodService{
		methodRepo:  methodRepo,
		accountRepo: accountRepo,
		registry:    registry,
	}
}

// BillingDetailsInput carries the updatable billing fields of a method.
type BillingDetailsInput struct {
	BillingName   string
	BillingStreet string
	BillingCity   string
	BillingState  string
	BillingZip    string
	CardExpMonth  int
	CardExpYear   int
}

// ListForAccount returns an account's live methods, primary first.
func (s *PaymentMethodService) ListForAccount(accountID uint) ([]models.PaymentMethod, error) {
	account, err := s.accountRepo.GetByID(accountID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrAccountNotFound
	}
	return s.methodRepo.ListForAccount(accountID)
}

// SetPrimary makes one method the account's primary instrument. The previous
// primary loses the flag in the same transaction.
func (s *PaymentMethodService) SetPrimary(methodID uint) (*models.PaymentMethod, error) {
	method, err := s.methodRepo.GetByID(methodID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}
	if method.IsPrimary {
		return method, nil
	}
	err = models.DB.Transaction(func(tx *gorm.DB) error {
		repo := s.methodRepo.WithTx(tx)
		if err := repo.ClearPrimaryForAccount(method.AccountID); err != nil {
			return err
		}
		method.IsPrimary = true
		return repo.Update(method)
	})
	if err != nil {
		return nil, err
	}
	return method, nil
}

// Delete soft-deletes a method. The primary method is protected: an account
// with methods always keeps a charge path for batch billing.
func (s *PaymentMethodService) Delete(methodID uint) error {
	method, err := s.methodRepo.GetByID(methodID)
	if err != nil {
		return err
	}
	if method == nil {
		return ErrPaymentMethodNotFound
	}
	if method.IsPrimary {
		return ErrPrimaryMethodDelete
	}
	return s.methodRepo.SoftDelete(methodID)
}

// UpdateBillingDetails saves new billing fields and pushes them to the
// gateway's stored account. The gateway is updated first so a rejected push
// never leaves the local row ahead of the processor; manual gateways have no
// stored account and skip the call.
func (s *PaymentMethodService) UpdateBillingDetails(ctx context.Context, methodID uint, input BillingDetailsInput) (*models.PaymentMethod, error) {
	method, err := s.methodRepo.GetByID(methodID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}

	adapter, ok := s.registry.Resolve(method.Gateway)
	if !ok {
		return nil, ErrGatewayNotFound
	}
	if adapter.Real() {
		processor := gateway.NewProcessor()
		processor.SetGateway(adapter)
		processor.Populate(map[gateway.Field]string{
			gateway.FieldToken:         method.GatewayToken,
			gateway.FieldBillingName:   input.BillingName,
			gateway.FieldBillingStreet: input.BillingStreet,
			gateway.FieldBillingCity:   input.BillingCity,
			gateway.FieldBillingState:  input.BillingState,
			gateway.FieldBillingZip:    input.BillingZip,
		})
		ok, err := processor.UpdatePaymentAccount(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGatewayCommunication, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrGatewayCommunication, processor.Err())
		}
	}

	method.BillingName = input.BillingName
	method.BillingStreet = input.BillingStreet
	method.BillingCity = input.BillingCity
	method.BillingState = input.BillingState
	method.BillingZip = input.BillingZip
	if input.CardExpMonth > 0 {
		method.CardExpMonth = input.CardExpMonth
	}
	if input.CardExpYear > 0 {
		method.CardExpYear = input.CardExpYear
	}
	if err := s.methodRepo.Update(method); err != nil {
		return nil, err
	}
	logger.Infow("payment_method_billing_updated",
		"method_id", method.ID,
		"account_id", method.AccountID,
		"gateway", method.Gateway,
	)
	return method, nil
}

// RefreshProfile pulls the gateway's stored-account profile and syncs the
// card metadata into the local row. Manual instruments have no remote
// profile and come back unchanged.
func (s *PaymentMethodService) RefreshProfile(ctx context.Context, methodID uint) (*models.PaymentMethod, error) {
	method, err := s.methodRepo.GetByID(methodID)
	if err != nil {
		return nil, err
	}
	if method == nil {
		return nil, ErrPaymentMethodNotFound
	}

	adapter, ok := s.registry.Resolve(method.Gateway)
	if !ok {
		return nil, ErrGatewayNotFound
	}
	if !adapter.Real() {
		return method, nil
	}

	profile, err := adapter.GetPaymentAccount(ctx, method.GatewayToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayCommunication, err)
	}
	if profile == nil {
		return method, nil
	}
	if profile.BillingName != "" {
		method.BillingName = profile.BillingName
	}
	if profile.CardLast4 != "" {
		method.CardLast4 = profile.CardLast4
	}
	if profile.ExpMonth > 0 {
		method.CardExpMonth = profile.ExpMonth
	}
	if profile.ExpYear > 0 {
		method.CardExpYear = profile.ExpYear
	}
	if err := s.methodRepo.Update(method); err != nil {
		return nil, err
	}
	return method, nil
}
