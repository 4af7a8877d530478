package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/gateway"
	"github.com/paycore/internal/models"
)

func TestRefundFullAmountByDefault(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusCaptured)
	env.createTransaction(t, original.ID, constants.TransactionTypeSale, true)

	refund, err := env.refunds.Refund(context.Background(), RefundInput{OriginalPaymentID: original.ID})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Status != constants.PaymentStatusCredited {
		t.Fatalf("expected credited, got %s", refund.Status)
	}
	if refund.Amount != 5000 {
		t.Fatalf("default refund must be the full amount, got %d", refund.Amount)
	}
	if refund.OriginalPaymentID == nil || *refund.OriginalPaymentID != original.ID {
		t.Fatal("refund must reference the original")
	}

	// The original row is untouched.
	reloaded := env.reloadPayment(t, original.ID)
	if reloaded.Status != constants.PaymentStatusCaptured {
		t.Fatalf("original must stay captured, got %s", reloaded.Status)
	}

	txn, err := env.txnRepo.GetLatestOfTypeForPayment(refund.ID, constants.TransactionTypeRefund)
	if err != nil || txn == nil || !txn.Success {
		t.Fatalf("expected successful refund transaction, got (%+v, %v)", txn, err)
	}
}

func TestRefundPartialAmount(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusCaptured)
	env.createTransaction(t, original.ID, constants.TransactionTypeSale, true)

	partial := models.Amount(1500)
	refund, err := env.refunds.Refund(context.Background(), RefundInput{
		OriginalPaymentID: original.ID,
		Amount:            &partial,
	})
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refund.Amount != 1500 {
		t.Fatalf("expected 1500, got %d", refund.Amount)
	}
}

func TestRefundDeclinedLandsDeclinedRow(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusCaptured)
	env.createTransaction(t, original.ID, constants.TransactionTypeSale, true)
	env.adapter.results[gateway.OpCancel] = &gateway.Result{Success: false, Message: "refund declined by processor"}

	refund, err := env.refunds.Refund(context.Background(), RefundInput{OriginalPaymentID: original.ID})
	if err != nil {
		t.Fatalf("a decline is not an error: %v", err)
	}
	if refund.Status != constants.PaymentStatusDeclined {
		t.Fatalf("declined refund must never land credited, got %s", refund.Status)
	}
	if refund.OriginalPaymentID == nil || *refund.OriginalPaymentID != original.ID {
		t.Fatal("declined refund must still reference the original")
	}
	txn, err := env.txnRepo.GetLatestOfTypeForPayment(refund.ID, constants.TransactionTypeRefund)
	if err != nil || txn == nil || txn.Success {
		t.Fatalf("expected failed refund transaction, got (%+v, %v)", txn, err)
	}
	reloaded := env.reloadPayment(t, original.ID)
	if reloaded.Status != constants.PaymentStatusCaptured {
		t.Fatalf("original must stay captured, got %s", reloaded.Status)
	}
}

func TestRefundTransportErrorLandsDeclinedRow(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusCaptured)
	env.createTransaction(t, original.ID, constants.TransactionTypeSale, true)
	env.adapter.errs[gateway.OpCancel] = errors.New("connection reset")

	refund, err := env.refunds.Refund(context.Background(), RefundInput{OriginalPaymentID: original.ID})
	if !errors.Is(err, ErrGatewayCommunication) {
		t.Fatalf("expected ErrGatewayCommunication, got %v", err)
	}
	if refund == nil {
		t.Fatal("failed attempt must still be recorded")
	}
	if refund.Status != constants.PaymentStatusDeclined {
		t.Fatalf("failed refund must never land credited, got %s", refund.Status)
	}
	txn, err := env.txnRepo.GetLatestOfTypeForPayment(refund.ID, constants.TransactionTypeRefund)
	if err != nil || txn == nil || txn.Success {
		t.Fatalf("expected failed refund transaction, got (%+v, %v)", txn, err)
	}
}

func TestRefundRejectsExcessAmount(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusCaptured)

	excess := models.Amount(6000)
	_, err := env.refunds.Refund(context.Background(), RefundInput{
		OriginalPaymentID: original.ID,
		Amount:            &excess,
	})
	if !errors.Is(err, ErrRefundAmountInvalid) {
		t.Fatalf("expected ErrRefundAmountInvalid, got %v", err)
	}
}

func TestRefundWindowEnforcedUnlessOverridden(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusCaptured)
	env.createTransaction(t, original.ID, constants.TransactionTypeSale, true)

	stale := time.Now().AddDate(0, 0, -(env.billing.RefundWindowDays + 1))
	if err := models.DB.Model(&models.Payment{}).Where("id = ?", original.ID).
		Update("processed_at", stale).Error; err != nil {
		t.Fatalf("age payment: %v", err)
	}

	_, err := env.refunds.Refund(context.Background(), RefundInput{OriginalPaymentID: original.ID})
	if !errors.Is(err, ErrRefundWindowExceeded) {
		t.Fatalf("expected ErrRefundWindowExceeded, got %v", err)
	}

	refund, err := env.refunds.Refund(context.Background(), RefundInput{
		OriginalPaymentID: original.ID,
		OverrideWindow:    true,
	})
	if err != nil {
		t.Fatalf("override refund: %v", err)
	}
	if refund.Status != constants.PaymentStatusCredited {
		t.Fatalf("expected credited, got %s", refund.Status)
	}
}

func TestRefundRejectsNonRefundableStatus(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	original := env.createPayment(t, account, method, 5000, constants.PaymentStatusAuthorized)

	_, err := env.refunds.Refund(context.Background(), RefundInput{OriginalPaymentID: original.ID})
	if !errors.Is(err, ErrPaymentStateConflict) {
		t.Fatalf("expected ErrPaymentStateConflict, got %v", err)
	}
}

func TestProcessExternalRefundRecordsTransaction(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	charged := env.createPayment(t, account, method, 5000, constants.PaymentStatusSettled)
	env.createTransaction(t, charged.ID, constants.TransactionTypeSale, true)

	chargedID := charged.ID
	ref := "crm-refund-1"
	credited := &models.Payment{
		AccountID:         account.ID,
		PaymentType:       method.Type,
		PaymentGateway:    method.Gateway,
		Amount:            5000,
		CurrencyCode:      constants.DefaultCurrencyCode,
		Status:            constants.PaymentStatusCredited,
		OriginalPaymentID: &chargedID,
		ExternalRefID:     &ref,
	}
	if err := env.paymentRepo.Create(credited); err != nil {
		t.Fatalf("create credited: %v", err)
	}

	if err := env.refunds.ProcessExternalRefund(context.Background(), credited.ID); err != nil {
		t.Fatalf("process: %v", err)
	}
	txn, err := env.txnRepo.GetLatestOfTypeForPayment(credited.ID, constants.TransactionTypeRefund)
	if err != nil || txn == nil || !txn.Success {
		t.Fatalf("expected successful refund transaction, got (%+v, %v)", txn, err)
	}
	if env.adapter.callCount(gateway.OpCancel) != 1 {
		t.Fatalf("expected one void call, got %d", env.adapter.callCount(gateway.OpCancel))
	}

	// A second run is a no-op.
	if err := env.refunds.ProcessExternalRefund(context.Background(), credited.ID); err != nil {
		t.Fatalf("idempotent re-run: %v", err)
	}
	count, _ := env.txnRepo.CountForPayment(credited.ID)
	if count != 1 {
		t.Fatalf("re-run must not add transactions, got %d", count)
	}
}
