package service

import (
	"testing"

	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/models"
)

func TestDuplicateCheckerMatchesSuspendedOverSameInvoices(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 5000)
	method := env.createMethod(t, account.ID, true)
	invoice := env.createInvoice(t, account.ID, 5000)
	prior := env.createPayment(t, account, method, 5000, constants.PaymentStatusSuspended)
	if err := env.paymentRepo.LinkInvoices(prior.ID, []models.PaymentInvoice{{InvoiceID: invoice.ID, AppliedAmount: 5000}}); err != nil {
		t.Fatalf("link: %v", err)
	}

	checker := NewDuplicateChecker(env.paymentRepo)
	isDup, err := checker.IsDuplicatePayment(nil, []uint{invoice.ID}, 5000, account.ID, &method.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !isDup {
		t.Fatal("expected a duplicate match")
	}
	if original := checker.OriginalPayment(); original == nil || original.ID != prior.ID {
		t.Fatalf("expected original %d, got %+v", prior.ID, original)
	}
}

func TestDuplicateCheckerIgnoresDifferentAmount(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 5000)
	method := env.createMethod(t, account.ID, true)
	invoice := env.createInvoice(t, account.ID, 5000)
	prior := env.createPayment(t, account, method, 4000, constants.PaymentStatusSuspended)
	if err := env.paymentRepo.LinkInvoices(prior.ID, []models.PaymentInvoice{{InvoiceID: invoice.ID, AppliedAmount: 4000}}); err != nil {
		t.Fatalf("link: %v", err)
	}

	checker := NewDuplicateChecker(env.paymentRepo)
	isDup, err := checker.IsDuplicatePayment(nil, []uint{invoice.ID}, 5000, account.ID, &method.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if isDup {
		t.Fatal("amount mismatch must not match")
	}
	if checker.OriginalPayment() != nil {
		t.Fatal("no match must leave no original")
	}
}

func TestDuplicateCheckerIgnoresTerminated(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 5000)
	method := env.createMethod(t, account.ID, true)
	invoice := env.createInvoice(t, account.ID, 5000)
	prior := env.createPayment(t, account, method, 5000, constants.PaymentStatusTerminated)
	if err := env.paymentRepo.LinkInvoices(prior.ID, []models.PaymentInvoice{{InvoiceID: invoice.ID, AppliedAmount: 5000}}); err != nil {
		t.Fatalf("link: %v", err)
	}

	checker := NewDuplicateChecker(env.paymentRepo)
	isDup, err := checker.IsDuplicatePayment(nil, []uint{invoice.ID}, 5000, account.ID, &method.ID)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if isDup {
		t.Fatal("terminated rows are the terminated-link gate's business, not a duplicate")
	}
}

func TestDuplicateCheckerEmptyInvoiceSet(t *testing.T) {
	env := setupServiceTest(t)
	checker := NewDuplicateChecker(env.paymentRepo)
	isDup, err := checker.IsDuplicatePayment(nil, nil, 5000, 1, nil)
	if err != nil || isDup {
		t.Fatalf("empty invoice set must never match, got (%v, %v)", isDup, err)
	}
}
