package service

import (
	"context"
	"errors"
	"testing"

	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/gateway"
)

func TestDeleteRejectsPrimaryMethod(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	primary := env.createMethod(t, account.ID, true)

	if err := env.methods.Delete(primary.ID); !errors.Is(err, ErrPrimaryMethodDelete) {
		t.Fatalf("expected ErrPrimaryMethodDelete, got %v", err)
	}
	methods, err := env.methods.ListForAccount(account.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("primary must survive, got %d methods", len(methods))
	}
}

func TestDeleteSoftDeletesSecondaryMethod(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	env.createMethod(t, account.ID, true)
	secondary := env.createMethod(t, account.ID, false)

	if err := env.methods.Delete(secondary.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	methods, err := env.methods.ListForAccount(account.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(methods) != 1 {
		t.Fatalf("expected 1 live method after delete, got %d", len(methods))
	}
	gone, err := env.methodRepo.GetByID(secondary.ID)
	if err != nil || gone != nil {
		t.Fatalf("soft-deleted method must not resolve, got (%+v, %v)", gone, err)
	}
}

func TestSetPrimaryFlipsFlag(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	old := env.createMethod(t, account.ID, true)
	next := env.createMethod(t, account.ID, false)

	updated, err := env.methods.SetPrimary(next.ID)
	if err != nil {
		t.Fatalf("set primary: %v", err)
	}
	if !updated.IsPrimary {
		t.Fatal("target must become primary")
	}
	reloaded, err := env.methodRepo.GetByID(old.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload old primary: (%+v, %v)", reloaded, err)
	}
	if reloaded.IsPrimary {
		t.Fatal("previous primary must lose the flag")
	}
}

func TestUpdateBillingDetailsPushesToGateway(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)

	updated, err := env.methods.UpdateBillingDetails(context.Background(), method.ID, BillingDetailsInput{
		BillingName:   "New Cardholder",
		BillingStreet: "1 Main St",
		CardExpMonth:  4,
		CardExpYear:   2028,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.BillingName != "New Cardholder" || updated.CardExpMonth != 4 {
		t.Fatalf("fields not applied: %+v", updated)
	}
	if env.adapter.callCount(gateway.OpUpdateAccount) != 1 {
		t.Fatalf("expected one gateway push, got %d", env.adapter.callCount(gateway.OpUpdateAccount))
	}
}

func TestUpdateBillingDetailsRejectedPushKeepsLocalRow(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	env.adapter.results[gateway.OpUpdateAccount] = &gateway.Result{Success: false, Message: "token expired"}

	_, err := env.methods.UpdateBillingDetails(context.Background(), method.ID, BillingDetailsInput{
		BillingName: "New Cardholder",
	})
	if !errors.Is(err, ErrGatewayCommunication) {
		t.Fatalf("expected ErrGatewayCommunication, got %v", err)
	}
	reloaded, err := env.methodRepo.GetByID(method.ID)
	if err != nil || reloaded == nil {
		t.Fatalf("reload: (%+v, %v)", reloaded, err)
	}
	if reloaded.BillingName != method.BillingName {
		t.Fatalf("rejected push must not change the row, got %q", reloaded.BillingName)
	}
}

func TestUpdateBillingDetailsManualGatewaySkipsCall(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	method.Gateway = constants.GatewayManual
	if err := env.methodRepo.Update(method); err != nil {
		t.Fatalf("update method: %v", err)
	}

	updated, err := env.methods.UpdateBillingDetails(context.Background(), method.ID, BillingDetailsInput{
		BillingName: "Check Payer",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.BillingName != "Check Payer" {
		t.Fatalf("local row must update, got %q", updated.BillingName)
	}
	if env.adapter.callCount(gateway.OpUpdateAccount) != 0 {
		t.Fatal("manual gateway must make no remote call")
	}
}

func TestRefreshProfileSyncsCardMetadata(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	env.adapter.profile = &gateway.AccountProfile{
		Token:       method.GatewayToken,
		BillingName: "Profile Name",
		CardLast4:   "4242",
		ExpMonth:    9,
		ExpYear:     2029,
	}

	refreshed, err := env.methods.RefreshProfile(context.Background(), method.ID)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if refreshed.CardLast4 != "4242" || refreshed.CardExpMonth != 9 || refreshed.CardExpYear != 2029 {
		t.Fatalf("profile not synced: %+v", refreshed)
	}
	if refreshed.BillingName != "Profile Name" {
		t.Fatalf("billing name not synced: %q", refreshed.BillingName)
	}
}

func TestRefreshProfileGatewayFailure(t *testing.T) {
	env := setupServiceTest(t)
	account := env.createAccount(t, 0)
	method := env.createMethod(t, account.ID, true)
	env.adapter.profileErr = errors.New("connection reset")

	_, err := env.methods.RefreshProfile(context.Background(), method.ID)
	if !errors.Is(err, ErrGatewayCommunication) {
		t.Fatalf("expected ErrGatewayCommunication, got %v", err)
	}
}
