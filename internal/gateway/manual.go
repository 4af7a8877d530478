package gateway

import (
	"context"
)

// ManualAdapter marks instruments settled outside any processor (checks,
// cash). It is registered so gateway resolution succeeds, but every call is
// rejected by the dispatcher via Real() before reaching these methods.
type ManualAdapter struct{}

// NewManualAdapter creates the manual gateway marker.
func NewManualAdapter() *ManualAdapter {
	return &ManualAdapter{}
}

// Name returns the gateway name.
func (a *ManualAdapter) Name() string { return "manual" }

// Real reports that no processor sits behind this adapter.
func (a *ManualAdapter) Real() bool { return false }

// RequiredFields returns nothing; no call ever dispatches.
func (a *ManualAdapter) RequiredFields(Operation) []Field { return nil }

func (a *ManualAdapter) Authorize(context.Context, OperationData) (*Result, error) {
	return nil, ErrManualGateway
}

func (a *ManualAdapter) Capture(context.Context, OperationData) (*Result, error) {
	return nil, ErrManualGateway
}

func (a *ManualAdapter) Cancel(context.Context, OperationData) (*Result, error) {
	return nil, ErrManualGateway
}

func (a *ManualAdapter) Sale(context.Context, OperationData) (*Result, error) {
	return nil, ErrManualGateway
}

func (a *ManualAdapter) Status(context.Context, OperationData) (*Result, error) {
	return nil, ErrManualGateway
}

func (a *ManualAdapter) UpdatePaymentAccount(context.Context, OperationData) (*Result, error) {
	return nil, ErrManualGateway
}

func (a *ManualAdapter) GetPaymentAccount(context.Context, string) (*AccountProfile, error) {
	return nil, ErrManualGateway
}
