package gateway

import (
	"context"
)

// Operation identifies one gateway primitive.
type Operation string

const (
	OpAuthorize     Operation = "authorize"
	OpCapture       Operation = "capture"
	OpCancel        Operation = "cancel"
	OpSale          Operation = "sale"
	OpStatus        Operation = "status"
	OpUpdateAccount Operation = "update_account"
)

// Result is the outcome of one adapter call. A processor decline comes back
// as Success=false with a message; a transport or processor failure comes
// back as a Go error from the adapter method instead.
type Result struct {
	Success       bool
	TransactionID string
	ResponseCode  string
	Message       string
	AchStatus     string // gateway-reported settlement state, status calls on ACH only
	Raw           map[string]interface{}
}

// AccountProfile is the gateway's view of a stored payment account.
type AccountProfile struct {
	Token       string
	BillingName string
	CardLast4   string
	ExpMonth    int
	ExpYear     int
}

// Adapter is the per-processor integration contract. One implementation
// exists per gateway; all calls are keyed by the opaque token the gateway
// issued for the instrument.
type Adapter interface {
	Name() string
	// Real reports whether a processor sits behind this adapter. Manual
	// gateways (checks, cash) return false and support no remote calls.
	Real() bool
	RequiredFields(op Operation) []Field

	Authorize(ctx context.Context, data OperationData) (*Result, error)
	Capture(ctx context.Context, data OperationData) (*Result, error)
	Cancel(ctx context.Context, data OperationData) (*Result, error)
	Sale(ctx context.Context, data OperationData) (*Result, error)
	Status(ctx context.Context, data OperationData) (*Result, error)
	UpdatePaymentAccount(ctx context.Context, data OperationData) (*Result, error)
	GetPaymentAccount(ctx context.Context, token string) (*AccountProfile, error)
}
