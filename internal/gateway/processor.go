package gateway

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNoGateway     = errors.New("no gateway adapter bound")
	ErrMissingFields = errors.New("missing required fields")
	ErrManualGateway = errors.New("manual gateway supports no processor calls")
)

// LogEntry records one dispatched adapter call for audit.
type LogEntry struct {
	Processor     string
	Operation     Operation
	TransactionID string
	Success       bool
	Error         string
	At            time.Time
}

// Processor binds one adapter and one operation data bag and dispatches the
// gateway primitives. Every call is single-attempt: required fields are
// checked first (a miss is a client error, the adapter is never invoked),
// then exactly one adapter call is made and logged. Retry policy belongs to
// the caller.
type Processor struct {
	data    OperationData
	adapter Adapter
	log     []LogEntry
	lastErr string
	last    *Result
}

// NewProcessor creates a dispatcher with an empty bag.
func NewProcessor() *Processor {
	return &Processor{data: NewOperationData()}
}

// Populate merges fields into the bag, last write wins per key.
func (p *Processor) Populate(fields map[Field]string) {
	p.data.Populate(fields)
}

// SetGateway binds the adapter all subsequent calls go to.
func (p *Processor) SetGateway(adapter Adapter) {
	p.adapter = adapter
}

// Data exposes the bag for inspection.
func (p *Processor) Data() OperationData {
	return p.data
}

// Authorize places a hold for the bag's amount.
func (p *Processor) Authorize(ctx context.Context) (bool, error) {
	return p.dispatch(ctx, OpAuthorize, func(a Adapter) (*Result, error) {
		return a.Authorize(ctx, p.data)
	})
}

// Capture collects a previously authorized hold.
func (p *Processor) Capture(ctx context.Context) (bool, error) {
	return p.dispatch(ctx, OpCapture, func(a Adapter) (*Result, error) {
		return a.Capture(ctx, p.data)
	})
}

// Cancel voids a previously authorized hold.
func (p *Processor) Cancel(ctx context.Context) (bool, error) {
	return p.dispatch(ctx, OpCancel, func(a Adapter) (*Result, error) {
		return a.Cancel(ctx, p.data)
	})
}

// Sale authorizes and captures in one gateway call.
func (p *Processor) Sale(ctx context.Context) (bool, error) {
	return p.dispatch(ctx, OpSale, func(a Adapter) (*Result, error) {
		return a.Sale(ctx, p.data)
	})
}

// Status queries the gateway-side state of a prior transaction.
func (p *Processor) Status(ctx context.Context) (bool, error) {
	return p.dispatch(ctx, OpStatus, func(a Adapter) (*Result, error) {
		return a.Status(ctx, p.data)
	})
}

// UpdatePaymentAccount pushes the bag's instrument details to the gateway's
// stored account for the bag's token.
func (p *Processor) UpdatePaymentAccount(ctx context.Context) (bool, error) {
	return p.dispatch(ctx, OpUpdateAccount, func(a Adapter) (*Result, error) {
		return a.UpdatePaymentAccount(ctx, p.data)
	})
}

// Result returns the outcome of the last dispatched call.
func (p *Processor) Result() *Result {
	return p.last
}

// TransactionLog returns the record of every dispatched call.
func (p *Processor) TransactionLog() []LogEntry {
	return p.log
}

// Err returns the last error message, empty when the last call succeeded.
func (p *Processor) Err() string {
	return p.lastErr
}

func (p *Processor) dispatch(ctx context.Context, op Operation, call func(Adapter) (*Result, error)) (bool, error) {
	if p.adapter == nil {
		return false, ErrNoGateway
	}
	if !p.adapter.Real() {
		return false, ErrManualGateway
	}
	if missing := p.data.Missing(p.adapter.RequiredFields(op)); len(missing) > 0 {
		return false, missingFieldsError(op, missing)
	}

	result, err := call(p.adapter)
	entry := LogEntry{
		Processor: p.adapter.Name(),
		Operation: op,
		At:        time.Now(),
	}
	if err != nil {
		entry.Error = err.Error()
		p.lastErr = err.Error()
		p.last = nil
		p.log = append(p.log, entry)
		return false, err
	}
	entry.TransactionID = result.TransactionID
	entry.Success = result.Success
	if !result.Success {
		entry.Error = result.Message
		p.lastErr = result.Message
	} else {
		p.lastErr = ""
	}
	p.last = result
	p.log = append(p.log, entry)
	return result.Success, nil
}
