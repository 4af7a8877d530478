package gateway

import (
	"context"
	"errors"
	"testing"
)

type stubAdapter struct {
	name     string
	real     bool
	required []Field
	result   *Result
	err      error
	calls    int
	lastOp   Operation
}

func (a *stubAdapter) Name() string                     { return a.name }
func (a *stubAdapter) Real() bool                       { return a.real }
func (a *stubAdapter) RequiredFields(Operation) []Field { return a.required }

func (a *stubAdapter) call(op Operation) (*Result, error) {
	a.calls++
	a.lastOp = op
	return a.result, a.err
}

func (a *stubAdapter) Authorize(context.Context, OperationData) (*Result, error) {
	return a.call(OpAuthorize)
}
func (a *stubAdapter) Capture(context.Context, OperationData) (*Result, error) {
	return a.call(OpCapture)
}
func (a *stubAdapter) Cancel(context.Context, OperationData) (*Result, error) {
	return a.call(OpCancel)
}
func (a *stubAdapter) Sale(context.Context, OperationData) (*Result, error) {
	return a.call(OpSale)
}
func (a *stubAdapter) Status(context.Context, OperationData) (*Result, error) {
	return a.call(OpStatus)
}
func (a *stubAdapter) UpdatePaymentAccount(context.Context, OperationData) (*Result, error) {
	return a.call(OpUpdateAccount)
}
func (a *stubAdapter) GetPaymentAccount(context.Context, string) (*AccountProfile, error) {
	return nil, nil
}

func TestProcessorNoGateway(t *testing.T) {
	p := NewProcessor()
	if _, err := p.Authorize(context.Background()); !errors.Is(err, ErrNoGateway) {
		t.Fatalf("expected ErrNoGateway, got %v", err)
	}
}

func TestProcessorManualGatewayRejected(t *testing.T) {
	p := NewProcessor()
	adapter := &stubAdapter{name: "manual", real: false}
	p.SetGateway(adapter)
	if _, err := p.Sale(context.Background()); !errors.Is(err, ErrManualGateway) {
		t.Fatalf("expected ErrManualGateway, got %v", err)
	}
	if adapter.calls != 0 {
		t.Fatalf("manual adapter must never be invoked, got %d calls", adapter.calls)
	}
}

func TestProcessorMissingFields(t *testing.T) {
	p := NewProcessor()
	adapter := &stubAdapter{name: "test", real: true, required: []Field{FieldAmount, FieldToken}}
	p.SetGateway(adapter)
	p.Populate(map[Field]string{FieldToken: "tok_1"})

	_, err := p.Authorize(context.Background())
	if !errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected ErrMissingFields, got %v", err)
	}
	if adapter.calls != 0 {
		t.Fatalf("adapter must not be invoked on a field miss, got %d calls", adapter.calls)
	}
}

func TestProcessorSingleDispatch(t *testing.T) {
	adapter := &stubAdapter{
		name:   "test",
		real:   true,
		result: &Result{Success: true, TransactionID: "txn_1"},
	}
	p := NewProcessor()
	p.SetGateway(adapter)

	ok, err := p.Sale(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok {
		t.Fatal("expected success")
	}
	if adapter.calls != 1 {
		t.Fatalf("expected exactly one adapter call, got %d", adapter.calls)
	}
	if adapter.lastOp != OpSale {
		t.Fatalf("expected sale dispatch, got %s", adapter.lastOp)
	}
	if got := p.Result().TransactionID; got != "txn_1" {
		t.Fatalf("expected txn_1, got %s", got)
	}
	if entries := p.TransactionLog(); len(entries) != 1 || !entries[0].Success {
		t.Fatalf("expected one successful log entry, got %+v", entries)
	}
}

func TestProcessorDeclineKeepsMessage(t *testing.T) {
	adapter := &stubAdapter{
		name:   "test",
		real:   true,
		result: &Result{Success: false, Message: "insufficient funds"},
	}
	p := NewProcessor()
	p.SetGateway(adapter)

	ok, err := p.Authorize(context.Background())
	if err != nil {
		t.Fatalf("a decline is not an error: %v", err)
	}
	if ok {
		t.Fatal("expected decline")
	}
	if p.Err() != "insufficient funds" {
		t.Fatalf("expected decline message, got %q", p.Err())
	}
}

func TestProcessorTransportError(t *testing.T) {
	adapter := &stubAdapter{name: "test", real: true, err: errors.New("connection reset")}
	p := NewProcessor()
	p.SetGateway(adapter)

	_, err := p.Capture(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}
	if p.Result() != nil {
		t.Fatal("transport failure must leave no result")
	}
	entries := p.TransactionLog()
	if len(entries) != 1 || entries[0].Error == "" {
		t.Fatalf("expected one failed log entry, got %+v", entries)
	}
}

func TestOperationDataLastWriteWins(t *testing.T) {
	data := NewOperationData()
	data.Populate(map[Field]string{FieldAmount: "10.00"})
	data.Populate(map[Field]string{FieldAmount: "12.34"})
	if got := data.Get(FieldAmount); got != "12.34" {
		t.Fatalf("expected last write to win, got %s", got)
	}
}
