package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/event"
	"github.com/paycore/internal/gateway"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/repository"
)

// fakeGateway is a scriptable adapter for service tests.
type fakeGateway struct {
	name       string
	real       bool
	results    map[gateway.Operation]*gateway.Result
	errs       map[gateway.Operation]error
	calls      []gateway.Operation
	profile    *gateway.AccountProfile
	profileErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		name:    constants.GatewaySandbox,
		real:    true,
		results: make(map[gateway.Operation]*gateway.Result),
		errs:    make(map[gateway.Operation]error),
	}
}

func (f *fakeGateway) Name() string                             { return f.name }
func (f *fakeGateway) Real() bool                               { return f.real }
func (f *fakeGateway) RequiredFields(gateway.Operation) []gateway.Field { return nil }

func (f *fakeGateway) dispatch(op gateway.Operation) (*gateway.Result, error) {
	f.calls = append(f.calls, op)
	if err := f.errs[op]; err != nil {
		return nil, err
	}
	if result := f.results[op]; result != nil {
		return result, nil
	}
	return &gateway.Result{Success: true, TransactionID: fmt.Sprintf("txn_%s_%d", op, len(f.calls))}, nil
}

func (f *fakeGateway) Authorize(context.Context, gateway.OperationData) (*gateway.Result, error) {
	return f.dispatch(gateway.OpAuthorize)
}
func (f *fakeGateway) Capture(context.Context, gateway.OperationData) (*gateway.Result, error) {
	return f.dispatch(gateway.OpCapture)
}
func (f *fakeGateway) Cancel(context.Context, gateway.OperationData) (*gateway.Result, error) {
	return f.dispatch(gateway.OpCancel)
}
func (f *fakeGateway) Sale(context.Context, gateway.OperationData) (*gateway.Result, error) {
	return f.dispatch(gateway.OpSale)
}
func (f *fakeGateway) Status(context.Context, gateway.OperationData) (*gateway.Result, error) {
	return f.dispatch(gateway.OpStatus)
}
func (f *fakeGateway) UpdatePaymentAccount(context.Context, gateway.OperationData) (*gateway.Result, error) {
	return f.dispatch(gateway.OpUpdateAccount)
}
func (f *fakeGateway) GetPaymentAccount(context.Context, string) (*gateway.AccountProfile, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return f.profile, nil
}

func (f *fakeGateway) callCount(op gateway.Operation) int {
	count := 0
	for _, c := range f.calls {
		if c == op {
			count++
		}
	}
	return count
}

// testEnv bundles everything a service test needs over a fresh in-memory
// database.
type testEnv struct {
	paymentRepo repository.PaymentRepository
	methodRepo  repository.PaymentMethodRepository
	accountRepo repository.AccountRepository
	invoiceRepo repository.InvoiceRepository
	txnRepo     repository.TransactionRepository

	adapter   *fakeGateway
	registry  *gateway.Registry
	publisher *event.MemoryPublisher
	billing   config.BillingConfig

	gatewayOps *GatewayOperationService
	payments   *PaymentService
	refunds    *RefundService
	methods    *PaymentMethodService
	batch      *BatchPaymentService
}

func setupServiceTest(t *testing.T) *testEnv {
	t.Helper()
	dsn := fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", t.Name())
	if err := models.InitDB("sqlite", dsn, models.DBPoolConfig{}); err != nil {
		t.Fatalf("init db: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	env := &testEnv{
		paymentRepo: repository.NewPaymentRepository(models.DB),
		methodRepo:  repository.NewPaymentMethodRepository(models.DB),
		accountRepo: repository.NewAccountRepository(models.DB),
		invoiceRepo: repository.NewInvoiceRepository(models.DB),
		txnRepo:     repository.NewTransactionRepository(models.DB),
		adapter:     newFakeGateway(),
		registry:    gateway.NewRegistry(),
		publisher:   event.NewMemoryPublisher(),
		billing: config.BillingConfig{
			BatchPageSize:          50,
			MaxConsecutiveDeclines: 3,
			DailyDeclineCap:        1,
			RefundWindowDays:       45,
			CaptureWindowHours:     168,
		},
	}
	env.registry.Register(env.adapter)
	env.registry.Register(gateway.NewManualAdapter())

	env.gatewayOps = NewGatewayOperationService(env.registry, env.paymentRepo, env.txnRepo, env.publisher)
	env.payments = NewPaymentService(env.paymentRepo, env.methodRepo, env.accountRepo, env.txnRepo, env.gatewayOps, env.registry, env.publisher, env.billing)
	env.refunds = NewRefundService(env.paymentRepo, env.txnRepo, NewVoidRefundExecutor(env.registry, env.txnRepo), env.publisher, env.billing)
	env.methods = NewPaymentMethodService(env.methodRepo, env.accountRepo, env.registry)
	env.batch = NewBatchPaymentService(env.paymentRepo, env.methodRepo, env.accountRepo, env.invoiceRepo, env.gatewayOps, NewDuplicateChecker(env.paymentRepo), env.publisher, env.billing)
	return env
}

func (env *testEnv) createAccount(t *testing.T, balance models.Amount) *models.Account {
	t.Helper()
	account := &models.Account{
		AreaID:        1,
		Name:          "Test Account",
		LedgerBalance: balance,
		CurrencyCode:  constants.DefaultCurrencyCode,
	}
	if err := models.DB.Create(account).Error; err != nil {
		t.Fatalf("create account: %v", err)
	}
	return account
}

func (env *testEnv) createMethod(t *testing.T, accountID uint, primary bool) *models.PaymentMethod {
	t.Helper()
	method := &models.PaymentMethod{
		AccountID:      accountID,
		Type:           constants.PaymentTypeCC,
		Gateway:        constants.GatewaySandbox,
		GatewayToken:   fmt.Sprintf("tok_%d", accountID),
		BillingName:    "Test Cardholder",
		IsPrimary:      primary,
		ExternalStatus: constants.MethodExternalStatusActive,
	}
	if err := models.DB.Create(method).Error; err != nil {
		t.Fatalf("create method: %v", err)
	}
	return method
}

func (env *testEnv) createInvoice(t *testing.T, accountID uint, balance models.Amount) *models.Invoice {
	t.Helper()
	invoice := &models.Invoice{
		AccountID: accountID,
		AreaID:    1,
		Balance:   balance,
		Total:     balance,
		Active:    true,
	}
	if err := models.DB.Create(invoice).Error; err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return invoice
}

func (env *testEnv) createPayment(t *testing.T, account *models.Account, method *models.PaymentMethod, amount models.Amount, status string) *models.Payment {
	t.Helper()
	payment := &models.Payment{
		AccountID:      account.ID,
		PaymentType:    constants.PaymentTypeCC,
		PaymentGateway: constants.GatewaySandbox,
		Amount:         amount,
		CurrencyCode:   constants.DefaultCurrencyCode,
		Status:         status,
	}
	if method != nil {
		methodID := method.ID
		payment.PaymentMethodID = &methodID
		payment.PaymentType = method.Type
		payment.PaymentGateway = method.Gateway
	}
	if err := env.paymentRepo.Create(payment); err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

func (env *testEnv) createTransaction(t *testing.T, paymentID uint, txnType string, success bool) *models.Transaction {
	t.Helper()
	now := time.Now()
	txn := &models.Transaction{
		PaymentID:            paymentID,
		TransactionType:      txnType,
		GatewayTransactionID: fmt.Sprintf("gtx_%d_%s", paymentID, txnType),
		Success:              success,
		ProcessedAt:          &now,
	}
	if err := env.txnRepo.Create(txn); err != nil {
		t.Fatalf("create transaction: %v", err)
	}
	return txn
}

func (env *testEnv) reloadPayment(t *testing.T, id uint) *models.Payment {
	t.Helper()
	payment, err := env.paymentRepo.GetByID(id)
	if err != nil {
		t.Fatalf("reload payment: %v", err)
	}
	if payment == nil {
		t.Fatalf("payment %d vanished", id)
	}
	return payment
}

func (env *testEnv) eventCount(kind string) int {
	count := 0
	for _, k := range env.publisher.Kinds() {
		if k == kind {
			count++
		}
	}
	return count
}
