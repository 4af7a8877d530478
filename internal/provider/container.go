package provider

import (
	"github.com/paycore/internal/cache"
	"github.com/paycore/internal/config"
	"github.com/paycore/internal/event"
	"github.com/paycore/internal/gateway"
	"github.com/paycore/internal/gateway/sandbox"
	"github.com/paycore/internal/http/handlers"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/models"
	"github.com/paycore/internal/queue"
	"github.com/paycore/internal/repository"
	"github.com/paycore/internal/service"
	"github.com/paycore/internal/worker"
)

// Container wires every component once at startup. Both the HTTP process
// and the worker process build the same container.
type Container struct {
	Config *config.Config

	PaymentRepo repository.PaymentRepository
	MethodRepo  repository.PaymentMethodRepository
	AccountRepo repository.AccountRepository
	InvoiceRepo repository.InvoiceRepository
	TxnRepo     repository.TransactionRepository

	Registry  *gateway.Registry
	Queue     *queue.Client
	Publisher event.Publisher

	GatewayOps *service.GatewayOperationService
	Payments   *service.PaymentService
	Refunds    *service.RefundService
	Methods    *service.PaymentMethodService
	Batch      *service.BatchPaymentService
	Scheduler  *service.BillingScheduler

	DeadLetter *worker.DeadLetterService
	Consumer   *worker.Consumer
	Handler    *handlers.Handler
}

// Build initializes storage, cache, queue, adapters and services.
func Build(cfg *config.Config) (*Container, error) {
	err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	})
	if err != nil {
		return nil, err
	}
	if err := models.AutoMigrate(); err != nil {
		return nil, err
	}
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		return nil, err
	}

	queueClient, err := queue.NewClient(&cfg.Queue)
	if err != nil {
		return nil, err
	}
	publisher := event.NewQueuePublisher(queueClient)

	registry := gateway.NewRegistry()
	registry.Register(gateway.NewManualAdapter())
	if cfg.Gateways.Sandbox.BaseURL != "" {
		sandboxAdapter, err := sandbox.New(sandbox.Config{
			BaseURL:    cfg.Gateways.Sandbox.BaseURL,
			MerchantID: cfg.Gateways.Sandbox.MerchantID,
			APIKey:     cfg.Gateways.Sandbox.APIKey,
			TimeoutMS:  cfg.Gateways.Sandbox.TimeoutMS,
		})
		if err != nil {
			return nil, err
		}
		registry.Register(sandboxAdapter)
	} else {
		logger.Warnw("sandbox_gateway_not_configured")
	}

	paymentRepo := repository.NewPaymentRepository(models.DB)
	methodRepo := repository.NewPaymentMethodRepository(models.DB)
	accountRepo := repository.NewAccountRepository(models.DB)
	invoiceRepo := repository.NewInvoiceRepository(models.DB)
	txnRepo := repository.NewTransactionRepository(models.DB)

	gatewayOps := service.NewGatewayOperationService(registry, paymentRepo, txnRepo, publisher)
	payments := service.NewPaymentService(paymentRepo, methodRepo, accountRepo, txnRepo, gatewayOps, registry, publisher, cfg.Billing)
	refundExecutor := service.NewVoidRefundExecutor(registry, txnRepo)
	refunds := service.NewRefundService(paymentRepo, txnRepo, refundExecutor, publisher, cfg.Billing)
	methods := service.NewPaymentMethodService(methodRepo, accountRepo, registry)
	duplicates := service.NewDuplicateChecker(paymentRepo)
	batch := service.NewBatchPaymentService(paymentRepo, methodRepo, accountRepo, invoiceRepo, gatewayOps, duplicates, publisher, cfg.Billing)
	scheduler := service.NewBillingScheduler(accountRepo, paymentRepo, invoiceRepo, queueClient, publisher, cfg.Billing)

	deadLetter := worker.NewDeadLetterService(&cfg.Queue)
	consumer := worker.NewConsumer(batch, refunds, gatewayOps, scheduler, paymentRepo, cfg.Billing)
	handler := handlers.New(payments, refunds, methods, scheduler, deadLetter)

	return &Container{
		Config:      cfg,
		PaymentRepo: paymentRepo,
		MethodRepo:  methodRepo,
		AccountRepo: accountRepo,
		InvoiceRepo: invoiceRepo,
		TxnRepo:     txnRepo,
		Registry:    registry,
		Queue:       queueClient,
		Publisher:   publisher,
		GatewayOps:  gatewayOps,
		Payments:    payments,
		Refunds:     refunds,
		Methods:     methods,
		Batch:       batch,
		Scheduler:   scheduler,
		DeadLetter:  deadLetter,
		Consumer:    consumer,
		Handler:     handler,
	}, nil
}

// Close releases the container's connections.
func (c *Container) Close() {
	if c.Queue != nil {
		if err := c.Queue.Close(); err != nil {
			logger.Warnw("queue_close_failed", "error", err)
		}
	}
}
