package worker

import (
	"context"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/constants"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/queue"

	"github.com/hibiken/asynq"
)

// Service runs the task server plus the cron scheduler that seeds the
// discovery tasks.
type Service struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
}

// NewService wires the asynq server, mux and scheduler from config.
func NewService(cfg *config.Config, consumer *Consumer) *Service {
	opt, serverCfg := queue.BuildServerConfig(&cfg.Queue)
	serverCfg.ErrorHandler = asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		logger.Errorw("task_failed",
			"task", task.Type(),
			"error", err,
		)
	})

	mux := asynq.NewServeMux()
	consumer.Register(mux)

	scheduler := asynq.NewScheduler(opt, &asynq.SchedulerOpts{})
	registerCron(scheduler, cfg.Billing)

	return &Service{
		server:    asynq.NewServer(opt, serverCfg),
		scheduler: scheduler,
		mux:       mux,
	}
}

func registerCron(scheduler *asynq.Scheduler, billing config.BillingConfig) {
	entries := []struct {
		spec string
		task *asynq.Task
	}{
		{billing.UnpaidInvoiceCron, asynq.NewTask(constants.TaskDispatchBilling, nil)},
		{billing.RefundDiscoveryCron, asynq.NewTask(constants.TaskDispatchRefunds, nil)},
		{billing.AchSettlementCron, asynq.NewTask(constants.TaskDispatchAchPolls, nil)},
	}
	for _, entry := range entries {
		if entry.spec == "" {
			continue
		}
		id, err := scheduler.Register(entry.spec, entry.task, asynq.Queue(queue.BatchQueue), asynq.MaxRetry(0))
		if err != nil {
			logger.Errorw("cron_register_failed",
				"task", entry.task.Type(),
				"spec", entry.spec,
				"error", err,
			)
			continue
		}
		logger.Infow("cron_registered",
			"task", entry.task.Type(),
			"spec", entry.spec,
			"entry_id", id,
		)
	}
}

// Start runs the server and scheduler until Stop.
func (s *Service) Start() error {
	if err := s.scheduler.Start(); err != nil {
		return err
	}
	return s.server.Start(s.mux)
}

// Stop drains in-flight tasks and shuts both down.
func (s *Service) Stop() {
	s.scheduler.Shutdown()
	s.server.Stop()
	s.server.Shutdown()
}
