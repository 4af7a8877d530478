package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/paycore/internal/config"
	"github.com/paycore/internal/logger"
	"github.com/paycore/internal/provider"
	"github.com/paycore/internal/router"
	"github.com/paycore/internal/worker"
)

// App runs the HTTP API and the queue worker in one process.
type App struct {
	cfg       *config.Config
	container *provider.Container
	server    *http.Server
	worker    *worker.Service
}

// New bootstraps config, logging and the full container.
func New() (*App, error) {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())

	container, err := provider.Build(cfg)
	if err != nil {
		return nil, err
	}

	engine := router.New(cfg.Server.Mode, container.Handler)
	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler: engine,
	}

	return &App{
		cfg:       cfg,
		container: container,
		server:    server,
		worker:    worker.NewService(cfg, container.Consumer),
	}, nil
}

// Run starts both surfaces and blocks until a shutdown signal.
func (a *App) Run() error {
	errCh := make(chan error, 2)

	go func() {
		logger.Infow("http_listening", "addr", a.server.Addr)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if a.cfg.Queue.Enabled {
		go func() {
			logger.Infow("worker_starting")
			if err := a.worker.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		a.shutdown()
		return err
	case sig := <-quit:
		logger.Infow("shutdown_signal", "signal", sig.String())
		a.shutdown()
		return nil
	}
}

func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.server.Shutdown(ctx); err != nil {
		logger.Warnw("http_shutdown_failed", "error", err)
	}
	if a.cfg.Queue.Enabled {
		a.worker.Stop()
	}
	a.container.Close()
	_ = logger.Z().Sync()
}
