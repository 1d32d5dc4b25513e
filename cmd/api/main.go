package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mohammadpnp/theme-setup/internal/application/importjob"
	"github.com/mohammadpnp/theme-setup/internal/bootstrap"
	"github.com/mohammadpnp/theme-setup/internal/config"
	httpecho "github.com/mohammadpnp/theme-setup/internal/interfaces/http/echo"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	app, err := bootstrap.NewApp(context.Background(), cfg, prometheus.DefaultRegisterer, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer app.Close()

	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()
	app.Worker.Start(workerCtx)

	server := bootstrap.NewHTTPServer(
		bootstrap.ServerConfig{BodyLimit: cfg.HTTP.BodyLimit},
		app.Nonces,
		httpecho.NewWizardHandler(app.Wizard, logger),
		httpecho.NewImportHandler(importjob.NewStartImport(app.Jobs), importjob.NewGetImportJob(app.Jobs)),
		logger,
	)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.HTTP.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopWorkers()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	if cfg.Development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
