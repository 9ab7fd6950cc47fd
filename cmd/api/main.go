package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/user/registry-crawler/internal/app"
	"github.com/user/registry-crawler/internal/delivery/http/handler"
	"github.com/user/registry-crawler/internal/delivery/http/router"
	"github.com/user/registry-crawler/internal/usecase"
	"github.com/user/registry-crawler/pkg/config"
	"github.com/user/registry-crawler/pkg/logger"
	"github.com/user/registry-crawler/pkg/metrics"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("could not load config", zap.Error(err))
	}

	// --- Logger ---
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer log.Sync()

	// --- Metrics ---
	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Crawler ---
	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialise crawler", zap.Error(err))
	}
	defer a.Close()

	// Runs outlive the request that started them; cancelling runCtx stops
	// them from issuing new tasks.
	runCtx, cancelRuns := context.WithCancel(context.Background())
	defer cancelRuns()
	runManager := usecase.NewRunManager(runCtx, a.Crawler, log)

	// --- HTTP Server ---
	apiHandler := handler.NewHandler(runManager, a.FailedTasks, a.Checks, log)
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router.New(apiHandler, log),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server started", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)

		cancelRuns()
		runManager.Wait()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", zap.Error(err))
		return
	}
	log.Info("server exiting")
}
