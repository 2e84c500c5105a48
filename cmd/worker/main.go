package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/app"
	"github.com/dvloznov/sheets-finance-tracker/internal/config"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/dvloznov/sheets-finance-tracker/internal/scheduler"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		runNow     = flag.Bool("run-now", false, "publish the digest once at startup")
	)
	flag.Parse()

	bootLog := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	log, err := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to configure logger")
	}

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer a.Close()

	n, err := a.Notifier(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create notifier")
	}

	log.Info().
		Str("cron", cfg.Digest.Cron).
		Strs("recipients", cfg.Digest.Recipients).
		Str("notifier", cfg.Notifier.Mode).
		Msg("Starting worker service")

	handler := &scheduler.DigestHandler{Ledger: a.Ledger, Service: a.Service, Notifier: n}
	worker, err := scheduler.StartDigestWorker(ctx, log, scheduler.DigestConfig{
		Cron:       cfg.Digest.Cron,
		Recipients: cfg.Digest.Recipients,
		Clock:      cfg.Clock(),
	}, handler.Handle)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to start digest worker")
	}

	if *runNow {
		if err := scheduler.PublishDigests(ctx, worker.Queue, cfg.Digest.Recipients, cfg.Clock()()); err != nil {
			log.Error().Err(err).Msg("Initial digest publish failed")
		}
	}

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the scheduler and wait for in-flight jobs
	if err := worker.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	// Cancel context to stop workers
	cancel()

	log.Info().Msg("Worker service exited")
}
