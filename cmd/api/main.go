package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/sheets-finance-tracker/internal/api/handlers"
	"github.com/dvloznov/sheets-finance-tracker/internal/api/middleware"
	"github.com/dvloznov/sheets-finance-tracker/internal/app"
	"github.com/dvloznov/sheets-finance-tracker/internal/config"
	"github.com/dvloznov/sheets-finance-tracker/internal/logger"
	"github.com/dvloznov/sheets-finance-tracker/internal/scheduler"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", "config.yaml", "path to the YAML config file")
		port       = flag.String("port", "", "HTTP server port (overrides server.port and PORT)")
		noDigest   = flag.Bool("no-digest", false, "do not run the digest worker in-process")
	)
	flag.Parse()

	bootLog := logger.New()

	cfg, err := config.Load(*configPath)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != "" {
		cfg.Server.Port = *port
	}

	log, err := logger.NewFromConfig(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("Failed to configure logger")
	}

	ctx := context.Background()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise application")
	}
	defer a.Close()

	verifier, err := a.Verifier(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create token verifier")
	}

	// Start the digest worker in the background so /api/jobs can report on it.
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	var worker *scheduler.DigestWorker
	if !*noDigest {
		n, err := a.Notifier(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create notifier")
		}
		digest := &scheduler.DigestHandler{Ledger: a.Ledger, Service: a.Service, Notifier: n}

		worker, err = scheduler.StartDigestWorker(workerCtx, log, scheduler.DigestConfig{
			Cron:       cfg.Digest.Cron,
			Recipients: cfg.Digest.Recipients,
			Clock:      cfg.Clock(),
		}, digest.Handle)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to start digest worker")
		}
	}

	// Initialize handlers
	budgetHandler := handlers.NewBudgetHandler(a.Ledger, a.Service)
	transactionsHandler := handlers.NewTransactionsHandler(a.Ledger, a.Service)
	var jobsHandler *handlers.JobsHandler
	if worker != nil {
		jobsHandler = handlers.NewJobsHandler(worker.Store)
	}

	mux := http.NewServeMux()
	handlers.Routes(mux, budgetHandler, transactionsHandler, jobsHandler)

	// Apply middleware
	handler := middleware.Chain(mux,
		middleware.Recovery(log),
		middleware.RequestID,
		middleware.Logger(log),
		middleware.CORS,
		middleware.Auth(verifier),
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("auth", cfg.Auth.Mode).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop the scheduler and wait for in-flight jobs
	if worker != nil {
		if err := worker.Stop(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Error stopping digest worker")
		}
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
