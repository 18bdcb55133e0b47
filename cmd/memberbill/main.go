package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/clubops/memberbill/config"
	"github.com/clubops/memberbill/internal/api"
	"github.com/clubops/memberbill/internal/auth"
	"github.com/clubops/memberbill/internal/billing"
	"github.com/clubops/memberbill/internal/database"
	"github.com/clubops/memberbill/internal/ledger"
	"github.com/clubops/memberbill/internal/logger"
	"github.com/clubops/memberbill/internal/metrics"
	middlewares "github.com/clubops/memberbill/internal/middleware"
	"github.com/clubops/memberbill/internal/processor"
	"github.com/clubops/memberbill/internal/registry"
	"github.com/clubops/memberbill/internal/scheduler"
	"github.com/clubops/memberbill/internal/webhook"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	runOnce := flag.String("run-once", "", "Run one job and exit: billing | subscriptions")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting memberbill",
		"version", Version,
		"build_time", BuildTime,
		"git_commit", GitCommit,
	)

	if cfg.Metrics.Enabled {
		logger.Info("Metrics enabled", "port", cfg.Metrics.Port)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize database
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", "error", err)
	}
	defer db.Close(ctx)

	// Initialize stores
	txLedger := ledger.New(db)
	reg := registry.New(db)

	// Initialize billing components
	stripeClient := processor.NewStripeClient(cfg.Stripe)
	resolver := billing.NewResolver(reg)
	issuer := billing.NewIssuer(stripeClient, reg, cfg.Billing.Currency, cfg.Billing.ProcessorTimeout)
	orch := scheduler.NewOrchestrator(resolver, issuer, txLedger, reg, cfg.Billing)
	subs := scheduler.NewSubscriptionController(reg, stripeClient, cfg.Billing.ProcessorTimeout)

	// One-shot mode for manual and backfill runs
	if *runOnce != "" {
		runOnceAndExit(ctx, *runOnce, orch, subs)
		return
	}

	// Webhook event intake
	eventCache, err := webhook.NewEventCache(cfg.Redis.URL, cfg.Redis.EventTTL)
	if err != nil {
		logger.Fatal("Failed to initialize event cache", "error", err)
	}
	defer eventCache.Close()
	eventRouter := webhook.NewRouter(cfg.Stripe.WebhookSecret, eventCache, webhook.NewReconciler(txLedger))

	// Start scheduled jobs
	sched, err := scheduler.NewScheduler(cfg.Billing, orch, subs)
	if err != nil {
		logger.Fatal("Failed to initialize scheduler", "error", err)
	}
	sched.Start()

	// Setup HTTP server
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewares.Logging)
	r.Use(middlewares.Metrics)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Server.ReadTimeout))
	r.Use(middlewares.Security)

	// Initialize API handlers
	apiHandler := api.NewHandler(txLedger, reg, eventRouter, orch, subs,
		auth.NewVerifier(cfg.Admin.TokenHash), Version, BuildTime, GitCommit)
	apiHandler.RegisterRoutes(r)

	// Metrics endpoint
	if cfg.Metrics.Enabled {
		go startMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path)
	}

	// HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Starting HTTP server", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", "error", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Let running cron jobs finish before closing the server
	<-sched.Stop().Done()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func runOnceAndExit(ctx context.Context, job string, orch *scheduler.Orchestrator, subs *scheduler.SubscriptionController) {
	switch job {
	case "billing":
		summary, err := orch.RunBilling(ctx)
		if err != nil {
			logger.Fatal("Billing run failed", "error", err)
		}
		logger.Info("Billing run finished",
			"issued", summary.Issued, "skipped", summary.Skipped, "failed", summary.Failed)
	case "subscriptions":
		summary, err := subs.SyncAll(ctx)
		if err != nil {
			logger.Fatal("Subscription sync failed", "error", err)
		}
		logger.Info("Subscription sync finished",
			"paused", summary.Paused, "resumed", summary.Resumed,
			"unchanged", summary.Unchanged, "failed", summary.Failed)
	default:
		logger.Fatal("Unknown --run-once job", "job", job)
	}
}

func startMetricsServer(port int, path string) {
	mux := http.NewServeMux()
	mux.Handle(path, metrics.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info("Starting metrics server", "address", addr, "path", path)

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Error("Metrics server failed", "error", err)
	}
}
