// NeuroAML - Behavioral AML risk engine.
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/neuroaml/neuroaml/internal/api"
	"github.com/neuroaml/neuroaml/internal/bus"
	"github.com/neuroaml/neuroaml/internal/cases"
	"github.com/neuroaml/neuroaml/internal/domain"
	"github.com/neuroaml/neuroaml/internal/drift"
	"github.com/neuroaml/neuroaml/internal/outlier"
	"github.com/neuroaml/neuroaml/internal/pipeline"
	"github.com/neuroaml/neuroaml/internal/repository"
	"github.com/neuroaml/neuroaml/internal/typology"
	"github.com/neuroaml/neuroaml/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Initialize structured logger
	logLevel := slog.LevelInfo
	if os.Getenv("NEUROAML_DEBUG") == "true" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Log startup
	slog.Info("starting neuroaml",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	// Load configuration
	cfg := domain.DefaultConfig()

	// Check for Pro tier via environment
	if os.Getenv("NEUROAML_TIER") == "pro" {
		cfg = domain.ProConfig()
		slog.Info("running in Pro tier mode")
	}

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"drift", cfg.Drift.Type,
		"eventbus", cfg.EventBus.Type,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize drift store (live risk + score history)
	driftStore, err := drift.New(cfg.Drift)
	if err != nil {
		slog.Error("failed to initialize drift store", "error", err)
		os.Exit(1)
	}
	defer driftStore.Close()
	slog.Info("drift store initialized", "type", cfg.Drift.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize behavioral outlier classifier
	classifier := outlier.NewIsolationForest(
		cfg.Detector.Contamination,
		cfg.Detector.Seed,
		cfg.Detector.Estimators,
	)
	slog.Info("outlier classifier initialized",
		"contamination", cfg.Detector.Contamination,
		"estimators", cfg.Detector.Estimators,
		"seed", cfg.Detector.Seed,
	)

	// Initialize typology classifier with the builtin pattern set
	typologyClassifier, err := typology.NewClassifier(typology.BuiltinRules(), driftStore)
	if err != nil {
		slog.Error("failed to initialize typology classifier", "error", err)
		os.Exit(1)
	}
	slog.Info("typology classifier initialized", "rules_count", len(typology.BuiltinRules()))

	// Initialize case manager with repository write-through
	caseManager := cases.NewManager(cases.WithRepository(repo))
	slog.Info("case manager initialized")

	// Initialize analysis pipeline
	p := pipeline.New(classifier, typologyClassifier, driftStore,
		pipeline.WithRepository(repo),
		pipeline.WithBus(busImpl),
	)
	slog.Info("pipeline initialized")

	// Initialize async Worker (Pro tier)
	var asyncWorker *worker.Worker
	if cfg.Tier == domain.TierPro || os.Getenv("NEUROAML_ASYNC_WORKER") == "true" {
		asyncWorker = worker.NewWorker(busImpl, p, caseManager)

		// Get tenant IDs to process (from environment or default)
		tenantIDs := []string{}
		if envTenants := os.Getenv("NEUROAML_TENANTS"); envTenants != "" {
			tenantIDs = strings.Split(envTenants, ",")
		}

		workerCfg := worker.Config{
			TenantIDs: tenantIDs,
		}

		if err := asyncWorker.Start(workerCfg); err != nil {
			slog.Error("failed to start async worker", "error", err)
		} else {
			slog.Info("async worker started", "tenant_count", len(tenantIDs))
		}
	}

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, driftStore, busImpl, p, caseManager, Version)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("neuroaml is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop async worker first
	if asyncWorker != nil {
		if err := asyncWorker.Stop(); err != nil {
			slog.Error("failed to stop async worker", "error", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("neuroaml shutdown complete")
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  +------------------------------------------+")
	fmt.Println("  |               NEUROAML                   |")
	fmt.Println("  |     Behavioral AML Risk Engine           |")
	fmt.Println("  |     Every account tells a story.         |")
	fmt.Println("  +------------------------------------------+")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /pipeline/run               - Analyze a transaction batch")
	fmt.Println("    GET  /risk                       - Latest per-account reports")
	fmt.Println("    GET  /risk/{account}/forecast    - Project future risk")
	fmt.Println("    POST /cases                      - Open an investigative case")
	fmt.Println("    GET  /cases                      - List cases")
	fmt.Println("    GET  /cases/{id}                 - Get case by ID")
	fmt.Println("    POST /cases/{id}/status          - Update case status")
	fmt.Println("    GET  /cases/{id}/sar             - Assemble SAR payload")
	fmt.Println("    GET  /audit                      - Audit trail")
	fmt.Println("    GET  /health                     - Health check")
	fmt.Println()
}
