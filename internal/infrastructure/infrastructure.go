// Package infrastructure assembles the shared systems every domain module
// depends on: lifecycle, logging, tracing, metrics, database, archive
// storage, and the generative model client.
package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JaimeStill/dispatch/internal/config"
	"github.com/JaimeStill/dispatch/pkg/database"
	"github.com/JaimeStill/dispatch/pkg/lifecycle"
	"github.com/JaimeStill/dispatch/pkg/llm"
	"github.com/JaimeStill/dispatch/pkg/storage"
	"github.com/JaimeStill/dispatch/pkg/telemetry"
)

const tracerFlushTimeout = 5 * time.Second

// Infrastructure holds the core systems required by all domain modules.
// Storage is nil when no blob endpoint is configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Registry  *prometheus.Registry
	Database  database.System
	Storage   storage.System
	Agent     llm.Client

	shutdownTracer telemetry.Shutdown
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := cfg.Log.NewLogger(os.Stderr)

	shutdownTracer, err := telemetry.InitTracer(&cfg.Telemetry, cfg.Version, logger)
	if err != nil {
		return nil, fmt.Errorf("telemetry init failed: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	var store storage.System
	if cfg.Storage.Enabled() {
		store, err = storage.New(&cfg.Storage, logger)
		if err != nil {
			return nil, fmt.Errorf("storage init failed: %w", err)
		}
	} else {
		logger.Info("inbound archive disabled", "reason", "no storage endpoint configured")
	}

	agent, err := llm.New(&cfg.Agent, &cfg.LLM, logger)
	if err != nil {
		return nil, fmt.Errorf("agent init failed: %w", err)
	}
	if cfg.Agent.Provider.Name != "ollama" && config.AgentToken(&cfg.Agent) == "" {
		logger.Warn("agent token not set; model calls may be rejected", "provider", cfg.Agent.Provider.Name)
	}
	logger.Info("agent configured", "provider", cfg.Agent.Provider.Name, "model", cfg.Agent.Model.Name)

	return &Infrastructure{
		Lifecycle:      lc,
		Logger:         logger,
		Registry:       registry,
		Database:       db,
		Storage:        store,
		Agent:          agent,
		shutdownTracer: shutdownTracer,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	i.Lifecycle.Require(i.Database)
	if i.Storage != nil {
		if err := i.Storage.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("storage start failed: %w", err)
		}
	}

	i.Lifecycle.OnShutdown(func() {
		<-i.Lifecycle.Context().Done()

		ctx, cancel := context.WithTimeout(context.Background(), tracerFlushTimeout)
		defer cancel()

		if err := i.shutdownTracer(ctx); err != nil {
			i.Logger.Error("tracer shutdown failed", "error", err)
		}
	})

	return nil
}
