package app

import (
	"context"
	"fmt"

	"github.com/drewomix/Oasis/internal/agent"
	"github.com/drewomix/Oasis/internal/archive"
	"github.com/drewomix/Oasis/internal/assistant"
	"github.com/drewomix/Oasis/internal/config"
	"github.com/drewomix/Oasis/internal/httpapi"
	"github.com/drewomix/Oasis/internal/observability"
	"github.com/drewomix/Oasis/internal/providers"
	"github.com/drewomix/Oasis/internal/session"
)

type BuildResult struct {
	Config       config.Config
	API          *httpapi.Server
	Sessions     *session.Manager
	Orchestrator *assistant.Orchestrator
	Metrics      *observability.Metrics
	Stages       *observability.StageWindow
	Model        agent.Model

	// Cleanup should be called on shutdown to release external resources.
	Cleanup func() error
}

func Build(ctx context.Context, cfg config.Config) (*BuildResult, error) {
	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	stages := observability.NewStageWindow(256)

	store, err := archive.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("archive store init failed: %w", err)
	}

	model, err := providers.NewModel(cfg)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("model provider init failed: %w", err)
	}

	sessions := session.NewManager(cfg.SessionInactivityTimeout)
	orchestrator := assistant.NewOrchestrator(cfg, sessions, model, store, metrics, stages)
	sessions.SetEndHook(func(s *session.Session) {
		orchestrator.Teardown(s)
		metrics.ActiveSessions.Set(float64(sessions.ActiveCount()))
	})

	api := httpapi.New(cfg, sessions, orchestrator, metrics, stages)

	cleanup := func() error {
		return store.Close()
	}

	return &BuildResult{
		Config:       cfg,
		API:          api,
		Sessions:     sessions,
		Orchestrator: orchestrator,
		Metrics:      metrics,
		Stages:       stages,
		Model:        model,
		Cleanup:      cleanup,
	}, nil
}
