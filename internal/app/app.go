// Package app assembles the generation pipeline from configuration. Both
// the Zeebe worker manager and the storygen CLI build on it.
package app

import (
	"context"
	"fmt"

	"story-workers/internal/approval"
	"story-workers/internal/common/config"
	"story-workers/internal/common/database"
	"story-workers/internal/common/genai"
	"story-workers/internal/common/logger"
	"story-workers/internal/common/observability"
	"story-workers/internal/generation"
	"story-workers/internal/storage"
	"story-workers/internal/storage/approved"
	"story-workers/internal/storage/projects"
	"story-workers/internal/storage/workbook"
)

// Stores holds the durable stores selected by storage.backend.
type Stores struct {
	Approved storage.ApprovedStore
	Workbook *workbook.Workbook // nil when workbook export is disabled
	Postgres *database.PostgresClient
}

// OpenStores opens the approved store of the configured backend and the
// workbook exporter. The postgres backend has its schema created if
// missing.
func OpenStores(ctx context.Context, cfg *config.Config, log logger.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		pg, err := database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return nil, err
		}
		if err := pg.Ping(ctx); err != nil {
			pg.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		s.Postgres = pg
		s.Approved = approved.NewRepository(pg, log)
	default:
		s.Approved = projects.NewStore(cfg.Storage.ProjectsDir, log)
	}

	if cfg.Storage.WorkbookEnabled {
		s.Workbook = workbook.New(cfg.Storage.ProjectsDir, log)
	}
	return s, nil
}

// Exporter returns the workbook as a storage.WorkbookExporter, or nil.
func (s *Stores) Exporter() storage.WorkbookExporter {
	if s.Workbook == nil {
		return nil
	}
	return s.Workbook
}

func (s *Stores) Close() error {
	if s.Postgres != nil {
		return s.Postgres.Close()
	}
	return nil
}

// NewOrchestrator builds the generation client and prompt set.
func NewOrchestrator(ctx context.Context, cfg *config.Config, log logger.Logger, obs *observability.Observability) (*generation.Orchestrator, error) {
	gen, err := genai.New(ctx, cfg.GenAI)
	if err != nil {
		return nil, fmt.Errorf("create %s generator: %w", cfg.GenAI.Provider, err)
	}

	prompts, err := generation.LoadPrompts(cfg.Generation.PromptsPath)
	if err != nil {
		return nil, err
	}

	return generation.NewOrchestrator(gen, prompts, generation.Settings{
		StoryBatchSize:     cfg.Generation.StoryBatchSize,
		StoryIterations:    cfg.Generation.StoryIterations,
		TestCaseIterations: cfg.Generation.TestCaseIterations,
	}, log, obs), nil
}

// NewApproval wires the approval service. pending may be nil.
func NewApproval(stores *Stores, pending storage.PendingStore, log logger.Logger) *approval.Service {
	return approval.NewService(stores.Approved, pending, stores.Exporter(), log)
}
