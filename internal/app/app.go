package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/tax-filing-buddy/internal/common"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/export"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/filing"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/ingest"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm/anthropic"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/llm/vertex"
	processor "github.com/joseph-ayodele/tax-filing-buddy/internal/pipeline"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/repository"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/server"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/taxcalc"
	"github.com/joseph-ayodele/tax-filing-buddy/internal/validation"
)

// App holds every wired component for one process.
type App struct {
	Config    *common.Config
	Engine    *taxcalc.Engine
	Docs      repository.DocumentRepository
	Extractor llm.Extractor
	Processor *processor.Processor
	Ingestor  *ingest.FSIngestor
	Exporter  *export.Service
	Tools     *server.ToolService

	cleanup []func()
	logger  *slog.Logger
}

// Build wires the application from cfg. Call Close when done.
func Build(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	a := &App{Config: cfg, logger: logger}

	engine, err := taxcalc.NewDefaultEngine(logger)
	if err != nil {
		return nil, fmt.Errorf("load tax tables: %w", err)
	}
	a.Engine = engine

	docs, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Docs = docs

	extractor, err := a.newExtractor(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Extractor = extractor

	a.Processor = processor.NewProcessor(logger, docs, validation.New(logger), extractor,
		filing.NewCalculator(engine, logger), filing.NewAssembler(logger),
		processor.Options{
			StrictValidation: cfg.Pipeline.StrictValidation,
			ExtractTimeout:   cfg.Extraction.Timeout,
		})
	a.Ingestor = ingest.NewFSIngestor(docs, logger)
	a.Exporter = export.NewService(logger)
	a.Tools = server.NewToolService(engine, a.Processor, logger)

	logger.Info("app.ready",
		"store", cfg.Store.Driver,
		"extractor", cfg.Extraction.Adapter,
		"strict_validation", cfg.Pipeline.StrictValidation,
		"tax_year_table", engine.Year(),
	)
	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.DocumentRepository, error) {
	switch a.Config.Store.Driver {
	case common.StoreSQLite:
		drv, err := repository.OpenSQLite(ctx, a.logger)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		if err := repository.HealthCheck(ctx, drv, 5*time.Second); err != nil {
			repository.Close(drv, a.logger)
			return nil, fmt.Errorf("ping sqlite store: %w", err)
		}
		docs, err := repository.NewSQLDocumentRepository(ctx, drv, a.logger)
		if err != nil {
			repository.Close(drv, a.logger)
			return nil, err
		}
		// the repository owns drv from here on
		a.cleanup = append(a.cleanup, func() { closeStore(docs, a.logger) })
		return docs, nil
	default:
		docs := repository.NewMemoryDocumentRepository(a.logger)
		a.cleanup = append(a.cleanup, func() { _ = docs.Close() })
		return docs, nil
	}
}

func closeStore(docs repository.DocumentRepository, logger *slog.Logger) {
	if err := docs.Close(); err != nil {
		logger.Warn("store.close_failed", "error", err)
		return
	}
	logger.Info("store.closed")
}

func (a *App) newExtractor(ctx context.Context) (llm.Extractor, error) {
	cfg := a.Config
	switch cfg.Extraction.Adapter {
	case common.ExtractorStub:
		return llm.NewStubExtractor(a.logger), nil
	case common.ExtractorAnthropic:
		return anthropic.NewClient(anthropic.Config{
			APIKey:      cfg.Anthropic.APIKey,
			BaseURL:     cfg.Anthropic.BaseURL,
			Model:       cfg.Anthropic.Model,
			Temperature: cfg.Anthropic.Temperature,
			MaxTokens:   cfg.Anthropic.MaxTokens,
			Timeout:     cfg.Extraction.Timeout,
		}, a.logger), nil
	case common.ExtractorVertex:
		c, err := vertex.NewClient(ctx, vertex.Config{
			Project: cfg.Vertex.Project,
			Region:  cfg.Vertex.Region,
			Model:   cfg.Vertex.Model,
		}, a.logger)
		if err != nil {
			return nil, err
		}
		a.cleanup = append(a.cleanup, func() {
			if err := c.Close(); err != nil {
				a.logger.Warn("llm.vertex.close_failed", "error", err)
			}
		})
		return c, nil
	default:
		return llm.NewRulesExtractor(a.logger), nil
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.cleanup) - 1; i >= 0; i-- {
		a.cleanup[i]()
	}
	a.cleanup = nil
}
