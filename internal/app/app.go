// -----------------------------------------------------------------------
// Last Modified: Friday, 21st August 2026 9:12:41 am
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/mercatus/internal/common"
	"github.com/ternarybob/mercatus/internal/handlers"
	"github.com/ternarybob/mercatus/internal/services/export"
	"github.com/ternarybob/mercatus/internal/services/scheduler"
	"github.com/ternarybob/mercatus/internal/sources/afrimarket"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// Export pipeline
	SourceClient  *afrimarket.Client
	Sink          *export.Sink
	ExportService *export.Service

	// Scheduler
	SchedulerService *scheduler.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	MarketHandler *handlers.MarketHandler
	ExportHandler *handlers.ExportHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize services
	if err := app.initServices(); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	// Initialize handlers
	app.initHandlers()

	// Log initialization summary
	logger.Info().
		Str("output_dir", cfg.Export.OutputDir).
		Int("batch_size", cfg.Export.BatchSize).
		Str("schedule", cfg.Export.Schedule).
		Msg("Application initialization complete")

	return app, nil
}

// initServices initializes the export pipeline in dependency order
func (a *App) initServices() error {
	// Sink owns the output directory holding exported dataset files
	sink, err := export.NewSink(a.Config.Export.OutputDir, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to initialize export sink: %w", err)
	}
	a.Sink = sink
	a.Logger.Debug().
		Str("output_dir", a.Config.Export.OutputDir).
		Msg("Export sink initialized")

	// Source client for african-markets.com
	opts := []afrimarket.ClientOption{
		afrimarket.WithBaseURL(a.Config.Source.BaseURL),
		afrimarket.WithTimeout(a.Config.Source.RequestTimeout),
		afrimarket.WithRateLimit(a.Config.Source.RequestsPerSecond),
		afrimarket.WithUserAgent(a.Config.Source.UserAgent),
		afrimarket.WithLogger(a.Logger),
	}
	if a.Config.Source.ProxyURL != "" {
		opts = append(opts, afrimarket.WithProxy(a.Config.Source.ProxyURL))
	}
	a.SourceClient = afrimarket.NewClient(opts...)
	a.Logger.Debug().
		Str("base_url", a.Config.Source.BaseURL).
		Msg("Source client initialized")

	// Export service orchestrates batched runs across all exchanges
	a.ExportService = export.NewService(a.SourceClient, sink, a.Config.Export, a.Logger)
	a.Logger.Debug().Msg("Export service initialized")

	// Scheduler drives recurring export runs
	a.SchedulerService = scheduler.NewService(a.ExportService, a.Logger)

	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler()
	a.MarketHandler = handlers.NewMarketHandler(a.Sink)
	a.ExportHandler = handlers.NewExportHandler(a.ExportService)
}

// Start begins scheduled exports and, when configured, an immediate run
func (a *App) Start() error {
	if err := a.SchedulerService.Start(a.Config.Export.Schedule); err != nil {
		return fmt.Errorf("failed to start export scheduler: %w", err)
	}

	if a.Config.Export.RunOnStart {
		runID, err := a.ExportService.StartRun()
		if err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to start initial export run")
		} else {
			a.Logger.Info().Str("run_id", runID).Msg("Initial export run started")
		}
	}

	return nil
}

// Close closes all application resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		a.SchedulerService.Stop()
	}
	return nil
}
