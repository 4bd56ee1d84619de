// -----------------------------------------------------------------------
// Last Modified: Saturday, 17th October 2026 4:12:09 pm
// Modified By: Bob McAllan
// -----------------------------------------------------------------------

package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/digest/internal/common"
	"github.com/ternarybob/digest/internal/interfaces"
	"github.com/ternarybob/digest/internal/models"
	"github.com/ternarybob/digest/internal/services/analysis"
	"github.com/ternarybob/digest/internal/services/artifacts"
	"github.com/ternarybob/digest/internal/services/delivery"
	"github.com/ternarybob/digest/internal/services/llm"
	"github.com/ternarybob/digest/internal/services/mailer"
	"github.com/ternarybob/digest/internal/services/pipeline"
	"github.com/ternarybob/digest/internal/services/report"
	"github.com/ternarybob/digest/internal/services/scheduler"
	"github.com/ternarybob/digest/internal/services/subscriptions"
	"github.com/ternarybob/digest/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Report pipeline
	Analyzer     interfaces.PortfolioAnalyzer
	Generator    interfaces.ReportGenerator
	Composer     *report.Composer
	Artifacts    *artifacts.Store
	Mailer       *mailer.Service
	Tracker      *delivery.Tracker
	Orchestrator *pipeline.Orchestrator

	// Subscriber management
	Subscriptions *subscriptions.Service

	// Recurring runs
	SchedulerService *scheduler.Service

	// LLM providers (nil clients until first use)
	LLMFactory *llm.ProviderFactory
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		_ = app.StorageManager.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	logger.Info().
		Str("analysis_url", cfg.Analysis.BaseURL).
		Str("smtp_host", cfg.SMTP.Host).
		Str("generator", app.generatorName()).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer (Badger)
func (a *App) initDatabase() error {
	storageManager, err := badger.NewManager(a.Logger, &a.Config.Storage.Badger)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	a.Logger.Debug().
		Str("storage", "badger").
		Str("path", a.Config.Storage.Badger.Path).
		Bool("in_memory", a.Config.Storage.Badger.InMemory).
		Msg("Storage layer initialized")
	return nil
}

// initServices wires the pipeline components in dependency order
func (a *App) initServices() error {
	cfg := a.Config
	subscribers := a.StorageManager.SubscriberStorage()

	// 1. Analysis client
	a.Analyzer = analysis.NewClient(
		analysis.WithBaseURL(cfg.Analysis.BaseURL),
		analysis.WithTimeout(common.ParseDuration(cfg.Analysis.Timeout, analysis.DefaultTimeout)),
		analysis.WithRateLimit(cfg.Analysis.RateLimit),
		analysis.WithLogger(a.Logger),
	)

	// 2. Report generator: LLM when a provider is configured, offline renderer otherwise
	a.LLMFactory = llm.NewProviderFactory(&cfg.Gemini, &cfg.Claude, &cfg.LLM, a.Logger)
	generator, err := a.selectGenerator()
	if err != nil {
		return err
	}
	a.Generator = generator

	// 3. Composer and artifact store
	a.Composer = report.NewComposer(
		a.Generator,
		a.Logger,
		common.ParseDuration(cfg.Report.GenerateTimeout, report.DefaultGenerateTimeout),
		cfg.Report.Currency,
	)
	a.Artifacts = artifacts.NewStore(cfg.Report.ReportsDir, cfg.Report.FinalReportsDir, a.Logger)

	// 4. Mail dispatch
	transport := mailer.NewSMTPTransport(mailer.SMTPConfig{
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTPUsername(),
		Password:    cfg.SMTP.Password,
		ImplicitTLS: cfg.SMTP.ImplicitTLS,
		DialTimeout: common.ParseDuration(cfg.SMTP.DialTimeout, 30*time.Second),
	})
	a.Mailer = mailer.NewService(transport, cfg.SMTP.From, cfg.SMTP.FromName, a.Logger)

	// 5. Delivery bookkeeping and orchestration
	a.Tracker = delivery.NewTracker(subscribers, a.Logger)
	a.Orchestrator = pipeline.NewOrchestrator(pipeline.Dependencies{
		Subscribers: subscribers,
		Analyzer:    a.Analyzer,
		Composer:    a.Composer,
		Artifacts:   a.Artifacts,
		Dispatcher:  a.Mailer,
		Tracker:     a.Tracker,
	}, a.Logger)

	a.Subscriptions = subscriptions.NewService(subscribers, a.Logger)

	// 6. Scheduler (started explicitly by the serve command)
	frequency, err := models.ParseFrequency(cfg.Scheduler.Frequency)
	if err != nil {
		return fmt.Errorf("scheduler.frequency: %w", err)
	}
	a.SchedulerService = scheduler.NewService(a.Orchestrator, frequency, a.Logger)

	return nil
}

// selectGenerator picks the LLM generator when the configured model resolves
// to a provider with an API key, and the offline renderer otherwise.
func (a *App) selectGenerator() (interfaces.ReportGenerator, error) {
	cfg := a.Config
	if cfg.LLM.DefaultProvider != common.LLMProviderOffline || cfg.Report.Model != "" {
		if a.LLMFactory.HasCredentials(cfg.Report.Model) {
			return llm.NewGenerator(a.LLMFactory, cfg.Report.Model, cfg.Report.FinalReportsDir, a.Logger), nil
		}
		a.Logger.Warn().
			Str("model", cfg.Report.Model).
			Msg("No API key for configured model, using offline report renderer")
	}

	generator, err := report.NewTemplateGenerator(cfg.Report.Currency)
	if err != nil {
		return nil, fmt.Errorf("failed to create offline renderer: %w", err)
	}
	return generator, nil
}

func (a *App) generatorName() string {
	if _, ok := a.Generator.(*llm.Generator); ok {
		return "llm"
	}
	return "offline"
}

// RunOnce executes a single pipeline run for frequency. It shares the
// scheduler's run lock, so it is refused while a scheduled run is in flight.
func (a *App) RunOnce(ctx context.Context, frequency models.Frequency) (*models.RunSummary, error) {
	return a.SchedulerService.Trigger(ctx, frequency)
}

// StartScheduler starts the recurring run when enabled in config
func (a *App) StartScheduler() error {
	if !a.Config.Scheduler.Enabled {
		a.Logger.Info().Msg("Scheduler disabled")
		return nil
	}
	return a.SchedulerService.Start(a.Config.Scheduler.Schedule)
}

// Close stops background work and releases resources
func (a *App) Close() error {
	if a.SchedulerService != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := a.SchedulerService.Stop(ctx); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
		cancel()
	}

	if a.LLMFactory != nil {
		if err := a.LLMFactory.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close LLM providers")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
