package app

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"PaperRadar/internal/config"
	"PaperRadar/internal/feed"
	"PaperRadar/internal/infrastructure/fetcher"
	"PaperRadar/internal/infrastructure/llm"
	"PaperRadar/internal/infrastructure/scheduler"
	"PaperRadar/internal/infrastructure/storage"
	"PaperRadar/internal/infrastructure/telegram"
	"PaperRadar/internal/logging"
	"PaperRadar/internal/ports"
	"PaperRadar/internal/summary"
	"PaperRadar/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	pipeline  *usecase.Pipeline
	scheduler *usecase.Scheduler
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) *Application {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	source := feed.NewSource(fetcher.New(nil), cfg.Feeds, baseLogger.With("component", "source"))

	summarizer := summary.New(
		llm.NewClient(cfg.AI),
		cfg.Summary.MaxChars,
		baseLogger.With("component", "summary"),
	)

	var repository ports.ItemRepository
	if cfg.Database.DSN != "" {
		db, err := sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			baseLogger.Warn("database unavailable, running without dedup history", "error", err)
		} else {
			repository = storage.NewPostgresRepository(db)
		}
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID,
		)
	}

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:     source,
		Repository: repository,
		Summarizer: summarizer,
		Notifier:   notifier,
		Logger:     baseLogger.With("component", "pipeline"),
	})

	driver := scheduler.NewTickerScheduler(cfg.Scheduler.Every())
	sched := usecase.NewScheduler(driver, pipeline, baseLogger.With("component", "scheduler"))

	return &Application{cfg: cfg, pipeline: pipeline, scheduler: sched}
}

// Run performs a single pipeline execution.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	return a.pipeline.ProcessRun(ctx, time.Now())
}

// Start launches recurring runs; the first run fires immediately.
func (a *Application) Start(ctx context.Context) error {
	if a.scheduler == nil {
		return nil
	}

	return a.scheduler.Start(ctx)
}

// Stop tears down the recurring runs.
func (a *Application) Stop(ctx context.Context) error {
	if a.scheduler == nil {
		return nil
	}

	return a.scheduler.Stop(ctx)
}
