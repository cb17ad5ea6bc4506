package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/legal-sla-monitor/internal/config"
	"github.com/kirillkom/legal-sla-monitor/internal/core/ports"
	"github.com/kirillkom/legal-sla-monitor/internal/core/sla"
	"github.com/kirillkom/legal-sla-monitor/internal/core/usecase"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/queue/nats"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/resilience"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/spreadsheet"
	"github.com/kirillkom/legal-sla-monitor/internal/infrastructure/storage/localfs"
)

// Options carries the per-process observability hooks into the wiring.
type Options struct {
	Logger          *slog.Logger
	ResilienceHooks resilience.Hooks
	LagObserver     nats.LagObserver
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue     ports.MessageQueue
	Repo      ports.RunRepository
	SubmitUC  ports.RunSubmitter
	ReadUC    ports.RunReader
	ProcessUC ports.RunProcessor

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := config.LoadRules(cfg.SLARulesPath)
	if err != nil {
		return nil, fmt.Errorf("load sla rules: %w", err)
	}
	loc := cfg.Location()
	pipeline, err := sla.NewPipeline(rules, sla.PipelineOptions{
		Now: func() time.Time { return time.Now().In(loc) },
	})
	if err != nil {
		return nil, fmt.Errorf("init sla pipeline: %w", err)
	}

	executor := resilience.NewExecutor(resilienceConfig(cfg),
		resilience.WithLogger(logger),
		resilience.WithHooks(opts.ResilienceHooks),
	)

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewRunRepository(db, executor)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
		Logger:             logger,
		LagObserver:        opts.LagObserver,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	submitUC := usecase.NewSubmitRunUseCase(repo, storage, queue)
	readUC := usecase.NewReadRunUseCase(repo, storage)
	processUC := usecase.NewProcessRunUseCase(repo, storage, spreadsheet.NewReader(), spreadsheet.NewWriter(), pipeline)

	logger.Info("bootstrap_ready",
		"timezone", loc.String(),
		"handoff_stage", rules.HandoffStage,
		"nats_subject", cfg.NATSSubject,
	)

	return &App{
		Config: cfg,
		Logger: logger,
		Queue:  queue,
		Repo:   repo,

		SubmitUC:  submitUC,
		ReadUC:    readUC,
		ProcessUC: processUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Tuned(
		cfg.ResilienceRetryMaxAttempts,
		time.Duration(cfg.ResilienceRetryBackoffMS)*time.Millisecond,
		cfg.ResilienceBreakerEnabled,
		cfg.ResilienceBreakerMinRequest,
	)
}
