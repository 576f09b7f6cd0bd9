package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"PressMonitor/internal/config"
	"PressMonitor/internal/infrastructure/euronext"
	"PressMonitor/internal/infrastructure/scheduler"
	"PressMonitor/internal/infrastructure/storage"
	"PressMonitor/internal/infrastructure/webflow"
	"PressMonitor/internal/logging"
	"PressMonitor/internal/server"
	"PressMonitor/internal/usecase"
)

// Application wires configuration to components and dispatches actions.
type Application struct {
	cfg          config.Config
	logger       *slog.Logger
	orchestrator *usecase.Orchestrator
}

// New builds a runnable application instance.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	dynamoClient, err := storage.NewClient(ctx, cfg.State.Region)
	if err != nil {
		return nil, fmt.Errorf("build dynamodb client: %w", err)
	}
	store := storage.NewDynamoStore(dynamoClient, cfg.State.TableName, baseLogger.With("component", "storage"))

	loc := cfg.Window.Location()
	source := euronext.NewScanner(nil, euronext.Options{
		ListingURL: cfg.Source.ListingURL,
		Cutoff:     cfg.Source.Cutoff(loc),
		Location:   loc,
		Delay:      cfg.Source.PolitenessDelay(),
		NavTimeout: cfg.Source.NavTimeout(),
	}, euronext.NewPageExtractor(), baseLogger.With("component", "euronext"))

	publisher := webflow.NewClient(cfg.Webflow, baseLogger.With("component", "webflow"))

	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Source:    source,
		Store:     store,
		Publisher: publisher,
		Window:    cfg.Window,
		Logger:    baseLogger.With("component", "orchestrator"),
	})

	return &Application{cfg: cfg, logger: baseLogger, orchestrator: orchestrator}, nil
}

// Dispatch runs the named action: run, health, stats, or serve.
func (a *Application) Dispatch(ctx context.Context, action string) error {
	switch action {
	case "run":
		report := a.orchestrator.Run(ctx)
		printJSON(report)
		if !report.Success {
			return fmt.Errorf("run failed: %s", report.Error)
		}
		return nil

	case "health":
		report := a.orchestrator.HealthCheck(ctx)
		printJSON(report)
		if report.Status != "healthy" {
			return fmt.Errorf("system unhealthy")
		}
		return nil

	case "stats":
		stats, err := a.orchestrator.Stats(ctx)
		if err != nil {
			return err
		}
		printJSON(stats)
		return nil

	case "serve":
		return a.serve(ctx)

	default:
		return fmt.Errorf("unknown action %q (available: run, health, stats, serve)", action)
	}
}

// serve starts the cron-driven loop plus the HTTP surface and blocks.
func (a *Application) serve(ctx context.Context) error {
	driver := scheduler.NewCronScheduler(a.cfg.Server.CronSpec, a.cfg.Window.Location())
	sched := usecase.NewScheduler(driver, a.orchestrator)
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop(ctx) }()

	srv := server.New(a.orchestrator, a.logger.With("component", "http"))
	return srv.Run(a.cfg.Server.Addr)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
