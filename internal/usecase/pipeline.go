package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"PressMonitor/internal/config"
	"PressMonitor/internal/domain"
	"PressMonitor/internal/ports"
	"PressMonitor/internal/schedule"
)

const statsWindowDays = 7

// OrchestratorDeps wires all driven adapters into the pipeline.
type OrchestratorDeps struct {
	Source    ports.ReleaseSource
	Store     ports.StateStore
	Publisher ports.Publisher
	Window    config.WindowConfig
	Logger    *slog.Logger
	Now       func() time.Time
}

// Orchestrator composes gate, extractor, store and publisher into one linear
// pipeline run and persists run outcomes. Exactly one RunMetadata record is
// written per run, on every terminal path.
type Orchestrator struct {
	source    ports.ReleaseSource
	store     ports.StateStore
	publisher ports.Publisher
	window    config.WindowConfig
	logger    *slog.Logger
	now       func() time.Time
}

// RunReport is what a single pipeline execution returns to the invoker.
type RunReport struct {
	Success bool               `json:"success"`
	Skipped bool               `json:"skipped,omitempty"`
	Reason  string             `json:"reason,omitempty"`
	Results *domain.RunResults `json:"results,omitempty"`
	Error   string             `json:"error,omitempty"`
}

// HealthReport mirrors the /health response shape.
type HealthReport struct {
	Status      string          `json:"status"`
	Connections map[string]bool `json:"connections"`
	Stats       *StatsReport    `json:"stats,omitempty"`
	Error       string          `json:"error,omitempty"`
	Timestamp   string          `json:"timestamp"`
}

// StatsReport aggregates recent processing counters.
type StatsReport struct {
	Processing   domain.ProcessingStats `json:"processing"`
	LastRun      string                 `json:"lastRun,omitempty"`
	WithinWindow bool                   `json:"withinWindow"`
}

// NewOrchestrator constructs the orchestration component.
func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		source:    deps.Source,
		store:     deps.Store,
		publisher: deps.Publisher,
		window:    deps.Window,
		logger:    deps.Logger,
		now:       now,
	}
}

// Run executes one pipeline pass: gate, connectivity, scrape, dedup filter,
// publish, per-item mark, metadata write. The run itself is never retried;
// retriable behavior lives inside the publisher's rate-limit handling.
func (o *Orchestrator) Run(ctx context.Context) RunReport {
	start := o.now()
	meta := domain.RunMetadata{StartTime: start}

	o.info("run starting", "start", start.Format(time.RFC3339))

	meta.WithinWindow = o.withinWindow(start)
	if !meta.WithinWindow {
		o.info("outside operating window, skipping run")
		meta.Skipped = true
		meta.SkipReason = "outside_business_hours"
		meta.Success = true
		return o.finish(ctx, meta, RunReport{Success: true, Skipped: true, Reason: meta.SkipReason})
	}

	if err := o.checkConnections(ctx); err != nil {
		o.error("connectivity check failed, aborting before any publish", "error", err)
		meta.Error = err.Error()
		return o.finish(ctx, meta, RunReport{Success: false, Error: err.Error()})
	}

	releases, err := o.source.FetchAll(ctx)
	if err != nil {
		err = fmt.Errorf("scrape listing: %w", err)
		meta.Error = err.Error()
		return o.finish(ctx, meta, RunReport{Success: false, Error: err.Error()})
	}
	o.info("scrape complete", "found", len(releases))

	if len(releases) == 0 {
		meta.Success = true
		meta.Results = &domain.RunResults{}
		return o.finish(ctx, meta, RunReport{Success: true, Results: meta.Results})
	}

	unprocessed, err := o.store.FilterUnprocessed(ctx, releases)
	if err != nil {
		err = fmt.Errorf("filter unprocessed: %w", err)
		meta.Error = err.Error()
		return o.finish(ctx, meta, RunReport{Success: false, Error: err.Error()})
	}
	o.info("dedup filter complete", "unprocessed", len(unprocessed))

	if len(unprocessed) == 0 {
		meta.Success = true
		meta.Results = &domain.RunResults{Found: len(releases), Skipped: len(releases)}
		return o.finish(ctx, meta, RunReport{Success: true, Results: meta.Results})
	}

	outcomes, summary := o.publisher.ProcessBatch(ctx, unprocessed)

	for i, release := range unprocessed {
		record := domain.ProcessedRelease{
			Fingerprint: release.Fingerprint,
			Title:       release.Title,
			Company:     release.Company,
			Date:        release.PublishedAt,
			DateText:    release.DateText,
			Link:        release.Link,
			ProcessedAt: o.now(),
			Outcome:     outcomes[i],
		}
		if err := o.store.MarkProcessed(ctx, record); err != nil {
			o.error("mark processed failed", "fingerprint", release.Fingerprint, "error", err)
		}
	}

	meta.Success = true
	meta.Results = &domain.RunResults{
		Found:     len(releases),
		Processed: len(unprocessed),
		Created:   summary.Created,
		Skipped:   summary.Skipped,
		Failed:    summary.Failed,
	}
	o.info("run complete", "found", meta.Results.Found, "processed", meta.Results.Processed,
		"created", meta.Results.Created, "skipped", meta.Results.Skipped, "failed", meta.Results.Failed)

	return o.finish(ctx, meta, RunReport{Success: true, Results: meta.Results})
}

// HealthCheck probes every external collaborator and reports aggregates.
func (o *Orchestrator) HealthCheck(ctx context.Context) HealthReport {
	report := HealthReport{
		Connections: map[string]bool{},
		Timestamp:   o.now().UTC().Format(time.RFC3339),
	}

	report.Connections["store"] = o.store.Ping(ctx) == nil
	report.Connections["webflow"] = o.publisher.Ping(ctx) == nil
	report.Connections["source"] = o.source.Ping(ctx) == nil

	healthy := true
	for _, ok := range report.Connections {
		healthy = healthy && ok
	}
	if healthy {
		report.Status = "healthy"
	} else {
		report.Status = "unhealthy"
	}

	if stats, err := o.Stats(ctx); err == nil {
		report.Stats = stats
	} else {
		report.Error = err.Error()
	}
	return report
}

// Stats returns recent processing aggregates and the last run timestamp.
func (o *Orchestrator) Stats(ctx context.Context) (*StatsReport, error) {
	processing, err := o.store.GetStats(ctx, statsWindowDays)
	if err != nil {
		return nil, fmt.Errorf("load stats: %w", err)
	}

	report := &StatsReport{
		Processing:   processing,
		WithinWindow: o.withinWindow(o.now()),
	}
	if last, ok, err := o.store.GetLastRunTime(ctx); err == nil && ok {
		report.LastRun = last.UTC().Format(time.RFC3339)
	}
	return report, nil
}

func (o *Orchestrator) withinWindow(now time.Time) bool {
	return schedule.WithinWindow(now, o.window.Timezone, o.window.AllowedWeekdays(), o.window.Start, o.window.End)
}

// checkConnections verifies store and publisher before any publish attempt;
// a failure here aborts the run so it never partially publishes.
func (o *Orchestrator) checkConnections(ctx context.Context) error {
	if err := o.store.Ping(ctx); err != nil {
		return fmt.Errorf("state store unreachable: %w", err)
	}
	if err := o.publisher.Ping(ctx); err != nil {
		return fmt.Errorf("webflow unreachable: %w", err)
	}
	return nil
}

// finish stamps the end time and persists the run record. Metadata write
// failures are logged, not propagated: the run outcome already happened.
func (o *Orchestrator) finish(ctx context.Context, meta domain.RunMetadata, report RunReport) RunReport {
	meta.EndTime = o.now()
	if err := o.store.SaveRunMetadata(ctx, meta); err != nil {
		o.error("save run metadata failed", "error", err)
	}
	return report
}

func (o *Orchestrator) info(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Info(msg, args...)
	}
}

func (o *Orchestrator) error(msg string, args ...any) {
	if o.logger != nil {
		o.logger.Error(msg, args...)
	}
}
