package usecase

import (
	"context"
	"time"

	"PressMonitor/internal/ports"
)

// Scheduler wires the cron driver with the pipeline orchestrator for serve
// mode. The driver decides cadence; the gate inside Run still decides whether
// a triggered run actually executes.
type Scheduler struct {
	driver       ports.Scheduler
	orchestrator *Orchestrator
}

// NewScheduler returns a helper to start/stop recurring runs.
func NewScheduler(driver ports.Scheduler, orchestrator *Orchestrator) *Scheduler {
	return &Scheduler{driver: driver, orchestrator: orchestrator}
}

// Start registers the pipeline with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.orchestrator == nil {
		return nil
	}

	job := func(time.Time) {
		_ = s.orchestrator.Run(ctx)
	}
	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}
	return s.driver.Stop(ctx)
}
