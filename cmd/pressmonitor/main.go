package main

import (
	"context"
	"os"

	"PressMonitor/internal/app"
	"PressMonitor/internal/config"
	"PressMonitor/internal/logging"
)

func main() {
	ctx := context.Background()
	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	action := "run"
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}

	if err := application.Dispatch(ctx, action); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
