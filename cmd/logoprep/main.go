package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dunamismax/logoprep/internal/app"
	"github.com/dunamismax/logoprep/internal/config"
	"github.com/dunamismax/logoprep/internal/pipeline"
	"github.com/dunamismax/logoprep/internal/telemetry"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.Load()
	logger := log.New(os.Stdout, "[logoprep] ", log.LstdFlags|log.Lmsgprefix)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Telemetry.TraceConfig(), logger)
	if err != nil {
		logger.Print(app.Message(cfg, err))
		return app.ExitFailure
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Printf("tracing shutdown error: %v", err)
		}
	}()

	if err := pipeline.Startup(); err != nil {
		logger.Print(app.Message(cfg, err))
		return app.ExitFailure
	}
	defer pipeline.Shutdown()

	_, err = app.Run(ctx, cfg, logger)
	logger.Print(app.Message(cfg, err))
	return app.ExitCode(err)
}
