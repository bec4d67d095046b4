// Package app wires configuration into a single logo run.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/dunamismax/logoprep/internal/config"
	"github.com/dunamismax/logoprep/internal/id"
	"github.com/dunamismax/logoprep/internal/metrics"
	"github.com/dunamismax/logoprep/internal/pipeline"
	"github.com/dunamismax/logoprep/internal/rembg"
	"github.com/dunamismax/logoprep/internal/storage"
)

const (
	ExitOK      = 0
	ExitFailure = 1
)

// Run processes cfg.Job once. The input is checked before any model or
// storage client is created, so a missing file fails fast.
func Run(ctx context.Context, cfg config.Config, logger *log.Logger) (pipeline.Result, error) {
	if err := pipeline.CheckInput(cfg.Job.InputPath); err != nil {
		return pipeline.Result{}, err
	}

	runID := id.New()
	startedAt := time.Now()
	recorder := metrics.New()

	result, err := process(ctx, cfg, logger, runID, recorder)

	recorder.ObserveRun(err, time.Since(startedAt))
	if err == nil && len(result.Outputs) > 0 {
		written := result.Outputs[len(result.Outputs)-1]
		recorder.ObserveOutput(result.SourceBytes, written.Bytes, written.Width, written.Height)
	}
	flushMetrics(ctx, cfg.Metrics, recorder, logger)

	if err != nil {
		logger.Printf("run failed run_id=%s elapsed=%s error=%v", runID, time.Since(startedAt).Round(time.Millisecond), err)
		return pipeline.Result{}, err
	}
	logger.Printf("run completed run_id=%s elapsed=%s outputs=%d", runID, time.Since(startedAt).Round(time.Millisecond), len(result.Outputs))
	return result, nil
}

func process(ctx context.Context, cfg config.Config, logger *log.Logger, runID string, recorder *metrics.Recorder) (pipeline.Result, error) {
	remover, err := rembg.New(cfg.Remover.BackendConfig())
	if errors.Is(err, rembg.ErrONNXUnavailable) {
		logger.Printf("hint: rebuild with -tags onnx (cgo enabled) or set REMBG_BACKEND=%s or %s", rembg.BackendHTTP, rembg.BackendNone)
	}
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("create background remover: %w", err)
	}
	defer func() {
		if err := remover.Close(); err != nil {
			logger.Printf("background remover close error: %v", err)
		}
	}()

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(recorder),
	}

	if cfg.Storage.Publish {
		client, err := storage.NewClient(cfg.Storage.ClientConfig())
		if err != nil {
			return pipeline.Result{}, fmt.Errorf("create storage client: %w", err)
		}
		if err := client.EnsureBucket(ctx); err != nil {
			return pipeline.Result{}, fmt.Errorf("prepare storage bucket: %w", err)
		}
		logger.Printf("publishing enabled bucket=%s prefix=%s", client.Bucket(), cfg.Storage.Prefix)
		opts = append(opts, pipeline.WithPublisher(pipeline.ObjectStoreEmitter{
			Storage: client,
			Prefix:  cfg.Storage.Prefix,
		}))
	}

	processor, err := pipeline.NewLocalProcessor(remover, opts...)
	if err != nil {
		return pipeline.Result{}, fmt.Errorf("create processor: %w", err)
	}

	logger.Printf("starting run run_id=%s backend=%s", runID, cfg.Remover.Backend)
	return processor.Process(ctx, pipeline.Request{RunID: runID, Job: cfg.Job})
}

// flushMetrics never fails the run; the logo is already written.
func flushMetrics(ctx context.Context, cfg config.MetricsConfig, recorder *metrics.Recorder, logger *log.Logger) {
	if cfg.TextfilePath != "" {
		if err := recorder.WriteTextfile(cfg.TextfilePath); err != nil {
			logger.Printf("metrics textfile error: %v", err)
		}
	}
	if cfg.PushgatewayURL != "" {
		if err := recorder.Push(ctx, cfg.PushgatewayURL, cfg.JobName); err != nil {
			logger.Printf("metrics push error: %v", err)
		}
	}
}

func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	return ExitFailure
}

// Message renders the line printed for the outcome of a run.
func Message(cfg config.Config, err error) string {
	switch {
	case err == nil:
		return fmt.Sprintf("Success! Saved processed image to %s", cfg.Job.OutputPath)
	case errors.Is(err, pipeline.ErrInputNotFound):
		return fmt.Sprintf("Error: %s not found.", cfg.Job.InputPath)
	default:
		return fmt.Sprintf("An error occurred: %v", err)
	}
}
