package app

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dunamismax/logoprep/internal/config"
	"github.com/dunamismax/logoprep/internal/domain"
	"github.com/dunamismax/logoprep/internal/pipeline"
	"github.com/dunamismax/logoprep/internal/rembg"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()

	dir := t.TempDir()
	job := domain.DefaultLogoJob()
	job.InputPath = filepath.Join(dir, "favicon-new.png")
	job.OutputPath = filepath.Join(dir, "favicon-new1.png")

	return config.Config{
		Job:     job,
		Remover: config.RemoverConfig{Backend: rembg.BackendNone},
		Metrics: config.MetricsConfig{TextfilePath: filepath.Join(dir, "logoprep.prom")},
	}
}

func writeSource(t *testing.T, path string, w, h int) {
	t.Helper()

	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := h / 4; y < h*3/4; y++ {
		for x := w / 4; x < w*3/4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 30, G: 160, B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestRunMissingInput(t *testing.T) {
	cfg := testConfig(t)
	// The default backend is not available without the onnx tag; the input
	// check must still win.
	cfg.Remover.Backend = rembg.BackendONNX

	_, err := Run(context.Background(), cfg, log.New(io.Discard, "", 0))
	require.ErrorIs(t, err, pipeline.ErrInputNotFound)

	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Equal(t, fmt.Sprintf("Error: %s not found.", cfg.Job.InputPath), Message(cfg, err))
	assert.NoFileExists(t, cfg.Job.OutputPath)
	assert.NoFileExists(t, cfg.Metrics.TextfilePath)
}

func TestRunWritesLogoAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg.Job.InputPath, 800, 800)

	var logs bytes.Buffer
	result, err := Run(context.Background(), cfg, log.New(&logs, "", 0))
	require.NoError(t, err)

	assert.Equal(t, ExitOK, ExitCode(err))
	assert.Equal(t, "Success! Saved processed image to "+cfg.Job.OutputPath, Message(cfg, err))
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Outputs, 1)
	assert.Equal(t, 512, result.Outputs[0].Width)

	assert.FileExists(t, cfg.Job.OutputPath)
	textfile, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(textfile), `logoprep_runs_total{status="succeeded"} 1`)

	assert.Contains(t, logs.String(), "run completed run_id="+result.RunID)
	assert.Contains(t, logs.String(), "stage=resize")
	assert.Contains(t, logs.String(), "Processing "+cfg.Job.InputPath+"...")
	assert.Contains(t, logs.String(), "1. Removing existing background...")
}

func TestRunReportsUnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg.Job.InputPath, 64, 64)
	cfg.Remover.Backend = "magic"

	_, err := Run(context.Background(), cfg, log.New(io.Discard, "", 0))
	require.ErrorIs(t, err, rembg.ErrUnknownBackend)
	assert.Equal(t, ExitFailure, ExitCode(err))
	assert.Contains(t, Message(cfg, err), "An error occurred: ")
	assert.NoFileExists(t, cfg.Job.OutputPath)

	textfile, err := os.ReadFile(cfg.Metrics.TextfilePath)
	require.NoError(t, err)
	assert.Contains(t, string(textfile), `logoprep_runs_total{status="failed"} 1`)
}

func TestMessageForGenericError(t *testing.T) {
	cfg := testConfig(t)
	assert.Equal(t, "An error occurred: decode stage: bad data", Message(cfg, fmt.Errorf("decode stage: %w", errors.New("bad data"))))
}

func TestRunHintsAtBackendWhenONNXIsUnavailable(t *testing.T) {
	cfg := testConfig(t)
	writeSource(t, cfg.Job.InputPath, 64, 64)
	cfg.Remover.Backend = rembg.BackendONNX

	onnx, buildErr := rembg.New(cfg.Remover.BackendConfig())
	if !errors.Is(buildErr, rembg.ErrONNXUnavailable) {
		if onnx != nil {
			_ = onnx.Close()
		}
		t.Skip("onnx backend is compiled in")
	}

	var logs bytes.Buffer
	_, err := Run(context.Background(), cfg, log.New(&logs, "", 0))
	require.ErrorIs(t, err, rembg.ErrONNXUnavailable)
	assert.Contains(t, logs.String(), "-tags onnx")
	assert.Contains(t, logs.String(), "REMBG_BACKEND=http")
	assert.NoFileExists(t, cfg.Job.OutputPath)
}
