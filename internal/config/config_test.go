package config

import (
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dunamismax/logoprep/internal/domain"
	"github.com/dunamismax/logoprep/internal/rembg"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("U2NET_HOME", "/models")

	cfg := Load()

	assert.Equal(t, domain.DefaultLogoJob(), cfg.Job)
	assert.Equal(t, rembg.BackendONNX, cfg.Remover.Backend)
	assert.Equal(t, filepath.Join("/models", "u2net.onnx"), cfg.Remover.ModelPath)
	assert.Equal(t, 60*time.Second, cfg.Remover.Timeout)
	assert.False(t, cfg.Storage.Publish)
	assert.Equal(t, "logos", cfg.Storage.Prefix)
	assert.Equal(t, "none", cfg.Telemetry.Exporter)
	assert.Empty(t, cfg.Metrics.TextfilePath)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOGOPREP_INPUT", "in/logo.jpg")
	t.Setenv("LOGOPREP_OUTPUT", "out/logo.png")
	t.Setenv("LOGOPREP_MAX_SIZE", "256")
	t.Setenv("LOGOPREP_SATURATION", "1.0")
	t.Setenv("LOGOPREP_CONTRAST", "2")
	t.Setenv("LOGOPREP_BRIGHTNESS", "0.5")
	t.Setenv("LOGOPREP_FILL", "#102030")
	t.Setenv("REMBG_BACKEND", "http")
	t.Setenv("REMBG_ENDPOINT", "http://rembg:7000/api/remove")
	t.Setenv("REMBG_TIMEOUT", "5s")
	t.Setenv("LOGOPREP_PUBLISH", "true")
	t.Setenv("MINIO_BUCKET", "brand")
	t.Setenv("MINIO_USE_SSL", "1")
	t.Setenv("OTEL_TRACES_EXPORTER", "otlp")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("LOGOPREP_METRICS_TEXTFILE", "/var/lib/node_exporter/logoprep.prom")

	cfg := Load()

	assert.Equal(t, "in/logo.jpg", cfg.Job.InputPath)
	assert.Equal(t, "out/logo.png", cfg.Job.OutputPath)
	assert.Equal(t, 256, cfg.Job.MaxWidth)
	assert.Equal(t, 256, cfg.Job.MaxHeight)
	assert.Equal(t, domain.Enhancement{Saturation: 1, Contrast: 2, Brightness: 0.5}, cfg.Job.Enhancement)
	assert.Equal(t, color.NRGBA{R: 0x10, G: 0x20, B: 0x30, A: 0xff}, cfg.Job.Fill)

	backend := cfg.Remover.BackendConfig()
	assert.Equal(t, rembg.BackendHTTP, backend.Backend)
	assert.Equal(t, "http://rembg:7000/api/remove", backend.Endpoint)
	assert.Equal(t, 5*time.Second, backend.Timeout)

	assert.True(t, cfg.Storage.Publish)
	client := cfg.Storage.ClientConfig()
	assert.Equal(t, "brand", client.Bucket)
	assert.True(t, client.UseSSL)

	trace := cfg.Telemetry.TraceConfig()
	assert.Equal(t, "otlp", trace.Exporter)
	assert.Equal(t, "collector:4318", trace.OTLPEndpoint)
	assert.Equal(t, "logoprep", trace.ServiceName)

	assert.Equal(t, "/var/lib/node_exporter/logoprep.prom", cfg.Metrics.TextfilePath)
}

func TestLoadFallsBackOnInvalidValues(t *testing.T) {
	tests := map[string]string{
		"LOGOPREP_MAX_SIZE":   "-4",
		"LOGOPREP_SATURATION": "bright",
		"LOGOPREP_CONTRAST":   "-1",
		"LOGOPREP_BRIGHTNESS": "NaN",
		"LOGOPREP_FILL":       "#00000000",
		"REMBG_TIMEOUT":       "soon",
		"LOGOPREP_PUBLISH":    "maybe",
	}
	for key, value := range tests {
		t.Setenv(key, value)
	}

	cfg := Load()

	assert.Equal(t, domain.DefaultMaxSize, cfg.Job.MaxWidth)
	assert.Equal(t, domain.DefaultLogoJob().Enhancement, cfg.Job.Enhancement)
	assert.Equal(t, domain.DefaultFill, cfg.Job.Fill)
	assert.Equal(t, 60*time.Second, cfg.Remover.Timeout)
	assert.False(t, cfg.Storage.Publish)
}
