package config

import (
	"image/color"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dunamismax/logoprep/internal/domain"
	"github.com/dunamismax/logoprep/internal/rembg"
	"github.com/dunamismax/logoprep/internal/storage"
	"github.com/dunamismax/logoprep/internal/telemetry"
)

type Config struct {
	Job       domain.LogoJob
	Remover   RemoverConfig
	Storage   StorageConfig
	Telemetry TelemetryConfig
	Metrics   MetricsConfig
}

type RemoverConfig struct {
	Backend           string
	ModelPath         string
	SharedLibraryPath string
	Endpoint          string
	Timeout           time.Duration
}

func (r RemoverConfig) BackendConfig() rembg.Config {
	return rembg.Config{
		Backend:           r.Backend,
		ModelPath:         r.ModelPath,
		SharedLibraryPath: r.SharedLibraryPath,
		Endpoint:          r.Endpoint,
		Timeout:           r.Timeout,
	}
}

type StorageConfig struct {
	Publish   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Prefix    string
}

func (s StorageConfig) ClientConfig() storage.Config {
	return storage.Config{
		Endpoint: s.Endpoint,
		Access:   s.AccessKey,
		Secret:   s.SecretKey,
		Bucket:   s.Bucket,
		UseSSL:   s.UseSSL,
	}
}

type TelemetryConfig struct {
	ServiceName  string
	Exporter     string
	OTLPEndpoint string
	OTLPInsecure bool
}

func (t TelemetryConfig) TraceConfig() telemetry.TraceConfig {
	return telemetry.TraceConfig{
		ServiceName:  t.ServiceName,
		Exporter:     t.Exporter,
		OTLPEndpoint: t.OTLPEndpoint,
		OTLPInsecure: t.OTLPInsecure,
	}
}

type MetricsConfig struct {
	TextfilePath   string
	PushgatewayURL string
	JobName        string
}

func Load() Config {
	job := domain.DefaultLogoJob()
	job.InputPath = env("LOGOPREP_INPUT", job.InputPath)
	job.OutputPath = env("LOGOPREP_OUTPUT", job.OutputPath)
	if size := envInt("LOGOPREP_MAX_SIZE", domain.DefaultMaxSize); size > 0 {
		job.MaxWidth, job.MaxHeight = size, size
	}
	job.Enhancement = domain.Enhancement{
		Saturation: envFactor("LOGOPREP_SATURATION", domain.DefaultSaturation),
		Contrast:   envFactor("LOGOPREP_CONTRAST", domain.DefaultContrast),
		Brightness: envFactor("LOGOPREP_BRIGHTNESS", domain.DefaultBrightness),
	}
	job.Fill = envColor("LOGOPREP_FILL", domain.DefaultFill)

	return Config{
		Job: job,
		Remover: RemoverConfig{
			Backend:           env("REMBG_BACKEND", rembg.BackendONNX),
			ModelPath:         env("REMBG_MODEL_PATH", defaultModelPath()),
			SharedLibraryPath: env("ONNXRUNTIME_SHARED_LIBRARY_PATH", ""),
			Endpoint:          env("REMBG_ENDPOINT", ""),
			Timeout:           envDuration("REMBG_TIMEOUT", 60*time.Second),
		},
		Storage: StorageConfig{
			Publish:   envBool("LOGOPREP_PUBLISH", false),
			Endpoint:  env("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: env("MINIO_ACCESS_KEY", "minioadmin"),
			SecretKey: env("MINIO_SECRET_KEY", "minioadmin"),
			Bucket:    env("MINIO_BUCKET", "logoprep-assets"),
			UseSSL:    envBool("MINIO_USE_SSL", false),
			Prefix:    env("MINIO_OBJECT_PREFIX", "logos"),
		},
		Telemetry: TelemetryConfig{
			ServiceName:  env("OTEL_SERVICE_NAME", "logoprep"),
			Exporter:     env("OTEL_TRACES_EXPORTER", "none"),
			OTLPEndpoint: env("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
			OTLPInsecure: envBool("OTEL_EXPORTER_OTLP_INSECURE", false),
		},
		Metrics: MetricsConfig{
			TextfilePath:   env("LOGOPREP_METRICS_TEXTFILE", ""),
			PushgatewayURL: env("PROMETHEUS_PUSHGATEWAY_URL", ""),
			JobName:        env("PROMETHEUS_PUSHGATEWAY_JOB", "logoprep"),
		},
	}
}

// defaultModelPath mirrors rembg's model cache: $U2NET_HOME or ~/.u2net.
func defaultModelPath() string {
	if home := env("U2NET_HOME", ""); home != "" {
		return filepath.Join(home, "u2net.onnx")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".u2net", "u2net.onnx")
	}
	return filepath.Join(home, ".u2net", "u2net.onnx")
}

func env(key, fallback string) string {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	return strings.TrimSpace(value)
}

func envInt(key string, fallback int) int {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envFloat(key string, fallback float64) float64 {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

// envFactor is envFloat restricted to finite, non-negative blend factors.
func envFactor(key string, fallback float64) float64 {
	value := envFloat(key, fallback)
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string, fallback time.Duration) time.Duration {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func envColor(key string, fallback color.NRGBA) color.NRGBA {
	value := env(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := domain.ParseHexColor(value)
	if err != nil || parsed.A == 0 {
		return fallback
	}
	return parsed
}
