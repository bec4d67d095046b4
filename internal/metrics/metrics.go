package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"
)

const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// Recorder collects the metrics of a single logo run. A run is too short to
// be scraped, so the registry is flushed to a textfile or a Pushgateway once
// the run ends.
type Recorder struct {
	registry      *prometheus.Registry
	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	stageDuration *prometheus.HistogramVec
	outputBytes   prometheus.Gauge
	outputPixels  prometheus.Gauge
	sourceBytes   prometheus.Gauge
}

func New() *Recorder {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: registry,
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "logoprep_runs_total",
			Help: "Logo runs by final status.",
		}, []string{"status"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logoprep_run_duration_seconds",
			Help:    "End-to-end duration of a logo run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "logoprep_stage_duration_seconds",
			Help:    "Duration of each pipeline stage.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"stage"}),
		outputBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logoprep_output_bytes",
			Help: "Size of the written PNG in bytes.",
		}),
		outputPixels: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logoprep_output_pixels",
			Help: "Pixel count of the written PNG.",
		}),
		sourceBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "logoprep_source_bytes",
			Help: "Size of the input image in bytes.",
		}),
	}

	registry.MustRegister(
		r.runsTotal,
		r.runDuration,
		r.stageDuration,
		r.outputBytes,
		r.outputPixels,
		r.sourceBytes,
	)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) ObserveStage(stage string, elapsed time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveRun(err error, elapsed time.Duration) {
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	r.runsTotal.WithLabelValues(status).Inc()
	r.runDuration.WithLabelValues(status).Observe(elapsed.Seconds())
}

func (r *Recorder) ObserveOutput(sourceBytes, outputBytes, width, height int) {
	r.sourceBytes.Set(float64(sourceBytes))
	r.outputBytes.Set(float64(outputBytes))
	r.outputPixels.Set(float64(width * height))
}

// WriteTextfile writes the registry in the node_exporter textfile format.
func (r *Recorder) WriteTextfile(path string) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("textfile path is required")
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Push replaces the job's metric group on a Pushgateway.
func (r *Recorder) Push(ctx context.Context, url, job string) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("pushgateway url is required")
	}
	if strings.TrimSpace(job) == "" {
		job = "logoprep"
	}
	if err := push.New(url, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
