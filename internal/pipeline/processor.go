package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dunamismax/logoprep/internal/backdrop"
	"github.com/dunamismax/logoprep/internal/domain"
	"github.com/dunamismax/logoprep/internal/enhance"
	"github.com/dunamismax/logoprep/internal/rembg"
)

const (
	StageFetch            = "fetch"
	StageRemoveBackground = "remove_background"
	StageDecode           = "decode"
	StageResize           = "resize"
	StageEnhance          = "enhance"
	StageBackdrop         = "backdrop"
	StageComposite        = "composite"
	StageEncode           = "encode"
	StagePublish          = "publish"
	StageWrite            = "write"
)

var ErrInputNotFound = errors.New("input file not found")

// progress holds the numbered line announced when a stage starts.
var progress = map[string]string{
	StageRemoveBackground: "1. Removing existing background...",
	StageBackdrop:         "2. Adding circular background...",
	StageEnhance:          "3. Enhancing brightness and color of logo...",
}

type Request struct {
	RunID string
	Job   domain.LogoJob
}

type Output struct {
	Destination string
	Format      string
	Bytes       int
	Width       int
	Height      int
}

type Result struct {
	RunID         string
	SourceFormat  string
	SourceBytes   int
	SubjectOffset image.Point
	Outputs       []Output
}

type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

type Emitter interface {
	Emit(ctx context.Context, req Request, data []byte, width, height int) (Output, error)
}

type StageObserver interface {
	ObserveStage(stage string, elapsed time.Duration)
}

type Option func(*Processor)

// WithPublisher adds an emitter that runs before the local file is written.
func WithPublisher(e Emitter) Option {
	return func(p *Processor) {
		if e != nil {
			p.publishers = append(p.publishers, e)
		}
	}
}

func WithObserver(o StageObserver) Option {
	return func(p *Processor) {
		if o != nil {
			p.observer = o
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

type Processor struct {
	logger     *log.Logger
	fetcher    Fetcher
	remover    rembg.Remover
	resampler  Resampler
	publishers []Emitter
	emitter    Emitter
	observer   StageObserver
	tracer     trace.Tracer
}

func NewLocalProcessor(remover rembg.Remover, opts ...Option) (*Processor, error) {
	if remover == nil {
		return nil, errors.New("background remover is required")
	}

	resampler, err := newResampler()
	if err != nil {
		return nil, fmt.Errorf("build resampler: %w", err)
	}

	p := &Processor{
		logger:    log.New(io.Discard, "", 0),
		fetcher:   LocalFileFetcher{},
		remover:   remover,
		resampler: resampler,
		emitter:   LocalFileEmitter{},
		observer:  noopObserver{},
		tracer:    otel.Tracer("logoprep/pipeline"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	if err := req.Job.Validate(); err != nil {
		return Result{}, fmt.Errorf("invalid job: %w", err)
	}
	job := req.Job

	ctx, span := p.tracer.Start(ctx, "pipeline.process")
	span.SetAttributes(
		attribute.String("run.id", req.RunID),
		attribute.String("logo.input", job.InputPath),
		attribute.String("logo.output", job.OutputPath),
	)
	defer span.End()

	p.logger.Printf("Processing %s...", job.InputPath)
	p.logger.Printf("processing run_id=%s input=%s output=%s", req.RunID, job.InputPath, job.OutputPath)

	var (
		out     = Result{RunID: req.RunID}
		source  []byte
		cutout  []byte
		subject *image.NRGBA
		canvas  *image.NRGBA
		encoded []byte
	)

	stages := []struct {
		name string
		fn   func(ctx context.Context) error
	}{
		{StageFetch, func(ctx context.Context) (err error) {
			source, err = p.fetcher.Fetch(ctx, job.InputPath)
			out.SourceBytes = len(source)
			return err
		}},
		{StageRemoveBackground, func(ctx context.Context) (err error) {
			cutout, err = p.remover.Remove(ctx, source)
			return err
		}},
		{StageDecode, func(context.Context) (err error) {
			subject, out.SourceFormat, err = decodeNRGBA(cutout)
			return err
		}},
		{StageResize, func(ctx context.Context) (err error) {
			subject, err = p.resampler.Thumbnail(ctx, subject, job.MaxWidth, job.MaxHeight)
			return err
		}},
		{StageBackdrop, func(context.Context) error {
			canvas = backdrop.Canvas(subject.Bounds().Size(), job.Fill)
			return nil
		}},
		{StageEnhance, func(context.Context) error {
			subject = enhance.Apply(subject, job.Enhancement)
			return nil
		}},
		{StageComposite, func(context.Context) error {
			canvas, out.SubjectOffset = backdrop.Composite(canvas, subject)
			return nil
		}},
		{StageEncode, func(context.Context) (err error) {
			encoded, err = encodePNG(canvas)
			return err
		}},
		{StagePublish, func(ctx context.Context) error {
			for _, publisher := range p.publishers {
				written, err := publisher.Emit(ctx, req, encoded, canvas.Bounds().Dx(), canvas.Bounds().Dy())
				if err != nil {
					return err
				}
				out.Outputs = append(out.Outputs, written)
			}
			return nil
		}},
		{StageWrite, func(ctx context.Context) error {
			written, err := p.emitter.Emit(ctx, req, encoded, canvas.Bounds().Dx(), canvas.Bounds().Dy())
			if err != nil {
				return err
			}
			out.Outputs = append(out.Outputs, written)
			return nil
		}},
	}

	for _, stage := range stages {
		if err := p.runStage(ctx, req.RunID, stage.name, stage.fn); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "pipeline failed")
			return Result{}, err
		}
	}

	span.SetStatus(codes.Ok, "processed")
	return out, nil
}

func (p *Processor) runStage(ctx context.Context, runID, name string, fn func(context.Context) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	ctx, span := p.tracer.Start(ctx, "pipeline."+name)
	defer span.End()

	if line, ok := progress[name]; ok {
		p.logger.Print(line)
	}

	startedAt := time.Now()
	err := fn(ctx)
	elapsed := time.Since(startedAt)
	p.observer.ObserveStage(name, elapsed)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, name+" failed")
		return fmt.Errorf("%s stage: %w", name, err)
	}

	p.logger.Printf("stage=%s run_id=%s elapsed=%s", name, runID, elapsed.Round(time.Microsecond))
	return nil
}

// CheckInput reports ErrInputNotFound when path does not exist.
func CheckInput(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrInputNotFound, path)
		}
		return fmt.Errorf("stat input %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("input %s is a directory", path)
	}
	return nil
}

type LocalFileFetcher struct{}

func (LocalFileFetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	if err := CheckInput(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input file %s: %w", path, err)
	}
	return data, nil
}

// LocalFileEmitter writes the job's output path through a temp file in the
// same directory, so a failed write never leaves a truncated PNG behind.
type LocalFileEmitter struct{}

func (LocalFileEmitter) Emit(_ context.Context, req Request, data []byte, width, height int) (Output, error) {
	target := strings.TrimSpace(req.Job.OutputPath)
	if target == "" {
		return Output{}, errors.New("output path is required")
	}

	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Output{}, fmt.Errorf("create output dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".logoprep-*.png")
	if err != nil {
		return Output{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return Output{}, fmt.Errorf("write output file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return Output{}, fmt.Errorf("close output file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return Output{}, fmt.Errorf("chmod output file: %w", err)
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return Output{}, fmt.Errorf("rename output file: %w", err)
	}

	return Output{
		Destination: target,
		Format:      "png",
		Bytes:       len(data),
		Width:       width,
		Height:      height,
	}, nil
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration) {}
