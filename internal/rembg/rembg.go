// Package rembg strips the background from an encoded image and returns an
// RGBA PNG whose alpha channel marks the subject.
package rembg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	BackendONNX = "onnx"
	BackendHTTP = "http"
	BackendNone = "none"
)

var (
	ErrUnknownBackend  = errors.New("unknown background removal backend")
	ErrONNXUnavailable = errors.New("onnx background removal requires the onnx build tag and cgo")
)

type Remover interface {
	Remove(ctx context.Context, data []byte) ([]byte, error)
	Close() error
}

type Config struct {
	Backend string

	// onnx
	ModelPath         string
	SharedLibraryPath string
	InputSize         int

	// http
	Endpoint string
	Timeout  time.Duration
}

func New(cfg Config) (Remover, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendONNX:
		return NewONNXRemover(cfg)
	case BackendHTTP:
		return NewHTTPRemover(cfg)
	case BackendNone:
		return Passthrough{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// Passthrough is used for sources that are already cut out.
type Passthrough struct{}

func (Passthrough) Remove(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	return data, nil
}

func (Passthrough) Close() error {
	return nil
}
