package domain

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	DefaultInputPath  = "frontend/public/favicon-new.png"
	DefaultOutputPath = "frontend/public/favicon-new1.png"
	DefaultMaxSize    = 512

	DefaultSaturation = 1.8
	DefaultContrast   = 1.5
	DefaultBrightness = 1.2
)

// DefaultFill is the indigo used for the circular backdrop.
var DefaultFill = color.NRGBA{R: 79, G: 70, B: 229, A: 255}

// Enhancement holds the blend factors applied to the subject. A factor of 1
// leaves the image unchanged.
type Enhancement struct {
	Saturation float64
	Contrast   float64
	Brightness float64
}

type LogoJob struct {
	InputPath   string
	OutputPath  string
	MaxWidth    int
	MaxHeight   int
	Enhancement Enhancement
	Fill        color.NRGBA
}

func DefaultLogoJob() LogoJob {
	return LogoJob{
		InputPath:  DefaultInputPath,
		OutputPath: DefaultOutputPath,
		MaxWidth:   DefaultMaxSize,
		MaxHeight:  DefaultMaxSize,
		Enhancement: Enhancement{
			Saturation: DefaultSaturation,
			Contrast:   DefaultContrast,
			Brightness: DefaultBrightness,
		},
		Fill: DefaultFill,
	}
}

func (j LogoJob) Validate() error {
	input := strings.TrimSpace(j.InputPath)
	output := strings.TrimSpace(j.OutputPath)
	if input == "" {
		return errors.New("input path is required")
	}
	if output == "" {
		return errors.New("output path is required")
	}
	if filepath.Clean(input) == filepath.Clean(output) {
		return fmt.Errorf("output path must differ from input path: %s", output)
	}
	if j.MaxWidth <= 0 || j.MaxHeight <= 0 {
		return fmt.Errorf("max size must be positive, got %dx%d", j.MaxWidth, j.MaxHeight)
	}
	factors := []struct {
		name  string
		value float64
	}{
		{"saturation", j.Enhancement.Saturation},
		{"contrast", j.Enhancement.Contrast},
		{"brightness", j.Enhancement.Brightness},
	}
	for _, f := range factors {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return fmt.Errorf("%s factor must be a finite non-negative number, got %v", f.name, f.value)
		}
	}
	if j.Fill.A == 0 {
		return errors.New("backdrop fill must not be fully transparent")
	}
	return nil
}

// ParseHexColor accepts #rrggbb or #rrggbbaa, with or without the leading '#'.
func ParseHexColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", s, err)
	}
	if len(hex) == 6 {
		v = v<<8 | 0xff
	}

	return color.NRGBA{
		R: uint8(v >> 24),
		G: uint8(v >> 16),
		B: uint8(v >> 8),
		A: uint8(v),
	}, nil
}
