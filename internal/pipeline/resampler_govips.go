//go:build govips && cgo

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/davidbyttow/govips/v2/vips"
)

type govipsResampler struct{}

func (govipsResampler) Thumbnail(ctx context.Context, img *image.NRGBA, maxWidth, maxHeight int) (*image.NRGBA, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("thumbnail bounds must be positive, got %dx%d", maxWidth, maxHeight)
	}

	b := img.Bounds()
	width, height := fitWithin(b.Dx(), b.Dy(), maxWidth, maxHeight)
	if width == b.Dx() && height == b.Dy() {
		return img, nil
	}

	buf, err := encodePNG(img)
	if err != nil {
		return nil, err
	}

	ref, err := vips.NewImageFromBuffer(buf)
	if err != nil {
		return nil, fmt.Errorf("load image into vips: %w", err)
	}
	defer ref.Close()

	hScale := float64(width) / float64(b.Dx())
	vScale := float64(height) / float64(b.Dy())
	if err := ref.ResizeWithVScale(hScale, vScale, vips.KernelLanczos3); err != nil {
		return nil, fmt.Errorf("resize image: %w", err)
	}

	params := vips.NewPngExportParams()
	params.Compression = 1
	out, _, err := ref.ExportPng(params)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	decoded, err := png.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %w", err)
	}
	return toNRGBA(decoded), nil
}
