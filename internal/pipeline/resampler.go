package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"

	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Resampler shrinks an image to fit inside maxWidth×maxHeight, keeping its
// aspect ratio. Images that already fit keep their size.
type Resampler interface {
	Thumbnail(ctx context.Context, img *image.NRGBA, maxWidth, maxHeight int) (*image.NRGBA, error)
}

type lanczosResampler struct{}

func (lanczosResampler) Thumbnail(ctx context.Context, img *image.NRGBA, maxWidth, maxHeight int) (*image.NRGBA, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("thumbnail bounds must be positive, got %dx%d", maxWidth, maxHeight)
	}
	if img.Bounds().Empty() {
		return nil, fmt.Errorf("source image has invalid dimensions")
	}

	b := img.Bounds()
	width, height := fitWithin(b.Dx(), b.Dy(), maxWidth, maxHeight)
	if width == b.Dx() && height == b.Dy() {
		return img, nil
	}
	return toNRGBA(resize.Resize(uint(width), uint(height), img, resize.Lanczos3)), nil
}

// fitWithin returns the thumbnail size of a w×h image bounded by maxW×maxH.
// Images that fit are left alone. Otherwise the bounded side is pinned to the
// box and the other side is floor or ceil of the exact value, whichever keeps
// the aspect ratio closer (floor on a tie).
func fitWithin(w, h, maxW, maxH int) (int, int) {
	if w <= maxW && h <= maxH {
		return w, h
	}

	aspect := float64(w) / float64(h)
	if float64(maxW)/float64(maxH) >= aspect {
		width := roundAspect(float64(maxH)*aspect, func(n float64) float64 {
			return math.Abs(aspect - n/float64(maxH))
		})
		return width, maxH
	}
	height := roundAspect(float64(maxW)/aspect, func(n float64) float64 {
		if n == 0 {
			return 0
		}
		return math.Abs(aspect - float64(maxW)/n)
	})
	return maxW, height
}

func roundAspect(v float64, distance func(float64) float64) int {
	n := math.Floor(v)
	if c := math.Ceil(v); distance(c) < distance(n) {
		n = c
	}
	return max(int(n), 1)
}

func decodeNRGBA(data []byte) (*image.NRGBA, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, "", fmt.Errorf("decoded %s image has no pixels", format)
	}
	return toNRGBA(img), format, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	encoder := png.Encoder{CompressionLevel: png.DefaultCompression}
	if err := encoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func toNRGBA(img image.Image) *image.NRGBA {
	if nrgba, ok := img.(*image.NRGBA); ok && nrgba.Bounds().Min == (image.Point{}) {
		return nrgba
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
