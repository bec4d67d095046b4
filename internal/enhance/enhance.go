// Package enhance adjusts saturation, contrast and brightness by blending an
// image with a degenerate version of itself. A factor of 0 yields the
// degenerate image, 1 the original, and values above 1 extrapolate away from
// the degenerate image. Alpha is never modified.
package enhance

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"

	"github.com/dunamismax/logoprep/internal/domain"
)

// Apply runs saturation, contrast and brightness, in that order.
func Apply(img image.Image, e domain.Enhancement) *image.NRGBA {
	out := Saturation(img, e.Saturation)
	out = Contrast(out, e.Contrast)
	return Brightness(out, e.Brightness)
}

// Saturation blends each pixel with its own luma.
func Saturation(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := luma(c.R, c.G, c.B)
		return color.NRGBA{
			R: blend(l, c.R, factor),
			G: blend(l, c.G, factor),
			B: blend(l, c.B, factor),
			A: c.A,
		}
	})
}

// Contrast blends each pixel with the mean luma of the whole image,
// transparent pixels included.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	mean := MeanLuma(src)
	return imaging.AdjustFunc(src, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blend(mean, c.R, factor),
			G: blend(mean, c.G, factor),
			B: blend(mean, c.B, factor),
			A: c.A,
		}
	})
}

// Brightness blends each pixel with black.
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: blend(0, c.R, factor),
			G: blend(0, c.G, factor),
			B: blend(0, c.B, factor),
			A: c.A,
		}
	})
}

// MeanLuma returns the rounded average luma over every pixel of img.
func MeanLuma(img *image.NRGBA) uint8 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}

	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):]
		for x := 0; x < b.Dx(); x++ {
			i := x * 4
			sum += uint64(luma(row[i], row[i+1], row[i+2]))
		}
	}

	return uint8(float64(sum)/float64(n) + 0.5)
}

// luma is the ITU-R 601-2 weighting in 16-bit fixed point.
func luma(r, g, b uint8) uint8 {
	return uint8((uint32(r)*19595 + uint32(g)*38470 + uint32(b)*7471 + 0x8000) >> 16)
}

func blend(base, v uint8, factor float64) uint8 {
	out := int(float64(base) + factor*(float64(v)-float64(base)))
	switch {
	case out < 0:
		return 0
	case out > 255:
		return 255
	default:
		return uint8(out)
	}
}
