package rembg

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/nfnt/resize"
	"golang.org/x/image/draw"
)

const defaultInputSize = 320

var (
	u2netMean = [3]float32{0.485, 0.456, 0.406}
	u2netStd  = [3]float32{0.229, 0.224, 0.225}
)

// normalizeInput resizes img to size×size and lays it out as a CHW float32
// tensor, scaled by the brightest channel value and normalized with the
// ImageNet mean/std.
func normalizeInput(img image.Image, size int) []float32 {
	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	b := resized.Bounds()

	plane := size * size
	rgb := make([]float32, 3*plane)
	var peak float32
	i := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl, _ := resized.At(x, y).RGBA()
			rgb[i] = float32(r >> 8)
			rgb[plane+i] = float32(g >> 8)
			rgb[2*plane+i] = float32(bl >> 8)
			peak = max(peak, rgb[i], rgb[plane+i], rgb[2*plane+i])
			i++
		}
	}
	peak = max(peak, 1e-6)

	for c := 0; c < 3; c++ {
		channel := rgb[c*plane : (c+1)*plane]
		for j := range channel {
			channel[j] = (channel[j]/peak - u2netMean[c]) / u2netStd[c]
		}
	}
	return rgb
}

// maskFromPrediction min-max scales a size×size saliency map to 0..255 and
// resizes it to the source dimensions. A flat prediction yields an empty mask.
func maskFromPrediction(pred []float32, size, width, height int) (*image.Gray, error) {
	if len(pred) < size*size {
		return nil, fmt.Errorf("prediction holds %d values, need %d", len(pred), size*size)
	}
	pred = pred[:size*size]

	lo, hi := pred[0], pred[0]
	for _, v := range pred {
		lo = min(lo, v)
		hi = max(hi, v)
	}

	mask := image.NewGray(image.Rect(0, 0, size, size))
	if hi > lo {
		span := hi - lo
		for i, v := range pred {
			mask.Pix[i] = uint8((v - lo) / span * 255)
		}
	}

	if width == size && height == size {
		return mask, nil
	}
	resized := resize.Resize(uint(width), uint(height), mask, resize.Lanczos3)
	if gray, ok := resized.(*image.Gray); ok {
		return gray, nil
	}
	out := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(out, out.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return out, nil
}

// naiveCutout scales every channel of img, alpha included, by the mask.
func naiveCutout(img image.Image, mask *image.Gray) *image.NRGBA {
	b := img.Bounds()
	src := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(src, src.Bounds(), img, b.Min, draw.Src)

	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			m := uint32(mask.GrayAt(x, y).Y)
			i := src.PixOffset(x, y)
			for c := 0; c < 3; c++ {
				src.Pix[i+c] = uint8((uint32(src.Pix[i+c])*m + 127) / 255)
			}
			src.Pix[i+3] = uint8((uint32(src.Pix[i+3])*m + 127) / 255)
		}
	}
	return src
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
