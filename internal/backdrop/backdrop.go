// Package backdrop draws the circular backdrop and pastes the subject on top
// of it.
package backdrop

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
)

// ellipse is an alpha mask that is opaque inside the ellipse inscribed in r.
type ellipse struct {
	r image.Rectangle
}

func (e ellipse) ColorModel() color.Model {
	return color.AlphaModel
}

func (e ellipse) Bounds() image.Rectangle {
	return e.r
}

func (e ellipse) At(x, y int) color.Color {
	rx := float64(e.r.Dx()) / 2
	ry := float64(e.r.Dy()) / 2
	if rx <= 0 || ry <= 0 {
		return color.Alpha{}
	}

	dx := (float64(x) + 0.5 - (float64(e.r.Min.X) + rx)) / rx
	dy := (float64(y) + 0.5 - (float64(e.r.Min.Y) + ry)) / ry
	if dx*dx+dy*dy <= 1 {
		return color.Alpha{A: 255}
	}
	return color.Alpha{}
}

// Canvas allocates a fully transparent canvas of the given size and fills an
// ellipse over it with fill. The ellipse box is inclusive of the far corner,
// (0,0)-(w,h), so it spans one pixel more than the canvas and is clipped at
// the right and bottom edges. Square sizes give a circle.
func Canvas(size image.Point, fill color.Color) *image.NRGBA {
	canvas := image.NewNRGBA(image.Rect(0, 0, size.X, size.Y))
	bounds := canvas.Bounds()
	mask := ellipse{r: image.Rect(0, 0, size.X+1, size.Y+1)}
	draw.DrawMask(canvas, bounds, image.NewUniform(fill), image.Point{}, mask, bounds.Min, draw.Over)
	return canvas
}

// Offset returns the top-left position that centers subject on canvas.
func Offset(canvas, subject image.Rectangle) image.Point {
	return image.Pt(
		canvas.Min.X+(canvas.Dx()-subject.Dx())/2,
		canvas.Min.Y+(canvas.Dy()-subject.Dy())/2,
	)
}

// Composite pastes subject onto a copy of canvas, centered, with the subject's
// own alpha as the paste mask. Every channel of the canvas, alpha included,
// moves toward the subject's by alpha/255, so a half transparent subject
// pixel leaves a half transparent result even over the opaque backdrop.
func Composite(canvas *image.NRGBA, subject image.Image) (*image.NRGBA, image.Point) {
	offset := Offset(canvas.Bounds(), subject.Bounds())

	dst := imaging.Clone(canvas)
	src := imaging.Clone(subject)
	area := image.Rectangle{Min: offset, Max: offset.Add(src.Bounds().Size())}.Intersect(dst.Bounds())

	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			si := src.PixOffset(x-offset.X, y-offset.Y)
			a := uint32(src.Pix[si+3])
			if a == 0 {
				continue
			}
			di := dst.PixOffset(x, y)
			for c := 0; c < 4; c++ {
				dst.Pix[di+c] = div255(uint32(dst.Pix[di+c])*(255-a) + uint32(src.Pix[si+c])*a)
			}
		}
	}
	return dst, offset
}

// div255 divides by 255 with rounding, for v <= 255*255.
func div255(v uint32) uint8 {
	t := v + 128
	return uint8(((t >> 8) + t) >> 8)
}
