package imaging

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/plantify/internal/model"
)

// Preprocess resizes img to the model's input size and returns a batch of one
// image with channels scaled to [0,1], in the model's tensor layout.
func Preprocess(img image.Image, md model.Metadata) []float32 {
	w, h := md.ImageSize()
	return toTensor(Resize(img, w, h), md.Layout)
}

// Resize scales img to exactly width x height with bilinear resampling.
// Images that already have that size are returned unchanged.
func Resize(img image.Image, width, height int) image.Image {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return img
	}
	return resize.Resize(uint(width), uint(height), img, resize.Bilinear)
}

func toTensor(img image.Image, layout model.Layout) []float32 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	plane := width * height
	data := make([]float32, 3*plane)

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b := rgb8(img.At(bounds.Min.X+x, bounds.Min.Y+y))
			rNorm := float32(r) / 255.0
			gNorm := float32(g) / 255.0
			bNorm := float32(b) / 255.0

			pixelIndex := y*width + x
			if layout == model.LayoutNCHW {
				data[pixelIndex] = rNorm
				data[plane+pixelIndex] = gNorm
				data[2*plane+pixelIndex] = bNorm
				continue
			}
			data[3*pixelIndex] = rNorm
			data[3*pixelIndex+1] = gNorm
			data[3*pixelIndex+2] = bNorm
		}
	}
	return data
}

// rgb8 forces any color to 8-bit RGB. Gray is replicated across channels and
// transparency is flattened onto white.
func rgb8(c color.Color) (uint8, uint8, uint8) {
	r, g, b, a := c.RGBA()
	bg := 0xffff - a
	return uint8((r + bg) >> 8), uint8((g + bg) >> 8), uint8((b + bg) >> 8)
}
