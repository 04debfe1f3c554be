// Package imgproc implements deterministic image normalization for OCR and a
// heuristic layout analyzer. Normalization is a pure function of the input
// pixels and fixed parameters, so the same image always produces the same
// output.
package imgproc

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// Binarization parameters. Window is the side length of the local mean
// neighborhood, offset is subtracted from the mean before comparison.
const (
	binarizeWindow = 11
	binarizeOffset = 2
)

// Normalize prepares an image for OCR: grayscale conversion, light denoising,
// local contrast enhancement, and adaptive mean-threshold binarization.
// The result contains only the values 0 (ink) and 255 (background).
func Normalize(src image.Image) *image.Gray {
	gray := imaging.Grayscale(src)
	denoised := imaging.Blur(gray, 0.8)
	enhanced := imaging.AdjustSigmoid(denoised, 0.5, 6.0)

	return adaptiveThreshold(toGray(enhanced), binarizeWindow, binarizeOffset)
}

// toGray collapses an already-grayscale NRGBA image into image.Gray.
// After imaging.Grayscale the three channels are equal, so reading R is enough.
func toGray(src *image.NRGBA) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			i := src.PixOffset(x, y)
			dst.SetGray(x, y, color.Gray{Y: src.Pix[i]})
		}
	}
	return dst
}

// adaptiveThreshold binarizes src by comparing each pixel against the mean of
// its window x window neighborhood, minus offset. A summed-area table keeps
// the pass linear in the pixel count.
func adaptiveThreshold(src *image.Gray, window, offset int) *image.Gray {
	bounds := src.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	dst := image.NewGray(bounds)
	if w == 0 || h == 0 {
		return dst
	}

	// integral[y+1][x+1] holds the sum of all pixels at or above-left of (x, y).
	integral := make([][]int64, h+1)
	for i := range integral {
		integral[i] = make([]int64, w+1)
	}
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			x0 := maxInt(x-half, 0)
			y0 := maxInt(y-half, 0)
			x1 := minInt(x+half+1, w)
			y1 := minInt(y+half+1, h)

			count := int64((x1 - x0) * (y1 - y0))
			sum := integral[y1][x1] - integral[y0][x1] - integral[y1][x0] + integral[y0][x0]
			mean := sum / count

			v := int64(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			out := uint8(0)
			if v > mean-int64(offset) {
				out = 255
			}
			dst.SetGray(bounds.Min.X+x, bounds.Min.Y+y, color.Gray{Y: out})
		}
	}
	return dst
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
