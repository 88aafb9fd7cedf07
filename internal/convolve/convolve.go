// Package convolve implements kernel convolution and the neighbourhood
// filters built on it: smoothing, sharpening, Gaussian blur, Sobel edge
// detection and the median filter.
package convolve

import (
	"math"
	"slices"

	"github.com/book-expert/raster-pipeline/internal/raster"
)

// Convolve applies k to each color channel of buf. Positions outside the
// buffer are skipped and the result is divided by the sum of the weights that
// were used, unless that sum is zero. Alpha is copied from the source.
func Convolve(buf *raster.Buffer, k Kernel) *raster.Buffer {
	out := buf.Blank()
	rows, cols := k.Rows(), k.Cols()
	halfRows, halfCols := rows/2, cols/2

	for y := range buf.Height() {
		for x := range buf.Width() {
			var r, g, b, used float64

			for ky := range rows {
				for kx := range cols {
					px, py := x+kx-halfCols, y+ky-halfRows
					if !buf.InBounds(px, py) {
						continue
					}

					w := k.Weight(kx, ky)
					c := buf.At(px, py)
					r += c.R * w
					g += c.G * w
					b += c.B * w
					used += w
				}
			}

			if used != 0 {
				r /= used
				g /= used
				b /= used
			}

			out.Set(x, y, raster.Color{R: r, G: g, B: b, A: buf.At(x, y).A})
		}
	}

	return out
}

// Smooth applies the 3x3 box filter.
func Smooth(buf *raster.Buffer) *raster.Buffer {
	return Convolve(buf, SmoothingKernel())
}

// HighPass applies the 3x3 sharpening kernel.
func HighPass(buf *raster.Buffer) *raster.Buffer {
	return Convolve(buf, HighPassKernel())
}

// GaussianBlur convolves with a normalized Gaussian kernel.
func GaussianBlur(buf *raster.Buffer, size int, sigma float64) *raster.Buffer {
	return Convolve(buf, GaussianKernel(size, sigma))
}

// Custom validates weights and convolves with them.
func Custom(buf *raster.Buffer, weights [][]float64) (*raster.Buffer, error) {
	k, err := NewKernel(weights)
	if err != nil {
		return nil, err
	}

	return Convolve(buf, k), nil
}

var (
	sobelX = [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY = [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}
)

// Sobel computes the gradient magnitude of the brightness channel and writes
// it as opaque gray. The one-pixel border stays transparent black.
func Sobel(buf *raster.Buffer) *raster.Buffer {
	out := buf.Blank()

	for y := 1; y < buf.Height()-1; y++ {
		for x := 1; x < buf.Width()-1; x++ {
			var gx, gy float64

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					v := buf.At(x+dx, y+dy).Brightness()
					gx += sobelX[dy+1][dx+1] * v
					gy += sobelY[dy+1][dx+1] * v
				}
			}

			out.Set(x, y, raster.Gray(math.Hypot(gx, gy)))
		}
	}

	return out
}

// Median replaces every interior pixel with the per-channel median of its 3x3
// neighbourhood, written opaque. The one-pixel border stays transparent black.
func Median(buf *raster.Buffer) *raster.Buffer {
	out := buf.Blank()

	var reds, greens, blues [9]float64

	for y := 1; y < buf.Height()-1; y++ {
		for x := 1; x < buf.Width()-1; x++ {
			i := 0

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					c := buf.At(x+dx, y+dy)
					reds[i], greens[i], blues[i] = c.R, c.G, c.B
					i++
				}
			}

			slices.Sort(reds[:])
			slices.Sort(greens[:])
			slices.Sort(blues[:])

			out.Set(x, y, raster.Color{R: reds[4], G: greens[4], B: blues[4], A: 1})
		}
	}

	return out
}
