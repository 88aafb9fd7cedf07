// Package pointop implements per-pixel transformations: arithmetic on the
// color channels, brightness adjustment and grayscale conversion.
//
// Every operation returns a new buffer; the input is never modified. Results
// are clamped to [0,1] by the buffer, so a zero divisor saturates instead of
// failing.
package pointop

import "github.com/book-expert/raster-pipeline/internal/raster"

// levelScale converts 0-255 offsets to the normalized channel range.
const levelScale = 255.0

// Func maps one pixel to its replacement.
type Func func(raster.Color) raster.Color

// Map applies f to every pixel of buf.
func Map(buf *raster.Buffer, f Func) *raster.Buffer {
	out := buf.Blank()

	for y := range buf.Height() {
		for x := range buf.Width() {
			out.Set(x, y, f(buf.At(x, y)))
		}
	}

	return out
}

// RGB holds one value per color channel.
type RGB struct {
	R float64
	G float64
	B float64
}

// Uniform returns an RGB with all three channels set to v.
func Uniform(v float64) RGB {
	return RGB{R: v, G: v, B: v}
}

// Add adds per-channel offsets given on the 0-255 scale.
func Add(buf *raster.Buffer, offset RGB) *raster.Buffer {
	return Map(buf, func(c raster.Color) raster.Color {
		return raster.Color{
			R: c.R + offset.R/levelScale,
			G: c.G + offset.G/levelScale,
			B: c.B + offset.B/levelScale,
			A: c.A,
		}
	})
}

// Subtract subtracts per-channel offsets given on the 0-255 scale.
func Subtract(buf *raster.Buffer, offset RGB) *raster.Buffer {
	return Add(buf, RGB{R: -offset.R, G: -offset.G, B: -offset.B})
}

// Multiply scales each channel by its factor.
func Multiply(buf *raster.Buffer, factor RGB) *raster.Buffer {
	return Map(buf, func(c raster.Color) raster.Color {
		return raster.Color{R: c.R * factor.R, G: c.G * factor.G, B: c.B * factor.B, A: c.A}
	})
}

// Divide divides each channel by its divisor. A zero divisor yields +Inf
// (clamped to 1) for non-zero channels and NaN (clamped to 0) for zero ones.
func Divide(buf *raster.Buffer, divisor RGB) *raster.Buffer {
	return Map(buf, func(c raster.Color) raster.Color {
		return raster.Color{R: c.R / divisor.R, G: c.G / divisor.G, B: c.B / divisor.B, A: c.A}
	})
}

// AdjustBrightness adds delta, on the normalized scale, to every color channel.
func AdjustBrightness(buf *raster.Buffer, delta float64) *raster.Buffer {
	return Map(buf, func(c raster.Color) raster.Color {
		return raster.Color{R: c.R + delta, G: c.G + delta, B: c.B + delta, A: c.A}
	})
}

// GrayscaleAverage replaces each pixel with the mean of its color channels.
func GrayscaleAverage(buf *raster.Buffer) *raster.Buffer {
	return Map(buf, func(c raster.Color) raster.Color {
		v := (c.R + c.G + c.B) / 3

		return raster.Color{R: v, G: v, B: v, A: c.A}
	})
}

// GrayscaleMax replaces each pixel with its brightest channel.
func GrayscaleMax(buf *raster.Buffer) *raster.Buffer {
	return Map(buf, func(c raster.Color) raster.Color {
		v := c.Brightness()

		return raster.Color{R: v, G: v, B: v, A: c.A}
	})
}
