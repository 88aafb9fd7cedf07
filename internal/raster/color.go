package raster

import "math"

// MaxLevel is the largest 8-bit intensity level used by histogram based
// operations.
const MaxLevel = 255

// levelEpsilon absorbs the rounding error of k/255*255 so that a sample
// decoded from an 8-bit level lands back in the same histogram bin.
const levelEpsilon = 1e-9

// Color is a normalized RGBA sample. Channels stored in a Buffer are always in
// [0,1].
type Color struct {
	R float64
	G float64
	B float64
	A float64
}

var (
	// Black is opaque pure black.
	Black = Color{R: 0, G: 0, B: 0, A: 1}
	// White is opaque pure white.
	White = Color{R: 1, G: 1, B: 1, A: 1}
)

// Gray returns an opaque gray with all three channels set to v.
func Gray(v float64) Color {
	return Color{R: v, G: v, B: v, A: 1}
}

// Brightness is the largest of the three color channels (the HSB value).
func (c Color) Brightness() float64 {
	return max(c.R, c.G, c.B)
}

// Intensity is the brightness on the 0-255 scale.
func (c Color) Intensity() float64 {
	return c.Brightness() * MaxLevel
}

// Level is the brightness truncated to an 8-bit histogram bin.
func (c Color) Level() int {
	level := int(c.Intensity() + levelEpsilon)

	return min(max(level, 0), MaxLevel)
}

// Clamped returns c with every channel clamped to [0,1].
func (c Color) Clamped() Color {
	return Color{R: Clamp(c.R), G: Clamp(c.G), B: Clamp(c.B), A: Clamp(c.A)}
}

// Clamp limits v to [0,1]. +Inf maps to 1; -Inf and NaN map to 0.
func Clamp(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
