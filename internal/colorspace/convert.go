// Package colorspace converts between 8-bit RGB and the CMYK and HSV models
// shown by color pickers. All functions are pure.
package colorspace

import "math"

const (
	maxChannel = 255.0
	percent    = 100.0
	sextant    = 60.0
	fullTurn   = 360.0
)

// CMYK holds cyan, magenta, yellow and key components as percentages.
type CMYK struct {
	C float64
	M float64
	Y float64
	K float64
}

// HSV holds hue in degrees [0,360) and saturation and value as percentages.
type HSV struct {
	H float64
	S float64
	V float64
}

// Clamp limits value to [lo, hi].
func Clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// ClampInt limits value to [lo, hi].
func ClampInt(value, lo, hi int) int {
	return max(lo, min(hi, value))
}

// RGBToCMYK converts 8-bit RGB to CMYK percentages. Pure black yields
// K=100 with zero C, M and Y.
func RGBToCMYK(r, g, b int) CMYK {
	rn := float64(r) / maxChannel
	gn := float64(g) / maxChannel
	bn := float64(b) / maxChannel

	k := 1 - max(rn, gn, bn)
	if k >= 1 {
		return CMYK{C: 0, M: 0, Y: 0, K: k * percent}
	}

	return CMYK{
		C: (1 - rn - k) / (1 - k) * percent,
		M: (1 - gn - k) / (1 - k) * percent,
		Y: (1 - bn - k) / (1 - k) * percent,
		K: k * percent,
	}
}

// CMYKToRGB converts CMYK percentages to 8-bit RGB, truncating toward zero.
func CMYKToRGB(c CMYK) (r, g, b int) {
	cn, mn, yn, kn := c.C/percent, c.M/percent, c.Y/percent, c.K/percent

	channel := func(v float64) int {
		return ClampInt(int((1-math.Min(1, v*(1-kn)+kn))*maxChannel), 0, int(maxChannel))
	}

	return channel(cn), channel(mn), channel(yn)
}

// RGBToHSV converts 8-bit RGB to hue degrees and saturation/value
// percentages.
func RGBToHSV(r, g, b int) HSV {
	rn := float64(r) / maxChannel
	gn := float64(g) / maxChannel
	bn := float64(b) / maxChannel

	hi := max(rn, gn, bn)
	lo := min(rn, gn, bn)
	delta := hi - lo

	var hue float64

	switch {
	case delta == 0:
		hue = 0
	case hi == rn:
		hue = sextant * math.Mod((gn-bn)/delta, 6)
	case hi == gn:
		hue = sextant * ((bn-rn)/delta + 2)
	default:
		hue = sextant * ((rn-gn)/delta + 4)
	}

	if hue < 0 {
		hue += fullTurn
	}

	saturation := 0.0
	if hi != 0 {
		saturation = delta / hi
	}

	return HSV{H: hue, S: saturation * percent, V: hi * percent}
}

// HSVToRGB converts hue degrees and saturation/value percentages to 8-bit
// RGB, truncating toward zero. Hues outside [0,360) produce a gray of the
// value's minimum component.
func HSVToRGB(c HSV) (r, g, b int) {
	s := c.S / percent
	v := c.V / percent

	chroma := v * s
	x := chroma * (1 - math.Abs(math.Mod(c.H/sextant, 2)-1))
	m := v - chroma

	var rp, gp, bp float64

	switch {
	case c.H >= 0 && c.H < 60:
		rp, gp, bp = chroma, x, 0
	case c.H >= 60 && c.H < 120:
		rp, gp, bp = x, chroma, 0
	case c.H >= 120 && c.H < 180:
		rp, gp, bp = 0, chroma, x
	case c.H >= 180 && c.H < 240:
		rp, gp, bp = 0, x, chroma
	case c.H >= 240 && c.H < 300:
		rp, gp, bp = x, 0, chroma
	case c.H >= 300 && c.H < fullTurn:
		rp, gp, bp = chroma, 0, x
	}

	channel := func(v float64) int {
		return ClampInt(int((v+m)*maxChannel), 0, int(maxChannel))
	}

	return channel(rp), channel(gp), channel(bp)
}
