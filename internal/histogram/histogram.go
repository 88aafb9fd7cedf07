// Package histogram builds 256-bin brightness histograms and implements the
// contrast operations that use them: stretching and equalization.
package histogram

import "github.com/book-expert/raster-pipeline/internal/raster"

// Bins is the number of histogram bins.
const Bins = raster.MaxLevel + 1

// Histogram counts pixels per 8-bit brightness level.
type Histogram [Bins]int

// Build counts the brightness levels of buf.
func Build(buf *raster.Buffer) Histogram {
	var h Histogram

	for y := range buf.Height() {
		for x := range buf.Width() {
			h[buf.At(x, y).Level()]++
		}
	}

	return h
}

// Total returns the number of counted pixels.
func (h *Histogram) Total() int {
	total := 0
	for _, n := range h {
		total += n
	}

	return total
}

// CDF returns the cumulative distribution normalized to [0,1]. The last bin is
// exactly 1 for a non-empty histogram.
func (h *Histogram) CDF() [Bins]float64 {
	var cdf [Bins]float64

	total := h.Total()
	if total == 0 {
		return cdf
	}

	running := 0
	for i, n := range h {
		running += n
		cdf[i] = float64(running) / float64(total)
	}

	cdf[Bins-1] = 1

	return cdf
}

// Stretch maps brightness linearly so the darkest pixel becomes black and the
// brightest white. Output pixels are opaque gray. A constant image is returned
// as an unchanged copy.
func Stretch(buf *raster.Buffer) *raster.Buffer {
	lo, hi := 1.0, 0.0

	for y := range buf.Height() {
		for x := range buf.Width() {
			v := buf.At(x, y).Brightness()
			lo = min(lo, v)
			hi = max(hi, v)
		}
	}

	span := hi - lo
	if span <= 0 {
		return buf.Clone()
	}

	out := buf.Blank()

	for y := range buf.Height() {
		for x := range buf.Width() {
			out.Set(x, y, raster.Gray((buf.At(x, y).Brightness()-lo)/span))
		}
	}

	return out
}

// Equalize remaps brightness through the cumulative histogram so the levels
// spread over the full range. The distribution is shifted by the count of the
// darkest occupied level, mapping it to black while the brightest maps to
// white. Output pixels are opaque gray.
func Equalize(buf *raster.Buffer) *raster.Buffer {
	h := Build(buf)
	lut := equalizationTable(&h)
	out := buf.Blank()

	for y := range buf.Height() {
		for x := range buf.Width() {
			out.Set(x, y, raster.Gray(lut[buf.At(x, y).Level()]))
		}
	}

	return out
}

func equalizationTable(h *Histogram) [Bins]float64 {
	total := h.Total()

	darkest := 0
	for _, n := range h {
		if n > 0 {
			darkest = n

			break
		}
	}

	// A single occupied level has nothing to spread; fall back to the plain CDF.
	if darkest == total {
		return h.CDF()
	}

	var lut [Bins]float64

	running := 0
	for i, n := range h {
		running += n
		if running > 0 {
			lut[i] = float64(running-darkest) / float64(total-darkest)
		}
	}

	lut[Bins-1] = 1

	return lut
}
