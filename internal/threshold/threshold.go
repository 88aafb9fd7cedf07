// Package threshold binarizes images. Global methods pick one cutoff on the
// 0-255 brightness scale; local methods (Niblack, Sauvola) derive a cutoff per
// pixel from the statistics of a surrounding window.
//
// Pixels darker than the cutoff become opaque black, all others opaque white.
package threshold

import (
	"math"

	"github.com/book-expert/raster-pipeline/internal/histogram"
	"github.com/book-expert/raster-pipeline/internal/raster"
)

// convergence is the threshold change below which MeanIterativeThreshold stops.
const convergence = 0.5

// Manual binarizes buf at cutoff: intensity < cutoff is black. For an integer
// cutoff this is the same as comparing the truncated level, which keeps 8-bit
// inputs in the bin they were decoded from.
func Manual(buf *raster.Buffer, cutoff int) *raster.Buffer {
	out := buf.Blank()

	for y := range buf.Height() {
		for x := range buf.Width() {
			out.Set(x, y, binary(buf.At(x, y).Level() < cutoff))
		}
	}

	return out
}

// PercentBlackThreshold returns the smallest level whose cumulative pixel
// count reaches percent of the image. It returns 0, leaving every pixel
// white, when no level does (percent above 100).
func PercentBlackThreshold(buf *raster.Buffer, percent float64) int {
	h := histogram.Build(buf)
	desired := int(float64(h.Total()) * percent / 100)

	running := 0
	for level, n := range h {
		running += n
		if running >= desired {
			return level
		}
	}

	return 0
}

// PercentBlack binarizes buf so roughly percent of its pixels turn black.
func PercentBlack(buf *raster.Buffer, percent float64) *raster.Buffer {
	return Manual(buf, PercentBlackThreshold(buf, percent))
}

// MeanIterativeThreshold starts at the mean intensity and repeatedly moves the
// threshold to the average of the two class means until it changes by less
// than half a level. An empty class has mean 0.
func MeanIterativeThreshold(buf *raster.Buffer) float64 {
	intensities := make([]float64, 0, buf.Len())

	var total float64

	for y := range buf.Height() {
		for x := range buf.Width() {
			v := buf.At(x, y).Intensity()
			intensities = append(intensities, v)
			total += v
		}
	}

	threshold := total / float64(len(intensities))

	for {
		var fgSum, bgSum float64

		var fgCount, bgCount int

		for _, v := range intensities {
			if v > threshold {
				fgSum += v
				fgCount++
			} else {
				bgSum += v
				bgCount++
			}
		}

		next := (mean(fgSum, fgCount) + mean(bgSum, bgCount)) / 2
		if math.Abs(next-threshold) < convergence {
			return next
		}

		threshold = next
	}
}

// MeanIterative binarizes buf at the truncated mean-iterative threshold.
func MeanIterative(buf *raster.Buffer) *raster.Buffer {
	return Manual(buf, int(MeanIterativeThreshold(buf)))
}

// OtsuThreshold returns the cutoff that maximizes the between-class variance
// of the brightness histogram. Levels up to the best split form the dark
// class, so the returned cutoff is one above it. Ties keep the first split;
// an image with a single level yields 0.
func OtsuThreshold(buf *raster.Buffer) int {
	h := histogram.Build(buf)
	total := h.Total()

	var sumAll float64
	for level, n := range h {
		sumAll += float64(level * n)
	}

	var (
		sumDark     float64
		weightDark  int
		maxVariance float64
		best        = -1
	)

	for level, n := range h {
		weightDark += n
		if weightDark == 0 {
			continue
		}

		weightLight := total - weightDark
		if weightLight == 0 {
			break
		}

		sumDark += float64(level * n)
		meanDark := sumDark / float64(weightDark)
		meanLight := (sumAll - sumDark) / float64(weightLight)
		diff := meanDark - meanLight
		variance := float64(weightDark) * float64(weightLight) * diff * diff

		if variance > maxVariance {
			maxVariance = variance
			best = level
		}
	}

	return best + 1
}

// Otsu binarizes buf at OtsuThreshold.
func Otsu(buf *raster.Buffer) *raster.Buffer {
	return Manual(buf, OtsuThreshold(buf))
}

// Niblack binarizes each pixel against mean + k·stddev of the window centred
// on it. The window is clipped at the image edges.
func Niblack(buf *raster.Buffer, window int, k float64) *raster.Buffer {
	return local(buf, window, func(mean, stddev float64) float64 {
		return mean + k*stddev
	})
}

// Sauvola binarizes each pixel against mean·(1 + k·(stddev/r − 1)) of the
// window centred on it. The window is clipped at the image edges.
func Sauvola(buf *raster.Buffer, window int, k, r float64) *raster.Buffer {
	return local(buf, window, func(mean, stddev float64) float64 {
		return mean * (1 + k*(stddev/r-1))
	})
}

// local applies a per-pixel cutoff computed from window statistics.
func local(buf *raster.Buffer, window int, cutoff func(mean, stddev float64) float64) *raster.Buffer {
	out := buf.Blank()
	half := max(window, 1) / 2

	for y := range buf.Height() {
		for x := range buf.Width() {
			var sum, sumSq float64

			count := 0

			for wy := y - half; wy <= y+half; wy++ {
				for wx := x - half; wx <= x+half; wx++ {
					if !buf.InBounds(wx, wy) {
						continue
					}

					v := buf.At(wx, wy).Intensity()
					sum += v
					sumSq += v * v
					count++
				}
			}

			m := sum / float64(count)
			variance := max(sumSq/float64(count)-m*m, 0)
			limit := cutoff(m, math.Sqrt(variance))

			out.Set(x, y, binary(buf.At(x, y).Intensity() < limit))
		}
	}

	return out
}

func binary(black bool) raster.Color {
	if black {
		return raster.Black
	}

	return raster.White
}

func mean(sum float64, count int) float64 {
	if count == 0 {
		return 0
	}

	return sum / float64(count)
}
