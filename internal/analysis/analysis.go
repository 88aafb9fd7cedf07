// Package analysis measures images without changing them: color coverage,
// the largest connected region of a color, and the non-white ratio used for
// blank page detection.
package analysis

import (
	"errors"
	"image"
	"math"

	"github.com/book-expert/raster-pipeline/internal/raster"
)

// ErrInvalidFuzz is returned for a fuzz factor outside [0,1].
var ErrInvalidFuzz = errors.New("analysis: fuzz must be between 0 and 1")

// Region is a 4-connected group of pixels. Bounds is in pixel coordinates
// with an exclusive maximum.
type Region struct {
	Bounds image.Rectangle
	Pixels int
}

// Empty reports whether the region holds no pixels.
func (r Region) Empty() bool { return r.Pixels == 0 }

// Matches reports whether c is within tolerance of target on each of the R, G
// and B channels. Both colors and the tolerance use the normalized scale.
func Matches(c, target raster.Color, tolerance float64) bool {
	return math.Abs(c.R-target.R) <= tolerance &&
		math.Abs(c.G-target.G) <= tolerance &&
		math.Abs(c.B-target.B) <= tolerance
}

// ColorPercentage returns the share of pixels, from 0 to 100, that match
// target within tolerance.
func ColorPercentage(buf *raster.Buffer, target raster.Color, tolerance float64) float64 {
	matched := 0

	for y := range buf.Height() {
		for x := range buf.Width() {
			if Matches(buf.At(x, y), target, tolerance) {
				matched++
			}
		}
	}

	return float64(matched) * 100 / float64(buf.Len())
}

// LargestColorArea finds the largest 4-connected region of pixels matching
// target within tolerance. Ties keep the region found first in row-major
// order. The zero Region is returned when nothing matches.
func LargestColorArea(buf *raster.Buffer, target raster.Color, tolerance float64) Region {
	width, height := buf.Width(), buf.Height()
	visited := make([]bool, width*height)

	var (
		best  Region
		stack []image.Point
	)

	for y := range height {
		for x := range width {
			if visited[y*width+x] || !Matches(buf.At(x, y), target, tolerance) {
				continue
			}

			region := Region{Bounds: image.Rect(x, y, x+1, y+1), Pixels: 0}
			visited[y*width+x] = true
			stack = append(stack[:0], image.Pt(x, y))

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]

				region.Pixels++
				region.Bounds = region.Bounds.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for _, n := range [...]image.Point{{X: 1}, {X: -1}, {Y: 1}, {Y: -1}} {
					q := p.Add(n)
					if !buf.InBounds(q.X, q.Y) || visited[q.Y*width+q.X] {
						continue
					}

					if Matches(buf.At(q.X, q.Y), target, tolerance) {
						visited[q.Y*width+q.X] = true
						stack = append(stack, q)
					}
				}
			}

			if region.Pixels > best.Pixels {
				best = region
			}
		}
	}

	return best
}

// NonWhiteRatio returns the fraction of pixels with at least one color channel
// below the white threshold (1 - fuzz) on the 8-bit scale.
func NonWhiteRatio(buf *raster.Buffer, fuzz float64) (float64, error) {
	if fuzz < 0 || fuzz > 1 || math.IsNaN(fuzz) {
		return 0, ErrInvalidFuzz
	}

	whiteLevel := int((1 - fuzz) * raster.MaxLevel)
	nonWhite := 0

	for y := range buf.Height() {
		for x := range buf.Width() {
			c := buf.At(x, y)
			if channelLevel(c.R) < whiteLevel || channelLevel(c.G) < whiteLevel ||
				channelLevel(c.B) < whiteLevel {
				nonWhite++
			}
		}
	}

	return float64(nonWhite) / float64(buf.Len()), nil
}

func channelLevel(v float64) int {
	return raster.Gray(v).Level()
}
