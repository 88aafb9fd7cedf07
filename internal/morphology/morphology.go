// Package morphology implements grayscale morphology over boolean structuring
// elements: dilation, erosion, opening, closing and the hit-or-miss transform.
package morphology

import (
	"errors"
	"fmt"

	"github.com/book-expert/raster-pipeline/internal/raster"
)

var (
	// ErrInvalidStructuringElementShape is returned for an empty or ragged
	// structuring element.
	ErrInvalidStructuringElementShape = errors.New(
		"morphology: structuring element must be a non-empty rectangular matrix",
	)
	// ErrInvalidMaskShape is returned when hit-or-miss masks differ in size.
	ErrInvalidMaskShape = errors.New("morphology: hit and miss masks must have the same shape")
)

// Element is a validated structuring element. Its origin is at
// (cols/2, rows/2).
type Element struct {
	mask [][]bool
}

// NewElement validates and copies a boolean mask.
func NewElement(mask [][]bool) (Element, error) {
	if len(mask) == 0 || len(mask[0]) == 0 {
		return Element{mask: nil}, ErrInvalidStructuringElementShape
	}

	cols := len(mask[0])
	rows := make([][]bool, len(mask))

	for i, row := range mask {
		if len(row) != cols {
			return Element{mask: nil}, fmt.Errorf(
				"%w: row %d has %d columns, want %d",
				ErrInvalidStructuringElementShape, i, len(row), cols,
			)
		}

		rows[i] = append([]bool(nil), row...)
	}

	return Element{mask: rows}, nil
}

// Square returns a size x size element with every position set.
func Square(size int) Element {
	size = max(size, 1)
	mask := make([][]bool, size)

	for i := range mask {
		mask[i] = make([]bool, size)
		for j := range mask[i] {
			mask[i][j] = true
		}
	}

	return Element{mask: mask}
}

// Rows returns the element height.
func (e Element) Rows() int { return len(e.mask) }

// Cols returns the element width.
func (e Element) Cols() int {
	if len(e.mask) == 0 {
		return 0
	}

	return len(e.mask[0])
}

// offsets lists the active positions relative to the origin.
func (e Element) offsets() [][2]int {
	ox, oy := e.Cols()/2, e.Rows()/2

	var out [][2]int

	for j, row := range e.mask {
		for i, on := range row {
			if on {
				out = append(out, [2]int{i - ox, j - oy})
			}
		}
	}

	return out
}

// Dilate sets every channel, alpha included, to the maximum over the
// reflected element. Positions outside the buffer are ignored.
func Dilate(buf *raster.Buffer, se Element) *raster.Buffer {
	out := buf.Blank()
	offsets := se.offsets()

	for y := range buf.Height() {
		for x := range buf.Width() {
			var acc raster.Color

			for _, o := range offsets {
				sx, sy := x-o[0], y-o[1]
				if !buf.InBounds(sx, sy) {
					continue
				}

				c := buf.At(sx, sy)
				acc = raster.Color{
					R: max(acc.R, c.R),
					G: max(acc.G, c.G),
					B: max(acc.B, c.B),
					A: max(acc.A, c.A),
				}
			}

			out.Set(x, y, acc)
		}
	}

	return out
}

// Erode sets every channel, alpha included, to the minimum over the element.
// If any active position falls outside the buffer the pixel becomes
// transparent black.
func Erode(buf *raster.Buffer, se Element) *raster.Buffer {
	out := buf.Blank()
	offsets := se.offsets()

	for y := range buf.Height() {
		for x := range buf.Width() {
			acc := raster.Color{R: 1, G: 1, B: 1, A: 1}

			for _, o := range offsets {
				sx, sy := x+o[0], y+o[1]
				if !buf.InBounds(sx, sy) {
					acc = raster.Color{R: 0, G: 0, B: 0, A: 0}

					break
				}

				c := buf.At(sx, sy)
				acc = raster.Color{
					R: min(acc.R, c.R),
					G: min(acc.G, c.G),
					B: min(acc.B, c.B),
					A: min(acc.A, c.A),
				}
			}

			out.Set(x, y, acc)
		}
	}

	return out
}

// Open erodes then dilates.
func Open(buf *raster.Buffer, se Element) *raster.Buffer {
	return Dilate(Erode(buf, se), se)
}

// Close dilates then erodes.
func Close(buf *raster.Buffer, se Element) *raster.Buffer {
	return Erode(Dilate(buf, se), se)
}

// HitOrMiss marks black every pixel whose neighbourhood is opaque black at all
// hit positions and opaque white at all miss positions; other pixels become
// white. A required position outside the buffer never matches.
func HitOrMiss(buf *raster.Buffer, hit, miss [][]bool) (*raster.Buffer, error) {
	hitElem, err := NewElement(hit)
	if err != nil {
		return nil, err
	}

	missElem, err := NewElement(miss)
	if err != nil {
		return nil, err
	}

	if hitElem.Rows() != missElem.Rows() || hitElem.Cols() != missElem.Cols() {
		return nil, fmt.Errorf(
			"%w: hit is %dx%d, miss is %dx%d",
			ErrInvalidMaskShape,
			hitElem.Cols(), hitElem.Rows(), missElem.Cols(), missElem.Rows(),
		)
	}

	out := buf.Blank()
	hitOffsets := hitElem.offsets()
	missOffsets := missElem.offsets()

	for y := range buf.Height() {
		for x := range buf.Width() {
			match := matchesAll(buf, x, y, hitOffsets, raster.Black) &&
				matchesAll(buf, x, y, missOffsets, raster.White)

			if match {
				out.Set(x, y, raster.Black)
			} else {
				out.Set(x, y, raster.White)
			}
		}
	}

	return out, nil
}

func matchesAll(buf *raster.Buffer, x, y int, offsets [][2]int, want raster.Color) bool {
	for _, o := range offsets {
		sx, sy := x+o[0], y+o[1]
		if !buf.InBounds(sx, sy) || buf.At(sx, sy) != want {
			return false
		}
	}

	return true
}
