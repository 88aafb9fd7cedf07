// Package raster holds the in-memory pixel buffer shared by the PNM codec and
// every image operation.
//
// A Buffer stores normalized RGBA samples in row-major order with the origin
// at the top-left corner. Operations in the sibling packages never modify the
// buffer they are given; they allocate a new one for their result, so a caller
// may keep displaying or reading the input while a transformation runs.
package raster

import (
	"errors"
	"fmt"
)

// ErrInvalidDimensions is returned when a buffer is requested with a
// non-positive width or height.
var ErrInvalidDimensions = errors.New("raster: width and height must be positive")

// ErrSampleCount is returned when the number of supplied pixels does not match
// width*height.
var ErrSampleCount = errors.New("raster: sample count does not match dimensions")

// Buffer is a width x height grid of normalized RGBA samples.
type Buffer struct {
	pix    []Color
	width  int
	height int
}

// New allocates a buffer whose pixels are all transparent black.
func New(width, height int) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidDimensions, width, height)
	}

	return &Buffer{
		pix:    make([]Color, width*height),
		width:  width,
		height: height,
	}, nil
}

// FromColors builds a buffer from row-major pixels. The slice is copied and
// every channel is clamped to [0,1].
func FromColors(width, height int, pix []Color) (*Buffer, error) {
	buf, err := New(width, height)
	if err != nil {
		return nil, err
	}

	if len(pix) != width*height {
		return nil, fmt.Errorf(
			"%w: %d pixels for %dx%d",
			ErrSampleCount,
			len(pix),
			width,
			height,
		)
	}

	for i, c := range pix {
		buf.pix[i] = c.Clamped()
	}

	return buf, nil
}

// Blank returns a new transparent black buffer with the same dimensions.
func (b *Buffer) Blank() *Buffer {
	return &Buffer{
		pix:    make([]Color, len(b.pix)),
		width:  b.width,
		height: b.height,
	}
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	out := b.Blank()
	copy(out.pix, b.pix)

	return out
}

// Width returns the number of columns.
func (b *Buffer) Width() int { return b.width }

// Height returns the number of rows.
func (b *Buffer) Height() int { return b.height }

// Len returns the number of pixels.
func (b *Buffer) Len() int { return len(b.pix) }

// InBounds reports whether (x, y) addresses a pixel of the buffer.
func (b *Buffer) InBounds(x, y int) bool {
	return x >= 0 && x < b.width && y >= 0 && y < b.height
}

// At returns the pixel at (x, y). It panics when the position is out of
// bounds, like slice indexing.
func (b *Buffer) At(x, y int) Color {
	return b.pix[y*b.width+x]
}

// Set stores c at (x, y) with every channel clamped to [0,1].
func (b *Buffer) Set(x, y int, c Color) {
	b.pix[y*b.width+x] = c.Clamped()
}

// Pixels returns a copy of the row-major pixel slice.
func (b *Buffer) Pixels() []Color {
	out := make([]Color, len(b.pix))
	copy(out, b.pix)

	return out
}

// Equal reports whether both buffers have the same dimensions and identical
// samples.
func (b *Buffer) Equal(other *Buffer) bool {
	if other == nil || b.width != other.width || b.height != other.height {
		return false
	}

	for i := range b.pix {
		if b.pix[i] != other.pix[i] {
			return false
		}
	}

	return true
}
