package convolve

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidKernel is returned for an empty or ragged kernel matrix.
var ErrInvalidKernel = errors.New("convolve: kernel must be a non-empty rectangular matrix")

// Kernel is a rectangular weight matrix. Its origin is at (cols/2, rows/2).
type Kernel struct {
	weights [][]float64
}

// NewKernel validates and copies a weight matrix.
func NewKernel(weights [][]float64) (Kernel, error) {
	if len(weights) == 0 || len(weights[0]) == 0 {
		return Kernel{weights: nil}, ErrInvalidKernel
	}

	cols := len(weights[0])
	rows := make([][]float64, len(weights))

	for i, row := range weights {
		if len(row) != cols {
			return Kernel{weights: nil}, fmt.Errorf(
				"%w: row %d has %d columns, want %d",
				ErrInvalidKernel, i, len(row), cols,
			)
		}

		rows[i] = append([]float64(nil), row...)
	}

	return Kernel{weights: rows}, nil
}

// mustKernel is for the built-in kernels, which are valid by construction.
func mustKernel(weights [][]float64) Kernel {
	k, err := NewKernel(weights)
	if err != nil {
		panic(err)
	}

	return k
}

// Rows returns the kernel height.
func (k Kernel) Rows() int { return len(k.weights) }

// Cols returns the kernel width.
func (k Kernel) Cols() int {
	if len(k.weights) == 0 {
		return 0
	}

	return len(k.weights[0])
}

// Weight returns the weight at row ky, column kx.
func (k Kernel) Weight(kx, ky int) float64 { return k.weights[ky][kx] }

// Sum returns the sum of all weights.
func (k Kernel) Sum() float64 {
	var sum float64

	for _, row := range k.weights {
		for _, w := range row {
			sum += w
		}
	}

	return sum
}

// SmoothingKernel is the 3x3 box filter.
func SmoothingKernel() Kernel {
	const ninth = 1.0 / 9

	return mustKernel([][]float64{
		{ninth, ninth, ninth},
		{ninth, ninth, ninth},
		{ninth, ninth, ninth},
	})
}

// HighPassKernel is the 3x3 sharpening kernel.
func HighPassKernel() Kernel {
	return mustKernel([][]float64{
		{0, -1, 0},
		{-1, 5, -1},
		{0, -1, 0},
	})
}

// GaussianKernel builds a size x size kernel of exp(-(x²+y²)/(2σ²)) sampled
// around the center and normalized to sum to 1. Sizes below 1 are treated as
// 1; a non-positive sigma gives the identity kernel.
func GaussianKernel(size int, sigma float64) Kernel {
	size = max(size, 1)
	half := size / 2
	weights := make([][]float64, size)

	if sigma <= 0 || math.IsNaN(sigma) {
		for ky := range size {
			weights[ky] = make([]float64, size)
		}

		weights[half][half] = 1

		return mustKernel(weights)
	}

	var sum float64

	for ky := range size {
		weights[ky] = make([]float64, size)

		for kx := range size {
			dx, dy := float64(kx-half), float64(ky-half)
			w := math.Exp(-(dx*dx + dy*dy) / (2 * sigma * sigma))
			weights[ky][kx] = w
			sum += w
		}
	}

	for _, row := range weights {
		for i := range row {
			row[i] /= sum
		}
	}

	return mustKernel(weights)
}
