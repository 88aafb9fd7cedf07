package convolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/raster-pipeline/internal/convolve"
	"github.com/book-expert/raster-pipeline/internal/raster"
)

func filled(t *testing.T, width, height int, c raster.Color) *raster.Buffer {
	t.Helper()

	pix := make([]raster.Color, width*height)
	for i := range pix {
		pix[i] = c
	}

	buf, err := raster.FromColors(width, height, pix)
	require.NoError(t, err)

	return buf
}

func TestSmooth_ConstantImageUnchanged(t *testing.T) {
	t.Parallel()

	c := raster.Color{R: 0.3, G: 0.6, B: 0.9, A: 0.5}
	buf := filled(t, 5, 4, c)

	out := convolve.Smooth(buf)
	for y := range out.Height() {
		for x := range out.Width() {
			got := out.At(x, y)
			assert.InDelta(t, c.R, got.R, 1e-9)
			assert.InDelta(t, c.G, got.G, 1e-9)
			assert.InDelta(t, c.B, got.B, 1e-9)
			assert.InDelta(t, c.A, got.A, 1e-12)
		}
	}
}

func TestConvolve_NormalizesByUsedWeights(t *testing.T) {
	t.Parallel()

	// Corner pixel of a 2x2 image sees four of the nine box weights.
	buf, err := raster.FromColors(2, 2, []raster.Color{
		raster.Gray(0), raster.Gray(0.4),
		raster.Gray(0.8), raster.Gray(0.4),
	})
	require.NoError(t, err)

	out := convolve.Smooth(buf)
	assert.InDelta(t, 0.4, out.At(0, 0).R, 1e-9)
}

func TestConvolve_ZeroSumKernelIsNotNormalized(t *testing.T) {
	t.Parallel()

	buf := filled(t, 3, 3, raster.Gray(0.5))

	out, err := convolve.Custom(buf, [][]float64{{1, -1}})
	require.NoError(t, err)

	// Origin is column 1, so the pixel itself gets -1 and its left neighbour 1.
	assert.InDelta(t, 0.0, out.At(1, 1).R, 1e-12)
	// At x=0 only the -1 weight is used, so the sum -0.5 is divided by -1.
	assert.InDelta(t, 0.5, out.At(0, 1).R, 1e-12)
}

func TestHighPass_ConstantImageUnchanged(t *testing.T) {
	t.Parallel()

	buf := filled(t, 4, 4, raster.Gray(0.25))

	out := convolve.HighPass(buf)
	assert.InDelta(t, 0.25, out.At(0, 0).R, 1e-9)
	assert.InDelta(t, 0.25, out.At(2, 2).R, 1e-9)
}

func TestGaussianKernel(t *testing.T) {
	t.Parallel()

	k := convolve.GaussianKernel(5, 1.2)
	require.Equal(t, 5, k.Rows())
	require.Equal(t, 5, k.Cols())
	assert.InDelta(t, 1.0, k.Sum(), 1e-12)
	assert.Greater(t, k.Weight(2, 2), k.Weight(1, 2))
	assert.InDelta(t, k.Weight(0, 0), k.Weight(4, 4), 1e-15)

	identity := convolve.GaussianKernel(3, 0)
	assert.InDelta(t, 1.0, identity.Weight(1, 1), 0)
	assert.InDelta(t, 1.0, identity.Sum(), 0)
}

func TestNewKernel_Validation(t *testing.T) {
	t.Parallel()

	_, err := convolve.NewKernel(nil)
	require.ErrorIs(t, err, convolve.ErrInvalidKernel)

	_, err = convolve.NewKernel([][]float64{{}})
	require.ErrorIs(t, err, convolve.ErrInvalidKernel)

	_, err = convolve.NewKernel([][]float64{{1, 2}, {3}})
	require.ErrorIs(t, err, convolve.ErrInvalidKernel)

	weights := [][]float64{{1, 2}}
	k, err := convolve.NewKernel(weights)
	require.NoError(t, err)

	weights[0][0] = 9
	assert.InDelta(t, 1.0, k.Weight(0, 0), 0)
}

func TestSobel(t *testing.T) {
	t.Parallel()

	// Left half black, right half white: a vertical edge.
	buf, err := raster.New(4, 3)
	require.NoError(t, err)

	for y := range 3 {
		for x := range 4 {
			if x >= 2 {
				buf.Set(x, y, raster.White)
			} else {
				buf.Set(x, y, raster.Black)
			}
		}
	}

	out := convolve.Sobel(buf)
	assert.Equal(t, raster.White, out.At(1, 1))
	assert.Equal(t, raster.White, out.At(2, 1))
	assert.Equal(t, raster.Color{R: 0, G: 0, B: 0, A: 0}, out.At(0, 0))
	assert.Equal(t, raster.Color{R: 0, G: 0, B: 0, A: 0}, out.At(3, 1))

	flat := convolve.Sobel(filled(t, 3, 3, raster.Gray(0.7)))
	assert.Equal(t, raster.Black, flat.At(1, 1))
}

func TestMedian_RemovesImpulse(t *testing.T) {
	t.Parallel()

	buf := filled(t, 3, 3, raster.Black)
	buf.Set(1, 1, raster.White)

	out := convolve.Median(buf)
	assert.Equal(t, raster.Black, out.At(1, 1))
	assert.Equal(t, raster.Color{R: 0, G: 0, B: 0, A: 0}, out.At(0, 1))
	assert.Equal(t, raster.White, buf.At(1, 1))
}
