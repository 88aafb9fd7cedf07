package morphology_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/raster-pipeline/internal/morphology"
	"github.com/book-expert/raster-pipeline/internal/raster"
)

var cross = [][]bool{
	{false, true, false},
	{true, true, true},
	{false, true, false},
}

func randomImage(t *testing.T, seed uint64, width, height int) *raster.Buffer {
	t.Helper()

	rng := rand.New(rand.NewPCG(seed, seed+1))
	pix := make([]raster.Color, width*height)

	for i := range pix {
		pix[i] = raster.Color{R: rng.Float64(), G: rng.Float64(), B: rng.Float64(), A: 1}
	}

	buf, err := raster.FromColors(width, height, pix)
	require.NoError(t, err)

	return buf
}

func bitmap(t *testing.T, rows ...string) *raster.Buffer {
	t.Helper()

	width := len(rows[0])
	pix := make([]raster.Color, 0, width*len(rows))

	for _, row := range rows {
		for _, ch := range row {
			if ch == '#' {
				pix = append(pix, raster.Black)
			} else {
				pix = append(pix, raster.White)
			}
		}
	}

	buf, err := raster.FromColors(width, len(rows), pix)
	require.NoError(t, err)

	return buf
}

func TestNewElement_Shape(t *testing.T) {
	t.Parallel()

	_, err := morphology.NewElement(nil)
	require.ErrorIs(t, err, morphology.ErrInvalidStructuringElementShape)

	_, err = morphology.NewElement([][]bool{{}})
	require.ErrorIs(t, err, morphology.ErrInvalidStructuringElementShape)

	_, err = morphology.NewElement([][]bool{{true, true}, {true}})
	require.ErrorIs(t, err, morphology.ErrInvalidStructuringElementShape)

	se, err := morphology.NewElement(cross)
	require.NoError(t, err)
	assert.Equal(t, 3, se.Rows())
	assert.Equal(t, 3, se.Cols())
}

func TestOpeningNeverWhitens(t *testing.T) {
	t.Parallel()

	se, err := morphology.NewElement(cross)
	require.NoError(t, err)

	for seed := range uint64(5) {
		buf := randomImage(t, seed, 7, 6)
		opened := morphology.Open(buf, se)

		for y := range buf.Height() {
			for x := range buf.Width() {
				src, got := buf.At(x, y), opened.At(x, y)
				assert.LessOrEqual(t, got.R, src.R)
				assert.LessOrEqual(t, got.G, src.G)
				assert.LessOrEqual(t, got.B, src.B)
			}
		}
	}
}

func TestClosingNeverDarkensInterior(t *testing.T) {
	t.Parallel()

	se := morphology.Square(3)

	for seed := range uint64(5) {
		buf := randomImage(t, seed+100, 7, 6)
		closed := morphology.Close(buf, se)

		// Erosion treats the outside as background, so only pixels whose
		// whole neighbourhood is inside the image are compared.
		for y := 1; y < buf.Height()-1; y++ {
			for x := 1; x < buf.Width()-1; x++ {
				src, got := buf.At(x, y), closed.At(x, y)
				assert.GreaterOrEqual(t, got.R, src.R)
				assert.GreaterOrEqual(t, got.G, src.G)
				assert.GreaterOrEqual(t, got.B, src.B)
			}
		}

		assert.Equal(t, raster.Color{R: 0, G: 0, B: 0, A: 0}, closed.At(0, 0))
	}
}

func TestDilate_SpreadsWhite(t *testing.T) {
	t.Parallel()

	buf := bitmap(t,
		"###",
		"#.#",
		"###",
	)
	se, err := morphology.NewElement(cross)
	require.NoError(t, err)

	out := morphology.Dilate(buf, se)
	assert.Equal(t, raster.White, out.At(1, 0))
	assert.Equal(t, raster.White, out.At(0, 1))
	assert.Equal(t, raster.Black, out.At(0, 0))
}

func TestErode_BorderIsTransparentBlack(t *testing.T) {
	t.Parallel()

	buf := bitmap(t,
		"...",
		"...",
		"...",
	)

	out := morphology.Erode(buf, morphology.Square(3))
	assert.Equal(t, raster.White, out.At(1, 1))
	assert.Equal(t, raster.Color{R: 0, G: 0, B: 0, A: 0}, out.At(0, 1))

	single := morphology.Erode(buf, morphology.Square(1))
	assert.True(t, single.Equal(buf))
}

func TestHitOrMiss(t *testing.T) {
	t.Parallel()

	// Find isolated black pixels.
	hit := [][]bool{
		{false, false, false},
		{false, true, false},
		{false, false, false},
	}
	miss := [][]bool{
		{false, true, false},
		{true, false, true},
		{false, true, false},
	}

	buf := bitmap(t,
		".....",
		".#...",
		"...##",
		".....",
	)

	out, err := morphology.HitOrMiss(buf, hit, miss)
	require.NoError(t, err)
	assert.Equal(t, raster.Black, out.At(1, 1))
	assert.Equal(t, raster.White, out.At(3, 2))
	assert.Equal(t, raster.White, out.At(0, 0))

	// The right-hand pair touches the edge, so its miss positions fall outside.
	assert.Equal(t, raster.White, out.At(4, 2))
}

func TestHitOrMiss_RequiresExactColors(t *testing.T) {
	t.Parallel()

	buf, err := raster.FromColors(1, 1, []raster.Color{raster.Gray(0.01)})
	require.NoError(t, err)

	out, err := morphology.HitOrMiss(buf, [][]bool{{true}}, [][]bool{{false}})
	require.NoError(t, err)
	assert.Equal(t, raster.White, out.At(0, 0))
}

func TestHitOrMiss_MaskErrors(t *testing.T) {
	t.Parallel()

	buf := bitmap(t, "#")

	_, err := morphology.HitOrMiss(buf, [][]bool{{true}}, [][]bool{{true, false}})
	require.ErrorIs(t, err, morphology.ErrInvalidMaskShape)

	_, err = morphology.HitOrMiss(buf, nil, [][]bool{{true}})
	require.ErrorIs(t, err, morphology.ErrInvalidStructuringElementShape)
}
