package raster_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/raster-pipeline/internal/raster"
)

func TestNew_RejectsNonPositiveDimensions(t *testing.T) {
	t.Parallel()

	for _, dims := range [][2]int{{0, 1}, {1, 0}, {-3, 4}} {
		_, err := raster.New(dims[0], dims[1])
		require.ErrorIs(t, err, raster.ErrInvalidDimensions)
	}
}

func TestNew_StartsTransparentBlack(t *testing.T) {
	t.Parallel()

	buf, err := raster.New(3, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, buf.Width())
	assert.Equal(t, 2, buf.Height())
	assert.Equal(t, 6, buf.Len())

	for _, c := range buf.Pixels() {
		assert.Equal(t, raster.Color{R: 0, G: 0, B: 0, A: 0}, c)
	}
}

func TestFromColors(t *testing.T) {
	t.Parallel()

	t.Run("Pixel count must match", func(t *testing.T) {
		t.Parallel()

		_, err := raster.FromColors(2, 2, []raster.Color{raster.Black})
		require.ErrorIs(t, err, raster.ErrSampleCount)
	})

	t.Run("Channels are clamped and input is copied", func(t *testing.T) {
		t.Parallel()

		pix := []raster.Color{
			{R: 2, G: -1, B: 0.5, A: 1},
			raster.White,
		}
		buf, err := raster.FromColors(2, 1, pix)
		require.NoError(t, err)
		assert.Equal(t, raster.Color{R: 1, G: 0, B: 0.5, A: 1}, buf.At(0, 0))

		pix[1] = raster.Black
		assert.Equal(t, raster.White, buf.At(1, 0))
	})
}

func TestCloneIsIndependent(t *testing.T) {
	t.Parallel()

	buf, err := raster.FromColors(1, 1, []raster.Color{raster.White})
	require.NoError(t, err)

	clone := buf.Clone()
	require.True(t, clone.Equal(buf))

	clone.Set(0, 0, raster.Black)
	assert.Equal(t, raster.White, buf.At(0, 0))
	assert.False(t, clone.Equal(buf))
}

func TestInBounds(t *testing.T) {
	t.Parallel()

	buf, err := raster.New(2, 3)
	require.NoError(t, err)
	assert.True(t, buf.InBounds(0, 0))
	assert.True(t, buf.InBounds(1, 2))
	assert.False(t, buf.InBounds(2, 0))
	assert.False(t, buf.InBounds(0, 3))
	assert.False(t, buf.InBounds(-1, 0))
}

func TestClamp(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.25, raster.Clamp(0.25), 0)
	assert.InDelta(t, 1.0, raster.Clamp(1.5), 0)
	assert.InDelta(t, 0.0, raster.Clamp(-0.5), 0)
	assert.InDelta(t, 1.0, raster.Clamp(math.Inf(1)), 0)
	assert.InDelta(t, 0.0, raster.Clamp(math.Inf(-1)), 0)
	assert.InDelta(t, 0.0, raster.Clamp(math.NaN()), 0)
}

func TestColorLevels(t *testing.T) {
	t.Parallel()

	c := raster.Color{R: 0.2, G: 200.0 / 255, B: 0.1, A: 1}
	assert.InDelta(t, 200.0/255, c.Brightness(), 1e-12)
	assert.InDelta(t, 200.0, c.Intensity(), 1e-9)
	assert.Equal(t, 200, c.Level())

	for level := range 256 {
		assert.Equal(t, level, raster.Gray(float64(level)/255).Level())
	}
}
