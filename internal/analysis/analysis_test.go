package analysis_test

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/raster-pipeline/internal/analysis"
	"github.com/book-expert/raster-pipeline/internal/raster"
)

var red = raster.Color{R: 1, G: 0, B: 0, A: 1}

// paint builds an image from rows of 'r' (red), '#' (black) and '.' (white).
func paint(t *testing.T, rows ...string) *raster.Buffer {
	t.Helper()

	pix := make([]raster.Color, 0, len(rows)*len(rows[0]))

	for _, row := range rows {
		for _, ch := range row {
			switch ch {
			case 'r':
				pix = append(pix, red)
			case '#':
				pix = append(pix, raster.Black)
			default:
				pix = append(pix, raster.White)
			}
		}
	}

	buf, err := raster.FromColors(len(rows[0]), len(rows), pix)
	require.NoError(t, err)

	return buf
}

func TestColorPercentage(t *testing.T) {
	t.Parallel()

	buf := paint(t,
		"rr..",
		"r#..",
	)

	assert.InDelta(t, 37.5, analysis.ColorPercentage(buf, red, 0), 1e-12)
	assert.InDelta(t, 0.0, analysis.ColorPercentage(buf, raster.Color{R: 0, G: 1, B: 0, A: 1}, 0.1), 1e-12)

	nearRed := raster.Color{R: 0.9, G: 0.05, B: 0.05, A: 1}
	assert.InDelta(t, 37.5, analysis.ColorPercentage(buf, nearRed, 0.1), 1e-12)
}

func TestLargestColorArea(t *testing.T) {
	t.Parallel()

	buf := paint(t,
		"rr...",
		"r..rr",
		"...rr",
		"r..r.",
	)

	region := analysis.LargestColorArea(buf, red, 0)
	assert.Equal(t, 5, region.Pixels)
	assert.Equal(t, image.Rect(3, 1, 5, 4), region.Bounds)
	assert.False(t, region.Empty())
}

func TestLargestColorArea_DiagonalIsNotConnected(t *testing.T) {
	t.Parallel()

	buf := paint(t,
		"r.",
		".r",
	)

	region := analysis.LargestColorArea(buf, red, 0)
	assert.Equal(t, 1, region.Pixels)
	assert.Equal(t, image.Rect(0, 0, 1, 1), region.Bounds)
}

func TestLargestColorArea_NoMatch(t *testing.T) {
	t.Parallel()

	region := analysis.LargestColorArea(paint(t, "..", "##"), red, 0.2)
	assert.True(t, region.Empty())
	assert.Equal(t, analysis.Region{Bounds: image.Rectangle{}, Pixels: 0}, region)
}

func TestNonWhiteRatio(t *testing.T) {
	t.Parallel()

	buf, err := raster.FromColors(4, 1, []raster.Color{
		raster.White,
		raster.Gray(250.0 / 255),
		raster.Gray(200.0 / 255),
		raster.Black,
	})
	require.NoError(t, err)

	ratio, err := analysis.NonWhiteRatio(buf, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, ratio, 1e-12)

	ratio, err = analysis.NonWhiteRatio(buf, 0.1)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, ratio, 1e-12)

	_, err = analysis.NonWhiteRatio(buf, 1.5)
	require.ErrorIs(t, err, analysis.ErrInvalidFuzz)
}
