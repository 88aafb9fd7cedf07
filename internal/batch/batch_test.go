package batch_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/book-expert/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/raster-pipeline/internal/batch"
	"github.com/book-expert/raster-pipeline/internal/pipeline"
	"github.com/book-expert/raster-pipeline/internal/pnm"
)

func newLogger(t *testing.T) *logger.Logger {
	t.Helper()

	log, err := logger.New(t.TempDir(), "test.log")
	require.NoError(t, err)

	return log
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestNewProcessor_Defaults(t *testing.T) {
	t.Parallel()

	log := newLogger(t)

	t.Run("Zero values should default correctly", func(t *testing.T) {
		t.Parallel()

		processor := batch.NewProcessor(&batch.Options{
			ProgressBarOutput:      nil,
			InputPath:              "",
			OutputPath:             "",
			Workers:                0,
			Steps:                  nil,
			Output:                 0,
			MaxValue:               0,
			SkipBlank:              false,
			BlankFuzzPercent:       0,
			BlankNonWhiteThreshold: 0,
		}, log)
		cfg := processor.ConfigForTest()
		assert.Equal(t, runtime.NumCPU(), cfg.Workers)
		assert.Equal(t, 255, cfg.MaxValue)
		assert.Equal(t, 5, cfg.BlankFuzzPercent)
		assert.InDelta(t, 0.005, cfg.BlankNonWhiteThreshold, 1e-12)
		assert.NotNil(t, cfg.ProgressBarOutput)
	})

	t.Run("Custom values should be preserved", func(t *testing.T) {
		t.Parallel()

		processor := batch.NewProcessor(&batch.Options{
			ProgressBarOutput:      nil,
			InputPath:              "",
			OutputPath:             "",
			Workers:                3,
			Steps:                  nil,
			Output:                 pnm.RawPGM,
			MaxValue:               65535,
			SkipBlank:              true,
			BlankFuzzPercent:       10,
			BlankNonWhiteThreshold: 0.2,
		}, log)
		cfg := processor.ConfigForTest()
		assert.Equal(t, 3, cfg.Workers)
		assert.Equal(t, 65535, cfg.MaxValue)
		assert.Equal(t, pnm.RawPGM, cfg.Output)
		assert.Equal(t, 10, cfg.BlankFuzzPercent)
	})
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	log := newLogger(t)

	options := func(in, out string, steps []pipeline.Step) *batch.Options {
		return &batch.Options{
			ProgressBarOutput:      nil,
			InputPath:              in,
			OutputPath:             out,
			Workers:                0,
			Steps:                  steps,
			Output:                 0,
			MaxValue:               0,
			SkipBlank:              false,
			BlankFuzzPercent:       0,
			BlankNonWhiteThreshold: 0,
		}
	}

	proc := batch.NewProcessor(options("", "", nil), log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), batch.ErrInputPathRequired)

	proc = batch.NewProcessor(options("in", "", nil), log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), batch.ErrOutputPathRequired)

	proc = batch.NewProcessor(options("in", "out", []pipeline.Step{{Op: "nope", Args: nil}}), log)
	require.ErrorIs(t, proc.ValidateConfigForTest(), pipeline.ErrUnknownOperation)

	proc = batch.NewProcessor(options("in", "out", nil), log)
	require.NoError(t, proc.ValidateConfigForTest())
}

func TestDiscoverImagesAndEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "a.pgm", "")
	writeFile(t, dir, "b.PPM", "")
	writeFile(t, dir, "c.pnm", "")
	writeFile(t, dir, "d.png", "")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "e.pbm"), 0o750))

	files, err := batch.DiscoverImages(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.pgm"),
		filepath.Join(dir, "b.PPM"),
		filepath.Join(dir, "c.pnm"),
	}, files)

	_, err = batch.DiscoverImages(filepath.Join(dir, "missing"))
	require.Error(t, err)

	proc := batch.NewProcessor(&batch.Options{
		ProgressBarOutput:      nil,
		InputPath:              t.TempDir(),
		OutputPath:             t.TempDir(),
		Workers:                0,
		Steps:                  nil,
		Output:                 0,
		MaxValue:               0,
		SkipBlank:              false,
		BlankFuzzPercent:       0,
		BlankNonWhiteThreshold: 0,
	}, newLogger(t))
	_, err = proc.DiscoverInputImagesForTest()
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestOutputPathFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		filepath.Join("out", "scan.pbm"),
		batch.OutputPathForTest("out", filepath.Join("in", "scan.pnm"), pnm.PlainPBM),
	)
	assert.Equal(t,
		filepath.Join("out", "photo.ppm"),
		batch.OutputPathForTest("out", "photo.PPM", pnm.RawPPM),
	)
}

func TestProcess_ConvertsDirectory(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "nested", "out")

	writeFile(t, inDir, "page1.pgm", "P2\n4 1\n255\n0 100 150 200\n")
	writeFile(t, inDir, "page2.pnm", "P3\n1 1\n255\n0 0 0\n")
	writeFile(t, inDir, "broken.pgm", "P2\n4 1\n255\n0 100\n")

	var progress bytes.Buffer

	proc := batch.NewProcessor(&batch.Options{
		ProgressBarOutput: &progress,
		InputPath:         inDir,
		OutputPath:        outDir,
		Workers:           2,
		Steps: []pipeline.Step{
			{Op: "threshold", Args: pipeline.Args{"cutoff": "128"}},
		},
		Output:                 pnm.PlainPBM,
		MaxValue:               0,
		SkipBlank:              false,
		BlankFuzzPercent:       0,
		BlankNonWhiteThreshold: 0,
	}, newLogger(t))

	require.NoError(t, proc.Process(context.Background()))
	assert.NotEqual(t, 0, progress.Len())

	page1, err := os.ReadFile(filepath.Join(outDir, "page1.pbm"))
	require.NoError(t, err)
	assert.Equal(t, "P1\n4 1\n1 1 0 0\n", string(page1))

	page2, err := os.ReadFile(filepath.Join(outDir, "page2.pbm"))
	require.NoError(t, err)
	assert.Equal(t, "P1\n1 1\n1\n", string(page2))

	_, err = os.Stat(filepath.Join(outDir, "broken.pbm"))
	require.ErrorIs(t, err, os.ErrNotExist)

	assert.Equal(t, batch.Stats{Processed: 2, Skipped: 0, Failed: 1}, proc.Stats())
}

func TestProcess_SkipsBlankResults(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	outDir := t.TempDir()

	writeFile(t, inDir, "blank.pgm", "P2\n2 2\n255\n255 255 255 255\n")
	writeFile(t, inDir, "text.pgm", "P2\n2 2\n255\n255 0 255 255\n")

	proc := batch.NewProcessor(&batch.Options{
		ProgressBarOutput:      &bytes.Buffer{},
		InputPath:              inDir,
		OutputPath:             outDir,
		Workers:                1,
		Steps:                  nil,
		Output:                 0,
		MaxValue:               0,
		SkipBlank:              true,
		BlankFuzzPercent:       0,
		BlankNonWhiteThreshold: 0,
	}, newLogger(t))

	require.NoError(t, proc.Process(context.Background()))

	_, err := os.Stat(filepath.Join(outDir, "blank.pgm"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = os.Stat(filepath.Join(outDir, "text.pgm"))
	require.NoError(t, err)

	assert.Equal(t, batch.Stats{Processed: 1, Skipped: 1, Failed: 0}, proc.Stats())
}

func TestProcessAllImages_CanceledContext(t *testing.T) {
	t.Parallel()

	inDir := t.TempDir()
	path := writeFile(t, inDir, "a.pgm", "P2\n1 1\n255\n0\n")

	proc := batch.NewProcessor(&batch.Options{
		ProgressBarOutput:      &bytes.Buffer{},
		InputPath:              inDir,
		OutputPath:             t.TempDir(),
		Workers:                1,
		Steps:                  nil,
		Output:                 0,
		MaxValue:               0,
		SkipBlank:              false,
		BlankFuzzPercent:       0,
		BlankNonWhiteThreshold: 0,
	}, newLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, proc.ProcessAllImagesForTest(ctx, []string{path}), context.Canceled)
	assert.Equal(t, batch.Stats{Processed: 0, Skipped: 0, Failed: 0}, proc.Stats())
}
