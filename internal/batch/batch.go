// Package batch applies a pipeline to every PNM image in a directory using a
// pool of workers.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/book-expert/logger"
	"github.com/cheggaaa/pb/v3"

	"github.com/book-expert/raster-pipeline/internal/analysis"
	"github.com/book-expert/raster-pipeline/internal/pipeline"
	"github.com/book-expert/raster-pipeline/internal/pnm"
)

var (
	// ErrInputPathRequired is returned when input path is not provided.
	ErrInputPathRequired = errors.New("input path is required")
	// ErrOutputPathRequired is returned when output path is not provided.
	ErrOutputPathRequired = errors.New("output path is required")
)

// Options holds all configurable parameters for a Processor.
type Options struct {
	ProgressBarOutput io.Writer
	InputPath         string
	OutputPath        string
	Workers           int
	Steps             []pipeline.Step
	// Output is the variant written for every image; zero keeps each input's
	// variant.
	Output   pnm.Variant
	MaxValue int
	// SkipBlank drops results whose non-white ratio is below
	// BlankNonWhiteThreshold.
	SkipBlank              bool
	BlankFuzzPercent       int
	BlankNonWhiteThreshold float64
}

// Stats counts the outcome of a batch run.
type Stats struct {
	Processed int
	Skipped   int
	Failed    int
}

// Processor runs a pipeline over a directory of images.
type Processor struct {
	log    *logger.Logger
	config Options

	processed atomic.Int64
	skipped   atomic.Int64
	failed    atomic.Int64
}

// NewProcessor creates a Processor, filling zero-value options with defaults.
func NewProcessor(opts *Options, log *logger.Logger) *Processor {
	applyDefaultOptions(opts)

	return &Processor{
		log:    log,
		config: *opts,
	}
}

const (
	defaultMaxValue               = pnm.MaxValue8
	defaultBlankFuzzPercent       = 5
	defaultBlankNonWhiteThreshold = 0.005
	percentToRatio                = 100.0
)

// applyDefaultOptions fills zero-value fields in Options with sensible defaults.
func applyDefaultOptions(opts *Options) {
	opts.Workers = defaultIntNonPositive(opts.Workers, runtime.NumCPU())
	opts.MaxValue = defaultIntNonPositive(opts.MaxValue, defaultMaxValue)
	opts.BlankFuzzPercent = defaultIntNonPositive(
		opts.BlankFuzzPercent,
		defaultBlankFuzzPercent,
	)
	opts.BlankNonWhiteThreshold = defaultFloatNonPositive(
		opts.BlankNonWhiteThreshold,
		defaultBlankNonWhiteThreshold,
	)
	opts.ProgressBarOutput = defaultWriterNil(opts.ProgressBarOutput, os.Stdout)
}

func defaultIntNonPositive(v, def int) int {
	if v <= 0 {
		return def
	}

	return v
}

func defaultFloatNonPositive(v, def float64) float64 {
	if v <= 0 {
		return def
	}

	return v
}

func defaultWriterNil(w, def io.Writer) io.Writer {
	if w == nil {
		return def
	}

	return w
}

// Process validates the configuration, discovers the input images and runs
// the pipeline on each of them. Failures of single images are logged and do
// not stop the batch.
func (processor *Processor) Process(ctx context.Context) error {
	err := processor.validateConfig()
	if err != nil {
		return err
	}

	paths, err := processor.discoverInputImages()
	if err != nil {
		return err
	}

	mkdirErr := os.MkdirAll(processor.config.OutputPath, defaultDirMode)
	if mkdirErr != nil {
		return fmt.Errorf("could not create output directory: %w", mkdirErr)
	}

	processor.log.Info("Found %d image(s) to process.", len(paths))

	processErr := processor.processAllImages(ctx, paths)

	stats := processor.Stats()
	processor.log.Info(
		"Batch finished: %d processed, %d skipped as blank, %d failed.",
		stats.Processed,
		stats.Skipped,
		stats.Failed,
	)

	return processErr
}

// Stats returns the counters of the runs so far.
func (processor *Processor) Stats() Stats {
	return Stats{
		Processed: int(processor.processed.Load()),
		Skipped:   int(processor.skipped.Load()),
		Failed:    int(processor.failed.Load()),
	}
}

// validateConfig checks if the essential configuration options have been provided.
func (processor *Processor) validateConfig() error {
	if processor.config.InputPath == "" {
		return ErrInputPathRequired
	}

	if processor.config.OutputPath == "" {
		return ErrOutputPathRequired
	}

	validateErr := pipeline.Validate(processor.config.Steps)
	if validateErr != nil {
		return fmt.Errorf("invalid pipeline: %w", validateErr)
	}

	return nil
}

// discoverInputImages discovers input images and validates non-empty result.
func (processor *Processor) discoverInputImages() ([]string, error) {
	paths, discoveryErr := DiscoverImages(processor.config.InputPath)
	if discoveryErr != nil {
		return nil, fmt.Errorf("failed to discover images: %w", discoveryErr)
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf(
			"no PNM images found in %s: %w",
			processor.config.InputPath,
			os.ErrNotExist,
		)
	}

	return paths, nil
}

// processAllImages fans the paths out to the worker pool and shows the
// overall progress.
func (processor *Processor) processAllImages(ctx context.Context, paths []string) error {
	progressBar := pb.New(len(paths)).
		SetTemplateString(`{{ bar . " " "━" "━" " " " "}} {{percent .}} {{rtime .}}`).
		SetWriter(processor.config.ProgressBarOutput).
		Start()
	defer progressBar.Finish()

	jobs := make(chan string, len(paths))

	var waitGroup sync.WaitGroup

	for range min(processor.config.Workers, len(paths)) {
		waitGroup.Add(1)

		go processor.imageWorker(ctx, &waitGroup, jobs, progressBar)
	}

	for _, path := range paths {
		jobs <- path
	}

	close(jobs)

	waitGroup.Wait()

	return ctx.Err()
}

// imageWorker pulls paths from the channel until it is closed and empty.
func (processor *Processor) imageWorker(
	ctx context.Context,
	waitGroup *sync.WaitGroup,
	jobs <-chan string,
	progressBar *pb.ProgressBar,
) {
	defer waitGroup.Done()

	for path := range jobs {
		if ctx.Err() != nil {
			processor.log.Warn("Context canceled, skipping %s", filepath.Base(path))

			continue
		}

		processErr := processor.processOneImage(path)
		if processErr != nil {
			processor.failed.Add(1)
			processor.log.Error("Failed to process %s: %v", filepath.Base(path), processErr)
		}

		progressBar.Increment()
	}
}

// processOneImage runs the pipeline on a single file and writes the result.
func (processor *Processor) processOneImage(path string) error {
	data, readErr := os.ReadFile(filepath.Clean(path))
	if readErr != nil {
		return fmt.Errorf("could not read input: %w", readErr)
	}

	result, runErr := pipeline.Run(data, pipeline.Options{
		ExpectFamily: pnm.AnyFamily,
		Steps:        processor.config.Steps,
		Output:       processor.config.Output,
		MaxValue:     processor.config.MaxValue,
	})
	if runErr != nil {
		return runErr
	}

	if processor.config.SkipBlank {
		blank, blankErr := processor.isBlank(result)
		if blankErr != nil {
			return blankErr
		}

		if blank {
			processor.skipped.Add(1)
			processor.log.Info("Skipping blank result for %s", filepath.Base(path))

			return nil
		}
	}

	outputPath := outputPathFor(processor.config.OutputPath, path, result.Variant)

	writeErr := os.WriteFile(outputPath, result.Data, outputFileMode)
	if writeErr != nil {
		return fmt.Errorf("could not write %s: %w", outputPath, writeErr)
	}

	processor.processed.Add(1)
	processor.log.Success("Processed %s -> %s", filepath.Base(path), filepath.Base(outputPath))

	return nil
}

func (processor *Processor) isBlank(result pipeline.Result) (bool, error) {
	fuzz := float64(processor.config.BlankFuzzPercent) / percentToRatio

	ratio, err := analysis.NonWhiteRatio(result.Image, fuzz)
	if err != nil {
		return false, fmt.Errorf("blank detection failed: %w", err)
	}

	return ratio < processor.config.BlankNonWhiteThreshold, nil
}
