package batch

import (
	"context"

	"github.com/book-expert/raster-pipeline/internal/pnm"
)

// Exported test-only accessors for unexported functions and fields.
// This file is compiled only during tests and does not affect the public API.

// ConfigForTest returns a copy of the processor configuration for assertions in tests.
func (processor *Processor) ConfigForTest() Options { return processor.config }

// Test-only helpers to access unexported methods for white-box tests from external
// package.
func (processor *Processor) ValidateConfigForTest() error { return processor.validateConfig() }

func (processor *Processor) DiscoverInputImagesForTest() ([]string, error) {
	return processor.discoverInputImages()
}

func (processor *Processor) ProcessAllImagesForTest(ctx context.Context, paths []string) error {
	return processor.processAllImages(ctx, paths)
}

// OutputPathForTest exposes outputPathFor.
func OutputPathForTest(outputDir, inputPath string, variant pnm.Variant) string {
	return outputPathFor(outputDir, inputPath, variant)
}
