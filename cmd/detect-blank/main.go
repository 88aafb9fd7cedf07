// Command detect-blank analyzes a PNM image and exits with a code indicating
// whether the image is blank (mostly white) or contains content.
//
// Usage: detect-blank <filepath> <fuzz_percent> <non_white_threshold>
// - fuzz_percent: 0..100 tolerated deviation from pure white (higher = more tolerant)
// - non_white_threshold: 0.0..1.0 minimum ratio of non-white pixels to consider content
//
// Exit codes:
//
//	0 = blank image
//	1 = image has content
//	2 = error (bad args, cannot open/parse image, etc.)
package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/book-expert/raster-pipeline/internal/analysis"
	"github.com/book-expert/raster-pipeline/internal/pnm"
)

var (
	ErrInvalidArguments   = errors.New("invalid number of arguments")
	ErrInvalidFuzzPercent = errors.New("fuzz percentage must be between 0 and 100")
	ErrInvalidThreshold   = errors.New(
		"non-white threshold must be between 0.0 and 1.0",
	)
)

// arguments holds the parsed and validated command-line arguments.
type arguments struct {
	filePath   string
	fuzzFactor float64
	threshold  float64
}

// Exit codes used by this tool to communicate with its callers.
const (
	exitCodeBlank    = 0 // The image is blank.
	exitCodeNotBlank = 1 // The image has content.
	exitCodeError    = 2 // Bad arguments or an unreadable image.

	// Command line argument constants.
	expectedArgCount = 4
	percentToRatio   = 100.0
)

func main() {
	// Step 1: Parse and validate the command-line arguments.
	args, err := parseAndValidateArguments(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Argument error: %v\n", err)
		os.Exit(exitCodeError)
	}

	// Step 2: Analyze the image file.
	hasContent, err := imageHasContent(args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Image analysis error: %v\n", err)
		os.Exit(exitCodeError)
	}

	// Step 3: Exit with the appropriate code based on the analysis.
	if hasContent {
		os.Exit(exitCodeNotBlank)
	}

	os.Exit(exitCodeBlank)
}

// --- Argument Parsing ---

// parseAndValidateArguments processes the raw command-line arguments.
func parseAndValidateArguments(args []string) (arguments, error) {
	if len(args) != expectedArgCount {
		return arguments{}, fmt.Errorf(
			"expected 3 arguments, but got %d. Usage: <program> <filepath> <fuzz_percent> <threshold>: %w",
			len(args)-1,
			ErrInvalidArguments,
		)
	}

	fuzzFactor, err := parseFuzz(args[2])
	if err != nil {
		return arguments{}, err
	}

	threshold, err := parseThreshold(args[3])
	if err != nil {
		return arguments{}, err
	}

	return arguments{
		filePath:   args[1],
		fuzzFactor: fuzzFactor,
		threshold:  threshold,
	}, nil
}

// parseFuzz parses and validates the fuzz percentage string.
func parseFuzz(fuzzStr string) (float64, error) {
	fuzzPercent, err := strconv.Atoi(fuzzStr)
	if err != nil {
		return 0, fmt.Errorf("invalid fuzz percentage '%s': %w", fuzzStr, err)
	}

	if fuzzPercent < 0 || fuzzPercent > 100 {
		return 0, fmt.Errorf(
			"fuzz percentage must be between 0 and 100, got %d: %w",
			fuzzPercent,
			ErrInvalidFuzzPercent,
		)
	}

	return float64(fuzzPercent) / percentToRatio, nil
}

// parseThreshold parses and validates the non-white threshold string.
func parseThreshold(thresholdStr string) (float64, error) {
	threshold, err := strconv.ParseFloat(thresholdStr, 64)
	if err != nil {
		return 0, fmt.Errorf(
			"invalid non-white threshold '%s': %w",
			thresholdStr,
			err,
		)
	}

	if threshold < 0 || threshold > 1.0 {
		return 0, fmt.Errorf(
			"non-white threshold must be between 0.0 and 1.0, got %f: %w",
			threshold,
			ErrInvalidThreshold,
		)
	}

	return threshold, nil
}

// --- Image Analysis ---

// imageHasContent decodes the image and compares its non-white ratio with the
// threshold.
func imageHasContent(args arguments) (bool, error) {
	buf, err := pnm.DecodeFile(args.filePath, pnm.AnyFamily)
	if err != nil {
		return false, fmt.Errorf("could not decode image file: %w", err)
	}

	ratio, err := analysis.NonWhiteRatio(buf, args.fuzzFactor)
	if err != nil {
		return false, fmt.Errorf("could not measure %s: %w", args.filePath, err)
	}

	return ratio >= args.threshold, nil
}
