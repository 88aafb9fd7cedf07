package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/book-expert/raster-pipeline/internal/analysis"
	"github.com/book-expert/raster-pipeline/internal/pnm"
	"github.com/book-expert/raster-pipeline/internal/raster"
)

var errInvalidColor = errors.New(`color must be "r,g,b" with channels 0-255`)

func newCoverageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "coverage [file]",
		Short: "Measure how much of an image is covered by a color",
		Args:  cobra.ExactArgs(1),
		RunE:  runCoverage,
	}

	cmd.Flags().StringP("color", "c", "0,0,0", `Target color as "r,g,b"`)
	cmd.Flags().IntP("tolerance", "t", 0, "Allowed per-channel difference, 0-255")
	cmd.Flags().Int("fuzz", 5, "Deviation from white still counted as white, in percent")

	return cmd
}

func runCoverage(cmd *cobra.Command, args []string) error {
	colorFlag, _ := cmd.Flags().GetString("color")
	tolerance, _ := cmd.Flags().GetInt("tolerance")
	fuzz, _ := cmd.Flags().GetInt("fuzz")

	target, err := parseColor(colorFlag)
	if err != nil {
		return err
	}

	buf, err := pnm.DecodeFile(args[0], pnm.AnyFamily)
	if err != nil {
		return err
	}

	tol := float64(tolerance) / raster.MaxLevel

	nonWhite, err := analysis.NonWhiteRatio(buf, float64(fuzz)/100)
	if err != nil {
		return fmt.Errorf("invalid --fuzz: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Coverage:       %.2f%%\n", analysis.ColorPercentage(buf, target, tol))

	region := analysis.LargestColorArea(buf, target, tol)
	if region.Empty() {
		fmt.Fprintln(out, "Largest region: none")
	} else {
		fmt.Fprintf(out, "Largest region: %d px within %v\n", region.Pixels, region.Bounds)
	}

	fmt.Fprintf(out, "Non-white:      %.4f\n", nonWhite)

	return nil
}

func parseColor(s string) (raster.Color, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return raster.Color{}, fmt.Errorf("%w: %q", errInvalidColor, s)
	}

	var channels [3]float64

	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 0 || v > raster.MaxLevel {
			return raster.Color{}, fmt.Errorf("%w: %q", errInvalidColor, s)
		}

		channels[i] = float64(v) / raster.MaxLevel
	}

	return raster.Color{R: channels[0], G: channels[1], B: channels[2], A: 1}, nil
}
