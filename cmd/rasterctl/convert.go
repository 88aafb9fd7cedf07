package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/book-expert/raster-pipeline/internal/pipeline"
	"github.com/book-expert/raster-pipeline/internal/pnm"
)

const outputFileMode = 0o644

var errInputOutputRequired = errors.New("both --input and --output are required")

func newConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Re-encode a PNM image in another variant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipelineFile(cmd, nil)
		},
	}

	addPipelineFlags(cmd)

	return cmd
}

func addPipelineFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("input", "i", "", "Input PNM file")
	cmd.Flags().StringP("output", "o", "", "Output PNM file")
	cmd.Flags().StringP("format", "f", "", "Output variant (P1..P6, pbm, pgm-text, ...); empty keeps the input variant")
	cmd.Flags().String("expect", "any", "Reject inputs not of this family (pbm, pgm, ppm, any)")
	cmd.Flags().Int("max-value", pnm.MaxValue8, "Maximum sample value for PGM and PPM output")
}

// parseOutputVariant maps an empty format to the zero Variant, which keeps
// the input variant.
func parseOutputVariant(format string) (pnm.Variant, error) {
	if format == "" {
		return 0, nil
	}

	variant, err := pnm.ParseVariant(format)
	if err != nil {
		return 0, fmt.Errorf("invalid --format: %w", err)
	}

	return variant, nil
}

func runPipelineFile(cmd *cobra.Command, steps []pipeline.Step) error {
	inputPath, _ := cmd.Flags().GetString("input")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")
	expect, _ := cmd.Flags().GetString("expect")
	maxValue, _ := cmd.Flags().GetInt("max-value")

	if inputPath == "" || outputPath == "" {
		return errInputOutputRequired
	}

	variant, err := parseOutputVariant(format)
	if err != nil {
		return err
	}

	family, err := pnm.ParseFamily(expect)
	if err != nil {
		return fmt.Errorf("invalid --expect: %w", err)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	result, err := pipeline.Run(data, pipeline.Options{
		ExpectFamily: family,
		Steps:        steps,
		Output:       variant,
		MaxValue:     maxValue,
	})
	if err != nil {
		return fmt.Errorf("processing %s: %w", inputPath, err)
	}

	err = os.WriteFile(outputPath, result.Data, outputFileMode)
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	fmt.Fprintf(
		cmd.OutOrStdout(),
		"Wrote %s (%dx%d, %s)\n",
		outputPath,
		result.Width,
		result.Height,
		result.Variant.Magic(),
	)

	return nil
}
