package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/book-expert/raster-pipeline/internal/colorspace"
)

const (
	maxChannel = 255
	maxPercent = 100.0
	maxHue     = 360.0
)

func newColorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "color",
		Short: "Convert a color between RGB, CMYK and HSV",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "rgb R G B",
			Short: "Show an 8-bit RGB color as CMYK and HSV",
			Args:  cobra.ExactArgs(3),
			RunE:  runColorRGB,
		},
		&cobra.Command{
			Use:   "cmyk C M Y K",
			Short: "Show CMYK percentages as RGB",
			Args:  cobra.ExactArgs(4),
			RunE:  runColorCMYK,
		},
		&cobra.Command{
			Use:   "hsv H S V",
			Short: "Show hue in degrees with saturation and value percentages as RGB",
			Args:  cobra.ExactArgs(3),
			RunE:  runColorHSV,
		},
	)

	return cmd
}

func runColorRGB(cmd *cobra.Command, args []string) error {
	var rgb [3]int

	for i, arg := range args {
		v, err := strconv.Atoi(arg)
		if err != nil {
			return fmt.Errorf("invalid channel %q: %w", arg, err)
		}

		rgb[i] = colorspace.ClampInt(v, 0, maxChannel)
	}

	cmyk := colorspace.RGBToCMYK(rgb[0], rgb[1], rgb[2])
	hsv := colorspace.RGBToHSV(rgb[0], rgb[1], rgb[2])

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "RGB:  %d, %d, %d\n", rgb[0], rgb[1], rgb[2])
	fmt.Fprintf(out, "CMYK: %.1f%%, %.1f%%, %.1f%%, %.1f%%\n", cmyk.C, cmyk.M, cmyk.Y, cmyk.K)
	fmt.Fprintf(out, "HSV:  %.1f°, %.1f%%, %.1f%%\n", hsv.H, hsv.S, hsv.V)

	return nil
}

func runColorCMYK(cmd *cobra.Command, args []string) error {
	values, err := parseFloats(args)
	if err != nil {
		return err
	}

	r, g, b := colorspace.CMYKToRGB(colorspace.CMYK{
		C: colorspace.Clamp(values[0], 0, maxPercent),
		M: colorspace.Clamp(values[1], 0, maxPercent),
		Y: colorspace.Clamp(values[2], 0, maxPercent),
		K: colorspace.Clamp(values[3], 0, maxPercent),
	})

	fmt.Fprintf(cmd.OutOrStdout(), "RGB:  %d, %d, %d\n", r, g, b)

	return nil
}

func runColorHSV(cmd *cobra.Command, args []string) error {
	values, err := parseFloats(args)
	if err != nil {
		return err
	}

	r, g, b := colorspace.HSVToRGB(colorspace.HSV{
		H: colorspace.Clamp(values[0], 0, maxHue),
		S: colorspace.Clamp(values[1], 0, maxPercent),
		V: colorspace.Clamp(values[2], 0, maxPercent),
	})

	fmt.Fprintf(cmd.OutOrStdout(), "RGB:  %d, %d, %d\n", r, g, b)

	return nil
}

func parseFloats(args []string) ([]float64, error) {
	values := make([]float64, len(args))

	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid component %q: %w", arg, err)
		}

		values[i] = v
	}

	return values, nil
}
