package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/book-expert/raster-pipeline/internal/pnm"
)

func newIdentifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "identify [file]",
		Short: "Print the header of a PNM image",
		Args:  cobra.ExactArgs(1),
		RunE:  runIdentify,
	}
}

func runIdentify(cmd *cobra.Command, args []string) error {
	path := args[0]

	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	header, err := pnm.DecodeHeader(file)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "File:       %s\n", path)
	fmt.Fprintf(out, "Format:     %s (%s)\n", header.Variant.Magic(), header.Variant)
	fmt.Fprintf(out, "Dimensions: %d x %d\n", header.Width, header.Height)
	fmt.Fprintf(out, "Channels:   %d\n", header.Variant.Family().Channels())

	if header.Variant.HasMaxValue() {
		fmt.Fprintf(out, "Max value:  %d\n", header.MaxValue)
	}

	return nil
}
