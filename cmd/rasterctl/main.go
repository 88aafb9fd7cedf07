// Command rasterctl decodes, processes and encodes PBM, PGM and PPM images.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	err := newRootCmd().ExecuteContext(ctx)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "rasterctl",
		Short:         "Process PBM, PGM and PPM images",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newConvertCmd(),
		newApplyCmd(),
		newIdentifyCmd(),
		newBatchCmd(),
		newColorCmd(),
		newCoverageCmd(),
	)

	return root
}
