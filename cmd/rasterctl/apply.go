package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/book-expert/raster-pipeline/internal/pipeline"
)

func newApplyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Run image operations on a PNM image",
		Long: `Run image operations on a PNM image in the order given.

Each --step is an operation name followed by key=value arguments:

  rasterctl apply -i in.pgm -o out.pbm --step "gaussian size=5 sigma=1.4" --step otsu`,
		Args: cobra.NoArgs,
		RunE: runApply,
	}

	addPipelineFlags(cmd)
	cmd.Flags().StringArrayP("step", "s", nil, "Operation with key=value arguments (repeatable)")
	cmd.Flags().Bool("list", false, "List the available operations and exit")

	return cmd
}

func runApply(cmd *cobra.Command, _ []string) error {
	list, _ := cmd.Flags().GetBool("list")
	if list {
		for _, op := range pipeline.Operations() {
			fmt.Fprintln(cmd.OutOrStdout(), op)
		}

		return nil
	}

	rawSteps, _ := cmd.Flags().GetStringArray("step")

	steps, err := parseSteps(rawSteps)
	if err != nil {
		return err
	}

	return runPipelineFile(cmd, steps)
}

func parseSteps(raw []string) ([]pipeline.Step, error) {
	steps := make([]pipeline.Step, 0, len(raw))

	for _, s := range raw {
		step, err := parseStep(s)
		if err != nil {
			return nil, err
		}

		steps = append(steps, step)
	}

	return steps, nil
}

// parseStep reads "op key=value key=value". Values never contain spaces.
func parseStep(s string) (pipeline.Step, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return pipeline.Step{}, fmt.Errorf("%w: empty step", pipeline.ErrUnknownOperation)
	}

	step := pipeline.Step{Op: fields[0], Args: nil}

	for _, field := range fields[1:] {
		key, value, ok := strings.Cut(field, "=")
		if !ok || key == "" {
			return pipeline.Step{}, fmt.Errorf(
				"%w: step %q: expected key=value, got %q",
				pipeline.ErrInvalidArgument,
				step.Op,
				field,
			)
		}

		if step.Args == nil {
			step.Args = pipeline.Args{}
		}

		step.Args[key] = value
	}

	return step, nil
}
