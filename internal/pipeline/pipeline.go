// Package pipeline runs named image operations in sequence. Steps are plain
// data (an operation name plus string arguments) so they can come from a
// TOML config file, command line flags or a JSON job event.
package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/book-expert/raster-pipeline/internal/convolve"
	"github.com/book-expert/raster-pipeline/internal/histogram"
	"github.com/book-expert/raster-pipeline/internal/morphology"
	"github.com/book-expert/raster-pipeline/internal/pnm"
	"github.com/book-expert/raster-pipeline/internal/pointop"
	"github.com/book-expert/raster-pipeline/internal/raster"
	"github.com/book-expert/raster-pipeline/internal/threshold"
)

var (
	// ErrUnknownOperation is returned for a step whose name is not registered.
	ErrUnknownOperation = errors.New("pipeline: unknown operation")
	// ErrInvalidArgument is returned for a missing, unknown or unparsable
	// step argument.
	ErrInvalidArgument = errors.New("pipeline: invalid argument")
)

// Default argument values.
const (
	DefaultCutoff        = 128
	DefaultGaussianSize  = 3
	DefaultGaussianSigma = 1.0
	DefaultWindow        = 15
	DefaultNiblackK      = -0.2
	DefaultSauvolaK      = 0.5
	DefaultSauvolaR      = 128.0
	DefaultElement       = "111;111;111"
)

// Step is one operation with its arguments.
type Step struct {
	Op   string `json:"op"             toml:"op"`
	Args Args   `json:"args,omitempty" toml:"args,omitempty"`
}

type operation struct {
	args  []string
	apply func(buf *raster.Buffer, args Args) (*raster.Buffer, error)
}

// simple adapts an argument-free operation.
func simple(f func(*raster.Buffer) *raster.Buffer) operation {
	return operation{
		args: nil,
		apply: func(buf *raster.Buffer, _ Args) (*raster.Buffer, error) {
			return f(buf), nil
		},
	}
}

func channelOp(f func(*raster.Buffer, pointop.RGB) *raster.Buffer) operation {
	return operation{
		args: []string{"rgb", "value"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			v, err := args.rgb()
			if err != nil {
				return nil, err
			}

			return f(buf, v), nil
		},
	}
}

func morphologyOp(f func(*raster.Buffer, morphology.Element) *raster.Buffer) operation {
	return operation{
		args: []string{"element"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			mask, err := args.mask("element", DefaultElement)
			if err != nil {
				return nil, err
			}

			se, err := morphology.NewElement(mask)
			if err != nil {
				return nil, err
			}

			return f(buf, se), nil
		},
	}
}

var registry = map[string]operation{
	"add":               channelOp(pointop.Add),
	"subtract":          channelOp(pointop.Subtract),
	"multiply":          channelOp(pointop.Multiply),
	"divide":            channelOp(pointop.Divide),
	"grayscale-average": simple(pointop.GrayscaleAverage),
	"grayscale-max":     simple(pointop.GrayscaleMax),
	"smooth":            simple(convolve.Smooth),
	"median":            simple(convolve.Median),
	"sobel":             simple(convolve.Sobel),
	"high-pass":         simple(convolve.HighPass),
	"stretch":           simple(histogram.Stretch),
	"equalize":          simple(histogram.Equalize),
	"mean-iterative":    simple(threshold.MeanIterative),
	"otsu":              simple(threshold.Otsu),
	"dilate":            morphologyOp(morphology.Dilate),
	"erode":             morphologyOp(morphology.Erode),
	"open":              morphologyOp(morphology.Open),
	"close":             morphologyOp(morphology.Close),
	"brightness": {
		args: []string{"delta"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			delta, err := args.requiredFloat("delta")
			if err != nil {
				return nil, err
			}

			return pointop.AdjustBrightness(buf, delta), nil
		},
	},
	"gaussian": {
		args: []string{"size", "sigma"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			size, err := args.positiveInt("size", DefaultGaussianSize)
			if err != nil {
				return nil, err
			}

			sigma, err := args.float("sigma", DefaultGaussianSigma)
			if err != nil {
				return nil, err
			}

			return convolve.GaussianBlur(buf, size, sigma), nil
		},
	},
	"convolve": {
		args: []string{"kernel"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			weights, err := args.matrix("kernel")
			if err != nil {
				return nil, err
			}

			return convolve.Custom(buf, weights)
		},
	},
	"threshold": {
		args: []string{"cutoff"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			cutoff, err := args.int("cutoff", DefaultCutoff)
			if err != nil {
				return nil, err
			}

			return threshold.Manual(buf, cutoff), nil
		},
	},
	"percent-black": {
		args: []string{"percent"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			percent, err := args.requiredFloat("percent")
			if err != nil {
				return nil, err
			}

			return threshold.PercentBlack(buf, percent), nil
		},
	},
	"niblack": {
		args: []string{"window", "k"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			window, err := args.positiveInt("window", DefaultWindow)
			if err != nil {
				return nil, err
			}

			k, err := args.float("k", DefaultNiblackK)
			if err != nil {
				return nil, err
			}

			return threshold.Niblack(buf, window, k), nil
		},
	},
	"sauvola": {
		args: []string{"window", "k", "r"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			window, err := args.positiveInt("window", DefaultWindow)
			if err != nil {
				return nil, err
			}

			k, err := args.float("k", DefaultSauvolaK)
			if err != nil {
				return nil, err
			}

			r, err := args.float("r", DefaultSauvolaR)
			if err != nil {
				return nil, err
			}

			return threshold.Sauvola(buf, window, k, r), nil
		},
	},
	"hit-or-miss": {
		args: []string{"hit", "miss"},
		apply: func(buf *raster.Buffer, args Args) (*raster.Buffer, error) {
			hit, err := args.mask("hit", "")
			if err != nil {
				return nil, err
			}

			miss, err := args.mask("miss", "")
			if err != nil {
				return nil, err
			}

			return morphology.HitOrMiss(buf, hit, miss)
		},
	},
}

// Operations returns the registered operation names in sorted order.
func Operations() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Validate checks that every step names a registered operation and passes
// only arguments it understands. Argument values are parsed when the step
// runs.
func Validate(steps []Step) error {
	for i, step := range steps {
		op, ok := registry[step.Op]
		if !ok {
			return fmt.Errorf("step %d: %w: %q", i+1, ErrUnknownOperation, step.Op)
		}

		err := step.Args.check(op.args)
		if err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Op, err)
		}
	}

	return nil
}

// Apply runs steps in order. The input buffer is never modified; with no
// steps a copy is returned.
func Apply(buf *raster.Buffer, steps []Step) (*raster.Buffer, error) {
	err := Validate(steps)
	if err != nil {
		return nil, err
	}

	current := buf.Clone()

	for i, step := range steps {
		next, applyErr := registry[step.Op].apply(current, step.Args)
		if applyErr != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i+1, step.Op, applyErr)
		}

		current = next
	}

	return current, nil
}

// Options controls Run.
type Options struct {
	// ExpectFamily rejects inputs of another family; AnyFamily accepts all.
	ExpectFamily pnm.Family
	Steps        []Step
	// Output is the variant to encode; zero keeps the input variant.
	Output pnm.Variant
	// MaxValue for PGM/PPM output; zero means 255.
	MaxValue int
}

// Result is the output of Run: the encoded bytes and the image they encode.
type Result struct {
	Image   *raster.Buffer
	Data    []byte
	Variant pnm.Variant
	Width   int
	Height  int
}

// Run decodes a PNM image, applies the steps and encodes the result.
func Run(data []byte, opts Options) (Result, error) {
	header, err := pnm.DecodeHeader(bytes.NewReader(data))
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}

	buf, err := pnm.DecodeBytes(data, opts.ExpectFamily)
	if err != nil {
		return Result{}, fmt.Errorf("decode: %w", err)
	}

	out, err := Apply(buf, opts.Steps)
	if err != nil {
		return Result{}, err
	}

	variant := opts.Output
	if variant == 0 {
		variant = header.Variant
	}

	maxValue := opts.MaxValue
	if maxValue == 0 {
		maxValue = pnm.MaxValue8
	}

	encoded, err := pnm.EncodeBytes(out, variant, maxValue)
	if err != nil {
		return Result{}, fmt.Errorf("encode: %w", err)
	}

	return Result{
		Image:   out,
		Data:    encoded,
		Variant: variant,
		Width:   out.Width(),
		Height:  out.Height(),
	}, nil
}
