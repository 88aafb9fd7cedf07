package pipeline

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/book-expert/raster-pipeline/internal/pointop"
)

// Args holds the string arguments of one step.
type Args map[string]string

// check rejects keys the operation does not understand.
func (a Args) check(allowed []string) error {
	for key := range a {
		if !slices.Contains(allowed, key) {
			return fmt.Errorf("%w: unknown argument %q", ErrInvalidArgument, key)
		}
	}

	return nil
}

func (a Args) lookup(key string) (string, bool) {
	v, ok := a[key]
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}

	return strings.TrimSpace(v), true
}

func (a Args) float(key string, def float64) (float64, error) {
	raw, ok := a.lookup(key)
	if !ok {
		return def, nil
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not a number", ErrInvalidArgument, key, raw)
	}

	return v, nil
}

func (a Args) requiredFloat(key string) (float64, error) {
	if _, ok := a.lookup(key); !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}

	return a.float(key, 0)
}

func (a Args) int(key string, def int) (int, error) {
	raw, ok := a.lookup(key)
	if !ok {
		return def, nil
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an integer", ErrInvalidArgument, key, raw)
	}

	return v, nil
}

func (a Args) positiveInt(key string, def int) (int, error) {
	v, err := a.int(key, def)
	if err != nil {
		return 0, err
	}

	if v < 1 {
		return 0, fmt.Errorf("%w: %s must be at least 1, got %d", ErrInvalidArgument, key, v)
	}

	return v, nil
}

// rgb reads "rgb" as "r,g,b" or "value" as a single number applied to all
// channels. Exactly one of them must be present.
func (a Args) rgb() (pointop.RGB, error) {
	triple, hasTriple := a.lookup("rgb")
	_, hasValue := a.lookup("value")

	switch {
	case hasTriple && hasValue:
		return pointop.RGB{}, fmt.Errorf("%w: use either rgb or value", ErrInvalidArgument)
	case hasValue:
		v, err := a.float("value", 0)

		return pointop.Uniform(v), err
	case !hasTriple:
		return pointop.RGB{}, fmt.Errorf("%w: rgb or value is required", ErrInvalidArgument)
	}

	parts := strings.Split(triple, ",")
	if len(parts) != 3 {
		return pointop.RGB{}, fmt.Errorf("%w: rgb=%q needs three values", ErrInvalidArgument, triple)
	}

	var out [3]float64

	for i, part := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return pointop.RGB{}, fmt.Errorf("%w: rgb=%q is not numeric", ErrInvalidArgument, triple)
		}

		out[i] = v
	}

	return pointop.RGB{R: out[0], G: out[1], B: out[2]}, nil
}

// matrix reads rows separated by ';' with comma separated numbers, e.g.
// "0,-1,0;-1,5,-1;0,-1,0". Shape validation is left to the consumer.
func (a Args) matrix(key string) ([][]float64, error) {
	raw, ok := a.lookup(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
	}

	var rows [][]float64

	for _, line := range strings.Split(raw, ";") {
		var row []float64

		for _, field := range strings.Split(line, ",") {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %s has non-numeric entry %q", ErrInvalidArgument, key, field)
			}

			row = append(row, v)
		}

		rows = append(rows, row)
	}

	return rows, nil
}

// mask reads rows of '0'/'1' separated by ';', e.g. "010;111;010".
func (a Args) mask(key, def string) ([][]bool, error) {
	raw, ok := a.lookup(key)
	if !ok {
		if def == "" {
			return nil, fmt.Errorf("%w: %s is required", ErrInvalidArgument, key)
		}

		raw = def
	}

	var rows [][]bool

	for _, line := range strings.Split(raw, ";") {
		line = strings.TrimSpace(line)
		row := make([]bool, 0, len(line))

		for _, ch := range line {
			switch ch {
			case '1':
				row = append(row, true)
			case '0':
				row = append(row, false)
			default:
				return nil, fmt.Errorf("%w: %s may only contain 0, 1 and ';'", ErrInvalidArgument, key)
			}
		}

		rows = append(rows, row)
	}

	return rows, nil
}
