package pnm

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnsupportedMagic is returned when the stream does not start with P1..P6.
	ErrUnsupportedMagic = errors.New("pnm: unsupported magic number")
	// ErrFormatMismatch is returned when the stream's family differs from the
	// family the caller asked for.
	ErrFormatMismatch = errors.New("pnm: format does not match requested family")
	// ErrMalformedHeader is returned for a non-numeric or out-of-range header token.
	ErrMalformedHeader = errors.New("pnm: malformed header token")
	// ErrMalformedSample is returned for a non-numeric token in a plain raster.
	ErrMalformedSample = errors.New("pnm: malformed sample token")
	// ErrValueOutOfRange is returned for a sample above maxval, or a PBM
	// sample that is neither 0 nor 1.
	ErrValueOutOfRange = errors.New("pnm: sample value out of range")
	// ErrUnexpectedEOF is returned when the stream ends before the raster is
	// complete.
	ErrUnexpectedEOF = errors.New("pnm: unexpected end of stream")
	// ErrInvalidMaxValue is returned by the encoder for a maxval outside
	// [1, 65535].
	ErrInvalidMaxValue = errors.New("pnm: max color value must be between 1 and 65535")
	// ErrInvalidVariant is returned for an unknown variant or family.
	ErrInvalidVariant = errors.New("pnm: invalid variant")
)

// headerRow marks a DecodeError raised while reading the header.
const headerRow = -1

// DecodeError describes where decoding failed. Err is one of the package
// sentinels so callers can match it with errors.Is.
type DecodeError struct {
	Err    error
	Field  string
	Token  string
	Offset int64
	Line   int
	Row    int
}

func (e *DecodeError) Error() string {
	var sb strings.Builder

	sb.WriteString(e.Err.Error())

	if e.Field != "" {
		fmt.Fprintf(&sb, " reading %s", e.Field)
	}

	if e.Token != "" {
		fmt.Fprintf(&sb, " (got %q)", e.Token)
	}

	if e.Row >= 0 {
		fmt.Fprintf(&sb, " at row %d", e.Row)
	}

	fmt.Fprintf(&sb, " near line %d, byte offset %d", e.Line, e.Offset)

	return sb.String()
}

// Unwrap returns the sentinel error.
func (e *DecodeError) Unwrap() error { return e.Err }
