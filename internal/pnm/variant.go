// Package pnm decodes and encodes the Netpbm family of raster formats: PBM
// (bitmap), PGM (graymap) and PPM (pixmap), each in its plain (ASCII) and raw
// (binary) form.
//
// The six wire formats are described by a single table indexed by Variant, so
// decoding and encoding share one row-oriented path for PGM/PPM and one
// bit-packed path for raw PBM.
package pnm

import (
	"fmt"
	"strings"
)

const (
	// MaxValue8 is the largest sample value that fits in one byte.
	MaxValue8 = 255
	// MaxValue16 is the largest sample value the format allows.
	MaxValue16 = 65535
)

// Family identifies the kind of image regardless of its encoding.
type Family uint8

// Families. AnyFamily disables the family check when decoding.
const (
	AnyFamily Family = iota
	PBM
	PGM
	PPM
)

// String returns the lowercase family name.
func (f Family) String() string {
	switch f {
	case PBM:
		return "pbm"
	case PGM:
		return "pgm"
	case PPM:
		return "ppm"
	case AnyFamily:
		return "any"
	default:
		return fmt.Sprintf("family(%d)", uint8(f))
	}
}

// Channels is the number of samples stored per pixel.
func (f Family) Channels() int {
	if f == PPM {
		return 3
	}

	return 1
}

// Extension returns the conventional file extension including the dot.
func (f Family) Extension() string {
	if f == AnyFamily {
		return ".pnm"
	}

	return "." + f.String()
}

// ParseFamily accepts "pbm", "pgm", "ppm", "pnm"/"any" or an empty string
// (AnyFamily), case-insensitively.
func ParseFamily(s string) (Family, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "pnm":
		return AnyFamily, nil
	case "pbm":
		return PBM, nil
	case "pgm":
		return PGM, nil
	case "ppm":
		return PPM, nil
	default:
		return AnyFamily, fmt.Errorf("%w: unknown family %q", ErrInvalidVariant, s)
	}
}

// FamilyFromExtension maps a file name extension to its family; unknown
// extensions map to AnyFamily.
func FamilyFromExtension(ext string) Family {
	family, err := ParseFamily(strings.TrimPrefix(ext, "."))
	if err != nil {
		return AnyFamily
	}

	return family
}

// Variant is one of the six concrete PNM wire formats. Its numeric value is
// the digit of the magic number.
type Variant uint8

// Variants in magic number order.
const (
	PlainPBM Variant = iota + 1 // P1
	PlainPGM                    // P2
	PlainPPM                    // P3
	RawPBM                      // P4
	RawPGM                      // P5
	RawPPM                      // P6
)

type variantInfo struct {
	magic  string
	name   string
	family Family
	binary bool
}

var variantTable = [...]variantInfo{
	PlainPBM: {magic: "P1", name: "pbm-text", family: PBM, binary: false},
	PlainPGM: {magic: "P2", name: "pgm-text", family: PGM, binary: false},
	PlainPPM: {magic: "P3", name: "ppm-text", family: PPM, binary: false},
	RawPBM:   {magic: "P4", name: "pbm-binary", family: PBM, binary: true},
	RawPGM:   {magic: "P5", name: "pgm-binary", family: PGM, binary: true},
	RawPPM:   {magic: "P6", name: "ppm-binary", family: PPM, binary: true},
}

// Valid reports whether v is one of the six variants.
func (v Variant) Valid() bool {
	return v >= PlainPBM && v <= RawPPM
}

// Magic returns the two-character magic number, e.g. "P4".
func (v Variant) Magic() string { return v.info().magic }

// Family returns the image family of the variant.
func (v Variant) Family() Family { return v.info().family }

// Binary reports whether the raster is stored as raw bytes.
func (v Variant) Binary() bool { return v.info().binary }

// HasMaxValue reports whether the header carries a maxval field.
func (v Variant) HasMaxValue() bool { return v.info().family != PBM }

// String returns the human readable variant name, e.g. "pgm-binary".
func (v Variant) String() string {
	if !v.Valid() {
		return fmt.Sprintf("variant(%d)", uint8(v))
	}

	return v.info().name
}

func (v Variant) info() variantInfo {
	if !v.Valid() {
		return variantInfo{magic: "", name: "", family: AnyFamily, binary: false}
	}

	return variantTable[v]
}

// VariantOf returns the variant for a family and encoding.
func VariantOf(family Family, binary bool) (Variant, error) {
	for v := PlainPBM; v <= RawPPM; v++ {
		if variantTable[v].family == family && variantTable[v].binary == binary {
			return v, nil
		}
	}

	return 0, fmt.Errorf("%w: no variant for family %s", ErrInvalidVariant, family)
}

// ParseVariant accepts a magic number ("P1".."P6"), a variant name such as
// "ppm-text" or "pgm-binary", or a bare family name which selects the binary
// encoding.
func ParseVariant(s string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(s))

	for v := PlainPBM; v <= RawPPM; v++ {
		info := variantTable[v]
		if key == strings.ToLower(info.magic) || key == info.name {
			return v, nil
		}
	}

	family, err := ParseFamily(key)
	if err != nil || family == AnyFamily {
		return 0, fmt.Errorf("%w: %q", ErrInvalidVariant, s)
	}

	return VariantOf(family, true)
}

// variantForMagic looks up a magic token read from a stream.
func variantForMagic(magic string) (Variant, bool) {
	for v := PlainPBM; v <= RawPPM; v++ {
		if variantTable[v].magic == magic {
			return v, true
		}
	}

	return 0, false
}

// bytesPerSample is 1 below 256 and 2 (big-endian) otherwise.
func bytesPerSample(maxValue int) int {
	if maxValue <= MaxValue8 {
		return 1
	}

	return 2
}

// packedRowBytes is the size of one bit-packed PBM row.
func packedRowBytes(width int) int {
	return (width + 7) / 8
}
