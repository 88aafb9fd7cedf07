package pnm

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/book-expert/raster-pipeline/internal/raster"
)

const outputFilePermissions = 0o644

// Encode writes buf as the given variant. maxValue is ignored for PBM
// variants and must be within [1, 65535] otherwise.
func Encode(w io.Writer, buf *raster.Buffer, variant Variant, maxValue int) error {
	if !variant.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidVariant, uint8(variant))
	}

	if !variant.HasMaxValue() {
		maxValue = 1
	} else if maxValue < 1 || maxValue > MaxValue16 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxValue, maxValue)
	}

	bw := bufio.NewWriter(w)

	headerErr := writeHeader(bw, buf, variant, maxValue)
	if headerErr != nil {
		return headerErr
	}

	var bodyErr error

	switch {
	case !variant.Binary():
		bodyErr = writePlainRaster(bw, buf, variant.Family(), maxValue)
	case variant.Family() == PBM:
		bodyErr = writePackedRaster(bw, buf)
	default:
		bodyErr = writeRawRaster(bw, buf, variant.Family(), maxValue)
	}

	if bodyErr != nil {
		return bodyErr
	}

	flushErr := bw.Flush()
	if flushErr != nil {
		return fmt.Errorf("pnm: flush output: %w", flushErr)
	}

	return nil
}

// EncodeBytes encodes buf into memory.
func EncodeBytes(buf *raster.Buffer, variant Variant, maxValue int) ([]byte, error) {
	var out bytes.Buffer

	err := Encode(&out, buf, variant, maxValue)
	if err != nil {
		return nil, err
	}

	return out.Bytes(), nil
}

// EncodeFile writes buf to path, creating or truncating the file.
func EncodeFile(path string, buf *raster.Buffer, variant Variant, maxValue int) error {
	data, err := EncodeBytes(buf, variant, maxValue)
	if err != nil {
		return err
	}

	writeErr := os.WriteFile(filepath.Clean(path), data, outputFilePermissions)
	if writeErr != nil {
		return fmt.Errorf("pnm: write %s: %w", path, writeErr)
	}

	return nil
}

func writeHeader(w *bufio.Writer, buf *raster.Buffer, variant Variant, maxValue int) error {
	var err error
	if variant.HasMaxValue() {
		_, err = fmt.Fprintf(w, "%s\n%d %d\n%d\n", variant.Magic(), buf.Width(), buf.Height(), maxValue)
	} else {
		_, err = fmt.Fprintf(w, "%s\n%d %d\n", variant.Magic(), buf.Width(), buf.Height())
	}

	if err != nil {
		return fmt.Errorf("pnm: write header: %w", err)
	}

	return nil
}

func writePlainRaster(w *bufio.Writer, buf *raster.Buffer, family Family, maxValue int) error {
	line := make([]byte, 0, buf.Width()*4*family.Channels())

	for y := range buf.Height() {
		line = line[:0]

		for x := range buf.Width() {
			for i, sample := range pixelSamples(buf.At(x, y), family, maxValue) {
				if x > 0 || i > 0 {
					line = append(line, ' ')
				}

				line = strconv.AppendInt(line, int64(sample), 10)
			}
		}

		line = append(line, '\n')

		_, err := w.Write(line)
		if err != nil {
			return fmt.Errorf("pnm: write row %d: %w", y, err)
		}
	}

	return nil
}

func writeRawRaster(w *bufio.Writer, buf *raster.Buffer, family Family, maxValue int) error {
	bps := bytesPerSample(maxValue)
	row := make([]byte, 0, buf.Width()*family.Channels()*bps)

	for y := range buf.Height() {
		row = row[:0]

		for x := range buf.Width() {
			for _, sample := range pixelSamples(buf.At(x, y), family, maxValue) {
				if bps == 2 {
					row = binary.BigEndian.AppendUint16(row, uint16(sample))
				} else {
					row = append(row, byte(sample))
				}
			}
		}

		_, err := w.Write(row)
		if err != nil {
			return fmt.Errorf("pnm: write row %d: %w", y, err)
		}
	}

	return nil
}

func writePackedRaster(w *bufio.Writer, buf *raster.Buffer) error {
	row := make([]byte, packedRowBytes(buf.Width()))

	for y := range buf.Height() {
		clear(row)

		for x := range buf.Width() {
			if blackBit(buf.At(x, y)) == 1 {
				row[x/8] |= 1 << (7 - uint(x%8))
			}
		}

		_, err := w.Write(row)
		if err != nil {
			return fmt.Errorf("pnm: write row %d: %w", y, err)
		}
	}

	return nil
}

// pixelSamples returns the quantized samples stored for one pixel.
func pixelSamples(c raster.Color, family Family, maxValue int) []int {
	switch family {
	case PPM:
		return []int{quantize(c.R, maxValue), quantize(c.G, maxValue), quantize(c.B, maxValue)}
	case PGM:
		return []int{quantize(c.Brightness(), maxValue)}
	default:
		return []int{blackBit(c)}
	}
}

// quantize rounds a normalized channel to the nearest sample value.
func quantize(v float64, maxValue int) int {
	return int(math.Round(raster.Clamp(v) * float64(maxValue)))
}

// blackBit is 1 for pixels darker than mid gray.
func blackBit(c raster.Color) int {
	if c.Brightness() < 0.5 {
		return 1
	}

	return 0
}
