package pnm

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/book-expert/raster-pipeline/internal/raster"
)

const (
	// maxPixels bounds the image a header may declare: 2 GiB of pixels.
	maxPixels = 1 << 26
	// initialPixelCap limits the up-front allocation. Pixels beyond it are
	// allocated only as the raster is actually read.
	initialPixelCap = 1 << 16
	// chunkPixels is the span of a binary row read at once: pixels for raw
	// PGM and PPM, bytes for packed PBM.
	chunkPixels = 4096
)

// Header is the parsed PNM header.
type Header struct {
	Variant  Variant
	Width    int
	Height   int
	MaxValue int
}

// decoder reads a PNM stream byte by byte, tracking the position for error
// reports.
type decoder struct {
	r      *bufio.Reader
	offset int64
	line   int
	row    int
}

func newDecoder(r io.Reader) *decoder {
	return &decoder{r: bufio.NewReader(r), offset: 0, line: 1, row: headerRow}
}

// Decode reads a PNM image. When expect is not AnyFamily the stream's family
// must match it.
func Decode(r io.Reader, expect Family) (*raster.Buffer, error) {
	dec := newDecoder(r)

	header, err := dec.readHeader()
	if err != nil {
		return nil, err
	}

	if expect != AnyFamily && header.Variant.Family() != expect {
		return nil, dec.fail(ErrFormatMismatch, "magic number", header.Variant.Magic())
	}

	return dec.readRaster(header)
}

// DecodeBytes decodes an in-memory PNM image.
func DecodeBytes(data []byte, expect Family) (*raster.Buffer, error) {
	return Decode(bytes.NewReader(data), expect)
}

// DecodeFile opens and decodes a PNM file.
func DecodeFile(path string, expect Family) (*raster.Buffer, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("pnm: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	buf, decodeErr := Decode(f, expect)
	if decodeErr != nil {
		return nil, fmt.Errorf("%s: %w", path, decodeErr)
	}

	return buf, nil
}

// DecodeHeader reads only the header of a PNM stream.
func DecodeHeader(r io.Reader) (Header, error) {
	return newDecoder(r).readHeader()
}

func (d *decoder) readHeader() (Header, error) {
	magic, err := d.readToken(false)
	if err != nil {
		return Header{}, d.eofOr(err, "magic number")
	}

	variant, ok := variantForMagic(magic)
	if !ok {
		return Header{}, d.fail(ErrUnsupportedMagic, "magic number", magic)
	}

	width, err := d.readHeaderInt("width", 1, maxPixels)
	if err != nil {
		return Header{}, err
	}

	height, err := d.readHeaderInt("height", 1, maxPixels)
	if err != nil {
		return Header{}, err
	}

	if width*height > maxPixels {
		return Header{}, d.fail(
			ErrMalformedHeader,
			"dimensions",
			strconv.Itoa(width)+"x"+strconv.Itoa(height),
		)
	}

	maxValue := 1
	if variant.HasMaxValue() {
		maxValue, err = d.readHeaderInt("max color value", 1, MaxValue16)
		if err != nil {
			return Header{}, err
		}
	}

	return Header{Variant: variant, Width: width, Height: height, MaxValue: maxValue}, nil
}

func (d *decoder) readHeaderInt(field string, lo, hi int) (int, error) {
	token, err := d.readToken(true)
	if err != nil {
		return 0, d.eofOr(err, field)
	}

	value, convErr := strconv.Atoi(token)
	if convErr != nil || value < lo || value > hi {
		return 0, d.fail(ErrMalformedHeader, field, token)
	}

	return value, nil
}

func (d *decoder) readRaster(header Header) (*raster.Buffer, error) {
	pix := make([]raster.Color, 0, min(header.Width*header.Height, initialPixelCap))

	var bodyErr error

	switch {
	case !header.Variant.Binary():
		pix, bodyErr = d.readPlainRaster(pix, header)
	default:
		bodyErr = d.skipSeparator()
		if bodyErr != nil {
			break
		}

		if header.Variant.Family() == PBM {
			pix, bodyErr = d.readPackedRaster(pix, header)
		} else {
			pix, bodyErr = d.readRawRaster(pix, header)
		}
	}

	if bodyErr != nil {
		return nil, bodyErr
	}

	buf, err := raster.FromColors(header.Width, header.Height, pix)
	if err != nil {
		return nil, fmt.Errorf("pnm: %w", err)
	}

	return buf, nil
}

// skipSeparator consumes the single whitespace byte between the header and a
// binary raster. A comment in its place counts as the separator.
func (d *decoder) skipSeparator() error {
	b, err := d.readByte()
	if err != nil {
		return d.eofOr(err, "raster separator")
	}

	switch {
	case isSpace(b):
		return nil
	case b == '#':
		return d.skipComment()
	default:
		return d.fail(ErrMalformedHeader, "raster separator", string(rune(b)))
	}
}

func (d *decoder) readPlainRaster(pix []raster.Color, header Header) ([]raster.Color, error) {
	family := header.Variant.Family()
	scale := float64(header.MaxValue)

	for y := range header.Height {
		d.row = y

		for range header.Width {
			switch family {
			case PPM:
				var rgb [3]int

				for i, component := range [...]string{"red", "green", "blue"} {
					value, err := d.readSample(component, header.MaxValue)
					if err != nil {
						return pix, err
					}

					rgb[i] = value
				}

				pix = append(pix, raster.Color{
					R: float64(rgb[0]) / scale,
					G: float64(rgb[1]) / scale,
					B: float64(rgb[2]) / scale,
					A: 1,
				})
			case PGM:
				value, err := d.readSample("gray", header.MaxValue)
				if err != nil {
					return pix, err
				}

				pix = append(pix, raster.Gray(float64(value)/scale))
			default:
				value, err := d.readSample("pixel", 1)
				if err != nil {
					return pix, err
				}

				pix = append(pix, bitColor(value))
			}
		}
	}

	return pix, nil
}

func (d *decoder) readSample(component string, maxValue int) (int, error) {
	token, err := d.readToken(true)
	if err != nil {
		return 0, d.eofOr(err, component+" value")
	}

	value, convErr := strconv.Atoi(token)
	if convErr != nil {
		var numErr *strconv.NumError
		if errors.As(convErr, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
			return 0, d.fail(ErrValueOutOfRange, component+" value", token)
		}

		return 0, d.fail(ErrMalformedSample, component+" value", token)
	}

	if value < 0 || value > maxValue {
		return 0, d.fail(ErrValueOutOfRange, component+" value", token)
	}

	return value, nil
}

// readRawRaster reads each row in spans of at most chunkPixels so the read
// buffer stays small whatever width the header claims.
func (d *decoder) readRawRaster(pix []raster.Color, header Header) ([]raster.Color, error) {
	channels := header.Variant.Family().Channels()
	bps := bytesPerSample(header.MaxValue)
	pixelBytes := channels * bps
	scale := float64(header.MaxValue)
	chunk := make([]byte, min(header.Width, chunkPixels)*pixelBytes)
	samples := make([]float64, channels)

	for y := range header.Height {
		d.row = y

		for x := 0; x < header.Width; x += chunkPixels {
			span := chunk[:min(chunkPixels, header.Width-x)*pixelBytes]

			readErr := d.readRow(span)
			if readErr != nil {
				return pix, readErr
			}

			for p := 0; p < len(span); p += pixelBytes {
				for c := range channels {
					i := p + c*bps

					value := int(span[i])
					if bps == 2 {
						value = value<<8 | int(span[i+1])
					}

					if value > header.MaxValue {
						return pix, d.fail(ErrValueOutOfRange, "sample", strconv.Itoa(value))
					}

					samples[c] = float64(value) / scale
				}

				if channels == 3 {
					pix = append(pix, raster.Color{R: samples[0], G: samples[1], B: samples[2], A: 1})
				} else {
					pix = append(pix, raster.Gray(samples[0]))
				}
			}
		}
	}

	return pix, nil
}

func (d *decoder) readPackedRaster(pix []raster.Color, header Header) ([]raster.Color, error) {
	rowBytes := packedRowBytes(header.Width)
	chunk := make([]byte, min(rowBytes, chunkPixels))

	for y := range header.Height {
		d.row = y
		x := 0

		for start := 0; start < rowBytes; start += chunkPixels {
			span := chunk[:min(chunkPixels, rowBytes-start)]

			readErr := d.readRow(span)
			if readErr != nil {
				return pix, readErr
			}

			for _, b := range span {
				for bit := 7; bit >= 0 && x < header.Width; bit-- {
					pix = append(pix, bitColor(int(b>>uint(bit))&1))
					x++
				}
			}
		}
	}

	return pix, nil
}

// readRow fills row completely or reports where the stream ended.
func (d *decoder) readRow(row []byte) error {
	n, err := io.ReadFull(d.r, row)
	d.offset += int64(n)

	if err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return d.fail(ErrUnexpectedEOF, "raster", "")
		}

		return fmt.Errorf("pnm: read raster row %d: %w", d.row, err)
	}

	return nil
}

// bitColor maps a PBM bit to its color: 1 is black, 0 is white.
func bitColor(bit int) raster.Color {
	if bit == 1 {
		return raster.Black
	}

	return raster.White
}

// readToken skips whitespace (and comments when allowed) and returns the next
// run of non-whitespace bytes. The byte that ended the token is pushed back.
func (d *decoder) readToken(skipComments bool) (string, error) {
	var token []byte

	for {
		b, err := d.readByte()
		if err != nil {
			if len(token) > 0 && errors.Is(err, io.EOF) {
				return string(token), nil
			}

			return "", err
		}

		if len(token) == 0 {
			if isSpace(b) {
				continue
			}

			if skipComments && b == '#' {
				commentErr := d.skipComment()
				if commentErr != nil {
					return "", commentErr
				}

				continue
			}
		} else if isSpace(b) || (skipComments && b == '#') {
			d.unreadByte(b)

			return string(token), nil
		}

		token = append(token, b)
	}
}

// skipComment discards bytes up to and including the next newline. A comment
// running to the end of the stream is not an error by itself.
func (d *decoder) skipComment() error {
	for {
		b, err := d.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		if b == '\n' {
			return nil
		}
	}
}

func (d *decoder) readByte() (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, err
	}

	d.offset++

	if b == '\n' {
		d.line++
	}

	return b, nil
}

func (d *decoder) unreadByte(b byte) {
	if d.r.UnreadByte() != nil {
		return
	}

	d.offset--

	if b == '\n' {
		d.line--
	}
}

// fail builds a DecodeError at the current position.
func (d *decoder) fail(sentinel error, field, token string) *DecodeError {
	return &DecodeError{
		Err:    sentinel,
		Field:  field,
		Token:  token,
		Offset: d.offset,
		Line:   d.line,
		Row:    d.row,
	}
}

// eofOr converts end of stream into ErrUnexpectedEOF and wraps other read
// errors.
func (d *decoder) eofOr(err error, field string) error {
	if errors.Is(err, io.EOF) {
		return d.fail(ErrUnexpectedEOF, field, "")
	}

	return fmt.Errorf("pnm: read %s: %w", field, err)
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	default:
		return false
	}
}
