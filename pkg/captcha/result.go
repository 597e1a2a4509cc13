// result.go - Generated challenge and its PNG serialization.
package captcha

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/canvas"
)

// Compression selects the PNG compression effort.
type Compression int

const (
	CompressionDefault Compression = iota
	CompressionFast
	CompressionBest
)

func (c Compression) String() string {
	switch c {
	case CompressionFast:
		return "fast"
	case CompressionBest:
		return "best"
	default:
		return "default"
	}
}

// ParseCompression accepts "default", "fast" or "best" (case-insensitive),
// or their numeric forms 0, 1 and 2.
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "default":
		return CompressionDefault, nil
	case "1", "fast":
		return CompressionFast, nil
	case "2", "best":
		return CompressionBest, nil
	}
	return CompressionDefault, errors.Errorf("captcha: unknown compression %q", s)
}

func (c Compression) level() png.CompressionLevel {
	switch c {
	case CompressionFast:
		return png.BestSpeed
	case CompressionBest:
		return png.BestCompression
	default:
		return png.DefaultCompression
	}
}

var (
	// ErrHeader reports a failure while writing the PNG signature or IHDR.
	ErrHeader = errors.New("captcha: write png header")
	// ErrImageData reports a failure after the header was written.
	ErrImageData = errors.New("captcha: write png image data")
)

// pngHeaderSize is the signature (8) plus the IHDR chunk (4+4+13+4).
const pngHeaderSize = 8 + 25

// encodeError carries both the failure kind and the underlying cause.
type encodeError struct {
	kind error
	err  error
}

func (e *encodeError) Error() string   { return fmt.Sprintf("%v: %v", e.kind, e.err) }
func (e *encodeError) Unwrap() []error { return []error{e.kind, e.err} }

// Result is a generated challenge. It is immutable once returned.
type Result struct {
	buf      *canvas.Buffer
	solution string
}

// Width returns the image width in pixels.
func (r *Result) Width() int { return r.buf.Width }

// Height returns the image height in pixels.
func (r *Result) Height() int { return r.buf.Height }

// Solution returns the challenge text.
func (r *Result) Solution() string { return r.solution }

// Buffer returns a copy of the raw pixels: row-major RGBA, straight alpha,
// Width*Height*4 bytes.
func (r *Result) Buffer() []byte {
	out := make([]byte, len(r.buf.Pix))
	copy(out, r.buf.Pix)
	return out
}

// Image returns a copy of the pixels as an image.NRGBA.
func (r *Result) Image() *image.NRGBA {
	return r.buf.Clone().NRGBA()
}

// PNG encodes the image as an 8-bit PNG. See WritePNG for the color type.
func (r *Result) PNG(c Compression) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.WritePNG(&buf, c); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WritePNG encodes the image to w. Errors match ErrHeader or ErrImageData
// depending on how far the encoder got; the Result is never modified.
//
// The color type is RGBA (6) whenever any pixel is translucent, which is
// the case for every image with noise enabled. A fully opaque image, such
// as one generated with WithNoise(0, 0), is written as RGB (2) because
// image/png drops a constant alpha channel. Decoding either form yields
// the same pixels.
func (r *Result) WritePNG(w io.Writer, c Compression) error {
	if len(r.buf.Pix) != r.buf.Width*r.buf.Height*4 {
		return &encodeError{kind: ErrImageData, err: errors.New("pixel buffer size mismatch")}
	}
	cw := &countingWriter{w: w}
	enc := png.Encoder{CompressionLevel: c.level()}
	if err := enc.Encode(cw, r.buf.NRGBA()); err != nil {
		if cw.n < pngHeaderSize {
			return &encodeError{kind: ErrHeader, err: err}
		}
		return &encodeError{kind: ErrImageData, err: err}
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
