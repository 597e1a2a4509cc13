// Package canvas provides the RGBA pixel buffer and the compositing
// primitives the CAPTCHA pipeline draws with.
//
// Pixels are stored row-major as straight (non-premultiplied) RGBA, four
// bytes per pixel. Public accessors are bounds-checked; the unchecked paths
// are private and only used after the caller has clipped its region against
// the buffer bounds.
package canvas

import (
	"image"
	"image/color"
	"image/draw"
)

// Buffer is an owned RGBA pixel buffer. len(Pix) is always Width*Height*4.
type Buffer struct {
	Width  int
	Height int
	Pix    []uint8
}

// New allocates a zeroed (fully transparent) buffer.
// Negative dimensions are treated as zero.
func New(width, height int) *Buffer {
	width = max(width, 0)
	height = max(height, 0)
	return &Buffer{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height*4),
	}
}

// NewFilled allocates a buffer with every pixel set to c.
func NewFilled(width, height int, c color.NRGBA) *Buffer {
	b := New(width, height)
	b.Fill(c)
	return b
}

// FromImage copies any image into a new buffer, converting to straight RGBA.
func FromImage(img image.Image) *Buffer {
	bounds := img.Bounds()
	b := New(bounds.Dx(), bounds.Dy())
	if src, ok := img.(*image.NRGBA); ok {
		// Straight alpha already; copy rows so low-alpha pixels keep their color.
		for y := 0; y < b.Height; y++ {
			off := src.PixOffset(bounds.Min.X, bounds.Min.Y+y)
			copy(b.Pix[y*b.Width*4:(y+1)*b.Width*4], src.Pix[off:off+b.Width*4])
		}
		return b
	}
	dst := b.NRGBA()
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return b
}

// Bounds returns the rectangle (0, 0)-(Width, Height).
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.Width, b.Height)
}

// NRGBA returns an image.NRGBA view sharing Pix with the buffer.
// Writes through the view are visible in the buffer and vice versa.
func (b *Buffer) NRGBA() *image.NRGBA {
	return &image.NRGBA{
		Pix:    b.Pix,
		Stride: b.Width * 4,
		Rect:   b.Bounds(),
	}
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	pix := make([]uint8, len(b.Pix))
	copy(pix, b.Pix)
	return &Buffer{Width: b.Width, Height: b.Height, Pix: pix}
}

// At returns the pixel at (x, y). ok is false when (x, y) is out of bounds.
func (b *Buffer) At(x, y int) (c color.NRGBA, ok bool) {
	if !b.inBounds(x, y) {
		return color.NRGBA{}, false
	}
	return b.getUnchecked(x, y), true
}

// Set writes c at (x, y). It reports false and does nothing when (x, y) is
// out of bounds.
func (b *Buffer) Set(x, y int, c color.NRGBA) bool {
	if !b.inBounds(x, y) {
		return false
	}
	b.setUnchecked(x, y, c)
	return true
}

// Fill sets every pixel to c.
func (b *Buffer) Fill(c color.NRGBA) {
	if len(b.Pix) == 0 {
		return
	}
	// Seed the first pixel, then double the filled prefix with copy.
	b.Pix[0], b.Pix[1], b.Pix[2], b.Pix[3] = c.R, c.G, c.B, c.A
	for n := 4; n < len(b.Pix); n *= 2 {
		copy(b.Pix[n:], b.Pix[:n])
	}
}

// FillRect writes c into every pixel of r that lies inside the buffer.
// A rectangle entirely outside the buffer is a no-op.
func (b *Buffer) FillRect(r image.Rectangle, c color.NRGBA) {
	clip := r.Canon().Intersect(b.Bounds())
	if clip.Empty() {
		return
	}
	for y := clip.Min.Y; y < clip.Max.Y; y++ {
		for x := clip.Min.X; x < clip.Max.X; x++ {
			b.setUnchecked(x, y, c)
		}
	}
}

func (b *Buffer) inBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < b.Width && y < b.Height
}

// pixOffset returns the index of the first byte of (x, y) in Pix.
// Caller guarantees (x, y) is inside the buffer.
func (b *Buffer) pixOffset(x, y int) int {
	return (y*b.Width + x) * 4
}

// getUnchecked reads (x, y) without a bounds check.
// Caller guarantees (x, y) is inside the buffer.
func (b *Buffer) getUnchecked(x, y int) color.NRGBA {
	i := b.pixOffset(x, y)
	s := b.Pix[i : i+4 : i+4]
	return color.NRGBA{R: s[0], G: s[1], B: s[2], A: s[3]}
}

// setUnchecked writes (x, y) without a bounds check.
// Caller guarantees (x, y) is inside the buffer.
func (b *Buffer) setUnchecked(x, y int, c color.NRGBA) {
	i := b.pixOffset(x, y)
	s := b.Pix[i : i+4 : i+4]
	s[0], s[1], s[2], s[3] = c.R, c.G, c.B, c.A
}
