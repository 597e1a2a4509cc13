// mask.go - Single-channel coverage masks.
package canvas

import (
	"image"
	"image/color"
)

// Mask is a single-channel coverage bitmap: 0 is no ink, 255 is full ink.
// len(Pix) is always Width*Height.
type Mask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewMask allocates an empty mask.
func NewMask(width, height int) *Mask {
	width = max(width, 0)
	height = max(height, 0)
	return &Mask{Width: width, Height: height, Pix: make([]uint8, width*height)}
}

// MaskFromAlpha copies an image.Alpha into a new mask.
func MaskFromAlpha(a *image.Alpha) *Mask {
	r := a.Bounds()
	m := NewMask(r.Dx(), r.Dy())
	for y := 0; y < m.Height; y++ {
		off := a.PixOffset(r.Min.X, r.Min.Y+y)
		copy(m.Pix[y*m.Width:(y+1)*m.Width], a.Pix[off:off+m.Width])
	}
	return m
}

// Alpha returns an image.Alpha view sharing Pix with the mask.
func (m *Mask) Alpha() *image.Alpha {
	return &image.Alpha{
		Pix:    m.Pix,
		Stride: m.Width,
		Rect:   image.Rect(0, 0, m.Width, m.Height),
	}
}

// At returns the coverage at (x, y), or 0 when out of bounds.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Pix[y*m.Width+x]
}

// Tint converts the mask into an RGBA buffer. Covered pixels take c's color
// with alpha equal to the coverage (scaled by c.A); uncovered pixels stay
// fully transparent.
func (m *Mask) Tint(c color.NRGBA) *Buffer {
	b := New(m.Width, m.Height)
	for i, cov := range m.Pix {
		if cov == 0 {
			continue
		}
		a := cov
		if c.A != 0xff {
			a = uint8((uint32(cov)*uint32(c.A) + 0x7f) / 0xff)
			if a == 0 {
				continue
			}
		}
		p := b.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = c.R, c.G, c.B, a
	}
	return b
}

// OverlayMax composites top onto bottom at (x, y), keeping the higher
// coverage of the two at every overlapping pixel. Clipping follows Overlay.
func OverlayMax(bottom, top *Mask, x, y int) {
	r := overlayBounds(bottom.Width, bottom.Height, top.Width, top.Height, x, y)
	if r.Empty() {
		return
	}
	for by := r.Min.Y; by < r.Max.Y; by++ {
		dst := bottom.Pix[by*bottom.Width+r.Min.X : by*bottom.Width+r.Max.X]
		ty := by - y
		src := top.Pix[ty*top.Width+r.Min.X-x : ty*top.Width+r.Max.X-x]
		for i, v := range src {
			if v > dst[i] {
				dst[i] = v
			}
		}
	}
}
