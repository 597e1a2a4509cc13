package glyph

import (
	"image/color"

	"github.com/xob0t/inkblot/pkg/canvas"
)

// Rasterize renders a laid-out line into a single tinted RGBA image.
//
// The image spans from the leftmost ink (or the pen origin, whichever is
// further left) to the rightmost ink, and is as tall as the layout's line
// height. A glyph whose ink starts left of the pen is shifted right so none
// of it is clipped. Glyph coverage is merged with a max rule, so
// overlapping glyphs never erase each other. Covered pixels become
// (c.R, c.G, c.B, coverage); everything else is transparent.
//
// l must contain at least one glyph. An empty layout only arises from an
// empty string, which callers reject before getting here.
func Rasterize(l Layout, c color.NRGBA) *canvas.Buffer {
	if len(l.Glyphs) == 0 {
		panic("glyph: Rasterize called with an empty layout")
	}
	left, right := 0, 0
	for _, g := range l.Glyphs {
		if g.Mask == nil {
			continue
		}
		left = min(left, g.X)
		right = max(right, g.X+g.Width)
	}
	cov := canvas.NewMask(right-left, l.Height)
	for _, g := range l.Glyphs {
		if g.Mask != nil {
			canvas.OverlayMax(cov, g.Mask, g.X-left, g.Y)
		}
	}
	return cov.Tint(c)
}
