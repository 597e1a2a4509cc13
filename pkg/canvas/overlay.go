// overlay.go - Clipped alpha compositing of one buffer onto another.
package canvas

import (
	"image"
	"image/color"
)

// overlayBounds returns the region of a bottom of size (bw, bh) that is
// covered by a top of size (tw, th) placed at (x, y). The result is in bottom
// coordinates and is empty when the two do not overlap.
func overlayBounds(bw, bh, tw, th, x, y int) image.Rectangle {
	placed := image.Rect(x, y, x+tw, y+th)
	return placed.Intersect(image.Rect(0, 0, bw, bh))
}

// Overlay alpha-blends top onto bottom with top's origin at (x, y) using the
// "over" operator. Offsets may be negative; pixels falling outside bottom are
// dropped. Placing top entirely outside bottom is a no-op.
func Overlay(bottom, top *Buffer, x, y int) {
	r := overlayBounds(bottom.Width, bottom.Height, top.Width, top.Height, x, y)
	if r.Empty() {
		return
	}
	// Every (bx, by) in r maps to (bx-x, by-y) inside top, so the unchecked
	// accessors below stay in range on both buffers.
	for by := r.Min.Y; by < r.Max.Y; by++ {
		for bx := r.Min.X; bx < r.Max.X; bx++ {
			src := top.getUnchecked(bx-x, by-y)
			switch src.A {
			case 0:
				continue
			case 0xff:
				bottom.setUnchecked(bx, by, src)
			default:
				bottom.setUnchecked(bx, by, blend(bottom.getUnchecked(bx, by), src))
			}
		}
	}
}

// blend composes src over dst for straight-alpha pixels.
//
//	a = sa + da*(1-sa)
//	c = (sc*sa + dc*da*(1-sa)) / a
func blend(dst, src color.NRGBA) color.NRGBA {
	sa := uint32(src.A)
	da := uint32(dst.A) * (0xff - sa) // scaled by 255
	sa *= 0xff                        // scaled by 255
	a := sa + da                      // out alpha scaled by 255*255
	if a == 0 {
		return color.NRGBA{}
	}
	mix := func(s, d uint8) uint8 {
		return uint8((uint32(s)*sa + uint32(d)*da + a/2) / a)
	}
	return color.NRGBA{
		R: mix(src.R, dst.R),
		G: mix(src.G, dst.G),
		B: mix(src.B, dst.B),
		A: uint8((a + 0x7f) / 0xff),
	}
}
