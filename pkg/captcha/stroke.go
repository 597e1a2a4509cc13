// stroke.go - Anti-aliased occlusion strokes.
package captcha

import (
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"golang.org/x/image/vector"

	"github.com/xob0t/inkblot/pkg/canvas"
)

type point struct {
	x, y float32
}

// randomPoint picks a pixel inside a w x h canvas and returns its center.
func randomPoint(src Source, w, h int) point {
	x := src.Range(0, w-1)
	y := src.Range(0, h-1)
	return point{float32(x) + 0.5, float32(y) + 0.5}
}

func drawLine(dst *canvas.Buffer, a, b point, width float32, c color.NRGBA) {
	strokePolyline(dst, []point{a, b}, width, c)
}

// drawCubic strokes the cubic Bézier from p0 to p3 with control points p1
// and p2.
func drawCubic(dst *canvas.Buffer, p0, p1, p2, p3 point, width float32, c color.NRGBA) {
	strokePolyline(dst, flattenCubic(p0, p1, p2, p3), width, c)
}

// flattenCubic approximates the curve with segments roughly two pixels long.
func flattenCubic(p0, p1, p2, p3 point) []point {
	hull := dist(p0, p1) + dist(p1, p2) + dist(p2, p3)
	n := int(math32.Ceil(hull / 2))
	n = min(max(n, 8), 512)

	pts := make([]point, 0, n+1)
	for i := 0; i <= n; i++ {
		t := float32(i) / float32(n)
		u := 1 - t
		b0 := u * u * u
		b1 := 3 * u * u * t
		b2 := 3 * u * t * t
		b3 := t * t * t
		pts = append(pts, point{
			x: b0*p0.x + b1*p1.x + b2*p2.x + b3*p3.x,
			y: b0*p0.y + b1*p1.y + b2*p2.y + b3*p3.y,
		})
	}
	return pts
}

// strokePolyline rasterizes pts as a chain of square-capped quads and
// composites the coverage onto dst in color c. Every quad winds the same way
// relative to its direction, so overlaps saturate instead of cancelling.
// Only the stroke's bounding box, clipped to dst, is rasterized.
func strokePolyline(dst *canvas.Buffer, pts []point, width float32, c color.NRGBA) {
	if len(pts) < 2 || width <= 0 || dst.Width == 0 || dst.Height == 0 {
		return
	}
	hw := width / 2
	r := strokeBounds(pts, hw).Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	moveTo := func(x, y float32) { z.MoveTo(x-ox, y-oy) }
	lineTo := func(x, y float32) { z.LineTo(x-ox, y-oy) }

	drawn := false
	for i := 1; i < len(pts); i++ {
		a, b := pts[i-1], pts[i]
		l := dist(a, b)
		if l == 0 {
			continue
		}
		// d runs along the segment, n across it; both have length hw.
		dx, dy := (b.x-a.x)/l*hw, (b.y-a.y)/l*hw
		nx, ny := -dy, dx
		moveTo(a.x-dx+nx, a.y-dy+ny)
		lineTo(b.x+dx+nx, b.y+dy+ny)
		lineTo(b.x+dx-nx, b.y+dy-ny)
		lineTo(a.x-dx-nx, a.y-dy-ny)
		z.ClosePath()
		drawn = true
	}
	if !drawn {
		// Degenerate stroke: a single dot.
		p := pts[0]
		moveTo(p.x-hw, p.y-hw)
		lineTo(p.x+hw, p.y-hw)
		lineTo(p.x+hw, p.y+hw)
		lineTo(p.x-hw, p.y+hw)
		z.ClosePath()
	}

	m := canvas.NewMask(r.Dx(), r.Dy())
	a := m.Alpha()
	z.Draw(a, a.Bounds(), image.Opaque, image.Point{})
	canvas.Overlay(dst, m.Tint(c), r.Min.X, r.Min.Y)
}

// strokeBounds returns the pixel rectangle covering pts padded by a
// square cap of half-width hw. The diagonal of the cap bounds any quad
// corner, so hw*sqrt2 is enough padding.
func strokeBounds(pts []point, hw float32) image.Rectangle {
	minX, minY := pts[0].x, pts[0].y
	maxX, maxY := minX, minY
	for _, p := range pts[1:] {
		minX, maxX = min(minX, p.x), max(maxX, p.x)
		minY, maxY = min(minY, p.y), max(maxY, p.y)
	}
	pad := hw * math32.Sqrt2
	return image.Rect(
		int(math32.Floor(minX-pad)), int(math32.Floor(minY-pad)),
		int(math32.Ceil(maxX+pad)), int(math32.Ceil(maxY+pad)),
	)
}

func dist(a, b point) float32 {
	dx, dy := b.x-a.x, b.y-a.y
	return math32.Sqrt(dx*dx + dy*dy)
}
