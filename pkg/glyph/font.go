// font.go - Font handles with embedded fallback font.
// Uses golang.org/x/image/font/opentype for outlines and metrics and
// go-text/typesetting for shaping. Defaults to Go Regular when no custom
// font is given.
package glyph

import (
	"bytes"
	"image"
	"os"
	"sync"

	gotext "github.com/go-text/typesetting/font"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"

	"github.com/xob0t/inkblot/pkg/canvas"
)

// DefaultScale is the nominal size used when a font is created without one.
const DefaultScale = 40

// ErrInvalidFont is returned when font bytes cannot be parsed.
var ErrInvalidFont = errors.New("glyph: invalid font data")

// Font is a parsed font usable for both layout and coverage rasterization.
// A Font is read-only after construction and safe for concurrent use.
type Font struct {
	data   []byte
	scale  float64
	parsed *opentype.Font
	shaped *gotext.Font

	// bufs pools sfnt.Buffer values; an sfnt.Buffer must not be shared
	// between goroutines.
	bufs sync.Pool
}

// NewFont parses TrueType/OpenType data. scale is the nominal pixel size the
// font is used at when no explicit size is requested; values <= 0 select
// DefaultScale.
func NewFont(data []byte, scale float64) (*Font, error) {
	parsed, err := opentype.Parse(data)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidFont, err.Error())
	}
	face, err := gotext.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(ErrInvalidFont, err.Error())
	}
	if scale <= 0 {
		scale = DefaultScale
	}
	return &Font{
		data:   data,
		scale:  scale,
		parsed: parsed,
		shaped: face.Font,
		bufs:   sync.Pool{New: func() any { return new(sfnt.Buffer) }},
	}, nil
}

// LoadFont reads a font file. An empty path selects the embedded Go Regular
// font.
func LoadFont(path string, scale float64) (*Font, error) {
	if path == "" {
		return NewFont(goregular.TTF, scale)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "glyph: read font %s", path)
	}
	f, err := NewFont(data, scale)
	if err != nil {
		return nil, errors.Wrapf(err, "glyph: load %s", path)
	}
	return f, nil
}

var defaultFont = sync.OnceValue(func() *Font {
	f, err := NewFont(goregular.TTF, DefaultScale)
	if err != nil {
		panic(err) // embedded font is known-good
	}
	return f
})

// DefaultFont returns the shared embedded Go Regular font.
func DefaultFont() *Font {
	return defaultFont()
}

// Scale returns the nominal pixel size of the font.
func (f *Font) Scale() float64 {
	return f.scale
}

// Data returns the raw font bytes. The slice must not be modified.
func (f *Font) Data() []byte {
	return f.data
}

// Name returns the font's full name, or "" if it has none.
func (f *Font) Name() string {
	buf := f.getBuffer()
	defer f.bufs.Put(buf)
	name, err := f.parsed.Name(buf, sfnt.NameIDFull)
	if err != nil {
		return ""
	}
	return name
}

// HasGlyph reports whether the font maps r to a real glyph.
func (f *Font) HasGlyph(r rune) bool {
	buf := f.getBuffer()
	defer f.bufs.Put(buf)
	gid, err := f.parsed.GlyphIndex(buf, r)
	return err == nil && gid != 0
}

// LineMetrics returns the ascent, descent and line height in whole pixels at
// the given size.
func (f *Font) LineMetrics(size float64) (ascent, descent, height int) {
	buf := f.getBuffer()
	defer f.bufs.Put(buf)
	m, err := f.parsed.Metrics(buf, toFixed(size), font.HintingNone)
	if err != nil {
		s := int(size + 0.5)
		return s, 0, s
	}
	ascent = m.Ascent.Ceil()
	descent = m.Descent.Ceil()
	height = max(m.Height.Ceil(), ascent+descent)
	return ascent, descent, height
}

// Coverage rasterizes the glyph named by key. The returned mask is the
// glyph's ink, and origin is the position of the mask's top-left corner
// relative to the pen on the baseline (Y down). Glyphs without an outline
// yield an empty mask.
func (f *Font) Coverage(key Key) (m *canvas.Mask, origin image.Point, err error) {
	buf := f.getBuffer()
	defer f.bufs.Put(buf)

	segs, err := f.parsed.LoadGlyph(buf, sfnt.GlyphIndex(key.GID), toFixed(key.Size), nil)
	if err != nil {
		return nil, image.Point{}, errors.Wrapf(err, "glyph: load glyph %d", key.GID)
	}
	if len(segs) == 0 {
		return canvas.NewMask(0, 0), image.Point{}, nil
	}

	b := segs.Bounds()
	x0, y0 := b.Min.X.Floor(), b.Min.Y.Floor()
	x1, y1 := b.Max.X.Ceil(), b.Max.Y.Ceil()
	m = canvas.NewMask(x1-x0, y1-y0)

	z := vector.NewRasterizer(m.Width, m.Height)
	pt := func(p fixed.Point26_6) (float32, float32) {
		return float32(p.X)/64 - float32(x0), float32(p.Y)/64 - float32(y0)
	}
	open := false
	for _, s := range segs {
		switch s.Op {
		case sfnt.SegmentOpMoveTo:
			if open {
				z.ClosePath()
			}
			z.MoveTo(pt(s.Args[0]))
			open = true
		case sfnt.SegmentOpLineTo:
			z.LineTo(pt(s.Args[0]))
		case sfnt.SegmentOpQuadTo:
			bx, by := pt(s.Args[0])
			cx, cy := pt(s.Args[1])
			z.QuadTo(bx, by, cx, cy)
		case sfnt.SegmentOpCubeTo:
			bx, by := pt(s.Args[0])
			cx, cy := pt(s.Args[1])
			dx, dy := pt(s.Args[2])
			z.CubeTo(bx, by, cx, cy, dx, dy)
		}
	}
	if open {
		z.ClosePath()
	}
	dst := m.Alpha()
	z.Draw(dst, dst.Bounds(), image.Opaque, image.Point{})

	return m, image.Pt(x0, y0), nil
}

func (f *Font) getBuffer() *sfnt.Buffer {
	return f.bufs.Get().(*sfnt.Buffer)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(v*64 + 0.5)
}
