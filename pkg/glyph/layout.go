package glyph

import (
	"image"
	"sync"

	"github.com/go-text/typesetting/di"
	gotext "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"github.com/pkg/errors"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/xob0t/inkblot/pkg/canvas"
)

// ErrNoFonts is returned by LayoutText when the font list is empty.
var ErrNoFonts = errors.New("glyph: no fonts to lay out with")

// Key identifies one rasterization of a glyph.
type Key struct {
	GID  uint16
	Size float64
	Rune rune
}

// Glyph is a positioned glyph bitmap within a single-line layout.
// X, Y is the top-left corner of the bitmap, Y increasing downward from the
// top of the line. X is negative for a first glyph whose ink starts left of
// the pen, such as 'j'.
type Glyph struct {
	FontIndex int
	Key       Key
	X, Y      int
	Width     int
	Height    int
	// Mask is the glyph's coverage, nil for glyphs without ink.
	Mask      *canvas.Mask
}

// Layout is the result of laying out one line of text.
type Layout struct {
	Glyphs []Glyph
	// Height is the line height in pixels.
	Height int
	// Advance is the pen position after the last glyph.
	Advance int
}

// HarfbuzzShaper keeps internal buffers and is not safe for concurrent use.
var shapers = sync.Pool{
	New: func() any { return &shaping.HarfbuzzShaper{} },
}

// LayoutText shapes text as a single left-to-right line at the given pixel
// size with the first font, falling back to later fonts for runes the first
// one lacks. A size <= 0 selects the first font's nominal scale.
func LayoutText(fonts []*Font, text string, size float64) (Layout, error) {
	if len(fonts) == 0 {
		return Layout{}, ErrNoFonts
	}
	primary := fonts[0]
	if size <= 0 {
		size = primary.scale
	}
	ascent, _, height := primary.LineMetrics(size)
	l := Layout{Height: height}

	runes := []rune(text)
	if len(runes) == 0 {
		return l, nil
	}

	input := shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      gotext.NewFace(primary.shaped),
		Size:      toFixed(size),
		Script:    detectScript(runes),
		Language:  language.NewLanguage("en"),
	}
	hb := shapers.Get().(*shaping.HarfbuzzShaper)
	out := hb.Shape(input)
	shapers.Put(hb)

	var pen fixed.Int26_6
	l.Glyphs = make([]Glyph, 0, len(out.Glyphs))
	for _, sg := range out.Glyphs {
		r := runeAt(runes, sg.TextIndex())
		idx, gid := 0, uint16(sg.GlyphID)
		advance := sg.Advance
		if gid == 0 {
			if fi, fgid, adv, ok := fallback(fonts, r, size); ok {
				idx, gid, advance = fi, fgid, adv
			}
		}

		key := Key{GID: gid, Size: size, Rune: r}
		m, origin, err := fonts[idx].Coverage(key)
		if err != nil {
			// Colored or missing outlines carry no ink.
			origin = image.Point{}
			m = nil
		}
		g := Glyph{
			FontIndex: idx,
			Key:       key,
			X:         (pen + sg.XOffset).Round() + origin.X,
			Y:         ascent - sg.YOffset.Round() + origin.Y,
		}
		if m != nil && m.Width > 0 && m.Height > 0 {
			g.Width, g.Height, g.Mask = m.Width, m.Height, m
		}
		l.Glyphs = append(l.Glyphs, g)
		pen += advance
	}
	l.Advance = pen.Ceil()
	return l, nil
}

// fallback finds the first font after the primary one that maps r.
func fallback(fonts []*Font, r rune, size float64) (idx int, gid uint16, advance fixed.Int26_6, ok bool) {
	for i := 1; i < len(fonts); i++ {
		f := fonts[i]
		buf := f.getBuffer()
		x, err := f.parsed.GlyphIndex(buf, r)
		if err != nil || x == 0 {
			f.bufs.Put(buf)
			continue
		}
		adv, err := f.parsed.GlyphAdvance(buf, x, toFixed(size), font.HintingNone)
		f.bufs.Put(buf)
		if err != nil {
			continue
		}
		return i, uint16(x), adv, true
	}
	return 0, 0, 0, false
}

func runeAt(runes []rune, i int) rune {
	if i < 0 || i >= len(runes) {
		return 0
	}
	return runes[i]
}

// detectScript returns the script of the first non-space rune.
func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

// FitSize returns the uniform font size that lets chars equally-advanced
// characters fit a width x height canvas: min(height, width/chars).
// It returns 0 when chars < 1.
func FitSize(width, height, chars int) int {
	if chars < 1 {
		return 0
	}
	return min(height, width/chars)
}
