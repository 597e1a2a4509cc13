package glyph

import (
	"image/color"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func TestNewFontRejectsGarbage(t *testing.T) {
	_, err := NewFont([]byte("definitely not a font"), 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidFont))
}

func TestNewFontScale(t *testing.T) {
	f, err := NewFont(goregular.TTF, 0)
	require.NoError(t, err)
	assert.Equal(t, float64(DefaultScale), f.Scale())

	f, err = NewFont(goregular.TTF, 24)
	require.NoError(t, err)
	assert.Equal(t, 24.0, f.Scale())
	assert.NotEmpty(t, f.Name())
}

func TestLoadFont(t *testing.T) {
	f, err := LoadFont("", 32)
	require.NoError(t, err)
	assert.True(t, f.HasGlyph('A'))

	_, err = LoadFont("/nonexistent/font.ttf", 32)
	assert.Error(t, err)
}

func TestCoverage(t *testing.T) {
	f := DefaultFont()
	buf := f.getBuffer()
	gid, err := f.parsed.GlyphIndex(buf, 'H')
	f.bufs.Put(buf)
	require.NoError(t, err)

	m, origin, err := f.Coverage(Key{GID: uint16(gid), Size: 40, Rune: 'H'})
	require.NoError(t, err)
	assert.Greater(t, m.Width, 0)
	assert.Greater(t, m.Height, 20)
	assert.Less(t, origin.Y, 0, "H sits above the baseline")

	var full int
	for _, v := range m.Pix {
		if v == 0xff {
			full++
		}
	}
	assert.Greater(t, full, 0, "stems of H are fully covered")
}

func TestLayoutText(t *testing.T) {
	f := DefaultFont()

	l, err := LayoutText([]*Font{f}, "AV", 30)
	require.NoError(t, err)
	require.Len(t, l.Glyphs, 2)
	assert.Greater(t, l.Height, 0)
	assert.Less(t, l.Glyphs[0].X, l.Glyphs[1].X)
	for _, g := range l.Glyphs {
		assert.Equal(t, 0, g.FontIndex)
		assert.Equal(t, 30.0, g.Key.Size)
		assert.GreaterOrEqual(t, g.Y, -2)
		assert.LessOrEqual(t, g.Y+g.Height, l.Height+2)
	}
	assert.Equal(t, 'A', l.Glyphs[0].Key.Rune)
	assert.Equal(t, 'V', l.Glyphs[1].Key.Rune)

	_, err = LayoutText(nil, "A", 30)
	assert.ErrorIs(t, err, ErrNoFonts)

	empty, err := LayoutText([]*Font{f}, "", 30)
	require.NoError(t, err)
	assert.Empty(t, empty.Glyphs)
}

func TestLayoutTextUsesScaleWhenSizeUnset(t *testing.T) {
	f, err := NewFont(goregular.TTF, 18)
	require.NoError(t, err)

	l, err := LayoutText([]*Font{f}, "x", 0)
	require.NoError(t, err)
	require.Len(t, l.Glyphs, 1)
	assert.Equal(t, 18.0, l.Glyphs[0].Key.Size)
}

func TestLayoutTextFallback(t *testing.T) {
	primary := DefaultFont()
	mono, err := NewFont(gomono.TTF, 0)
	require.NoError(t, err)
	fonts := []*Font{primary, mono}

	l, err := LayoutText(fonts, "ab", 20)
	require.NoError(t, err)
	require.Len(t, l.Glyphs, 2)
	for _, g := range l.Glyphs {
		assert.Equal(t, 0, g.FontIndex, "primary font covers ASCII")
	}

	idx, gid, adv, ok := fallback(fonts, 'a', 20)
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.NotZero(t, gid)
	assert.Greater(t, adv.Ceil(), 0)

	_, _, _, ok = fallback(fonts[:1], 'a', 20)
	assert.False(t, ok)
}

func TestRasterize(t *testing.T) {
	f := DefaultFont()
	ink := color.NRGBA{R: 20, G: 40, B: 60, A: 255}

	l, err := LayoutText([]*Font{f}, "W", 40)
	require.NoError(t, err)

	img := Rasterize(l, ink)
	g := l.Glyphs[0]
	require.NotNil(t, g.Mask)
	assert.Equal(t, g.X+g.Width-min(g.X, 0), img.Width)
	assert.Equal(t, l.Height, img.Height)
	require.Len(t, img.Pix, img.Width*img.Height*4)

	var inked int
	for i := 0; i < len(img.Pix); i += 4 {
		p := img.Pix[i : i+4]
		if p[3] == 0 {
			assert.Equal(t, []uint8{0, 0, 0, 0}, []uint8(p))
			continue
		}
		inked++
		assert.Equal(t, []uint8{ink.R, ink.G, ink.B}, []uint8(p[:3]))
	}
	assert.Greater(t, inked, 0)
}

func TestRasterizeKeepsNegativeBearing(t *testing.T) {
	f := DefaultFont()
	for _, s := range []string{"j", "f", "y", "J", "A", "W", "Å", "jj"} {
		l, err := LayoutText([]*Font{f}, s, 40)
		require.NoError(t, err)

		var want int
		for _, g := range l.Glyphs {
			m, _, err := f.Coverage(g.Key)
			require.NoError(t, err)
			assert.Equal(t, m.Pix, g.Mask.Pix, "%q carries the same coverage it rasterizes", s)
			for _, v := range m.Pix {
				want += int(v)
			}
		}

		img := Rasterize(l, color.NRGBA{A: 255})
		var got int
		for i := 3; i < len(img.Pix); i += 4 {
			got += int(img.Pix[i])
		}
		if len(l.Glyphs) == 1 {
			assert.Equal(t, want, got, "%q lost ink", s)
		} else {
			assert.LessOrEqual(t, got, want, "%q", s)
			assert.Greater(t, got, want/2, "%q", s)
		}
	}

	l, err := LayoutText([]*Font{f}, "j", 40)
	require.NoError(t, err)
	assert.Less(t, l.Glyphs[0].X, 0, "j hangs left of the pen")
}

func TestRasterizeEmptyLayoutPanics(t *testing.T) {
	assert.Panics(t, func() {
		Rasterize(Layout{Height: 10}, color.NRGBA{A: 255})
	})
}

func TestFontConcurrentUse(t *testing.T) {
	f := DefaultFont()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l, err := LayoutText([]*Font{f}, "Qg7", 24)
			if assert.NoError(t, err) {
				Rasterize(l, color.NRGBA{A: 255})
			}
		}()
	}
	wg.Wait()
}

func TestFitSize(t *testing.T) {
	tests := []struct {
		w, h, n, want int
	}{
		{160, 60, 4, 40},
		{160, 30, 4, 30},
		{10, 10, 10, 1},
		{1, 1, 1, 1},
		{5, 5, 0, 0},
		{3, 10, 4, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FitSize(tt.w, tt.h, tt.n), "FitSize(%d,%d,%d)", tt.w, tt.h, tt.n)
	}
}
