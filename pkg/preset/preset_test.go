package preset

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"

	"github.com/xob0t/inkblot/pkg/captcha"
	"github.com/xob0t/inkblot/pkg/glyph"
)

func TestParseAppliesDefaults(t *testing.T) {
	p, err := Parse([]byte(`{}`))
	require.NoError(t, err)

	assert.Equal(t, 160, p.Canvas.Width)
	assert.Equal(t, 60, p.Canvas.Height)
	assert.Equal(t, float64(glyph.DefaultScale), p.Font.Scale)
	assert.Equal(t, captcha.DefaultLength, p.Challenge.Length)
	assert.Equal(t, captcha.DefaultBackground, *p.Palette.Background)
	assert.Equal(t, captcha.DefaultInk, *p.Palette.Ink)
	assert.Equal(t, captcha.DefaultLines, *p.Strokes.Lines)
	assert.Equal(t, captcha.DefaultCurves, *p.Strokes.Curves)
	assert.Equal(t, captcha.DefaultStrokeWidth, p.Strokes.Width)
	assert.Equal(t, captcha.DefaultNoiseMean, *p.Noise.Mean)
	assert.Equal(t, captcha.DefaultNoiseStdDev, *p.Noise.StdDev)
	assert.Equal(t, "default", p.Output.Compression)
	assert.Equal(t, 1, p.Output.Scale)
}

func TestParseKeepsExplicitZeros(t *testing.T) {
	p, err := Parse([]byte(`{
		"strokes": {"lines": {"min": 0, "max": 0}},
		"noise": {"mean": 0, "stddev": 0}
	}`))
	require.NoError(t, err)
	assert.Equal(t, captcha.Range{}, *p.Strokes.Lines)
	assert.Zero(t, *p.Noise.Mean)
	assert.Zero(t, *p.Noise.StdDev)
}

func TestNamedCanvasOverridesDimensions(t *testing.T) {
	p, err := Parse([]byte(`{"canvas": {"preset": "wide", "width": 999, "height": 999}}`))
	require.NoError(t, err)
	assert.Equal(t, 240, p.Canvas.Width)
	assert.Equal(t, 80, p.Canvas.Height)
}

func TestParseRejectsBadJSON(t *testing.T) {
	_, err := Parse([]byte(`{"canvas": `))
	assert.Error(t, err)
}

func TestExampleJSONParsesCleanly(t *testing.T) {
	p, err := Parse([]byte(ExampleJSON()))
	require.NoError(t, err)
	assert.Equal(t, "Sample Preset", p.Meta.Name)
	assert.Empty(t, Validate(p))
	assert.Contains(t, FormatSchema(p), "Sample Preset")
	assert.Contains(t, FormatSchema(p), "160x60")
}

func TestMerge(t *testing.T) {
	base, err := Parse([]byte(ExampleJSON()))
	require.NoError(t, err)

	ink := captcha.Range{Min: 10, Max: 20}
	zero := 0.0
	over := &Preset{
		Canvas:  Canvas{Width: 200},
		Palette: Palette{Ink: &ink},
		Noise:   Noise{StdDev: &zero},
		Output:  Output{Scale: 3},
	}
	got := Merge(base, over)

	assert.Equal(t, 200, got.Canvas.Width)
	assert.Equal(t, 60, got.Canvas.Height)
	assert.Equal(t, ink, *got.Palette.Ink)
	assert.Equal(t, captcha.DefaultBackground, *got.Palette.Background)
	assert.Zero(t, *got.Noise.StdDev)
	assert.Equal(t, 5.0, *got.Noise.Mean)
	assert.Equal(t, 3, got.Output.Scale)
	assert.Equal(t, 160, base.Canvas.Width, "base is untouched")

	got = Merge(base, &Preset{Canvas: Canvas{Preset: "large"}})
	assert.Equal(t, 320, got.Canvas.Width)
	assert.Equal(t, 120, got.Canvas.Height)

	assert.Equal(t, *base, *Merge(base, nil))
}

func TestValidateWarnings(t *testing.T) {
	p, err := Parse([]byte(`{
		"canvas": {"width": 4, "height": 10},
		"challenge": {"length": 6},
		"palette": {"background": {"min": 100, "max": 300}, "ink": {"min": 0, "max": 150}},
		"strokes": {"lines": {"min": 3, "max": 1}},
		"output": {"compression": "ultra", "scale": 20}
	}`))
	require.NoError(t, err)

	w := Validate(p)
	assert.Len(t, w, 6)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in   string
		want captcha.Range
	}{
		{"160-210", captcha.Range{Min: 160, Max: 210}},
		{" 1 - 2 ", captcha.Range{Min: 1, Max: 2}},
		{"7", captcha.Range{Min: 7, Max: 7}},
		{"-3", captcha.Range{Min: -3, Max: -3}},
		{"-3-4", captcha.Range{Min: -3, Max: 4}},
		{"-3--1", captcha.Range{Min: -3, Max: -1}},
	}
	for _, tt := range tests {
		got, err := ParseRange(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	for _, bad := range []string{"", "a-b", "1-", "x"} {
		_, err := ParseRange(bad)
		assert.Error(t, err, bad)
	}
}

func TestOptionsRender(t *testing.T) {
	p, err := Parse([]byte(`{"canvas": {"preset": "small"}, "challenge": {"charset": "ab"}, "noise": {"mean": 0, "stddev": 0}}`))
	require.NoError(t, err)

	f, err := p.LoadFont()
	require.NoError(t, err)
	opts := append(p.Options(), captcha.WithSource(captcha.NewSource(1)))
	res, err := captcha.New(f, p.Canvas.Width, p.Canvas.Height, p.Challenge.Length, opts...)
	require.NoError(t, err)
	assert.Equal(t, 120, res.Width())
	assert.Len(t, res.Solution(), captcha.DefaultLength)

	c, err := p.Compression()
	require.NoError(t, err)
	assert.Equal(t, captcha.CompressionDefault, c)
}

func writeBundle(t *testing.T, files map[string][]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.inkpreset")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, data := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadBundle(t *testing.T) {
	path := writeBundle(t, map[string][]byte{
		"preset.json":    []byte(`{"meta": {"name": "mono"}, "font": {"path": "fonts/mono.ttf", "scale": 30}}`),
		"fonts/mono.ttf": gomono.TTF,
		"README.txt":     []byte("ignored"),
	})
	b, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "mono", b.Preset.Meta.Name)
	assert.Equal(t, gomono.TTF, b.Font)

	f, err := b.LoadFont()
	require.NoError(t, err)
	assert.Equal(t, 30.0, f.Scale())
}

func TestLoadBundleErrors(t *testing.T) {
	_, err := LoadBundle(writeBundle(t, map[string][]byte{"other.json": []byte(`{}`)}))
	assert.ErrorContains(t, err, "missing preset.json")

	_, err = LoadBundle(writeBundle(t, map[string][]byte{
		"preset.json": []byte(`{"font": {"path": "nope.ttf"}}`),
	}))
	assert.ErrorContains(t, err, "not found in bundle")

	_, err = LoadBundle(writeBundle(t, map[string][]byte{
		"preset.json":   []byte(`{}`),
		"../escape.txt": []byte("x"),
	}))
	assert.Error(t, err, "entries escaping the bundle are rejected")

	_, err = LoadBundle(filepath.Join(t.TempDir(), "missing.inkpreset"))
	assert.Error(t, err)
}

func TestParsePresetFileResolvesFont(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mono.ttf"), gomono.TTF, 0o644))
	path := filepath.Join(dir, "preset.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"font": {"path": "mono.ttf"}}`), 0o644))

	p, err := ParsePresetFile(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mono.ttf"), p.Font.Path)

	f, err := p.LoadFont()
	require.NoError(t, err)
	assert.True(t, f.HasGlyph('x'))
}
