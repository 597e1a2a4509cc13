// loader.go - Load .inkpreset (ZIP) bundles and parse preset.json.
package preset

import (
	"archive/zip"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/glyph"
)

// maxEntrySize caps any single file read out of a bundle.
const maxEntrySize = 32 << 20

// Bundle is a preset together with the font file shipped next to it.
type Bundle struct {
	Preset *Preset
	Font   []byte // nil when the preset uses the embedded font
}

// LoadBundle opens a .inkpreset ZIP and reads it entirely in memory.
// preset.json is required; Font.Path, when set, must name an entry in the
// archive.
func LoadBundle(path string) (*Bundle, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		// Guard against zip slip.
		if !filepath.IsLocal(f.Name) {
			return nil, errors.Errorf("illegal path in zip: %s", f.Name)
		}
		if f.FileInfo().IsDir() {
			continue
		}
		files[filepath.ToSlash(filepath.Clean(f.Name))] = f
	}

	pf, ok := files["preset.json"]
	if !ok {
		return nil, errors.Errorf("%s: missing preset.json", path)
	}
	data, err := readEntry(pf)
	if err != nil {
		return nil, errors.Wrap(err, "read preset.json")
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}

	b := &Bundle{Preset: p}
	if p.Font.Path != "" {
		ff, ok := files[filepath.ToSlash(filepath.Clean(p.Font.Path))]
		if !ok {
			return nil, errors.Errorf("%s: font %q not found in bundle", path, p.Font.Path)
		}
		if b.Font, err = readEntry(ff); err != nil {
			return nil, errors.Wrapf(err, "read %s", p.Font.Path)
		}
	}
	return b, nil
}

// LoadFont parses the bundled font, or returns the embedded one.
func (b *Bundle) LoadFont() (*glyph.Font, error) {
	if b.Font == nil {
		return glyph.LoadFont("", b.Preset.Font.Scale)
	}
	return glyph.NewFont(b.Font, b.Preset.Font.Scale)
}

func readEntry(f *zip.File) ([]byte, error) {
	if f.UncompressedSize64 > maxEntrySize {
		return nil, errors.Errorf("%s is too large (%d bytes)", f.Name, f.UncompressedSize64)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, maxEntrySize))
}

// ParsePresetFile loads a standalone preset JSON file. A relative Font.Path
// is resolved against the file's directory.
func ParsePresetFile(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read preset")
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if p.Font.Path != "" && !filepath.IsAbs(p.Font.Path) {
		p.Font.Path = filepath.Join(filepath.Dir(path), p.Font.Path)
	}
	return p, nil
}

// Parse decodes preset JSON and applies defaults.
func Parse(data []byte) (*Preset, error) {
	var p Preset
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, errors.Wrap(err, "parse preset JSON")
	}
	p.ApplyDefaults()
	return &p, nil
}

// LoadFont loads the font named by Font.Path, or the embedded font.
func (p *Preset) LoadFont() (*glyph.Font, error) {
	return glyph.LoadFont(p.Font.Path, p.Font.Scale)
}

// ApplyDefaults fills every unset field. A named canvas preset replaces
// explicit dimensions.
func (p *Preset) ApplyDefaults() {
	if dims, ok := Presets[p.Canvas.Preset]; ok {
		p.Canvas.Width, p.Canvas.Height = dims[0], dims[1]
	}
	if p.Canvas.Width <= 0 || p.Canvas.Height <= 0 {
		dims := Presets[DefaultCanvas]
		if p.Canvas.Width <= 0 {
			p.Canvas.Width = dims[0]
		}
		if p.Canvas.Height <= 0 {
			p.Canvas.Height = dims[1]
		}
	}
	if p.Font.Scale <= 0 {
		p.Font.Scale = glyph.DefaultScale
	}
	if p.Challenge.Length <= 0 {
		p.Challenge.Length = captchaDefaultLength
	}
	p.Palette.Background = orRange(p.Palette.Background, defaultBackground)
	p.Palette.Ink = orRange(p.Palette.Ink, defaultInk)
	p.Strokes.Lines = orRange(p.Strokes.Lines, defaultLines)
	p.Strokes.Curves = orRange(p.Strokes.Curves, defaultCurves)
	if p.Strokes.Width <= 0 {
		p.Strokes.Width = defaultStrokeWidth
	}
	p.Noise.Mean = orFloat(p.Noise.Mean, defaultNoiseMean)
	p.Noise.StdDev = orFloat(p.Noise.StdDev, defaultNoiseStdDev)
	if p.Output.Compression == "" {
		p.Output.Compression = "default"
	}
	if p.Output.Scale <= 0 {
		p.Output.Scale = 1
	}
}
