// Package preset provides JSON-driven CAPTCHA styles.
//
// A preset fixes the canvas size, the font, how challenges are drawn, and
// every knob of the distortion pipeline. Presets come from a plain
// preset.json or from a .inkpreset bundle (a ZIP holding preset.json and an
// optional font file).
package preset

import "github.com/xob0t/inkblot/pkg/captcha"

// Preset is the top-level structure of a preset.json file.
//
// Pointer fields distinguish "unset" from an explicit zero, which matters
// for Merge and for values where zero is meaningful (no lines, no noise).
type Preset struct {
	Meta      Meta       `json:"meta"`
	Canvas    Canvas     `json:"canvas"`
	Font      FontConfig `json:"font"`
	Challenge Challenge  `json:"challenge"`
	Palette   Palette    `json:"palette"`
	Strokes   Strokes    `json:"strokes"`
	Noise     Noise      `json:"noise"`
	Output    Output     `json:"output"`
}

// Meta holds preset metadata.
type Meta struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Author      string `json:"author"`
	Description string `json:"description"`
}

// Canvas defines output dimensions. Preset overrides explicit Width/Height.
type Canvas struct {
	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Preset string `json:"preset,omitempty"`
}

// FontConfig specifies the font source.
type FontConfig struct {
	Path  string  `json:"path,omitempty"`  // TTF/OTF path, relative to the bundle; empty = embedded Go Regular
	Scale float64 `json:"scale,omitempty"` // nominal pixel size
}

// Challenge controls the text drawn on the image.
type Challenge struct {
	Length  int    `json:"length,omitempty"`
	Charset string `json:"charset,omitempty"`
	Text    string `json:"text,omitempty"` // fixed text; mostly for previews
}

// Palette holds the channel ranges colors are sampled from.
type Palette struct {
	Background *captcha.Range `json:"background,omitempty"`
	Ink        *captcha.Range `json:"ink,omitempty"`
}

// Strokes controls the occlusion lines and curves.
type Strokes struct {
	Lines  *captcha.Range `json:"lines,omitempty"`
	Curves *captcha.Range `json:"curves,omitempty"`
	Width  float64        `json:"width,omitempty"`
}

// Noise configures the additive Gaussian noise. Both zero disables it.
type Noise struct {
	Mean   *float64 `json:"mean,omitempty"`
	StdDev *float64 `json:"stddev,omitempty"`
}

// Output controls serialization.
type Output struct {
	Compression string `json:"compression,omitempty"` // "default", "fast", "best"
	Scale       int    `json:"scale,omitempty"`       // integer upscaling factor
}

// Presets maps canvas preset names to [width, height].
var Presets = map[string][2]int{
	"small":    {120, 40},
	"standard": {160, 60},
	"wide":     {240, 80},
	"large":    {320, 120},
}

// DefaultCanvas is used when a preset names no size at all.
const DefaultCanvas = "standard"

// MaxScale bounds Output.Scale.
const MaxScale = 8
