// validator.go - Sanity-check presets and describe them.
package preset

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/xob0t/inkblot/pkg/captcha"
)

// Validate checks a defaulted preset for values that will not render the
// way the author probably intended. It returns warnings, never fatal errors;
// generation clamps or swaps whatever it can.
func Validate(p *Preset) []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if p.Canvas.Preset != "" {
		if _, ok := Presets[p.Canvas.Preset]; !ok {
			warn("unknown canvas preset %q, using %dx%d", p.Canvas.Preset, p.Canvas.Width, p.Canvas.Height)
		}
	}

	n := p.Challenge.Length
	if p.Challenge.Text != "" {
		n = utf8.RuneCountInString(p.Challenge.Text)
		if p.Challenge.Charset != "" {
			warn("challenge.text is set, challenge.charset is ignored")
		}
	}
	if n > p.Canvas.Width {
		warn("%d characters do not fit on a %d pixel wide canvas", n, p.Canvas.Width)
	}

	checkChannel := func(name string, r *captcha.Range) {
		if r == nil {
			return
		}
		if r.Min < 0 || r.Max > 255 {
			warn("%s range %d-%d is clamped to 0-255", name, r.Min, r.Max)
		}
		if r.Min > r.Max {
			warn("%s range %d-%d is reversed", name, r.Min, r.Max)
		}
	}
	checkChannel("palette.background", p.Palette.Background)
	checkChannel("palette.ink", p.Palette.Ink)

	checkCount := func(name string, r *captcha.Range) {
		if r == nil {
			return
		}
		if r.Min < 0 {
			warn("%s range %d-%d has a negative minimum", name, r.Min, r.Max)
		}
		if r.Min > r.Max {
			warn("%s range %d-%d is reversed", name, r.Min, r.Max)
		}
	}
	checkCount("strokes.lines", p.Strokes.Lines)
	checkCount("strokes.curves", p.Strokes.Curves)

	if p.Noise.StdDev != nil && *p.Noise.StdDev < 0 {
		warn("noise.stddev %.1f is negative", *p.Noise.StdDev)
	}

	if _, err := captcha.ParseCompression(p.Output.Compression); err != nil {
		warn("unknown output.compression %q, using default", p.Output.Compression)
	}
	if p.Output.Scale > MaxScale {
		warn("output.scale %d is above %d", p.Output.Scale, MaxScale)
	}

	if bg, ink := p.Palette.Background, p.Palette.Ink; bg != nil && ink != nil {
		if ink.Max >= bg.Min {
			warn("ink range %d-%d overlaps background %d-%d; text may be unreadable", ink.Min, ink.Max, bg.Min, bg.Max)
		}
	}
	return warnings
}

// FormatSchema returns a human-readable description of the preset.
func FormatSchema(p *Preset) string {
	var s strings.Builder
	name := p.Meta.Name
	if name == "" {
		name = "(unnamed)"
	}
	fmt.Fprintf(&s, "Preset: %s", name)
	if p.Meta.Version != "" {
		fmt.Fprintf(&s, " (v%s)", p.Meta.Version)
	}
	if p.Meta.Author != "" {
		fmt.Fprintf(&s, " by %s", p.Meta.Author)
	}
	s.WriteString("\n")
	if p.Meta.Description != "" {
		s.WriteString(p.Meta.Description + "\n")
	}
	s.WriteString("\n")

	field := func(k, v string) { fmt.Fprintf(&s, "  %-12s %s\n", k+":", v) }

	field("canvas", fmt.Sprintf("%dx%d", p.Canvas.Width, p.Canvas.Height))
	font := p.Font.Path
	if font == "" {
		font = "embedded Go Regular"
	}
	field("font", fmt.Sprintf("%s @ %.0fpx", font, p.Font.Scale))
	switch {
	case p.Challenge.Text != "":
		field("challenge", fmt.Sprintf("fixed %q", p.Challenge.Text))
	case p.Challenge.Charset != "":
		field("challenge", fmt.Sprintf("%d chars from %q", p.Challenge.Length, p.Challenge.Charset))
	default:
		field("challenge", fmt.Sprintf("%d chars, digits and letters", p.Challenge.Length))
	}
	field("background", formatRange(p.Palette.Background))
	field("ink", formatRange(p.Palette.Ink))
	field("lines", formatRange(p.Strokes.Lines))
	field("curves", formatRange(p.Strokes.Curves))
	field("stroke", fmt.Sprintf("%.1fpx", p.Strokes.Width))
	field("noise", fmt.Sprintf("mean %.1f, stddev %.1f", deref(p.Noise.Mean, 0), deref(p.Noise.StdDev, 0)))
	field("output", fmt.Sprintf("png %s, x%d", p.Output.Compression, p.Output.Scale))
	return s.String()
}

func formatRange(r *captcha.Range) string {
	if r == nil {
		return "default"
	}
	if r.Min == r.Max {
		return fmt.Sprint(r.Min)
	}
	return fmt.Sprintf("%d-%d", r.Min, r.Max)
}
