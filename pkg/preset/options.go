// options.go - Convert a preset into captcha options.
package preset

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/captcha"
)

const (
	captchaDefaultLength = captcha.DefaultLength
	defaultStrokeWidth   = captcha.DefaultStrokeWidth
	defaultNoiseMean     = captcha.DefaultNoiseMean
	defaultNoiseStdDev   = captcha.DefaultNoiseStdDev
)

var (
	defaultBackground = captcha.DefaultBackground
	defaultInk        = captcha.DefaultInk
	defaultLines      = captcha.DefaultLines
	defaultCurves     = captcha.DefaultCurves
)

// Options returns the captcha options the preset describes. Unset fields
// fall back to the captcha package defaults.
func (p *Preset) Options() []captcha.Option {
	var opts []captcha.Option
	if r := p.Palette.Background; r != nil {
		opts = append(opts, captcha.WithBackground(*r))
	}
	if r := p.Palette.Ink; r != nil {
		opts = append(opts, captcha.WithInk(*r))
	}
	if r := p.Strokes.Lines; r != nil {
		opts = append(opts, captcha.WithLines(*r))
	}
	if r := p.Strokes.Curves; r != nil {
		opts = append(opts, captcha.WithCurves(*r))
	}
	if p.Strokes.Width > 0 {
		opts = append(opts, captcha.WithStrokeWidth(p.Strokes.Width))
	}
	if p.Noise.Mean != nil || p.Noise.StdDev != nil {
		opts = append(opts, captcha.WithNoise(
			deref(p.Noise.Mean, defaultNoiseMean),
			deref(p.Noise.StdDev, defaultNoiseStdDev),
		))
	}
	if p.Challenge.Charset != "" {
		opts = append(opts, captcha.WithCharset(p.Challenge.Charset))
	}
	return opts
}

// Compression returns the parsed output compression.
func (p *Preset) Compression() (captcha.Compression, error) {
	return captcha.ParseCompression(p.Output.Compression)
}

// ParseRange parses "lo-hi" or a single "n" into an inclusive range.
// Negative bounds are allowed: "-3--1".
func ParseRange(s string) (captcha.Range, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return captcha.Range{}, errors.New("empty range")
	}
	// Skip a leading sign when looking for the separator.
	i := strings.IndexByte(s[1:], '-')
	if i < 0 {
		n, err := strconv.Atoi(s)
		if err != nil {
			return captcha.Range{}, errors.Wrapf(err, "parse range %q", s)
		}
		return captcha.Range{Min: n, Max: n}, nil
	}
	i++
	lo, err := strconv.Atoi(strings.TrimSpace(s[:i]))
	if err != nil {
		return captcha.Range{}, errors.Wrapf(err, "parse range %q", s)
	}
	hi, err := strconv.Atoi(strings.TrimSpace(s[i+1:]))
	if err != nil {
		return captcha.Range{}, errors.Wrapf(err, "parse range %q", s)
	}
	return captcha.Range{Min: lo, Max: hi}, nil
}

func orRange(r *captcha.Range, def captcha.Range) *captcha.Range {
	if r != nil {
		return r
	}
	return &def
}

func orFloat(v *float64, def float64) *float64 {
	if v != nil {
		return v
	}
	return &def
}

func deref(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
