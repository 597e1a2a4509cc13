// Package captcha synthesizes distorted CAPTCHA images.
//
// Generate lays out each character of a challenge at a jittered position on
// a light background, then draws occlusion lines and Bézier curves and adds
// Gaussian pixel noise. All randomness comes from a Source, so a seeded
// Source reproduces an image exactly.
package captcha

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/canvas"
	"github.com/xob0t/inkblot/pkg/glyph"
)

var (
	ErrEmptyChallenge   = errors.New("captcha: empty challenge")
	ErrInvalidSize      = errors.New("captcha: width and height must be at least 1")
	ErrChallengeTooLong = errors.New("captcha: challenge has more characters than the canvas has columns")
	ErrNilFont          = errors.New("captcha: nil font")
)

// Range is an inclusive integer interval.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Default pipeline parameters.
var (
	DefaultBackground = Range{Min: 160, Max: 210}
	DefaultInk        = Range{Min: 0, Max: 140}
	DefaultLines      = Range{Min: 1, Max: 2}
	DefaultCurves     = Range{Min: 1, Max: 2}
)

const (
	DefaultStrokeWidth = 1.5
	DefaultNoiseMean   = 5.0
	DefaultNoiseStdDev = 15.0

	// jitterDivisor bounds horizontal jitter to ±fontSize/jitterDivisor.
	jitterDivisor = 6
	// leftMargin replaces negative jittered positions.
	leftMargin = 2
)

type config struct {
	src         Source
	background  Range
	ink         Range
	lines       Range
	curves      Range
	strokeWidth float64
	noiseMean   float64
	noiseStdDev float64
	fallback    []*glyph.Font
	charset     string
}

// Option customizes generation.
type Option func(*config)

// WithSource sets the randomness source. The default is NewRandomSource().
func WithSource(src Source) Option {
	return func(c *config) { c.src = src }
}

// WithBackground sets the channel range the background color is drawn from.
func WithBackground(r Range) Option {
	return func(c *config) { c.background = r }
}

// WithInk sets the channel range glyph and stroke colors are drawn from.
func WithInk(r Range) Option {
	return func(c *config) { c.ink = r }
}

// WithLines sets how many straight occlusion lines are drawn.
func WithLines(r Range) Option {
	return func(c *config) { c.lines = r }
}

// WithCurves sets how many Bézier occlusion curves are drawn.
func WithCurves(r Range) Option {
	return func(c *config) { c.curves = r }
}

// WithStrokeWidth sets the occlusion stroke width in pixels.
func WithStrokeWidth(w float64) Option {
	return func(c *config) { c.strokeWidth = w }
}

// WithNoise sets the mean and standard deviation of the additive noise.
// A zero standard deviation and mean disables noise.
func WithNoise(mean, stddev float64) Option {
	return func(c *config) { c.noiseMean, c.noiseStdDev = mean, stddev }
}

// WithFallbackFonts adds fonts consulted for characters the primary font
// cannot render.
func WithFallbackFonts(fonts ...*glyph.Font) Option {
	return func(c *config) { c.fallback = append(c.fallback, fonts...) }
}

// WithCharset sets the characters New draws challenges from.
func WithCharset(charset string) Option {
	return func(c *config) { c.charset = charset }
}

func newConfig(opts []Option) *config {
	c := &config{
		background:  DefaultBackground,
		ink:         DefaultInk,
		lines:       DefaultLines,
		curves:      DefaultCurves,
		strokeWidth: DefaultStrokeWidth,
		noiseMean:   DefaultNoiseMean,
		noiseStdDev: DefaultNoiseStdDev,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.src == nil {
		c.src = NewRandomSource()
	}
	return c
}

// New generates a challenge of n random characters (DefaultLength when
// n is 0) and renders it.
func New(f *glyph.Font, width, height, n int, opts ...Option) (*Result, error) {
	if n <= 0 {
		n = DefaultLength
	}
	cfg := newConfig(opts)
	return generate(cfg, f, width, height, RandomText(cfg.src, n, cfg.charset))
}

// Generate renders challenge onto a width x height canvas with f.
//
// The challenge must be non-empty and have no more characters than the
// canvas is wide, so that the uniform font size min(height, width/n) is at
// least one pixel.
func Generate(f *glyph.Font, width, height int, challenge string, opts ...Option) (*Result, error) {
	return generate(newConfig(opts), f, width, height, challenge)
}

func generate(cfg *config, f *glyph.Font, width, height int, challenge string) (*Result, error) {
	if f == nil {
		return nil, ErrNilFont
	}
	if width < 1 || height < 1 {
		return nil, errors.Wrapf(ErrInvalidSize, "got %dx%d", width, height)
	}
	n := utf8.RuneCountInString(challenge)
	if n == 0 {
		return nil, ErrEmptyChallenge
	}
	fs := glyph.FitSize(width, height, n)
	if fs < 1 {
		return nil, errors.Wrapf(ErrChallengeTooLong, "%d characters on a %d pixel wide canvas", n, width)
	}

	start := time.Now()
	src := cfg.src
	img := canvas.NewFilled(width, height, sampleColor(src, cfg.background))

	fonts := append([]*glyph.Font{f}, cfg.fallback...)
	jitter := fs / jitterDivisor
	i := 0
	for _, r := range challenge {
		ink := sampleColor(src, cfg.ink)
		x := i*fs + src.Range(-jitter, jitter)
		if x < 0 {
			x = leftMargin
		}
		y := 0
		if height-fs > 1 {
			y = src.Range(0, height-fs)
		}
		i++

		l, err := glyph.LayoutText(fonts, string(r), float64(fs))
		if err != nil {
			return nil, errors.Wrapf(err, "captcha: lay out %q", r)
		}
		if len(l.Glyphs) == 0 {
			Logger().Warn("no glyph for character", "rune", string(r))
			continue
		}
		canvas.Overlay(img, glyph.Rasterize(l, ink), x, y)
	}

	lines := src.Range(cfg.lines.Min, cfg.lines.Max)
	for range lines {
		c := sampleColor(src, cfg.ink)
		a := randomPoint(src, width, height)
		b := randomPoint(src, width, height)
		drawLine(img, a, b, float32(cfg.strokeWidth), c)
	}

	curves := src.Range(cfg.curves.Min, cfg.curves.Max)
	for range curves {
		c := sampleColor(src, cfg.ink)
		p0 := randomPoint(src, width, height)
		p3 := randomPoint(src, width, height)
		p1 := randomPoint(src, width, height)
		p2 := randomPoint(src, width, height)
		drawCubic(img, p0, p1, p2, p3, float32(cfg.strokeWidth), c)
	}

	seed := src.Range(0, math.MaxInt32)
	addNoise(img, cfg.noiseMean, cfg.noiseStdDev, uint64(seed))

	Logger().Debug("captcha generated",
		"width", width,
		"height", height,
		"chars", n,
		"font_size", fs,
		"lines", lines,
		"curves", curves,
		"elapsed", time.Since(start),
	)

	return &Result{buf: img, solution: challenge}, nil
}
