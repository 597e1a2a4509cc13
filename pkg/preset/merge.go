// merge.go - Merge partial overrides onto a preset.
package preset

// Merge returns a copy of base with every set field of over applied.
// over is typically built from CLI flags or HTTP query parameters and
// is not defaulted. Neither argument is modified.
func Merge(base, over *Preset) *Preset {
	out := *base
	if over == nil {
		return &out
	}

	if over.Meta.Name != "" {
		out.Meta.Name = over.Meta.Name
	}
	if over.Canvas.Preset != "" {
		if dims, ok := Presets[over.Canvas.Preset]; ok {
			out.Canvas.Preset = over.Canvas.Preset
			out.Canvas.Width, out.Canvas.Height = dims[0], dims[1]
		}
	}
	if over.Canvas.Width > 0 {
		out.Canvas.Width = over.Canvas.Width
	}
	if over.Canvas.Height > 0 {
		out.Canvas.Height = over.Canvas.Height
	}

	if over.Font.Path != "" {
		out.Font.Path = over.Font.Path
	}
	if over.Font.Scale > 0 {
		out.Font.Scale = over.Font.Scale
	}

	if over.Challenge.Length > 0 {
		out.Challenge.Length = over.Challenge.Length
	}
	if over.Challenge.Charset != "" {
		out.Challenge.Charset = over.Challenge.Charset
	}
	if over.Challenge.Text != "" {
		out.Challenge.Text = over.Challenge.Text
	}

	if over.Palette.Background != nil {
		out.Palette.Background = over.Palette.Background
	}
	if over.Palette.Ink != nil {
		out.Palette.Ink = over.Palette.Ink
	}
	if over.Strokes.Lines != nil {
		out.Strokes.Lines = over.Strokes.Lines
	}
	if over.Strokes.Curves != nil {
		out.Strokes.Curves = over.Strokes.Curves
	}
	if over.Strokes.Width > 0 {
		out.Strokes.Width = over.Strokes.Width
	}
	if over.Noise.Mean != nil {
		out.Noise.Mean = over.Noise.Mean
	}
	if over.Noise.StdDev != nil {
		out.Noise.StdDev = over.Noise.StdDev
	}

	if over.Output.Compression != "" {
		out.Output.Compression = over.Output.Compression
	}
	if over.Output.Scale > 0 {
		out.Output.Scale = over.Output.Scale
	}
	return &out
}
