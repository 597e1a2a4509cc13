package preset

// ExampleJSON returns a sample preset.json for inkblot init.
func ExampleJSON() string {
	return `{
  "meta": {
    "name": "Sample Preset",
    "version": "1.0",
    "author": "inkblot",
    "description": "Dark ink on a light background, two occlusion strokes"
  },
  "canvas": { "preset": "standard" },
  "font": { "scale": 40 },
  "challenge": {
    "length": 6,
    "charset": "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
  },
  "palette": {
    "background": { "min": 160, "max": 210 },
    "ink": { "min": 0, "max": 140 }
  },
  "strokes": {
    "lines": { "min": 1, "max": 2 },
    "curves": { "min": 1, "max": 2 },
    "width": 1.5
  },
  "noise": { "mean": 5, "stddev": 15 },
  "output": { "compression": "default", "scale": 1 }
}
`
}
