// inkblot - procedural CAPTCHA image generation.
//
// Usage:
//
//	inkblot -o <file> [--preset <path>] [options]
//	inkblot schema --preset <path>
//	inkblot serve [--port 8080]
//	inkblot init
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/clients/server"
	"github.com/xob0t/inkblot/pkg/captcha"
	"github.com/xob0t/inkblot/pkg/generator"
	"github.com/xob0t/inkblot/pkg/glyph"
	"github.com/xob0t/inkblot/pkg/preset"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "init":
		if err := runInit(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "schema":
		if err := runSchema(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "serve":
		if err := server.RunServe(os.Args[2:]); err != nil {
			fatal(err)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		// Default: generate mode (all flags on root).
		if err := run(os.Args[1:]); err != nil {
			fatal(err)
		}
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("inkblot", flag.ExitOnError)

	var (
		output      string
		presetPath  string
		fontPath    string
		text        string
		width       int
		height      int
		length      int
		compression string
		scale       int
		seed        uint64
		verbose     bool
	)

	fs.StringVar(&output, "o", "", "Output file path (.png or .bmp)")
	fs.StringVar(&output, "output", "", "Output file path (.png or .bmp)")
	fs.StringVar(&presetPath, "preset", "", "Path to .inkpreset bundle or preset JSON")
	fs.StringVar(&fontPath, "font", "", "TTF/OTF font (default: embedded Go Regular)")
	fs.StringVar(&text, "text", "", "Challenge text (default: random)")
	fs.IntVar(&width, "w", 0, "Width in pixels")
	fs.IntVar(&width, "width", 0, "Width in pixels")
	fs.IntVar(&height, "h", 0, "Height in pixels")
	fs.IntVar(&height, "height", 0, "Height in pixels")
	fs.IntVar(&length, "n", 0, "Random challenge length")
	fs.StringVar(&compression, "compression", "", "PNG compression: default, fast, best")
	fs.IntVar(&scale, "scale", 0, "Integer upscaling factor")
	fs.Uint64Var(&seed, "seed", 0, "Deterministic seed (default: random)")
	fs.BoolVar(&verbose, "v", false, "Log generation details to stderr")

	fs.Usage = printUsage
	if err := fs.Parse(args); err != nil {
		return err
	}

	if output == "" {
		printUsage()
		return errors.New("output file is required (-o)")
	}
	if verbose {
		captcha.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	p, font, err := loadPreset(presetPath, fontPath)
	if err != nil {
		return errors.Wrap(err, "load preset")
	}
	p = preset.Merge(p, &preset.Preset{
		Canvas:    preset.Canvas{Width: width, Height: height},
		Challenge: preset.Challenge{Length: length, Text: text},
		Output:    preset.Output{Compression: compression, Scale: scale},
	})
	for _, w := range preset.Validate(p) {
		fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
	}

	comp, err := p.Compression()
	if err != nil {
		return err
	}

	opts := p.Options()
	if seedSet(fs) {
		opts = append(opts, captcha.WithSource(captcha.NewSource(seed)))
	}

	var res *captcha.Result
	if p.Challenge.Text != "" {
		res, err = captcha.Generate(font, p.Canvas.Width, p.Canvas.Height, p.Challenge.Text, opts...)
	} else {
		res, err = captcha.New(font, p.Canvas.Width, p.Canvas.Height, p.Challenge.Length, opts...)
	}
	if err != nil {
		return err
	}

	cfg := generator.Config{Compression: comp, Scale: p.Output.Scale}
	if err := generator.Generate(output, res, cfg); err != nil {
		return err
	}
	fmt.Printf("Done: %s (%s)\n", output, res.Solution())
	return nil
}

func seedSet(fs *flag.FlagSet) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			set = true
		}
	})
	return set
}

// loadPreset reads a bundle, a standalone JSON preset, or nothing at all,
// and loads the font it names. fontPath overrides the preset's font.
func loadPreset(presetPath, fontPath string) (*preset.Preset, *glyph.Font, error) {
	var (
		p   *preset.Preset
		f   *glyph.Font
		err error
	)
	switch {
	case presetPath == "":
		p, err = preset.Parse([]byte(`{}`))
	case strings.ToLower(filepath.Ext(presetPath)) == ".inkpreset":
		var b *preset.Bundle
		if b, err = preset.LoadBundle(presetPath); err != nil {
			return nil, nil, err
		}
		p = b.Preset
		if fontPath == "" {
			f, err = b.LoadFont()
		}
	default:
		// Treat as standalone JSON.
		p, err = preset.ParsePresetFile(presetPath)
	}
	if err != nil {
		return nil, nil, err
	}

	if fontPath != "" {
		p.Font.Path = fontPath
	}
	if f == nil {
		if f, err = p.LoadFont(); err != nil {
			return nil, nil, err
		}
	}
	return p, f, nil
}

func runSchema(args []string) error {
	fs := flag.NewFlagSet("schema", flag.ExitOnError)
	var presetPath string
	fs.StringVar(&presetPath, "preset", "", "Path to .inkpreset or preset JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if presetPath == "" {
		return errors.New("--preset is required for schema command")
	}

	p, _, err := loadPreset(presetPath, "")
	if err != nil {
		return err
	}
	fmt.Print(preset.FormatSchema(p))
	for _, w := range preset.Validate(p) {
		fmt.Printf("Warning: %s\n", w)
	}
	return nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	var presetOut string
	fs.StringVar(&presetOut, "preset", "preset.json", "Output path for sample preset")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if err := os.WriteFile(presetOut, []byte(preset.ExampleJSON()), 0644); err != nil {
		return errors.Wrap(err, "write preset")
	}

	fmt.Printf("Created: %s\n", presetOut)
	fmt.Printf("Run: inkblot -o captcha.png --preset %s\n", presetOut)
	return nil
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func printUsage() {
	fmt.Print(`inkblot - Procedural CAPTCHA Generation

USAGE:
    inkblot -o <file> [--preset <path>] [options]
    inkblot schema --preset <path>
    inkblot serve [--port 8080]
    inkblot init [--preset <path>]

GENERATE:
    -o, --output <path>    Output file (.png or .bmp)
    --preset <path>        .inkpreset bundle or standalone preset JSON
    --font <path>          TTF/OTF font (overrides the preset)
    --text <string>        Fixed challenge text (default: random)
    -n <count>             Random challenge length (default: 6)
    -w, --width <px>       Width in pixels (default: 160)
    -h, --height <px>      Height in pixels (default: 60)
    --compression <level>  default, fast or best
    --scale <n>            Integer upscaling factor
    --seed <n>             Reproduce an image exactly
    -v                     Log generation details

SERVER:
    inkblot serve [--port 8080]         Serve captchas over HTTP

SCHEMA:
    inkblot schema --preset <path>      Describe a preset and check it

EXAMPLES:
    inkblot init
    inkblot -o captcha.png
    inkblot -o captcha.png --text "A1b2" --seed 42
    inkblot -o captcha.png --preset dark.inkpreset --scale 2
    inkblot -o captcha.bmp -w 240 -h 80 -n 8
`)
}
