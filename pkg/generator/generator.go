// Package generator writes generated CAPTCHAs to files and streams.
//
// All output follows one pipeline: take the Result's pixels, upscale them if
// asked, then encode as PNG or flatten onto a matte and encode as BMP.
package generator

import (
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/captcha"
)

// Config holds output parameters.
type Config struct {
	Compression captcha.Compression
	Scale       int    // integer upscaling factor; 0 or 1 keeps the native size
	Matte       string // "#rrggbb" BMP background for transparent pixels (default: white)
}

// Generate writes res to output. The format is inferred from the file
// extension:
//   - ".png" → PNG image
//   - ".bmp" → 24-bit BMP, alpha flattened onto cfg.Matte
func Generate(output string, res *captcha.Result, cfg Config) error {
	ext := strings.ToLower(filepath.Ext(output))
	if !supported(ext) {
		return errors.Errorf("unsupported format %q: use .png or .bmp", ext)
	}

	f, err := os.Create(output)
	if err != nil {
		return errors.Wrapf(err, "create %s", output)
	}
	if err := GenerateToWriter(f, ext, res, cfg); err != nil {
		f.Close()
		return err
	}
	return errors.Wrapf(f.Close(), "close %s", output)
}

// GenerateToWriter writes res to w. The format is given by ext (".png" or
// ".bmp"). This is what the server and WASM clients use.
func GenerateToWriter(w io.Writer, ext string, res *captcha.Result, cfg Config) error {
	switch strings.ToLower(ext) {
	case ".png":
		return writePNG(w, res, cfg)
	case ".bmp":
		return writeBMP(w, res, cfg)
	default:
		return errors.Errorf("unsupported format %q: use .png or .bmp", ext)
	}
}

// ContentType returns the MIME type for ext.
func ContentType(ext string) string {
	if strings.ToLower(ext) == ".bmp" {
		return "image/bmp"
	}
	return "image/png"
}

func supported(ext string) bool {
	return ext == ".png" || ext == ".bmp"
}

// scaled returns res's pixels, upscaled by cfg.Scale with nearest-neighbor
// sampling so glyph edges stay crisp.
func scaled(res *captcha.Result, scale int) image.Image {
	img := res.Image()
	if scale <= 1 {
		return img
	}
	return resize.Resize(uint(res.Width()*scale), uint(res.Height()*scale), img, resize.NearestNeighbor)
}
