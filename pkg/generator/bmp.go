// bmp.go - 24-bit BMP writer. BMP has no useful alpha support, so pixels are
// composited onto an opaque matte first.
package generator

import (
	"io"

	"github.com/pkg/errors"
	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"

	"github.com/xob0t/inkblot/pkg/captcha"
)

func writeBMP(w io.Writer, res *captcha.Result, cfg Config) error {
	matte := cfg.Matte
	if matte == "" {
		matte = "#ffffff"
	}
	bg, err := ParseColor(matte)
	if err != nil {
		return err
	}

	src := scaled(res, cfg.Scale)
	dst := NewSolidImage(src.Bounds().Dx(), src.Bounds().Dy(), bg)
	draw.Draw(dst, dst.Bounds(), src, src.Bounds().Min, draw.Over)

	// An opaque *image.RGBA encodes as 24-bit BGR.
	if err := bmp.Encode(w, dst); err != nil {
		return errors.Wrap(err, "encode BMP")
	}
	return nil
}
