// png.go - PNG writer.
package generator

import (
	"image/png"
	"io"

	"github.com/pkg/errors"

	"github.com/xob0t/inkblot/pkg/captcha"
)

// pngLevels mirrors captcha.Compression for scaled output, which has to go
// through the encoder directly.
var pngLevels = map[captcha.Compression]png.CompressionLevel{
	captcha.CompressionDefault: png.DefaultCompression,
	captcha.CompressionFast:    png.BestSpeed,
	captcha.CompressionBest:    png.BestCompression,
}

func writePNG(w io.Writer, res *captcha.Result, cfg Config) error {
	if cfg.Scale <= 1 {
		return res.WritePNG(w, cfg.Compression)
	}
	enc := png.Encoder{CompressionLevel: pngLevels[cfg.Compression]}
	if err := enc.Encode(w, scaled(res, cfg.Scale)); err != nil {
		return errors.Wrap(err, "encode PNG")
	}
	return nil
}
