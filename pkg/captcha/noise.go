package captcha

import (
	"math"
	"math/rand/v2"

	"github.com/xob0t/inkblot/pkg/canvas"
)

// addNoise adds independent Gaussian noise to every channel of every pixel,
// alpha included, clamping to [0, 255].
func addNoise(b *canvas.Buffer, mean, stddev float64, seed uint64) {
	if mean == 0 && stddev == 0 {
		return
	}
	r := rand.New(rand.NewPCG(seed, 0x6e6f697365))
	for i, v := range b.Pix {
		b.Pix[i] = clampByte(float64(v) + mean + stddev*r.NormFloat64())
	}
}

func clampByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}
