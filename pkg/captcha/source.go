package captcha

import (
	crand "crypto/rand"
	"image/color"
	"math/rand/v2"
)

// Source supplies every random decision the pipeline makes. Given the same
// sequence of answers, Generate produces byte-identical images.
//
// Implementations need not be safe for concurrent use; give each generation
// its own Source.
type Source interface {
	// Range returns a uniform integer in [min, max], inclusive.
	Range(min, max int) int
	// Color returns an opaque color whose channels are sampled
	// independently from [min, max].
	Color(min, max uint8) color.NRGBA
}

type randSource struct {
	r *rand.Rand
}

// NewSource returns a deterministic PCG-backed Source.
func NewSource(seed uint64) Source {
	return &randSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// NewRandomSource returns a Source seeded from crypto/rand.
func NewRandomSource() Source {
	var seed [32]byte
	_, _ = crand.Read(seed[:]) // never returns an error
	return &randSource{r: rand.New(rand.NewChaCha8(seed))}
}

func (s *randSource) Range(lo, hi int) int {
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo + s.r.IntN(hi-lo+1)
}

func (s *randSource) Color(lo, hi uint8) color.NRGBA {
	return color.NRGBA{
		R: uint8(s.Range(int(lo), int(hi))),
		G: uint8(s.Range(int(lo), int(hi))),
		B: uint8(s.Range(int(lo), int(hi))),
		A: 0xff,
	}
}

// sampleColor draws a color from r, clamping its bounds to a byte.
func sampleColor(src Source, r Range) color.NRGBA {
	return src.Color(clampByte(float64(r.Min)), clampByte(float64(r.Max)))
}
