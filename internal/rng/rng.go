// Package rng provides random sources for weapon spread.
package rng

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"math"
	"math/rand/v2"
)

// Source returns uniformly distributed values in [0, 1).
type Source interface {
	Float64() float64
}

// crypto random : default generation method
type cryptoSource struct{}

func (cryptoSource) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

// Default returns a non-reproducible source.
func Default() Source { return cryptoSource{} }

type seeded struct{ r *rand.Rand }

// NewSeeded returns a reproducible source for replays and tests.
func NewSeeded(seed uint64) Source {
	return &seeded{r: rand.New(rand.NewPCG(seed, 0))}
}

func (s *seeded) Float64() float64 { return s.r.Float64() }

// InUnitCircle samples a point uniformly inside the unit circle.
func InUnitCircle(src Source) (x, y float64) {
	r := math.Sqrt(src.Float64())
	theta := 2 * math.Pi * src.Float64()
	return r * math.Cos(theta), r * math.Sin(theta)
}

// Fixed always returns the same value. Useful to pin spread in tests.
type Fixed float64

func (f Fixed) Float64() float64 { return float64(f) }
