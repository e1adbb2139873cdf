// Package entropy provides the random sources used for stochastic price shocks.
// A seeded source makes whole runs reproducible; the crypto source is used
// when no seed is configured.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	mrand "math/rand"
)

// Source yields floats in [0, 1).
type Source interface {
	Float64() float64
}

// Seeded is a deterministic source. Not safe for concurrent use; the
// simulation drives it from a single goroutine.
type Seeded struct {
	rng *mrand.Rand
}

// NewSeeded creates a deterministic source.
func NewSeeded(seed int64) *Seeded {
	return &Seeded{rng: mrand.New(mrand.NewSource(seed))}
}

// Float64 returns the next value of the sequence.
func (s *Seeded) Float64() float64 {
	return s.rng.Float64()
}

// Crypto draws from crypto/rand.
type Crypto struct{}

// Float64 returns a uniformly distributed value.
func (Crypto) Float64() float64 {
	return cryptoRandFloat()
}

// New returns a seeded source, or a crypto source when seed is zero.
func New(seed int64) Source {
	if seed == 0 {
		return Crypto{}
	}
	return NewSeeded(seed)
}

// Fixed always returns the same value. Handy for tests that need shocks pinned.
type Fixed float64

// Float64 returns the fixed value.
func (f Fixed) Float64() float64 {
	return float64(f)
}

// cryptoRandFloat generates a random float64 using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}
