package storyboard

import (
	"hash/fnv"
	"math/rand"
)

// Rand is the subset of *rand.Rand the engine draws from.
type Rand interface {
	Float64() float64
	Intn(n int) int
	Int63n(n int64) int64
}

// Entropy hands out an independent, reproducible stream per key so that the
// same seed and the same shot always draw the same numbers.
type Entropy struct {
	seed int64
}

// NewEntropy returns an Entropy rooted at seed.
func NewEntropy(seed int64) Entropy {
	return Entropy{seed: seed}
}

// Seed returns the root seed.
func (e Entropy) Seed() int64 { return e.seed }

// For returns the stream for key.
func (e Entropy) For(key string) Rand {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return rand.New(rand.NewSource(e.seed ^ int64(h.Sum64())))
}
