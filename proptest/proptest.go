// Package proptest provides seeded random generation for property-based
// tests. The seed is logged on failure so a failing case can be replayed.
//
// Usage:
//
//	proptest.Check(t, "expansion preserves bind order", 200, func(g *proptest.Generator) bool {
//	    n := g.IntRange(1, 8)
//	    ...
//	})
package proptest

import (
	"math/rand"
	"testing"
	"time"
)

// Generator wraps a seeded random source.
type Generator struct {
	rng  *rand.Rand
	seed int64
}

// New creates a Generator. A zero seed uses the current time.
func New(seed int64) *Generator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Generator{rng: rand.New(rand.NewSource(seed)), seed: seed}
}

// Seed returns the generator's seed for failure reproduction.
func (g *Generator) Seed() int64 { return g.seed }

// Intn returns a random int in [0, n). Panics if n <= 0.
func (g *Generator) Intn(n int) int { return g.rng.Intn(n) }

// IntRange returns a random int in [lo, hi] inclusive.
func (g *Generator) IntRange(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

// Bool returns a random boolean.
func (g *Generator) Bool() bool { return g.rng.Intn(2) == 1 }

// Pick returns a random element of a non-empty slice.
func Pick[T any](g *Generator, slice []T) T {
	if len(slice) == 0 {
		panic("proptest: Pick called with empty slice")
	}
	return slice[g.Intn(len(slice))]
}

// Ident generates a short SQL-ish identifier (letters and underscores,
// starting with a letter).
func (g *Generator) Ident() string {
	const first = "abcdefghijklmnopqrstuvwxyz"
	const rest = first + "_0123456789"
	n := g.IntRange(1, 10)
	b := make([]byte, n)
	b[0] = first[g.Intn(len(first))]
	for i := 1; i < n; i++ {
		b[i] = rest[g.Intn(len(rest))]
	}
	return string(b)
}

// ScalarValue generates a random bind value of a driver-friendly type.
func (g *Generator) ScalarValue() any {
	switch g.Intn(3) {
	case 0:
		return g.rng.Int63n(1 << 20)
	case 1:
		return g.rng.Float64() * 100
	default:
		return g.Ident()
	}
}

// Check runs property fn for iterations rounds with fresh generators and
// fails the test, logging the seed, on the first round that returns false.
func Check(t *testing.T, name string, iterations int, fn func(*Generator) bool) {
	t.Helper()
	for i := 0; i < iterations; i++ {
		g := New(0)
		if !fn(g) {
			t.Fatalf("property %q failed (iteration %d, seed %d)", name, i, g.Seed())
		}
	}
}
