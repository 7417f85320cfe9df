package entropy

import "math/rand/v2"

// Seeded is a deterministic Source. Same seed, same session.
type Seeded struct {
	rng *rand.Rand
}

// NewSeeded returns a PCG-backed source for the given seed.
func NewSeeded(seed uint64) *Seeded {
	return &Seeded{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Float returns a uniform float64 in [0, 1).
func (s *Seeded) Float() float64 { return s.rng.Float64() }

// IntRange returns a uniform int in [lo, hi].
func (s *Seeded) IntRange(lo, hi int) int {
	if hi < lo {
		panic("entropy: IntRange with hi < lo")
	}
	return lo + s.rng.IntN(hi-lo+1)
}

// Sequence replays a fixed list of floats, cycling when exhausted.
// Tests use it to script exact draws.
type Sequence struct {
	Floats []float64
	pos    int
}

// Float returns the next scripted float.
func (s *Sequence) Float() float64 {
	if len(s.Floats) == 0 {
		return 0
	}
	v := s.Floats[s.pos%len(s.Floats)]
	s.pos++
	return v
}

// IntRange maps the next scripted float onto [lo, hi].
func (s *Sequence) IntRange(lo, hi int) int {
	return intFromFloat(s.Float(), lo, hi)
}
