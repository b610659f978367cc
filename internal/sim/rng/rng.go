// Package rng provides the seeded stream every simulation roll is drawn from.
//
// The generator is mulberry32: all arithmetic is on uint32 and wraps, so a
// stream started from the same seed yields the same values on every platform.
package rng

const increment uint32 = 0x6D2B79F5

// Source is the draw contract the tick pipeline depends on.
type Source interface {
	Next() float64
	Seed() uint32
}

// Mulberry32 is a 32-bit state generator. The zero value is a valid stream
// seeded with 0.
type Mulberry32 struct {
	state uint32
}

func New(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Next advances the state and returns a value in [0,1).
func (m *Mulberry32) Next() float64 {
	m.state += increment
	t := m.state
	t = (t ^ (t >> 15)) * (t | 1)
	t ^= t + (t^(t>>7))*(t|61)
	return float64(t^(t>>14)) / 4294967296.0
}

// Seed returns the internal state. Passing it to New continues the stream
// exactly where this generator left off.
func (m *Mulberry32) Seed() uint32 { return m.state }
