package rng

import (
	"math/rand/v2"
	"sync"
)

// Source yields uniformly distributed values in [0,1). Every stochastic
// decision in the engine draws from a Source so runs can be replayed.
type Source interface {
	Float64() float64
}

// Seeded is a PCG-backed Source safe for concurrent use.
type Seeded struct {
	mu sync.Mutex
	r  *rand.Rand
}

// New returns a Seeded source. Two sources built with the same seed produce
// the same sequence.
func New(seed uint64) *Seeded {
	return &Seeded{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// Sequence replays a fixed list of draws, cycling when exhausted.
type Sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

func NewSequence(values ...float64) *Sequence {
	if len(values) == 0 {
		values = []float64{0.5}
	}
	return &Sequence{values: values}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}
