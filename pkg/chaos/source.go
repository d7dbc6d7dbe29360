package chaos

import (
	crand "crypto/rand"
	"encoding/binary"
	mathrand "math/rand/v2"
	"sync"
)

// Source produces uniform samples in [0, 1).
type Source interface {
	Float64() float64
}

// SourceFactory returns a fresh Source for one evaluation.
type SourceFactory func() Source

// NewSource returns an independently seeded ChaCha8 generator. Seeds come
// from crypto/rand; if that fails the generator is seeded from the global
// math/rand/v2 source instead.
func NewSource() Source {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		for i := 0; i < len(seed); i += 8 {
			binary.LittleEndian.PutUint64(seed[i:], mathrand.Uint64())
		}
	}
	return mathrand.New(mathrand.NewChaCha8(seed))
}

// DefaultFactory is the SourceFactory used when none is configured.
func DefaultFactory() Source { return NewSource() }

// SeededFactory returns a factory whose sources all replay the same PCG
// stream. Useful for reproducible offline resolution.
func SeededFactory(seed uint64) SourceFactory {
	return func() Source {
		return mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	}
}

// SeededStream returns a factory whose sources all draw from one shared
// PCG stream, so a run of evaluations is reproducible from its seed.
//
// It is meant for debugging and reproducible runs only. Every draw takes
// one mutex, so concurrent requests are serialized on it, and the order in
// which they reach it decides which request gets which sample: a seeded
// run is only reproducible when requests arrive one at a time.
func SeededStream(seed uint64) SourceFactory {
	src := &lockedSource{r: mathrand.New(mathrand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	return func() Source { return src }
}

type lockedSource struct {
	mu sync.Mutex
	r  *mathrand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

type sequence struct {
	mu     sync.Mutex
	values []float64
	next   int
}

// Sequence returns a Source that yields values in order and then repeats
// them. With no values it always yields 0.
func Sequence(values ...float64) Source {
	return &sequence{values: append([]float64(nil), values...)}
}

func (s *sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.values) == 0 {
		return 0
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v
}

// Fixed returns a factory whose sources always yield v.
func Fixed(v float64) SourceFactory {
	return func() Source { return Sequence(v) }
}
