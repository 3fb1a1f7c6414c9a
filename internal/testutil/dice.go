// Package testutil holds deterministic fixtures shared by package tests.
package testutil

import (
	"fmt"
	"sync"
)

// FixedSource always yields the same die face, clamped to the die size.
// FixedSource{Face: 20} rolls a natural 20 on a d20 and a 6 on a d6.
type FixedSource struct{ Face int }

// Intn returns min(Face, n) - 1 so the rolled face is min(Face, n).
//
// Precondition: n > 0 and Face >= 1.
func (f FixedSource) Intn(n int) int {
	if f.Face >= n {
		return n - 1
	}
	return f.Face - 1
}

// SequenceSource yields a scripted list of die faces in order. It panics when
// the script runs out or a face does not fit the die being rolled, so a test
// that rolls more dice than it planned fails loudly.
type SequenceSource struct {
	mu    sync.Mutex
	faces []int
	next  int
}

// NewSequence returns a SequenceSource that rolls the given faces in order.
func NewSequence(faces ...int) *SequenceSource {
	return &SequenceSource{faces: faces}
}

// Intn returns the next scripted face minus one.
func (s *SequenceSource) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.next >= len(s.faces) {
		panic(fmt.Sprintf("testutil: sequence exhausted after %d rolls", len(s.faces)))
	}
	face := s.faces[s.next]
	if face < 1 || face > n {
		panic(fmt.Sprintf("testutil: face %d at position %d does not fit a d%d", face, s.next, n))
	}
	s.next++
	return face - 1
}

// Remaining reports how many scripted faces have not been rolled yet.
func (s *SequenceSource) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.faces) - s.next
}
