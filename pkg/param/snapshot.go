package param

import "sync/atomic"

// Snapshot publishes Transposition values from the control context to the
// audio context. Single writer, single reader, wait-free on both sides: the
// writer allocates a fresh immutable value and swaps a pointer; the reader
// always observes either the previous or the new value, never a torn mix.
type Snapshot struct {
	current atomic.Pointer[Transposition]
}

// NewSnapshot creates a snapshot holding the default Transposition.
func NewSnapshot() *Snapshot {
	s := &Snapshot{}
	s.current.Store(&Transposition{})
	return s
}

// Store publishes a new value. Control context only. The value is clamped at
// this boundary so out-of-range writes degrade instead of faulting.
func (s *Snapshot) Store(t Transposition) {
	clamped := t.Clamped()
	s.current.Store(&clamped)
}

// Load returns the latest fully published value. Audio context only; never
// blocks, never allocates.
func (s *Snapshot) Load() *Transposition {
	return s.current.Load()
}
