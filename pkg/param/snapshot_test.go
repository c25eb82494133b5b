package param

import (
	"sync"
	"testing"

	"github.com/stfufane/miditransposer/pkg/chord"
)

func TestSnapshotDefault(t *testing.T) {
	s := NewSnapshot()
	got := s.Load()
	if got == nil {
		t.Fatal("Load returned nil before any Store")
	}
	if got.Semitones != 0 || got.Template != chord.Unison || got.Bypass {
		t.Errorf("default snapshot = %+v, want identity", got)
	}
}

func TestSnapshotStoreClampsAtBoundary(t *testing.T) {
	s := NewSnapshot()
	s.Store(Transposition{Semitones: 120})
	if got := s.Load().Semitones; got != MaxSemitones {
		t.Errorf("stored Semitones = %d, want clamped %d", got, MaxSemitones)
	}
}

// The reader must always observe a fully written value. Writer publishes
// values whose fields are deliberately correlated; any torn read breaks the
// correlation.
func TestSnapshotNeverTorn(t *testing.T) {
	s := NewSnapshot()
	const writes = 10000

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < writes; i++ {
			shift := int8(i%49 - 24)
			s.Store(Transposition{Semitones: shift, Octaves: octaveFor(shift)})
		}
	}()

	for i := 0; i < writes; i++ {
		tr := s.Load()
		if tr.Octaves != octaveFor(tr.Semitones) {
			t.Fatalf("torn read: Semitones=%d Octaves=%d", tr.Semitones, tr.Octaves)
		}
	}
	wg.Wait()
}

func octaveFor(shift int8) int8 {
	if shift%2 == 0 {
		return 1
	}
	return -1
}
