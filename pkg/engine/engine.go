// Package engine is the real-time MIDI transformation core: a pure note
// mapper, a fixed-capacity voice allocation table and the per-block event
// router that drives them. Nothing in this package allocates, blocks or locks
// once constructed; every code path is bounded.
package engine

import (
	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/param"
)

// MaxChordNotes bounds the output set of a single input note: every template
// offset plus the source-octave root kept by octave doubling.
const MaxChordNotes = chord.MaxOffsets + 1

// Map computes the output pitches for one input pitch under the given
// parameters, in emission order, into a caller-owned buffer. Pure and
// deterministic; the output channel is always the input channel, so only
// pitches are produced. Returns the number of valid entries.
//
// Bypass yields the input pitch untouched. Otherwise each template offset is
// applied on top of the semitone and octave shift, candidates are clamped to
// the MIDI range, duplicates are dropped keeping the first occurrence, and an
// optional scale mask snaps survivors up to the nearest allowed pitch class.
// An active per-pitch-class mapping replaces the global shift and template
// for notes of that class; octave doubling and the scale stay global.
func Map(pitch uint8, p *param.Transposition, out *[MaxChordNotes]uint8) int {
	if p.Bypass {
		out[0] = pitch
		return 1
	}

	semitones := int(p.Semitones)
	offsets := p.Offsets()
	if m := &p.Notes[pitch%12]; m.Active {
		semitones = int(m.Semitones)
		offsets = p.OffsetsOf(m.Template)
	}

	base := int(pitch) + semitones
	n := 0

	// Octave doubling keeps the shifted root at its source octave alongside
	// the transposed copy, the way the original pedalboard mapping did.
	if p.Octaves != 0 {
		n = appendClamped(out, n, base)
	}
	shifted := base + 12*int(p.Octaves)
	for _, off := range offsets {
		n = appendClamped(out, n, shifted+int(off))
	}

	if p.Scale != 0 {
		n = quantizeInPlace(out, n, p.Scale)
	}
	return n
}

func appendClamped(out *[MaxChordNotes]uint8, n, candidate int) int {
	if n >= MaxChordNotes {
		return n
	}
	if candidate < 0 {
		candidate = 0
	} else if candidate > 127 {
		candidate = 127
	}
	p := uint8(candidate)
	for i := 0; i < n; i++ {
		if out[i] == p {
			return n
		}
	}
	out[n] = p
	return n + 1
}

// quantizeInPlace snaps every pitch up to the mask, drops candidates pushed
// past the top of the range and re-dedupes, all preserving order.
func quantizeInPlace(out *[MaxChordNotes]uint8, n int, mask chord.ScaleMask) int {
	kept := 0
	for i := 0; i < n; i++ {
		q, ok := chord.Quantize(out[i], mask)
		if !ok {
			continue
		}
		dup := false
		for j := 0; j < kept; j++ {
			if out[j] == q {
				dup = true
				break
			}
		}
		if !dup {
			out[kept] = q
			kept++
		}
	}
	return kept
}
