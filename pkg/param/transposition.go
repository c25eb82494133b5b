package param

import (
	"github.com/stfufane/miditransposer/pkg/chord"
)

// Range limits enforced at the snapshot boundary.
const (
	MinSemitones = -24
	MaxSemitones = 24
	MinOctaves   = -2
	MaxOctaves   = 2
)

// NoteMap overrides the transposition for one of the twelve pitch classes,
// the pedalboard use case: each pedal note gets its own shift and chord.
// An inactive mapping falls through to the global settings.
type NoteMap struct {
	Active    bool
	Semitones int8
	Template  chord.TemplateID
}

// Transposition is the immutable value the engine maps notes with. A new one
// is produced on every control write and published through a Snapshot; the
// audio context never mutates it. The zero value is the defined default:
// no shift, unison template, no scale constraint, bypass off, omni input,
// all per-class mappings inactive.
type Transposition struct {
	Semitones     int8
	Octaves       int8
	Template      chord.TemplateID
	CustomOffsets [chord.MaxOffsets]int8
	CustomCount   uint8
	Scale         chord.ScaleMask
	Bypass        bool

	// Notes is indexed by pitch class (0 = C).
	Notes [12]NoteMap

	// InputChannel filters which channel the transposer listens on:
	// 0 means all channels, 1..16 a single one. Events on other channels
	// pass through untouched.
	InputChannel uint8

	ArpEnabled bool
	ArpRate    uint8
	ArpSync    bool
}

// Offsets returns the effective global chord offsets: the custom list when
// the custom template is selected and non-empty, the builtin template
// otherwise. The returned slice aliases existing storage; no allocation.
func (t *Transposition) Offsets() []int8 {
	return t.OffsetsOf(t.Template)
}

// OffsetsOf resolves a template to its offsets, with Custom drawing on the
// user offsets carried by this value. Per-class mappings share the same
// custom list.
func (t *Transposition) OffsetsOf(id chord.TemplateID) []int8 {
	if id == chord.Custom && t.CustomCount > 0 {
		return t.CustomOffsets[:t.CustomCount]
	}
	return chord.Get(id).Offsets
}

// ListensTo reports whether a channel passes the input filter.
func (t *Transposition) ListensTo(channel uint8) bool {
	return t.InputChannel == 0 || t.InputChannel == channel+1
}

// Clamped returns a copy with every field forced into its declared range.
func (t Transposition) Clamped() Transposition {
	t.Semitones = clampInt8(t.Semitones, MinSemitones, MaxSemitones)
	t.Octaves = clampInt8(t.Octaves, MinOctaves, MaxOctaves)
	if t.Template >= chord.TemplateID(chord.Count()) {
		t.Template = chord.Unison
	}
	if t.CustomCount > chord.MaxOffsets {
		t.CustomCount = chord.MaxOffsets
	}
	if t.InputChannel > 16 {
		t.InputChannel = 0
	}
	if int(t.ArpRate) >= len(Divisions) {
		t.ArpRate = uint8(len(Divisions) - 1)
	}
	for i := range t.Notes {
		m := &t.Notes[i]
		m.Semitones = clampInt8(m.Semitones, MinSemitones, MaxSemitones)
		if m.Template >= chord.TemplateID(chord.Count()) {
			m.Template = chord.Unison
		}
	}
	return t
}

func clampInt8(v, min, max int8) int8 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Division is one arpeggiator step length expressed in quarter-note beats.
type Division struct {
	Label string
	Beats float64
}

// Divisions lists the selectable arpeggiator rates, slowest first.
var Divisions = []Division{
	{"1/1", 4.0},
	{"1/2", 2.0},
	{"1/4.", 1.5},
	{"1/4", 1.0},
	{"1/8.", 0.75},
	{"1/4t", 2.0 / 3.0},
	{"1/8", 0.5},
	{"1/8t", 1.0 / 3.0},
	{"1/16", 0.25},
}
