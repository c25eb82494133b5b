// Package chord describes how one input note expands into several output
// notes: named templates of semitone offsets and scale masks constraining the
// allowed pitch classes.
package chord

// MaxOffsets bounds the size of every template, including custom ones. The
// engine sizes its scratch buffers from it.
const MaxOffsets = 8

// TemplateID selects a chord template. The set is a closed enumeration plus
// one Custom slot whose offsets travel inside the parameter value itself.
type TemplateID uint8

const (
	Unison TemplateID = iota
	Octave
	PowerChord
	MajorTriad
	MinorTriad
	DimTriad
	AugTriad
	Sus2
	Sus4
	Major6
	Minor6
	Major7
	Minor7
	Dominant7
	Custom

	numTemplates
)

// Template is a named ordered set of signed semitone offsets relative to the
// played root. Offset order is the order output notes are emitted in.
type Template struct {
	ID      TemplateID
	Name    string
	Offsets []int8
}

var builtins = [numTemplates]Template{
	Unison:     {Unison, "Unison", []int8{0}},
	Octave:     {Octave, "Octave", []int8{0, 12}},
	PowerChord: {PowerChord, "Power Chord", []int8{0, 7}},
	MajorTriad: {MajorTriad, "Major Triad", []int8{0, 4, 7}},
	MinorTriad: {MinorTriad, "Minor Triad", []int8{0, 3, 7}},
	DimTriad:   {DimTriad, "Diminished Triad", []int8{0, 3, 6}},
	AugTriad:   {AugTriad, "Augmented Triad", []int8{0, 4, 8}},
	Sus2:       {Sus2, "Sus2", []int8{0, 2, 7}},
	Sus4:       {Sus4, "Sus4", []int8{0, 5, 7}},
	Major6:     {Major6, "Major 6th", []int8{0, 4, 7, 9}},
	Minor6:     {Minor6, "Minor 6th", []int8{0, 3, 7, 9}},
	Major7:     {Major7, "Major 7th", []int8{0, 4, 7, 11}},
	Minor7:     {Minor7, "Minor 7th", []int8{0, 3, 7, 10}},
	Dominant7:  {Dominant7, "Dominant 7th", []int8{0, 4, 7, 10}},
	Custom:     {Custom, "Custom", []int8{0}},
}

// Get returns the builtin template for an ID. Unknown IDs fall back to
// Unison so a stale or corrupt parameter value can never break the engine.
func Get(id TemplateID) Template {
	if id >= numTemplates {
		return builtins[Unison]
	}
	return builtins[id]
}

// Builtins returns the non-custom templates in enumeration order.
func Builtins() []Template {
	return builtins[:Custom]
}

// Count is the number of selectable templates, Custom included.
func Count() int {
	return int(numTemplates)
}

func (id TemplateID) String() string {
	return Get(id).Name
}
