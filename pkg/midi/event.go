// Package midi defines the event model shared by the transposition core and
// its host adapter. Events are flat value structs so the audio thread can move
// them through pre-sized slices without boxing or heap allocation.
package midi

import "fmt"

// EventKind identifies the message carried by an Event.
type EventKind uint8

const (
	KindNoteOff EventKind = iota
	KindNoteOn
	KindControlChange
	KindPitchBend
)

func (k EventKind) String() string {
	switch k {
	case KindNoteOff:
		return "NoteOff"
	case KindNoteOn:
		return "NoteOn"
	case KindControlChange:
		return "CC"
	case KindPitchBend:
		return "PitchBend"
	default:
		return "Unknown"
	}
}

// Event is one timed MIDI event inside a processing block. Offset is the
// sample position relative to the start of the block. For note events Pitch
// and Velocity hold the key and velocity; for control changes they hold the
// controller number and value; for pitch bend Value holds the signed amount
// (-8192..8191, 0 center).
type Event struct {
	Kind     EventKind
	Channel  uint8
	Pitch    uint8
	Velocity uint8
	Value    int16
	Offset   int32
}

// NoteOn builds a note-on event.
func NoteOn(channel, pitch, velocity uint8, offset int32) Event {
	return Event{Kind: KindNoteOn, Channel: channel, Pitch: pitch, Velocity: velocity, Offset: offset}
}

// NoteOff builds a note-off event.
func NoteOff(channel, pitch, velocity uint8, offset int32) Event {
	return Event{Kind: KindNoteOff, Channel: channel, Pitch: pitch, Velocity: velocity, Offset: offset}
}

// ControlChange builds a controller event. Pitch carries the controller
// number, Velocity the controller value.
func ControlChange(channel, controller, value uint8, offset int32) Event {
	return Event{Kind: KindControlChange, Channel: channel, Pitch: controller, Velocity: value, Offset: offset}
}

// PitchBend builds a pitch-bend event.
func PitchBend(channel uint8, value int16, offset int32) Event {
	return Event{Kind: KindPitchBend, Channel: channel, Value: value, Offset: offset}
}

// Common controller numbers.
const (
	CCModWheel    uint8 = 1
	CCVolume      uint8 = 7
	CCPan         uint8 = 10
	CCExpression  uint8 = 11
	CCSustain     uint8 = 64
	CCAllSoundOff uint8 = 120
	CCAllNotesOff uint8 = 123
)

// Valid reports whether the event is inside the declared MIDI ranges. The
// router drops invalid events without touching any state.
func (e Event) Valid() bool {
	if e.Channel > 15 {
		return false
	}
	switch e.Kind {
	case KindNoteOn, KindNoteOff:
		return e.Pitch <= 127 && e.Velocity <= 127
	case KindControlChange:
		return e.Pitch <= 127 && e.Velocity <= 127
	case KindPitchBend:
		return e.Value >= -8192 && e.Value <= 8191
	default:
		return false
	}
}

// IsNote reports whether the event is a note-on or note-off.
func (e Event) IsNote() bool {
	return e.Kind == KindNoteOn || e.Kind == KindNoteOff
}

func (e Event) String() string {
	switch e.Kind {
	case KindNoteOn, KindNoteOff:
		return fmt.Sprintf("%s{ch:%d, note:%d, vel:%d, offset:%d}",
			e.Kind, e.Channel, e.Pitch, e.Velocity, e.Offset)
	case KindControlChange:
		return fmt.Sprintf("CC{ch:%d, ctrl:%d, val:%d, offset:%d}",
			e.Channel, e.Pitch, e.Velocity, e.Offset)
	case KindPitchBend:
		return fmt.Sprintf("PitchBend{ch:%d, val:%d, offset:%d}",
			e.Channel, e.Value, e.Offset)
	default:
		return fmt.Sprintf("Unknown{offset:%d}", e.Offset)
	}
}
