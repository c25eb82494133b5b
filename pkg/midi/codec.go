package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message converts an event to a gomidi wire message. Used at the host and
// file boundaries; the audio path never needs the byte form.
func (e Event) Message() gomidi.Message {
	switch e.Kind {
	case KindNoteOn:
		return gomidi.NoteOn(e.Channel, e.Pitch, e.Velocity)
	case KindNoteOff:
		return gomidi.NoteOffVelocity(e.Channel, e.Pitch, e.Velocity)
	case KindControlChange:
		return gomidi.ControlChange(e.Channel, e.Pitch, e.Velocity)
	case KindPitchBend:
		return gomidi.Pitchbend(e.Channel, e.Value)
	default:
		return nil
	}
}

// FromMessage converts a gomidi message at the given sample offset. A note-on
// with velocity zero stays a note-on here; the router treats it as a release.
// Returns ok=false for message types the transposer does not model.
func FromMessage(msg gomidi.Message, offset int32) (Event, bool) {
	var (
		channel, key, velocity uint8
		controller, value      uint8
		bend                   int16
		bendAbs                uint16
	)
	switch {
	case msg.GetNoteOn(&channel, &key, &velocity):
		return NoteOn(channel, key, velocity, offset), true
	case msg.GetNoteOff(&channel, &key, &velocity):
		return NoteOff(channel, key, velocity, offset), true
	case msg.GetControlChange(&channel, &controller, &value):
		return ControlChange(channel, controller, value, offset), true
	case msg.GetPitchBend(&channel, &bend, &bendAbs):
		return PitchBend(channel, bend, offset), true
	default:
		return Event{}, false
	}
}
