package engine

import (
	"github.com/stfufane/miditransposer/pkg/midi"
	"github.com/stfufane/miditransposer/pkg/param"
)

// EventSink collects the output events of a block. The backing slice is
// pre-sized at construction; appends within that capacity never allocate.
type EventSink struct {
	events []midi.Event
}

// NewEventSink pre-allocates room for capacity events.
func NewEventSink(capacity int) *EventSink {
	return &EventSink{events: make([]midi.Event, 0, capacity)}
}

// Add appends an event.
func (s *EventSink) Add(e midi.Event) {
	s.events = append(s.events, e)
}

// Events returns the collected events.
func (s *EventSink) Events() []midi.Event {
	return s.events
}

// Reset empties the sink, keeping its storage.
func (s *EventSink) Reset() {
	s.events = s.events[:0]
}

// voice is one live mapping from a sounding input note to the output notes
// it produced. outputs are frozen at note-on and never recomputed, so the
// release always reverses exactly what the attack emitted.
type voice struct {
	inUse    bool
	sounding bool // outputs were actually emitted (false while the arp owns the chord)
	channel  uint8
	pitch    uint8
	velocity uint8
	seq      uint64
	outputs  [MaxChordNotes]uint8
	count    uint8

	// onsetOffset is the sample offset the note started at, meaningful only
	// within its onset block; StartBlock zeroes it for later blocks.
	onsetOffset int32
}

// VoiceTable tracks every sounding input note and enforces the polyphony
// budget. All storage is pre-sized at construction; overflow is resolved by
// oldest-first eviction, never by dropping a release.
type VoiceTable struct {
	slots        []voice
	maxPolyphony int
	active       int // sounding output notes across all voices
	nextSeq      uint64
}

// NewVoiceTable pre-sizes the table for at most maxPolyphony simultaneous
// output notes.
func NewVoiceTable(maxPolyphony int) *VoiceTable {
	if maxPolyphony < 1 {
		maxPolyphony = 1
	}
	return &VoiceTable{
		slots:        make([]voice, maxPolyphony),
		maxPolyphony: maxPolyphony,
	}
}

// NoteOn allocates a voice for (channel,pitch), mapping it through the given
// parameters, which are captured once and frozen for the voice lifetime.
// An overlapping note-on on the same identity is an implicit off-then-on.
// audible=false registers the voice without emitting its outputs (the
// arpeggiator plays them instead).
func (t *VoiceTable) NoteOn(channel, pitch, velocity uint8, offset int32, p *param.Transposition, audible bool, sink *EventSink) {
	if v := t.find(channel, pitch); v != nil {
		t.release(v, 0, offset, sink)
	}

	var buf [MaxChordNotes]uint8
	n := Map(pitch, p, &buf)
	if n > t.maxPolyphony {
		n = t.maxPolyphony
	}

	if audible {
		for t.active+n > t.maxPolyphony {
			if !t.evictOldest(offset, sink, true) {
				break
			}
		}
	}

	v := t.freeSlot()
	if v == nil {
		// Every slot is held (possible only with inaudible arp voices);
		// reuse the oldest one.
		if !t.evictOldest(offset, sink, false) {
			return
		}
		v = t.freeSlot()
	}

	t.nextSeq++
	*v = voice{
		inUse:       true,
		sounding:    audible,
		channel:     channel,
		pitch:       pitch,
		velocity:    velocity,
		seq:         t.nextSeq,
		count:       uint8(n),
		onsetOffset: offset,
	}
	copy(v.outputs[:], buf[:n])

	if audible {
		t.active += n
		for i := 0; i < n; i++ {
			sink.Add(midi.NoteOn(channel, v.outputs[i], velocity, offset))
		}
	}
}

// NoteOff releases the voice for (channel,pitch), emitting note-offs for
// exactly the frozen output set in its original order. An orphan note-off is
// a defined no-op.
func (t *VoiceTable) NoteOff(channel, pitch, velocity uint8, offset int32, sink *EventSink) {
	v := t.find(channel, pitch)
	if v == nil {
		return
	}
	t.release(v, velocity, offset, sink)
}

// ReleaseAll releases every voice, oldest first. Used for All Notes Off and
// similar panic paths.
func (t *VoiceTable) ReleaseAll(offset int32, sink *EventSink) {
	for {
		v := t.oldest(false)
		if v == nil {
			return
		}
		t.release(v, 0, offset, sink)
	}
}

// Silence emits note-offs for every sounding voice but keeps the voices
// registered, handing their chords over to the arpeggiator.
func (t *VoiceTable) Silence(offset int32, sink *EventSink) {
	for {
		v := t.oldest(true)
		if v == nil {
			return
		}
		for i := uint8(0); i < v.count; i++ {
			sink.Add(midi.NoteOff(v.channel, v.outputs[i], 0, offset))
		}
		t.active -= int(v.count)
		v.sounding = false
	}
}

// Latest returns the most recently allocated live voice, or nil. The
// arpeggiator steps through its frozen outputs.
func (t *VoiceTable) Latest() (channel uint8, outputs []uint8, velocity uint8, ok bool) {
	var best *voice
	for i := range t.slots {
		v := &t.slots[i]
		if v.inUse && (best == nil || v.seq > best.seq) {
			best = v
		}
	}
	if best == nil {
		return 0, nil, 0, false
	}
	return best.channel, best.outputs[:best.count], best.velocity, true
}

// LatestOnset returns the onset offset of the voice Latest would pick, or 0
// when the table is empty. The arpeggiator uses it to avoid stepping a chord
// before the note that formed it.
func (t *VoiceTable) LatestOnset() int32 {
	var best *voice
	for i := range t.slots {
		v := &t.slots[i]
		if v.inUse && (best == nil || v.seq > best.seq) {
			best = v
		}
	}
	if best == nil {
		return 0
	}
	return best.onsetOffset
}

// StartBlock ages the onset offsets out: a voice allocated in an earlier
// block counts as starting at offset 0 of the current one.
func (t *VoiceTable) StartBlock() {
	for i := range t.slots {
		t.slots[i].onsetOffset = 0
	}
}

// ActiveOutputs returns the number of currently sounding output notes.
func (t *VoiceTable) ActiveOutputs() int {
	return t.active
}

// HeldVoices returns the number of registered voices, sounding or not.
func (t *VoiceTable) HeldVoices() int {
	n := 0
	for i := range t.slots {
		if t.slots[i].inUse {
			n++
		}
	}
	return n
}

// Reset drops all state without emitting events. Used on deactivation, when
// the host no longer expects output.
func (t *VoiceTable) Reset() {
	for i := range t.slots {
		t.slots[i] = voice{}
	}
	t.active = 0
}

func (t *VoiceTable) find(channel, pitch uint8) *voice {
	for i := range t.slots {
		v := &t.slots[i]
		if v.inUse && v.channel == channel && v.pitch == pitch {
			return v
		}
	}
	return nil
}

func (t *VoiceTable) freeSlot() *voice {
	for i := range t.slots {
		if !t.slots[i].inUse {
			return &t.slots[i]
		}
	}
	return nil
}

func (t *VoiceTable) oldest(soundingOnly bool) *voice {
	var best *voice
	for i := range t.slots {
		v := &t.slots[i]
		if !v.inUse || (soundingOnly && !v.sounding) {
			continue
		}
		if best == nil || v.seq < best.seq {
			best = v
		}
	}
	return best
}

func (t *VoiceTable) evictOldest(offset int32, sink *EventSink, soundingOnly bool) bool {
	v := t.oldest(soundingOnly)
	if v == nil {
		return false
	}
	t.release(v, 0, offset, sink)
	return true
}

func (t *VoiceTable) release(v *voice, velocity uint8, offset int32, sink *EventSink) {
	if v.sounding {
		for i := uint8(0); i < v.count; i++ {
			sink.Add(midi.NoteOff(v.channel, v.outputs[i], velocity, offset))
		}
		t.active -= int(v.count)
	}
	v.inUse = false
	v.sounding = false
}
