package engine

import (
	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/midi"
	"github.com/stfufane/miditransposer/pkg/param"
)

// ParamChange is one sample-accurate automation point delivered with a block.
type ParamChange struct {
	ID     uint32
	Value  float64 // normalized 0..1
	Offset int32
}

// timelineEntry is one slot of the merged per-block timeline. Parameter
// changes and note events share a single ordering so automation lands
// between the right notes.
type timelineEntry struct {
	offset  int32
	arrival int32
	isParam bool
	event   midi.Event
	change  ParamChange
}

// Router drives one processing block: it merges the incoming note and
// parameter streams into a single sample-ordered timeline, walks it once
// through the voice table, runs the arpeggiator and returns the ordered
// output events. One Router belongs to one plugin instance and is only ever
// called from the audio context.
type Router struct {
	registry *param.Registry
	snapshot *param.Snapshot
	table    *VoiceTable
	arp      *Arpeggiator

	timeline []timelineEntry
	sink     *EventSink

	current  param.Transposition
	seen     *param.Transposition
	arpWasOn bool
}

// NewRouter wires a router over its collaborators. maxEvents sizes the
// pre-allocated timeline and output storage; blocks carrying more events
// still work but may allocate.
func NewRouter(registry *param.Registry, snapshot *param.Snapshot, maxPolyphony, maxEvents int) *Router {
	if maxEvents < 16 {
		maxEvents = 16
	}
	return &Router{
		registry: registry,
		snapshot: snapshot,
		table:    NewVoiceTable(maxPolyphony),
		arp:      NewArpeggiator(),
		timeline: make([]timelineEntry, 0, maxEvents),
		sink:     NewEventSink(maxEvents * MaxChordNotes),
	}
}

// SetSampleRate forwards the host sample rate to the arpeggiator.
func (r *Router) SetSampleRate(rate float64) {
	r.arp.SetSampleRate(rate)
}

// Table exposes the voice table for inspection in tests and debug views.
func (r *Router) Table() *VoiceTable {
	return r.table
}

// Reset drops all voice and arp state without emitting events. Called when
// the host deactivates processing.
func (r *Router) Reset() {
	r.table.Reset()
	r.arp.Reset()
	r.arpWasOn = false
	r.seen = nil
}

// ProcessBlock transforms one block of events. The returned slice is owned
// by the router and valid until the next call. Events keep their sample
// offsets; the result is ordered by offset with emission order preserved
// inside one offset. Audio is untouched by this path.
func (r *Router) ProcessBlock(events []midi.Event, changes []ParamChange, transport Transport, numSamples int) []midi.Event {
	r.sink.Reset()
	if numSamples <= 0 {
		return r.sink.Events()
	}

	// The working value carries over from block to block so automation
	// stays in force; a control-side publish (detected by pointer identity)
	// replaces it. In-block automation overrides from its offset onward,
	// and at equal offsets a parameter change sorts before a note so the
	// note already sees the automated value.
	if snap := r.snapshot.Load(); snap != r.seen {
		r.current = *snap
		r.seen = snap
	}
	r.handleArpToggle(0)
	r.table.StartBlock()

	r.buildTimeline(events, changes, numSamples)
	for i := range r.timeline {
		e := &r.timeline[i]
		if e.isParam {
			r.applyChange(e.change)
			r.handleArpToggle(e.offset)
			continue
		}
		r.routeEvent(e.event)
	}

	r.arp.ProcessBlock(&r.current, transport, numSamples, r.table, r.sink)

	sortEvents(r.sink.events)
	return r.sink.Events()
}

func (r *Router) buildTimeline(events []midi.Event, changes []ParamChange, numSamples int) {
	r.timeline = r.timeline[:0]
	arrival := int32(0)
	for _, c := range changes {
		c.Offset = clampOffset(c.Offset, numSamples)
		r.timeline = append(r.timeline, timelineEntry{
			offset: c.Offset, arrival: arrival, isParam: true, change: c,
		})
		arrival++
	}
	for _, e := range events {
		e.Offset = clampOffset(e.Offset, numSamples)
		r.timeline = append(r.timeline, timelineEntry{
			offset: e.Offset, arrival: arrival, event: e,
		})
		arrival++
	}
	sortTimeline(r.timeline)
}

func (r *Router) routeEvent(e midi.Event) {
	if !e.Valid() {
		return
	}
	if !e.IsNote() {
		if e.Kind == midi.KindControlChange &&
			(e.Pitch == midi.CCAllNotesOff || e.Pitch == midi.CCAllSoundOff) &&
			r.current.ListensTo(e.Channel) {
			r.table.ReleaseAll(e.Offset, r.sink)
			r.arp.Stop(e.Offset, r.sink)
		}
		r.sink.Add(e)
		return
	}
	if !r.current.ListensTo(e.Channel) {
		r.sink.Add(e)
		return
	}
	switch {
	case e.Kind == midi.KindNoteOn && e.Velocity > 0:
		audible := !r.current.ArpEnabled
		r.table.NoteOn(e.Channel, e.Pitch, e.Velocity, e.Offset, &r.current, audible, r.sink)
	default:
		// Note-off, or the velocity-zero note-on convention.
		r.table.NoteOff(e.Channel, e.Pitch, e.Velocity, e.Offset, r.sink)
	}
}

// applyChange folds one automation point into the working parameter value
// and mirrors it into the registry so the control side observes automation.
func (r *Router) applyChange(c ParamChange) {
	p := r.registry.Get(c.ID)
	if p == nil {
		return
	}
	p.SetValue(c.Value)
	plain := p.Plain()
	switch c.ID {
	case param.ParamSemitones:
		r.current.Semitones = int8(plain)
	case param.ParamOctaves:
		r.current.Octaves = int8(plain)
	case param.ParamTemplate:
		r.current.Template = chord.TemplateID(plain)
	case param.ParamBypass:
		r.current.Bypass = plain >= 0.5
	case param.ParamInputChannel:
		r.current.InputChannel = uint8(plain)
	case param.ParamScale, param.ParamScaleRoot:
		scaleIdx := int(r.registry.Get(param.ParamScale).Plain())
		r.current.Scale = 0
		if scaleIdx > 0 && scaleIdx < len(chord.Scales) {
			root := uint8(r.registry.Get(param.ParamScaleRoot).Plain())
			r.current.Scale = chord.Scales[scaleIdx].Mask.Rotate(root)
		}
	case param.ParamArpEnabled:
		r.current.ArpEnabled = plain >= 0.5
	case param.ParamArpRate:
		r.current.ArpRate = uint8(plain)
	case param.ParamArpSync:
		r.current.ArpSync = plain >= 0.5
	default:
		if class, field, ok := param.NoteParam(c.ID); ok {
			m := &r.current.Notes[class]
			switch field {
			case param.NoteFieldActive:
				m.Active = plain >= 0.5
			case param.NoteFieldSemitones:
				m.Semitones = int8(plain)
			case param.NoteFieldTemplate:
				m.Template = chord.TemplateID(plain)
			}
		}
	}
	r.current = r.current.Clamped()
}

// handleArpToggle hands the sounding chords over to the arpeggiator when it
// turns on, and releases its note when it turns off.
func (r *Router) handleArpToggle(offset int32) {
	if r.current.ArpEnabled == r.arpWasOn {
		return
	}
	if r.current.ArpEnabled {
		r.table.Silence(offset, r.sink)
	} else {
		r.arp.Stop(offset, r.sink)
	}
	r.arpWasOn = r.current.ArpEnabled
}

func clampOffset(offset int32, numSamples int) int32 {
	if offset < 0 {
		return 0
	}
	if offset >= int32(numSamples) {
		return int32(numSamples - 1)
	}
	return offset
}

// sortTimeline is a stable insertion sort on (offset, arrival). Blocks carry
// few events and arrive almost sorted, so this stays cheap and allocation
// free where the generic sort would box its arguments.
func sortTimeline(entries []timelineEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0; j-- {
			a, b := &entries[j-1], &entries[j]
			if a.offset < b.offset || (a.offset == b.offset && a.arrival < b.arrival) {
				break
			}
			entries[j-1], entries[j] = entries[j], entries[j-1]
		}
	}
}

// sortEvents stable-sorts output events by offset, preserving emission order
// within one offset so note-offs always precede the note-ons that replace
// them.
func sortEvents(events []midi.Event) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && events[j-1].Offset > events[j].Offset; j-- {
			events[j-1], events[j] = events[j], events[j-1]
		}
	}
}
