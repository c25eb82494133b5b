package engine

import (
	"github.com/stfufane/miditransposer/pkg/midi"
	"github.com/stfufane/miditransposer/pkg/param"
)

const fallbackTempo = 120.0

// Transport carries the host timing information a block is processed
// against.
type Transport struct {
	Playing  bool
	Tempo    float64 // quarter notes per minute, 0 when unknown
	PosBeats float64 // absolute position of the block start in quarter notes
}

// Arpeggiator steps through the chord of the most recently played voice,
// one note at a time, instead of letting the chord ring. Free-running mode
// derives the step length from the rate parameter and tempo; synced mode
// snaps steps onto transport beat divisions. All state is fixed-size.
type Arpeggiator struct {
	sampleRate float64

	phase    int32   // free-running samples since the last step
	division float64 // beats per step currently tracked in synced mode
	nextBeat float64 // next synced step position, in beats; 0 means unset
	index    int     // position inside the chord

	playing   bool
	noteCh    uint8
	notePitch uint8
}

// NewArpeggiator creates an arpeggiator; SetSampleRate must be called before
// the first block.
func NewArpeggiator() *Arpeggiator {
	return &Arpeggiator{sampleRate: 44100}
}

// SetSampleRate is called at initialization, before processing starts.
func (a *Arpeggiator) SetSampleRate(rate float64) {
	if rate > 0 {
		a.sampleRate = rate
	}
}

// Stop releases the sounding arp note and rewinds the sequence. Called when
// the arp parameter toggles off.
func (a *Arpeggiator) Stop(offset int32, sink *EventSink) {
	if a.playing {
		sink.Add(midi.NoteOff(a.noteCh, a.notePitch, 0, offset))
		a.playing = false
	}
	a.phase = 0
	a.division = 0
	a.nextBeat = 0
	a.index = 0
}

// Reset drops all state without emitting events.
func (a *Arpeggiator) Reset() {
	a.playing = false
	a.phase = 0
	a.division = 0
	a.nextBeat = 0
	a.index = 0
}

// ProcessBlock advances the arpeggiator across one block, emitting its
// note-offs and note-ons into the sink. The chord is looked up per step so a
// newly played voice takes over between steps.
func (a *Arpeggiator) ProcessBlock(p *param.Transposition, tr Transport, numSamples int, table *VoiceTable, sink *EventSink) {
	if !p.ArpEnabled || numSamples <= 0 {
		return
	}
	beats := param.Divisions[p.ArpRate].Beats
	if p.ArpSync && tr.Playing && tr.Tempo > 0 {
		a.processSynced(beats, tr, numSamples, table, sink)
	} else {
		a.processFree(beats, tr.Tempo, numSamples, table, sink)
	}
}

func (a *Arpeggiator) processFree(beats, tempo float64, numSamples int, table *VoiceTable, sink *EventSink) {
	if tempo <= 0 {
		tempo = fallbackTempo
	}
	period := int32(beats * 60.0 / tempo * a.sampleRate)
	if period < 1 {
		period = 1
	}
	if a.phase >= period {
		// Rate went up between blocks; fire immediately.
		a.phase = period - 1
	}
	if !a.playing {
		// A fresh chord starts sounding right away instead of waiting out
		// a full step, but never before the note that formed it.
		onset := table.LatestOnset()
		a.step(onset, table, sink)
		if a.playing {
			a.phase = -onset
		}
	}
	for offset := period - a.phase; offset < int32(numSamples); offset += period {
		a.step(offset, table, sink)
	}
	a.phase = (a.phase + int32(numSamples)) % period
}

func (a *Arpeggiator) processSynced(beats float64, tr Transport, numSamples int, table *VoiceTable, sink *EventSink) {
	samplesPerBeat := a.sampleRate * 60.0 / tr.Tempo
	if a.division != beats {
		a.division = beats
		a.nextBeat = 0
	}
	if a.nextBeat == 0 || a.nextBeat < tr.PosBeats {
		// Snap to the next division boundary at or after the block start.
		grid := beats
		if grid > 1 {
			grid = 1
		}
		next := float64(int64(tr.PosBeats/grid)) * grid
		for next < tr.PosBeats {
			next += grid
		}
		a.nextBeat = next
	}
	for {
		offset := int32((a.nextBeat - tr.PosBeats) * samplesPerBeat)
		if offset >= int32(numSamples) {
			return
		}
		if offset < 0 {
			offset = 0
		}
		a.step(offset, table, sink)
		a.nextBeat += beats
	}
}

// step turns the previous arp note off and the next chord note on.
func (a *Arpeggiator) step(offset int32, table *VoiceTable, sink *EventSink) {
	channel, outputs, velocity, ok := table.Latest()
	if !ok || len(outputs) == 0 {
		if a.playing {
			sink.Add(midi.NoteOff(a.noteCh, a.notePitch, 0, offset))
			a.playing = false
		}
		a.index = 0
		return
	}
	if onset := table.LatestOnset(); offset < onset {
		// A chord struck mid-block is never stepped before its own onset.
		offset = onset
	}
	if a.playing {
		sink.Add(midi.NoteOff(a.noteCh, a.notePitch, 0, offset))
	}
	a.index %= len(outputs)
	a.noteCh = channel
	a.notePitch = outputs[a.index]
	sink.Add(midi.NoteOn(channel, a.notePitch, velocity, offset))
	a.playing = true
	a.index++
}
