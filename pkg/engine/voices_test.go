package engine

import (
	"math/rand"
	"testing"

	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/midi"
	"github.com/stfufane/miditransposer/pkg/param"
)

func collect(sink *EventSink) []midi.Event {
	return append([]midi.Event(nil), sink.Events()...)
}

func TestVoiceTableSimpleShift(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(32)
	p := param.Transposition{Semitones: 5}

	table.NoteOn(0, 60, 100, 0, &p, true, sink)
	got := collect(sink)
	if len(got) != 1 || got[0] != midi.NoteOn(0, 65, 100, 0) {
		t.Fatalf("note-on output = %v, want NoteOn(65)", got)
	}

	sink.Reset()
	table.NoteOff(0, 60, 64, 10, sink)
	got = collect(sink)
	if len(got) != 1 || got[0] != midi.NoteOff(0, 65, 64, 10) {
		t.Fatalf("note-off output = %v, want NoteOff(65)", got)
	}
	if table.ActiveOutputs() != 0 {
		t.Errorf("active outputs = %d after release", table.ActiveOutputs())
	}
}

func TestVoiceTableFreezeAtOnset(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(32)

	onset := param.Transposition{Template: chord.MajorTriad}
	table.NoteOn(0, 36, 100, 0, &onset, true, sink)
	want := []midi.Event{
		midi.NoteOn(0, 36, 100, 0),
		midi.NoteOn(0, 40, 100, 0),
		midi.NoteOn(0, 43, 100, 0),
	}
	got := collect(sink)
	if len(got) != len(want) {
		t.Fatalf("onset emitted %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("onset[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	// The release must reverse the frozen outputs even though the caller's
	// parameters moved on to a minor triad.
	sink.Reset()
	table.NoteOff(0, 36, 0, 5, sink)
	got = collect(sink)
	wantOff := []uint8{36, 40, 43}
	if len(got) != 3 {
		t.Fatalf("release emitted %v", got)
	}
	for i, pitch := range wantOff {
		if got[i].Kind != midi.KindNoteOff || got[i].Pitch != pitch {
			t.Errorf("release[%d] = %v, want NoteOff(%d)", i, got[i], pitch)
		}
	}
}

func TestVoiceTableOrphanOffIsNoop(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(8)
	table.NoteOff(0, 72, 0, 0, sink)
	if len(sink.Events()) != 0 {
		t.Errorf("orphan off produced %v", sink.Events())
	}
	if table.HeldVoices() != 0 || table.ActiveOutputs() != 0 {
		t.Error("orphan off mutated the table")
	}
}

func TestVoiceTableOverlapRetrigger(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(32)
	p := param.Transposition{}

	table.NoteOn(0, 60, 100, 0, &p, true, sink)
	sink.Reset()
	table.NoteOn(0, 60, 80, 4, &p, true, sink)
	got := collect(sink)
	if len(got) != 2 {
		t.Fatalf("retrigger emitted %v", got)
	}
	if got[0].Kind != midi.KindNoteOff || got[0].Pitch != 60 {
		t.Errorf("retrigger[0] = %v, want implicit NoteOff(60)", got[0])
	}
	if got[1].Kind != midi.KindNoteOn || got[1].Velocity != 80 {
		t.Errorf("retrigger[1] = %v, want NoteOn(60, vel 80)", got[1])
	}
	if table.ActiveOutputs() != 1 {
		t.Errorf("active outputs = %d, want 1", table.ActiveOutputs())
	}
}

func TestVoiceTableEvictionOldestFirst(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(64)
	unison := param.Transposition{}
	triad := param.Transposition{Template: chord.MajorTriad}

	// Six single-note voices, oldest is pitch 30.
	for i := uint8(0); i < 6; i++ {
		table.NoteOn(0, 30+i, 100, 0, &unison, true, sink)
	}
	if table.ActiveOutputs() != 6 {
		t.Fatalf("active outputs = %d, want 6", table.ActiveOutputs())
	}

	// A three-note chord exceeds the budget of 8; the single oldest voice
	// goes first, then the chord plays.
	sink.Reset()
	table.NoteOn(0, 60, 100, 16, &triad, true, sink)
	got := collect(sink)
	if len(got) != 4 {
		t.Fatalf("eviction emitted %v", got)
	}
	if got[0].Kind != midi.KindNoteOff || got[0].Pitch != 30 {
		t.Errorf("evicted %v, want oldest NoteOff(30)", got[0])
	}
	for i, pitch := range []uint8{60, 64, 67} {
		if got[i+1].Kind != midi.KindNoteOn || got[i+1].Pitch != pitch {
			t.Errorf("chord[%d] = %v, want NoteOn(%d)", i, got[i+1], pitch)
		}
	}
	if table.ActiveOutputs() != 8 {
		t.Errorf("active outputs = %d, want 8", table.ActiveOutputs())
	}
}

func TestVoiceTableNeverExceedsPolyphony(t *testing.T) {
	const maxPoly = 8
	table := NewVoiceTable(maxPoly)
	sink := NewEventSink(256)
	triad := param.Transposition{Template: chord.Major7}

	for i := uint8(0); i < 32; i++ {
		table.NoteOn(0, 40+i, 100, int32(i), &triad, true, sink)
		if table.ActiveOutputs() > maxPoly {
			t.Fatalf("polyphony exceeded: %d", table.ActiveOutputs())
		}
	}
}

// For any legal on/off sequence, every output pitch sees as many note-offs
// as note-ons once all inputs are released.
func TestVoiceTableNoStuckNotes(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	table := NewVoiceTable(6)
	sink := NewEventSink(4096)

	params := []param.Transposition{
		{},
		{Semitones: 7},
		{Template: chord.MajorTriad},
		{Template: chord.Minor7, Semitones: -5},
		{Template: chord.Octave, Octaves: 1},
		{Template: chord.MinorTriad, Scale: chord.ScaleNaturalMinor},
	}

	held := make(map[[2]uint8]bool)
	for i := 0; i < 2000; i++ {
		ch := uint8(rng.Intn(2))
		pitch := uint8(rng.Intn(40) + 40)
		id := [2]uint8{ch, pitch}
		p := params[rng.Intn(len(params))]
		if rng.Intn(2) == 0 {
			table.NoteOn(ch, pitch, uint8(rng.Intn(126)+1), int32(i), &p, true, sink)
			held[id] = true
		} else {
			table.NoteOff(ch, pitch, 0, int32(i), sink)
			delete(held, id)
		}
	}
	for id := range held {
		table.NoteOff(id[0], id[1], 0, 9999, sink)
	}

	balance := make(map[[2]uint8]int)
	for _, e := range sink.Events() {
		id := [2]uint8{e.Channel, e.Pitch}
		switch e.Kind {
		case midi.KindNoteOn:
			balance[id]++
		case midi.KindNoteOff:
			balance[id]--
		}
	}
	for id, n := range balance {
		if n != 0 {
			t.Errorf("pitch (ch %d, %d) unbalanced by %d", id[0], id[1], n)
		}
	}
	if table.ActiveOutputs() != 0 || table.HeldVoices() != 0 {
		t.Errorf("table not empty after full release: %d outputs, %d voices",
			table.ActiveOutputs(), table.HeldVoices())
	}
}

func TestVoiceTableSilenceKeepsVoicesHeld(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(32)
	triad := param.Transposition{Template: chord.MajorTriad}
	table.NoteOn(0, 60, 100, 0, &triad, true, sink)

	sink.Reset()
	table.Silence(3, sink)
	if got := len(sink.Events()); got != 3 {
		t.Fatalf("silence emitted %d events, want 3", got)
	}
	if table.ActiveOutputs() != 0 {
		t.Errorf("active outputs = %d after silence", table.ActiveOutputs())
	}
	if table.HeldVoices() != 1 {
		t.Errorf("held voices = %d, want 1", table.HeldVoices())
	}

	// Releasing a silenced voice emits nothing further.
	sink.Reset()
	table.NoteOff(0, 60, 0, 5, sink)
	if len(sink.Events()) != 0 {
		t.Errorf("silenced release emitted %v", sink.Events())
	}
	if table.HeldVoices() != 0 {
		t.Error("voice not freed after release")
	}
}

func TestVoiceTableLatest(t *testing.T) {
	table := NewVoiceTable(8)
	sink := NewEventSink(32)
	triad := param.Transposition{Template: chord.MinorTriad}

	if _, _, _, ok := table.Latest(); ok {
		t.Error("empty table reported a latest voice")
	}
	table.NoteOn(0, 50, 90, 0, &triad, true, sink)
	table.NoteOn(0, 57, 110, 1, &triad, true, sink)
	ch, outputs, vel, ok := table.Latest()
	if !ok || ch != 0 || vel != 110 {
		t.Fatalf("Latest() = ch %d vel %d ok %v", ch, vel, ok)
	}
	if !equalPitches(outputs, []uint8{57, 60, 64}) {
		t.Errorf("latest chord = %v, want [57 60 64]", outputs)
	}
}
