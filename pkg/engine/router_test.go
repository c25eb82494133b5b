package engine

import (
	"testing"

	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/midi"
	"github.com/stfufane/miditransposer/pkg/param"
)

func newTestRouter(maxPoly int) (*Router, *param.Registry, *param.Snapshot) {
	reg := param.BuildRegistry()
	snap := param.NewSnapshot()
	r := NewRouter(reg, snap, maxPoly, 64)
	return r, reg, snap
}

func publish(reg *param.Registry, snap *param.Snapshot, mutate func(*param.Transposition)) {
	tr := param.FromRegistry(reg)
	mutate(&tr)
	param.ApplyToRegistry(tr, reg)
	snap.Store(tr)
}

func TestRouterIdentityLaw(t *testing.T) {
	r, _, _ := newTestRouter(16)
	in := []midi.Event{
		midi.NoteOn(0, 60, 100, 0),
		midi.ControlChange(0, midi.CCModWheel, 40, 30),
		midi.NoteOff(0, 60, 0, 100),
		midi.NoteOn(1, 72, 90, 200),
		midi.NoteOff(1, 72, 0, 400),
	}
	out := r.ProcessBlock(in, nil, Transport{}, 512)
	if len(out) != len(in) {
		t.Fatalf("identity produced %d events, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Errorf("identity out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestRouterBypassLaw(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) {
		tr.Bypass = true
		tr.Semitones = 12
		tr.Template = chord.MajorTriad
		tr.Scale = chord.ScaleBlues
	})
	in := []midi.Event{
		midi.NoteOn(0, 60, 100, 0),
		midi.NoteOff(0, 60, 0, 256),
	}
	out := r.ProcessBlock(in, nil, Transport{}, 512)
	if len(out) != 2 || out[0] != in[0] || out[1] != in[1] {
		t.Errorf("bypass output %v, want input unchanged", out)
	}
}

// Scenario: +5 unison shift, then release.
func TestRouterSimpleTransposition(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) { tr.Semitones = 5 })

	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 100, 10)}, nil, Transport{}, 128)
	if len(out) != 1 || out[0] != midi.NoteOn(0, 65, 100, 10) {
		t.Fatalf("block 1 out = %v, want NoteOn(65)", out)
	}
	out = r.ProcessBlock([]midi.Event{midi.NoteOff(0, 60, 0, 20)}, nil, Transport{}, 128)
	if len(out) != 1 || out[0] != midi.NoteOff(0, 65, 0, 20) {
		t.Fatalf("block 2 out = %v, want NoteOff(65)", out)
	}
}

// Scenario: chord frozen at onset survives a template change before release.
func TestRouterFreezeAcrossBlocks(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) { tr.Template = chord.MajorTriad })

	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 36, 100, 0)}, nil, Transport{}, 128)
	if len(out) != 3 {
		t.Fatalf("chord onset = %v", out)
	}

	publish(reg, snap, func(tr *param.Transposition) { tr.Template = chord.MinorTriad })
	out = r.ProcessBlock([]midi.Event{midi.NoteOff(0, 36, 0, 64)}, nil, Transport{}, 128)
	wantOff := []uint8{36, 40, 43}
	if len(out) != 3 {
		t.Fatalf("release = %v", out)
	}
	for i, pitch := range wantOff {
		if out[i].Kind != midi.KindNoteOff || out[i].Pitch != pitch {
			t.Errorf("release[%d] = %v, want NoteOff(%d)", i, out[i], pitch)
		}
	}
}

// A parameter change mid-block affects only notes at or after its offset.
func TestRouterSampleAccurateAutomation(t *testing.T) {
	r, reg, _ := newTestRouter(16)
	semitones := reg.Get(param.ParamSemitones)

	in := []midi.Event{
		midi.NoteOn(0, 60, 100, 0),
		midi.NoteOn(0, 62, 100, 200),
	}
	changes := []ParamChange{
		{ID: param.ParamSemitones, Value: semitones.Normalize(12), Offset: 100},
	}
	out := r.ProcessBlock(in, changes, Transport{}, 512)
	if len(out) != 2 {
		t.Fatalf("out = %v", out)
	}
	if out[0].Pitch != 60 {
		t.Errorf("note before automation transposed: %v", out[0])
	}
	if out[1].Pitch != 74 {
		t.Errorf("note after automation = %v, want pitch 74", out[1])
	}
}

// An automated value stays in force for later blocks; only a control-side
// publish replaces it.
func TestRouterAutomationPersistsAcrossBlocks(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	semitones := reg.Get(param.ParamSemitones)

	changes := []ParamChange{
		{ID: param.ParamSemitones, Value: semitones.Normalize(12), Offset: 100},
	}
	r.ProcessBlock(nil, changes, Transport{}, 512)
	if got := semitones.Plain(); got != 12 {
		t.Fatalf("registry semitones after automation = %g, want 12", got)
	}

	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 100, 0)}, nil, Transport{}, 512)
	if len(out) != 1 || out[0].Pitch != 72 {
		t.Fatalf("note one block after automation = %v, want pitch 72", out)
	}
	r.ProcessBlock([]midi.Event{midi.NoteOff(0, 60, 0, 0)}, nil, Transport{}, 512)

	// A fresh publish overrides the automated value.
	publish(reg, snap, func(tr *param.Transposition) { tr.Semitones = 3 })
	out = r.ProcessBlock([]midi.Event{midi.NoteOn(0, 62, 100, 0)}, nil, Transport{}, 512)
	if len(out) != 1 || out[0].Pitch != 65 {
		t.Errorf("note after publish = %v, want pitch 65", out)
	}
}

func TestRouterAutomatesNoteMapping(t *testing.T) {
	r, reg, _ := newTestRouter(16)
	active := reg.Get(param.NoteParamID(0, param.NoteFieldActive))
	semitones := reg.Get(param.NoteParamID(0, param.NoteFieldSemitones))

	changes := []ParamChange{
		{ID: active.ID, Value: 1, Offset: 0},
		{ID: semitones.ID, Value: semitones.Normalize(7), Offset: 0},
	}
	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 100, 10)}, changes, Transport{}, 512)
	if len(out) != 1 || out[0].Pitch != 67 {
		t.Fatalf("mapped C = %v, want pitch 67", out)
	}

	// Other pitch classes stay on the global identity.
	out = r.ProcessBlock([]midi.Event{midi.NoteOn(0, 62, 90, 0)}, nil, Transport{}, 512)
	if len(out) != 1 || out[0].Pitch != 62 {
		t.Errorf("unmapped D = %v, want pitch 62", out)
	}
}

// At the same offset the parameter change is applied first.
func TestRouterAutomationTieBreak(t *testing.T) {
	r, reg, _ := newTestRouter(16)
	semitones := reg.Get(param.ParamSemitones)

	out := r.ProcessBlock(
		[]midi.Event{midi.NoteOn(0, 60, 100, 50)},
		[]ParamChange{{ID: param.ParamSemitones, Value: semitones.Normalize(7), Offset: 50}},
		Transport{}, 128,
	)
	if len(out) != 1 || out[0].Pitch != 67 {
		t.Errorf("out = %v, want NoteOn(67)", out)
	}
}

func TestRouterMalformedEventsDropped(t *testing.T) {
	r, _, _ := newTestRouter(16)
	in := []midi.Event{
		{Kind: midi.KindNoteOn, Channel: 0, Pitch: 200, Velocity: 100},
		{Kind: midi.KindNoteOn, Channel: 16, Pitch: 60, Velocity: 100},
	}
	out := r.ProcessBlock(in, nil, Transport{}, 128)
	if len(out) != 0 {
		t.Errorf("malformed events produced %v", out)
	}
	if r.Table().HeldVoices() != 0 {
		t.Error("malformed event mutated the voice table")
	}
}

func TestRouterOrphanOffDropped(t *testing.T) {
	r, _, _ := newTestRouter(16)
	out := r.ProcessBlock([]midi.Event{midi.NoteOff(0, 72, 0, 0)}, nil, Transport{}, 128)
	if len(out) != 0 {
		t.Errorf("orphan off produced %v", out)
	}
}

func TestRouterVelocityZeroNoteOnReleases(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) { tr.Semitones = 2 })

	r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 100, 0)}, nil, Transport{}, 128)
	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 0, 0)}, nil, Transport{}, 128)
	if len(out) != 1 || out[0].Kind != midi.KindNoteOff || out[0].Pitch != 62 {
		t.Errorf("velocity-0 on = %v, want NoteOff(62)", out)
	}
}

func TestRouterChannelFilterPassthrough(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) {
		tr.InputChannel = 1 // channel index 0 only
		tr.Semitones = 12
	})
	in := []midi.Event{
		midi.NoteOn(0, 60, 100, 0), // transposed
		midi.NoteOn(5, 60, 100, 1), // passes through untouched
	}
	out := r.ProcessBlock(in, nil, Transport{}, 128)
	if len(out) != 2 {
		t.Fatalf("out = %v", out)
	}
	if out[0].Pitch != 72 {
		t.Errorf("listened channel = %v, want pitch 72", out[0])
	}
	if out[1] != in[1] {
		t.Errorf("foreign channel altered: %v", out[1])
	}
}

func TestRouterAllNotesOffReleasesEverything(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) { tr.Template = chord.MajorTriad })

	r.ProcessBlock([]midi.Event{
		midi.NoteOn(0, 60, 100, 0),
		midi.NoteOn(0, 65, 100, 0),
	}, nil, Transport{}, 128)

	out := r.ProcessBlock([]midi.Event{
		midi.ControlChange(0, midi.CCAllNotesOff, 0, 10),
	}, nil, Transport{}, 128)

	offs := 0
	for _, e := range out {
		if e.Kind == midi.KindNoteOff {
			offs++
		}
	}
	if offs != 6 {
		t.Errorf("all-notes-off released %d notes, want 6 (%v)", offs, out)
	}
	// The CC itself still passes through.
	last := out[len(out)-1]
	if last.Kind != midi.KindControlChange || last.Pitch != midi.CCAllNotesOff {
		t.Errorf("CC not passed through: %v", out)
	}
	if r.Table().HeldVoices() != 0 {
		t.Error("voices survived all-notes-off")
	}
}

func TestRouterOutputOrderedByOffset(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) { tr.Template = chord.PowerChord })

	in := []midi.Event{
		midi.NoteOn(0, 60, 100, 300),
		midi.NoteOn(0, 40, 100, 10),
		midi.ControlChange(0, midi.CCVolume, 90, 150),
	}
	out := r.ProcessBlock(in, nil, Transport{}, 512)
	for i := 1; i < len(out); i++ {
		if out[i].Offset < out[i-1].Offset {
			t.Fatalf("output not ordered: %v", out)
		}
	}
	if len(out) != 5 {
		t.Errorf("out len = %d, want 5 (%v)", len(out), out)
	}
}

// With the arp on, a chord struck mid-block starts sounding at its own
// offset, never earlier in the block.
func TestRouterArpRespectsChordOnset(t *testing.T) {
	r, reg, snap := newTestRouter(16)
	publish(reg, snap, func(tr *param.Transposition) {
		tr.Template = chord.MajorTriad
		tr.ArpEnabled = true
	})

	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 100, 400)}, nil, Transport{}, 512)
	if len(out) == 0 {
		t.Fatal("arp emitted nothing for the new chord")
	}
	for _, e := range out {
		if e.Offset < 400 {
			t.Errorf("event %v precedes the chord onset at 400", e)
		}
	}

	// A chord held from an earlier block steps from the start of the next.
	out = r.ProcessBlock(nil, nil, Transport{}, 48000)
	if len(out) == 0 {
		t.Error("arp stalled on the held chord")
	}
}

func TestRouterEvictionScenario(t *testing.T) {
	r, reg, snap := newTestRouter(8)
	publish(reg, snap, func(tr *param.Transposition) {})

	// Six sounding unison voices.
	var in []midi.Event
	for i := uint8(0); i < 6; i++ {
		in = append(in, midi.NoteOn(0, 30+i, 100, 0))
	}
	r.ProcessBlock(in, nil, Transport{}, 128)

	publish(reg, snap, func(tr *param.Transposition) { tr.Template = chord.MajorTriad })
	out := r.ProcessBlock([]midi.Event{midi.NoteOn(0, 60, 100, 0)}, nil, Transport{}, 128)
	if len(out) != 4 {
		t.Fatalf("eviction block = %v", out)
	}
	if out[0].Kind != midi.KindNoteOff || out[0].Pitch != 30 {
		t.Errorf("oldest voice not evicted first: %v", out[0])
	}
}
