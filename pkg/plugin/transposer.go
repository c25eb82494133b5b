package plugin

import (
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/stfufane/miditransposer/pkg/chord"
	"github.com/stfufane/miditransposer/pkg/engine"
	"github.com/stfufane/miditransposer/pkg/param"
)

// Transposer is the complete processor: a parameter registry and
// snapshot on the control side, an event router on the audio side.
//
// The control methods (SetParameter, SetCustomOffsets, LoadState) are
// serialized by a mutex and publish a fresh snapshot after every edit.
// ProcessBlock never takes that mutex; it reads the snapshot through
// an atomic pointer.
type Transposer struct {
	info     Info
	registry *param.Registry
	snapshot *param.Snapshot
	router   *engine.Router
	state    *param.StateManager

	mu           sync.Mutex
	customCount  uint8
	customOffset [chord.MaxOffsets]int8

	sampleRate float64
	active     bool
}

// NewTransposer creates a processor with the given polyphony budget and
// per-block event capacity.
func NewTransposer(maxPolyphony, maxEvents int) *Transposer {
	t := &Transposer{
		info:     DefaultInfo,
		registry: param.BuildRegistry(),
		snapshot: param.NewSnapshot(),
	}
	t.router = engine.NewRouter(t.registry, t.snapshot, maxPolyphony, maxEvents)
	t.state = param.NewStateManager(t.registry)
	t.state.SetCustomState(t.saveCustom, t.restoreCustom)
	return t
}

// Info returns the plugin metadata.
func (t *Transposer) Info() Info {
	return t.info
}

// Initialize implements Processor.
func (t *Transposer) Initialize(sampleRate float64, maxBlockSize int32) error {
	if sampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %g", sampleRate)
	}
	t.sampleRate = sampleRate
	t.router.SetSampleRate(sampleRate)
	t.publish()
	return nil
}

// ProcessBlock implements Processor. Audio thread.
func (t *Transposer) ProcessBlock(ctx *Context) {
	out := t.router.ProcessBlock(ctx.Events(), ctx.Changes(), ctx.Transport, ctx.NumSamples())
	ctx.SetOut(out)
	ctx.PassThrough()
}

// SetActive implements Processor. Deactivating releases every voice so
// reactivation starts clean.
func (t *Transposer) SetActive(active bool) error {
	if t.active && !active {
		t.router.Reset()
	}
	t.active = active
	return nil
}

// Parameters implements Processor.
func (t *Transposer) Parameters() *param.Registry {
	return t.registry
}

// SetParameter applies a normalized value from the host's controller
// and publishes a new snapshot. Control thread.
func (t *Transposer) SetParameter(id uint32, normalized float64) error {
	p := t.registry.Get(id)
	if p == nil {
		return fmt.Errorf("unknown parameter %d", id)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p.SetValue(normalized)
	t.publishLocked()
	return nil
}

// SetCustomOffsets installs the offsets used by the Custom chord
// template. At most chord.MaxOffsets are kept. Control thread.
func (t *Transposer) SetCustomOffsets(offsets []int8) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := len(offsets)
	if n > chord.MaxOffsets {
		n = chord.MaxOffsets
	}
	t.customCount = uint8(n)
	t.customOffset = [chord.MaxOffsets]int8{}
	copy(t.customOffset[:], offsets[:n])
	t.publishLocked()
}

// CustomOffsets returns the currently installed custom offsets.
func (t *Transposer) CustomOffsets() []int8 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]int8, t.customCount)
	copy(out, t.customOffset[:t.customCount])
	return out
}

// SaveState implements Processor.
func (t *Transposer) SaveState(w io.Writer) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state.Save(w)
}

// LoadState implements Processor. A restored preset becomes the live
// transposition immediately.
func (t *Transposer) LoadState(r io.Reader) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.state.Load(r); err != nil {
		return err
	}
	t.publishLocked()
	return nil
}

func (t *Transposer) publish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.publishLocked()
}

// publishLocked composes the registry values and the custom offsets
// into one immutable Transposition and swaps it in. Caller holds mu.
func (t *Transposer) publishLocked() {
	p := param.FromRegistry(t.registry)
	p.CustomOffsets = t.customOffset
	p.CustomCount = t.customCount
	t.snapshot.Store(p)
}

func (t *Transposer) saveCustom(w io.Writer) error {
	if err := binary.Write(w, binary.LittleEndian, t.customCount); err != nil {
		return err
	}
	return binary.Write(w, binary.LittleEndian, t.customOffset)
}

func (t *Transposer) restoreCustom(r io.Reader) error {
	if err := binary.Read(r, binary.LittleEndian, &t.customCount); err != nil {
		return err
	}
	if err := binary.Read(r, binary.LittleEndian, &t.customOffset); err != nil {
		return err
	}
	if t.customCount > chord.MaxOffsets {
		t.customCount = chord.MaxOffsets
	}
	return nil
}
