package plugin

import (
	"github.com/stfufane/miditransposer/pkg/engine"
	"github.com/stfufane/miditransposer/pkg/midi"
)

// Context carries one block's worth of host data in and out of a
// processor. All slices are pre-allocated at construction; the host
// side fills them between Begin and ProcessBlock, the processor fills
// Out. Nothing here allocates once the context exists.
type Context struct {
	Input      [][]float32
	Output     [][]float32
	SampleRate float64
	Transport  engine.Transport

	events  []midi.Event
	changes []engine.ParamChange
	out     []midi.Event

	numSamples int
}

// NewContext creates a context able to hold maxEvents input events and
// parameter changes per block.
func NewContext(maxEvents int) *Context {
	return &Context{
		events:  make([]midi.Event, 0, maxEvents),
		changes: make([]engine.ParamChange, 0, maxEvents),
	}
}

// Begin resets the context for a new block of numSamples samples.
func (c *Context) Begin(numSamples int) {
	c.numSamples = numSamples
	c.events = c.events[:0]
	c.changes = c.changes[:0]
	c.out = nil
	c.Transport = engine.Transport{}
}

// NumSamples returns the current block length.
func (c *Context) NumSamples() int {
	return c.numSamples
}

// AddEvent queues an input MIDI event for this block. Events past the
// pre-allocated capacity are dropped rather than grown.
func (c *Context) AddEvent(e midi.Event) {
	if len(c.events) < cap(c.events) {
		c.events = append(c.events, e)
	}
}

// AddParamChange queues a sample-accurate parameter change for this block.
func (c *Context) AddParamChange(ch engine.ParamChange) {
	if len(c.changes) < cap(c.changes) {
		c.changes = append(c.changes, ch)
	}
}

// Events returns the queued input events.
func (c *Context) Events() []midi.Event {
	return c.events
}

// Changes returns the queued parameter changes.
func (c *Context) Changes() []engine.ParamChange {
	return c.changes
}

// SetOut records the processor's output events for this block. The
// slice is owned by the processor and valid until its next block.
func (c *Context) SetOut(events []midi.Event) {
	c.out = events
}

// Out returns the output events produced by the processor.
func (c *Context) Out() []midi.Event {
	return c.out
}

// PassThrough copies audio input to output unchanged. The transposer
// never touches audio, so every block ends with this.
func (c *Context) PassThrough() {
	n := len(c.Input)
	if len(c.Output) < n {
		n = len(c.Output)
	}
	for ch := 0; ch < n; ch++ {
		copy(c.Output[ch], c.Input[ch])
	}
}

// Clear zeros the output buffers.
func (c *Context) Clear() {
	for ch := range c.Output {
		for i := range c.Output[ch] {
			c.Output[ch][i] = 0
		}
	}
}
