package plugin

import (
	"io"

	"github.com/stfufane/miditransposer/pkg/param"
)

// Processor is the interface a host adapter drives. ProcessBlock runs
// on the audio thread and must not allocate, lock or block; everything
// else runs on the control thread.
type Processor interface {
	// Initialize prepares the processor for a sample rate and the
	// largest block the host will ever deliver.
	Initialize(sampleRate float64, maxBlockSize int32) error

	// ProcessBlock consumes ctx's input events and parameter changes
	// and publishes the block's output events via ctx.SetOut.
	ProcessBlock(ctx *Context)

	// SetActive toggles processing. Deactivation resets all voice and
	// arpeggiator state.
	SetActive(active bool) error

	// Parameters exposes the registry for host parameter enumeration.
	Parameters() *param.Registry

	// SaveState and LoadState persist the full parameter state.
	SaveState(w io.Writer) error
	LoadState(r io.Reader) error
}
