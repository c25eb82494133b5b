package param

import (
	"encoding/binary"
	"fmt"
	"io"
)

const (
	stateMagic   = "MTRSP1"
	stateVersion = uint32(1)
)

// StateManager serializes the registry for the host's preset mechanism.
// Runs on the control context only.
type StateManager struct {
	registry *Registry
	custom   CustomStateFunc
	restore  CustomRestoreFunc
}

// CustomStateFunc saves state beyond the parameter values (custom chord
// offsets, for instance).
type CustomStateFunc func(w io.Writer) error

// CustomRestoreFunc loads the state written by its CustomStateFunc.
type CustomRestoreFunc func(r io.Reader) error

// NewStateManager creates a manager for the given registry.
func NewStateManager(registry *Registry) *StateManager {
	return &StateManager{registry: registry}
}

// SetCustomState registers hooks for non-parameter state.
func (m *StateManager) SetCustomState(save CustomStateFunc, restore CustomRestoreFunc) {
	m.custom = save
	m.restore = restore
}

// Save writes magic, version and every parameter as an (id, normalized
// value) pair, then the custom blob when a hook is set.
func (m *StateManager) Save(w io.Writer) error {
	if _, err := w.Write([]byte(stateMagic)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, stateVersion); err != nil {
		return err
	}
	params := m.registry.All()
	if err := binary.Write(w, binary.LittleEndian, uint32(len(params))); err != nil {
		return err
	}
	for _, p := range params {
		if err := binary.Write(w, binary.LittleEndian, p.ID); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, p.Value()); err != nil {
			return err
		}
	}
	hasCustom := uint32(0)
	if m.custom != nil {
		hasCustom = 1
	}
	if err := binary.Write(w, binary.LittleEndian, hasCustom); err != nil {
		return err
	}
	if m.custom != nil {
		return m.custom(w)
	}
	return nil
}

// Load restores parameter values saved by Save. Unknown parameter IDs are
// skipped so older presets keep loading after the set grows.
func (m *StateManager) Load(r io.Reader) error {
	header := make([]byte, len(stateMagic))
	if _, err := io.ReadFull(r, header); err != nil {
		return err
	}
	if string(header) != stateMagic {
		return fmt.Errorf("invalid state header %q", header)
	}
	var version uint32
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version > stateVersion {
		return fmt.Errorf("state version %d is newer than supported %d", version, stateVersion)
	}
	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		var id uint32
		var value float64
		if err := binary.Read(r, binary.LittleEndian, &id); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &value); err != nil {
			return err
		}
		if p := m.registry.Get(id); p != nil {
			p.SetValue(value)
		}
	}
	var hasCustom uint32
	if err := binary.Read(r, binary.LittleEndian, &hasCustom); err != nil {
		return err
	}
	if hasCustom == 1 && m.restore != nil {
		return m.restore(r)
	}
	return nil
}
