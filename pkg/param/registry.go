package param

import "sync"

// Registry holds the plugin's parameters in declaration order. Additions
// happen at construction time; afterwards the registry is only read, so the
// lock never contends with the audio context.
type Registry struct {
	mu     sync.RWMutex
	params map[uint32]*Parameter
	order  []uint32
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		params: make(map[uint32]*Parameter),
	}
}

// Add registers parameters, skipping duplicate IDs.
func (r *Registry) Add(params ...*Parameter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range params {
		if _, exists := r.params[p.ID]; exists {
			continue
		}
		r.params[p.ID] = p
		r.order = append(r.order, p.ID)
	}
}

// Get retrieves a parameter by ID, nil if absent.
func (r *Registry) Get(id uint32) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.params[id]
}

// ByIndex retrieves a parameter by declaration index, nil if out of range.
func (r *Registry) ByIndex(index int) *Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if index < 0 || index >= len(r.order) {
		return nil
	}
	return r.params[r.order[index]]
}

// Count returns the number of registered parameters.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// All returns the parameters in declaration order.
func (r *Registry) All() []*Parameter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Parameter, len(r.order))
	for i, id := range r.order {
		result[i] = r.params[id]
	}
	return result
}
