package worker

import (
	"sort"
	"sync"
)

// Registry holds the task executor specs registered in this process, keyed by
// task type. It is read by many pollers and written rarely, so access is
// guarded by a single mutex with copy-on-read iteration.
type Registry struct {
	mu    sync.RWMutex
	specs map[string]Spec
}

// NewRegistry creates an empty executor registry.
func NewRegistry() *Registry {
	return &Registry{
		specs: make(map[string]Spec),
	}
}

// Register validates the spec and inserts it, replacing any prior spec for
// the same task type (last registration wins). Validation failures wrap
// ErrInvalidSpec.
func (r *Registry) Register(spec Spec) error {
	if err := spec.validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.specs[spec.TaskType] = spec.normalized()
	return nil
}

// Unregister removes the spec for the given task type, reporting whether it
// was present.
func (r *Registry) Unregister(taskType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.specs[taskType]
	delete(r.specs, taskType)
	return ok
}

// Get returns the spec registered for the given task type.
func (r *Registry) Get(taskType string) (Spec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spec, ok := r.specs[taskType]
	return spec, ok
}

// List returns a snapshot of all registered specs, sorted by task type for a
// stable order. Mutating the returned slice does not affect the registry.
func (r *Registry) List() []Spec {
	r.mu.RLock()
	defer r.mu.RUnlock()

	specs := make([]Spec, 0, len(r.specs))
	for _, spec := range r.specs {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool {
		return specs[i].TaskType < specs[j].TaskType
	})
	return specs
}

// Len returns the number of registered specs.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.specs)
}
