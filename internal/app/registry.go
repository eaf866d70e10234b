package app

import (
	"slices"
	"sync"
)

// Selector names a UI control that chooses a collection.
type Selector string

const (
	SelectAdd    Selector = "add"
	SelectSearch Selector = "search"
	SelectUpload Selector = "upload"
)

// Selectors lists every collection selector the UI shows.
func Selectors() []Selector {
	return []Selector{SelectAdd, SelectSearch, SelectUpload}
}

// Registry is the client's snapshot of known collection names. All selectors
// are projections of the same snapshot; Replace swaps it in one step.
type Registry struct {
	mu       sync.RWMutex
	names    []string
	selected map[Selector]string
	loaded   bool
}

// NewRegistry creates an empty, not yet loaded registry.
func NewRegistry() *Registry {
	return &Registry{selected: make(map[Selector]string)}
}

// Replace installs a new snapshot and re-applies each selector's previous
// choice when it still exists, falling back to the first name.
func (r *Registry) Replace(names []string) {
	snapshot := slices.Clone(names)
	if snapshot == nil {
		snapshot = []string{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = snapshot
	r.loaded = true
	for _, s := range Selectors() {
		prev := r.selected[s]
		switch {
		case prev != "" && slices.Contains(snapshot, prev):
			// still valid
		case len(snapshot) > 0:
			r.selected[s] = snapshot[0]
		default:
			r.selected[s] = ""
		}
	}
}

// Names returns a copy of the current snapshot.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.names)
}

// Options is the option set shown by a selector.
func (r *Registry) Options(Selector) []string { return r.Names() }

// Loaded reports whether at least one refresh succeeded.
func (r *Registry) Loaded() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loaded
}

// Contains reports whether name is in the current snapshot.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Contains(r.names, name)
}

// Selected returns the collection chosen in s, or "" when there is none.
func (r *Registry) Selected(s Selector) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.selected[s]
}

// Select picks name for s; names outside the snapshot are refused.
func (r *Registry) Select(s Selector, name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !slices.Contains(r.names, name) {
		return false
	}
	r.selected[s] = name
	return true
}

// Cycle moves the selector by step positions, wrapping around.
func (r *Registry) Cycle(s Selector, step int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.names) == 0 {
		return ""
	}
	i := slices.Index(r.names, r.selected[s])
	if i < 0 {
		i = 0
	} else {
		i = ((i+step)%len(r.names) + len(r.names)) % len(r.names)
	}
	r.selected[s] = r.names[i]
	return r.names[i]
}
