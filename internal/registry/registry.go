package registry

import (
	"sync"

	"github.com/spikewatch/spikewatch/pkg/scan"
)

// Entry is one watched attribute and its spike threshold.
type Entry struct {
	Ref       string  `json:"ref"`
	Threshold float64 `json:"threshold"`
}

// Registry is the ordered, reference-deduplicated watch list.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries []Entry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{}
}

// Add appends (ref, threshold) and returns its index. When ref is already
// registered the existing index is returned and added is false; the stored
// threshold is left untouched.
func (r *Registry) Add(ref string, threshold float64) (index int, added bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.Ref == ref {
			return i, false
		}
	}
	r.entries = append(r.entries, Entry{Ref: ref, Threshold: threshold})
	return len(r.entries) - 1, true
}

// Remove deletes the entry at index. Returns false for an out-of-range index.
func (r *Registry) Remove(index int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.entries) {
		return false
	}
	r.entries = append(r.entries[:index], r.entries[index+1:]...)
	return true
}

// SetThreshold updates the threshold at index. Returns false for an
// out-of-range index.
func (r *Registry) SetThreshold(index int, threshold float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if index < 0 || index >= len(r.entries) {
		return false
	}
	r.entries[index].Threshold = threshold
	return true
}

// Get returns the entry at index.
func (r *Registry) Get(index int) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if index < 0 || index >= len(r.entries) {
		return Entry{}, false
	}
	return r.entries[index], true
}

// Has reports whether ref is registered.
func (r *Registry) Has(ref string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.entries {
		if e.Ref == ref {
			return true
		}
	}
	return false
}

// Entries returns a copy of the list in order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns the number of entries.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Clear removes every entry.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
}

// ScanAttrs returns the list as scan request attributes, in order.
func (r *Registry) ScanAttrs() []scan.Attr {
	r.mu.RLock()
	defer r.mu.RUnlock()

	attrs := make([]scan.Attr, len(r.entries))
	for i, e := range r.entries {
		attrs[i] = scan.Attr{Ref: e.Ref, Threshold: e.Threshold}
	}
	return attrs
}
