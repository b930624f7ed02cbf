// internal/pkg/metrics/metrics.go
package metrics

import (
	"sync"
	"sync/atomic"
)

// Registry is a small set of named counters exposed on the health endpoint.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]*int64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{counters: make(map[string]*int64)}
}

// Inc increments the named counter, creating it on first use.
func (r *Registry) Inc(name string) {
	r.mu.RLock()
	counter, ok := r.counters[name]
	r.mu.RUnlock()
	if !ok {
		r.mu.Lock()
		counter, ok = r.counters[name]
		if !ok {
			counter = new(int64)
			r.counters[name] = counter
		}
		r.mu.Unlock()
	}
	atomic.AddInt64(counter, 1)
}

// Snapshot returns the current counter values.
func (r *Registry) Snapshot() map[string]int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]int64, len(r.counters))
	for name, counter := range r.counters {
		out[name] = atomic.LoadInt64(counter)
	}
	return out
}
