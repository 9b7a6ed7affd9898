package cache

import (
	"sync"

	"github.com/straja-ai/fieldsense/internal/field"
)

// Runtime is the session-scoped cache for fields seen during this process
// that were not promoted to the learned store.
type Runtime struct {
	mu      sync.RWMutex
	entries map[string]Result
}

func NewRuntime() *Runtime {
	return &Runtime{entries: map[string]Result{}}
}

func (r *Runtime) Get(p field.Platform, f field.Field) (Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.entries[field.Key(p, f)]
	return res, ok
}

func (r *Runtime) Put(p field.Platform, f field.Field, res Result) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[field.Key(p, f)] = res
}

func (r *Runtime) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
