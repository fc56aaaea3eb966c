// README: Per-session search engines for the HTTP bridge.
package search

import (
	"sync"
	"time"
)

// Registry hands out one Engine per typing session so that keystrokes from
// the same search box supersede each other and never other riders' searches.
type Registry struct {
	geocoder Geocoder
	debounce time.Duration
	limit    int

	mu       sync.Mutex
	engines  map[string]*Engine
	lastUsed map[string]time.Time
}

func NewRegistry(geocoder Geocoder, debounce time.Duration, limit int) *Registry {
	return &Registry{
		geocoder: geocoder,
		debounce: debounce,
		limit:    limit,
		engines:  make(map[string]*Engine),
		lastUsed: make(map[string]time.Time),
	}
}

func (r *Registry) Session(id string) *Engine {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.engines[id]
	if !ok {
		e = NewEngine(r.geocoder, r.debounce, r.limit)
		r.engines[id] = e
	}
	r.lastUsed[id] = time.Now()
	return e
}

// Close cancels and forgets a session.
func (r *Registry) Close(id string) {
	r.mu.Lock()
	e, ok := r.engines[id]
	delete(r.engines, id)
	delete(r.lastUsed, id)
	r.mu.Unlock()
	if ok {
		e.Cancel()
	}
}

// Prune drops sessions idle for longer than maxIdle and returns how many.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := time.Now().Add(-maxIdle)
	r.mu.Lock()
	var stale []*Engine
	for id, t := range r.lastUsed {
		if t.Before(cutoff) {
			stale = append(stale, r.engines[id])
			delete(r.engines, id)
			delete(r.lastUsed, id)
		}
	}
	r.mu.Unlock()
	for _, e := range stale {
		e.Cancel()
	}
	return len(stale)
}
