// README: Recording sessions keyed by session id, with one microphone per rider.
package audio

import (
	"errors"
	"sync"
	"time"

	"ridesafe/internal/types"
)

var (
	ErrSessionNotFound = errors.New("recording session not found")
	ErrSessionOwner    = errors.New("recording session belongs to another rider")
)

type riderDevice struct {
	pipe *PipeDevice
	mic  *Microphone
}

// Handle bundles what the HTTP bridge needs for one session.
type Handle struct {
	Session *Session
	Device  *PipeDevice
	RiderID types.ID
}

type Registry struct {
	clock Clock

	mu       sync.Mutex
	devices  map[types.ID]*riderDevice
	sessions map[string]Handle
	lastUsed map[string]time.Time
}

func NewRegistry(clock Clock) *Registry {
	if clock == nil {
		clock = realClock{}
	}
	return &Registry{
		clock:    clock,
		devices:  make(map[types.ID]*riderDevice),
		sessions: make(map[string]Handle),
		lastUsed: make(map[string]time.Time),
	}
}

// Open returns the session for sessionID, creating it on first use. All of a
// rider's sessions share that rider's microphone.
func (r *Registry) Open(sessionID string, riderID types.ID) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if h, ok := r.sessions[sessionID]; ok {
		if h.RiderID != riderID {
			return Handle{}, ErrSessionOwner
		}
		r.lastUsed[sessionID] = r.clock.Now()
		return h, nil
	}
	dev, ok := r.devices[riderID]
	if !ok {
		pipe := NewPipeDevice()
		dev = &riderDevice{pipe: pipe, mic: NewMicrophone(pipe)}
		r.devices[riderID] = dev
	}
	h := Handle{
		Session: NewSession(sessionID, dev.mic, r.clock),
		Device:  dev.pipe,
		RiderID: riderID,
	}
	r.sessions[sessionID] = h
	r.lastUsed[sessionID] = r.clock.Now()
	return h, nil
}

func (r *Registry) Get(sessionID string) (Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.sessions[sessionID]
	if !ok {
		return Handle{}, ErrSessionNotFound
	}
	r.lastUsed[sessionID] = r.clock.Now()
	return h, nil
}

// Close ends a session abruptly, releasing its microphone if held. It is the
// navigate-away path.
func (r *Registry) Close(sessionID string) {
	r.mu.Lock()
	h, ok := r.forget(sessionID)
	r.mu.Unlock()
	if ok {
		h.Session.Close()
	}
}

// Prune closes sessions untouched for longer than maxIdle and returns how
// many. Abandoned recordings release their microphone here.
func (r *Registry) Prune(maxIdle time.Duration) int {
	cutoff := r.clock.Now().Add(-maxIdle)
	r.mu.Lock()
	var stale []Handle
	for id, t := range r.lastUsed {
		if !t.Before(cutoff) {
			continue
		}
		if h, ok := r.forget(id); ok {
			stale = append(stale, h)
		}
	}
	r.mu.Unlock()
	for _, h := range stale {
		h.Session.Close()
	}
	return len(stale)
}

// Len reports open sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll is used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	handles := make([]Handle, 0, len(r.sessions))
	for id := range r.sessions {
		if h, ok := r.forget(id); ok {
			handles = append(handles, h)
		}
	}
	r.mu.Unlock()
	for _, h := range handles {
		h.Session.Close()
	}
}

// forget drops a session and, once the rider has none left, the rider's
// device. Caller holds r.mu.
func (r *Registry) forget(sessionID string) (Handle, bool) {
	h, ok := r.sessions[sessionID]
	delete(r.sessions, sessionID)
	delete(r.lastUsed, sessionID)
	if !ok {
		return Handle{}, false
	}
	for _, other := range r.sessions {
		if other.RiderID == h.RiderID {
			return h, true
		}
	}
	delete(r.devices, h.RiderID)
	return h, true
}
