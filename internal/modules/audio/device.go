// README: Microphone ownership: at most one session holds the device at a time.
package audio

import (
	"context"
	"errors"
	"io"
	"sync"
)

var (
	ErrPermissionDenied = errors.New("microphone permission denied")
	ErrDeviceBusy       = errors.New("microphone is held by another session")
	ErrNotOpen          = errors.New("microphone is not open")
)

// Stream is an open capture. Closing it stops capture and unblocks Read.
type Stream interface {
	io.ReadCloser
	MimeType() string
}

type Device interface {
	Open(ctx context.Context) (Stream, error)
}

// Microphone guards a Device. Acquire fails fast with ErrDeviceBusy instead
// of pre-empting the current holder.
type Microphone struct {
	dev Device

	mu    sync.Mutex
	owner string
}

func NewMicrophone(dev Device) *Microphone {
	return &Microphone{dev: dev}
}

func (m *Microphone) Acquire(ctx context.Context, owner string) (*Lease, error) {
	m.mu.Lock()
	if m.owner != "" {
		m.mu.Unlock()
		return nil, ErrDeviceBusy
	}
	m.owner = owner
	m.mu.Unlock()

	stream, err := m.dev.Open(ctx)
	if err != nil {
		m.release(owner)
		return nil, err
	}
	return &Lease{mic: m, owner: owner, stream: stream}, nil
}

// Holder returns the current owner, or "" when free.
func (m *Microphone) Holder() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.owner
}

func (m *Microphone) release(owner string) {
	m.mu.Lock()
	if m.owner == owner {
		m.owner = ""
	}
	m.mu.Unlock()
}

// Lease is one holder's claim on the microphone. Release is idempotent.
type Lease struct {
	mic    *Microphone
	owner  string
	stream Stream
	once   sync.Once
}

func (l *Lease) Release() error {
	var err error
	l.once.Do(func() {
		err = l.stream.Close()
		l.mic.release(l.owner)
	})
	return err
}
