// README: Recording session state machine; the microphone is released on every exit from Recording.
package audio

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrAlreadyRecording = errors.New("already recording")
	ErrInvalidState     = errors.New("invalid recording state transition")
	ErrEmptyRecording   = errors.New("recording captured no audio")
)

type State string

const (
	StateIdle       State = "idle"
	StateRecording  State = "recording"
	StateStopped    State = "stopped"
	StateSubmitting State = "submitting"
)

// AllowedTransitions represents the recording flow as code. Recording->Idle
// covers discard and abrupt close; Submitting->Stopped keeps the artifact for
// a retry after a failed submission.
var AllowedTransitions = map[State][]State{
	StateIdle:       {StateRecording},
	StateRecording:  {StateStopped, StateIdle},
	StateStopped:    {StateSubmitting, StateIdle},
	StateSubmitting: {StateIdle, StateStopped},
}

func CanTransition(from, to State) bool {
	for _, s := range AllowedTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Artifact is a finished recording. It belongs to the session until handed
// to a submitter.
type Artifact struct {
	Bytes           []byte
	MimeType        string
	DurationSeconds float64
}

type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Session struct {
	id    string
	mic   *Microphone
	clock Clock

	mu        sync.Mutex
	state     State
	lease     *Lease
	buf       *bytes.Buffer
	copyDone  chan struct{}
	startedAt time.Time
	artifact  *Artifact
	closed    bool
}

func NewSession(id string, mic *Microphone, clock Clock) *Session {
	if clock == nil {
		clock = realClock{}
	}
	return &Session{id: id, mic: mic, clock: clock, state: StateIdle}
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start acquires the microphone and begins buffering. Calling Start while
// already recording returns ErrAlreadyRecording.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateRecording {
		return ErrAlreadyRecording
	}
	if s.closed || !CanTransition(s.state, StateRecording) {
		return ErrInvalidState
	}

	lease, err := s.mic.Acquire(ctx, s.id)
	if err != nil {
		return err
	}

	buf := new(bytes.Buffer)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := io.Copy(buf, lease.stream); err != nil && !errors.Is(err, io.ErrClosedPipe) {
			slog.Warn("audio capture ended with error", "session", s.id, "error", err)
		}
	}()

	s.lease = lease
	s.buf = buf
	s.copyDone = done
	s.startedAt = s.clock.Now()
	s.state = StateRecording
	return nil
}

// Stop finalizes the buffer into an artifact and releases the microphone.
// An empty capture returns ErrEmptyRecording and leaves the session idle.
func (s *Session) Stop() (Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRecording {
		return Artifact{}, ErrInvalidState
	}

	mime := s.lease.stream.MimeType()
	data := s.endCapture()
	duration := s.clock.Now().Sub(s.startedAt).Seconds()

	if len(data) == 0 {
		s.state = StateIdle
		return Artifact{}, ErrEmptyRecording
	}
	if mime == "" {
		mime = mimetype.Detect(data).String()
	}

	s.artifact = &Artifact{Bytes: data, MimeType: mime, DurationSeconds: duration}
	s.state = StateStopped
	return s.artifact.copy(), nil
}

// Discard drops the recording without submitting it. From Recording it also
// releases the microphone. Discarding an idle session is a no-op.
func (s *Session) Discard() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateIdle:
		return nil
	case StateRecording:
		s.endCapture()
	case StateStopped:
	default:
		return ErrInvalidState
	}
	s.artifact = nil
	s.state = StateIdle
	return nil
}

// Submit hands the artifact to fn. On success the session's copy is dropped
// and the session returns to Idle; on failure it returns to Stopped so the
// same recording can be submitted again.
func (s *Session) Submit(ctx context.Context, fn func(ctx context.Context, a Artifact) error) error {
	s.mu.Lock()
	if s.state != StateStopped || s.artifact == nil {
		s.mu.Unlock()
		return ErrInvalidState
	}
	art := s.artifact.copy()
	s.state = StateSubmitting
	s.mu.Unlock()

	err := fn(ctx, art)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil && !s.closed {
		s.state = StateStopped
		return err
	}
	s.artifact = nil
	s.state = StateIdle
	return err
}

// Close is the abrupt-exit path: it releases the microphone from any state and
// drops any artifact. A submission already in flight is allowed to finish.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	switch s.state {
	case StateRecording:
		s.endCapture()
		s.state = StateIdle
	case StateStopped:
		s.state = StateIdle
	}
	if s.state != StateSubmitting {
		s.artifact = nil
	}
}

// endCapture releases the device, waits for the copier and returns what was
// captured. Caller holds s.mu.
func (s *Session) endCapture() []byte {
	if s.lease == nil {
		return nil
	}
	if err := s.lease.Release(); err != nil {
		slog.Debug("closing capture stream", "session", s.id, "error", err)
	}
	<-s.copyDone
	data := s.buf.Bytes()
	s.lease, s.buf, s.copyDone = nil, nil, nil
	return data
}

func (a *Artifact) copy() Artifact {
	return Artifact{
		Bytes:           append([]byte(nil), a.Bytes...),
		MimeType:        a.MimeType,
		DurationSeconds: a.DurationSeconds,
	}
}
