package audio

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)}
}

// wavHeader is enough of a RIFF/WAVE header for content sniffing.
var wavHeader = []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")

func TestRecordAndStop(t *testing.T) {
	clock := newClock()
	dev := NewPipeDevice()
	dev.Configure(true, "")
	mic := NewMicrophone(dev)
	s := NewSession("s1", mic, clock)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != StateRecording {
		t.Fatalf("state = %s", s.State())
	}
	if _, err := dev.Write(wavHeader); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := dev.Write([]byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write: %v", err)
	}
	clock.Advance(12 * time.Second)

	art, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(art.Bytes) != len(wavHeader)+4 {
		t.Errorf("bytes = %d, want %d", len(art.Bytes), len(wavHeader)+4)
	}
	if art.MimeType != "audio/wav" {
		t.Errorf("mime = %q, want sniffed audio/wav", art.MimeType)
	}
	if art.DurationSeconds != 12 {
		t.Errorf("duration = %v, want 12", art.DurationSeconds)
	}
	if s.State() != StateStopped {
		t.Errorf("state = %s, want stopped", s.State())
	}
	if mic.Holder() != "" {
		t.Errorf("microphone still held by %q after stop", mic.Holder())
	}
	if _, err := dev.Write([]byte{5}); !errors.Is(err, ErrNotOpen) {
		t.Errorf("write after stop: err = %v, want ErrNotOpen", err)
	}
}

func TestDeclaredMimeTypeWins(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(true, "audio/webm;codecs=opus")
	s := NewSession("s1", NewMicrophone(dev), newClock())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, _ = dev.Write(wavHeader)
	art, err := s.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if art.MimeType != "audio/webm;codecs=opus" {
		t.Errorf("mime = %q", art.MimeType)
	}
}

func TestMicrophoneIsExclusive(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(true, "audio/webm")
	mic := NewMicrophone(dev)
	first := NewSession("first", mic, newClock())
	second := NewSession("second", mic, newClock())

	if err := first.Start(context.Background()); err != nil {
		t.Fatalf("first Start: %v", err)
	}
	if err := second.Start(context.Background()); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("second Start err = %v, want ErrDeviceBusy", err)
	}
	if second.State() != StateIdle {
		t.Errorf("failed start changed state to %s", second.State())
	}
	if mic.Holder() != "first" {
		t.Errorf("holder = %q, busy acquire must not pre-empt", mic.Holder())
	}

	if err := first.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if err := second.Start(context.Background()); err != nil {
		t.Fatalf("second Start after release: %v", err)
	}
	second.Close()
}

func TestStartErrors(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(false, "")
	mic := NewMicrophone(dev)
	s := NewSession("s1", mic, newClock())

	if err := s.Start(context.Background()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("err = %v, want ErrPermissionDenied", err)
	}
	if mic.Holder() != "" {
		t.Error("denied start must not hold the microphone")
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s", s.State())
	}

	dev.Configure(true, "")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrAlreadyRecording) {
		t.Errorf("second Start err = %v, want ErrAlreadyRecording", err)
	}
	s.Close()
}

func TestInvalidTransitions(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(true, "")
	s := NewSession("s1", NewMicrophone(dev), newClock())

	if _, err := s.Stop(); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Stop from idle: %v", err)
	}
	if err := s.Submit(context.Background(), func(context.Context, Artifact) error { return nil }); !errors.Is(err, ErrInvalidState) {
		t.Errorf("Submit from idle: %v", err)
	}
	if err := s.Discard(); err != nil {
		t.Errorf("Discard from idle should be a no-op: %v", err)
	}
}

func TestEmptyRecording(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(true, "")
	mic := NewMicrophone(dev)
	s := NewSession("s1", mic, newClock())

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := s.Stop(); !errors.Is(err, ErrEmptyRecording) {
		t.Errorf("err = %v, want ErrEmptyRecording", err)
	}
	if s.State() != StateIdle || mic.Holder() != "" {
		t.Errorf("state = %s holder = %q", s.State(), mic.Holder())
	}
}

func recordSomething(t *testing.T, s *Session, dev *PipeDevice) {
	t.Helper()
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := dev.Write(wavHeader); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestSubmit(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(true, "audio/wav")
	s := NewSession("s1", NewMicrophone(dev), newClock())
	recordSomething(t, s, dev)

	failing := errors.New("analysis backend down")
	var seenState State
	err := s.Submit(context.Background(), func(ctx context.Context, a Artifact) error {
		seenState = s.State()
		return failing
	})
	if !errors.Is(err, failing) {
		t.Fatalf("err = %v", err)
	}
	if seenState != StateSubmitting {
		t.Errorf("state during submit = %s", seenState)
	}
	if s.State() != StateStopped {
		t.Fatalf("failed submit should keep the artifact, state = %s", s.State())
	}

	var got Artifact
	if err := s.Submit(context.Background(), func(ctx context.Context, a Artifact) error {
		got = a
		return nil
	}); err != nil {
		t.Fatalf("retry Submit: %v", err)
	}
	if len(got.Bytes) != len(wavHeader) || got.MimeType != "audio/wav" {
		t.Errorf("artifact = %d bytes %q", len(got.Bytes), got.MimeType)
	}
	if s.State() != StateIdle {
		t.Errorf("state = %s, want idle", s.State())
	}
	if err := s.Submit(context.Background(), func(context.Context, Artifact) error { return nil }); !errors.Is(err, ErrInvalidState) {
		t.Errorf("artifact should be gone after success, err = %v", err)
	}
}

func TestReleaseOnEveryExitPath(t *testing.T) {
	exits := map[string]func(s *Session){
		"stop":    func(s *Session) { _, _ = s.Stop() },
		"discard": func(s *Session) { _ = s.Discard() },
		"close":   func(s *Session) { s.Close() },
	}
	for name, exit := range exits {
		t.Run(name, func(t *testing.T) {
			dev := NewPipeDevice()
			dev.Configure(true, "")
			mic := NewMicrophone(dev)
			s := NewSession("s1", mic, newClock())
			if err := s.Start(context.Background()); err != nil {
				t.Fatalf("Start: %v", err)
			}
			_, _ = dev.Write(wavHeader)
			exit(s)
			if mic.Holder() != "" {
				t.Errorf("microphone still held after %s", name)
			}
		})
	}
}

func TestCloseDuringSubmitLetsItFinish(t *testing.T) {
	dev := NewPipeDevice()
	dev.Configure(true, "")
	s := NewSession("s1", NewMicrophone(dev), newClock())
	recordSomething(t, s, dev)

	err := s.Submit(context.Background(), func(ctx context.Context, a Artifact) error {
		s.Close()
		return errors.New("late failure")
	})
	if err == nil {
		t.Fatal("expected the submit error")
	}
	if s.State() != StateIdle {
		t.Errorf("closed session should end idle, got %s", s.State())
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrInvalidState) {
		t.Errorf("closed session must not restart, err = %v", err)
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to State
		want     bool
	}{
		{StateIdle, StateRecording, true},
		{StateIdle, StateStopped, false},
		{StateRecording, StateStopped, true},
		{StateRecording, StateSubmitting, false},
		{StateStopped, StateSubmitting, true},
		{StateStopped, StateIdle, true},
		{StateSubmitting, StateIdle, true},
		{StateSubmitting, StateRecording, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}
