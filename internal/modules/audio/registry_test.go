package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistrySharesRiderMicrophone(t *testing.T) {
	reg := NewRegistry(newClock())

	a, err := reg.Open("tab-1", "rider-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	b, err := reg.Open("tab-2", "rider-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	other, err := reg.Open("tab-3", "rider-2")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	a.Device.Configure(true, "audio/webm")
	other.Device.Configure(true, "audio/webm")

	if err := a.Session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := b.Session.Start(context.Background()); !errors.Is(err, ErrDeviceBusy) {
		t.Errorf("same rider second tab: err = %v, want ErrDeviceBusy", err)
	}
	if err := other.Session.Start(context.Background()); err != nil {
		t.Errorf("different rider must not be blocked: %v", err)
	}

	if _, err := reg.Open("tab-1", "rider-2"); !errors.Is(err, ErrSessionOwner) {
		t.Errorf("err = %v, want ErrSessionOwner", err)
	}

	reg.Close("tab-1")
	if _, err := reg.Get("tab-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if err := b.Session.Start(context.Background()); err != nil {
		t.Errorf("closing tab-1 should free the microphone: %v", err)
	}
	reg.CloseAll()
}

func TestRegistryPruneReleasesAbandonedRecording(t *testing.T) {
	clock := newClock()
	reg := NewRegistry(clock)
	t.Cleanup(reg.CloseAll)

	abandoned, err := reg.Open("tab-1", "rider-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	abandoned.Device.Configure(true, "audio/webm")
	if err := abandoned.Session.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	clock.Advance(5 * time.Minute)
	active, err := reg.Open("tab-2", "rider-1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := active.Session.Start(context.Background()); !errors.Is(err, ErrDeviceBusy) {
		t.Fatalf("err = %v, want ErrDeviceBusy while tab-1 records", err)
	}

	if n := reg.Prune(10 * time.Minute); n != 0 {
		t.Errorf("pruned %d sessions before they went idle", n)
	}
	clock.Advance(6 * time.Minute)
	if n := reg.Prune(10 * time.Minute); n != 1 {
		t.Fatalf("pruned %d, want only tab-1", n)
	}
	if _, err := reg.Get("tab-1"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("err = %v, want ErrSessionNotFound", err)
	}
	if abandoned.Session.State() != StateIdle {
		t.Errorf("pruned session state = %s, want idle", abandoned.Session.State())
	}
	if err := active.Session.Start(context.Background()); err != nil {
		t.Errorf("microphone should be free after pruning: %v", err)
	}
	if reg.Len() != 1 {
		t.Errorf("Len = %d, want 1", reg.Len())
	}
}

func TestRegistryDropsDeviceWithLastSession(t *testing.T) {
	reg := NewRegistry(newClock())
	if _, err := reg.Open("tab-1", "rider-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := reg.Open("tab-2", "rider-1"); err != nil {
		t.Fatalf("Open: %v", err)
	}
	reg.Close("tab-1")
	if len(reg.devices) != 1 {
		t.Fatalf("device dropped while tab-2 is still open")
	}
	reg.Close("tab-2")
	if len(reg.devices) != 0 || reg.Len() != 0 {
		t.Errorf("devices=%d sessions=%d after closing everything", len(reg.devices), reg.Len())
	}
}
