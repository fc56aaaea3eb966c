package location

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"ridesafe/internal/types"
)

type fakeSource struct {
	mu    sync.Mutex
	fixes map[types.ID]Fix
	err   error
	block bool
}

func newFakeSource() *fakeSource { return &fakeSource{fixes: map[types.ID]Fix{}} }

func (f *fakeSource) LatestFix(ctx context.Context, id types.ID) (Fix, error) {
	f.mu.Lock()
	block, err := f.block, f.err
	fix, ok := f.fixes[id]
	f.mu.Unlock()
	if block {
		<-ctx.Done()
		return Fix{}, ctx.Err()
	}
	if err != nil {
		return Fix{}, err
	}
	if !ok {
		return Fix{}, ErrNoFix
	}
	return fix, nil
}

func (f *fakeSource) SaveFix(_ context.Context, fix Fix) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fixes[fix.RiderID] = fix
	return nil
}

func (f *fakeSource) set(block bool, err error) {
	f.mu.Lock()
	f.block, f.err = block, err
	f.mu.Unlock()
}

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func newTestService(src FixSource) *Service {
	return NewService(src, Options{
		Timeout:   50 * time.Millisecond,
		FixMaxAge: 2 * time.Minute,
		Now:       func() time.Time { return testNow },
	})
}

func TestCurrentLocation(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(src)
	ctx := context.Background()
	pos := types.NewCoordinate(12.9716, 77.5946)

	if err := svc.Record(ctx, Fix{RiderID: "r1", Position: pos, RecordedAt: testNow.Add(-10 * time.Second)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := svc.CurrentLocation(ctx, "r1")
	if err != nil {
		t.Fatalf("CurrentLocation: %v", err)
	}
	if got != pos {
		t.Errorf("got %v, want %v", got, pos)
	}
}

func TestCurrentLocationFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("no fix", func(t *testing.T) {
		svc := newTestService(newFakeSource())
		_, err := svc.CurrentLocation(ctx, "nobody")
		if !errors.Is(err, ErrLocationUnavailable) {
			t.Errorf("err = %v, want ErrLocationUnavailable", err)
		}
	})

	t.Run("permission denied", func(t *testing.T) {
		src := newFakeSource()
		svc := newTestService(src)
		if err := svc.Record(ctx, Fix{RiderID: "r1", Permission: PermissionDenied, RecordedAt: testNow}); err != nil {
			t.Fatalf("Record: %v", err)
		}
		_, err := svc.CurrentLocation(ctx, "r1")
		if !errors.Is(err, ErrPermissionDenied) {
			t.Errorf("err = %v, want ErrPermissionDenied", err)
		}
		if !errors.Is(err, ErrLocationUnavailable) {
			t.Errorf("permission denied must also be a LocationUnavailable")
		}
	})

	t.Run("stale fix", func(t *testing.T) {
		src := newFakeSource()
		src.fixes["r1"] = Fix{RiderID: "r1", Position: types.NewCoordinate(1, 1), Permission: PermissionGranted, RecordedAt: testNow.Add(-time.Hour)}
		svc := newTestService(src)
		if _, err := svc.CurrentLocation(ctx, "r1"); !errors.Is(err, ErrLocationUnavailable) {
			t.Errorf("err = %v, want ErrLocationUnavailable", err)
		}
	})

	t.Run("timeout", func(t *testing.T) {
		src := newFakeSource()
		src.set(true, nil)
		svc := newTestService(src)
		start := time.Now()
		_, err := svc.CurrentLocation(ctx, "r1")
		if !errors.Is(err, ErrLocationUnavailable) {
			t.Errorf("err = %v, want ErrLocationUnavailable", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("timeout not honoured, took %s", elapsed)
		}
	})
}

func TestCurrentLocationFallsBackToLastFix(t *testing.T) {
	src := newFakeSource()
	svc := newTestService(src)
	ctx := context.Background()
	pos := types.NewCoordinate(12.9716, 77.5946)

	if err := svc.Record(ctx, Fix{RiderID: "r1", Position: pos, RecordedAt: testNow}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	src.set(false, errors.New("rtdb unreachable"))

	got, err := svc.CurrentLocation(ctx, "r1")
	if err != nil {
		t.Fatalf("expected cached fix, got %v", err)
	}
	if got != pos {
		t.Errorf("got %v, want %v", got, pos)
	}
}

func TestRecordValidation(t *testing.T) {
	svc := newTestService(newFakeSource())
	ctx := context.Background()

	tests := []struct {
		name    string
		fix     Fix
		wantErr error
	}{
		{"missing rider", Fix{Position: types.NewCoordinate(1, 1)}, ErrInvalidFix},
		{"out of range", Fix{RiderID: "r1", Position: types.NewCoordinate(95, 1)}, ErrInvalidFix},
		{"negative accuracy", Fix{RiderID: "r1", Position: types.NewCoordinate(1, 1), AccuracyM: -3}, ErrInvalidFix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := svc.Record(ctx, tt.fix); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if err := svc.Record(ctx, Fix{RiderID: "r2", Position: types.NewCoordinate(12.9716, 77.5946), RecordedAt: testNow.Add(-10 * time.Second)}); err != nil {
		t.Fatalf("Record: %v", err)
	}
	err := svc.Record(ctx, Fix{RiderID: "r2", Position: types.NewCoordinate(13.0827, 80.2707), RecordedAt: testNow})
	if !errors.Is(err, ErrImplausibleFix) {
		t.Errorf("err = %v, want ErrImplausibleFix", err)
	}
}

type readOnlySource struct{}

func (readOnlySource) LatestFix(context.Context, types.ID) (Fix, error) { return Fix{}, ErrNoFix }

func TestRecordReadOnlySource(t *testing.T) {
	svc := newTestService(readOnlySource{})
	err := svc.Record(context.Background(), Fix{RiderID: "r1", Position: types.NewCoordinate(1, 1)})
	if !errors.Is(err, ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}
}

func TestRedisStore(t *testing.T) {
	redisAddr := os.Getenv("RIDESAFE_REDIS_ADDR")
	if redisAddr == "" {
		t.Skip("RIDESAFE_REDIS_ADDR not set; skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rdb.Close()

	store := NewStore(rdb)
	svc := NewService(store, Options{Timeout: 5 * time.Second})
	ctx := context.Background()

	uid := types.ID(fmt.Sprintf("rider_test_%d", time.Now().UnixNano()))
	pos := types.NewCoordinate(12.9716, 77.5946)
	if err := svc.Record(ctx, Fix{RiderID: uid, Position: pos, AccuracyM: 8}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	fix, err := store.LatestFix(ctx, uid)
	if err != nil {
		t.Fatalf("LatestFix: %v", err)
	}
	// GEO hashes round to roughly a metre.
	if fix.Position.DistanceKm(pos) > 0.005 {
		t.Errorf("position drifted: got %v, want %v", fix.Position, pos)
	}
	if fix.AccuracyM != 8 {
		t.Errorf("accuracy = %f, want 8", fix.AccuracyM)
	}

	if err := svc.Record(ctx, Fix{RiderID: uid, Permission: PermissionDenied}); err != nil {
		t.Fatalf("Record denied: %v", err)
	}
	if _, err := svc.CurrentLocation(ctx, uid); !errors.Is(err, ErrPermissionDenied) {
		t.Errorf("err = %v, want ErrPermissionDenied", err)
	}
}
