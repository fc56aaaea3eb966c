// README: Location service resolves a rider's current position with a bounded wait.
package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ridesafe/internal/types"
)

var (
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrPermissionDenied    = fmt.Errorf("%w: permission denied", ErrLocationUnavailable)
	ErrNoFix               = errors.New("no fix recorded")
	ErrInvalidFix          = errors.New("invalid fix")
	ErrImplausibleFix      = errors.New("implausible fix")
	ErrReadOnly            = errors.New("location source is read-only")
)

// FixSource returns the latest known fix for a rider, or ErrNoFix.
type FixSource interface {
	LatestFix(ctx context.Context, riderID types.ID) (Fix, error)
}

type FixWriter interface {
	SaveFix(ctx context.Context, fix Fix) error
}

type Options struct {
	Timeout   time.Duration
	FixMaxAge time.Duration
	Now       func() time.Time
}

// Service answers getCurrentLocation for one rider at a time. It keeps only
// the most recent fix per rider as a fallback when the source is slow.
type Service struct {
	source  FixSource
	writer  FixWriter
	timeout time.Duration
	maxAge  time.Duration
	now     func() time.Time

	mu   sync.Mutex
	last map[types.ID]Fix
}

// NewService wires a source. If the source also implements FixWriter, fixes
// can be recorded through Record.
func NewService(source FixSource, opts Options) *Service {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.FixMaxAge <= 0 {
		opts.FixMaxAge = 2 * time.Minute
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	w, _ := source.(FixWriter)
	return &Service{
		source:  source,
		writer:  w,
		timeout: opts.Timeout,
		maxAge:  opts.FixMaxAge,
		now:     opts.Now,
		last:    make(map[types.ID]Fix),
	}
}

func (s *Service) CurrentLocation(ctx context.Context, riderID types.ID) (types.Coordinate, error) {
	return s.CurrentLocationWithin(ctx, riderID, s.timeout)
}

// CurrentLocationWithin is CurrentLocation with a caller-chosen wait, used by
// paths that must not block on location for long.
func (s *Service) CurrentLocationWithin(ctx context.Context, riderID types.ID, timeout time.Duration) (types.Coordinate, error) {
	if riderID == "" {
		return types.Coordinate{}, fmt.Errorf("%w: missing rider id", ErrLocationUnavailable)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	fix, err := s.source.LatestFix(ctx, riderID)
	if err != nil {
		if cached, ok := s.cached(riderID); ok {
			slog.Warn("location source failed, using last fix", "rider_id", riderID, "error", err)
			return cached.Position, nil
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return types.Coordinate{}, fmt.Errorf("%w: fix timed out after %s", ErrLocationUnavailable, timeout)
		}
		return types.Coordinate{}, fmt.Errorf("%w: %v", ErrLocationUnavailable, err)
	}
	if fix.Permission == PermissionDenied {
		s.forget(riderID)
		return types.Coordinate{}, ErrPermissionDenied
	}
	if s.now().Sub(fix.RecordedAt) > s.maxAge {
		return types.Coordinate{}, fmt.Errorf("%w: last fix is older than %s", ErrLocationUnavailable, s.maxAge)
	}
	if !fix.Position.Valid() {
		return types.Coordinate{}, fmt.Errorf("%w: source returned invalid position", ErrLocationUnavailable)
	}

	s.remember(fix)
	return fix.Position, nil
}

// Record stores a device fix. Positions are validated and checked against the
// previous fix for an impossible jump.
func (s *Service) Record(ctx context.Context, fix Fix) error {
	if s.writer == nil {
		return ErrReadOnly
	}
	if fix.RiderID == "" {
		return fmt.Errorf("%w: missing rider id", ErrInvalidFix)
	}
	if fix.Permission == "" {
		fix.Permission = PermissionGranted
	}
	if fix.RecordedAt.IsZero() {
		fix.RecordedAt = s.now()
	}
	if fix.Permission == PermissionGranted {
		if !fix.Position.Valid() {
			return fmt.Errorf("%w: coordinate out of range", ErrInvalidFix)
		}
		if fix.AccuracyM < 0 {
			return fmt.Errorf("%w: negative accuracy", ErrInvalidFix)
		}
		if prev, ok := s.cached(fix.RiderID); ok && !plausible(prev, fix) {
			return fmt.Errorf("%w: implied speed %.0f km/h", ErrImplausibleFix, speedKmh(prev, fix))
		}
	}

	if err := s.writer.SaveFix(ctx, fix); err != nil {
		return fmt.Errorf("save fix: %w", err)
	}
	if fix.Permission == PermissionDenied {
		s.forget(fix.RiderID)
	} else {
		s.remember(fix)
	}
	return nil
}

func (s *Service) cached(id types.ID) (Fix, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fix, ok := s.last[id]
	if !ok || s.now().Sub(fix.RecordedAt) > s.maxAge {
		return Fix{}, false
	}
	return fix, true
}

func (s *Service) remember(fix Fix) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[fix.RiderID]; ok && prev.RecordedAt.After(fix.RecordedAt) {
		return
	}
	s.last[fix.RiderID] = fix
}

func (s *Service) forget(id types.ID) {
	s.mu.Lock()
	delete(s.last, id)
	s.mu.Unlock()
}
