// README: Debounced, cancellable place search; only the latest keystroke can produce results.
package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"ridesafe/internal/maps"
)

// ErrSuperseded is returned to a Search call whose query was replaced by a
// newer one before its result was ready.
var ErrSuperseded = errors.New("search superseded by newer query")

const DefaultDebounce = 400 * time.Millisecond

type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]maps.Place, error)
}

// Result is what the presentation layer renders. A network failure yields an
// empty Candidates slice with Err set; it never fails the session.
type Result struct {
	Query      string       `json:"query"`
	Candidates []maps.Place `json:"candidates"`
	Err        error        `json:"-"`
}

// Engine serves one typing session. Each call to Search bumps a generation
// counter and cancels the previous call's context, so results are applied in
// issue order no matter when responses arrive.
type Engine struct {
	geocoder Geocoder
	debounce time.Duration
	limit    int

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func NewEngine(geocoder Geocoder, debounce time.Duration, limit int) *Engine {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if limit <= 0 {
		limit = 5
	}
	return &Engine{geocoder: geocoder, debounce: debounce, limit: limit}
}

// Search waits out the quiet window, then queries the geocoder. It returns
// ErrSuperseded if another Search started in the meantime, and ctx's error if
// the caller gave up.
func (e *Engine) Search(ctx context.Context, query string) (Result, error) {
	q := strings.TrimSpace(query)
	gen, reqCtx := e.begin(ctx)
	defer e.finish(gen)

	if q == "" {
		return Result{Query: q, Candidates: []maps.Place{}}, nil
	}

	timer := time.NewTimer(e.debounce)
	select {
	case <-reqCtx.Done():
		timer.Stop()
		return Result{}, e.abandoned(ctx)
	case <-timer.C:
	}

	places, err := e.geocoder.Search(reqCtx, q, e.limit)
	if !e.current(gen) {
		return Result{}, ErrSuperseded
	}
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		slog.Warn("place search failed", "query", q, "error", err)
		return Result{Query: q, Candidates: []maps.Place{}, Err: err}, nil
	}
	if places == nil {
		places = []maps.Place{}
	}
	return Result{Query: q, Candidates: places}, nil
}

// Cancel abandons any pending search, e.g. when the search box is closed.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.gen++
	if e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) begin(ctx context.Context) (uint64, context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
	e.gen++
	reqCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	return e.gen, reqCtx
}

// finish releases the request context if it still belongs to gen.
func (e *Engine) finish(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.gen == gen && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

func (e *Engine) current(gen uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gen == gen
}

func (e *Engine) abandoned(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrSuperseded
}
