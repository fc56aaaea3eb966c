// README: Incident submission: analysis backend first, then the durable store, with an outbox for the gap between them.
package incident

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ridesafe/internal/modules/audio"
	"ridesafe/internal/types"
)

var (
	ErrAnalysisFailed    = errors.New("incident analysis failed")
	ErrPartialSubmission = errors.New("incident analysed but not stored")
)

// PartialSubmissionError means the analysis backend accepted the report but
// the durable store did not. The record is parked under PendingID (empty when
// no outbox is configured) and can be committed with RetryPending.
type PartialSubmissionError struct {
	Record    Record
	PendingID string
	Err       error
}

func (e *PartialSubmissionError) Error() string {
	if e.PendingID == "" {
		return fmt.Sprintf("%s: %v", ErrPartialSubmission, e.Err)
	}
	return fmt.Sprintf("%s (pending %s): %v", ErrPartialSubmission, e.PendingID, e.Err)
}

func (e *PartialSubmissionError) Is(target error) bool { return target == ErrPartialSubmission }

func (e *PartialSubmissionError) Unwrap() error { return e.Err }

// Locator is satisfied by location.Service.
type Locator interface {
	CurrentLocationWithin(ctx context.Context, riderID types.ID, timeout time.Duration) (types.Coordinate, error)
}

type Options struct {
	LocationTimeout time.Duration
	Now             func() time.Time
}

type Coordinator struct {
	voice   VoiceAnalyzer
	manual  ManualAnalyzer
	store   Store
	outbox  Outbox
	locator Locator

	locationTimeout time.Duration
	now             func() time.Time
}

// NewCoordinator wires the submission pipeline. outbox and locator may be nil.
func NewCoordinator(voice VoiceAnalyzer, manual ManualAnalyzer, store Store, outbox Outbox, locator Locator, opts Options) *Coordinator {
	if opts.LocationTimeout <= 0 {
		opts.LocationTimeout = 3 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Coordinator{
		voice:           voice,
		manual:          manual,
		store:           store,
		outbox:          outbox,
		locator:         locator,
		locationTimeout: opts.LocationTimeout,
		now:             opts.Now,
	}
}

// Submit dispatches on the payload kind: an audio.Artifact or a ManualEntry.
func (c *Coordinator) Submit(ctx context.Context, payload any, sc SubmitContext) (Record, error) {
	switch p := payload.(type) {
	case audio.Artifact:
		return c.SubmitVoice(ctx, p, sc)
	case *audio.Artifact:
		if p == nil {
			return Record{}, fmt.Errorf("%w: nil artifact", ErrBadRequest)
		}
		return c.SubmitVoice(ctx, *p, sc)
	case ManualEntry:
		return c.SubmitManual(ctx, p, sc)
	default:
		return Record{}, fmt.Errorf("%w: unsupported payload %T", ErrBadRequest, payload)
	}
}

// SubmitVoice requires a successful analysis: without it there is no content
// to file, so nothing is written.
func (c *Coordinator) SubmitVoice(ctx context.Context, art audio.Artifact, sc SubmitContext) (Record, error) {
	if sc.UserID == "" {
		return Record{}, fmt.Errorf("%w: missing user id", ErrBadRequest)
	}
	if len(art.Bytes) == 0 {
		return Record{}, fmt.Errorf("%w: empty recording", ErrBadRequest)
	}
	if c.voice == nil {
		return Record{}, fmt.Errorf("%w: no voice analyzer configured", ErrAnalysisFailed)
	}
	ts := c.timestamp(sc)
	loc := c.resolveLocation(ctx, sc, "", LocationNotCaptured)

	analysis, err := c.voice.AnalyzeVoice(ctx, VoiceRequest{
		UserID:    sc.UserID,
		Audio:     art,
		GPSCoords: loc.Label,
		Timestamp: ts,
	})
	if err != nil {
		return Record{}, fmt.Errorf("%w: %v", ErrAnalysisFailed, err)
	}

	desc := analysis.Description
	if desc == "" {
		desc = analysis.Title
	}
	rec := Record{
		ID:                uuid.NewString(),
		UserID:            sc.UserID,
		Type:              ParseType(analysis.Category),
		Title:             analysis.Title,
		Description:       desc,
		Location:          loc,
		Timestamp:         ts,
		Status:            StatusResolved,
		Severity:          ParseSeverity(analysis.Severity),
		IsAIGenerated:     true,
		AnalysisReportRef: analysis.ReportRef,
	}
	return c.commit(ctx, rec)
}

// SubmitManual commits the rider's own words. A failed analysis only costs
// the report reference.
func (c *Coordinator) SubmitManual(ctx context.Context, entry ManualEntry, sc SubmitContext) (Record, error) {
	if sc.UserID == "" {
		return Record{}, fmt.Errorf("%w: missing user id", ErrBadRequest)
	}
	if strings.TrimSpace(entry.Type) == "" {
		return Record{}, fmt.Errorf("%w: incident type is required", ErrBadRequest)
	}
	desc := strings.TrimSpace(entry.Description)
	if desc == "" {
		return Record{}, fmt.Errorf("%w: description is required", ErrBadRequest)
	}
	ts := c.timestamp(sc)
	loc := c.resolveLocation(ctx, sc, strings.TrimSpace(entry.LocationLabel), UnknownLocation)
	typ := ParseType(entry.Type)

	var reportRef string
	if c.manual != nil {
		analysis, err := c.manual.AnalyzeManual(ctx, ManualRequest{
			UserID:      sc.UserID,
			Type:        typ,
			Description: desc,
			Location:    loc.Label,
			Timestamp:   ts,
		})
		if err != nil {
			slog.Warn("manual incident analysis failed, filing without report", "user_id", sc.UserID, "error", err)
		} else {
			reportRef = analysis.ReportRef
		}
	}

	rec := Record{
		ID:                uuid.NewString(),
		UserID:            sc.UserID,
		Type:              typ,
		Description:       desc,
		Location:          loc,
		Timestamp:         ts,
		Anonymous:         entry.Anonymous,
		Status:            StatusPending,
		Severity:          ParseSeverity(entry.Severity),
		AnalysisReportRef: reportRef,
	}
	return c.commit(ctx, rec)
}

// RetryPending commits a parked record. The outbox entry is removed only
// once the record is in the store.
func (c *Coordinator) RetryPending(ctx context.Context, pendingID string) (Record, error) {
	if c.outbox == nil {
		return Record{}, ErrPendingNotFound
	}
	p, err := c.outbox.Get(ctx, pendingID)
	if err != nil {
		return Record{}, err
	}
	if err := c.create(ctx, p.Record); err != nil {
		if terr := c.outbox.Touch(ctx, p, err); terr != nil {
			slog.Warn("failed to update pending incident", "pending_id", p.ID, "error", terr)
		}
		return Record{}, &PartialSubmissionError{Record: p.Record, PendingID: p.ID, Err: err}
	}
	if err := c.outbox.Remove(ctx, p.ID); err != nil {
		slog.Warn("incident stored but pending entry not removed", "pending_id", p.ID, "incident_id", p.Record.ID, "error", err)
	}
	return p.Record, nil
}

func (c *Coordinator) ListPending(ctx context.Context, userID types.ID) ([]PendingSubmission, error) {
	if c.outbox == nil {
		return []PendingSubmission{}, nil
	}
	return c.outbox.ListByUser(ctx, userID)
}

func (c *Coordinator) List(ctx context.Context, userID types.ID, limit int) ([]Record, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: missing user id", ErrBadRequest)
	}
	return c.store.ListByUser(ctx, userID, limit)
}

func (c *Coordinator) Get(ctx context.Context, id string) (Record, error) {
	return c.store.Get(ctx, id)
}

// commit writes rec, retrying once. A second failure parks the record.
func (c *Coordinator) commit(ctx context.Context, rec Record) (Record, error) {
	err := c.create(ctx, rec)
	if err == nil {
		return rec, nil
	}
	slog.Warn("incident store write failed, retrying once", "incident_id", rec.ID, "error", err)
	if err = c.create(ctx, rec); err == nil {
		return rec, nil
	}

	partial := &PartialSubmissionError{Record: rec, Err: err}
	if c.outbox != nil {
		p, perr := c.outbox.Park(context.WithoutCancel(ctx), rec, err)
		if perr != nil {
			slog.Error("incident could not be parked", "incident_id", rec.ID, "error", perr)
		} else {
			partial.PendingID = p.ID
		}
	}
	return Record{}, partial
}

// create treats "already there" as success: a write that timed out on our
// side may still have landed.
func (c *Coordinator) create(ctx context.Context, rec Record) error {
	err := c.store.Create(ctx, rec)
	if err == nil {
		return nil
	}
	if _, gerr := c.store.Get(ctx, rec.ID); gerr == nil {
		return nil
	}
	return err
}

func (c *Coordinator) timestamp(sc SubmitContext) time.Time {
	if !sc.Timestamp.IsZero() {
		return sc.Timestamp.UTC()
	}
	return c.now().UTC()
}

// resolveLocation never fails: a missing fix becomes a placeholder label.
func (c *Coordinator) resolveLocation(ctx context.Context, sc SubmitContext, label, placeholder string) Location {
	loc := Location{Label: label}
	switch {
	case sc.Location != nil && sc.Location.Valid():
		coord := *sc.Location
		loc.Coordinate = &coord
	case c.locator != nil:
		coord, err := c.locator.CurrentLocationWithin(ctx, sc.UserID, c.locationTimeout)
		if err != nil {
			slog.Info("incident location not captured", "user_id", sc.UserID, "error", err)
		} else {
			loc.Coordinate = &coord
		}
	}
	if loc.Label != "" {
		return loc
	}
	if loc.Coordinate != nil {
		loc.Label = loc.Coordinate.Label()
	} else {
		loc.Label = placeholder
	}
	return loc
}
