// README: SQLite-backed incident store for single-node and development deployments.
package incident

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"ridesafe/internal/types"
)

type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore takes an open handle (see infra.NewSQLite) and migrates it.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating incident store: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS incidents (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			type TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL,
			location_label TEXT NOT NULL,
			latitude REAL,
			longitude REAL,
			timestamp_ms INTEGER NOT NULL,
			anonymous INTEGER NOT NULL,
			status TEXT NOT NULL,
			severity TEXT NOT NULL,
			is_ai_generated INTEGER NOT NULL,
			report_ref TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_incidents_user_ts ON incidents(user_id, timestamp_ms DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) Create(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("%w: missing id", ErrBadRequest)
	}
	var lat, lon sql.NullFloat64
	if c := rec.Location.Coordinate; c != nil {
		lat = sql.NullFloat64{Float64: c.Latitude, Valid: true}
		lon = sql.NullFloat64{Float64: c.Longitude, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO incidents (
			id, user_id, type, title, description, location_label, latitude, longitude,
			timestamp_ms, anonymous, status, severity, is_ai_generated, report_ref
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(rec.UserID), string(rec.Type), rec.Title, rec.Description,
		rec.Location.Label, lat, lon, rec.Timestamp.UnixMilli(), boolToInt(rec.Anonymous),
		string(rec.Status), string(rec.Severity), boolToInt(rec.IsAIGenerated), rec.AnalysisReportRef,
	)
	if err != nil {
		return fmt.Errorf("insert incident: %w", err)
	}
	return nil
}

const selectIncident = `
	SELECT id, user_id, type, title, description, location_label, latitude, longitude,
	       timestamp_ms, anonymous, status, severity, is_ai_generated, report_ref
	FROM incidents`

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	row := s.db.QueryRowContext(ctx, selectIncident+` WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get incident: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) ListByUser(ctx context.Context, userID types.ID, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		selectIncident+` WHERE user_id = ? ORDER BY timestamp_ms DESC LIMIT ?`,
		string(userID), limit)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	out := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var (
		rec                  Record
		userID, typ          string
		status, severity     string
		lat, lon             sql.NullFloat64
		tsMs                 int64
		anonymous, generated int
	)
	err := sc.Scan(&rec.ID, &userID, &typ, &rec.Title, &rec.Description, &rec.Location.Label,
		&lat, &lon, &tsMs, &anonymous, &status, &severity, &generated, &rec.AnalysisReportRef)
	if err != nil {
		return Record{}, err
	}
	rec.UserID = types.ID(userID)
	rec.Type = Type(typ)
	rec.Status = Status(status)
	rec.Severity = Severity(severity)
	rec.Timestamp = time.UnixMilli(tsMs).UTC()
	rec.Anonymous = anonymous != 0
	rec.IsAIGenerated = generated != 0
	if lat.Valid && lon.Valid {
		c := types.NewCoordinate(lat.Float64, lon.Float64)
		rec.Location.Coordinate = &c
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
