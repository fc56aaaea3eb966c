// README: Append-only log of every assessment with the features that produced it.
package risk

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

type Recorder interface {
	Record(ctx context.Context, f Features, a Assessment) error
}

// NopRecorder is used when no database is configured.
type NopRecorder struct{}

func (NopRecorder) Record(context.Context, Features, Assessment) error { return nil }

const createAssessmentsTable = `
CREATE TABLE IF NOT EXISTS risk_assessments (
	id BIGSERIAL PRIMARY KEY,
	route_distance_km DOUBLE PRECISION NOT NULL,
	route_duration_min DOUBLE PRECISION NOT NULL,
	intersection_density DOUBLE PRECISION NOT NULL,
	is_night BOOLEAN NOT NULL,
	weather_stress_index DOUBLE PRECISION NOT NULL,
	fatigue_score DOUBLE PRECISION NOT NULL,
	shift_duration_hours DOUBLE PRECISION NOT NULL,
	label TEXT NOT NULL,
	reasons TEXT NOT NULL,
	confidence DOUBLE PRECISION,
	is_offline BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type PostgresLog struct {
	db *pgxpool.Pool
}

func NewPostgresLog(ctx context.Context, db *pgxpool.Pool) (*PostgresLog, error) {
	if _, err := db.Exec(ctx, createAssessmentsTable); err != nil {
		return nil, fmt.Errorf("postgres: create risk_assessments: %w", err)
	}
	// tables created before confidence became optional
	if _, err := db.Exec(ctx, `ALTER TABLE risk_assessments ALTER COLUMN confidence DROP NOT NULL`); err != nil {
		return nil, fmt.Errorf("postgres: migrate risk_assessments: %w", err)
	}
	return &PostgresLog{db: db}, nil
}

func (l *PostgresLog) Record(ctx context.Context, f Features, a Assessment) error {
	_, err := l.db.Exec(ctx, `
		INSERT INTO risk_assessments (
			route_distance_km, route_duration_min, intersection_density, is_night,
			weather_stress_index, fatigue_score, shift_duration_hours,
			label, reasons, confidence, is_offline
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		f.DistanceKm, f.DurationMin, f.IntersectionDensity, f.IsNight,
		f.WeatherStressIndex, f.FatigueScore, f.ShiftDurationHours,
		string(a.Label), strings.Join(a.Reasons, "\n"), a.Confidence, a.IsOffline,
	)
	if err != nil {
		return fmt.Errorf("postgres: save risk assessment: %w", err)
	}
	return nil
}

// Recent returns the newest n assessments' labels and offline flags, newest first.
func (l *PostgresLog) Recent(ctx context.Context, n int) ([]Assessment, error) {
	rows, err := l.db.Query(ctx, `
		SELECT label, reasons, confidence, is_offline
		FROM risk_assessments ORDER BY id DESC LIMIT $1`, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: query risk assessments: %w", err)
	}
	defer rows.Close()

	var out []Assessment
	for rows.Next() {
		var a Assessment
		var label, reasons string
		if err := rows.Scan(&label, &reasons, &a.Confidence, &a.IsOffline); err != nil {
			return nil, fmt.Errorf("postgres: scan risk assessment: %w", err)
		}
		a.Label = Label(label)
		a.Reasons = strings.Split(reasons, "\n")
		out = append(out, a)
	}
	return out, rows.Err()
}
