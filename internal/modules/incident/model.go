// README: Incident record and its enumerations.
package incident

import (
	"time"

	"ridesafe/internal/types"
)

type Type string

const (
	TypeAccident      Type = "accident"
	TypeHarassment    Type = "harassment"
	TypeTheft         Type = "theft"
	TypeNearMiss      Type = "near_miss"
	TypeRoadCondition Type = "road_condition"
	TypeOther         Type = "other"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
)

type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Placeholders used when no position could be resolved in time.
const (
	LocationNotCaptured = "Location not captured"
	UnknownLocation     = "Unknown Location"
)

// Location is either a free-text label, a coordinate, or both.
type Location struct {
	Label      string            `json:"label"`
	Coordinate *types.Coordinate `json:"coordinate,omitempty"`
}

// Record is immutable once committed; only an external moderator moves Status.
type Record struct {
	ID                string    `json:"id"`
	UserID            types.ID  `json:"user_id"`
	Type              Type      `json:"type"`
	Title             string    `json:"title,omitempty"`
	Description       string    `json:"description"`
	Location          Location  `json:"location"`
	Timestamp         time.Time `json:"timestamp"`
	Anonymous         bool      `json:"anonymous"`
	Status            Status    `json:"status"`
	Severity          Severity  `json:"severity"`
	IsAIGenerated     bool      `json:"is_ai_generated"`
	AnalysisReportRef string    `json:"analysis_report_ref,omitempty"`
}

// ManualEntry is what the rider typed into the report form.
type ManualEntry struct {
	Type          string
	Description   string
	LocationLabel string
	Severity      string
	Anonymous     bool
}

// SubmitContext carries who and when. Location is optional; when nil the
// coordinator resolves it.
type SubmitContext struct {
	UserID    types.ID
	Location  *types.Coordinate
	Timestamp time.Time
}
