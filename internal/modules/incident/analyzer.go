// README: Analysis backend contracts for voice and manual reports.
package incident

import (
	"context"
	"errors"
	"time"

	"ridesafe/internal/modules/audio"
	"ridesafe/internal/types"
)

var ErrMalformedAnalysis = errors.New("malformed analysis response")

type VoiceRequest struct {
	UserID    types.ID
	Audio     audio.Artifact
	GPSCoords string
	Timestamp time.Time
}

// VoiceAnalysis holds the fields derived from a recording. Category and
// Severity are raw backend strings; the coordinator normalizes them.
type VoiceAnalysis struct {
	Category    string `json:"category"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    string `json:"severity"`
	ReportRef   string `json:"-"`
}

type ManualRequest struct {
	UserID      types.ID
	Type        Type
	Description string
	Location    string
	Timestamp   time.Time
}

type ManualAnalysis struct {
	ReportRef string
}

type VoiceAnalyzer interface {
	AnalyzeVoice(ctx context.Context, req VoiceRequest) (VoiceAnalysis, error)
}

type ManualAnalyzer interface {
	AnalyzeManual(ctx context.Context, req ManualRequest) (ManualAnalysis, error)
}
