package incident

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"ridesafe/internal/modules/audio"
)

// Needs a real key and a short spoken clip, e.g.
// GEMINI_API_KEY=... RIDESAFE_TEST_AUDIO=./testdata/clip.m4a go test -run Gemini ./internal/modules/incident
func TestGeminiAnalyzerLive(t *testing.T) {
	apiKey := strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	clip := strings.TrimSpace(os.Getenv("RIDESAFE_TEST_AUDIO"))
	if apiKey == "" || clip == "" {
		t.Skip("GEMINI_API_KEY and RIDESAFE_TEST_AUDIO not set")
	}

	data, err := os.ReadFile(clip)
	if err != nil {
		t.Fatalf("read clip: %v", err)
	}
	mt := mimetype.Detect(data)
	t.Logf("clip %s: %d bytes, %s", clip, len(data), mt.String())

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	g, err := NewGeminiAnalyzer(ctx, apiKey)
	if err != nil {
		t.Fatalf("NewGeminiAnalyzer: %v", err)
	}
	t.Cleanup(g.Close)

	got, err := g.AnalyzeVoice(ctx, VoiceRequest{
		UserID:    "integration",
		Audio:     audio.Artifact{Bytes: data, MimeType: mt.String()},
		GPSCoords: LocationNotCaptured,
		Timestamp: time.Now(),
	})
	if err != nil {
		t.Fatalf("AnalyzeVoice: %v", err)
	}
	if got.Title == "" && got.Description == "" {
		t.Fatalf("empty analysis: %+v", got)
	}
	t.Logf("category=%q severity=%q title=%q", got.Category, got.Severity, got.Title)
}
