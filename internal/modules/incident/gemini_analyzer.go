// README: Gemini-backed voice analyzer. Sends the recording inline and asks for a structured incident summary.
package incident

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiAnalyzer struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewGeminiAnalyzer(ctx context.Context, apiKey string) (*GeminiAnalyzer, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel("gemini-2.0-flash")
	model.ResponseMIMEType = "application/json"
	// Low temperature: we want the rider's words summarized, not embellished.
	model.SetTemperature(0.2)

	return &GeminiAnalyzer{client: client, model: model}, nil
}

func (g *GeminiAnalyzer) Close() {
	g.client.Close()
}

func (g *GeminiAnalyzer) AnalyzeVoice(ctx context.Context, req VoiceRequest) (VoiceAnalysis, error) {
	if len(req.Audio.Bytes) == 0 {
		return VoiceAnalysis{}, fmt.Errorf("gemini: empty audio")
	}
	mimeType := req.Audio.MimeType
	if base, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = base
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.Text(buildIncidentPrompt(req)),
		genai.Blob{MIMEType: mimeType, Data: req.Audio.Bytes},
	)
	if err != nil {
		return VoiceAnalysis{}, fmt.Errorf("gemini generation error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return VoiceAnalysis{}, fmt.Errorf("no response candidates from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			text.WriteString(string(txt))
		}
	}

	return parseGeminiAnalysis(text.String())
}

func parseGeminiAnalysis(raw string) (VoiceAnalysis, error) {
	cleaned := cleanJSONString(raw)
	var out VoiceAnalysis
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return VoiceAnalysis{}, fmt.Errorf("%w: %v. Raw: %s", ErrMalformedAnalysis, err, cleaned)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.Description = strings.TrimSpace(out.Description)
	if out.Title == "" && out.Description == "" {
		return VoiceAnalysis{}, fmt.Errorf("%w: no title or description", ErrMalformedAnalysis)
	}
	return out, nil
}

func buildIncidentPrompt(req VoiceRequest) string {
	gps := req.GPSCoords
	if gps == "" {
		gps = LocationNotCaptured
	}
	return fmt.Sprintf(`Role: You transcribe and summarize safety incidents reported by delivery riders.
Context:
- Reported At: %s
- GPS: %s

The attached audio is the rider describing what happened, possibly with background noise.

RULES:
1. Describe only what the rider says. Do not invent names, plate numbers or injuries.
2. "category" MUST be one of: accident, harassment, theft, near_miss, road_condition, other.
3. "severity" MUST be one of: low, medium, high. Use high when anyone is hurt or still in danger.
4. "title" is at most 8 words.
5. "description" is 1-4 plain sentences in the language the rider used.

Output JSON Schema:
{
  "category": "string",
  "title": "string",
  "description": "string",
  "severity": "string"
}
`, req.Timestamp.UTC().Format(time.RFC3339), gps)
}

// cleanJSONString removes markdown code blocks if present (e.g. ```json ... ```)
func cleanJSONString(input string) string {
	input = strings.TrimSpace(input)
	input = strings.TrimPrefix(input, "```json")
	input = strings.TrimPrefix(input, "```")
	input = strings.TrimSuffix(input, "```")
	return strings.TrimSpace(input)
}
