package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// FatigueProfile describes the rider's recent work pattern. Until the app
// collects these, DefaultFatigueProfile is used.
type FatigueProfile struct {
	ShiftDurationHours    float64
	ConsecutiveWorkDays   int
	NightWorkFraction     float64
	WeatherStressIndex    float64
	SelfReportedTiredness int
}

var DefaultFatigueProfile = FatigueProfile{
	ShiftDurationHours:    PlaceholderShiftHours,
	ConsecutiveWorkDays:   5,
	NightWorkFraction:     0.3,
	WeatherStressIndex:    PlaceholderWeatherStress,
	SelfReportedTiredness: 3,
}

type fatigueRequest struct {
	ShiftDurationHours    float64 `json:"shift_duration_hours"`
	ConsecutiveWorkDays   int     `json:"consecutive_work_days"`
	NightWorkFraction     float64 `json:"night_work_fraction"`
	WeatherStressIndex    float64 `json:"weather_stress_index"`
	SelfReportedTiredness int     `json:"self_reported_tiredness"`
}

type fatigueResponse struct {
	RiskClass string   `json:"risk_class"`
	RiskScore *float64 `json:"risk_score"`
}

// FatigueClient calls the fatigue model at POST {base}/predict/fatigue.
type FatigueClient struct {
	endpoint   string
	httpClient *http.Client
}

func NewFatigueClient(baseURL string, timeout time.Duration) *FatigueClient {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &FatigueClient{
		endpoint:   strings.TrimRight(baseURL, "/") + "/predict/fatigue",
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Score maps the model's high-risk probability onto the 1..5 fatigue scale
// the route model was trained on.
func (c *FatigueClient) Score(ctx context.Context, p FatigueProfile) (float64, error) {
	body, err := json.Marshal(fatigueRequest(p))
	if err != nil {
		return 0, fmt.Errorf("fatigue: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("fatigue: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("fatigue: do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("fatigue: status %d", resp.StatusCode)
	}

	var out fatigueResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("fatigue: decode response: %w", err)
	}
	if out.RiskScore == nil {
		return 0, fmt.Errorf("fatigue: response missing risk_score")
	}
	score := *out.RiskScore
	if score < 0 {
		score = 0
	}
	if score > 1 {
		score = 1
	}
	return 1 + 4*score, nil
}
