// README: Risk classification client. Always yields an assessment; outages degrade to an offline estimate.
package risk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

type Label string

const (
	LabelLow    Label = "Low"
	LabelMedium Label = "Medium"
	LabelHigh   Label = "High"
)

// ErrClassificationUnavailable never escapes Assess; it is logged when the
// offline estimate is used.
var ErrClassificationUnavailable = errors.New("risk classification unavailable")

// OfflineReasons accompany every offline estimate.
var OfflineReasons = []string{
	"Risk service unreachable; showing a conservative estimate",
	"Check traffic and weather before you ride",
}

const (
	offlineConfidence = 0.5
	noDominantReason  = "No dominant risk factors"
)

// Assessment is a classification verdict. Confidence is the probability
// behind Label; it is nil when the service returned a label without one.
type Assessment struct {
	Label         Label              `json:"label"`
	Reasons       []string           `json:"reasons"`
	Confidence    *float64           `json:"confidence,omitempty"`
	IsOffline     bool               `json:"is_offline"`
	Probabilities map[string]float64 `json:"probabilities,omitempty"`
}

// Offline is the conservative verdict used whenever classification fails.
func Offline() Assessment {
	return Assessment{
		Label:      LabelMedium,
		Reasons:    append([]string(nil), OfflineReasons...),
		Confidence: ptr(offlineConfidence),
		IsOffline:  true,
	}
}

type routeRiskRequest struct {
	RouteDistanceKm     float64 `json:"route_distance_km"`
	RouteDurationMin    float64 `json:"route_duration_min"`
	IntersectionDensity float64 `json:"intersection_density"`
	IsNight             int     `json:"is_night"`
	WeatherStressIndex  float64 `json:"weather_stress_index"`
	FatigueScore        float64 `json:"fatigue_score"`
	ShiftDurationHours  float64 `json:"shift_duration_hours"`
}

type routeRiskResponse struct {
	RiskLabel         string             `json:"risk_label"`
	Reasons           []string           `json:"reasons"`
	RiskProbabilities map[string]float64 `json:"risk_probabilities"`
}

type Client struct {
	endpoint   string
	httpClient *http.Client
}

// NewClient targets baseURL+path (e.g. "/risk/route" or "/predict/route").
// timeout bounds the whole call.
func NewClient(baseURL, path string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + path,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Assess classifies f. It never fails: any transport error, timeout, non-2xx
// status or malformed body produces Offline().
func (c *Client) Assess(ctx context.Context, f Features) Assessment {
	a, err := c.classify(ctx, f)
	if err != nil {
		slog.Warn("risk classification failed, using offline estimate", "error", err)
		return Offline()
	}
	return a
}

func (c *Client) classify(ctx context.Context, f Features) (Assessment, error) {
	body, err := json.Marshal(toRequest(f))
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: marshal request: %v", ErrClassificationUnavailable, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: build request: %v", ErrClassificationUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Assessment{}, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Assessment{}, fmt.Errorf("%w: status %d: %s", ErrClassificationUnavailable, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var out routeRiskResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Assessment{}, fmt.Errorf("%w: decode response: %v", ErrClassificationUnavailable, err)
	}
	return fromResponse(out)
}

func toRequest(f Features) routeRiskRequest {
	night := 0
	if f.IsNight {
		night = 1
	}
	return routeRiskRequest{
		RouteDistanceKm:     f.DistanceKm,
		RouteDurationMin:    f.DurationMin,
		IntersectionDensity: f.IntersectionDensity,
		IsNight:             night,
		WeatherStressIndex:  f.WeatherStressIndex,
		FatigueScore:        f.FatigueScore,
		ShiftDurationHours:  f.ShiftDurationHours,
	}
}

func parseLabel(s string) (Label, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return LabelLow, true
	case "medium", "moderate":
		return LabelMedium, true
	case "high":
		return LabelHigh, true
	}
	return "", false
}

// fromResponse validates the service payload. Confidence is the probability
// the service gave its own label, left nil when it sent none.
func fromResponse(out routeRiskResponse) (Assessment, error) {
	label, ok := parseLabel(out.RiskLabel)
	if !ok {
		return Assessment{}, fmt.Errorf("%w: unknown risk_label %q", ErrClassificationUnavailable, out.RiskLabel)
	}

	reasons := make([]string, 0, len(out.Reasons))
	for _, r := range out.Reasons {
		if r = strings.TrimSpace(r); r != "" {
			reasons = append(reasons, r)
		}
	}
	if len(reasons) == 0 {
		reasons = append(reasons, noDominantReason)
	}

	var confidence *float64
	var probs map[string]float64
	if len(out.RiskProbabilities) > 0 {
		probs = make(map[string]float64, len(out.RiskProbabilities))
		for k, v := range out.RiskProbabilities {
			if v < 0 || v > 1 {
				return Assessment{}, fmt.Errorf("%w: probability %s=%v out of range", ErrClassificationUnavailable, k, v)
			}
			probs[k] = v
			if l, ok := parseLabel(k); ok && l == label {
				confidence = ptr(v)
			}
		}
	}

	return Assessment{
		Label:         label,
		Reasons:       reasons,
		Confidence:    confidence,
		IsOffline:     false,
		Probabilities: probs,
	}, nil
}

func ptr(v float64) *float64 { return &v }
