// README: HTTP client for the incident analysis backend (multipart voice upload, JSON manual form).
package incident

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

type voiceResponse struct {
	Category     string `json:"category"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Severity     string `json:"severity"`
	DownloadLink string `json:"download_link"`
	DownloadURL  string `json:"download_url"`
}

type manualRequest struct {
	UserID      string `json:"user_id"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Timestamp   string `json:"timestamp"`
}

type manualResponse struct {
	DownloadLink string `json:"download_link"`
	DownloadURL  string `json:"download_url"`
}

type HTTPAnalyzer struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPAnalyzer targets baseURL/incident/report and baseURL/incident/manual.
// Report generation is slow, so timeout is usually much longer than for
// read-only lookups.
func NewHTTPAnalyzer(baseURL string, timeout time.Duration) *HTTPAnalyzer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPAnalyzer{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (a *HTTPAnalyzer) AnalyzeVoice(ctx context.Context, req VoiceRequest) (VoiceAnalysis, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "incident"+fileExtension(req.Audio.MimeType))
	if err != nil {
		return VoiceAnalysis{}, fmt.Errorf("analysis: create form file: %w", err)
	}
	if _, err := fw.Write(req.Audio.Bytes); err != nil {
		return VoiceAnalysis{}, fmt.Errorf("analysis: write audio: %w", err)
	}
	fields := [][2]string{
		{"user_id", string(req.UserID)},
		{"gps_coords", req.GPSCoords},
		{"timestamp", req.Timestamp.UTC().Format(time.RFC3339)},
	}
	for _, f := range fields {
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return VoiceAnalysis{}, fmt.Errorf("analysis: write field %s: %w", f[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return VoiceAnalysis{}, fmt.Errorf("analysis: close multipart: %w", err)
	}

	var out voiceResponse
	if err := a.post(ctx, "/incident/report", mw.FormDataContentType(), &body, &out); err != nil {
		return VoiceAnalysis{}, err
	}
	if strings.TrimSpace(out.Title) == "" && strings.TrimSpace(out.Description) == "" {
		return VoiceAnalysis{}, fmt.Errorf("%w: no title or description", ErrMalformedAnalysis)
	}
	return VoiceAnalysis{
		Category:    out.Category,
		Title:       strings.TrimSpace(out.Title),
		Description: strings.TrimSpace(out.Description),
		Severity:    out.Severity,
		ReportRef:   firstNonEmpty(out.DownloadLink, out.DownloadURL),
	}, nil
}

func (a *HTTPAnalyzer) AnalyzeManual(ctx context.Context, req ManualRequest) (ManualAnalysis, error) {
	raw, err := json.Marshal(manualRequest{
		UserID:      string(req.UserID),
		Type:        string(req.Type),
		Description: req.Description,
		Location:    req.Location,
		Timestamp:   req.Timestamp.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return ManualAnalysis{}, fmt.Errorf("analysis: marshal manual request: %w", err)
	}
	var out manualResponse
	if err := a.post(ctx, "/incident/manual", "application/json", bytes.NewReader(raw), &out); err != nil {
		return ManualAnalysis{}, err
	}
	return ManualAnalysis{ReportRef: firstNonEmpty(out.DownloadLink, out.DownloadURL)}, nil
}

func (a *HTTPAnalyzer) post(ctx context.Context, path, contentType string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("analysis: build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("analysis: do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("analysis: %s returned %d: %s", path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedAnalysis, path, err)
	}
	return nil
}

// fileExtension picks an upload filename suffix; the backend keys its
// transcoder off the extension.
func fileExtension(mimeType string) string {
	base, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ".bin"
	}
	if m := mimetype.Lookup(base); m != nil && m.Extension() != "" {
		return m.Extension()
	}
	return ".bin"
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
