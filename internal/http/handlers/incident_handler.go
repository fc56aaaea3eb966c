// README: Incident handlers: manual reports, listing, and pending-submission retry.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"ridesafe/internal/modules/incident"
	"ridesafe/internal/types"
)

type IncidentService interface {
	Submit(ctx context.Context, payload any, sc incident.SubmitContext) (incident.Record, error)
	RetryPending(ctx context.Context, pendingID string) (incident.Record, error)
	ListPending(ctx context.Context, userID types.ID) ([]incident.PendingSubmission, error)
	List(ctx context.Context, userID types.ID, limit int) ([]incident.Record, error)
	Get(ctx context.Context, id string) (incident.Record, error)
}

type IncidentHandler struct {
	incidents IncidentService
}

func NewIncidentHandler(svc IncidentService) *IncidentHandler {
	return &IncidentHandler{incidents: svc}
}

type manualIncidentReq struct {
	UserID      string   `json:"user_id"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Severity    string   `json:"severity"`
	Anonymous   bool     `json:"anonymous"`
	Timestamp   string   `json:"timestamp"`
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
}

type partialResponse struct {
	Status    string          `json:"status"`
	PendingID string          `json:"pending_id,omitempty"`
	Incident  incident.Record `json:"incident"`
	Error     string          `json:"error"`
}

func (h *IncidentHandler) CreateManual(c *gin.Context) {
	var req manualIncidentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if !isValidID(req.UserID) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return
	}
	sc, ok := submitContext(c, req.UserID, req.Timestamp, req.Lat, req.Lon)
	if !ok {
		return
	}
	rec, err := h.incidents.Submit(c.Request.Context(), incident.ManualEntry{
		Type:          req.Type,
		Description:   req.Description,
		LocationLabel: req.Location,
		Severity:      req.Severity,
		Anonymous:     req.Anonymous,
	}, sc)
	if err != nil {
		writeSubmitError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, rec)
}

func (h *IncidentHandler) List(c *gin.Context) {
	userID := c.Query("user_id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	recs, err := h.incidents.List(c.Request.Context(), types.ID(userID), limit)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"incidents": recs})
}

func (h *IncidentHandler) Get(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid incident id")
		return
	}
	rec, err := h.incidents.Get(c.Request.Context(), id)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, rec)
}

func (h *IncidentHandler) ListPending(c *gin.Context) {
	userID := c.Query("user_id")
	if !isValidID(userID) {
		writeError(c, http.StatusBadRequest, "invalid user_id")
		return
	}
	pending, err := h.incidents.ListPending(c.Request.Context(), types.ID(userID))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"pending": pending})
}

func (h *IncidentHandler) RetryPending(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid pending id")
		return
	}
	rec, err := h.incidents.RetryPending(c.Request.Context(), id)
	if err != nil {
		writeSubmitError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, rec)
}

// writeSubmitError reports a parked submission as accepted-but-pending so the
// client can offer a retry of the store write alone.
func writeSubmitError(c *gin.Context, err error) {
	var partial *incident.PartialSubmissionError
	if errors.As(err, &partial) {
		writeJSON(c, http.StatusAccepted, partialResponse{
			Status:    "pending",
			PendingID: partial.PendingID,
			Incident:  partial.Record,
			Error:     err.Error(),
		})
		return
	}
	writeServiceError(c, err)
}

// submitContext parses the optional timestamp and coordinate shared by the
// manual and voice submit endpoints. It writes the 400 itself.
func submitContext(c *gin.Context, userID, timestamp string, lat, lon *float64) (incident.SubmitContext, bool) {
	sc := incident.SubmitContext{UserID: types.ID(userID)}
	if timestamp != "" {
		ts, err := time.Parse(time.RFC3339, timestamp)
		if err != nil {
			writeError(c, http.StatusBadRequest, "timestamp must be RFC3339")
			return sc, false
		}
		sc.Timestamp = ts
	}
	if lat != nil && lon != nil {
		coord := types.NewCoordinate(*lat, *lon)
		if !coord.Valid() {
			writeError(c, http.StatusBadRequest, "invalid coordinate")
			return sc, false
		}
		sc.Location = &coord
	}
	return sc, true
}
