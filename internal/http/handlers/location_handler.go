// README: Rider location handlers.
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"ridesafe/internal/modules/location"
	"ridesafe/internal/types"
)

type FixRecorder interface {
	Record(ctx context.Context, fix location.Fix) error
}

type LocationHandler struct {
	location FixRecorder
}

func NewLocationHandler(svc FixRecorder) *LocationHandler {
	return &LocationHandler{location: svc}
}

type updateLocationReq struct {
	Lat         *float64 `json:"lat"`
	Lon         *float64 `json:"lon"`
	AccuracyM   float64  `json:"accuracy_m"`
	Permission  string   `json:"permission"`
	TimestampMs int64    `json:"timestamp_ms"`
}

func (h *LocationHandler) Update(c *gin.Context) {
	id := c.Param("id")
	if !isValidID(id) {
		writeError(c, http.StatusBadRequest, "invalid rider id")
		return
	}
	var req updateLocationReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	perm := location.Permission(req.Permission)
	switch perm {
	case "", location.PermissionGranted:
		perm = location.PermissionGranted
		if req.Lat == nil || req.Lon == nil {
			writeError(c, http.StatusBadRequest, "lat and lon required")
			return
		}
	case location.PermissionDenied:
	default:
		writeError(c, http.StatusBadRequest, "permission must be granted or denied")
		return
	}

	fix := location.Fix{
		RiderID:    types.ID(id),
		AccuracyM:  req.AccuracyM,
		Permission: perm,
	}
	if req.Lat != nil && req.Lon != nil {
		fix.Position = types.NewCoordinate(*req.Lat, *req.Lon)
	}
	if req.TimestampMs > 0 {
		fix.RecordedAt = time.UnixMilli(req.TimestampMs)
	}
	if err := h.location.Record(c.Request.Context(), fix); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"status": "ok"})
}
