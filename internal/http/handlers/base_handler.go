// README: Base handler utilities (JSON helpers, error mapping).
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridesafe/internal/modules/audio"
	"ridesafe/internal/modules/incident"
	"ridesafe/internal/modules/location"
	"ridesafe/internal/modules/route"
	"ridesafe/internal/modules/search"
)

// statusClientClosedRequest is the nginx convention for a caller that went away.
const statusClientClosedRequest = 499

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// isValidID accepts the ids clients generate: alphanumerics, '-' and '_', at
// most 64 chars.
func isValidID(v string) bool {
	if v == "" || len(v) > 64 {
		return false
	}
	for _, c := range v {
		if (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '-' || c == '_' {
			continue
		}
		return false
	}
	return true
}

func writeJSON(c *gin.Context, status int, v any) {
	c.JSON(status, v)
}

func writeError(c *gin.Context, status int, msg string) {
	writeJSON(c, status, errorResponse{Error: msg})
}

func writeCodedError(c *gin.Context, status int, code string, err error) {
	writeJSON(c, status, errorResponse{Error: err.Error(), Code: code})
}

// writeServiceError maps the module error taxonomy onto HTTP statuses.
// Order matters: ErrPermissionDenied wraps ErrLocationUnavailable.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, incident.ErrBadRequest),
		errors.Is(err, location.ErrInvalidFix),
		errors.Is(err, route.ErrInvalidCoordinate),
		errors.Is(err, audio.ErrEmptyRecording):
		writeCodedError(c, http.StatusBadRequest, "bad_request", err)

	case errors.Is(err, location.ErrPermissionDenied),
		errors.Is(err, audio.ErrPermissionDenied),
		errors.Is(err, audio.ErrSessionOwner):
		writeCodedError(c, http.StatusForbidden, "permission_denied", err)

	case errors.Is(err, incident.ErrNotFound),
		errors.Is(err, incident.ErrPendingNotFound),
		errors.Is(err, audio.ErrSessionNotFound):
		writeCodedError(c, http.StatusNotFound, "not_found", err)

	case errors.Is(err, search.ErrSuperseded):
		writeCodedError(c, http.StatusConflict, "superseded", err)
	case errors.Is(err, audio.ErrDeviceBusy):
		writeCodedError(c, http.StatusConflict, "device_busy", err)
	case errors.Is(err, audio.ErrAlreadyRecording),
		errors.Is(err, audio.ErrInvalidState),
		errors.Is(err, audio.ErrNotOpen):
		writeCodedError(c, http.StatusConflict, "invalid_state", err)

	case errors.Is(err, route.ErrNoRouteFound):
		writeCodedError(c, http.StatusUnprocessableEntity, "no_route", err)
	case errors.Is(err, location.ErrLocationUnavailable):
		writeCodedError(c, http.StatusUnprocessableEntity, "location_unavailable", err)
	case errors.Is(err, location.ErrImplausibleFix):
		writeCodedError(c, http.StatusUnprocessableEntity, "implausible_fix", err)

	case errors.Is(err, route.ErrRoutingService):
		writeCodedError(c, http.StatusBadGateway, "routing_unavailable", err)
	case errors.Is(err, incident.ErrAnalysisFailed):
		writeCodedError(c, http.StatusBadGateway, "analysis_failed", err)

	case errors.Is(err, location.ErrReadOnly):
		writeCodedError(c, http.StatusNotImplemented, "read_only", err)

	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(statusClientClosedRequest)
	case errors.Is(err, context.DeadlineExceeded):
		writeCodedError(c, http.StatusGatewayTimeout, "timeout", err)

	default:
		slog.Error("unhandled service error", "path", c.FullPath(), "error", err)
		writeError(c, http.StatusInternalServerError, "internal error")
	}
}
