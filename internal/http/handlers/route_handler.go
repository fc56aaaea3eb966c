// README: Route-risk handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridesafe/internal/service"
	"ridesafe/internal/types"
)

type Planner interface {
	Plan(ctx context.Context, req service.PlanRequest) (service.Plan, error)
}

type RouteHandler struct {
	planner Planner
}

func NewRouteHandler(planner Planner) *RouteHandler {
	return &RouteHandler{planner: planner}
}

type assessRouteReq struct {
	RiderID     string            `json:"rider_id"`
	Origin      *types.Coordinate `json:"origin"`
	Destination *types.Coordinate `json:"destination"`
}

func (h *RouteHandler) Assess(c *gin.Context) {
	var req assessRouteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Destination == nil || !req.Destination.Valid() {
		writeError(c, http.StatusBadRequest, "invalid destination")
		return
	}
	if req.Origin != nil && !req.Origin.Valid() {
		writeError(c, http.StatusBadRequest, "invalid origin")
		return
	}
	if req.Origin == nil && req.RiderID == "" {
		writeError(c, http.StatusBadRequest, "origin or rider_id required")
		return
	}
	plan, err := h.planner.Plan(c.Request.Context(), service.PlanRequest{
		RiderID:     types.ID(req.RiderID),
		Origin:      req.Origin,
		Destination: *req.Destination,
	})
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, plan)
}
