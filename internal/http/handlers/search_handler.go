// README: Place search handler; one debounced engine per typing session.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ridesafe/internal/maps"
	"ridesafe/internal/modules/search"
)

type SearchHandler struct {
	sessions *search.Registry
}

func NewSearchHandler(sessions *search.Registry) *SearchHandler {
	return &SearchHandler{sessions: sessions}
}

type searchResponse struct {
	Query      string       `json:"query"`
	Candidates []maps.Place `json:"candidates"`
	Error      string       `json:"error,omitempty"`
}

// Search answers a keystroke. A request overtaken by a newer keystroke in the
// same session gets 409 instead of stale candidates.
func (h *SearchHandler) Search(c *gin.Context) {
	session := c.Query("session")
	if !isValidID(session) {
		writeError(c, http.StatusBadRequest, "invalid session")
		return
	}
	res, err := h.sessions.Session(session).Search(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	resp := searchResponse{Query: res.Query, Candidates: res.Candidates}
	if resp.Candidates == nil {
		resp.Candidates = []maps.Place{}
	}
	if res.Err != nil {
		resp.Error = "place search unavailable"
	}
	writeJSON(c, http.StatusOK, resp)
}
