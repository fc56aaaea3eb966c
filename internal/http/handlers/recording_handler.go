// README: Voice recording handlers. Clients stream audio chunks into a server-side capture session.
package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridesafe/internal/modules/audio"
	"ridesafe/internal/modules/incident"
	"ridesafe/internal/types"
)

// maxChunkBytes bounds one upload; clients send roughly one second per chunk.
const maxChunkBytes = 1 << 20

type RecordingHandler struct {
	sessions  *audio.Registry
	incidents IncidentService
}

func NewRecordingHandler(sessions *audio.Registry, incidents IncidentService) *RecordingHandler {
	return &RecordingHandler{sessions: sessions, incidents: incidents}
}

type startRecordingReq struct {
	MimeType   string `json:"mime_type"`
	Permission string `json:"permission"`
}

type submitRecordingReq struct {
	Timestamp string   `json:"timestamp"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
}

type recordingResponse struct {
	Session         string      `json:"session"`
	State           audio.State `json:"state"`
	MimeType        string      `json:"mime_type,omitempty"`
	DurationSeconds float64     `json:"duration_seconds,omitempty"`
	Bytes           int         `json:"bytes,omitempty"`
}

func (h *RecordingHandler) Start(c *gin.Context) {
	sessionID, riderID, ok := recordingIDs(c)
	if !ok {
		return
	}
	var req startRecordingReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	handle, err := h.sessions.Open(sessionID, riderID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	if handle.Session.State() != audio.StateRecording {
		handle.Device.Configure(req.Permission != "denied", req.MimeType)
	}
	if err := handle.Session.Start(c.Request.Context()); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, recordingResponse{Session: sessionID, State: handle.Session.State()})
}

func (h *RecordingHandler) Chunk(c *gin.Context) {
	handle, ok := h.owned(c)
	if !ok {
		return
	}
	data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxChunkBytes+1))
	if err != nil {
		writeError(c, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(data) > maxChunkBytes {
		writeError(c, http.StatusRequestEntityTooLarge, "chunk too large")
		return
	}
	if _, err := handle.Device.Write(data); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, map[string]any{"accepted": len(data)})
}

func (h *RecordingHandler) Stop(c *gin.Context) {
	handle, ok := h.owned(c)
	if !ok {
		return
	}
	art, err := handle.Session.Stop()
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, recordingResponse{
		Session:         handle.Session.ID(),
		State:           handle.Session.State(),
		MimeType:        art.MimeType,
		DurationSeconds: art.DurationSeconds,
		Bytes:           len(art.Bytes),
	})
}

func (h *RecordingHandler) Discard(c *gin.Context) {
	handle, ok := h.owned(c)
	if !ok {
		return
	}
	if err := handle.Session.Discard(); err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, recordingResponse{Session: handle.Session.ID(), State: handle.Session.State()})
}

// Submit hands the stopped recording to the incident pipeline. A parked
// (partial) submission still consumes the recording: analysis already ran.
func (h *RecordingHandler) Submit(c *gin.Context) {
	handle, ok := h.owned(c)
	if !ok {
		return
	}
	var req submitRecordingReq
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			writeError(c, http.StatusBadRequest, "invalid json")
			return
		}
	}
	sc, ok := submitContext(c, string(handle.RiderID), req.Timestamp, req.Lat, req.Lon)
	if !ok {
		return
	}

	var (
		rec       incident.Record
		submitErr error
	)
	err := handle.Session.Submit(c.Request.Context(), func(ctx context.Context, art audio.Artifact) error {
		rec, submitErr = h.incidents.Submit(ctx, art, sc)
		if errors.Is(submitErr, incident.ErrPartialSubmission) {
			return nil
		}
		return submitErr
	})
	if submitErr != nil {
		writeSubmitError(c, submitErr)
		return
	}
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusCreated, rec)
}

// Close is called when the rider navigates away mid-recording. Whatever was
// captured is dropped and the microphone is freed.
func (h *RecordingHandler) Close(c *gin.Context) {
	handle, ok := h.owned(c)
	if !ok {
		return
	}
	h.sessions.Close(handle.Session.ID())
	writeJSON(c, http.StatusOK, recordingResponse{Session: handle.Session.ID(), State: audio.StateIdle})
}

func (h *RecordingHandler) Get(c *gin.Context) {
	handle, ok := h.owned(c)
	if !ok {
		return
	}
	writeJSON(c, http.StatusOK, recordingResponse{Session: handle.Session.ID(), State: handle.Session.State()})
}

func (h *RecordingHandler) owned(c *gin.Context) (audio.Handle, bool) {
	sessionID, riderID, ok := recordingIDs(c)
	if !ok {
		return audio.Handle{}, false
	}
	handle, err := h.sessions.Get(sessionID)
	if err != nil {
		writeServiceError(c, err)
		return audio.Handle{}, false
	}
	if handle.RiderID != riderID {
		writeServiceError(c, audio.ErrSessionOwner)
		return audio.Handle{}, false
	}
	return handle, true
}

func recordingIDs(c *gin.Context) (string, types.ID, bool) {
	sessionID := c.Param("session")
	riderID := c.Query("rider_id")
	if !isValidID(sessionID) {
		writeError(c, http.StatusBadRequest, "invalid session")
		return "", "", false
	}
	if !isValidID(riderID) {
		writeError(c, http.StatusBadRequest, "invalid rider_id")
		return "", "", false
	}
	return sessionID, types.ID(riderID), true
}
