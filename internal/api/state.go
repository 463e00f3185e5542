package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/penguard/penguard/internal/models"
)

// GetDetectionStateHandler returns the one-shot detection flag. The
// read clears it; polling the endpoint consumes the signal.
func (h *Handlers) GetDetectionStateHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.DetectionStateResponse{
		Detection: h.store.GetAndClearDetection(),
	})
}

// SetDetectionStateHandler arms the one-shot detection flag (a viewer's
// manual "deter now").
func (h *Handlers) SetDetectionStateHandler(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.ParseBool(r.URL.Query().Get("value"))
	if err != nil {
		http.Error(w, "value must be true or false", http.StatusBadRequest)
		return
	}
	h.store.SetDetection(value)
	writeJSON(w, http.StatusOK, models.DetectionStateResponse{Detection: value})
}

// GetStreamingStateHandler returns the streaming level flag. Viewer
// polls (?viewer=true) also refresh the interaction time; the edge's
// own polls do not.
func (h *Handlers) GetStreamingStateHandler(w http.ResponseWriter, r *http.Request) {
	if viewer, _ := strconv.ParseBool(r.URL.Query().Get("viewer")); viewer {
		h.store.TouchInteraction()
	}
	writeJSON(w, http.StatusOK, models.StreamingStateResponse{
		Streaming: h.store.StreamingState(),
	})
}

// SetStreamingStateHandler sets or clears the streaming level flag.
// Either side may call it; the edge uses it to force-clear a stuck flag.
// Raising the flag counts as viewer interaction, so a fresh session
// gets a full idle period before the watchdog may clear it.
func (h *Handlers) SetStreamingStateHandler(w http.ResponseWriter, r *http.Request) {
	value, err := strconv.ParseBool(r.URL.Query().Get("value"))
	if err != nil {
		http.Error(w, "value must be true or false", http.StatusBadRequest)
		return
	}
	if value {
		h.store.TouchInteraction()
	}
	h.store.SetStreamingState(value)
	writeJSON(w, http.StatusOK, models.StreamingStateResponse{Streaming: value})
}

// InteractionHandler reports when a viewer last polled and how long ago.
func (h *Handlers) InteractionHandler(w http.ResponseWriter, r *http.Request) {
	at, idle, ok := h.store.Interaction()
	if !ok {
		writeJSON(w, http.StatusOK, map[string]any{"recorded": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"recorded": true,
		"at":       at.Format(time.RFC3339),
		"idle_ms":  idle.Milliseconds(),
	})
}
