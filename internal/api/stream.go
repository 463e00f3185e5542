package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
)

const maxFrameSize = 10 << 20

// PushFrameHandler accepts the edge's latest still frame and overwrites
// the relay slot. Slow viewers never slow the edge down.
func (h *Handlers) PushFrameHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFrameSize); err != nil {
		http.Error(w, "Could not parse multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Frame file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	frame, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read frame", http.StatusInternalServerError)
		return
	}
	if len(frame) == 0 {
		http.Error(w, "Frame is empty", http.StatusBadRequest)
		return
	}

	h.relay.Push(frame)
	h.store.TouchInteraction()
	if h.metrics != nil {
		h.metrics.IncFramesPushed()
	}
	w.WriteHeader(http.StatusOK)
}

// FeedHandler streams the relay to a viewer as MJPEG
// (multipart/x-mixed-replace). Each connected viewer gets its own
// cursor; the stream ends when the client disconnects.
func (h *Handlers) FeedHandler(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.WriteHeader(http.StatusOK)

	viewer := h.relay.Subscribe()
	for {
		frame, err := viewer.Next(r.Context())
		if err != nil {
			log.Printf("Feed: viewer disconnected: %v", err)
			return
		}

		if _, err := fmt.Fprintf(w, "--frame\r\nContent-Type: image/jpeg\r\nContent-Length: %d\r\n\r\n", len(frame)); err != nil {
			return
		}
		if _, err := w.Write(frame); err != nil {
			return
		}
		if _, err := io.WriteString(w, "\r\n"); err != nil {
			return
		}
		flusher.Flush()
	}
}
