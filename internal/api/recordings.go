package api

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/penguard/penguard/internal/ledger"
	"github.com/penguard/penguard/internal/models"
	"github.com/penguard/penguard/internal/suncalc"
)

const maxVideoSize = 100 << 20

// SubmitRecordingHandler accepts the edge's video upload for a prior
// detection and patches the ledger row by correlation ID. An unknown ID
// is logged and reported, not treated as a failure: the detection row
// itself is intact.
func (h *Handlers) SubmitRecordingHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxVideoSize); err != nil {
		http.Error(w, "Could not parse multipart form", http.StatusBadRequest)
		return
	}

	id := r.FormValue("id")
	if id == "" {
		http.Error(w, "id is required", http.StatusBadRequest)
		return
	}
	deterrentFired, _ := strconv.ParseBool(r.FormValue("deterrent"))

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Video file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	video, err := io.ReadAll(file)
	if err != nil || len(video) == 0 {
		http.Error(w, "Failed to read video", http.StatusBadRequest)
		return
	}

	name := id + ".mp4"
	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}

	videoLink, err := h.blob.Upload(r.Context(), h.cfg.Minio.VideoBucket, name, video, contentType)
	if err != nil {
		log.Printf("Recordings: video upload failed for %s: %v", id, err)
		http.Error(w, "Failed to store video", http.StatusInternalServerError)
		return
	}

	if err := h.ledger.UpdateRecording(r.Context(), id, deterrentFired, videoLink); err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			writeJSON(w, http.StatusOK, map[string]string{
				"status":     "not found",
				"video_link": videoLink,
			})
			return
		}
		if h.metrics != nil {
			h.metrics.IncLedgerErrors()
		}
		http.Error(w, "Failed to update detection", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":     "ok",
		"video_link": videoLink,
	})
}

// GetDetectionHandler returns one ledger row by correlation ID.
func (h *Handlers) GetDetectionHandler(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["detection_id"]

	event, err := h.ledger.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			http.Error(w, "Detection not found", http.StatusNotFound)
			return
		}
		log.Printf("Detections: lookup failed for %s: %v", id, err)
		http.Error(w, "Failed to load detection", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, event)
}

// CountsHandler returns windowed detection aggregates. Unknown window
// names are rejected; with no windows given, all four are returned.
func (h *Handlers) CountsHandler(w http.ResponseWriter, r *http.Request) {
	windows := []models.Window{models.WindowHour, models.WindowDay, models.WindowWeek, models.WindowMonth}

	if raw := r.URL.Query().Get("windows"); raw != "" {
		windows = windows[:0]
		for _, part := range strings.Split(raw, ",") {
			win := models.Window(strings.TrimSpace(part))
			if _, ok := models.WindowDuration(win); !ok {
				http.Error(w, "unknown window: "+string(win), http.StatusBadRequest)
				return
			}
			windows = append(windows, win)
		}
	}

	counts, err := h.ledger.CountByWindow(r.Context(), h.now().UTC(), windows)
	if err != nil {
		log.Printf("Counts: %v", err)
		http.Error(w, "Failed to aggregate detections", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// IlluminationHandler answers the edge's day/night poll.
func (h *Handlers) IlluminationHandler(w http.ResponseWriter, r *http.Request) {
	now := h.now().UTC()
	times, err := h.sun.SunTimes(now)
	if err != nil {
		log.Printf("Illumination: %v", err)
		http.Error(w, "Failed to compute sun times", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, models.IlluminationResponse{
		Illuminate: suncalc.ShouldIlluminate(now, times.Sunrise, times.Sunset, h.cfg.Sun.Buffer),
		Sunrise:    times.Sunrise,
		Sunset:     times.Sunset,
	})
}
