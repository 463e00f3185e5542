package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/penguard/penguard/internal/models"
	"github.com/penguard/penguard/internal/vision"
)

// ClassifyHandler runs one capture through the classification gateway,
// mints the correlation ID and appends the ledger row. A classifier
// outage is reported as an error status, never as "no detection" — the
// edge must be able to tell "unknown" from "no threat".
func (h *Handlers) ClassifyHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFrameSize); err != nil {
		http.Error(w, "Could not parse multipart form", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Image file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil || len(image) == 0 {
		http.Error(w, "Failed to read image", http.StatusBadRequest)
		return
	}

	annotations, err := h.classifier.Classify(r.Context(), image)
	if err != nil {
		if h.metrics != nil {
			h.metrics.IncClassificationFailures()
		}
		if errors.Is(err, vision.ErrExhausted) {
			http.Error(w, "Classifier unreachable", http.StatusBadGateway)
			return
		}
		http.Error(w, fmt.Sprintf("Classification failed: %v", err), http.StatusBadGateway)
		return
	}

	matched, labels := vision.Evaluate(annotations, h.cfg.Detection.Allow)

	event := &models.DetectionEvent{
		ID:         uuid.New().String(),
		CapturedAt: h.now().UTC(),
		Result:     matched,
		Labels:     labels,
	}

	// A lost photo upload does not lose the detection record.
	photoLink, err := h.blob.Upload(r.Context(), h.cfg.Minio.PhotoBucket, event.ID+".jpg", image, "image/jpeg")
	if err != nil {
		log.Printf("Classify: photo upload failed for %s: %v", event.ID, err)
	} else {
		event.PhotoLink = photoLink
	}

	if err := h.ledger.AppendWithOutbox(r.Context(), event); err != nil {
		if h.metrics != nil {
			h.metrics.IncLedgerErrors()
		}
		log.Printf("Classify: ledger append failed for %s: %v", event.ID, err)
		http.Error(w, "Failed to record detection", http.StatusInternalServerError)
		return
	}

	if matched && h.metrics != nil {
		h.metrics.IncDetectionsConfirmed()
	}

	writeJSON(w, http.StatusOK, models.ClassifyResponse{
		ID:      event.ID,
		Matched: matched,
		Labels:  labels,
	})
}
