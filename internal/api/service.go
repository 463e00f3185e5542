// Package api exposes the coordination endpoints consumed by the edge
// node and by viewers: coordination flags, the live-frame relay,
// classification submission, recording uploads, windowed counts and
// the illumination decision.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/models"
	"github.com/penguard/penguard/internal/relay"
	"github.com/penguard/penguard/internal/statestore"
	"github.com/penguard/penguard/internal/suncalc"
)

// Classifier is the external object-classification gateway.
type Classifier interface {
	Classify(ctx context.Context, image []byte) ([]models.Annotation, error)
}

// BlobStore stores photo/video artifacts and returns their URIs.
type BlobStore interface {
	Upload(ctx context.Context, bucket, name string, data []byte, contentType string) (string, error)
}

// Ledger is the detection record store.
type Ledger interface {
	AppendWithOutbox(ctx context.Context, event *models.DetectionEvent) error
	UpdateRecording(ctx context.Context, id string, deterrentFired bool, videoLink string) error
	Get(ctx context.Context, id string) (*models.DetectionEvent, error)
	CountByWindow(ctx context.Context, now time.Time, windows []models.Window) (map[models.Window]models.WindowCount, error)
}

type Handlers struct {
	store      statestore.Store
	ledger     Ledger
	blob       BlobStore
	classifier Classifier
	relay      *relay.Relay
	sun        *suncalc.SunCalc
	cfg        *config.Config
	metrics    *Metrics

	now func() time.Time
}

func NewHandlers(store statestore.Store, ledger Ledger, blob BlobStore, classifier Classifier, frameRelay *relay.Relay, sun *suncalc.SunCalc, cfg *config.Config, metrics *Metrics) *Handlers {
	return &Handlers{
		store:      store,
		ledger:     ledger,
		blob:       blob,
		classifier: classifier,
		relay:      frameRelay,
		sun:        sun,
		cfg:        cfg,
		metrics:    metrics,
		now:        time.Now,
	}
}

// Router builds the coordinator's route table.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/detection/state", h.GetDetectionStateHandler).Methods("GET")
	r.HandleFunc("/detection/state", h.SetDetectionStateHandler).Methods("POST")
	r.HandleFunc("/stream/state", h.GetStreamingStateHandler).Methods("GET")
	r.HandleFunc("/stream/state", h.SetStreamingStateHandler).Methods("POST")
	r.HandleFunc("/stream/frame", h.PushFrameHandler).Methods("POST")
	r.HandleFunc("/stream/feed", h.FeedHandler).Methods("GET")
	r.HandleFunc("/interaction", h.InteractionHandler).Methods("GET")
	r.HandleFunc("/classify", h.ClassifyHandler).Methods("POST")
	r.HandleFunc("/recordings", h.SubmitRecordingHandler).Methods("POST")
	r.HandleFunc("/detections/counts", h.CountsHandler).Methods("GET")
	r.HandleFunc("/detections/{detection_id}", h.GetDetectionHandler).Methods("GET")
	r.HandleFunc("/illumination", h.IlluminationHandler).Methods("GET")
	if h.metrics != nil {
		r.Handle("/metrics", h.metrics.Handler()).Methods("GET")
	}

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
