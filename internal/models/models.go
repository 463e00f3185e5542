package models

import "time"

// TimestampLayout is the wire/storage format for detection timestamps.
// Rows that fail to parse against this layout are skipped during
// aggregation, never fatal.
const TimestampLayout = time.RFC3339

// Annotation is one object reported by the classification service.
type Annotation struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// DetectionEvent is a single detection cycle, keyed by its correlation ID.
// PhotoLink is filled at append time; DeterrentFired and VideoLink arrive
// with a later update that may never come.
type DetectionEvent struct {
	ID             string    `json:"id"`
	CapturedAt     time.Time `json:"captured_at"`
	Result         bool      `json:"result"`
	Labels         []string  `json:"labels"`
	PhotoLink      string    `json:"photo_link,omitempty"`
	DeterrentFired bool      `json:"deterrent_fired"`
	VideoLink      string    `json:"video_link,omitempty"`
}

// ClassifyResponse is returned by the coordinator's classify endpoint.
type ClassifyResponse struct {
	ID      string   `json:"id"`
	Matched bool     `json:"matched"`
	Labels  []string `json:"labels"`
}

// StreamingStateResponse carries the streaming level flag to edge and viewers.
type StreamingStateResponse struct {
	Streaming bool `json:"streaming"`
}

// DetectionStateResponse carries the one-shot detection flag. The read
// that produced it already cleared the flag on the coordinator.
type DetectionStateResponse struct {
	Detection bool `json:"detection"`
}

// IlluminationResponse is the coordinator's day/night decision.
type IlluminationResponse struct {
	Illuminate bool      `json:"illuminate"`
	Sunrise    time.Time `json:"sunrise"`
	Sunset     time.Time `json:"sunset"`
}

// Window names a windowed-aggregate bucket.
type Window string

const (
	WindowHour  Window = "hour"
	WindowDay   Window = "day"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

// WindowDuration maps a window to its span.
func WindowDuration(w Window) (time.Duration, bool) {
	switch w {
	case WindowHour:
		return time.Hour, true
	case WindowDay:
		return 24 * time.Hour, true
	case WindowWeek:
		return 7 * 24 * time.Hour, true
	case WindowMonth:
		return 30 * 24 * time.Hour, true
	}
	return 0, false
}

// WindowCount splits detections in a window by classification result.
type WindowCount struct {
	True  int `json:"true"`
	False int `json:"false"`
}

// OutboxMessage is one pending detection-event publication.
type OutboxMessage struct {
	ID        string
	EventID   string
	CreatedAt time.Time
	Event     DetectionEvent
}
