// Package statestore holds the coordination flags shared between the
// edge node and viewers: the one-shot detection flag, the streaming
// level flag, and the last viewer interaction time.
package statestore

import (
	"sync"
	"time"
)

// Store is the coordination flag store. Implementations must be safe
// under concurrent callers; GetAndClearDetection is a single atomic
// read-modify-write so two simultaneous readers can never both observe
// true for one set.
type Store interface {
	GetAndClearDetection() bool
	SetDetection(v bool)
	StreamingState() bool
	SetStreamingState(v bool)
	TouchInteraction() time.Time
	Interaction() (at time.Time, idle time.Duration, ok bool)
}

// Memory is the in-process store owned by the coordinator.
type Memory struct {
	mu          sync.Mutex
	detection   bool
	streaming   bool
	interaction time.Time

	now func() time.Time
}

// NewMemory returns an empty store: no detection pending, not
// streaming, no interaction recorded.
func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

// GetAndClearDetection reports whether a detection signal was pending
// and resets it in the same critical section.
func (m *Memory) GetAndClearDetection() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v := m.detection
	m.detection = false
	return v
}

func (m *Memory) SetDetection(v bool) {
	m.mu.Lock()
	m.detection = v
	m.mu.Unlock()
}

func (m *Memory) StreamingState() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streaming
}

func (m *Memory) SetStreamingState(v bool) {
	m.mu.Lock()
	m.streaming = v
	m.mu.Unlock()
}

// TouchInteraction records a viewer poll and returns the recorded time.
func (m *Memory) TouchInteraction() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.interaction = m.now()
	return m.interaction
}

// Interaction returns the last viewer poll time and how long ago it
// was. ok is false when no viewer has polled yet.
func (m *Memory) Interaction() (time.Time, time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.interaction.IsZero() {
		return time.Time{}, 0, false
	}
	return m.interaction, m.now().Sub(m.interaction), true
}
