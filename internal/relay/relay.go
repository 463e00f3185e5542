// Package relay distributes the latest camera frame to live viewers.
//
// Frames are never queued: a single slot holds the most recent frame
// and every push overwrites it. A viewer that falls behind only ever
// sees the newest frame. Frame loss under backpressure is policy, not
// a bug.
package relay

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned to viewers once the relay has shut down.
var ErrClosed = errors.New("relay closed")

// Relay is a single-slot latest-frame buffer with broadcast wake-up.
// Safe for one or more producers and any number of viewers.
type Relay struct {
	mu      sync.Mutex
	frame   []byte
	seq     uint64
	arrived chan struct{}
	closed  bool
}

func New() *Relay {
	return &Relay{arrived: make(chan struct{})}
}

// Push overwrites the buffered frame and wakes every waiting viewer.
// Non-blocking regardless of viewer count. The byte slice is copied so
// callers may reuse their buffer.
func (r *Relay) Push(frame []byte) {
	buf := make([]byte, len(frame))
	copy(buf, frame)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.frame = buf
	r.seq++
	close(r.arrived)
	r.arrived = make(chan struct{})
	r.mu.Unlock()
}

// Close wakes all viewers with ErrClosed and drops subsequent pushes.
func (r *Relay) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.arrived)
	}
	r.mu.Unlock()
}

// Viewer is one consumer's cursor into the relay. Each viewer wakes on
// its own cadence and observes the same latest frame.
type Viewer struct {
	relay    *Relay
	lastSeen uint64
}

// Subscribe attaches a new viewer. The viewer's first Next blocks until
// a frame arrives after subscription time.
func (r *Relay) Subscribe() *Viewer {
	r.mu.Lock()
	defer r.mu.Unlock()
	return &Viewer{relay: r, lastSeen: r.seq}
}

// Next blocks until a frame newer than the last one this viewer
// observed is available, then returns it. Intermediate frames
// overwritten between calls are skipped.
func (v *Viewer) Next(ctx context.Context) ([]byte, error) {
	r := v.relay
	for {
		r.mu.Lock()
		if r.seq > v.lastSeen {
			v.lastSeen = r.seq
			frame := r.frame
			r.mu.Unlock()
			return frame, nil
		}
		if r.closed {
			r.mu.Unlock()
			return nil, ErrClosed
		}
		arrived := r.arrived
		r.mu.Unlock()

		select {
		case <-arrived:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
