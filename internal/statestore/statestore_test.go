package statestore

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetAndClearDetection(t *testing.T) {
	s := NewMemory()

	assert.False(t, s.GetAndClearDetection())

	s.SetDetection(true)
	assert.True(t, s.GetAndClearDetection())
	assert.False(t, s.GetAndClearDetection(), "flag must be cleared by the read that observed it")
}

func TestGetAndClearDetectionConcurrent(t *testing.T) {
	// With exactly one true set, exactly one of many simultaneous
	// readers may observe it.
	for i := 0; i < 100; i++ {
		s := NewMemory()
		s.SetDetection(true)

		var observed atomic.Int32
		var wg sync.WaitGroup
		for j := 0; j < 8; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if s.GetAndClearDetection() {
					observed.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), observed.Load())
	}
}

func TestStreamingState(t *testing.T) {
	s := NewMemory()

	assert.False(t, s.StreamingState())
	s.SetStreamingState(true)
	assert.True(t, s.StreamingState())
	// Level flag, not one-shot: a second read still observes true.
	assert.True(t, s.StreamingState())
	s.SetStreamingState(false)
	assert.False(t, s.StreamingState())
}

func TestInteraction(t *testing.T) {
	s := NewMemory()

	_, _, ok := s.Interaction()
	assert.False(t, ok, "no interaction recorded yet")

	base := time.Date(2025, 4, 19, 12, 0, 0, 0, time.UTC)
	clock := base
	s.now = func() time.Time { return clock }

	touched := s.TouchInteraction()
	assert.Equal(t, base, touched)

	clock = base.Add(42 * time.Second)
	at, idle, ok := s.Interaction()
	require.True(t, ok)
	assert.Equal(t, base, at)
	assert.Equal(t, 42*time.Second, idle)
}
