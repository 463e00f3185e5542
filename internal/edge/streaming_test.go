package edge

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamSessionExpired(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sess := StreamSession{StartedAt: start, Active: true}

	assert.False(t, sess.Expired(start.Add(39*time.Second), 40*time.Second))
	assert.False(t, sess.Expired(start.Add(40*time.Second), 40*time.Second))
	assert.True(t, sess.Expired(start.Add(41*time.Second), 40*time.Second))
}

func TestStreamLoopPushesWhileFlagSet(t *testing.T) {
	coord := newFakeCoord()
	coord.streaming = true

	loop := NewStreamLoop(coord, NewSimDevice([]byte("frame")), 5*time.Millisecond, time.Millisecond, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.frames >= 3
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStreamLoopEndsOnRemoteClear(t *testing.T) {
	coord := newFakeCoord()
	coord.streaming = true

	loop := NewStreamLoop(coord, NewSimDevice([]byte("frame")), 5*time.Millisecond, time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.frames >= 1
	}, 2*time.Second, 5*time.Millisecond)

	coord.mu.Lock()
	coord.streaming = false
	framesAtClear := coord.frames
	coord.mu.Unlock()

	time.Sleep(50 * time.Millisecond)
	coord.mu.Lock()
	framesAfter := coord.frames
	clears := coord.streamClears
	coord.mu.Unlock()

	assert.LessOrEqual(t, framesAfter, framesAtClear+2, "session must stop soon after the flag clears")
	assert.Equal(t, 0, clears, "remote clear needs no edge-side force-clear")
}

func TestStreamLoopForceClearsAtCeiling(t *testing.T) {
	coord := newFakeCoord()
	coord.streaming = true

	loop := NewStreamLoop(coord, NewSimDevice([]byte("frame")), 5*time.Millisecond, time.Millisecond, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.streamClears >= 1 && !coord.streaming
	}, 2*time.Second, 5*time.Millisecond, "edge must clear a stuck flag when the ceiling elapses")
}

func TestStreamLoopSurvivesCaptureFailure(t *testing.T) {
	coord := newFakeCoord()
	coord.streaming = true
	device := NewSimDevice([]byte("frame"))
	device.FailStills(true)

	loop := NewStreamLoop(coord, device, 5*time.Millisecond, time.Millisecond, time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	time.Sleep(30 * time.Millisecond)
	device.FailStills(false)

	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.frames >= 1
	}, 2*time.Second, 5*time.Millisecond, "loop keeps polling and resumes once capture recovers")
}

func TestStreamLoopCeilingSurvivesCaptureFailures(t *testing.T) {
	coord := newFakeCoord()
	coord.streaming = true
	device := NewSimDevice([]byte("frame"))
	device.FailStills(true)

	loop := NewStreamLoop(coord, device, 2*time.Millisecond, time.Millisecond, 20*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	// Every capture fails, so the session keeps being re-entered; the
	// ceiling clock must span those re-entries and still clear the flag.
	require.Eventually(t, func() bool {
		coord.mu.Lock()
		defer coord.mu.Unlock()
		return coord.streamClears >= 1 && !coord.streaming
	}, 2*time.Second, 5*time.Millisecond)
}

func TestIlluminationLoopDrivesLamp(t *testing.T) {
	coord := newFakeCoord()
	coord.illuminate = true
	lamp := &SimIlluminator{}

	loop := NewIlluminationLoop(coord, lamp, 5*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	require.Eventually(t, func() bool { return lamp.On() }, 2*time.Second, 5*time.Millisecond)

	coord.mu.Lock()
	coord.illuminate = false
	coord.mu.Unlock()

	require.Eventually(t, func() bool { return !lamp.On() }, 2*time.Second, 5*time.Millisecond)
}
