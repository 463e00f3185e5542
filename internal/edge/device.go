package edge

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"
)

// ErrHardware marks a capture or recording failure on the device
// itself. The current cycle is aborted; the hardware step is never
// retried here.
var ErrHardware = errors.New("capture hardware failure")

// CaptureDevice is the camera. StopRecording must always be called
// after a successful StartRecording so the device reverts to still
// mode, even when the cycle fails in between.
type CaptureDevice interface {
	CaptureStill(ctx context.Context) ([]byte, error)
	StartRecording(path string) error
	StopRecording() error
}

// MotionSensor delivers rising-edge motion events.
type MotionSensor interface {
	Events() <-chan time.Time
}

// Deterrent is the external scare device.
type Deterrent interface {
	Fire(ctx context.Context) error
}

// Illuminator drives the night lamp.
type Illuminator interface {
	Set(on bool)
}

// Display is the local status surface. It receives state names and
// short failure reasons, never raw errors.
type Display interface {
	ShowStatus(status string)
}

// LogDisplay writes status lines to the process log; the stand-in for
// the physical status display.
type LogDisplay struct{}

func (LogDisplay) ShowStatus(status string) {
	log.Printf("Display: %s", status)
}

// SimDevice is a software camera for deployments and tests without
// hardware: stills come from a fixed frame, recordings produce a
// placeholder clip file.
type SimDevice struct {
	mu        sync.Mutex
	frame     []byte
	recording string
	failStill bool
}

func NewSimDevice(frame []byte) *SimDevice {
	return &SimDevice{frame: frame}
}

// FailStills makes subsequent CaptureStill calls fail, for exercising
// the hardware-failure path.
func (d *SimDevice) FailStills(fail bool) {
	d.mu.Lock()
	d.failStill = fail
	d.mu.Unlock()
}

func (d *SimDevice) CaptureStill(_ context.Context) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failStill {
		return nil, fmt.Errorf("%w: still capture", ErrHardware)
	}
	out := make([]byte, len(d.frame))
	copy(out, d.frame)
	return out, nil
}

func (d *SimDevice) StartRecording(path string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recording != "" {
		return fmt.Errorf("%w: already recording", ErrHardware)
	}
	d.recording = path
	return nil
}

func (d *SimDevice) StopRecording() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.recording == "" {
		return fmt.Errorf("%w: not recording", ErrHardware)
	}
	path := d.recording
	d.recording = ""
	if err := os.WriteFile(path, []byte("simulated clip"), 0o644); err != nil {
		return fmt.Errorf("%w: %v", ErrHardware, err)
	}
	return nil
}

// SimSensor is a motion sensor triggered programmatically.
type SimSensor struct {
	events chan time.Time
}

func NewSimSensor() *SimSensor {
	return &SimSensor{events: make(chan time.Time, 8)}
}

func (s *SimSensor) Events() <-chan time.Time { return s.events }

// Trigger injects one rising edge; dropped when the machine is still
// draining earlier events.
func (s *SimSensor) Trigger() {
	select {
	case s.events <- time.Now():
	default:
	}
}

// SimDeterrent records firings.
type SimDeterrent struct {
	mu    sync.Mutex
	fired int
}

func (d *SimDeterrent) Fire(context.Context) error {
	d.mu.Lock()
	d.fired++
	d.mu.Unlock()
	log.Println("Deterrent triggered!")
	return nil
}

func (d *SimDeterrent) Fired() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fired
}

// SimIlluminator records the last lamp state.
type SimIlluminator struct {
	mu sync.Mutex
	on bool
}

func (l *SimIlluminator) Set(on bool) {
	l.mu.Lock()
	l.on = on
	l.mu.Unlock()
}

func (l *SimIlluminator) On() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.on
}
