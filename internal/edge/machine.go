// Package edge runs the device-side half of the system: the detection
// state machine, the streaming sub-loop and the illumination poller.
// The loops share nothing but the coordinator client; a long recording
// or upload never blocks streaming-flag detection, and vice versa.
package edge

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/penguard/penguard/internal/models"
)

// Coordinator is the coordination service as seen from the edge.
// *coordclient.Client implements it.
type Coordinator interface {
	GetAndClearDetection(ctx context.Context) (bool, error)
	StreamingState(ctx context.Context) (bool, error)
	SetStreamingState(ctx context.Context, value bool) error
	PushFrame(ctx context.Context, frame []byte) error
	Classify(ctx context.Context, image []byte) (*models.ClassifyResponse, error)
	SubmitRecording(ctx context.Context, id string, deterrentFired bool, video []byte) error
	Illumination(ctx context.Context) (*models.IlluminationResponse, error)
}

type State string

const (
	StateIdle       State = "idle"
	StateArmed      State = "armed"
	StateCapturing  State = "capturing"
	StateConfirming State = "confirming"
	StateDeterring  State = "deterring"
	StateRecording  State = "recording"
	StateUploading  State = "uploading"
	StateCooldown   State = "cooldown"
)

// MachineConfig carries the detection cycle timings.
type MachineConfig struct {
	RetriggerGap   time.Duration
	Cooldown       time.Duration
	RecordDuration time.Duration
	PollInterval   time.Duration
	TempDir        string
}

// Machine is the detection state machine. Per-cycle failures are
// isolated: the machine logs, shows a short reason, and returns to
// Armed; it never halts on a single failed cycle.
type Machine struct {
	coord     Coordinator
	device    CaptureDevice
	sensor    MotionSensor
	deterrent Deterrent
	display   Display
	transcode TranscodeFunc
	cfg       MachineConfig

	mu          sync.Mutex
	state       State
	lastTrigger time.Time

	armCh chan struct{}
	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewMachine(coord Coordinator, device CaptureDevice, sensor MotionSensor, deterrent Deterrent, display Display, transcode TranscodeFunc, cfg MachineConfig) *Machine {
	if display == nil {
		display = LogDisplay{}
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &Machine{
		coord:     coord,
		device:    device,
		sensor:    sensor,
		deterrent: deterrent,
		display:   display,
		transcode: transcode,
		cfg:       cfg,
		state:     StateIdle,
		armCh:     make(chan struct{}, 1),
		now:       time.Now,
		sleep:     sleepMachine,
	}
}

// Arm moves the machine from Idle to Armed. Safe to call more than
// once; extra signals are dropped.
func (m *Machine) Arm() {
	select {
	case m.armCh <- struct{}{}:
	default:
	}
}

// State returns the current state name.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Machine) setState(s State, reason string) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()

	status := string(s)
	if reason != "" {
		status = fmt.Sprintf("%s: %s", s, reason)
	}
	m.display.ShowStatus(status)
}

// Run drives the machine until the context ends. It first waits for
// the arm signal, then serves motion events and the remote one-shot
// detection flag.
func (m *Machine) Run(ctx context.Context) {
	m.setState(StateIdle, "waiting for arm")

	select {
	case <-ctx.Done():
		return
	case <-m.armCh:
	}
	m.setState(StateArmed, "")
	log.Println("Machine: armed, monitoring")

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Machine: shutting down")
			return
		case t := <-m.sensor.Events():
			if gap := t.Sub(m.lastTrigger); gap < m.cfg.RetriggerGap {
				log.Printf("Machine: re-trigger within %v, ignoring", gap.Round(time.Millisecond))
				continue
			}
			m.lastTrigger = t
			m.runCycle(ctx)
		case <-ticker.C:
			m.pollRemoteDetection(ctx)
		}
	}
}

// pollRemoteDetection consumes the coordinator's one-shot flag (a
// viewer's manual deter command). A transport error is "unknown" and
// only delays the deterrent by one poll interval; it is never treated
// as "no signal".
func (m *Machine) pollRemoteDetection(ctx context.Context) {
	triggered, err := m.coord.GetAndClearDetection(ctx)
	if err != nil {
		log.Printf("Machine: detection state unknown: %v", err)
		return
	}
	if triggered {
		log.Println("Machine: remote deterrent request")
		if err := m.deterrent.Fire(ctx); err != nil {
			log.Printf("Machine: deterrent failed: %v", err)
		}
	}
}

// runCycle executes one capture→confirm→record→upload pass. Every
// early return falls through to Armed.
func (m *Machine) runCycle(ctx context.Context) {
	defer m.setState(StateArmed, "")

	m.setState(StateCapturing, "")
	image, err := m.device.CaptureStill(ctx)
	if err != nil {
		log.Printf("Machine: capture failed: %v", err)
		m.display.ShowStatus("capture failed")
		return
	}

	m.setState(StateConfirming, "")
	resp, err := m.coord.Classify(ctx, image)
	if err != nil {
		// Classifier unreachable: the event never enters the ledger.
		log.Printf("Machine: classification unavailable: %v", err)
		m.display.ShowStatus("classify failed")
		return
	}

	if !resp.Matched {
		log.Printf("Machine: no threat (%v), cooling down", resp.Labels)
		m.setState(StateCooldown, "")
		if err := m.sleep(ctx, m.cfg.Cooldown); err != nil {
			return
		}
		return
	}

	log.Printf("Machine: threat confirmed %s (%v)", resp.ID, resp.Labels)

	m.setState(StateDeterring, "")
	deterrentFired := true
	if err := m.deterrent.Fire(ctx); err != nil {
		log.Printf("Machine: deterrent failed: %v", err)
		deterrentFired = false
	}

	m.setState(StateRecording, "")
	video, err := m.recordClip(ctx, resp.ID)
	if err != nil {
		log.Printf("Machine: recording failed for %s: %v", resp.ID, err)
		m.display.ShowStatus("recording failed")
		return
	}

	m.setState(StateUploading, "")
	if err := m.coord.SubmitRecording(ctx, resp.ID, deterrentFired, video); err != nil {
		log.Printf("Machine: upload failed for %s: %v", resp.ID, err)
		m.display.ShowStatus("upload failed")
		return
	}

	m.display.ShowStatus("upload complete")
}

// recordClip records a fixed-duration clip, reverts the device to
// still mode, transcodes and returns the clip bytes. Temp files are
// removed on the way out.
func (m *Machine) recordClip(ctx context.Context, id string) ([]byte, error) {
	rawPath := filepath.Join(m.cfg.TempDir, id+".h264")
	defer os.Remove(rawPath)

	if err := m.device.StartRecording(rawPath); err != nil {
		return nil, err
	}
	recErr := m.sleep(ctx, m.cfg.RecordDuration)
	stopErr := m.device.StopRecording()
	if recErr != nil {
		return nil, recErr
	}
	if stopErr != nil {
		return nil, stopErr
	}

	mp4Path, err := m.transcode(ctx, rawPath)
	if err != nil {
		return nil, err
	}
	if mp4Path != rawPath {
		defer os.Remove(mp4Path)
	}

	video, err := os.ReadFile(mp4Path)
	if err != nil {
		return nil, fmt.Errorf("read transcoded clip: %w", err)
	}
	return video, nil
}

func sleepMachine(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
