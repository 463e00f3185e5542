package edge

import (
	"context"
	"log"
	"time"
)

// StreamSession tracks one live-view session on the edge.
type StreamSession struct {
	StartedAt time.Time
	Active    bool
}

// Expired reports whether the session has hit the wall-clock ceiling.
// The ceiling is enforced regardless of the remote flag so the edge
// never streams indefinitely on a stuck flag.
func (s StreamSession) Expired(now time.Time, ceiling time.Duration) bool {
	return now.Sub(s.StartedAt) > ceiling
}

// StreamLoop polls the streaming flag and, while it is set, pushes
// still frames to the coordinator. Independent of the detection state
// machine.
type StreamLoop struct {
	coord  Coordinator
	device CaptureDevice

	PollInterval  time.Duration
	FrameInterval time.Duration
	Ceiling       time.Duration

	// current survives transient session exits (a failed capture or
	// push) so re-entering does not restart the ceiling clock.
	current *StreamSession

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func NewStreamLoop(coord Coordinator, device CaptureDevice, pollInterval, frameInterval, ceiling time.Duration) *StreamLoop {
	return &StreamLoop{
		coord:         coord,
		device:        device,
		PollInterval:  pollInterval,
		FrameInterval: frameInterval,
		Ceiling:       ceiling,
		now:           time.Now,
		sleep:         sleepMachine,
	}
}

func (s *StreamLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("StreamLoop: shutting down")
			return
		case <-ticker.C:
			streaming, err := s.coord.StreamingState(ctx)
			if err != nil {
				log.Printf("StreamLoop: streaming state unknown: %v", err)
				continue
			}
			if !streaming {
				s.current = nil
				continue
			}
			if s.current == nil {
				s.current = &StreamSession{StartedAt: s.now(), Active: true}
				log.Println("StreamLoop: session started")
			}
			s.session(ctx)
		}
	}
}

// session pushes frames until the remote flag clears or the ceiling
// elapses. On ceiling expiry the edge force-clears the remote flag
// itself, healing a stuck or forgotten flag. A transient capture or
// wire failure returns without ending the session; the outer loop
// re-enters it under the same ceiling.
func (s *StreamLoop) session(ctx context.Context) {
	sess := s.current

	for sess.Active {
		if ctx.Err() != nil {
			return
		}

		if sess.Expired(s.now(), s.Ceiling) {
			log.Printf("StreamLoop: session ceiling %v reached, clearing remote flag", s.Ceiling)
			if err := s.coord.SetStreamingState(ctx, false); err != nil {
				log.Printf("StreamLoop: failed to clear streaming flag: %v", err)
			}
			s.current = nil
			return
		}

		frame, err := s.device.CaptureStill(ctx)
		if err != nil {
			log.Printf("StreamLoop: capture failed: %v", err)
			return
		}
		if err := s.coord.PushFrame(ctx, frame); err != nil {
			log.Printf("StreamLoop: push failed: %v", err)
		}

		if err := s.sleep(ctx, s.FrameInterval); err != nil {
			return
		}

		streaming, err := s.coord.StreamingState(ctx)
		if err != nil {
			// Unknown flag state: keep the session; the ceiling bounds it.
			log.Printf("StreamLoop: streaming state unknown: %v", err)
			continue
		}
		sess.Active = streaming
	}

	s.current = nil
	log.Println("StreamLoop: session ended by remote flag")
}
