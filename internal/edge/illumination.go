package edge

import (
	"context"
	"log"
	"time"
)

// IlluminationLoop asks the coordinator for the day/night decision on
// a fixed interval and drives the lamp accordingly. The interval is
// configurable to bound lookup load; the decision does not need to be
// re-evaluated on every machine iteration.
type IlluminationLoop struct {
	coord    Coordinator
	lamp     Illuminator
	interval time.Duration
}

func NewIlluminationLoop(coord Coordinator, lamp Illuminator, interval time.Duration) *IlluminationLoop {
	return &IlluminationLoop{coord: coord, lamp: lamp, interval: interval}
}

func (l *IlluminationLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Println("IlluminationLoop: shutting down")
			return
		case <-ticker.C:
			l.poll(ctx)
		}
	}
}

func (l *IlluminationLoop) poll(ctx context.Context) {
	resp, err := l.coord.Illumination(ctx)
	if err != nil {
		log.Printf("IlluminationLoop: decision unavailable: %v", err)
		return
	}
	l.lamp.Set(resp.Illuminate)
}
