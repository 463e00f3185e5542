// Package watchdog guards against a streaming flag left set by a
// viewer that went away. The edge has its own session ceiling; this is
// the coordinator-side half of the same self-healing.
package watchdog

import (
	"context"
	"log"
	"time"

	"github.com/penguard/penguard/internal/statestore"
)

type Watchdog struct {
	store    statestore.Store
	idleMax  time.Duration
	interval time.Duration
}

// New builds a watchdog that clears the streaming flag once no viewer
// has polled for idleMax.
func New(store statestore.Store, idleMax, interval time.Duration) *Watchdog {
	return &Watchdog{store: store, idleMax: idleMax, interval: interval}
}

func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watchdog stopped")
			return
		case <-ticker.C:
			w.check()
		}
	}
}

func (w *Watchdog) check() {
	if !w.store.StreamingState() {
		return
	}

	_, idle, ok := w.store.Interaction()
	if !ok || idle > w.idleMax {
		log.Printf("Watchdog: no viewer activity for %v, clearing streaming flag", w.idleMax)
		w.store.SetStreamingState(false)
	}
}
