// Package outbox drains pending detection events from the ledger to
// the Kafka feed. Publish-then-mark gives at-least-once delivery: a
// crash between the two replays the event on the next tick.
package outbox

import (
	"context"
	"log"
	"time"

	"github.com/penguard/penguard/internal/ledger"
	"github.com/penguard/penguard/internal/models"
)

const batchSize = 10

// Publisher is the downstream feed the dispatcher writes to.
type Publisher interface {
	SendDetectionEvent(event models.DetectionEvent) error
}

// Dispatcher moves outbox rows to the publisher on a fixed cadence.
type Dispatcher struct {
	ledger    *ledger.Ledger
	publisher Publisher
	interval  time.Duration
}

func New(l *ledger.Ledger, publisher Publisher, interval time.Duration) *Dispatcher {
	return &Dispatcher{ledger: l, publisher: publisher, interval: interval}
}

func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Outbox dispatcher stopped")
			return
		case <-ticker.C:
			d.drain(ctx)
		}
	}
}

func (d *Dispatcher) drain(ctx context.Context) {
	messages, err := d.ledger.PendingOutbox(ctx, batchSize)
	if err != nil {
		log.Printf("Error fetching outbox messages: %v", err)
		return
	}

	for _, msg := range messages {
		if err := d.publisher.SendDetectionEvent(msg.Event); err != nil {
			log.Printf("Failed to publish detection event %s: %v", msg.EventID, err)
			continue
		}

		if err := d.ledger.MarkOutboxProcessed(ctx, msg.ID); err != nil {
			log.Printf("Failed to mark outbox message %s as processed: %v", msg.ID, err)
		}
	}
}
