// Package notify turns the detection-event feed into best-effort push
// notifications. Delivery failures are logged and dropped; the ledger
// remains the system of record.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/penguard/penguard/internal/kafka"
	"github.com/penguard/penguard/internal/models"
)

type Notifier struct {
	sender *router.ServiceRouter
	send   func(text string)
}

// NewNotifier builds a sender for the configured service URLs
// (telegram://..., discord://..., etc). With no URLs the notifier is a
// no-op.
func NewNotifier(urls []string) (*Notifier, error) {
	n := &Notifier{}
	n.send = n.SendMessage
	if len(urls) == 0 {
		return n, nil
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, fmt.Errorf("create notification sender: %w", err)
	}
	sender.Timeout = 10 * time.Second
	sender.SetLogger(log.New(io.Discard, "", 0))
	n.sender = sender
	return n, nil
}

// SendMessage pushes a plain text message. Best-effort: errors are
// logged, never propagated.
func (n *Notifier) SendMessage(text string) {
	if n.sender == nil {
		return
	}
	for _, err := range n.sender.Send(text, &stypes.Params{}) {
		if err != nil {
			log.Printf("Notify: send failed: %v", err)
		}
	}
}

// Run consumes detection events and notifies on each confirmed one.
// Messages are marked consumed even when delivery fails; notifications
// are not worth replaying.
func (n *Notifier) Run(ctx context.Context, messages <-chan kafka.ConsumerMessage) {
	for {
		select {
		case <-ctx.Done():
			log.Println("Notifier: shutting down")
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}

			var event models.DetectionEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Printf("Notifier: invalid event payload: %v", err)
				continue
			}

			// The feed carries every classification; only confirmed
			// threats are worth an alert.
			if event.Result {
				n.send(FormatDetection(event))
			}

			if msg.Session != nil {
				msg.Session.MarkMessage(msg.Message, "")
			}
		}
	}
}

// FormatDetection renders the notification text for one event.
func FormatDetection(event models.DetectionEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Predator detected at %s", event.CapturedAt.Format("15:04:05 2006-01-02"))
	if len(event.Labels) > 0 {
		fmt.Fprintf(&b, " (%s)", strings.Join(event.Labels, ", "))
	}
	if event.PhotoLink != "" {
		fmt.Fprintf(&b, "\nPhoto: %s", event.PhotoLink)
	}
	return b.String()
}
