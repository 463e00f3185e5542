package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penguard/penguard/internal/kafka"
	"github.com/penguard/penguard/internal/models"
)

func TestNewNotifierDisabled(t *testing.T) {
	n, err := NewNotifier(nil)
	require.NoError(t, err)
	// No URLs configured: sending is a silent no-op.
	n.SendMessage("ignored")
}

func TestNewNotifierBadURL(t *testing.T) {
	_, err := NewNotifier([]string{"not a url"})
	assert.Error(t, err)
}

func TestFormatDetection(t *testing.T) {
	event := models.DetectionEvent{
		ID:         "abc",
		CapturedAt: time.Date(2025, 4, 19, 22, 15, 3, 0, time.UTC),
		Result:     true,
		Labels:     []string{"Animal", "Leopard"},
		PhotoLink:  "http://blob/photos/abc.jpg",
	}

	text := FormatDetection(event)
	assert.Contains(t, text, "22:15:03")
	assert.Contains(t, text, "Animal, Leopard")
	assert.Contains(t, text, "http://blob/photos/abc.jpg")
}

func TestFormatDetectionMinimal(t *testing.T) {
	event := models.DetectionEvent{CapturedAt: time.Now()}
	text := FormatDetection(event)
	assert.NotContains(t, text, "Photo:")
}

func TestRunAlertsOnlyOnConfirmed(t *testing.T) {
	n, err := NewNotifier(nil)
	require.NoError(t, err)

	var sent []string
	n.send = func(text string) { sent = append(sent, text) }

	messages := make(chan kafka.ConsumerMessage, 2)
	for _, event := range []models.DetectionEvent{
		{ID: "no-threat", CapturedAt: time.Now(), Result: false, Labels: []string{"Rock"}},
		{ID: "threat", CapturedAt: time.Now(), Result: true, Labels: []string{"Leopard"}},
	} {
		payload, merr := json.Marshal(event)
		require.NoError(t, merr)
		messages <- kafka.ConsumerMessage{Value: payload}
	}
	close(messages)

	n.Run(context.Background(), messages)

	require.Len(t, sent, 1, "unconfirmed classifications must not alert")
	assert.Contains(t, sent[0], "Leopard")
}
