package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/penguard/penguard/internal/models"
)

// AppendWithOutbox writes the detection row and a pending outbox entry
// in one transaction, so a confirmed detection is never recorded
// without an eventual event publication (and vice versa).
func (l *Ledger) AppendWithOutbox(ctx context.Context, event *models.DetectionEvent) error {
	return l.InTx(ctx, func(ctx context.Context) error {
		if err := l.Append(ctx, event); err != nil {
			return err
		}
		return l.addToOutbox(ctx, event)
	})
}

func (l *Ledger) addToOutbox(ctx context.Context, event *models.DetectionEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal outbox payload: %w", err)
	}

	_, err = l.querier(ctx).ExecContext(ctx,
		"INSERT INTO outbox (id, event_id, payload, created_at) VALUES ($1, $2, $3, $4)",
		uuid.New().String(),
		event.ID,
		string(payload),
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("add to outbox: %w", err)
	}
	return nil
}

// PendingOutbox retrieves unprocessed outbox messages, oldest first.
func (l *Ledger) PendingOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	rows, err := l.querier(ctx).QueryContext(ctx, `
		SELECT id, event_id, payload, created_at
		FROM outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []models.OutboxMessage
	for rows.Next() {
		var m models.OutboxMessage
		var payload string
		if err := rows.Scan(&m.ID, &m.EventID, &payload, &m.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(payload), &m.Event); err != nil {
			return nil, fmt.Errorf("unmarshal outbox payload %s: %w", m.ID, err)
		}
		messages = append(messages, m)
	}

	return messages, rows.Err()
}

// MarkOutboxProcessed marks an outbox message as published.
func (l *Ledger) MarkOutboxProcessed(ctx context.Context, id string) error {
	_, err := l.querier(ctx).ExecContext(ctx,
		"UPDATE outbox SET processed_at = $1 WHERE id = $2",
		time.Now().UTC(),
		id,
	)
	return err
}
