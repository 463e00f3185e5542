// Package ledger keeps the detection record of the system: one row per
// confirmed classification cycle, appended on detect and patched later
// with the recording's storage location. Delivery posture is
// at-least-once: appends are replay-safe by correlation ID, updates to
// a missing row are logged and non-fatal.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/penguard/penguard/internal/models"
)

// ErrNotFound means an update targeted a correlation ID with no row.
// The caller's detection record is intact; nothing was corrupted.
var ErrNotFound = errors.New("detection not found")

// Append writes a new detection row. A replay of the same event is a
// no-op conflict on the ID, so retried appends cannot double-write.
func (l *Ledger) Append(ctx context.Context, event *models.DetectionEvent) error {
	_, err := l.querier(ctx).ExecContext(ctx,
		`INSERT INTO detections (id, captured_at, result, labels, photo_link, deterrent_fired, video_link)
		 VALUES ($1, $2, $3, $4, $5, FALSE, '')
		 ON CONFLICT (id) DO NOTHING`,
		event.ID,
		event.CapturedAt.UTC().Format(models.TimestampLayout),
		event.Result,
		strings.Join(event.Labels, ","),
		event.PhotoLink,
	)
	if err != nil {
		return fmt.Errorf("append detection %s: %w", event.ID, err)
	}
	return nil
}

// UpdateRecording fills in the deterrent flag and video link for an
// existing row. Safe to retry: the last update's values win and no
// second row is ever created.
func (l *Ledger) UpdateRecording(ctx context.Context, id string, deterrentFired bool, videoLink string) error {
	res, err := l.querier(ctx).ExecContext(ctx,
		"UPDATE detections SET deterrent_fired = $1, video_link = $2 WHERE id = $3",
		deterrentFired,
		videoLink,
		id,
	)
	if err != nil {
		return fmt.Errorf("update detection %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update detection %s: %w", id, err)
	}
	if affected == 0 {
		log.Printf("Ledger: update for unknown detection %s, skipping", id)
		return ErrNotFound
	}

	return nil
}

// Get fetches one detection row by correlation ID.
func (l *Ledger) Get(ctx context.Context, id string) (*models.DetectionEvent, error) {
	rows, err := l.querier(ctx).QueryContext(ctx,
		"SELECT id, captured_at, result, labels, photo_link, deterrent_fired, video_link FROM detections WHERE id = $1",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("get detection %s: %w", id, err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	var event models.DetectionEvent
	var capturedAt, labels string
	if err := rows.Scan(&event.ID, &capturedAt, &event.Result, &labels, &event.PhotoLink, &event.DeterrentFired, &event.VideoLink); err != nil {
		return nil, fmt.Errorf("scan detection %s: %w", id, err)
	}
	if ts, err := time.Parse(models.TimestampLayout, capturedAt); err == nil {
		event.CapturedAt = ts
	}
	if labels != "" {
		event.Labels = strings.Split(labels, ",")
	}

	return &event, nil
}

// CountByWindow buckets detection rows by elapsed time against now,
// split by classification result. Rows whose stored timestamp does not
// parse are skipped, not fatal.
func (l *Ledger) CountByWindow(ctx context.Context, now time.Time, windows []models.Window) (map[models.Window]models.WindowCount, error) {
	rows, err := l.querier(ctx).QueryContext(ctx, "SELECT captured_at, result FROM detections")
	if err != nil {
		return nil, fmt.Errorf("scan detections: %w", err)
	}
	defer rows.Close()

	var scanned []timestampedResult
	for rows.Next() {
		var row timestampedResult
		if err := rows.Scan(&row.capturedAt, &row.result); err != nil {
			return nil, fmt.Errorf("scan detection row: %w", err)
		}
		scanned = append(scanned, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bucketByWindow(now, windows, scanned), nil
}

type timestampedResult struct {
	capturedAt string
	result     bool
}

func bucketByWindow(now time.Time, windows []models.Window, rows []timestampedResult) map[models.Window]models.WindowCount {
	counts := make(map[models.Window]models.WindowCount, len(windows))
	for _, w := range windows {
		counts[w] = models.WindowCount{}
	}

	for _, row := range rows {
		ts, err := time.Parse(models.TimestampLayout, row.capturedAt)
		if err != nil {
			log.Printf("Ledger: skipping row with unparseable timestamp %q", row.capturedAt)
			continue
		}

		elapsed := now.Sub(ts)
		if elapsed < 0 {
			continue
		}

		for _, w := range windows {
			span, ok := models.WindowDuration(w)
			if !ok || elapsed > span {
				continue
			}
			c := counts[w]
			if row.result {
				c.True++
			} else {
				c.False++
			}
			counts[w] = c
		}
	}

	return counts
}
