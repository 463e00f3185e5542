// Package vision wraps the external object-classification service with
// bounded retry and applies the configured detection taxonomy to its
// results.
package vision

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"time"

	"github.com/samber/lo"

	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/models"
)

// ErrExhausted means every classification attempt failed. Callers must
// treat this as "unknown", never as "no detection".
var ErrExhausted = errors.New("classification attempts exhausted")

type Client struct {
	url   string
	retry config.RetryPolicy
	httpc *http.Client

	sleep func(context.Context, time.Duration) error
}

func NewClient(endpoint string, retry config.RetryPolicy) *Client {
	return &Client{
		url:   endpoint,
		retry: retry,
		httpc: &http.Client{},
		sleep: sleepCtx,
	}
}

// Classify sends the image once per attempt, up to the configured
// attempt count, backing off between attempts. Each attempt runs under
// its own deadline so a hung classifier cannot stall the caller past
// the retry budget.
func (c *Client) Classify(ctx context.Context, image []byte) ([]models.Annotation, error) {
	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			log.Printf("Vision: attempt %d/%d after error: %v", attempt+1, c.retry.Attempts, lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = time.Duration(float64(delay) * c.retry.Factor)
		}

		annotations, err := c.classifyOnce(ctx, image)
		if err == nil {
			return annotations, nil
		}
		lastErr = err
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrExhausted, c.retry.Attempts, lastErr)
}

func (c *Client) classifyOnce(ctx context.Context, image []byte) ([]models.Annotation, error) {
	attemptCtx := ctx
	if c.retry.Timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, c.retry.Timeout)
		defer cancel()
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="capture.jpg"`)
	h.Set("Content-Type", "image/jpeg")

	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("create form part: %w", err)
	}
	if _, err := part.Write(image); err != nil {
		return nil, fmt.Errorf("write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close writer: %w", err)
	}

	req, err := http.NewRequestWithContext(attemptCtx, http.MethodPost, c.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status: %s, error: %s", resp.Status, body)
	}

	var annotations []models.Annotation
	if err := json.NewDecoder(resp.Body).Decode(&annotations); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return annotations, nil
}

// Evaluate applies the allow-list to the classifier output. matched is
// true when any annotation's label appears in the allow-list with a
// score at or above its threshold. Labels come back in response order.
func Evaluate(annotations []models.Annotation, allow []config.AllowEntry) (bool, []string) {
	thresholds := make(map[string]float64, len(allow))
	for _, entry := range allow {
		thresholds[entry.Label] = entry.MinScore
	}

	labels := lo.Map(annotations, func(a models.Annotation, _ int) string {
		return a.Label
	})

	matched := lo.SomeBy(annotations, func(a models.Annotation) bool {
		min, ok := thresholds[a.Label]
		return ok && a.Score >= min
	})

	return matched, labels
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
