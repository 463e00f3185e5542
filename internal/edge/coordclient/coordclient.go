// Package coordclient is the edge node's HTTP client to the
// coordination service. Flag reads that fail on the wire come back as
// errors, never as a silent false: the caller must be able to tell
// "no signal" from "unknown".
package coordclient

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
	"strconv"
	"time"

	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/models"
)

// ErrUnavailable means the coordinator could not be reached.
var ErrUnavailable = errors.New("coordinator unavailable")

type Client struct {
	baseURL string
	retry   config.RetryPolicy
	httpc   *http.Client

	sleep func(context.Context, time.Duration) error
}

func New(baseURL string, retry config.RetryPolicy) *Client {
	return &Client{
		baseURL: baseURL,
		retry:   retry,
		httpc:   &http.Client{},
		sleep:   sleepCtx,
	}
}

// GetAndClearDetection polls the one-shot detection flag. The
// coordinator clears it as part of this read.
func (c *Client) GetAndClearDetection(ctx context.Context) (bool, error) {
	var resp models.DetectionStateResponse
	if err := c.request(ctx, http.MethodGet, "/detection/state", nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Detection, nil
}

// StreamingState reads the streaming level flag.
func (c *Client) StreamingState(ctx context.Context) (bool, error) {
	var resp models.StreamingStateResponse
	if err := c.request(ctx, http.MethodGet, "/stream/state", nil, "", &resp); err != nil {
		return false, err
	}
	return resp.Streaming, nil
}

// SetStreamingState sets or clears the streaming flag; the edge calls
// this with false to force-clear a stuck session.
func (c *Client) SetStreamingState(ctx context.Context, value bool) error {
	path := "/stream/state?value=" + strconv.FormatBool(value)
	return c.request(ctx, http.MethodPost, path, nil, "", nil)
}

// PushFrame uploads the latest live-view still. Single attempt: a lost
// frame is immediately superseded by the next one.
func (c *Client) PushFrame(ctx context.Context, frame []byte) error {
	body, contentType := multipartForm(frame, "frame.jpg", "image/jpeg", nil)
	return c.request(ctx, http.MethodPost, "/stream/frame", body, contentType, nil)
}

// Classify submits a still capture for confirmation. The coordinator
// owns the classification retry budget; this call is one attempt
// against the coordinator itself.
func (c *Client) Classify(ctx context.Context, image []byte) (*models.ClassifyResponse, error) {
	body, contentType := multipartForm(image, "capture.jpg", "image/jpeg", nil)

	var resp models.ClassifyResponse
	if err := c.request(ctx, http.MethodPost, "/classify", body, contentType, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SubmitRecording uploads the recorded clip for a prior detection,
// retrying on transient failure. The ledger update is idempotent by
// correlation ID, so replays are safe.
func (c *Client) SubmitRecording(ctx context.Context, id string, deterrentFired bool, video []byte) error {
	var lastErr error
	delay := c.retry.BaseDelay

	for attempt := 0; attempt < c.retry.Attempts; attempt++ {
		if attempt > 0 {
			log.Printf("Coordclient: recording upload attempt %d/%d after error: %v", attempt+1, c.retry.Attempts, lastErr)
			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay = time.Duration(float64(delay) * c.retry.Factor)
		}

		body, contentType := multipartForm(video, "clip.mp4", "video/mp4", map[string]string{
			"id":        id,
			"deterrent": strconv.FormatBool(deterrentFired),
		})
		if lastErr = c.request(ctx, http.MethodPost, "/recordings", body, contentType, nil); lastErr == nil {
			return nil
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

// Illumination fetches the coordinator's day/night decision.
func (c *Client) Illumination(ctx context.Context) (*models.IlluminationResponse, error) {
	var resp models.IlluminationResponse
	if err := c.request(ctx, http.MethodGet, "/illumination", nil, "", &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// request performs one HTTP call under the configured per-request
// deadline; a hung coordinator cannot stall the caller indefinitely.
func (c *Client) request(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if c.retry.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.retry.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("bad status: %s, error: %s", resp.Status, respBody)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func multipartForm(data []byte, filename, contentType string, fields map[string]string) (*bytes.Buffer, string) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, filename))
	h.Set("Content-Type", contentType)

	part, _ := writer.CreatePart(h)
	part.Write(data)
	for k, v := range fields {
		writer.WriteField(k, v)
	}
	writer.Close()

	return &buf, writer.FormDataContentType()
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
