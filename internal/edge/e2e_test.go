package edge_test

import (
	"context"
	"errors"
	"fmt"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penguard/penguard/internal/api"
	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/edge"
	"github.com/penguard/penguard/internal/edge/coordclient"
	"github.com/penguard/penguard/internal/ledger"
	"github.com/penguard/penguard/internal/models"
	"github.com/penguard/penguard/internal/relay"
	"github.com/penguard/penguard/internal/statestore"
	"github.com/penguard/penguard/internal/suncalc"
)

// memLedger keeps detection rows in a map, mirroring the append-once
// and patch-by-id behavior of the SQL ledger.
type memLedger struct {
	mu      sync.Mutex
	rows    map[string]*models.DetectionEvent
	appends int
}

func newMemLedger() *memLedger {
	return &memLedger{rows: make(map[string]*models.DetectionEvent)}
}

func (l *memLedger) AppendWithOutbox(_ context.Context, event *models.DetectionEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.rows[event.ID]; ok {
		return nil
	}
	cp := *event
	l.rows[event.ID] = &cp
	l.appends++
	return nil
}

func (l *memLedger) UpdateRecording(_ context.Context, id string, deterrentFired bool, videoLink string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return ledger.ErrNotFound
	}
	row.DeterrentFired = deterrentFired
	row.VideoLink = videoLink
	return nil
}

func (l *memLedger) Get(_ context.Context, id string) (*models.DetectionEvent, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *row
	return &cp, nil
}

func (l *memLedger) CountByWindow(context.Context, time.Time, []models.Window) (map[models.Window]models.WindowCount, error) {
	return map[models.Window]models.WindowCount{}, nil
}

func (l *memLedger) row(id string) (models.DetectionEvent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	row, ok := l.rows[id]
	if !ok {
		return models.DetectionEvent{}, false
	}
	return *row, true
}

func (l *memLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}

func (l *memLedger) appendCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appends
}

// memBlob can be told to refuse the next N uploads to a given bucket.
type memBlob struct {
	mu         sync.Mutex
	failBucket string
	failNext   int
}

func (b *memBlob) Upload(_ context.Context, bucket, name string, _ []byte, _ string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failNext > 0 && bucket == b.failBucket {
		b.failNext--
		return "", errors.New("store unavailable")
	}
	return fmt.Sprintf("mem://%s/%s", bucket, name), nil
}

type leopardClassifier struct{}

func (leopardClassifier) Classify(context.Context, []byte) ([]models.Annotation, error) {
	return []models.Annotation{{Label: "Leopard", Score: 0.92}}, nil
}

type capturedID struct {
	mu sync.Mutex
	id string
}

func (c *capturedID) set(id string) {
	c.mu.Lock()
	c.id = id
	c.mu.Unlock()
}

func (c *capturedID) get() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.id
}

// idCapturingCoord forwards everything to the real HTTP client and
// remembers the correlation ID the coordinator minted.
type idCapturingCoord struct {
	*coordclient.Client
	captured *capturedID
}

func (c *idCapturingCoord) Classify(ctx context.Context, image []byte) (*models.ClassifyResponse, error) {
	resp, err := c.Client.Classify(ctx, image)
	if err == nil {
		c.captured.set(resp.ID)
	}
	return resp, err
}

func startCoordinator(t *testing.T, store *memLedger, blob *memBlob) *httptest.Server {
	t.Helper()
	h := api.NewHandlers(
		statestore.NewMemory(),
		store,
		blob,
		leopardClassifier{},
		relay.New(),
		suncalc.New(-34.36, 18.47),
		config.Default(),
		nil,
	)
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv
}

func startEdge(t *testing.T, srv *httptest.Server, captured *capturedID) (*edge.SimSensor, *edge.SimDeterrent, context.CancelFunc) {
	t.Helper()
	client := coordclient.New(srv.URL, config.RetryPolicy{
		Attempts:  3,
		BaseDelay: time.Millisecond,
		Factor:    2,
		Timeout:   time.Second,
	})
	coord := &idCapturingCoord{Client: client, captured: captured}

	sensor := edge.NewSimSensor()
	det := &edge.SimDeterrent{}
	m := edge.NewMachine(coord, edge.NewSimDevice([]byte("jpeg")), sensor, det, nil, edge.CopyTranscode, edge.MachineConfig{
		RetriggerGap:   100 * time.Millisecond,
		Cooldown:       5 * time.Millisecond,
		RecordDuration: 5 * time.Millisecond,
		PollInterval:   10 * time.Millisecond,
		TempDir:        t.TempDir(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	go m.Run(ctx)
	m.Arm()
	return sensor, det, cancel
}

func TestMotionToLedgerRoundTrip(t *testing.T) {
	store := newMemLedger()
	srv := startCoordinator(t, store, &memBlob{})
	captured := &capturedID{}
	sensor, det, cancel := startEdge(t, srv, captured)
	defer cancel()

	sensor.Trigger()

	require.Eventually(t, func() bool {
		id := captured.get()
		if id == "" {
			return false
		}
		row, ok := store.row(id)
		return ok && row.VideoLink != ""
	}, 5*time.Second, 10*time.Millisecond, "confirmed detection must end with a patched ledger row")

	row, _ := store.row(captured.get())
	assert.True(t, row.Result)
	assert.True(t, row.DeterrentFired)
	assert.Contains(t, row.Labels, "Leopard")
	assert.NotEmpty(t, row.PhotoLink)
	assert.Equal(t, 1, store.size(), "exactly one row per detection")
	assert.Equal(t, 1, det.Fired())
}

func TestFlakyUploadStillOneRow(t *testing.T) {
	store := newMemLedger()
	// The detection row is written at classification time; the first
	// video upload is refused and the client retries.
	blob := &memBlob{failBucket: "videos", failNext: 1}
	srv := startCoordinator(t, store, blob)
	captured := &capturedID{}
	sensor, _, cancel := startEdge(t, srv, captured)
	defer cancel()

	sensor.Trigger()

	require.Eventually(t, func() bool {
		id := captured.get()
		if id == "" {
			return false
		}
		row, ok := store.row(id)
		return ok && row.VideoLink != ""
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, store.size())
	assert.Equal(t, 1, store.appendCount())
}
