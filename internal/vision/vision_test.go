package vision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/models"
)

func testPolicy(attempts int) config.RetryPolicy {
	return config.RetryPolicy{
		Attempts:  attempts,
		BaseDelay: time.Millisecond,
		Factor:    2,
		Timeout:   time.Second,
	}
}

func TestClassifySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(10<<20))
		_, _, err := r.FormFile("file")
		require.NoError(t, err)
		json.NewEncoder(w).Encode([]models.Annotation{
			{Label: "Leopard", Score: 0.82},
			{Label: "Rock", Score: 0.4},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testPolicy(3))
	annotations, err := c.Classify(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	require.Len(t, annotations, 2)
	assert.Equal(t, "Leopard", annotations[0].Label)
}

func TestClassifyExhaustion(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testPolicy(3))
	_, err := c.Classify(context.Background(), []byte("jpeg"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExhausted, "exhaustion must be a terminal error, not a default no-detection")
	assert.Equal(t, 3, calls)
}

func TestClassifyRecoversMidRetry(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "flaky", http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode([]models.Annotation{{Label: "Animal", Score: 0.9}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, testPolicy(3))
	annotations, err := c.Classify(context.Background(), []byte("jpeg"))
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, "Animal", annotations[0].Label)
}

func TestClassifyRespectsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, config.RetryPolicy{
		Attempts:  5,
		BaseDelay: time.Hour,
		Factor:    2,
		Timeout:   time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Classify(ctx, []byte("jpeg"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestEvaluate(t *testing.T) {
	allow := []config.AllowEntry{
		{Label: "Animal", MinScore: 0.3},
		{Label: "Bear", MinScore: 0.3},
		{Label: "Leopard", MinScore: 0.3},
	}

	tests := []struct {
		name        string
		annotations []models.Annotation
		matched     bool
		labels      []string
	}{
		{
			name:        "match above threshold",
			annotations: []models.Annotation{{Label: "Leopard", Score: 0.82}},
			matched:     true,
			labels:      []string{"Leopard"},
		},
		{
			name:        "allow-listed but below threshold",
			annotations: []models.Annotation{{Label: "Bear", Score: 0.1}},
			matched:     false,
			labels:      []string{"Bear"},
		},
		{
			name:        "label not in allow-list",
			annotations: []models.Annotation{{Label: "Person", Score: 0.99}},
			matched:     false,
			labels:      []string{"Person"},
		},
		{
			name: "order preserved, one match suffices",
			annotations: []models.Annotation{
				{Label: "Rock", Score: 0.9},
				{Label: "Animal", Score: 0.35},
			},
			matched: true,
			labels:  []string{"Rock", "Animal"},
		},
		{
			name:        "empty response",
			annotations: nil,
			matched:     false,
			labels:      []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, labels := Evaluate(tt.annotations, allow)
			assert.Equal(t, tt.matched, matched)
			assert.Equal(t, tt.labels, labels)
		})
	}
}
