package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 3, cfg.Vision.Retry.Attempts)
	assert.Equal(t, 2*time.Second, cfg.Vision.Retry.BaseDelay)
	assert.Equal(t, 10*time.Second, cfg.Vision.Retry.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Detection.RetriggerGap)
	assert.Equal(t, 40*time.Second, cfg.Detection.StreamingCeiling)
	assert.Equal(t, 30*time.Minute, cfg.Sun.Buffer)
	assert.NotEmpty(t, cfg.Detection.Allow, "taxonomy allow-list must have a baseline")
}

func TestLoadYAMLOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := `
detection:
  retrigger_gap: 90s
  allow:
    - label: Person
      min_score: 0.5
sun:
  latitude: -34.36
  longitude: 18.47
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 90*time.Second, cfg.Detection.RetriggerGap)
	require.Len(t, cfg.Detection.Allow, 1)
	assert.Equal(t, "Person", cfg.Detection.Allow[0].Label)
	assert.InDelta(t, -34.36, cfg.Sun.Latitude, 1e-9)
	assert.Equal(t, 40*time.Second, cfg.Detection.StreamingCeiling, "untouched fields keep defaults")
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("RETRIGGER_GAP", "2m")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 2*time.Minute, cfg.Detection.RetriggerGap)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
