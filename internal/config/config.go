package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// AllowEntry gates one classifier label behind a minimum score.
type AllowEntry struct {
	Label    string  `yaml:"label" json:"label"`
	MinScore float64 `yaml:"min_score" json:"min_score"`
}

// RetryPolicy is the shared bounded-retry shape for outbound calls.
type RetryPolicy struct {
	Attempts  int           `yaml:"attempts" env:"RETRY_ATTEMPTS"`
	BaseDelay time.Duration `yaml:"base_delay" env:"RETRY_BASE_DELAY"`
	Factor    float64       `yaml:"factor" env:"RETRY_FACTOR"`
	Timeout   time.Duration `yaml:"timeout" env:"RETRY_TIMEOUT"`
}

// Config is the single versioned configuration for both binaries. The
// drifting per-deployment copies of retry counts, allow-lists and ledger
// layouts are unified here.
type Config struct {
	Postgres struct {
		DSN string `yaml:"dsn" env:"DATABASE_DSN"`
	} `yaml:"postgres"`

	Minio struct {
		Endpoint    string `yaml:"endpoint" env:"MINIO_ENDPOINT"`
		AccessKey   string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
		SecretKey   string `yaml:"secret_key" env:"MINIO_SECRET_KEY"`
		PhotoBucket string `yaml:"photo_bucket" env:"MINIO_PHOTO_BUCKET"`
		VideoBucket string `yaml:"video_bucket" env:"MINIO_VIDEO_BUCKET"`
	} `yaml:"minio"`

	Kafka struct {
		Brokers        []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
		GroupID        string   `yaml:"group_id" env:"KAFKA_GROUP_ID"`
		DetectionTopic string   `yaml:"detection_topic" env:"DETECTION_TOPIC"`
	} `yaml:"kafka"`

	Vision struct {
		Endpoint string      `yaml:"endpoint" env:"VISION_ENDPOINT"`
		Retry    RetryPolicy `yaml:"retry"`
	} `yaml:"vision"`

	Detection struct {
		Allow            []AllowEntry  `yaml:"allow"`
		RetriggerGap     time.Duration `yaml:"retrigger_gap" env:"RETRIGGER_GAP"`
		Cooldown         time.Duration `yaml:"cooldown" env:"DETECTION_COOLDOWN"`
		RecordDuration   time.Duration `yaml:"record_duration" env:"RECORD_DURATION"`
		PollInterval     time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL"`
		StreamingCeiling time.Duration `yaml:"streaming_ceiling" env:"STREAMING_CEILING"`
	} `yaml:"detection"`

	Sun struct {
		Latitude         float64       `yaml:"latitude" env:"SUN_LATITUDE"`
		Longitude        float64       `yaml:"longitude" env:"SUN_LONGITUDE"`
		Buffer           time.Duration `yaml:"buffer" env:"SUN_BUFFER"`
		IlluminationPoll time.Duration `yaml:"illumination_poll" env:"ILLUMINATION_POLL"`
	} `yaml:"sun"`

	Coordinator struct {
		Addr          string        `yaml:"addr" env:"COORDINATOR_ADDR"`
		URL           string        `yaml:"url" env:"COORDINATOR_URL"`
		StreamIdleMax time.Duration `yaml:"stream_idle_max" env:"STREAM_IDLE_MAX"`
		OutboxPoll    time.Duration `yaml:"outbox_poll" env:"OUTBOX_POLL"`
	} `yaml:"coordinator"`

	Notify struct {
		URLs []string `yaml:"urls" env:"NOTIFY_URLS" envSeparator:","`
	} `yaml:"notify"`
}

// Load reads the YAML file (when it exists) and overlays environment
// variables on top.
func Load(filename string) (*Config, error) {
	cfg := Default()

	if filename != "" {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	return cfg, nil
}

// Default returns the baseline policy observed in the field: 3 attempts,
// 2s base delay doubling, 10s request timeout, 60s re-trigger gap, 40s
// streaming ceiling, 30min sunrise/sunset buffer.
func Default() *Config {
	cfg := &Config{}

	cfg.Minio.PhotoBucket = "photos"
	cfg.Minio.VideoBucket = "videos"

	cfg.Kafka.GroupID = "penguard-notifier"
	cfg.Kafka.DetectionTopic = "detection-events"

	cfg.Vision.Retry = RetryPolicy{
		Attempts:  3,
		BaseDelay: 2 * time.Second,
		Factor:    2,
		Timeout:   10 * time.Second,
	}

	cfg.Detection.Allow = []AllowEntry{
		{Label: "Animal", MinScore: 0.3},
		{Label: "Bear", MinScore: 0.3},
		{Label: "Leopard", MinScore: 0.3},
	}
	cfg.Detection.RetriggerGap = 60 * time.Second
	cfg.Detection.Cooldown = 10 * time.Second
	cfg.Detection.RecordDuration = 5 * time.Second
	cfg.Detection.PollInterval = 500 * time.Millisecond
	cfg.Detection.StreamingCeiling = 40 * time.Second

	cfg.Sun.Buffer = 30 * time.Minute
	cfg.Sun.IlluminationPoll = 30 * time.Second

	cfg.Coordinator.Addr = ":8080"
	cfg.Coordinator.URL = "http://localhost:8080"
	cfg.Coordinator.StreamIdleMax = 60 * time.Second
	cfg.Coordinator.OutboxPoll = 5 * time.Second

	return cfg
}
