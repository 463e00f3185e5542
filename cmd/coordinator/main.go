package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/penguard/penguard/internal/api"
	"github.com/penguard/penguard/internal/blob"
	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/kafka"
	"github.com/penguard/penguard/internal/ledger"
	"github.com/penguard/penguard/internal/notify"
	"github.com/penguard/penguard/internal/outbox"
	"github.com/penguard/penguard/internal/relay"
	"github.com/penguard/penguard/internal/statestore"
	"github.com/penguard/penguard/internal/suncalc"
	"github.com/penguard/penguard/internal/vision"
	"github.com/penguard/penguard/internal/watchdog"
)

func main() {
	log.Println("Main: init...")

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	db, err := ledger.New(cfg.Postgres.DSN)
	if err != nil {
		log.Fatal(err)
	}
	if err := db.Init(); err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	minioClient, err := blob.NewMinioClient(cfg.Minio.Endpoint, cfg.Minio.AccessKey, cfg.Minio.SecretKey)
	if err != nil {
		log.Fatalf("Failed connect to MinIO: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupCtx, setupCancel := context.WithTimeout(ctx, 30*time.Second)
	defer setupCancel()
	for _, bucket := range []string{cfg.Minio.PhotoBucket, cfg.Minio.VideoBucket} {
		if err := minioClient.EnsureBucket(setupCtx, bucket); err != nil {
			log.Fatalf("Failed to create bucket %s: %v", bucket, err)
		}
	}

	// Detection-event feed: ledger outbox to Kafka.
	producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.DetectionTopic)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer producer.Close()
	go outbox.New(db, producer, cfg.Coordinator.OutboxPoll).Run(ctx)

	// Notifier consumes the feed and pushes alerts.
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.DetectionTopic)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()
	consumer.StartListening(ctx)

	notifier, err := notify.NewNotifier(cfg.Notify.URLs)
	if err != nil {
		log.Fatalf("Failed to create notifier: %v", err)
	}
	go notifier.Run(ctx, consumer.Messages())

	store := statestore.NewMemory()
	go watchdog.New(store, cfg.Coordinator.StreamIdleMax, cfg.Coordinator.StreamIdleMax/2).Run(ctx)

	handlers := api.NewHandlers(
		store,
		db,
		minioClient,
		vision.NewClient(cfg.Vision.Endpoint, cfg.Vision.Retry),
		relay.New(),
		suncalc.New(cfg.Sun.Latitude, cfg.Sun.Longitude),
		cfg,
		api.NewMetrics(),
	)

	log.Printf("Starting coordinator API server on %s", cfg.Coordinator.Addr)
	log.Fatal(http.ListenAndServe(cfg.Coordinator.Addr, handlers.Router()))
}
