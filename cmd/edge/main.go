package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/penguard/penguard/internal/config"
	"github.com/penguard/penguard/internal/edge"
	"github.com/penguard/penguard/internal/edge/coordclient"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	coord := coordclient.New(cfg.Coordinator.URL, cfg.Vision.Retry)

	// Simulated peripherals; hardware drivers implement the same
	// interfaces and get wired here on the device build.
	device := edge.NewSimDevice([]byte("still frame"))
	sensor := edge.NewSimSensor()
	deterrent := &edge.SimDeterrent{}
	lamp := &edge.SimIlluminator{}

	machine := edge.NewMachine(coord, device, sensor, deterrent, edge.LogDisplay{}, edge.ExecTranscode, edge.MachineConfig{
		RetriggerGap:   cfg.Detection.RetriggerGap,
		Cooldown:       cfg.Detection.Cooldown,
		RecordDuration: cfg.Detection.RecordDuration,
		PollInterval:   cfg.Detection.PollInterval,
		TempDir:        os.TempDir(),
	})
	go machine.Run(ctx)
	machine.Arm()

	streaming := edge.NewStreamLoop(coord, device,
		cfg.Detection.PollInterval,
		200*time.Millisecond,
		cfg.Detection.StreamingCeiling,
	)
	go streaming.Run(ctx)

	go edge.NewIlluminationLoop(coord, lamp, cfg.Sun.IlluminationPoll).Run(ctx)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Println("Edge: shutting down...")
	cancel()
}
