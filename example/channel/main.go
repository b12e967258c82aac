package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/simlink"
)

func main() {
	flow, err := simlink.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tx, snapshots, closeSnapshots := simlink.NewChannelTransmitter("laps", 64)
	defer closeSnapshots()

	go lapWatcher(snapshots)

	if err := flow.Run(ctx, simlink.OutTransmitter(tx)); err != nil && err != context.Canceled {
		log.Fatalf("session error: %v", err)
	}
}

// lapWatcher prints one line per completed lap.
func lapWatcher(snapshots <-chan simlink.Snapshot) {
	var lap int32 = -1
	for s := range snapshots {
		if s.LapCount == lap {
			continue
		}
		if lap >= 0 {
			fmt.Printf("lap %d done: last=%.3fs best=%.3fs fuel=%.1fL\n", s.LapCount, s.LastLap, s.BestLap, s.Fuel)
		}
		lap = s.LapCount
	}
}
