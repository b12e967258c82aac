package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/simlink/pkg/simlink"
)

func main() {
	flow, err := simlink.Conf("../../data/config.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(s simlink.Snapshot) error {
		fmt.Printf("%s seq=%d speed=%.1fkm/h gear=%d rpm=%.0f lap=%d tc=%d abs=%d\n",
			s.Timestamp.Format(time.RFC3339Nano),
			s.Seq,
			s.SpeedKmh,
			s.Gear,
			s.RPM,
			s.LapCount,
			s.TCLevel,
			s.ABSLevel,
		)
		return nil
	}

	if err := flow.Run(ctx, simlink.OutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("session error: %v", err)
	}
}
