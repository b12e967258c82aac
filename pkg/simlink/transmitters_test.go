package simlink

import (
	"errors"
	"testing"
	"time"
)

func TestNewCallbackTransmitter(t *testing.T) {
	var received []Snapshot
	tx := NewCallbackTransmitter("cb", func(s Snapshot) error {
		received = append(received, s)
		return nil
	})

	input := Snapshot{Seq: 42, Timestamp: time.Unix(1, 0), SpeedKmh: 211.5, Gear: 5}
	if err := tx.Send(EncodeTelemetry(input)); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}
	if len(received) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(received))
	}
	got := received[0]
	if got.Seq != input.Seq || got.SpeedKmh != input.SpeedKmh || got.Gear != input.Gear {
		t.Fatalf("mismatched snapshot: %+v vs %+v", got, input)
	}
	if !got.Timestamp.Equal(input.Timestamp) {
		t.Fatalf("timestamp not preserved: %v vs %v", got.Timestamp, input.Timestamp)
	}
	if tx.Name() != "cb" {
		t.Fatalf("unexpected name %q", tx.Name())
	}
}

func TestNewCallbackTransmitterRejects(t *testing.T) {
	if err := NewCallbackTransmitter("", nil).Send(EncodeTelemetry(Snapshot{})); err == nil {
		t.Fatalf("expected error when callback is nil")
	}

	tx := NewCallbackTransmitter("", func(Snapshot) error { return nil })
	if err := tx.Send([]byte("garbage")); !errors.Is(err, ErrFrameDropped) {
		t.Fatalf("expected ErrFrameDropped for undecodable frame, got %v", err)
	}
	if tx.Name() != "callback" {
		t.Fatalf("expected default name, got %q", tx.Name())
	}
}

func TestNewChannelTransmitter(t *testing.T) {
	tx, ch, closeFn := NewChannelTransmitter("chan", 1)
	defer closeFn()

	if err := tx.Send(EncodeTelemetry(Snapshot{Seq: 7})); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	start := time.Now()
	if err := tx.Send(EncodeTelemetry(Snapshot{Seq: 8})); !errors.Is(err, ErrFrameDropped) {
		t.Fatalf("expected full channel to drop, got %v", err)
	}
	if time.Since(start) > 100*time.Millisecond {
		t.Fatalf("send on a full channel must not block")
	}

	select {
	case s := <-ch:
		if s.Seq != 7 {
			t.Fatalf("unexpected snapshot %+v", s)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for snapshot")
	}

	closeFn()
	if err := tx.Send(EncodeTelemetry(Snapshot{Seq: 9})); !errors.Is(err, ErrTransmitterClosed) {
		t.Fatalf("expected ErrTransmitterClosed, got %v", err)
	}
	if _, ok := <-ch; ok {
		t.Fatalf("channel should be closed")
	}
	if err := tx.Close(); err != nil {
		t.Fatalf("second close returned %v", err)
	}
}
