package simlink

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/simlink/internal/adapters/udp"
	"github.com/ghalamif/simlink/internal/wire"
)

// ErrTransmitterClosed is returned when a channel transmitter is written to after being closed.
var ErrTransmitterClosed = errors.New("simlink: transmitter closed")

// ErrFrameDropped wraps every frame a transmitter could not deliver.
var ErrFrameDropped = udp.ErrFrameDropped

// SnapshotHandler receives each transmitted frame, decoded back into a Snapshot.
type SnapshotHandler func(Snapshot) error

// NewCallbackTransmitter adapts a SnapshotHandler into a Transmitter so callers
// can consume telemetry in-process without a socket. The handler runs on the
// link loop and must return quickly.
func NewCallbackTransmitter(name string, fn SnapshotHandler) Transmitter {
	if name == "" {
		name = "callback"
	}
	return &callbackTransmitter{name: name, fn: fn}
}

// NewChannelTransmitter exposes snapshots via a channel; it returns the
// transmitter, the read-only channel, and a close function the caller should
// invoke during shutdown. A full channel drops the frame instead of blocking.
func NewChannelTransmitter(name string, buffer int) (Transmitter, <-chan Snapshot, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan Snapshot, buffer)
	t := &channelTransmitter{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return t, ch, func() { t.close() }
}

type callbackTransmitter struct {
	name string
	fn   SnapshotHandler
}

func (t *callbackTransmitter) Send(frame []byte) error {
	if t.fn == nil {
		return fmt.Errorf("callback transmitter %q: nil handler", t.name)
	}
	snap, err := wire.DecodeTelemetry(frame)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}
	return t.fn(snap)
}

func (t *callbackTransmitter) Name() string { return t.name }
func (t *callbackTransmitter) Close() error { return nil }

type channelTransmitter struct {
	name   string
	mu     sync.RWMutex
	ch     chan Snapshot
	closed chan struct{}
	once   sync.Once
}

func (t *channelTransmitter) Send(frame []byte) error {
	snap, err := wire.DecodeTelemetry(frame)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	select {
	case <-t.closed:
		return ErrTransmitterClosed
	default:
	}

	select {
	case t.ch <- snap:
		return nil
	default:
		return fmt.Errorf("%w: channel %q full", ErrFrameDropped, t.name)
	}
}

func (t *channelTransmitter) Name() string { return t.name }

func (t *channelTransmitter) Close() error {
	t.close()
	return nil
}

func (t *channelTransmitter) close() {
	t.once.Do(func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		close(t.closed)
		close(t.ch)
	})
}
