package udp

import (
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/ghalamif/simlink/internal/ports"
)

// ErrFrameDropped wraps every failed send. Frames are never retried.
var ErrFrameDropped = errors.New("udp: frame dropped")

const DefaultSendTimeout = 2 * time.Millisecond

// Transmitter writes telemetry frames to a single peer over a connected UDP
// socket. Each write is bounded by a deadline so a full socket buffer costs at
// most one timeout slice.
type Transmitter struct {
	conn    *net.UDPConn
	addr    string
	timeout time.Duration
	closed  atomic.Bool
}

// NewTransmitter resolves addr and dials it. Dial failures are startup errors.
func NewTransmitter(addr string, timeout time.Duration) (*Transmitter, error) {
	raddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("resolve telemetry address %q: %w", addr, err)
	}
	conn, err := net.DialUDP("udp", nil, raddr)
	if err != nil {
		return nil, fmt.Errorf("dial telemetry address %q: %w", addr, err)
	}
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &Transmitter{conn: conn, addr: raddr.String(), timeout: timeout}, nil
}

func (t *Transmitter) Send(frame []byte) error {
	if t.closed.Load() {
		return fmt.Errorf("%w: %w", ErrFrameDropped, net.ErrClosed)
	}
	if err := t.conn.SetWriteDeadline(time.Now().Add(t.timeout)); err != nil {
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}
	n, err := t.conn.Write(frame)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrFrameDropped, err)
	}
	if n != len(frame) {
		return fmt.Errorf("%w: short write %d/%d", ErrFrameDropped, n, len(frame))
	}
	return nil
}

func (t *Transmitter) Name() string { return "udp:" + t.addr }

func (t *Transmitter) LocalAddr() net.Addr { return t.conn.LocalAddr() }

func (t *Transmitter) Close() error {
	if t.closed.Swap(true) {
		return nil
	}
	return t.conn.Close()
}

var _ ports.Transmitter = (*Transmitter)(nil)
