package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/go-logr/logr"

	"github.com/ghalamif/simlink/internal/ports"
)

const (
	readSlice  = 100 * time.Millisecond
	maxPayload = 2048
)

// ReceiverConfig configures the control socket.
type ReceiverConfig struct {
	Address string
	RcvBuf  int
	Logger  logr.Logger
	Obs     ports.Observability
	Clock   func() time.Time
}

// Receiver owns the inbound control socket. A single reader goroutine copies
// each datagram into the queue in receipt order; decoding happens elsewhere so
// a flood can only fill the queue, never stall the loops that drain it.
type Receiver struct {
	cfg ReceiverConfig

	mu   sync.Mutex
	conn *net.UDPConn
	done chan struct{}
	wg   sync.WaitGroup
	stop sync.Once
}

func NewReceiver(cfg ReceiverConfig) *Receiver {
	if cfg.Obs == nil {
		cfg.Obs = ports.NopObservability{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	return &Receiver{cfg: cfg, done: make(chan struct{})}
}

// Start binds the socket and launches the reader. A bind failure is returned
// to the caller; nothing else in the receiver is fatal.
func (r *Receiver) Start(q ports.DatagramQueue) error {
	laddr, err := net.ResolveUDPAddr("udp", r.cfg.Address)
	if err != nil {
		return fmt.Errorf("resolve control address %q: %w", r.cfg.Address, err)
	}
	conn, err := net.ListenUDP("udp", laddr)
	if err != nil {
		return fmt.Errorf("bind control address %q: %w", r.cfg.Address, err)
	}
	if r.cfg.RcvBuf > 0 {
		if err := conn.SetReadBuffer(r.cfg.RcvBuf); err != nil {
			r.cfg.Logger.Info("could not set control receive buffer", "bytes", r.cfg.RcvBuf, "error", err.Error())
		}
	}

	r.mu.Lock()
	r.conn = conn
	r.mu.Unlock()

	r.cfg.Logger.Info("control receiver listening", "addr", conn.LocalAddr().String())

	r.wg.Add(1)
	go r.read(conn, q)
	return nil
}

func (r *Receiver) read(conn *net.UDPConn, q ports.DatagramQueue) {
	defer r.wg.Done()
	buf := make([]byte, maxPayload)
	for {
		select {
		case <-r.done:
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(readSlice))
		n, from, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			r.cfg.Obs.IncCounter(ports.MetricReceiveErrors, 1)
			r.cfg.Logger.V(1).Info("control read failed", "error", err.Error())
			continue
		}

		payload := make([]byte, n)
		copy(payload, buf[:n])
		r.cfg.Obs.IncCounter(ports.MetricDatagramsReceived, 1)
		if !q.Enqueue(ports.Datagram{Payload: payload, From: from, ReceivedAt: r.cfg.Clock()}) {
			r.cfg.Obs.IncCounter(ports.MetricBacklogRefused, 1)
		}
	}
}

// LocalAddr returns the bound address, or nil before Start.
func (r *Receiver) LocalAddr() net.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conn == nil {
		return nil
	}
	return r.conn.LocalAddr()
}

// Stop closes the socket and waits for the reader to exit. Safe to call more than once.
func (r *Receiver) Stop() error {
	var err error
	r.stop.Do(func() {
		close(r.done)
		r.mu.Lock()
		conn := r.conn
		r.mu.Unlock()
		if conn != nil {
			err = conn.Close()
		}
		r.wg.Wait()
	})
	return err
}

var _ ports.ControlListener = (*Receiver)(nil)
