package udp

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/simlink/internal/adapters/queue"
	"github.com/ghalamif/simlink/internal/ports"
)

type countingObs struct {
	ports.NopObservability
	mu       sync.Mutex
	counters map[string]float64
}

func (c *countingObs) IncCounter(name string, v float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.counters == nil {
		c.counters = map[string]float64{}
	}
	c.counters[name] += v
}

func (c *countingObs) get(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counters[name]
}

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestTransmitterDeliversFrame(t *testing.T) {
	peer := listenLoopback(t)

	tx, err := NewTransmitter(peer.LocalAddr().String(), 0)
	require.NoError(t, err)
	defer tx.Close()

	frame := []byte("SLTM-frame")
	require.NoError(t, tx.Send(frame))

	buf := make([]byte, 64)
	require.NoError(t, peer.SetReadDeadline(time.Now().Add(time.Second)))
	n, _, err := peer.ReadFromUDP(buf)
	require.NoError(t, err)
	assert.Equal(t, frame, buf[:n])
	assert.Contains(t, tx.Name(), "udp:127.0.0.1:")
}

func TestTransmitterDropsAfterClose(t *testing.T) {
	peer := listenLoopback(t)
	tx, err := NewTransmitter(peer.LocalAddr().String(), 0)
	require.NoError(t, err)

	require.NoError(t, tx.Close())
	require.NoError(t, tx.Close())

	err = tx.Send([]byte{1})
	require.ErrorIs(t, err, ErrFrameDropped)
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestTransmitterUnreachablePeerDoesNotBlock(t *testing.T) {
	peer := listenLoopback(t)
	addr := peer.LocalAddr().String()
	peer.Close()

	tx, err := NewTransmitter(addr, 5*time.Millisecond)
	require.NoError(t, err)
	defer tx.Close()

	start := time.Now()
	for i := 0; i < 20; i++ {
		if err := tx.Send([]byte{byte(i)}); err != nil {
			assert.ErrorIs(t, err, ErrFrameDropped)
		}
	}
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestNewTransmitterBadAddress(t *testing.T) {
	_, err := NewTransmitter("not-an-address", 0)
	assert.Error(t, err)
}

func TestReceiverQueuesDatagramsInOrder(t *testing.T) {
	obs := &countingObs{}
	rx := NewReceiver(ReceiverConfig{Address: "127.0.0.1:0", Logger: testr.New(t), Obs: obs})
	q := queue.NewBacklog(64)
	require.NoError(t, rx.Start(q))
	defer rx.Stop()

	client, err := net.DialUDP("udp", nil, rx.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < 10; i++ {
		_, err := client.Write([]byte{byte(i), 0xAA})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return q.Len() == 10 }, 2*time.Second, 5*time.Millisecond)

	got := q.DequeueBatch(0)
	for i, d := range got {
		assert.Equal(t, []byte{byte(i), 0xAA}, d.Payload)
		assert.True(t, d.From.IsValid())
		assert.False(t, d.ReceivedAt.IsZero())
	}
	assert.Equal(t, float64(10), obs.get(ports.MetricDatagramsReceived))
}

func TestReceiverCountsRefusedWhenBacklogFull(t *testing.T) {
	obs := &countingObs{}
	rx := NewReceiver(ReceiverConfig{Address: "127.0.0.1:0", Obs: obs})
	q := queue.NewBacklog(2)
	require.NoError(t, rx.Start(q))
	defer rx.Stop()

	client, err := net.DialUDP("udp", nil, rx.LocalAddr().(*net.UDPAddr))
	require.NoError(t, err)
	defer client.Close()

	for i := 0; i < 5; i++ {
		_, err := client.Write([]byte{byte(i)})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return obs.get(ports.MetricDatagramsReceived) == 5 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, q.Len())
	assert.Equal(t, float64(3), obs.get(ports.MetricBacklogRefused))
}

func TestReceiverBindFailureIsReturned(t *testing.T) {
	taken := listenLoopback(t)

	rx := NewReceiver(ReceiverConfig{Address: taken.LocalAddr().String()})
	err := rx.Start(queue.NewBacklog(4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bind control address")
	assert.NoError(t, rx.Stop())
}

func TestReceiverStopIsIdempotentAndReleasesSocket(t *testing.T) {
	rx := NewReceiver(ReceiverConfig{Address: "127.0.0.1:0"})
	require.NoError(t, rx.Start(queue.NewBacklog(4)))
	addr := rx.LocalAddr().String()

	done := make(chan struct{})
	go func() {
		assert.NoError(t, rx.Stop())
		assert.NoError(t, rx.Stop())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("stop did not return")
	}

	again := NewReceiver(ReceiverConfig{Address: addr})
	require.NoError(t, again.Start(queue.NewBacklog(4)))
	assert.NoError(t, again.Stop())
}
