package queue

import (
	"sync"

	"github.com/ghalamif/simlink/internal/ports"
)

// Backlog is a bounded FIFO of received control datagrams. It is a fixed
// ring; once full, new datagrams are refused rather than evicting older ones
// so arrival order is never reshuffled.
type Backlog struct {
	mu      sync.Mutex
	ring    []ports.Datagram
	head    int
	count   int
	refused uint64
}

func NewBacklog(capacity int) *Backlog {
	if capacity <= 0 {
		capacity = 1
	}
	return &Backlog{ring: make([]ports.Datagram, capacity)}
}

func (q *Backlog) Enqueue(d ports.Datagram) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == len(q.ring) {
		q.refused++
		return false
	}
	q.ring[(q.head+q.count)%len(q.ring)] = d
	q.count++
	return true
}

// DequeueBatch removes up to max datagrams in arrival order. A max <= 0
// drains everything.
func (q *Backlog) DequeueBatch(max int) []ports.Datagram {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.count == 0 {
		return nil
	}
	if max <= 0 || max > q.count {
		max = q.count
	}
	out := make([]ports.Datagram, max)
	for i := range out {
		idx := (q.head + i) % len(q.ring)
		out[i] = q.ring[idx]
		q.ring[idx] = ports.Datagram{}
	}
	q.head = (q.head + max) % len(q.ring)
	q.count -= max
	return out
}

func (q *Backlog) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

func (q *Backlog) Cap() int { return len(q.ring) }

// Refused reports how many datagrams were turned away because the backlog was full.
func (q *Backlog) Refused() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.refused
}

var _ ports.DatagramQueue = (*Backlog)(nil)
