package ports

import (
	"net/netip"
	"time"
)

// Datagram is one inbound control packet as read from the socket.
type Datagram struct {
	Payload    []byte
	From       netip.AddrPort
	ReceivedAt time.Time
}

// DatagramQueue is the bounded backlog between the control socket and the dispatcher.
type DatagramQueue interface {
	Enqueue(d Datagram) bool
	DequeueBatch(max int) []Datagram
	Len() int
}

// ControlListener owns the inbound socket and feeds datagrams into a queue.
type ControlListener interface {
	Start(q DatagramQueue) error
	Stop() error
}
