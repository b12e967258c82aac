package pipeline

import (
	"time"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
	"github.com/ghalamif/simlink/internal/wire"
)

// CommandSink applies decoded commands; *dispatch.Dispatcher is the production sink.
type CommandSink interface {
	Dispatch(cmd domain.Command) error
}

// InboundStats summarises one inbound pass.
type InboundStats struct {
	Applied     int
	Rejected    int
	ParseErrors int
	Stale       int

	// Deferred is the backlog left for later passes; NewlyDeferred is the part
	// of it that this pass deferred for the first time.
	Deferred      int
	NewlyDeferred int
}

// Handled counts datagrams taken off the backlog this pass.
func (s InboundStats) Handled() int {
	return s.Applied + s.Rejected + s.ParseErrors + s.Stale
}

// ProcessInbound drains at most pol.MaxCommandsPerCycle datagrams in receipt
// order, decoding and dispatching each. Whatever remains is left for the next
// pass. Datagrams older than pol.MaxCommandAge are discarded undecoded.
// carried is the Deferred count of the previous pass; since the backlog is
// FIFO those entries are taken first, so each datagram adds to the deferred
// counter at most once.
func ProcessInbound(q ports.DatagramQueue, sink CommandSink, pol ports.Policy, obs ports.Observability, now time.Time, carried int) InboundStats {
	var st InboundStats

	batch := q.DequeueBatch(maxCommands(pol))
	for _, d := range batch {
		if pol.MaxCommandAge > 0 && !d.ReceivedAt.IsZero() && now.Sub(d.ReceivedAt) > pol.MaxCommandAge {
			st.Stale++
			continue
		}

		cmd, err := wire.DecodeCommand(d.Payload)
		if err != nil {
			st.ParseErrors++
			obs.ParseError(err, len(d.Payload))
			continue
		}

		if err := sink.Dispatch(cmd); err != nil {
			st.Rejected++
			obs.CommandRejected(cmd, err)
			continue
		}
		st.Applied++
	}

	st.Deferred = q.Len()
	st.NewlyDeferred = max(st.Deferred-max(carried-len(batch), 0), 0)
	obs.SetGauge(ports.GaugeBacklogLength, float64(st.Deferred))
	if st.Applied > 0 {
		obs.IncCounter(ports.MetricCommandsApplied, float64(st.Applied))
	}
	if st.Stale > 0 {
		obs.IncCounter(ports.MetricCommandsStale, float64(st.Stale))
	}
	if st.NewlyDeferred > 0 {
		obs.IncCounter(ports.MetricCommandsDeferred, float64(st.NewlyDeferred))
	}
	return st
}

func maxCommands(pol ports.Policy) int {
	if pol.MaxCommandsPerCycle <= 0 {
		return 1
	}
	return pol.MaxCommandsPerCycle
}
