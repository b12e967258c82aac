package pipeline

import (
	"context"
	"time"

	"github.com/go-logr/logr"

	"github.com/ghalamif/simlink/internal/ports"
)

// Link interleaves the inbound and outbound cycles in one cooperative loop.
// Every sample tick first drains a capped slice of the control backlog, then
// sends the frame, so a command burst is visible in the very next frame and a
// flood can only delay the send by MaxCommandsPerCycle dispatches.
type Link struct {
	Source   Source
	Tx       ports.Transmitter
	Recorder ports.Recorder
	Queue    ports.DatagramQueue
	Sink     CommandSink
	Policy   ports.Policy
	Obs      ports.Observability
	Log      logr.Logger
	Clock    func() time.Time

	carried int
}

func (l *Link) now() time.Time {
	if l.Clock != nil {
		return l.Clock()
	}
	return time.Now()
}

// Poll runs one inbound pass.
func (l *Link) Poll() InboundStats {
	start := l.now()
	st := ProcessInbound(l.Queue, l.Sink, l.Policy, l.Obs, start, l.carried)
	l.carried = st.Deferred
	l.Obs.ObserveLatency(ports.LatencyInboundCycle, l.now().Sub(start).Seconds())
	return st
}

// Tick runs one inbound pass followed by one outbound cycle.
func (l *Link) Tick() (InboundStats, OutboundResult) {
	start := l.now()
	var in InboundStats
	if l.Queue != nil && l.Sink != nil {
		in = l.Poll()
	}
	out := RunOutboundCycle(l.Source, l.Tx, l.Recorder, l.Obs)
	l.Obs.ObserveLatency(ports.LatencyOutboundCycle, l.now().Sub(start).Seconds())
	if in.Handled() > 0 || in.Deferred > 0 {
		l.Log.V(1).Info("link tick", "applied", in.Applied, "rejected", in.Rejected,
			"parseErrors", in.ParseErrors, "stale", in.Stale, "deferred", in.Deferred, "outbound", out.String())
	}
	return in, out
}

// Run ticks at Policy.SampleInterval until ctx is done. When PollInterval is
// shorter than the sample interval, extra inbound passes run between ticks.
func (l *Link) Run(ctx context.Context) error {
	interval := l.Policy.SampleInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	sampleTick := time.NewTicker(interval)
	defer sampleTick.Stop()

	var pollC <-chan time.Time
	if p := l.Policy.PollInterval; p > 0 && p < interval && l.Queue != nil && l.Sink != nil {
		pollTick := time.NewTicker(p)
		defer pollTick.Stop()
		pollC = pollTick.C
	}

	l.Log.Info("link loop started", "sampleInterval", interval.String(), "pollInterval", l.Policy.PollInterval.String())
	for {
		select {
		case <-ctx.Done():
			l.Log.Info("link loop stopped")
			return ctx.Err()
		case <-sampleTick.C:
			l.Tick()
		case <-pollC:
			l.Poll()
		}
	}
}
