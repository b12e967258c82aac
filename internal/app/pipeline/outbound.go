package pipeline

import (
	"errors"

	"github.com/ghalamif/simlink/internal/app/sampler"
	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
	"github.com/ghalamif/simlink/internal/wire"
)

// Source produces one Snapshot per call; *sampler.Sampler is the production source.
type Source interface {
	Sample() (domain.Snapshot, error)
}

type OutboundResult int

const (
	Sent OutboundResult = iota
	Skipped
	Dropped
)

func (r OutboundResult) String() string {
	switch r {
	case Sent:
		return "sent"
	case Skipped:
		return "skipped"
	case Dropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// RunOutboundCycle samples, encodes and sends one frame. A skipped sample
// publishes nothing; a failed send is counted and forgotten. rec may be nil.
func RunOutboundCycle(src Source, tx ports.Transmitter, rec ports.Recorder, obs ports.Observability) OutboundResult {
	snap, err := src.Sample()
	if err != nil {
		obs.IncCounter(ports.MetricSamplesSkipped, 1)
		if !errors.Is(err, ports.ErrNoVehicle) && !errors.Is(err, sampler.ErrTooSoon) {
			obs.LogError("sample_failed", err)
		}
		return Skipped
	}

	if rec != nil && !rec.Record(snap) {
		obs.IncCounter(ports.MetricRecorderDropped, 1)
	}

	if err := tx.Send(wire.EncodeTelemetry(snap)); err != nil {
		obs.FrameDropped(tx.Name(), err)
		return Dropped
	}
	obs.IncCounter(ports.MetricFramesSent, 1)
	obs.SetGauge(ports.GaugeLastSequence, float64(snap.Seq))
	return Sent
}
