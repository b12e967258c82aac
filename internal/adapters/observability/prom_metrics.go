package observability

import (
	"errors"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/simlink/internal/app/dispatch"
	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
	"github.com/ghalamif/simlink/internal/wire"
)

const (
	framesDroppedName    = "simlink_frames_dropped_total"
	parseErrorsName      = "simlink_parse_errors_total"
	commandsRejectedName = "simlink_commands_rejected_total"
)

// PromObs backs ports.Observability with Prometheus collectors and a logr
// logger. Unknown metric names are ignored.
type PromObs struct {
	log logr.Logger

	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer

	framesDropped    *prometheus.CounterVec
	parseErrors      *prometheus.CounterVec
	commandsRejected *prometheus.CounterVec
}

// NewPromObs registers the link collectors on reg. A nil reg uses the default registerer.
func NewPromObs(reg prometheus.Registerer, log logr.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	latency := func(name, help string, start float64) prometheus.Histogram {
		return prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: prometheus.ExponentialBuckets(start, 2, 12),
		})
	}

	p := &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			ports.MetricFramesSent:        counter(ports.MetricFramesSent, "Telemetry frames handed to the transmitter successfully."),
			ports.MetricSamplesSkipped:    counter(ports.MetricSamplesSkipped, "Sample cycles that published nothing (no active vehicle or read failure)."),
			ports.MetricDatagramsReceived: counter(ports.MetricDatagramsReceived, "Control datagrams read from the socket."),
			ports.MetricReceiveErrors:     counter(ports.MetricReceiveErrors, "Control socket read errors other than timeouts."),
			ports.MetricBacklogRefused:    counter(ports.MetricBacklogRefused, "Control datagrams dropped because the backlog was full."),
			ports.MetricCommandsApplied:   counter(ports.MetricCommandsApplied, "Commands applied to the vehicle."),
			ports.MetricCommandsStale:     counter(ports.MetricCommandsStale, "Commands discarded for exceeding the maximum age."),
			ports.MetricCommandsDeferred:  counter(ports.MetricCommandsDeferred, "Control datagrams left for a later cycle, counted once each."),
			ports.MetricRecorderWritten:   counter(ports.MetricRecorderWritten, "Snapshots persisted by the recorder."),
			ports.MetricRecorderDropped:   counter(ports.MetricRecorderDropped, "Snapshots the recorder could not accept or write."),
		},
		gauges: map[string]prometheus.Gauge{
			ports.GaugeBacklogLength: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: ports.GaugeBacklogLength,
				Help: "Control datagrams waiting after the last inbound pass.",
			}),
			ports.GaugeLastSequence: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: ports.GaugeLastSequence,
				Help: "Sequence number of the last frame sent.",
			}),
		},
		histos: map[string]prometheus.Observer{
			ports.LatencyOutboundCycle: latency(ports.LatencyOutboundCycle, "Duration of one link tick (inbound pass plus send).", 0.00005),
			ports.LatencyInboundCycle:  latency(ports.LatencyInboundCycle, "Duration of one inbound pass.", 0.00001),
			ports.LatencyRecorderFlush: latency(ports.LatencyRecorderFlush, "Duration of one recorder batch insert.", 0.001),
		},
		framesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: framesDroppedName,
			Help: "Telemetry frames dropped by the transmitter.",
		}, []string{"transmitter"}),
		parseErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: parseErrorsName,
			Help: "Control datagrams discarded by the decoder.",
		}, []string{"reason"}),
		commandsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: commandsRejectedName,
			Help: "Decoded commands refused by the dispatcher.",
		}, []string{"opcode", "reason"}),
	}

	for _, c := range p.counters {
		reg.MustRegister(c)
	}
	for _, g := range p.gauges {
		reg.MustRegister(g)
	}
	for _, h := range p.histos {
		reg.MustRegister(h.(prometheus.Collector))
	}
	reg.MustRegister(p.framesDropped, p.parseErrors, p.commandsRejected)
	return p
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.log.Info(msg, kv(fields)...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	p.log.Error(err, msg, kv(fields)...)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

// FrameDropped is counted only; at the sample rate a log line per drop would flood.
func (p *PromObs) FrameDropped(transmitter string, err error) {
	p.framesDropped.WithLabelValues(transmitter).Inc()
	p.log.V(2).Info("frame dropped", "transmitter", transmitter, "error", errString(err))
}

func (p *PromObs) ParseError(err error, size int) {
	reason := ParseReason(err)
	p.parseErrors.WithLabelValues(reason).Inc()
	p.log.V(1).Info("control frame discarded", "reason", reason, "size", size, "error", errString(err))
}

func (p *PromObs) CommandRejected(cmd domain.Command, err error) {
	reason := RejectReason(err)
	p.commandsRejected.WithLabelValues(cmd.Op.String(), reason).Inc()
	p.log.V(1).Info("command rejected", "opcode", cmd.Op.String(), "value", cmd.Value(), "reason", reason, "error", errString(err))
}

// ParseReason maps a decoder error to a bounded label value.
func ParseReason(err error) string {
	switch {
	case errors.Is(err, wire.ErrShortFrame):
		return "short_frame"
	case errors.Is(err, wire.ErrTrailingBytes):
		return "trailing_bytes"
	case errors.Is(err, wire.ErrUnknownOpcode):
		return "unknown_opcode"
	case errors.Is(err, wire.ErrPayloadKind):
		return "payload_kind"
	case errors.Is(err, wire.ErrPayloadRange):
		return "payload_range"
	default:
		return "other"
	}
}

// RejectReason maps a dispatch error to a bounded label value.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, dispatch.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, ports.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, ports.ErrNoVehicle):
		return "no_vehicle"
	case errors.Is(err, dispatch.ErrPayloadKind):
		return "payload_kind"
	case errors.Is(err, dispatch.ErrUnknownOpcode):
		return "unknown_opcode"
	default:
		return "other"
	}
}

func kv(fields []ports.Field) []any {
	out := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		out = append(out, f.Key, f.Value)
	}
	return out
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

var _ ports.Observability = (*PromObs)(nil)
