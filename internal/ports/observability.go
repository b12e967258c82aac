package ports

import "github.com/ghalamif/simlink/internal/domain"

// Metric names shared by the link loops and the observability adapter.
const (
	MetricFramesSent        = "simlink_frames_sent_total"
	MetricSamplesSkipped    = "simlink_samples_skipped_total"
	MetricDatagramsReceived = "simlink_control_datagrams_received_total"
	MetricReceiveErrors     = "simlink_control_receive_errors_total"
	MetricBacklogRefused    = "simlink_control_backlog_refused_total"
	MetricCommandsApplied   = "simlink_commands_applied_total"
	MetricCommandsStale     = "simlink_commands_stale_total"
	MetricCommandsDeferred  = "simlink_commands_deferred_total"
	MetricRecorderWritten   = "simlink_recorder_snapshots_written_total"
	MetricRecorderDropped   = "simlink_recorder_snapshots_dropped_total"

	GaugeBacklogLength = "simlink_control_backlog_length"
	GaugeLastSequence  = "simlink_last_sequence"

	LatencyOutboundCycle = "simlink_outbound_cycle_seconds"
	LatencyInboundCycle  = "simlink_inbound_cycle_seconds"
	LatencyRecorderFlush = "simlink_recorder_flush_seconds"
)

type Observability interface {
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	ObserveLatency(name string, seconds float64)

	SetGauge(name string, v float64)

	// FrameDropped records an outbound frame that did not leave the process.
	FrameDropped(reason string, err error)
	// ParseError records an inbound datagram discarded by the decoder.
	ParseError(err error, size int)
	// CommandRejected records a decoded command the dispatcher refused.
	CommandRejected(cmd domain.Command, err error)
}

type Field struct {
	Key   string
	Value any
}

// NopObservability discards everything.
type NopObservability struct{}

func (NopObservability) LogInfo(string, ...Field) {}
func (NopObservability) LogError(string, error, ...Field) {}
func (NopObservability) IncCounter(string, float64) {}
func (NopObservability) ObserveLatency(string, float64) {}
func (NopObservability) SetGauge(string, float64) {}
func (NopObservability) FrameDropped(string, error) {}
func (NopObservability) ParseError(error, int) {}
func (NopObservability) CommandRejected(domain.Command, error) {}

var _ Observability = NopObservability{}
