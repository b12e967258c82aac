package observability

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ghalamif/simlink/internal/app/dispatch"
	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
	"github.com/ghalamif/simlink/internal/wire"
)

func TestPromObsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg, testr.New(t))

	obs.IncCounter(ports.MetricFramesSent, 5)
	if got := testutil.ToFloat64(obs.counters[ports.MetricFramesSent]); got != 5 {
		t.Fatalf("expected frames sent 5, got %f", got)
	}

	obs.IncCounter(ports.MetricBacklogRefused, 2)
	if got := testutil.ToFloat64(obs.counters[ports.MetricBacklogRefused]); got != 2 {
		t.Fatalf("expected backlog refused 2, got %f", got)
	}

	obs.SetGauge(ports.GaugeBacklogLength, 42)
	if got := testutil.ToFloat64(obs.gauges[ports.GaugeBacklogLength]); got != 42 {
		t.Fatalf("expected backlog gauge 42, got %f", got)
	}

	obs.ObserveLatency(ports.LatencyOutboundCycle, 0.001)
	hCollector := obs.histos[ports.LatencyOutboundCycle].(prometheus.Collector)
	if samples := testutil.CollectAndCount(hCollector); samples != 1 {
		t.Fatalf("expected latency histogram to record 1 sample, got %d", samples)
	}

	obs.IncCounter("not_a_metric", 1)
	obs.SetGauge("not_a_gauge", 1)
	obs.ObserveLatency("not_a_histogram", 1)
}

func TestPromObsEvents(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs := NewPromObs(reg, testr.New(t))

	obs.FrameDropped("udp:127.0.0.1:9996", fmt.Errorf("write: no buffer space"))
	obs.FrameDropped("udp:127.0.0.1:9996", nil)
	if got := testutil.ToFloat64(obs.framesDropped.WithLabelValues("udp:127.0.0.1:9996")); got != 2 {
		t.Fatalf("expected 2 dropped frames, got %f", got)
	}

	_, err := wire.DecodeCommand([]byte{1, 2})
	obs.ParseError(err, 2)
	if got := testutil.ToFloat64(obs.parseErrors.WithLabelValues("short_frame")); got != 1 {
		t.Fatalf("expected short_frame parse error, got %f", got)
	}

	cmd := domain.IntCommand(domain.OpTractionControl, 11)
	obs.CommandRejected(cmd, &dispatch.Rejection{Cmd: cmd, Err: dispatch.ErrOutOfRange})
	if got := testutil.ToFloat64(obs.commandsRejected.WithLabelValues(cmd.Op.String(), "out_of_range")); got != 1 {
		t.Fatalf("expected out_of_range rejection, got %f", got)
	}

	expected := `
# HELP simlink_parse_errors_total Control datagrams discarded by the decoder.
# TYPE simlink_parse_errors_total counter
simlink_parse_errors_total{reason="short_frame"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), parseErrorsName); err != nil {
		t.Fatal(err)
	}
}

func TestReasons(t *testing.T) {
	cases := map[error]string{
		wire.ErrTrailingBytes:                      "trailing_bytes",
		&wire.ParseError{Err: wire.ErrPayloadKind}: "payload_kind",
		wire.ErrPayloadRange:                       "payload_range",
		fmt.Errorf("x"):                            "other",
	}
	for err, want := range cases {
		if got := ParseReason(err); got != want {
			t.Errorf("ParseReason(%v) = %q, want %q", err, got, want)
		}
	}

	rejects := map[error]string{
		ports.ErrUnsupported:      "unsupported",
		ports.ErrNoVehicle:        "no_vehicle",
		dispatch.ErrPayloadKind:   "payload_kind",
		dispatch.ErrUnknownOpcode: "unknown_opcode",
	}
	for err, want := range rejects {
		if got := RejectReason(err); got != want {
			t.Errorf("RejectReason(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestNewPromObsDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPromObs(reg, testr.New(t))
	defer func() {
		if recover() == nil {
			t.Fatal("expected duplicate registration to panic")
		}
	}()
	NewPromObs(reg, testr.New(t))
}
