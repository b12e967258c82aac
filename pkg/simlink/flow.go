package simlink

import (
	"context"
	"fmt"
	"slices"
)

// Flow builds a Session in two halves: In covers what feeds the link (the
// simulation, the control socket and its backlog) and Out covers where
// telemetry goes (transmitter, recorder, observability). Out is terminal and
// does not mutate the Flow, so one Flow can build several sessions.
type Flow struct {
	cfg  *Config
	base []SessionOption
	in   []SessionOption
}

// FlowOption adjusts a Flow while it is being created.
type FlowOption func(*Flow)

// InOption is a SessionOption restricted to the inbound side.
type InOption func(*sessionOverrides)

// OutOption is a SessionOption restricted to the outbound side.
type OutOption func(*sessionOverrides)

// Conf loads YAML from path and starts a Flow.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// WithFlowOptions passes raw session options through the builder.
func WithFlowOptions(opts ...SessionOption) FlowOption {
	return func(f *Flow) {
		f.base = append(f.base, opts...)
	}
}

// Config exposes the configuration so callers can adjust it before Out.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

func (f *Flow) In(opts ...InOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		f.in = append(f.in, SessionOption(opt))
	}
	return f
}

// Out builds a Session from the configuration, the inbound options gathered
// so far and opts. Later options win over earlier ones.
func (f *Flow) Out(opts ...OutOption) (*Session, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	all := slices.Concat(f.base, f.in)
	for _, opt := range opts {
		all = append(all, SessionOption(opt))
	}
	return NewSession(f.cfg, all...)
}

// Run builds the session with Out and runs it until ctx is done.
func (f *Flow) Run(ctx context.Context, opts ...OutOption) error {
	s, err := f.Out(opts...)
	if err != nil {
		return err
	}
	return s.Run(ctx)
}

func InVehicle(state VehicleState, control VehicleControl) InOption {
	return InOption(WithVehicle(state, control))
}

func InControlListener(l ControlListener) InOption {
	return InOption(WithControlListener(l))
}

func InQueue(q DatagramQueue) InOption {
	return InOption(WithDatagramQueue(q))
}

func OutTransmitter(tx Transmitter) OutOption {
	return OutOption(WithTransmitter(tx))
}

func OutRecorder(r Recorder) OutOption {
	return OutOption(WithRecorder(r))
}

func OutObservability(obs Observability) OutOption {
	return OutOption(WithObservability(obs))
}

// OutCallback sends every frame, decoded back into a Snapshot, to fn.
func OutCallback(name string, fn SnapshotHandler) OutOption {
	return OutTransmitter(NewCallbackTransmitter(name, fn))
}
