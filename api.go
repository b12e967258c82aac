package simlink

import (
	"github.com/go-logr/logr"

	base "github.com/ghalamif/simlink/pkg/simlink"
)

// Re-exported errors for convenience.
var (
	ErrNoVehicle         = base.ErrNoVehicle
	ErrUnsupported       = base.ErrUnsupported
	ErrFrameDropped      = base.ErrFrameDropped
	ErrTransmitterClosed = base.ErrTransmitterClosed
	ErrInvalidConfig     = base.ErrInvalidConfig
)

// Type aliases so consumers can import github.com/ghalamif/simlink directly.
type (
	Config          = base.Config
	Policy          = base.Policy
	TelemetryConfig = base.TelemetryConfig
	ControlConfig   = base.ControlConfig
	LoggingConfig   = base.LoggingConfig
	MetricsConfig   = base.MetricsConfig
	RecorderConfig  = base.RecorderConfig
	VehicleConfig   = base.VehicleConfig
	Flow            = base.Flow
	FlowOption      = base.FlowOption
	InOption        = base.InOption
	OutOption       = base.OutOption
	Session         = base.Session
	SessionOption   = base.SessionOption
	Stats           = base.Stats
	Snapshot        = base.Snapshot
	Command         = base.Command
	Opcode          = base.Opcode
	IndicatorState  = base.IndicatorState
	SnapshotHandler = base.SnapshotHandler
	VehicleState    = base.VehicleState
	VehicleControl  = base.VehicleControl
	Transmitter     = base.Transmitter
	Recorder        = base.Recorder
	DatagramQueue   = base.DatagramQueue
	ControlListener = base.ControlListener
	Observability   = base.Observability
	Field           = base.Field
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

func LoadConfigOrDefault(path string) (*Config, error) {
	return base.LoadConfigOrDefault(path)
}

func DefaultConfig() *Config {
	return base.DefaultConfig()
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...SessionOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func InVehicle(state VehicleState, control VehicleControl) InOption {
	return base.InVehicle(state, control)
}

func InControlListener(l ControlListener) InOption {
	return base.InControlListener(l)
}

func InQueue(q DatagramQueue) InOption {
	return base.InQueue(q)
}

func OutTransmitter(tx Transmitter) OutOption {
	return base.OutTransmitter(tx)
}

func OutRecorder(r Recorder) OutOption {
	return base.OutRecorder(r)
}

func OutObservability(obs Observability) OutOption {
	return base.OutObservability(obs)
}

func OutCallback(name string, fn SnapshotHandler) OutOption {
	return base.OutCallback(name, fn)
}

// Session and options.
func NewSession(cfg *Config, opts ...SessionOption) (*Session, error) {
	return base.NewSession(cfg, opts...)
}

func WithVehicle(state VehicleState, control VehicleControl) SessionOption {
	return base.WithVehicle(state, control)
}

func WithTransmitter(tx Transmitter) SessionOption {
	return base.WithTransmitter(tx)
}

func WithRecorder(r Recorder) SessionOption {
	return base.WithRecorder(r)
}

func WithObservability(obs Observability) SessionOption {
	return base.WithObservability(obs)
}

func WithLogger(log logr.Logger) SessionOption {
	return base.WithLogger(log)
}

func WithDatagramQueue(q DatagramQueue) SessionOption {
	return base.WithDatagramQueue(q)
}

func WithControlListener(l ControlListener) SessionOption {
	return base.WithControlListener(l)
}

func NewLogger(debug bool) (logr.Logger, func(), error) {
	return base.NewLogger(debug)
}

// Transmitter adapters.
func NewCallbackTransmitter(name string, fn SnapshotHandler) Transmitter {
	return base.NewCallbackTransmitter(name, fn)
}

func NewChannelTransmitter(name string, buffer int) (Transmitter, <-chan Snapshot, func()) {
	return base.NewChannelTransmitter(name, buffer)
}

// Wire helpers for dashboard-side code.
func EncodeCommand(c Command) []byte {
	return base.EncodeCommand(c)
}

func DecodeTelemetry(frame []byte) (Snapshot, error) {
	return base.DecodeTelemetry(frame)
}
