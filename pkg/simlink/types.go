package simlink

import (
	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
	"github.com/ghalamif/simlink/internal/wire"
)

// Snapshot is one instant of vehicle telemetry, as carried by a frame.
type Snapshot = domain.Snapshot

// Command is a decoded control request.
type Command = domain.Command

// Opcode identifies a control command.
type Opcode = domain.Opcode

type (
	PayloadKind    = domain.PayloadKind
	IndicatorState = domain.IndicatorState
	Wheel          = domain.Wheel
	PhysicsPage    = domain.PhysicsPage
	SessionPage    = domain.SessionPage
	ControlsPage   = domain.ControlsPage
)

// VehicleState is the read side of the simulation boundary.
type VehicleState = ports.VehicleState

// VehicleControl is the write side of the simulation boundary.
type VehicleControl = ports.VehicleControl

// Transmitter delivers encoded telemetry frames best-effort.
type Transmitter = ports.Transmitter

// Recorder persists snapshots off the hot path.
type Recorder = ports.Recorder

// DatagramQueue buffers received control datagrams between polls.
type DatagramQueue = ports.DatagramQueue

type Datagram = ports.Datagram

// ControlListener owns the inbound control socket.
type ControlListener = ports.ControlListener

// Observability receives metrics and link events.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

const (
	OpTractionControl = domain.OpTractionControl
	OpABS             = domain.OpABS
	OpBrakeBias       = domain.OpBrakeBias
	OpTurboPressure   = domain.OpTurboPressure
	OpHeadlights      = domain.OpHeadlights
	OpLeftIndicator   = domain.OpLeftIndicator
	OpRightIndicator  = domain.OpRightIndicator
	OpHazardLights    = domain.OpHazardLights
	OpWipers          = domain.OpWipers
	OpPitLimiter      = domain.OpPitLimiter
	OpPitMenu         = domain.OpPitMenu
	OpEngineMap       = domain.OpEngineMap
	OpIgnition        = domain.OpIgnition
)

var (
	// ErrNoVehicle is returned by VehicleState implementations when no car is live.
	ErrNoVehicle = ports.ErrNoVehicle
	// ErrUnsupported is returned by VehicleControl implementations for writes the car cannot take.
	ErrUnsupported = ports.ErrUnsupported
)

// EncodeCommand builds a control datagram, for dashboard-side senders.
func EncodeCommand(c Command) []byte { return wire.EncodeCommand(c) }

// DecodeCommand parses a control datagram.
func DecodeCommand(frame []byte) (Command, error) { return wire.DecodeCommand(frame) }

// DecodeTelemetry parses a telemetry frame.
func DecodeTelemetry(frame []byte) (Snapshot, error) { return wire.DecodeTelemetry(frame) }

// EncodeTelemetry serialises a Snapshot into a frame.
func EncodeTelemetry(s Snapshot) []byte { return wire.EncodeTelemetry(s) }

func IntCommand(op Opcode, v int32) Command     { return domain.IntCommand(op, v) }
func FloatCommand(op Opcode, v float32) Command { return domain.FloatCommand(op, v) }
func BoolCommand(op Opcode, v bool) Command     { return domain.BoolCommand(op, v) }
