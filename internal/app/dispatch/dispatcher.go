// Package dispatch applies decoded control commands to the simulation.
//
// Every opcode has exactly one handler and each handler owns exactly one
// vehicle control. Handlers write absolute targets, so a duplicated datagram
// leaves the vehicle in the same state as a single one. The two indicator
// opcodes share one handler that owns the indicator state machine.
package dispatch

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
)

var (
	ErrUnknownOpcode = errors.New("unknown opcode")
	ErrPayloadKind   = errors.New("payload kind does not match opcode")
	ErrOutOfRange    = errors.New("payload out of range")
)

// Rejection reports a command that was not applied. No state was changed.
type Rejection struct {
	Cmd domain.Command
	Err error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("reject %s=%v: %v", r.Cmd.Op, r.Cmd.Value(), r.Err)
}

func (r *Rejection) Unwrap() error { return r.Err }

type handler struct {
	kind  domain.PayloadKind
	apply func(domain.Command) error
}

// Dispatcher maps opcodes to handlers. It is safe for concurrent use.
type Dispatcher struct {
	table      map[domain.Opcode]handler
	indicators indicatorMachine
}

func New(ctrl ports.VehicleControl) *Dispatcher {
	d := &Dispatcher{}
	d.indicators.set = ctrl.SetIndicator
	d.table = map[domain.Opcode]handler{
		domain.OpTractionControl: intRange(0, 10, ctrl.SetTractionControl),
		domain.OpABS:             intRange(0, 10, ctrl.SetABS),
		domain.OpEngineMap:       intRange(1, 8, ctrl.SetEngineMap),
		domain.OpBrakeBias:       floatRange(0, 1, ctrl.SetBrakeBias),
		domain.OpTurboPressure:   floatRange(0, 3, ctrl.SetTurboPressure),
		domain.OpHeadlights:      flag(ctrl.SetHeadlights),
		domain.OpHazardLights:    flag(ctrl.SetHazards),
		domain.OpWipers:          flag(ctrl.SetWipers),
		domain.OpPitLimiter:      flag(ctrl.SetPitLimiter),
		domain.OpPitMenu:         flag(ctrl.SetPitMenu),
		domain.OpIgnition:        flag(ctrl.SetIgnition),
		domain.OpLeftIndicator:   d.indicatorHandler(domain.IndicatorLeft),
		domain.OpRightIndicator:  d.indicatorHandler(domain.IndicatorRight),
	}
	return d
}

// Dispatch applies cmd. A nil error means applied; otherwise the error is a
// *Rejection and the vehicle is untouched.
func (d *Dispatcher) Dispatch(cmd domain.Command) error {
	h, ok := d.table[cmd.Op]
	if !ok {
		return &Rejection{Cmd: cmd, Err: ErrUnknownOpcode}
	}
	if cmd.Kind != h.kind {
		return &Rejection{Cmd: cmd, Err: fmt.Errorf("%w: %s", ErrPayloadKind, cmd.Kind)}
	}
	if err := h.apply(cmd); err != nil {
		return &Rejection{Cmd: cmd, Err: err}
	}
	return nil
}

// Indicator returns the current indicator state machine value.
func (d *Dispatcher) Indicator() domain.IndicatorState {
	d.indicators.mu.Lock()
	defer d.indicators.mu.Unlock()
	return d.indicators.state
}

func intRange(lo, hi int32, set func(int32) error) handler {
	return handler{
		kind: domain.PayloadInt,
		apply: func(c domain.Command) error {
			if c.Int < lo || c.Int > hi {
				return fmt.Errorf("%w: %d not in [%d, %d]", ErrOutOfRange, c.Int, lo, hi)
			}
			return set(c.Int)
		},
	}
}

func floatRange(lo, hi float32, set func(float32) error) handler {
	return handler{
		kind: domain.PayloadFloat,
		apply: func(c domain.Command) error {
			// written so NaN fails the check
			if !(c.Float >= lo && c.Float <= hi) {
				return fmt.Errorf("%w: %v not in [%v, %v]", ErrOutOfRange, c.Float, lo, hi)
			}
			return set(c.Float)
		},
	}
}

func flag(set func(bool) error) handler {
	return handler{
		kind:  domain.PayloadBool,
		apply: func(c domain.Command) error { return set(c.Bool) },
	}
}

func (d *Dispatcher) indicatorHandler(side domain.IndicatorState) handler {
	return handler{
		kind:  domain.PayloadBool,
		apply: func(c domain.Command) error { return d.indicators.apply(side, c.Bool) },
	}
}

// indicatorMachine holds {off, left, right}. Switching one side on replaces
// the other; switching a side off only matters if that side is active.
type indicatorMachine struct {
	mu    sync.Mutex
	state domain.IndicatorState
	set   func(domain.IndicatorState) error
}

func (m *indicatorMachine) apply(side domain.IndicatorState, on bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := m.state
	switch {
	case on:
		next = side
	case m.state == side:
		next = domain.IndicatorOff
	}

	if err := m.set(next); err != nil {
		return err
	}
	m.state = next
	return nil
}
