package ports

import (
	"errors"

	"github.com/ghalamif/simlink/internal/domain"
)

// ErrNoVehicle is returned by VehicleState reads when no player vehicle is active.
var ErrNoVehicle = errors.New("no active vehicle")

// ErrUnsupported is returned by VehicleControl writes the active vehicle cannot honour.
var ErrUnsupported = errors.New("not supported by active vehicle")

// VehicleState is the read side of the simulation boundary.
type VehicleState interface {
	Physics() (domain.PhysicsPage, error)
	Session() (domain.SessionPage, error)
	Controls() (domain.ControlsPage, error)
}

// VehicleControl is the write side of the simulation boundary. Every setter
// takes an absolute target; implementations guard each field independently.
type VehicleControl interface {
	SetTractionControl(level int32) error
	SetABS(level int32) error
	SetBrakeBias(front float32) error
	SetTurboPressure(bar float32) error
	SetEngineMap(index int32) error
	SetHeadlights(on bool) error
	SetIndicator(state domain.IndicatorState) error
	SetHazards(on bool) error
	SetWipers(on bool) error
	SetPitLimiter(on bool) error
	SetPitMenu(open bool) error
	SetIgnition(on bool) error
}
