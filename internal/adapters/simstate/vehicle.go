// Package simstate is an in-process simulated vehicle implementing the
// simulation boundary. It drives a synthetic lap so the link can run without
// a simulator attached, and it is the reference for the locking discipline a
// real simulator adapter must follow: each control field has its own lock.
package simstate

import (
	"context"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
)

type Options struct {
	Name string
	// LiveBrakeBias reports whether the car accepts bias changes while driving.
	LiveBrakeBias bool
	MaxRPM        float32
	LapLength     float64 // metres
}

func (o *Options) applyDefaults() {
	if o.Name == "" {
		o.Name = "simlink-demo"
	}
	if o.MaxRPM <= 0 {
		o.MaxRPM = 8500
	}
	if o.LapLength <= 0 {
		o.LapLength = 4200
	}
}

// guarded is a single field behind its own lock.
type guarded[T any] struct {
	mu sync.RWMutex
	v  T
}

func (g *guarded[T]) load() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.v
}

func (g *guarded[T]) store(v T) {
	g.mu.Lock()
	g.v = v
	g.mu.Unlock()
}

// ControlState is every dispatcher-owned field, read for inspection.
type ControlState struct {
	TCLevel       int32
	ABSLevel      int32
	EngineMap     int32
	BrakeBias     float32
	TurboPressure float32
	domain.ControlsPage
}

type Vehicle struct {
	opts   Options
	active atomic.Bool

	physics guarded[domain.PhysicsPage]
	session guarded[domain.SessionPage]

	tcLevel    guarded[int32]
	absLevel   guarded[int32]
	engineMap  guarded[int32]
	brakeBias  guarded[float32]
	turbo      guarded[float32]
	headlights guarded[bool]
	indicator  guarded[domain.IndicatorState]
	hazards    guarded[bool]
	wipers     guarded[bool]
	pitLimiter guarded[bool]
	pitMenu    guarded[bool]
	ignition   guarded[bool]

	// integrator state, touched only by Step
	elapsed  time.Duration
	distance float64
	lapTime  time.Duration
	laps     int32
	best     time.Duration
	last     time.Duration
	fuel     float64
	wear     [domain.WheelCount]float64
}

func New(opts Options) *Vehicle {
	opts.applyDefaults()
	v := &Vehicle{opts: opts, fuel: 60}
	v.tcLevel.store(3)
	v.absLevel.store(3)
	v.engineMap.store(1)
	v.brakeBias.store(0.58)
	v.turbo.store(1.0)
	v.ignition.store(true)
	v.active.Store(true)
	v.Step(0)
	return v
}

func (v *Vehicle) Name() string { return v.opts.Name }

// SetActive simulates the player entering or leaving the car.
func (v *Vehicle) SetActive(active bool) { v.active.Store(active) }

func (v *Vehicle) Physics() (domain.PhysicsPage, error) {
	if !v.active.Load() {
		return domain.PhysicsPage{}, ports.ErrNoVehicle
	}
	p := v.physics.load()
	p.TCLevel = v.tcLevel.load()
	p.ABSLevel = v.absLevel.load()
	p.EngineMap = v.engineMap.load()
	p.BrakeBias = v.brakeBias.load()
	p.TurboBoost = v.turbo.load()
	p.PitLimiter = v.pitLimiter.load()
	return p, nil
}

func (v *Vehicle) Session() (domain.SessionPage, error) {
	if !v.active.Load() {
		return domain.SessionPage{}, ports.ErrNoVehicle
	}
	return v.session.load(), nil
}

func (v *Vehicle) Controls() (domain.ControlsPage, error) {
	if !v.active.Load() {
		return domain.ControlsPage{}, ports.ErrNoVehicle
	}
	return v.controlsPage(), nil
}

func (v *Vehicle) controlsPage() domain.ControlsPage {
	return domain.ControlsPage{
		Headlights: v.headlights.load(),
		Indicator:  v.indicator.load(),
		Hazards:    v.hazards.load(),
		Wipers:     v.wipers.load(),
		Ignition:   v.ignition.load(),
		PitMenu:    v.pitMenu.load(),
	}
}

// ControlState reads every control field regardless of whether a vehicle is active.
func (v *Vehicle) ControlState() ControlState {
	return ControlState{
		TCLevel:       v.tcLevel.load(),
		ABSLevel:      v.absLevel.load(),
		EngineMap:     v.engineMap.load(),
		BrakeBias:     v.brakeBias.load(),
		TurboPressure: v.turbo.load(),
		ControlsPage:  v.controlsPage(),
	}
}

func setIfActive[T any](v *Vehicle, g *guarded[T], val T) error {
	if !v.active.Load() {
		return ports.ErrNoVehicle
	}
	g.store(val)
	return nil
}

func (v *Vehicle) SetTractionControl(level int32) error { return setIfActive(v, &v.tcLevel, level) }
func (v *Vehicle) SetABS(level int32) error              { return setIfActive(v, &v.absLevel, level) }
func (v *Vehicle) SetEngineMap(index int32) error        { return setIfActive(v, &v.engineMap, index) }
func (v *Vehicle) SetTurboPressure(bar float32) error    { return setIfActive(v, &v.turbo, bar) }
func (v *Vehicle) SetHeadlights(on bool) error           { return setIfActive(v, &v.headlights, on) }
func (v *Vehicle) SetHazards(on bool) error              { return setIfActive(v, &v.hazards, on) }
func (v *Vehicle) SetWipers(on bool) error               { return setIfActive(v, &v.wipers, on) }
func (v *Vehicle) SetPitLimiter(on bool) error           { return setIfActive(v, &v.pitLimiter, on) }
func (v *Vehicle) SetPitMenu(open bool) error            { return setIfActive(v, &v.pitMenu, open) }
func (v *Vehicle) SetIgnition(on bool) error             { return setIfActive(v, &v.ignition, on) }

func (v *Vehicle) SetIndicator(state domain.IndicatorState) error {
	return setIfActive(v, &v.indicator, state)
}

func (v *Vehicle) SetBrakeBias(front float32) error {
	if !v.opts.LiveBrakeBias {
		return ports.ErrUnsupported
	}
	return setIfActive(v, &v.brakeBias, front)
}

// Drive advances the simulation every interval until ctx is done.
func (v *Vehicle) Drive(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			v.Step(interval)
		}
	}
}

// Step integrates the synthetic lap by dt. It must not be called concurrently with itself.
func (v *Vehicle) Step(dt time.Duration) {
	v.elapsed += dt
	t := v.elapsed.Seconds()

	limiter := v.pitLimiter.load()
	speed := 150 + 90*math.Sin(t/6) // km/h
	if limiter {
		speed = 60
	}
	if !v.ignition.load() {
		speed = 0
	}
	mps := speed / 3.6

	v.distance += mps * dt.Seconds()
	v.lapTime += dt
	if v.distance >= v.opts.LapLength {
		v.distance -= v.opts.LapLength
		v.laps++
		v.last = v.lapTime
		if v.best == 0 || v.lapTime < v.best {
			v.best = v.lapTime
		}
		v.lapTime = 0
	}

	gear := int32(min(2+speed/45, 6))
	if speed == 0 {
		gear = 1 // neutral
	}
	rpm := float32(0)
	if speed > 0 {
		rpm = min(v.opts.MaxRPM, float32(1200+speed*38/float64(gear-1)))
	}

	v.fuel = max(v.fuel-0.0009*mps*dt.Seconds(), 0)

	heading := 2 * math.Pi * v.distance / v.opts.LapLength
	radius := v.opts.LapLength / (2 * math.Pi)
	lat := float32(mps * mps / radius / 9.81)
	lon := float32(90 / 6 * math.Cos(t/6) / 3.6 / 9.81)

	var p domain.PhysicsPage
	p.SpeedKmh = float32(speed)
	p.RPM = rpm
	p.MaxRPM = v.opts.MaxRPM
	p.Gear = gear
	p.GForce = domain.Vec3{lat, lon, 1}
	p.Position = domain.Vec3{float32(radius * math.Cos(heading)), 0, float32(radius * math.Sin(heading))}
	p.Velocity = domain.Vec3{float32(-mps * math.Sin(heading)), 0, float32(mps * math.Cos(heading))}
	p.Acceleration = domain.Vec3{lat * 9.81, 0, lon * 9.81}
	p.Fuel = float32(v.fuel)
	p.WaterTemp = 85 + float32(speed/40)
	p.OilTemp = 95 + float32(speed/30)
	p.OilPressure = 2 + float32(rpm/2500)
	p.TCActive = lon > 0.3 && v.tcLevel.load() > 0
	p.ABSActive = lon < -0.3 && v.absLevel.load() > 0
	p.EngineLoad = float32(min(max(0.5+float64(lon), 0), 1))

	for i, w := range domain.Wheels {
		front := w == domain.FrontLeft || w == domain.FrontRight
		v.wear[i] = min(v.wear[i]+0.0000004*mps*dt.Seconds()*(1+float64(i%2)), 1)
		base := float32(75 + speed/8)
		if front {
			base += 4
		}
		p.Wheels[i] = domain.WheelPhysics{
			Pressure:         1.9 + float32(speed/2000),
			TempInner:        base + 6,
			TempMiddle:       base + 3,
			TempOuter:        base,
			TempCore:         base + 10,
			Wear:             float32(v.wear[i]),
			SuspensionTravel: 0.03 + lat*0.004,
			Load:             3600 + lat*400*sign(i),
			AngularSpeed:     float32(mps / 0.33),
			Slip:             0.02 * lat,
			BrakePressure:    float32(max(-float64(lon), 0)),
		}
	}
	v.physics.store(p)

	v.session.store(domain.SessionPage{
		CurrentLapMs:  int32(v.lapTime.Milliseconds()),
		LastLapMs:     int32(v.last.Milliseconds()),
		BestLapMs:     int32(v.best.Milliseconds()),
		CompletedLaps: v.laps,
		InPit:         limiter && speed <= 60,
	})
}

// sign gives outside wheels (right side in a left-hand oval) more load.
func sign(i int) float32 {
	if i%2 == 1 {
		return 1
	}
	return -1
}

var (
	_ ports.VehicleState   = (*Vehicle)(nil)
	_ ports.VehicleControl = (*Vehicle)(nil)
)
