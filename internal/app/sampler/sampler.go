package sampler

import (
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
)

// ErrTooSoon is returned when Sample is called faster than the configured rate allows.
var ErrTooSoon = errors.New("sampler: called before minimum interval elapsed")

const kmhToMph = 0.621371

// Sampler turns the simulation's pages into Snapshots. A cycle that cannot read
// a live vehicle publishes nothing and leaves the previous Snapshot in place.
type Sampler struct {
	state       ports.VehicleState
	now         func() time.Time
	minInterval time.Duration

	seq    uint32
	lastAt time.Time
	latest atomic.Pointer[domain.Snapshot]
}

type Option func(*Sampler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Sampler) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMinInterval bounds how often Sample may publish.
func WithMinInterval(d time.Duration) Option {
	return func(s *Sampler) {
		if d > 0 {
			s.minInterval = d
		}
	}
}

func New(state ports.VehicleState, opts ...Option) *Sampler {
	s := &Sampler{state: state, now: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Sample reads the vehicle and publishes a new Snapshot. Errors wrapping
// ports.ErrNoVehicle mean the cycle must be skipped, not zero-filled.
// Sample is called from a single goroutine; Latest may be called from any.
func (s *Sampler) Sample() (domain.Snapshot, error) {
	now := s.now()
	if s.minInterval > 0 && !s.lastAt.IsZero() && now.Sub(s.lastAt) < s.minInterval {
		return domain.Snapshot{}, ErrTooSoon
	}

	phys, err := s.state.Physics()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read physics: %w", err)
	}
	sess, err := s.state.Session()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read session: %w", err)
	}
	ctrl, err := s.state.Controls()
	if err != nil {
		return domain.Snapshot{}, fmt.Errorf("read controls: %w", err)
	}

	s.seq++
	snap := build(s.seq, now, phys, sess, ctrl)
	s.lastAt = now
	s.latest.Store(&snap)
	return snap, nil
}

// Latest returns a copy of the last published Snapshot.
func (s *Sampler) Latest() (domain.Snapshot, bool) {
	p := s.latest.Load()
	if p == nil {
		return domain.Snapshot{}, false
	}
	return *p, true
}

func build(seq uint32, at time.Time, p domain.PhysicsPage, sess domain.SessionPage, c domain.ControlsPage) domain.Snapshot {
	snap := domain.Snapshot{
		Seq:       seq,
		Timestamp: at,

		SpeedKmh: nonNeg(p.SpeedKmh),
		SpeedMph: nonNeg(p.SpeedKmh) * kmhToMph,
		RPM:      nonNeg(p.RPM),
		MaxRPM:   nonNeg(p.MaxRPM),
		Gear:     p.Gear,

		GForce:       finiteVec(p.GForce),
		Position:     finiteVec(p.Position),
		Velocity:     finiteVec(p.Velocity),
		Acceleration: finiteVec(p.Acceleration),

		LapTime:  msToSeconds(sess.CurrentLapMs),
		LastLap:  msToSeconds(sess.LastLapMs),
		BestLap:  msToSeconds(sess.BestLapMs),
		LapCount: max(sess.CompletedLaps, 0),

		Fuel:        nonNeg(p.Fuel),
		WaterTemp:   finite(p.WaterTemp),
		OilTemp:     finite(p.OilTemp),
		OilPressure: nonNeg(p.OilPressure),

		TCLevel:       level(p.TCLevel),
		TCActive:      p.TCActive,
		ABSLevel:      level(p.ABSLevel),
		ABSActive:     p.ABSActive,
		BrakeBias:     clamp(p.BrakeBias, 0, 1),
		PitLimiter:    p.PitLimiter,
		InPit:         sess.InPit,
		EngineMap:     level(p.EngineMap),
		TurboPressure: nonNeg(p.TurboBoost),
		EngineLoad:    clamp(p.EngineLoad, 0, 1),

		Headlights: c.Headlights,
		Indicator:  c.Indicator,
		Hazards:    c.Hazards,
		Wipers:     c.Wipers,
		Ignition:   c.Ignition,
		PitMenu:    c.PitMenu,
	}

	for _, w := range domain.Wheels {
		wp := p.Wheels[w]
		snap.TyrePressure[w] = nonNeg(wp.Pressure)
		snap.TyreTempInner[w] = finite(wp.TempInner)
		snap.TyreTempMiddle[w] = finite(wp.TempMiddle)
		snap.TyreTempOuter[w] = finite(wp.TempOuter)
		snap.TyreTempCore[w] = finite(wp.TempCore)
		snap.TyreWear[w] = wearRemaining(wp.Wear)
		snap.SuspensionTravel[w] = finite(wp.SuspensionTravel)
		snap.WheelLoad[w] = nonNeg(wp.Load)
		snap.WheelAngularSpeed[w] = finite(wp.AngularSpeed)
		snap.WheelSlip[w] = finite(wp.Slip)
		snap.BrakePressure[w] = nonNeg(wp.BrakePressure)
	}
	return snap
}

func msToSeconds(ms int32) float32 {
	if ms <= 0 {
		return 0
	}
	return float32(ms) / 1000
}

// wearRemaining maps a worn fraction onto percent of tread remaining.
func wearRemaining(worn float32) float32 {
	return clamp((1-worn)*100, 0, 100)
}

func level(v int32) uint8 {
	return uint8(min(max(v, 0), 255))
}

// finite maps NaN and infinities from the simulation to zero; the frame and
// the recorder's JSON column cannot carry them.
func finite(v float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return 0
	}
	return v
}

func finiteVec(v domain.Vec3) domain.Vec3 {
	for i := range v {
		v[i] = finite(v[i])
	}
	return v
}

func nonNeg(v float32) float32 {
	return max(finite(v), 0)
}

// clamp treats a non-finite v as lo.
func clamp(v, lo, hi float32) float32 {
	if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
		return lo
	}
	return min(max(v, lo), hi)
}
