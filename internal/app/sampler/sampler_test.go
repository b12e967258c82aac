package sampler

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
)

type stubState struct {
	phys     domain.PhysicsPage
	sess     domain.SessionPage
	ctrl     domain.ControlsPage
	inactive bool
	err      error
}

func (s *stubState) Physics() (domain.PhysicsPage, error) {
	if s.inactive {
		return domain.PhysicsPage{}, ports.ErrNoVehicle
	}
	if s.err != nil {
		return domain.PhysicsPage{}, s.err
	}
	return s.phys, nil
}

func (s *stubState) Session() (domain.SessionPage, error) {
	if s.inactive {
		return domain.SessionPage{}, ports.ErrNoVehicle
	}
	return s.sess, nil
}

func (s *stubState) Controls() (domain.ControlsPage, error) {
	if s.inactive {
		return domain.ControlsPage{}, ports.ErrNoVehicle
	}
	return s.ctrl, nil
}

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time           { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func livePages() *stubState {
	st := &stubState{
		phys: domain.PhysicsPage{
			SpeedKmh:   100,
			RPM:        6000,
			MaxRPM:     8000,
			Gear:       4,
			Fuel:       40,
			TCLevel:    3,
			ABSLevel:   2,
			BrakeBias:  0.56,
			EngineMap:  1,
			TurboBoost: 1.2,
			EngineLoad: 0.7,
		},
		sess: domain.SessionPage{CurrentLapMs: 61234, LastLapMs: 90500, BestLapMs: 89999, CompletedLaps: 3},
		ctrl: domain.ControlsPage{Headlights: true, Indicator: domain.IndicatorLeft},
	}
	for i := range st.phys.Wheels {
		st.phys.Wheels[i] = domain.WheelPhysics{
			Pressure: 27 + float32(i),
			TempCore: 80 + float32(i),
			Wear:     0.1 * float32(i),
			Load:     3000 + float32(i),
		}
	}
	return st
}

func TestSampleConvertsUnits(t *testing.T) {
	clock := &fakeClock{t: time.Unix(1000, 0)}
	s := New(livePages(), WithClock(clock.now))

	snap, err := s.Sample()
	require.NoError(t, err)

	assert.Equal(t, uint32(1), snap.Seq)
	assert.Equal(t, clock.t, snap.Timestamp)
	assert.InDelta(t, 62.1371, snap.SpeedMph, 1e-3)
	assert.InDelta(t, 61.234, snap.LapTime, 1e-4)
	assert.InDelta(t, 90.5, snap.LastLap, 1e-4)
	assert.Equal(t, int32(3), snap.LapCount)
	assert.Equal(t, uint8(3), snap.TCLevel)
	assert.True(t, snap.Headlights)
	assert.Equal(t, domain.IndicatorLeft, snap.Indicator)
}

func TestSampleWheelOrderFixed(t *testing.T) {
	s := New(livePages())

	snap, err := s.Sample()
	require.NoError(t, err)

	assert.Equal(t, domain.PerWheel{27, 28, 29, 30}, snap.TyrePressure)
	assert.Equal(t, domain.PerWheel{80, 81, 82, 83}, snap.TyreTempCore)
	assert.Equal(t, domain.PerWheel{3000, 3001, 3002, 3003}, snap.WheelLoad)
	assert.InDelta(t, 100, snap.TyreWear[domain.FrontLeft], 1e-4)
	assert.InDelta(t, 70, snap.TyreWear[domain.RearRight], 1e-4)
}

func TestSampleClampsDomainRanges(t *testing.T) {
	st := livePages()
	st.phys.BrakeBias = 1.4
	st.phys.OilPressure = -2
	st.phys.Wheels[domain.FrontRight].Wear = 1.5
	st.phys.Wheels[domain.RearLeft].Wear = -0.2
	st.sess.BestLapMs = -1

	snap, err := New(st).Sample()
	require.NoError(t, err)

	assert.Equal(t, float32(1), snap.BrakeBias)
	assert.Equal(t, float32(0), snap.OilPressure)
	assert.Equal(t, float32(0), snap.TyreWear[domain.FrontRight])
	assert.Equal(t, float32(100), snap.TyreWear[domain.RearLeft])
	assert.Equal(t, float32(0), snap.BestLap)
}

func TestSampleNonFiniteInputsStayInRange(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))

	st := livePages()
	st.phys.BrakeBias = nan
	st.phys.EngineLoad = nan
	st.phys.TurboBoost = inf
	st.phys.Fuel = -inf
	st.phys.WaterTemp = nan
	st.phys.GForce[0] = inf
	st.phys.Wheels[domain.FrontLeft].Wear = nan
	st.phys.Wheels[domain.FrontRight].Pressure = nan
	st.phys.Wheels[domain.RearRight].Slip = -inf

	snap, err := New(st).Sample()
	require.NoError(t, err)

	assert.Equal(t, float32(0), snap.BrakeBias)
	assert.Equal(t, float32(0), snap.EngineLoad)
	assert.Equal(t, float32(0), snap.TurboPressure)
	assert.Equal(t, float32(0), snap.Fuel)
	assert.Equal(t, float32(0), snap.WaterTemp)
	assert.Equal(t, float32(0), snap.GForce[0])
	assert.Equal(t, float32(0), snap.TyreWear[domain.FrontLeft])
	assert.Equal(t, float32(0), snap.TyrePressure[domain.FrontRight])
	assert.Equal(t, float32(0), snap.WheelSlip[domain.RearRight])

	_, err = json.Marshal(snap)
	assert.NoError(t, err, "snapshot must stay JSON encodable")
}

func TestSampleNoVehicleKeepsPrevious(t *testing.T) {
	st := livePages()
	s := New(st)

	first, err := s.Sample()
	require.NoError(t, err)

	st.inactive = true
	_, err = s.Sample()
	require.ErrorIs(t, err, ports.ErrNoVehicle)

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, first, latest)
	assert.NotZero(t, latest.SpeedKmh)
}

func TestSampleNoVehicleBeforeFirstPublish(t *testing.T) {
	s := New(&stubState{inactive: true})

	_, err := s.Sample()
	require.ErrorIs(t, err, ports.ErrNoVehicle)

	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestSampleReadErrorSkipsCycle(t *testing.T) {
	boom := errors.New("shared memory unmapped")
	s := New(&stubState{err: boom})

	_, err := s.Sample()
	require.ErrorIs(t, err, boom)
	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestSampleRateBound(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	s := New(livePages(), WithClock(clock.now), WithMinInterval(25*time.Millisecond))

	_, err := s.Sample()
	require.NoError(t, err)

	clock.advance(10 * time.Millisecond)
	_, err = s.Sample()
	require.ErrorIs(t, err, ErrTooSoon)

	clock.advance(15 * time.Millisecond)
	snap, err := s.Sample()
	require.NoError(t, err)
	assert.Equal(t, uint32(2), snap.Seq)
}

func TestPublishedSnapshotIsStable(t *testing.T) {
	st := livePages()
	s := New(st)

	_, err := s.Sample()
	require.NoError(t, err)
	held, _ := s.Latest()

	st.phys.SpeedKmh = 250
	_, err = s.Sample()
	require.NoError(t, err)

	assert.Equal(t, float32(100), held.SpeedKmh)
	now, _ := s.Latest()
	assert.Equal(t, float32(250), now.SpeedKmh)
}
