package simstate

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/simlink/internal/domain"
	"github.com/ghalamif/simlink/internal/ports"
)

func TestVehicleInactiveReportsNoVehicle(t *testing.T) {
	v := New(Options{})
	v.SetActive(false)

	_, err := v.Physics()
	assert.ErrorIs(t, err, ports.ErrNoVehicle)
	_, err = v.Session()
	assert.ErrorIs(t, err, ports.ErrNoVehicle)
	_, err = v.Controls()
	assert.ErrorIs(t, err, ports.ErrNoVehicle)
	assert.ErrorIs(t, v.SetHeadlights(true), ports.ErrNoVehicle)
	assert.False(t, v.ControlState().Headlights)
}

func TestVehicleBrakeBiasUnsupported(t *testing.T) {
	v := New(Options{LiveBrakeBias: false})
	before := v.ControlState().BrakeBias

	assert.ErrorIs(t, v.SetBrakeBias(0.6), ports.ErrUnsupported)
	assert.Equal(t, before, v.ControlState().BrakeBias)
}

func TestVehiclePhysicsReflectsControls(t *testing.T) {
	v := New(Options{LiveBrakeBias: true})
	require.NoError(t, v.SetTractionControl(7))
	require.NoError(t, v.SetBrakeBias(0.61))
	require.NoError(t, v.SetPitLimiter(true))

	p, err := v.Physics()
	require.NoError(t, err)
	assert.Equal(t, int32(7), p.TCLevel)
	assert.Equal(t, float32(0.61), p.BrakeBias)
	assert.True(t, p.PitLimiter)
}

func TestVehicleStepCompletesLaps(t *testing.T) {
	v := New(Options{LapLength: 500})
	for i := 0; i < 400; i++ {
		v.Step(50 * time.Millisecond)
	}

	s, err := v.Session()
	require.NoError(t, err)
	assert.Positive(t, s.CompletedLaps)
	assert.Positive(t, s.LastLapMs)
	assert.LessOrEqual(t, s.BestLapMs, s.LastLapMs)

	p, err := v.Physics()
	require.NoError(t, err)
	assert.Positive(t, p.SpeedKmh)
	assert.LessOrEqual(t, p.RPM, p.MaxRPM)
	for _, w := range domain.Wheels {
		assert.GreaterOrEqual(t, p.Wheels[w].Wear, float32(0))
		assert.LessOrEqual(t, p.Wheels[w].Wear, float32(1))
	}
}

func TestVehicleConcurrentReadWrite(t *testing.T) {
	v := New(Options{LiveBrakeBias: true})

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			v.Step(time.Millisecond)
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_ = v.SetTractionControl(int32(i % 11))
			_ = v.SetIndicator(domain.IndicatorState(i % 3))
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = v.Physics()
			_, _ = v.Controls()
		}
	}()
	wg.Wait()
}
