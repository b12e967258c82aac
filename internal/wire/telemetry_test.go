package wire

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/simlink/internal/domain"
)

func fullSnapshot() domain.Snapshot {
	s := domain.Snapshot{
		Seq:           42,
		Timestamp:     time.Date(2026, 3, 14, 15, 9, 26, 535897000, time.UTC),
		SpeedKmh:      212.5,
		SpeedMph:      132.04,
		RPM:           7350,
		MaxRPM:        8500,
		Gear:          5,
		GForce:        domain.Vec3{1.25, -0.5, 0.98},
		Position:      domain.Vec3{-512.25, 12.5, 1033.75},
		Velocity:      domain.Vec3{40.1, 0.2, -50.3},
		Acceleration:  domain.Vec3{2.5, -9.81, 0.125},
		LapTime:       61.234,
		LastLap:       92.001,
		BestLap:       91.5,
		LapCount:      7,
		Fuel:          34.5,
		WaterTemp:     88,
		OilTemp:       104.5,
		OilPressure:   4.2,
		TCLevel:       4,
		TCActive:      true,
		ABSLevel:      3,
		BrakeBias:     0.58,
		PitLimiter:    true,
		EngineMap:     2,
		TurboPressure: 1.4,
		EngineLoad:    0.87,
		Headlights:    true,
		Indicator:     domain.IndicatorRight,
		Wipers:        true,
		Ignition:      true,
	}
	blocks := wheelBlocks(&s)
	for b, block := range blocks {
		for w := range block {
			block[w] = float32(b*10+w) + 0.5
		}
	}
	return s
}

func TestTelemetryRoundTrip(t *testing.T) {
	in := fullSnapshot()

	frame := EncodeTelemetry(in)
	require.Len(t, frame, TelemetryFrameSize)

	out, err := DecodeTelemetry(frame)
	require.NoError(t, err)
	if diff := cmp.Diff(in, out); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTelemetryRoundTripZeroSnapshot(t *testing.T) {
	out, err := DecodeTelemetry(EncodeTelemetry(domain.Snapshot{}))
	require.NoError(t, err)
	assert.True(t, out.Timestamp.IsZero())
	assert.Empty(t, cmp.Diff(domain.Snapshot{}, out))
}

func TestEncodeTelemetryDeterministic(t *testing.T) {
	s := fullSnapshot()
	assert.Equal(t, EncodeTelemetry(s), EncodeTelemetry(s))
}

func TestEncodeTelemetryWheelOrder(t *testing.T) {
	var s domain.Snapshot
	s.TyrePressure = domain.PerWheel{1, 2, 3, 4}
	frame := EncodeTelemetry(s)

	// tyre pressure is the first wheel block, right after the fluids.
	off := headerSize + 20 + 48 + 16 + 16
	for i, w := range domain.Wheels {
		got := binary.LittleEndian.Uint32(frame[off+i*4:])
		assert.Equal(t, float32(i+1), math.Float32frombits(got), "wheel %s", w)
	}
}

func TestDecodeTelemetryRejectsIncompatibleFrames(t *testing.T) {
	good := EncodeTelemetry(fullSnapshot())

	t.Run("magic", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		bad[0] = 'X'
		_, err := DecodeTelemetry(bad)
		assert.ErrorIs(t, err, ErrBadMagic)
	})

	t.Run("version", func(t *testing.T) {
		bad := append([]byte(nil), good...)
		binary.LittleEndian.PutUint16(bad[4:], SchemaVersion+1)
		_, err := DecodeTelemetry(bad)
		assert.ErrorIs(t, err, ErrVersion)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := DecodeTelemetry(good[:TelemetryFrameSize-1])
		assert.ErrorIs(t, err, ErrFrameSize)
	})

	t.Run("header only", func(t *testing.T) {
		_, err := DecodeTelemetry(good[:10])
		assert.ErrorIs(t, err, ErrFrameSize)
	})
}
