// Package wire holds the datagram formats of the telemetry and control links.
//
// Telemetry frames are little-endian and fixed size:
//
//	header   magic "SLTM" | version u16 | flags u16 | sequence u32 | reserved u32
//	         timestamp i64 (unix nanoseconds, 0 when unset)
//	motion   speed_kmh speed_mph rpm max_rpm f32 | gear i32
//	         g_force[3] position[3] velocity[3] acceleration[3] f32
//	lap      lap_time last_lap best_lap f32 (seconds) | lap_count i32
//	fluids   fuel water_temp oil_temp oil_pressure f32
//	wheels   11 blocks of 4 f32 in FL FR RL RR order, see wheelBlocks
//	elec     tc_level tc_active abs_level abs_active u8 | brake_bias f32 |
//	         pit_limiter in_pit engine_map pad u8 | turbo_pressure engine_load f32
//	controls headlights indicator hazards wipers ignition pit_menu u8 | pad u16
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/ghalamif/simlink/internal/domain"
)

const (
	// SchemaVersion is bumped whenever the body layout changes.
	SchemaVersion uint16 = 1

	headerSize = 24
	bodySize   = 20 + 48 + 16 + 16 + wheelBlockCount*domain.WheelCount*4 + 20 + 8

	// TelemetryFrameSize is the exact length of every telemetry frame.
	TelemetryFrameSize = headerSize + bodySize

	wheelBlockCount = 11
)

// TelemetryMagic tags a telemetry frame.
var TelemetryMagic = [4]byte{'S', 'L', 'T', 'M'}

var (
	ErrBadMagic  = errors.New("wire: bad frame magic")
	ErrVersion   = errors.New("wire: unsupported schema version")
	ErrFrameSize = errors.New("wire: unexpected frame size")
)

// wheelBlocks fixes the on-wire order of the per-wheel arrays.
func wheelBlocks(s *domain.Snapshot) [wheelBlockCount]*domain.PerWheel {
	return [wheelBlockCount]*domain.PerWheel{
		&s.TyrePressure,
		&s.TyreTempInner,
		&s.TyreTempMiddle,
		&s.TyreTempOuter,
		&s.TyreTempCore,
		&s.TyreWear,
		&s.SuspensionTravel,
		&s.WheelLoad,
		&s.WheelAngularSpeed,
		&s.WheelSlip,
		&s.BrakePressure,
	}
}

// EncodeTelemetry serializes s into a new frame. It never fails.
func EncodeTelemetry(s domain.Snapshot) []byte {
	return AppendTelemetry(make([]byte, 0, TelemetryFrameSize), s)
}

// AppendTelemetry appends the frame for s to dst.
func AppendTelemetry(dst []byte, s domain.Snapshot) []byte {
	le := binary.LittleEndian

	dst = append(dst, TelemetryMagic[:]...)
	dst = le.AppendUint16(dst, SchemaVersion)
	dst = le.AppendUint16(dst, 0)
	dst = le.AppendUint32(dst, s.Seq)
	dst = le.AppendUint32(dst, 0)
	var ts int64
	if !s.Timestamp.IsZero() {
		ts = s.Timestamp.UnixNano()
	}
	dst = le.AppendUint64(dst, uint64(ts))

	dst = appendF32(dst, s.SpeedKmh, s.SpeedMph, s.RPM, s.MaxRPM)
	dst = le.AppendUint32(dst, uint32(s.Gear))
	dst = appendF32(dst, s.GForce[:]...)
	dst = appendF32(dst, s.Position[:]...)
	dst = appendF32(dst, s.Velocity[:]...)
	dst = appendF32(dst, s.Acceleration[:]...)

	dst = appendF32(dst, s.LapTime, s.LastLap, s.BestLap)
	dst = le.AppendUint32(dst, uint32(s.LapCount))

	dst = appendF32(dst, s.Fuel, s.WaterTemp, s.OilTemp, s.OilPressure)

	for _, block := range wheelBlocks(&s) {
		dst = appendF32(dst, block[:]...)
	}

	dst = append(dst, s.TCLevel, b2u(s.TCActive), s.ABSLevel, b2u(s.ABSActive))
	dst = appendF32(dst, s.BrakeBias)
	dst = append(dst, b2u(s.PitLimiter), b2u(s.InPit), s.EngineMap, 0)
	dst = appendF32(dst, s.TurboPressure, s.EngineLoad)

	dst = append(dst,
		b2u(s.Headlights),
		uint8(s.Indicator),
		b2u(s.Hazards),
		b2u(s.Wipers),
		b2u(s.Ignition),
		b2u(s.PitMenu),
		0, 0,
	)
	return dst
}

// DecodeTelemetry is the reference decoder for frames produced by EncodeTelemetry.
// Frames from an incompatible producer are rejected rather than misparsed.
func DecodeTelemetry(frame []byte) (domain.Snapshot, error) {
	var s domain.Snapshot
	if len(frame) < headerSize {
		return s, fmt.Errorf("%w: %d bytes", ErrFrameSize, len(frame))
	}
	if [4]byte(frame[:4]) != TelemetryMagic {
		return s, ErrBadMagic
	}
	r := reader{buf: frame[4:]}
	if v := r.u16(); v != SchemaVersion {
		return s, fmt.Errorf("%w: %d", ErrVersion, v)
	}
	if len(frame) != TelemetryFrameSize {
		return s, fmt.Errorf("%w: %d bytes, want %d", ErrFrameSize, len(frame), TelemetryFrameSize)
	}
	r.u16() // flags
	s.Seq = r.u32()
	r.u32() // reserved
	if ts := int64(r.u64()); ts != 0 {
		s.Timestamp = time.Unix(0, ts)
	}

	s.SpeedKmh, s.SpeedMph, s.RPM, s.MaxRPM = r.f32(), r.f32(), r.f32(), r.f32()
	s.Gear = int32(r.u32())
	r.vec(&s.GForce)
	r.vec(&s.Position)
	r.vec(&s.Velocity)
	r.vec(&s.Acceleration)

	s.LapTime, s.LastLap, s.BestLap = r.f32(), r.f32(), r.f32()
	s.LapCount = int32(r.u32())

	s.Fuel, s.WaterTemp, s.OilTemp, s.OilPressure = r.f32(), r.f32(), r.f32(), r.f32()

	for _, block := range wheelBlocks(&s) {
		for i := range block {
			block[i] = r.f32()
		}
	}

	s.TCLevel, s.TCActive, s.ABSLevel, s.ABSActive = r.u8(), r.flag(), r.u8(), r.flag()
	s.BrakeBias = r.f32()
	s.PitLimiter, s.InPit, s.EngineMap = r.flag(), r.flag(), r.u8()
	r.u8()
	s.TurboPressure, s.EngineLoad = r.f32(), r.f32()

	s.Headlights = r.flag()
	ind := r.u8()
	if ind > uint8(domain.IndicatorRight) {
		return domain.Snapshot{}, fmt.Errorf("wire: invalid indicator state %d", ind)
	}
	s.Indicator = domain.IndicatorState(ind)
	s.Hazards, s.Wipers, s.Ignition, s.PitMenu = r.flag(), r.flag(), r.flag(), r.flag()
	return s, nil
}

func appendF32(dst []byte, vs ...float32) []byte {
	for _, v := range vs {
		dst = binary.LittleEndian.AppendUint32(dst, math.Float32bits(v))
	}
	return dst
}

func b2u(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// reader walks a buffer whose length was checked up front.
type reader struct {
	buf []byte
	off int
}

func (r *reader) u8() uint8 {
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *reader) flag() bool { return r.u8() != 0 }

func (r *reader) u16() uint16 {
	v := binary.LittleEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *reader) u32() uint32 {
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

func (r *reader) u64() uint64 {
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v
}

func (r *reader) f32() float32 { return math.Float32frombits(r.u32()) }

func (r *reader) vec(v *domain.Vec3) {
	for i := range v {
		v[i] = r.f32()
	}
}
