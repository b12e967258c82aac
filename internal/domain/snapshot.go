package domain

import "time"

// Wheel indexes per-wheel arrays. The order is fixed and is part of the wire contract.
type Wheel int

const (
	FrontLeft Wheel = iota
	FrontRight
	RearLeft
	RearRight
)

// WheelCount is the length of every per-wheel array.
const WheelCount = 4

// Wheels lists the wheels in wire order.
var Wheels = [WheelCount]Wheel{FrontLeft, FrontRight, RearLeft, RearRight}

func (w Wheel) String() string {
	switch w {
	case FrontLeft:
		return "FL"
	case FrontRight:
		return "FR"
	case RearLeft:
		return "RL"
	case RearRight:
		return "RR"
	default:
		return "unknown"
	}
}

// Vec3 is an x, y, z triple.
type Vec3 [3]float32

// PerWheel holds one value per wheel in FL, FR, RL, RR order.
type PerWheel [WheelCount]float32

// Snapshot is one instant of vehicle telemetry. It is a value type: the sampler
// builds a fresh one every cycle and never mutates a published instance.
type Snapshot struct {
	Seq       uint32    `json:"seq"`
	Timestamp time.Time `json:"ts"`

	SpeedKmh float32 `json:"speed_kmh"`
	SpeedMph float32 `json:"speed_mph"`
	RPM      float32 `json:"rpm"`
	MaxRPM   float32 `json:"max_rpm"`
	Gear     int32   `json:"gear"`

	// GForce is lateral, longitudinal, vertical.
	GForce       Vec3 `json:"g_force"`
	Position     Vec3 `json:"position"`
	Velocity     Vec3 `json:"velocity"`
	Acceleration Vec3 `json:"acceleration"`

	LapTime  float32 `json:"lap_time"`
	LastLap  float32 `json:"last_lap"`
	BestLap  float32 `json:"best_lap"`
	LapCount int32   `json:"lap_count"`

	Fuel        float32 `json:"fuel"`
	WaterTemp   float32 `json:"water_temp"`
	OilTemp     float32 `json:"oil_temp"`
	OilPressure float32 `json:"oil_pressure"`

	TyrePressure      PerWheel `json:"tyre_pressure"`
	TyreTempInner     PerWheel `json:"tyre_temp_inner"`
	TyreTempMiddle    PerWheel `json:"tyre_temp_middle"`
	TyreTempOuter     PerWheel `json:"tyre_temp_outer"`
	TyreTempCore      PerWheel `json:"tyre_temp_core"`
	TyreWear          PerWheel `json:"tyre_wear"` // percent remaining, 0..100
	SuspensionTravel  PerWheel `json:"suspension_travel"`
	WheelLoad         PerWheel `json:"wheel_load"`
	WheelAngularSpeed PerWheel `json:"wheel_angular_speed"`
	WheelSlip         PerWheel `json:"wheel_slip"`
	BrakePressure     PerWheel `json:"brake_pressure"`

	TCLevel       uint8   `json:"tc_level"`
	TCActive      bool    `json:"tc_active"`
	ABSLevel      uint8   `json:"abs_level"`
	ABSActive     bool    `json:"abs_active"`
	BrakeBias     float32 `json:"brake_bias"` // front share, 0..1
	PitLimiter    bool    `json:"pit_limiter"`
	InPit         bool    `json:"in_pit"`
	EngineMap     uint8   `json:"engine_map"`
	TurboPressure float32 `json:"turbo_pressure"`
	EngineLoad    float32 `json:"engine_load"`

	Headlights bool           `json:"headlights"`
	Indicator  IndicatorState `json:"indicator"`
	Hazards    bool           `json:"hazards"`
	Wipers     bool           `json:"wipers"`
	Ignition   bool           `json:"ignition"`
	PitMenu    bool           `json:"pit_menu"`
}
