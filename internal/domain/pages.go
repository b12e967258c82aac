package domain

// The page types below are what the simulation exposes at its read boundary.
// Units are the simulation's own; the sampler converts them into a Snapshot.

// PhysicsPage is the per-step physics state of the player vehicle.
type PhysicsPage struct {
	SpeedKmh float32
	RPM      float32
	MaxRPM   float32
	Gear     int32

	GForce       Vec3
	Position     Vec3
	Velocity     Vec3
	Acceleration Vec3

	Fuel        float32
	WaterTemp   float32
	OilTemp     float32
	OilPressure float32

	Wheels [WheelCount]WheelPhysics

	TCLevel    int32
	TCActive   bool
	ABSLevel   int32
	ABSActive  bool
	BrakeBias  float32
	PitLimiter bool
	EngineMap  int32
	TurboBoost float32
	EngineLoad float32
}

// WheelPhysics is one wheel's state. Wear is the worn fraction, 0 (new) to 1.
type WheelPhysics struct {
	Pressure         float32
	TempInner        float32
	TempMiddle       float32
	TempOuter        float32
	TempCore         float32
	Wear             float32
	SuspensionTravel float32
	Load             float32
	AngularSpeed     float32
	Slip             float32
	BrakePressure    float32
}

// SessionPage carries lap timing. Times are integer milliseconds.
type SessionPage struct {
	CurrentLapMs  int32
	LastLapMs     int32
	BestLapMs     int32
	CompletedLaps int32
	InPit         bool
}

// ControlsPage reads back driver-facing controls owned by the command dispatcher.
type ControlsPage struct {
	Headlights bool
	Indicator  IndicatorState
	Hazards    bool
	Wipers     bool
	Ignition   bool
	PitMenu    bool
}
