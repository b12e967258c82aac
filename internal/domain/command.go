package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Opcode identifies a control command on the wire.
type Opcode uint32

const (
	OpTractionControl Opcode = iota + 1
	OpABS
	OpBrakeBias
	OpTurboPressure
	OpHeadlights
	OpLeftIndicator
	OpRightIndicator
	OpHazardLights
	OpWipers
	OpPitLimiter
	OpPitMenu
	OpEngineMap
	OpIgnition
)

var opcodeNames = map[Opcode]string{
	OpTractionControl: "TRACTION_CONTROL_LEVEL",
	OpABS:             "ABS_LEVEL",
	OpBrakeBias:       "BRAKE_BIAS",
	OpTurboPressure:   "TURBO_PRESSURE",
	OpHeadlights:      "HEADLIGHTS",
	OpLeftIndicator:   "LEFT_INDICATOR",
	OpRightIndicator:  "RIGHT_INDICATOR",
	OpHazardLights:    "HAZARD_LIGHTS",
	OpWipers:          "WIPERS",
	OpPitLimiter:      "PIT_LIMITER",
	OpPitMenu:         "PIT_MENU",
	OpEngineMap:       "ENGINE_MAP",
	OpIgnition:        "IGNITION",
}

var opcodeKinds = map[Opcode]PayloadKind{
	OpTractionControl: PayloadInt,
	OpABS:             PayloadInt,
	OpBrakeBias:       PayloadFloat,
	OpTurboPressure:   PayloadFloat,
	OpHeadlights:      PayloadBool,
	OpLeftIndicator:   PayloadBool,
	OpRightIndicator:  PayloadBool,
	OpHazardLights:    PayloadBool,
	OpWipers:          PayloadBool,
	OpPitLimiter:      PayloadBool,
	OpPitMenu:         PayloadBool,
	OpEngineMap:       PayloadInt,
	OpIgnition:        PayloadBool,
}

func (o Opcode) String() string {
	if name, ok := opcodeNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OPCODE(%d)", uint32(o))
}

// Valid reports whether o is a known opcode.
func (o Opcode) Valid() bool {
	_, ok := opcodeKinds[o]
	return ok
}

// Kind returns the payload shape o expects, or PayloadUnknown.
func (o Opcode) Kind() PayloadKind {
	return opcodeKinds[o]
}

// Opcodes returns every known opcode in ascending order.
func Opcodes() []Opcode {
	out := make([]Opcode, 0, len(opcodeKinds))
	for op := OpTractionControl; op <= OpIgnition; op++ {
		out = append(out, op)
	}
	return out
}

// ParseOpcode accepts an opcode name (case-insensitive) or its decimal code.
func ParseOpcode(s string) (Opcode, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.ParseUint(s, 10, 32); err == nil {
		if op := Opcode(n); op.Valid() {
			return op, nil
		}
		return 0, fmt.Errorf("unknown opcode %d", n)
	}
	want := strings.ToUpper(strings.ReplaceAll(s, "-", "_"))
	for op, name := range opcodeNames {
		if name == want {
			return op, nil
		}
	}
	return 0, fmt.Errorf("unknown opcode %q", s)
}

// ParseCommand builds a command for op from a textual value of the right kind.
func ParseCommand(op Opcode, value string) (Command, error) {
	switch op.Kind() {
	case PayloadBool:
		b, err := parseBool(value)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", op, err)
		}
		return BoolCommand(op, b), nil
	case PayloadInt:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", op, err)
		}
		return IntCommand(op, int32(n)), nil
	case PayloadFloat:
		f, err := strconv.ParseFloat(strings.TrimSpace(value), 32)
		if err != nil {
			return Command{}, fmt.Errorf("%s: %w", op, err)
		}
		return FloatCommand(op, float32(f)), nil
	default:
		return Command{}, fmt.Errorf("unknown opcode %s", op)
	}
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

// PayloadKind tags how a command payload is interpreted.
type PayloadKind uint32

const (
	PayloadUnknown PayloadKind = iota
	PayloadBool
	PayloadInt
	PayloadFloat
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadBool:
		return "bool"
	case PayloadInt:
		return "int"
	case PayloadFloat:
		return "float"
	default:
		return "unknown"
	}
}

// Command is a decoded control request. Only the field matching Kind is meaningful.
type Command struct {
	Op    Opcode
	Kind  PayloadKind
	Int   int32
	Float float32
	Bool  bool
}

func IntCommand(op Opcode, v int32) Command {
	return Command{Op: op, Kind: PayloadInt, Int: v}
}

func FloatCommand(op Opcode, v float32) Command {
	return Command{Op: op, Kind: PayloadFloat, Float: v}
}

func BoolCommand(op Opcode, v bool) Command {
	return Command{Op: op, Kind: PayloadBool, Bool: v}
}

// Value returns the payload as an untyped value for logging.
func (c Command) Value() any {
	switch c.Kind {
	case PayloadBool:
		return c.Bool
	case PayloadInt:
		return c.Int
	case PayloadFloat:
		return c.Float
	default:
		return nil
	}
}

// IndicatorState is the turn-indicator state machine: at most one side is active.
type IndicatorState uint8

const (
	IndicatorOff IndicatorState = iota
	IndicatorLeft
	IndicatorRight
)

func (s IndicatorState) String() string {
	switch s {
	case IndicatorLeft:
		return "left"
	case IndicatorRight:
		return "right"
	default:
		return "off"
	}
}
