package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/ghalamif/simlink/internal/domain"
)

// CommandFrameSize is the exact length of a control datagram:
// opcode u32 | payload kind u32 | value (u32 0/1, i32 or f32), little-endian.
const CommandFrameSize = 12

var (
	ErrShortFrame    = errors.New("wire: control frame too short")
	ErrTrailingBytes = errors.New("wire: control frame has trailing bytes")
	ErrUnknownOpcode = errors.New("wire: unknown opcode")
	ErrPayloadKind   = errors.New("wire: payload kind does not match opcode")
	ErrPayloadRange  = errors.New("wire: payload outside wire range")
)

// ParseError describes a discarded control frame.
type ParseError struct {
	Op   domain.Opcode
	Size int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Op == 0 {
		return fmt.Sprintf("parse control frame (%d bytes): %v", e.Size, e.Err)
	}
	return fmt.Sprintf("parse control frame %s (%d bytes): %v", e.Op, e.Size, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// DecodeCommand validates a control datagram and returns the command it carries.
// Levels travel as i32 but must fit a byte; domain ranges are narrowed by the dispatcher.
func DecodeCommand(frame []byte) (domain.Command, error) {
	fail := func(op domain.Opcode, err error) (domain.Command, error) {
		return domain.Command{}, &ParseError{Op: op, Size: len(frame), Err: err}
	}

	if len(frame) < CommandFrameSize {
		return fail(0, ErrShortFrame)
	}
	if len(frame) > CommandFrameSize {
		return fail(0, ErrTrailingBytes)
	}

	le := binary.LittleEndian
	op := domain.Opcode(le.Uint32(frame[0:4]))
	if !op.Valid() {
		return fail(0, fmt.Errorf("%w: %d", ErrUnknownOpcode, uint32(op)))
	}
	kind := domain.PayloadKind(le.Uint32(frame[4:8]))
	if kind != op.Kind() {
		return fail(op, fmt.Errorf("%w: got %s, want %s", ErrPayloadKind, kind, op.Kind()))
	}

	raw := le.Uint32(frame[8:12])
	switch kind {
	case domain.PayloadBool:
		if raw > 1 {
			return fail(op, fmt.Errorf("%w: bool %d", ErrPayloadRange, raw))
		}
		return domain.BoolCommand(op, raw == 1), nil
	case domain.PayloadInt:
		v := int32(raw)
		if v < 0 || v > math.MaxUint8 {
			return fail(op, fmt.Errorf("%w: level %d", ErrPayloadRange, v))
		}
		return domain.IntCommand(op, v), nil
	default:
		v := math.Float32frombits(raw)
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fail(op, fmt.Errorf("%w: non-finite %v", ErrPayloadRange, v))
		}
		return domain.FloatCommand(op, v), nil
	}
}

// EncodeCommand builds the control datagram for c. It does not validate c, so
// callers can also use it to produce frames a receiver must reject.
func EncodeCommand(c domain.Command) []byte {
	le := binary.LittleEndian
	out := make([]byte, 0, CommandFrameSize)
	out = le.AppendUint32(out, uint32(c.Op))
	out = le.AppendUint32(out, uint32(c.Kind))
	switch c.Kind {
	case domain.PayloadBool:
		out = le.AppendUint32(out, uint32(b2u(c.Bool)))
	case domain.PayloadInt:
		out = le.AppendUint32(out, uint32(c.Int))
	default:
		out = le.AppendUint32(out, math.Float32bits(c.Float))
	}
	return out
}
