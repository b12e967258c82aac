package wire

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ghalamif/simlink/internal/domain"
)

func TestDecodeCommandValid(t *testing.T) {
	tests := []struct {
		name string
		cmd  domain.Command
	}{
		{"tc level", domain.IntCommand(domain.OpTractionControl, 7)},
		{"abs level zero", domain.IntCommand(domain.OpABS, 0)},
		{"engine map", domain.IntCommand(domain.OpEngineMap, 3)},
		{"brake bias", domain.FloatCommand(domain.OpBrakeBias, 0.565)},
		{"turbo", domain.FloatCommand(domain.OpTurboPressure, 1.8)},
		{"headlights on", domain.BoolCommand(domain.OpHeadlights, true)},
		{"left indicator off", domain.BoolCommand(domain.OpLeftIndicator, false)},
		{"pit menu", domain.BoolCommand(domain.OpPitMenu, true)},
		{"ignition", domain.BoolCommand(domain.OpIgnition, true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := EncodeCommand(tt.cmd)
			require.Len(t, frame, CommandFrameSize)

			got, err := DecodeCommand(frame)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, got)
		})
	}
}

func TestDecodeCommandRejects(t *testing.T) {
	valid := EncodeCommand(domain.IntCommand(domain.OpTractionControl, 3))

	raw := func(op, kind, value uint32) []byte {
		b := make([]byte, CommandFrameSize)
		binary.LittleEndian.PutUint32(b[0:], op)
		binary.LittleEndian.PutUint32(b[4:], kind)
		binary.LittleEndian.PutUint32(b[8:], value)
		return b
	}

	tests := []struct {
		name  string
		frame []byte
		want  error
	}{
		{"empty", nil, ErrShortFrame},
		{"short", valid[:11], ErrShortFrame},
		{"trailing", append(append([]byte(nil), valid...), 0), ErrTrailingBytes},
		{"opcode zero", raw(0, 2, 1), ErrUnknownOpcode},
		{"opcode unknown", raw(99, 2, 1), ErrUnknownOpcode},
		{"bool for level", raw(uint32(domain.OpTractionControl), uint32(domain.PayloadBool), 1), ErrPayloadKind},
		{"int for bias", raw(uint32(domain.OpBrakeBias), uint32(domain.PayloadInt), 1), ErrPayloadKind},
		{"unknown kind", raw(uint32(domain.OpHeadlights), 7, 1), ErrPayloadKind},
		{"bool not 0/1", raw(uint32(domain.OpHeadlights), uint32(domain.PayloadBool), 2), ErrPayloadRange},
		{"level above byte", raw(uint32(domain.OpABS), uint32(domain.PayloadInt), 256), ErrPayloadRange},
		{"negative level", raw(uint32(domain.OpABS), uint32(domain.PayloadInt), math.MaxUint32), ErrPayloadRange},
		{"nan bias", raw(uint32(domain.OpBrakeBias), uint32(domain.PayloadFloat), math.Float32bits(float32(math.NaN()))), ErrPayloadRange},
		{"inf turbo", raw(uint32(domain.OpTurboPressure), uint32(domain.PayloadFloat), math.Float32bits(float32(math.Inf(1)))), ErrPayloadRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCommand(tt.frame)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, len(tt.frame), pe.Size)
		})
	}
}

func TestDecodeCommandLevelByteRangeIsWireOnly(t *testing.T) {
	// 11 fits the wire; narrowing to 0..10 is the dispatcher's job.
	cmd, err := DecodeCommand(EncodeCommand(domain.IntCommand(domain.OpTractionControl, 11)))
	require.NoError(t, err)
	assert.Equal(t, int32(11), cmd.Int)
}
