package marshal

import (
	"encoding/binary"
	"math"

	"github.com/wasmgate/dyncall/errors"
)

// RawValue is a typed primitive value. The bits field holds the value's
// raw representation widened to 64 bits, the same convention wazero
// uses for flat call stacks.
type RawValue struct {
	Bits uint64
	Type ValueType
}

func I32Value(v int32) RawValue { return RawValue{Type: I32, Bits: uint64(uint32(v))} }
func I64Value(v int64) RawValue { return RawValue{Type: I64, Bits: uint64(v)} }
func F32Value(v float32) RawValue {
	return RawValue{Type: F32, Bits: uint64(math.Float32bits(v))}
}
func F64Value(v float64) RawValue { return RawValue{Type: F64, Bits: math.Float64bits(v)} }

func (v RawValue) I32() int32   { return int32(uint32(v.Bits)) }
func (v RawValue) I64() int64   { return int64(v.Bits) }
func (v RawValue) F32() float32 { return math.Float32frombits(uint32(v.Bits)) }
func (v RawValue) F64() float64 { return math.Float64frombits(v.Bits) }

// Pack concatenates each value's little-endian representation in
// signature order, with no padding between members.
func Pack(values []RawValue, sig Signature) ([]byte, error) {
	if len(values) != len(sig) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindLengthMismatch).
			Detail("value count %d does not match signature arity %d", len(values), len(sig)).
			Build()
	}

	buf := make([]byte, 0, sig.ByteWidth())
	for i, t := range sig {
		if values[i].Type != t {
			return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidType).
				Path("values").
				Detail("member %d is %s, signature requires %s", i, values[i].Type, t).
				Build()
		}
		switch t.Size() {
		case 4:
			buf = binary.LittleEndian.AppendUint32(buf, uint32(values[i].Bits))
		default:
			buf = binary.LittleEndian.AppendUint64(buf, values[i].Bits)
		}
	}
	return buf, nil
}

// Unpack is the inverse of Pack. The buffer must be exactly
// sig.ByteWidth() bytes; callers size buffers before invoking it and
// Unpack never recovers from a mismatch.
func Unpack(buf []byte, sig Signature) ([]RawValue, error) {
	if uint32(len(buf)) != sig.ByteWidth() {
		return nil, errors.New(errors.PhaseMarshal, errors.KindLengthMismatch).
			Detail("buffer is %d bytes, signature packs to %d", len(buf), sig.ByteWidth()).
			Build()
	}

	values := make([]RawValue, len(sig))
	off := uint32(0)
	for i, t := range sig {
		switch t.Size() {
		case 4:
			values[i] = RawValue{Type: t, Bits: uint64(binary.LittleEndian.Uint32(buf[off:]))}
		default:
			values[i] = RawValue{Type: t, Bits: binary.LittleEndian.Uint64(buf[off:])}
		}
		off += t.Size()
	}
	return values, nil
}
