package marshal

import "github.com/wasmgate/dyncall/errors"

// ValueType identifies a primitive WASM value type. The numeric values
// are the published wire tags and must not change.
type ValueType uint8

const (
	I32 ValueType = 0
	I64 ValueType = 1
	F32 ValueType = 2
	F64 ValueType = 3
)

var typeNames = [...]string{
	I32: "i32",
	I64: "i64",
	F32: "f32",
	F64: "f64",
}

func (t ValueType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "unknown"
}

// Size returns the byte width of the type. Required alignment equals
// the width, but packed buffers are dense and never padded.
func (t ValueType) Size() uint32 {
	switch t {
	case I64, F64:
		return 8
	default:
		return 4
	}
}

// FromTag converts a wire tag into a ValueType.
func FromTag(tag uint8) (ValueType, error) {
	if tag > uint8(F64) {
		return 0, errors.InvalidType(errors.PhaseMarshal, tag)
	}
	return ValueType(tag), nil
}

// Signature is an ordered sequence of value types describing either the
// arguments or the results of a function.
type Signature []ValueType

// ByteWidth returns the dense packed width of the signature.
func (s Signature) ByteWidth() uint32 {
	var w uint32
	for _, t := range s {
		w += t.Size()
	}
	return w
}

// Tags returns the wire representation of the signature, one byte per
// member.
func (s Signature) Tags() []byte {
	tags := make([]byte, len(s))
	for i, t := range s {
		tags[i] = byte(t)
	}
	return tags
}

func (s Signature) String() string {
	if len(s) == 0 {
		return "()"
	}
	out := "("
	for i, t := range s {
		if i > 0 {
			out += ", "
		}
		out += t.String()
	}
	return out + ")"
}

// ParseSignature decodes a sequence of wire tags. It fails on the first
// unrecognized tag.
func ParseSignature(tags []byte) (Signature, error) {
	sig := make(Signature, len(tags))
	for i, tag := range tags {
		t, err := FromTag(tag)
		if err != nil {
			return nil, err
		}
		sig[i] = t
	}
	return sig, nil
}
