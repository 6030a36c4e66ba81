package builtin

import (
	"go.bytecodealliance.org/wit"

	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/marshal"
)

// ValueTypeOf lowers a WIT type to the core value type it flattens to.
// Only types that flatten to a single i32/i64/f32/f64 are accepted;
// strings, lists and other compound types have no place in a closure
// signature.
func ValueTypeOf(t wit.Type) (marshal.ValueType, error) {
	switch t := t.(type) {
	case wit.Bool, wit.U8, wit.S8, wit.U16, wit.S16, wit.U32, wit.S32, wit.Char:
		return marshal.I32, nil
	case wit.U64, wit.S64:
		return marshal.I64, nil
	case wit.F32:
		return marshal.F32, nil
	case wit.F64:
		return marshal.F64, nil
	case *wit.TypeDef:
		return valueTypeOfTypeDef(t)
	default:
		return 0, errors.Unsupported(errors.PhaseHost, "WIT type does not lower to a primitive value type")
	}
}

func valueTypeOfTypeDef(t *wit.TypeDef) (marshal.ValueType, error) {
	if t == nil || t.Kind == nil {
		return 0, errors.Unsupported(errors.PhaseHost, "nil WIT type definition")
	}
	switch k := t.Kind.(type) {
	case *wit.Enum:
		// Enum discriminants flatten to a single i32.
		return marshal.I32, nil
	case wit.Type:
		// Type alias: follow it.
		return ValueTypeOf(k)
	default:
		return 0, errors.Unsupported(errors.PhaseHost, "compound WIT type in builtin signature")
	}
}

// LowerSignature lowers ordered WIT parameter and result types into
// value-type signatures.
func LowerSignature(params, results []wit.Type) (args, res marshal.Signature, err error) {
	args = make(marshal.Signature, 0, len(params))
	for i, t := range params {
		vt, err := ValueTypeOf(t)
		if err != nil {
			return nil, nil, errors.New(errors.PhaseHost, errors.KindUnsupported).
				Path("params").
				Detail("parameter %d", i).
				Cause(err).
				Build()
		}
		args = append(args, vt)
	}

	res = make(marshal.Signature, 0, len(results))
	for i, t := range results {
		vt, err := ValueTypeOf(t)
		if err != nil {
			return nil, nil, errors.New(errors.PhaseHost, errors.KindUnsupported).
				Path("results").
				Detail("result %d", i).
				Cause(err).
				Build()
		}
		res = append(res, vt)
	}
	return args, res, nil
}

// RegisterWIT lowers WIT parameter and result types and registers the
// resulting signature under the given function pointer.
func (r *Registry) RegisterWIT(fp uint32, params, results []wit.Type) error {
	args, res, err := LowerSignature(params, results)
	if err != nil {
		return err
	}
	return r.Register(fp, args, res)
}
