package dispatch

import (
	"context"

	"go.uber.org/zap"

	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/table"
)

// CallDynamic invokes a prepared closure with raw guest buffers.
//
// In strict mode both buffer lengths must match the bound signature's
// packed widths exactly. In non-strict mode missing trailing argument
// bytes are zero-filled, surplus argument bytes are ignored, and the
// packed results are copied back only when the guest buffer is large
// enough to hold all of them.
//
// The full caller-declared ranges are validated before invocation,
// independent of strictness and of any later truncation. The call
// either completes all of marshal, invoke and copy-back, or performs
// none of them.
func (s *System) CallDynamic(ctx context.Context, mem dyncall.Memory, g dyncall.Guard, handle uint32, valuesPtr, valuesLen, resultsPtr, resultsLen uint32, strict bool) error {
	b, ok := s.table.Lookup(table.Handle(handle))
	if !ok {
		return errors.InvalidHandle(errors.PhaseInvoke, handle)
	}

	requiredValues := b.Args.ByteWidth()
	requiredResults := b.Results.ByteWidth()

	if strict {
		if valuesLen != requiredValues {
			return errors.LengthMismatch(errors.PhaseInvoke, "values", valuesLen, requiredValues)
		}
		if resultsLen != requiredResults {
			return errors.LengthMismatch(errors.PhaseInvoke, "results", resultsLen, requiredResults)
		}
	}

	// The declared ranges are validated in full, even the part that
	// truncation would never touch.
	if valuesLen > 0 {
		if err := g.Validate(valuesPtr, valuesLen, dyncall.AccessRead); err != nil {
			return err
		}
	}
	if resultsLen > 0 {
		if err := g.Validate(resultsPtr, resultsLen, dyncall.AccessWrite); err != nil {
			return err
		}
	}

	if s.routines == nil {
		return errors.Unresolved(errors.PhaseInvoke, b.Backing)
	}
	routine, ok := s.routines.Resolve(b.Backing)
	if !ok {
		return errors.Unresolved(errors.PhaseInvoke, b.Backing)
	}

	values := make([]byte, requiredValues)
	if n := min(valuesLen, requiredValues); n > 0 {
		data, err := mem.Read(valuesPtr, n)
		if err != nil {
			return errors.Wrap(errors.PhaseInvoke, errors.KindMemoryViolation, err, "read values buffer")
		}
		copy(values, data)
	}

	results := make([]byte, requiredResults)

	Logger().Debug("call_dynamic",
		zap.Uint32("handle", handle),
		zap.Uint32("backing", b.Backing),
		zap.Bool("strict", strict))

	if err := routine.Invoke(ctx, values, results, b.UserData); err != nil {
		return errors.Wrap(errors.PhaseInvoke, errors.KindTrap, err, "backing routine failed")
	}

	// Results are copied back only when the guest buffer holds the
	// whole packed result; an under-sized buffer stays untouched
	// rather than receiving a torn value. Bytes past the copied prefix
	// are left exactly as the caller supplied them.
	if requiredResults > 0 && resultsLen >= requiredResults {
		if err := mem.Write(resultsPtr, results); err != nil {
			return errors.Wrap(errors.PhaseInvoke, errors.KindMemoryViolation, err, "write results buffer")
		}
	}
	return nil
}
