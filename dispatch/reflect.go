package dispatch

import (
	"go.uber.org/zap"

	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/marshal"
	"github.com/wasmgate/dyncall/table"
)

// Reflection is the result of introspecting a function pointer. Args
// and Results are the full bound signature; Cacheable reports whether
// the caller may memoize this reflection (including a negative result)
// without it going stale.
type Reflection struct {
	Args      marshal.Signature
	Results   marshal.Signature
	Cacheable bool
}

// Reflect resolves a function pointer and reports its signature.
//
// Builtins resolve first and are cacheable: their signatures are fixed
// for the process lifetime. Prepared closures are never cacheable,
// since a later prepare can rebind them. Function pointer 0 is
// permanently reserved, so its failure is cacheable; any other
// unresolved pointer could become valid when the table grows, so its
// failure is not.
func (s *System) Reflect(fp uint32) (Reflection, error) {
	if fp == 0 {
		return Reflection{Cacheable: true}, errors.Unresolved(errors.PhaseReflect, 0)
	}

	if e, ok := s.builtins.Signature(fp); ok {
		return Reflection{Args: e.Args, Results: e.Results, Cacheable: true}, nil
	}

	if b, ok := s.table.Lookup(table.Handle(fp)); ok {
		return Reflection{Args: b.Args, Results: b.Results, Cacheable: false}, nil
	}

	Logger().Debug("reflect miss", zap.Uint32("function_pointer", fp))
	return Reflection{}, errors.Unresolved(errors.PhaseReflect, fp)
}
