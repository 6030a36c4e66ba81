package dispatch

import (
	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/builtin"
	"github.com/wasmgate/dyncall/table"
)

// System resolves function pointers and dispatches dynamic calls. A
// function pointer lives in one of two disjoint universes: the builtin
// registry (signatures fixed at build time) or the closure table
// (signatures bound through prepare). The tag never leaks to callers;
// resolution happens once at the reflect/invoke boundary.
type System struct {
	table    *table.Table
	builtins *builtin.Registry
	routines dyncall.RoutineResolver
}

// NewSystem wires a dispatch system. The closure table is created with
// its handle range starting directly above the builtin universe.
func NewSystem(builtins *builtin.Registry, routines dyncall.RoutineResolver) *System {
	if builtins == nil {
		builtins = builtin.NewRegistry()
	}
	return &System{
		table:    table.New(builtins.NextBase()),
		builtins: builtins,
		routines: routines,
	}
}

// NewSystemWithTable wires a dispatch system around an existing table.
// The caller is responsible for keeping the table's handle range
// disjoint from the builtin universe.
func NewSystemWithTable(tbl *table.Table, builtins *builtin.Registry, routines dyncall.RoutineResolver) *System {
	if builtins == nil {
		builtins = builtin.NewRegistry()
	}
	return &System{table: tbl, builtins: builtins, routines: routines}
}

// Table returns the closure table.
func (s *System) Table() *table.Table {
	return s.table
}

// Builtins returns the builtin signature registry.
func (s *System) Builtins() *builtin.Registry {
	return s.builtins
}
