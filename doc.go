// Package dyncall implements the WASIX dynamic closure subsystem: a
// process-wide closure table with type-directed value marshalling and
// signature reflection.
//
// A sandboxed guest allocates a callable function-pointer slot, binds a
// value-type signature, a backing routine and opaque user data to it,
// invokes it with raw byte buffers, and can introspect any function
// pointer's signature before calling it.
//
// # Architecture Overview
//
// The module is organized into small packages with distinct
// responsibilities:
//
//	dyncall/         Root package with core Memory, Guard and Routine interfaces
//	├── marshal/     Value types, signatures, dense pack/unpack of raw values
//	├── table/       Closure slot table: allocate, prepare, idempotent free
//	├── builtin/     Statically known builtin function signatures (WIT loader)
//	├── guard/       Memory guard implementations and wazero adapters
//	├── dispatch/    Signature reflection and dynamic invocation
//	├── wasix/       Host-callable syscall surface (wasix_32v1 module)
//	└── errors/      Structured error types for debugging
//
// # Quick Start
//
// Wire a system with a host-native backing routine:
//
//	routines := dispatch.NewFuncMap()
//	routines.Register(64, dispatch.RoutineFunc(add))
//
//	sys := wasix.NewSystem(wasix.Config{
//	    Builtins: builtin.NewRegistry(),
//	    Routines: routines,
//	})
//
//	handle := sys.Table().Allocate()
//	// guest side: closure_prepare(64, handle, ...) then call_dynamic(handle, ...)
//
// # Function Pointer Universes
//
// A function pointer is either a builtin (signature fixed at build
// time, reflection results cacheable) or a closure handle (signature
// mutable through prepare, never cacheable). Handle 0 is permanently
// reserved and invalid.
//
// # Thread Safety
//
// All table operations are safe for concurrent use. A binding is
// immutable once published; a racing prepare swaps the binding
// atomically, so reflect and call_dynamic never observe a torn write.
// No operation in this subsystem blocks beyond memory-copy cost plus
// one foreign call.
package dyncall
