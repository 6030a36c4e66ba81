// Package wasix implements the wasix_32v1 closure syscall surface.
//
// The package translates raw guest pointers and counts into calls on
// the dispatch system, mapping structured errors back to WASI-style
// errno values. It owns the wire formats: packed value-type tag
// arrays, the 12-byte reflection info record and the fixed-size user
// data blob.
//
// # Quick Start
//
// Build a System and register it as a host module:
//
//	sys := wasix.NewSystem(wasix.Config{
//	    Builtins: builtins,
//	    Routines: routines,
//	})
//
//	closer, err := wasix.Instantiate(ctx, rt, sys)
//
// Guests then import the five syscalls from "wasix_32v1":
//
//   - closure_allocate: reserve a closure slot, returns its handle
//   - closure_prepare: bind backing routine, signature and user data
//   - closure_free: release a slot (never fails, safe to repeat)
//   - call_dynamic: invoke a prepared closure with packed buffers
//   - reflect_signature: query the signature of any function pointer
//
// # Wire Formats
//
// Signatures travel as byte arrays of value-type tags (0=i32, 1=i64,
// 2=f32, 3=f64). Argument and result buffers are densely packed
// little-endian with no padding between members.
//
// reflect_signature writes a 12-byte info record at info_out:
//
//	offset 0: cacheable flag (u8, 3 bytes padding)
//	offset 4: argument count (u32)
//	offset 8: result count (u32)
//
// The record is written even when the call fails, so callers whose tag
// buffers were too small can read the true arities, resize and retry.
//
// # Thread Safety
//
// A System is safe for concurrent use by multiple guest threads. All
// closure table mutation happens under the table's lock; bindings are
// immutable once published.
package wasix
