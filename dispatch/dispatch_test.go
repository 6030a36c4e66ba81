package dispatch

import (
	"context"
	"encoding/binary"
	"testing"

	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/builtin"
	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/guard"
	"github.com/wasmgate/dyncall/marshal"
	"github.com/wasmgate/dyncall/table"
)

// addRoutine computes a + (i32)b + user_data[0..4] into a single i32
// result and counts its invocations.
type addRoutine struct {
	calls int
}

func (r *addRoutine) Invoke(_ context.Context, values, results, userData []byte) error {
	r.calls++
	a := int32(binary.LittleEndian.Uint32(values[0:4]))
	b := int64(binary.LittleEndian.Uint64(values[4:12]))
	user := int32(0)
	if len(userData) >= 4 {
		user = int32(binary.LittleEndian.Uint32(userData[0:4]))
	}
	binary.LittleEndian.PutUint32(results[0:4], uint32(a+int32(b)+user))
	return nil
}

type fixture struct {
	sys     *System
	mem     *guard.Buffer
	g       *guard.Linear
	routine *addRoutine
	handle  table.Handle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	routine := &addRoutine{}
	routines := NewFuncMap()
	routines.Register(64, routine)

	sys := NewSystem(builtin.NewRegistry(), routines)

	h := sys.Table().Allocate()
	userData := make([]byte, 8)
	binary.LittleEndian.PutUint32(userData, 7)
	err := sys.Table().Prepare(h, 64,
		marshal.Signature{marshal.I32, marshal.I64},
		marshal.Signature{marshal.I32},
		userData)
	if err != nil {
		t.Fatal(err)
	}

	mem := guard.NewBuffer(4096)
	return &fixture{
		sys:     sys,
		mem:     mem,
		g:       guard.NewLinear(mem),
		routine: routine,
		handle:  h,
	}
}

func (f *fixture) writeArgs(t *testing.T, ptr uint32, a int32, b int64) {
	t.Helper()
	buf, err := marshal.Pack(
		[]marshal.RawValue{marshal.I32Value(a), marshal.I64Value(b)},
		marshal.Signature{marshal.I32, marshal.I64})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.mem.Write(ptr, buf); err != nil {
		t.Fatal(err)
	}
}

func TestCallDynamicStrictExactBuffers(t *testing.T) {
	f := newFixture(t)
	f.writeArgs(t, 0, 5, 9)

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 12, 64, 4, true)
	if err != nil {
		t.Fatal(err)
	}

	got, err := f.mem.ReadU32(64)
	if err != nil {
		t.Fatal(err)
	}
	if int32(got) != 21 {
		t.Fatalf("result %d, want 21", int32(got))
	}
	if f.routine.calls != 1 {
		t.Fatalf("backing invoked %d times, want 1", f.routine.calls)
	}
}

func TestCallDynamicStrictLengthMismatch(t *testing.T) {
	f := newFixture(t)
	f.writeArgs(t, 0, 5, 9)

	cases := []struct {
		name                  string
		valuesLen, resultsLen uint32
	}{
		{"values short", 4, 4},
		{"values long", 16, 4},
		{"results short", 12, 0},
		{"results long", 12, 8},
	}
	for _, c := range cases {
		err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, c.valuesLen, 64, c.resultsLen, true)
		if !errors.IsKind(err, errors.KindLengthMismatch) {
			t.Fatalf("%s: expected length_mismatch, got %v", c.name, err)
		}
	}
	if f.routine.calls != 0 {
		t.Fatalf("backing routine ran %d times before validation", f.routine.calls)
	}
}

func TestCallDynamicNonStrictZeroFill(t *testing.T) {
	f := newFixture(t)

	// Only a=7 is supplied; the missing i64 must be observed as zero.
	if err := f.mem.WriteU32(0, 7); err != nil {
		t.Fatal(err)
	}

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 4, 64, 4, false)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := f.mem.ReadU32(64)
	if int32(got) != 14 { // a + user = 7 + 7
		t.Fatalf("result %d, want 14", int32(got))
	}
}

func TestCallDynamicNonStrictSurplusIgnored(t *testing.T) {
	f := newFixture(t)
	f.writeArgs(t, 0, 5, 9)
	// Garbage beyond the signature width must never reach the routine.
	if err := f.mem.WriteU64(12, 0xFFFFFFFFFFFFFFFF); err != nil {
		t.Fatal(err)
	}

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 20, 64, 4, false)
	if err != nil {
		t.Fatal(err)
	}

	got, _ := f.mem.ReadU32(64)
	if int32(got) != 21 {
		t.Fatalf("result %d, want 21", int32(got))
	}
}

func TestCallDynamicNonStrictShortResultsUntouched(t *testing.T) {
	f := newFixture(t)
	f.writeArgs(t, 0, 5, 9)

	sentinel := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	if err := f.mem.Write(64, sentinel); err != nil {
		t.Fatal(err)
	}

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 12, 64, 2, false)
	if err != nil {
		t.Fatal(err)
	}
	if f.routine.calls != 1 {
		t.Fatalf("backing invoked %d times, want 1", f.routine.calls)
	}

	got, _ := f.mem.Read(64, 4)
	for i, b := range sentinel {
		if got[i] != b {
			t.Fatalf("guest results buffer modified: %v", got)
		}
	}
}

func TestCallDynamicUnmappedValuesPointer(t *testing.T) {
	f := newFixture(t)

	for _, strict := range []bool{true, false} {
		err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0x10000, 4, 64, 4, strict)
		if strict {
			// Strict length validation runs first; 4 != 12.
			if !errors.IsKind(err, errors.KindLengthMismatch) {
				t.Fatalf("strict: expected length_mismatch, got %v", err)
			}
			continue
		}
		if !errors.IsKind(err, errors.KindMemoryViolation) {
			t.Fatalf("non-strict: expected memory_violation, got %v", err)
		}
	}
	if f.routine.calls != 0 {
		t.Fatal("backing routine must not run after a failed validation")
	}
}

func TestCallDynamicUnmappedPointerMatchingStrictLengths(t *testing.T) {
	f := newFixture(t)

	for _, strict := range []bool{true, false} {
		err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0x10000, 12, 64, 4, strict)
		if !errors.IsKind(err, errors.KindMemoryViolation) {
			t.Fatalf("strict=%v: expected memory_violation, got %v", strict, err)
		}
	}
	if f.routine.calls != 0 {
		t.Fatal("backing routine must not run on memory violation")
	}
}

func TestCallDynamicUnmappedResultsPointer(t *testing.T) {
	f := newFixture(t)
	f.writeArgs(t, 0, 1, 2)

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 12, 0xFFFF0000, 4, false)
	if !errors.IsKind(err, errors.KindMemoryViolation) {
		t.Fatalf("expected memory_violation, got %v", err)
	}
	if f.routine.calls != 0 {
		t.Fatal("backing routine must not run on memory violation")
	}
}

func TestCallDynamicUnpreparedHandle(t *testing.T) {
	f := newFixture(t)

	free := f.sys.Table().Allocate()
	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(free), 0, 0, 0, 0, false)
	if !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("expected invalid_handle, got %v", err)
	}

	err = f.sys.CallDynamic(context.Background(), f.mem, f.g, 0, 0, 0, 0, 0, false)
	if !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("handle 0: expected invalid_handle, got %v", err)
	}
}

func TestCallDynamicAfterFree(t *testing.T) {
	f := newFixture(t)
	f.sys.Table().Free(f.handle)

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 12, 64, 4, true)
	if !errors.IsKind(err, errors.KindInvalidHandle) {
		t.Fatalf("expected invalid_handle, got %v", err)
	}
}

func TestCallDynamicUnresolvedBacking(t *testing.T) {
	f := newFixture(t)
	h := f.sys.Table().Allocate()
	if err := f.sys.Table().Prepare(h, 999, nil, nil, nil); err != nil {
		t.Fatal(err)
	}

	err := f.sys.CallDynamic(context.Background(), f.mem, f.g, uint32(h), 0, 0, 0, 0, false)
	if !errors.IsKind(err, errors.KindUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
}

func TestReflectBuiltin(t *testing.T) {
	reg := builtin.NewRegistry()
	if err := reg.Register(3, marshal.Signature{marshal.F32, marshal.F32}, marshal.Signature{marshal.F64}); err != nil {
		t.Fatal(err)
	}
	sys := NewSystem(reg, NewFuncMap())

	r, err := sys.Reflect(3)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Cacheable {
		t.Fatal("builtin reflection must be cacheable")
	}
	if len(r.Args) != 2 || len(r.Results) != 1 {
		t.Fatalf("arity %d/%d, want 2/1", len(r.Args), len(r.Results))
	}
}

func TestReflectClosureNeverCacheable(t *testing.T) {
	f := newFixture(t)

	r, err := f.sys.Reflect(uint32(f.handle))
	if err != nil {
		t.Fatal(err)
	}
	if r.Cacheable {
		t.Fatal("closure reflection must not be cacheable, even right after prepare")
	}
	if len(r.Args) != 2 || len(r.Results) != 1 {
		t.Fatalf("arity %d/%d, want 2/1", len(r.Args), len(r.Results))
	}
}

func TestReflectZeroPointerCacheableFailure(t *testing.T) {
	f := newFixture(t)

	r, err := f.sys.Reflect(0)
	if !errors.IsKind(err, errors.KindUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
	if !r.Cacheable {
		t.Fatal("the zero pointer is permanently invalid; its failure is cacheable")
	}
}

func TestReflectOutOfRangeNotCacheable(t *testing.T) {
	f := newFixture(t)

	r, err := f.sys.Reflect(0x7FFFFFFF)
	if !errors.IsKind(err, errors.KindUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
	if r.Cacheable {
		t.Fatal("an out-of-range pointer could become valid later; not cacheable")
	}
}

func TestReflectFreedClosureNotCacheable(t *testing.T) {
	f := newFixture(t)
	f.sys.Table().Free(f.handle)

	r, err := f.sys.Reflect(uint32(f.handle))
	if !errors.IsKind(err, errors.KindUnresolved) {
		t.Fatalf("expected unresolved, got %v", err)
	}
	if r.Cacheable {
		t.Fatal("a freed handle can be re-prepared; not cacheable")
	}
}

func TestBuiltinUniverseResolvesFirst(t *testing.T) {
	reg := builtin.NewRegistry()
	if err := reg.Register(1, marshal.Signature{marshal.I32}, nil); err != nil {
		t.Fatal(err)
	}
	sys := NewSystem(reg, NewFuncMap())

	// Closure handles start above the builtin universe.
	h := sys.Table().Allocate()
	if uint32(h) <= 1 {
		t.Fatalf("closure handle %d collides with builtin universe", h)
	}

	r, err := sys.Reflect(1)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Cacheable {
		t.Fatal("expected builtin resolution")
	}
}

func TestPrepareRebindChangesInvocation(t *testing.T) {
	f := newFixture(t)

	// Rebind the same handle to a routine with no user data
	// contribution and a single-arg signature.
	doubler := RoutineFunc(func(_ context.Context, values, results, _ []byte) error {
		v := binary.LittleEndian.Uint32(values)
		binary.LittleEndian.PutUint32(results, v*2)
		return nil
	})
	routines := NewFuncMap()
	routines.Register(64, f.routine)
	routines.Register(65, doubler)
	sys := NewSystemWithTable(f.sys.Table(), builtin.NewRegistry(), routines)

	if err := sys.Table().Prepare(f.handle, 65, marshal.Signature{marshal.I32}, marshal.Signature{marshal.I32}, nil); err != nil {
		t.Fatal(err)
	}

	if err := f.mem.WriteU32(0, 21); err != nil {
		t.Fatal(err)
	}
	if err := sys.CallDynamic(context.Background(), f.mem, f.g, uint32(f.handle), 0, 4, 64, 4, true); err != nil {
		t.Fatal(err)
	}
	got, _ := f.mem.ReadU32(64)
	if got != 42 {
		t.Fatalf("result %d, want 42", got)
	}
}

var _ dyncall.Routine = (*addRoutine)(nil)
