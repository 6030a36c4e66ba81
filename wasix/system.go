package wasix

import (
	"context"

	"go.uber.org/zap"

	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/builtin"
	"github.com/wasmgate/dyncall/dispatch"
	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/marshal"
	"github.com/wasmgate/dyncall/table"
)

// UserDataSize is the size of the opaque user-data blob copied out of
// guest memory at prepare time.
const UserDataSize = 8

// Size and field offsets of the reflection info record written at
// info_out: {cacheable u8, pad[3], arguments u32, results u32}.
const (
	infoSize         = 12
	infoOffCacheable = 0
	infoOffArguments = 4
	infoOffResults   = 8
)

// Config configures a syscall System.
type Config struct {
	// Builtins is the builtin-function signature table supplied by the
	// module loader. Optional.
	Builtins *builtin.Registry

	// Routines resolves backing addresses to invocable routines.
	Routines dyncall.RoutineResolver
}

// System implements the byte-level closure syscall surface over a guest
// memory. It is safe for concurrent use by multiple guest threads.
type System struct {
	dispatch *dispatch.System
}

// NewSystem creates a syscall system with its closure table seeded
// above the builtin universe.
func NewSystem(cfg Config) *System {
	return &System{dispatch: dispatch.NewSystem(cfg.Builtins, cfg.Routines)}
}

// Table returns the closure table.
func (s *System) Table() *table.Table {
	return s.dispatch.Table()
}

// Dispatch returns the underlying dispatch system.
func (s *System) Dispatch() *dispatch.System {
	return s.dispatch
}

// ClosureAllocate reserves a closure slot and returns its handle.
// It always succeeds; table growth failure is an out-of-memory
// condition, not an error code.
func (s *System) ClosureAllocate() uint32 {
	h := uint32(s.dispatch.Table().Allocate())
	Logger().Debug("closure_allocate", zap.Uint32("handle", h))
	return h
}

// ClosurePrepare binds a backing routine, a value-type signature and a
// fixed-size user-data blob to an allocated closure slot. Re-preparing
// a prepared slot overwrites the binding.
func (s *System) ClosurePrepare(mem dyncall.Memory, g dyncall.Guard, backing, handle, argTypesPtr, argCount, resTypesPtr, resCount, userDataPtr uint32) Errno {
	args, errno := s.readSignature(mem, g, argTypesPtr, argCount)
	if errno != ErrnoSuccess {
		return errno
	}
	results, errno := s.readSignature(mem, g, resTypesPtr, resCount)
	if errno != ErrnoSuccess {
		return errno
	}

	var userData []byte
	if userDataPtr != 0 {
		if err := g.Validate(userDataPtr, UserDataSize, dyncall.AccessRead); err != nil {
			return ErrnoOf(err)
		}
		data, err := mem.Read(userDataPtr, UserDataSize)
		if err != nil {
			return ErrnoFault
		}
		userData = data
	}

	if err := s.dispatch.Table().Prepare(table.Handle(handle), backing, args, results, userData); err != nil {
		return ErrnoOf(err)
	}

	Logger().Debug("closure_prepare",
		zap.Uint32("handle", handle),
		zap.Uint32("backing", backing),
		zap.String("args", args.String()),
		zap.String("results", results.String()))
	return ErrnoSuccess
}

// ClosureFree releases a closure slot. It never fails: unallocated,
// already freed and out-of-range handles are no-ops.
func (s *System) ClosureFree(handle uint32) Errno {
	s.dispatch.Table().Free(table.Handle(handle))
	Logger().Debug("closure_free", zap.Uint32("handle", handle))
	return ErrnoSuccess
}

// CallDynamic invokes a prepared closure with raw guest buffers.
func (s *System) CallDynamic(ctx context.Context, mem dyncall.Memory, g dyncall.Guard, handle, valuesPtr, valuesLen, resultsPtr, resultsLen uint32, strict bool) Errno {
	err := s.dispatch.CallDynamic(ctx, mem, g, handle, valuesPtr, valuesLen, resultsPtr, resultsLen, strict)
	return ErrnoOf(err)
}

// ReflectSignature reports the signature of any function pointer.
//
// The info record at infoOut always receives the true arities and the
// cacheable flag, even when the call fails, so a caller whose buffers
// were too small can resize and retry. The tag arrays are written only
// when both capacities fit the full signature; the overflow check
// covers both out buffers as one precondition.
func (s *System) ReflectSignature(mem dyncall.Memory, g dyncall.Guard, fp, argsOut, argsCap, resultsOut, resultsCap, infoOut uint32) Errno {
	// The info destination is checked independently of everything
	// else; a null or unmapped record pointer is a fault.
	if infoOut == 0 {
		return ErrnoFault
	}
	if err := g.Validate(infoOut, infoSize, dyncall.AccessWrite); err != nil {
		return ErrnoOf(err)
	}

	refl, rerr := s.dispatch.Reflect(fp)
	totalArgs := uint32(len(refl.Args))
	totalResults := uint32(len(refl.Results))

	if errno := s.writeInfo(mem, infoOut, refl.Cacheable, totalArgs, totalResults); errno != ErrnoSuccess {
		return errno
	}
	if rerr != nil {
		return ErrnoOf(rerr)
	}

	if argsCap < totalArgs || resultsCap < totalResults {
		return ErrnoOf(errors.Overflow(errors.PhaseReflect, argsCap, resultsCap, totalArgs, totalResults))
	}

	if errno := s.writeTags(mem, g, argsOut, refl.Args); errno != ErrnoSuccess {
		return errno
	}
	if errno := s.writeTags(mem, g, resultsOut, refl.Results); errno != ErrnoSuccess {
		return errno
	}
	return ErrnoSuccess
}

func (s *System) readSignature(mem dyncall.Memory, g dyncall.Guard, ptr, count uint32) (marshal.Signature, Errno) {
	if count == 0 {
		return nil, ErrnoSuccess
	}
	if err := g.Validate(ptr, count, dyncall.AccessRead); err != nil {
		return nil, ErrnoOf(err)
	}
	tags, err := mem.Read(ptr, count)
	if err != nil {
		return nil, ErrnoFault
	}
	sig, err := marshal.ParseSignature(tags)
	if err != nil {
		return nil, ErrnoOf(err)
	}
	return sig, ErrnoSuccess
}

func (s *System) writeInfo(mem dyncall.Memory, infoOut uint32, cacheable bool, args, results uint32) Errno {
	flag := uint8(0)
	if cacheable {
		flag = 1
	}
	if err := mem.WriteU8(infoOut+infoOffCacheable, flag); err != nil {
		return ErrnoFault
	}
	if err := mem.WriteU32(infoOut+infoOffArguments, args); err != nil {
		return ErrnoFault
	}
	if err := mem.WriteU32(infoOut+infoOffResults, results); err != nil {
		return ErrnoFault
	}
	return ErrnoSuccess
}

func (s *System) writeTags(mem dyncall.Memory, g dyncall.Guard, ptr uint32, sig marshal.Signature) Errno {
	if len(sig) == 0 {
		return ErrnoSuccess
	}
	if err := g.Validate(ptr, uint32(len(sig)), dyncall.AccessWrite); err != nil {
		return ErrnoOf(err)
	}
	if err := mem.Write(ptr, sig.Tags()); err != nil {
		return ErrnoFault
	}
	return ErrnoSuccess
}
