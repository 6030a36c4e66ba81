package wasix

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/guard"
)

// ModuleName is the import namespace guests use for the closure
// syscalls.
const ModuleName = "wasix_32v1"

var (
	i32    = api.ValueTypeI32
	noI32  []api.ValueType
	oneI32 = []api.ValueType{i32}
	sixI32 = []api.ValueType{i32, i32, i32, i32, i32, i32}
	sevI32 = []api.ValueType{i32, i32, i32, i32, i32, i32, i32}
)

// Instantiate registers the closure syscall surface as a wazero host
// module. Each call derives its memory view and guard from the calling
// module, so the surface works with any number of guest instances.
func Instantiate(ctx context.Context, rt wazero.Runtime, sys *System) (api.Closer, error) {
	if sys == nil {
		return nil, errors.InvalidInput(errors.PhaseHost, "nil system")
	}

	builder := rt.NewHostModuleBuilder(ModuleName)

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(sys.ClosureAllocate())
		}), noI32, oneI32).
		Export("closure_allocate")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			mem, g := guestView(mod)
			errno := sys.ClosurePrepare(mem, g,
				uint32(stack[0]), // backing
				uint32(stack[1]), // closure handle
				uint32(stack[2]), // arg types ptr
				uint32(stack[3]), // arg count
				uint32(stack[4]), // result types ptr
				uint32(stack[5]), // result count
				uint32(stack[6])) // user data ptr
			stack[0] = uint64(errno)
		}), sevI32, oneI32).
		Export("closure_prepare")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, _ api.Module, stack []uint64) {
			stack[0] = uint64(sys.ClosureFree(uint32(stack[0])))
		}), oneI32, oneI32).
		Export("closure_free")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
			mem, g := guestView(mod)
			errno := sys.CallDynamic(ctx, mem, g,
				uint32(stack[0]), // handle
				uint32(stack[1]), // values ptr
				uint32(stack[2]), // values len
				uint32(stack[3]), // results ptr
				uint32(stack[4]), // results len
				stack[5] != 0)    // strict
			stack[0] = uint64(errno)
		}), sixI32, oneI32).
		Export("call_dynamic")

	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(func(_ context.Context, mod api.Module, stack []uint64) {
			mem, g := guestView(mod)
			errno := sys.ReflectSignature(mem, g,
				uint32(stack[0]), // function pointer
				uint32(stack[1]), // args out
				uint32(stack[2]), // args cap
				uint32(stack[3]), // results out
				uint32(stack[4]), // results cap
				uint32(stack[5])) // info out
			stack[0] = uint64(errno)
		}), sixI32, oneI32).
		Export("reflect_signature")

	return builder.Instantiate(ctx)
}

func guestView(mod api.Module) (dyncall.Memory, dyncall.Guard) {
	mem := guard.WrapMemory(mod.Memory())
	return mem, guard.NewLinear(mem)
}
