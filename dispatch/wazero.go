package dispatch

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero/api"

	dyncall "github.com/wasmgate/dyncall"
)

// GuestRoutine invokes a guest-exported backing function through
// wazero. The packed argument bytes, the results buffer and the
// user-data blob are staged in guest linear memory with the guest's
// own allocator, the function is called as
// (values_ptr, results_ptr, env_ptr), and the results are read back.
type GuestRoutine struct {
	Fn    api.Function
	Mem   dyncall.Memory
	Alloc dyncall.Allocator
}

const bufferAlign = 8

// Invoke implements dyncall.Routine.
func (r *GuestRoutine) Invoke(ctx context.Context, values, results, userData []byte) error {
	valuesPtr, err := r.stage(values)
	if err != nil {
		return err
	}
	defer r.release(valuesPtr, uint32(len(values)))

	resultsPtr := uint32(0)
	if len(results) > 0 {
		resultsPtr, err = r.Alloc.Alloc(uint32(len(results)), bufferAlign)
		if err != nil {
			return fmt.Errorf("allocate results buffer: %w", err)
		}
		defer r.release(resultsPtr, uint32(len(results)))
		// Guest sees a zeroed results buffer.
		if err := r.Mem.Write(resultsPtr, results); err != nil {
			return fmt.Errorf("zero results buffer: %w", err)
		}
	}

	envPtr, err := r.stage(userData)
	if err != nil {
		return err
	}
	defer r.release(envPtr, uint32(len(userData)))

	if _, err := r.Fn.Call(ctx, uint64(valuesPtr), uint64(resultsPtr), uint64(envPtr)); err != nil {
		return fmt.Errorf("guest backing routine: %w", err)
	}

	if len(results) > 0 {
		data, err := r.Mem.Read(resultsPtr, uint32(len(results)))
		if err != nil {
			return fmt.Errorf("read results buffer: %w", err)
		}
		copy(results, data)
	}
	return nil
}

func (r *GuestRoutine) stage(data []byte) (uint32, error) {
	if len(data) == 0 {
		return 0, nil
	}
	ptr, err := r.Alloc.Alloc(uint32(len(data)), bufferAlign)
	if err != nil {
		return 0, fmt.Errorf("allocate guest buffer: %w", err)
	}
	if err := r.Mem.Write(ptr, data); err != nil {
		r.Alloc.Free(ptr, uint32(len(data)), bufferAlign)
		return 0, fmt.Errorf("write guest buffer: %w", err)
	}
	return ptr, nil
}

func (r *GuestRoutine) release(ptr, size uint32) {
	if ptr != 0 {
		r.Alloc.Free(ptr, size, bufferAlign)
	}
}
