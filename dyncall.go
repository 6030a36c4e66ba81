package dyncall

import "context"

// Memory represents guest linear memory as seen by the host.
type Memory interface {
	Read(offset uint32, length uint32) ([]byte, error)
	Write(offset uint32, data []byte) error
	ReadU8(offset uint32) (uint8, error)
	ReadU32(offset uint32) (uint32, error)
	ReadU64(offset uint32) (uint64, error)
	WriteU8(offset uint32, value uint8) error
	WriteU32(offset uint32, value uint32) error
	WriteU64(offset uint32, value uint64) error
}

// MemorySizer provides the current size of guest linear memory in bytes.
type MemorySizer interface {
	Size() uint32
}

// Allocator allocates memory in guest linear memory.
type Allocator interface {
	Alloc(size, align uint32) (uint32, error)
	Free(ptr, size, align uint32)
}

// Access is the requested access mode for a guard check.
type Access uint8

const (
	AccessRead Access = iota
	AccessWrite
)

func (a Access) String() string {
	if a == AccessWrite {
		return "write"
	}
	return "read"
}

// Guard validates guest-supplied address ranges before the host touches
// them. A zero-length range is always valid, regardless of address.
// Implementations must be side-effect free.
type Guard interface {
	Validate(addr, length uint32, mode Access) error
}

// Routine is a backing routine bound to a closure slot. It receives the
// densely packed argument bytes, a results buffer to fill, and the
// user-data blob copied at prepare time. The buffers are host-owned and
// exactly sized to the bound signature.
type Routine interface {
	Invoke(ctx context.Context, values, results, userData []byte) error
}

// RoutineResolver maps a backing address (the value passed to
// closure_prepare) to an invocable routine. Supplied by the hosting VM.
type RoutineResolver interface {
	Resolve(addr uint32) (Routine, bool)
}
