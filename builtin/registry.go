package builtin

import (
	"sync"

	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/marshal"
)

// Entry is the fixed signature of a builtin function pointer.
type Entry struct {
	Args    marshal.Signature
	Results marshal.Signature
}

// Registry holds the statically known signatures of builtin function
// pointers, supplied by the module loader at link time. Signatures
// never change for the lifetime of the process, so lookups are
// cacheable by callers.
type Registry struct {
	sigs map[uint32]Entry
	max  uint32
	mu   sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sigs: make(map[uint32]Entry)}
}

// Register records the signature of a builtin function pointer.
// Function pointer 0 is permanently reserved and rejected; registering
// the same pointer twice is a loader bug and rejected as well.
func (r *Registry) Register(fp uint32, args, results marshal.Signature) error {
	if fp == 0 {
		return errors.InvalidInput(errors.PhaseHost, "function pointer 0 is reserved")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.sigs[fp]; dup {
		return errors.New(errors.PhaseHost, errors.KindInvalidInput).
			Detail("builtin %d registered twice", fp).
			Build()
	}
	r.sigs[fp] = Entry{
		Args:    append(marshal.Signature(nil), args...),
		Results: append(marshal.Signature(nil), results...),
	}
	if fp > r.max {
		r.max = fp
	}
	return nil
}

// Signature returns the fixed signature of a builtin function pointer.
func (r *Registry) Signature(fp uint32) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.sigs[fp]
	return e, ok
}

// Len returns the number of registered builtins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sigs)
}

// NextBase returns the first handle value above every registered
// builtin. Closure tables seeded with this base issue handles disjoint
// from the builtin universe.
func (r *Registry) NextBase() uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.max == 0 {
		return 1
	}
	return r.max + 1
}
