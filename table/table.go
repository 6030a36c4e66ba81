package table

import (
	"sync"

	"github.com/wasmgate/dyncall/errors"
	"github.com/wasmgate/dyncall/marshal"
)

// Handle is an opaque reference to a closure slot. Handle 0 is reserved
// and always invalid.
type Handle uint32

// Binding is the prepared state of a closure slot. A Binding is
// immutable once published: re-preparing a slot swaps in a fresh
// record, so concurrent readers never observe a torn update.
type Binding struct {
	Args     marshal.Signature
	Results  marshal.Signature
	UserData []byte
	Backing  uint32
}

type entry struct {
	binding    *Binding
	generation uint32
	allocated  bool
}

// Table is the process-wide closure slot registry. Handles are issued
// starting at the configured base so that the builtin function-pointer
// universe below the base stays disjoint from closure handles.
//
// The table grows without bound as slots are allocated; exhaustion is
// an out-of-memory condition, not an error code.
type Table struct {
	entries  []entry
	freeList []Handle
	base     Handle
	mu       sync.RWMutex
}

// New creates a table whose first handle is base. A base of 0 is
// treated as 1 to keep handle 0 permanently invalid.
func New(base uint32) *Table {
	if base == 0 {
		base = 1
	}
	return &Table{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
		base:     Handle(base),
	}
}

// Base returns the first handle value this table can issue.
func (t *Table) Base() uint32 {
	return uint32(t.base)
}

// Allocate reserves a Free slot and returns its handle. Released
// handles are reused before the table grows; a freshly allocated handle
// is always unique among currently allocated slots.
func (t *Table) Allocate() Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n := len(t.freeList); n > 0 {
		h := t.freeList[n-1]
		t.freeList = t.freeList[:n-1]
		e := &t.entries[h-t.base]
		e.allocated = true
		e.binding = nil
		e.generation++
		return h
	}

	t.entries = append(t.entries, entry{allocated: true})
	return t.base + Handle(len(t.entries)-1)
}

// Prepare binds a backing routine, signatures and user data to an
// allocated slot, copying the user data into table-owned storage.
// Re-preparing a Prepared slot overwrites the binding without an
// intervening Free. Fails if the handle does not name a slot the table
// currently manages.
func (t *Table) Prepare(h Handle, backing uint32, args, results marshal.Signature, userData []byte) error {
	b := &Binding{
		Backing:  backing,
		Args:     append(marshal.Signature(nil), args...),
		Results:  append(marshal.Signature(nil), results...),
		UserData: append([]byte(nil), userData...),
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.slot(h)
	if !ok {
		return errors.InvalidHandle(errors.PhaseTable, uint32(h))
	}
	e.binding = b
	return nil
}

// Free returns a slot to the Free state and drops its binding. It is
// idempotent and never fails: handles that were never allocated,
// already freed, out of range, zero, or 0xFFFFFFFF are all no-ops.
func (t *Table) Free(h Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.slot(h)
	if !ok {
		return
	}
	e.binding = nil
	e.allocated = false
	t.freeList = append(t.freeList, h)
}

// Lookup returns the current binding for a Prepared slot. It returns
// false if the slot is Free or the handle is out of range. The returned
// Binding is immutable and safe to use without holding any lock.
func (t *Table) Lookup(h Handle) (*Binding, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.slot(h)
	if !ok || e.binding == nil {
		return nil, false
	}
	return e.binding, true
}

// Len returns the number of currently allocated slots.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	count := 0
	for i := range t.entries {
		if t.entries[i].allocated {
			count++
		}
	}
	return count
}

// Cap returns the total number of slots the table has ever grown to.
func (t *Table) Cap() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// Each iterates over allocated slots in handle order. The binding is
// nil for slots that are allocated but not Prepared.
func (t *Table) Each(fn func(h Handle, b *Binding) bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for i := range t.entries {
		if !t.entries[i].allocated {
			continue
		}
		if !fn(t.base+Handle(i), t.entries[i].binding) {
			break
		}
	}
}

// slot resolves a handle to its entry. Callers hold t.mu.
func (t *Table) slot(h Handle) (*entry, bool) {
	if h < t.base {
		return nil, false
	}
	idx := int(h - t.base)
	if idx >= len(t.entries) || !t.entries[idx].allocated {
		return nil, false
	}
	return &t.entries[idx], true
}
