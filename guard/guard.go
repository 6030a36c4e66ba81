package guard

import (
	dyncall "github.com/wasmgate/dyncall"
	"github.com/wasmgate/dyncall/errors"
)

// Linear validates ranges against the current size of a linear memory.
// WASM linear memory is uniformly readable and writable, so the access
// mode only affects diagnostics. Linear holds no state of its own; it
// re-reads the size on every call because linear memory can grow.
type Linear struct {
	mem dyncall.MemorySizer
}

// NewLinear creates a guard over a linear memory.
func NewLinear(mem dyncall.MemorySizer) *Linear {
	return &Linear{mem: mem}
}

// Validate reports whether every byte of [addr, addr+length) is inside
// the memory. A zero length is valid at any address.
func (g *Linear) Validate(addr, length uint32, mode dyncall.Access) error {
	if length == 0 {
		return nil
	}
	end := uint64(addr) + uint64(length)
	if end > uint64(g.mem.Size()) {
		return errors.MemoryViolation(errors.PhaseGuard, addr, length, mode.String())
	}
	return nil
}

// Region is a single mapped range with access permissions.
type Region struct {
	Start    uint32
	Length   uint32
	Readable bool
	Writable bool
}

func (r Region) allows(mode dyncall.Access) bool {
	if mode == dyncall.AccessWrite {
		return r.Writable
	}
	return r.Readable
}

func (r Region) contains(addr, length uint32) bool {
	if addr < r.Start {
		return false
	}
	return uint64(addr)+uint64(length) <= uint64(r.Start)+uint64(r.Length)
}

// Regions validates ranges against an explicit allow-list of mapped
// regions. Hosts with partially mapped guest memory use it directly;
// tests use it to model unmapped addresses. A range is valid only if a
// single region covers it entirely with the required permission.
type Regions struct {
	regions []Region
}

// NewRegions creates a guard from a fixed set of mapped regions.
func NewRegions(regions ...Region) *Regions {
	return &Regions{regions: append([]Region(nil), regions...)}
}

// Validate implements dyncall.Guard.
func (g *Regions) Validate(addr, length uint32, mode dyncall.Access) error {
	if length == 0 {
		return nil
	}
	for _, r := range g.regions {
		if r.contains(addr, length) && r.allows(mode) {
			return nil
		}
	}
	return errors.MemoryViolation(errors.PhaseGuard, addr, length, mode.String())
}
