package dispatch

import (
	"context"
	"sync"

	dyncall "github.com/wasmgate/dyncall"
)

// RoutineFunc adapts a plain function to the Routine interface.
type RoutineFunc func(ctx context.Context, values, results, userData []byte) error

// Invoke implements dyncall.Routine.
func (f RoutineFunc) Invoke(ctx context.Context, values, results, userData []byte) error {
	return f(ctx, values, results, userData)
}

// FuncMap is a RoutineResolver backed by an explicit address map. Hosts
// register the routines reachable as backing addresses; anything else
// stays unresolvable.
type FuncMap struct {
	routines map[uint32]dyncall.Routine
	mu       sync.RWMutex
}

// NewFuncMap creates an empty resolver.
func NewFuncMap() *FuncMap {
	return &FuncMap{routines: make(map[uint32]dyncall.Routine)}
}

// Register binds a routine to a backing address, replacing any previous
// binding.
func (m *FuncMap) Register(addr uint32, r dyncall.Routine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.routines[addr] = r
}

// RegisterFunc binds a plain function to a backing address.
func (m *FuncMap) RegisterFunc(addr uint32, f func(ctx context.Context, values, results, userData []byte) error) {
	m.Register(addr, RoutineFunc(f))
}

// Resolve implements dyncall.RoutineResolver.
func (m *FuncMap) Resolve(addr uint32) (dyncall.Routine, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.routines[addr]
	return r, ok
}
