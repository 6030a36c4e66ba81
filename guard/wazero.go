package guard

import (
	"fmt"

	"github.com/tetratelabs/wazero/api"

	dyncall "github.com/wasmgate/dyncall"
)

// WrapMemory wraps a wazero api.Memory into the root Memory and
// MemorySizer interfaces.
func WrapMemory(mem api.Memory) *WazeroMemory {
	if mem == nil {
		return nil
	}
	return &WazeroMemory{Mem: mem}
}

// NewWazero creates a guard over a wazero linear memory.
func NewWazero(mem api.Memory) *Linear {
	return NewLinear(WrapMemory(mem))
}

// WazeroMemory adapts wazero api.Memory to the dyncall.Memory interface.
type WazeroMemory struct {
	Mem api.Memory
}

var _ dyncall.Memory = (*WazeroMemory)(nil)
var _ dyncall.MemorySizer = (*WazeroMemory)(nil)

// Size returns the memory size in bytes.
func (m *WazeroMemory) Size() uint32 {
	return m.Mem.Size()
}

// Read reads bytes from memory.
func (m *WazeroMemory) Read(offset uint32, length uint32) ([]byte, error) {
	data, ok := m.Mem.Read(offset, length)
	if !ok {
		return nil, fmt.Errorf("memory read out of bounds: offset=%d, length=%d", offset, length)
	}
	return data, nil
}

// Write writes bytes to memory.
func (m *WazeroMemory) Write(offset uint32, data []byte) error {
	if !m.Mem.Write(offset, data) {
		return fmt.Errorf("memory write out of bounds: offset=%d, length=%d", offset, len(data))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *WazeroMemory) ReadU8(offset uint32) (uint8, error) {
	v, ok := m.Mem.ReadByte(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *WazeroMemory) ReadU32(offset uint32) (uint32, error) {
	v, ok := m.Mem.ReadUint32Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *WazeroMemory) ReadU64(offset uint32) (uint64, error) {
	v, ok := m.Mem.ReadUint64Le(offset)
	if !ok {
		return 0, fmt.Errorf("memory read out of bounds: offset=%d", offset)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *WazeroMemory) WriteU8(offset uint32, value uint8) error {
	if !m.Mem.WriteByte(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *WazeroMemory) WriteU32(offset uint32, value uint32) error {
	if !m.Mem.WriteUint32Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *WazeroMemory) WriteU64(offset uint32, value uint64) error {
	if !m.Mem.WriteUint64Le(offset, value) {
		return fmt.Errorf("memory write out of bounds: offset=%d", offset)
	}
	return nil
}
