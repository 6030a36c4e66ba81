package guard

import (
	"encoding/binary"
	"fmt"
)

// Buffer is a byte-slice backed linear memory. It implements the root
// Memory and MemorySizer interfaces and is used by hosts without an
// engine, by the interactive testbed, and by tests.
type Buffer struct {
	data []byte
}

// NewBuffer creates a linear memory of the given size.
func NewBuffer(size uint32) *Buffer {
	return &Buffer{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (b *Buffer) Size() uint32 {
	return uint32(len(b.data))
}

func (b *Buffer) bounds(offset, length uint32) error {
	if uint64(offset)+uint64(length) > uint64(len(b.data)) {
		return fmt.Errorf("memory access out of bounds: offset=%d, length=%d", offset, length)
	}
	return nil
}

// Read returns a copy of length bytes at offset.
func (b *Buffer) Read(offset, length uint32) ([]byte, error) {
	if err := b.bounds(offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b.data[offset:])
	return out, nil
}

// Write copies data into memory at offset.
func (b *Buffer) Write(offset uint32, data []byte) error {
	if err := b.bounds(offset, uint32(len(data))); err != nil {
		return err
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (b *Buffer) ReadU8(offset uint32) (uint8, error) {
	if err := b.bounds(offset, 1); err != nil {
		return 0, err
	}
	return b.data[offset], nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (b *Buffer) ReadU32(offset uint32) (uint32, error) {
	if err := b.bounds(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b.data[offset:]), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (b *Buffer) ReadU64(offset uint32) (uint64, error) {
	if err := b.bounds(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b.data[offset:]), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (b *Buffer) WriteU8(offset uint32, value uint8) error {
	if err := b.bounds(offset, 1); err != nil {
		return err
	}
	b.data[offset] = value
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (b *Buffer) WriteU32(offset uint32, value uint32) error {
	if err := b.bounds(offset, 4); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b.data[offset:], value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (b *Buffer) WriteU64(offset uint32, value uint64) error {
	if err := b.bounds(offset, 8); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b.data[offset:], value)
	return nil
}
