package wasmheap

import (
	"math"

	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
)

// Memory adapts a wazero linear memory to heapbind.Memory. Addresses are
// guest offsets; address zero is the null pointer and is never accessed.
type Memory struct {
	mem api.Memory
}

// WrapMemory wraps a wazero memory. It returns nil for a nil memory.
func WrapMemory(mem api.Memory) *Memory {
	if mem == nil {
		return nil
	}
	return &Memory{mem: mem}
}

// Size returns the current memory size in bytes.
func (m *Memory) Size() uint32 { return m.mem.Size() }

func offset(addr heapbind.Addr, n uint32) (uint32, error) {
	if addr.IsNull() || uint64(addr) > math.MaxUint32 {
		return 0, errors.OutOfBounds(uint64(addr), n)
	}
	return uint32(addr), nil
}

// Read copies length bytes starting at addr.
func (m *Memory) Read(addr heapbind.Addr, length uint32) ([]byte, error) {
	off, err := offset(addr, length)
	if err != nil {
		return nil, err
	}
	data, ok := m.mem.Read(off, length)
	if !ok {
		return nil, errors.OutOfBounds(uint64(addr), length)
	}
	// wazero returns a view that a memory.grow can invalidate
	return append([]byte(nil), data...), nil
}

// Write writes data at addr.
func (m *Memory) Write(addr heapbind.Addr, data []byte) error {
	off, err := offset(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	if !m.mem.Write(off, data) {
		return errors.OutOfBounds(uint64(addr), uint32(len(data)))
	}
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Memory) ReadU8(addr heapbind.Addr) (uint8, error) {
	off, err := offset(addr, 1)
	if err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadByte(off)
	if !ok {
		return 0, errors.OutOfBounds(uint64(addr), 1)
	}
	return v, nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Memory) ReadU16(addr heapbind.Addr) (uint16, error) {
	off, err := offset(addr, 2)
	if err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadUint16Le(off)
	if !ok {
		return 0, errors.OutOfBounds(uint64(addr), 2)
	}
	return v, nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Memory) ReadU32(addr heapbind.Addr) (uint32, error) {
	off, err := offset(addr, 4)
	if err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadUint32Le(off)
	if !ok {
		return 0, errors.OutOfBounds(uint64(addr), 4)
	}
	return v, nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Memory) ReadU64(addr heapbind.Addr) (uint64, error) {
	off, err := offset(addr, 8)
	if err != nil {
		return 0, err
	}
	v, ok := m.mem.ReadUint64Le(off)
	if !ok {
		return 0, errors.OutOfBounds(uint64(addr), 8)
	}
	return v, nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Memory) WriteU8(addr heapbind.Addr, value uint8) error {
	off, err := offset(addr, 1)
	if err != nil {
		return err
	}
	if !m.mem.WriteByte(off, value) {
		return errors.OutOfBounds(uint64(addr), 1)
	}
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Memory) WriteU16(addr heapbind.Addr, value uint16) error {
	off, err := offset(addr, 2)
	if err != nil {
		return err
	}
	if !m.mem.WriteUint16Le(off, value) {
		return errors.OutOfBounds(uint64(addr), 2)
	}
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Memory) WriteU32(addr heapbind.Addr, value uint32) error {
	off, err := offset(addr, 4)
	if err != nil {
		return err
	}
	if !m.mem.WriteUint32Le(off, value) {
		return errors.OutOfBounds(uint64(addr), 4)
	}
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Memory) WriteU64(addr heapbind.Addr, value uint64) error {
	off, err := offset(addr, 8)
	if err != nil {
		return err
	}
	if !m.mem.WriteUint64Le(off, value) {
		return errors.OutOfBounds(uint64(addr), 8)
	}
	return nil
}

var _ heapbind.Memory = (*Memory)(nil)
