// Package native provides a heapbind.Memory over the current process's
// address space.
package native

import (
	"encoding/binary"
	"unsafe"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
)

// Region is a range of process memory the Memory may touch.
type Region struct {
	Base heapbind.Addr
	Size uint64
}

// Contains reports whether [addr, addr+n) lies inside r.
func (r Region) Contains(addr heapbind.Addr, n uint64) bool {
	if addr < r.Base {
		return false
	}
	off := uint64(addr - r.Base)
	return off <= r.Size && n <= r.Size-off
}

// RegionOf returns the region backing buf. The caller keeps buf reachable
// for as long as the region is in use.
func RegionOf(buf []byte) Region {
	if len(buf) == 0 {
		return Region{}
	}
	return Region{
		Base: heapbind.Addr(uintptr(unsafe.Pointer(unsafe.SliceData(buf)))),
		Size: uint64(len(buf)),
	}
}

// Memory reads and writes raw process addresses. This is the only place in
// heapbind that turns an integer address into a pointer.
//
// With no regions every non-null address is accepted and a bad address
// faults the process. With regions, accesses outside all of them fail with
// an out_of_bounds error instead.
type Memory struct {
	regions []Region
}

// New creates a Memory restricted to regions, or unrestricted if none.
func New(regions ...Region) *Memory {
	return &Memory{regions: regions}
}

func (m *Memory) check(addr heapbind.Addr, n uint32) error {
	if addr.IsNull() {
		return errors.OutOfBounds(uint64(addr), n)
	}
	if len(m.regions) == 0 {
		return nil
	}
	for _, r := range m.regions {
		if r.Contains(addr, uint64(n)) {
			return nil
		}
	}
	return errors.OutOfBounds(uint64(addr), n)
}

// view aliases n bytes at addr. Callers run check first.
//
//go:nocheckptr
func view(addr heapbind.Addr, n uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}

func (m *Memory) span(addr heapbind.Addr, n uint32) ([]byte, error) {
	if err := m.check(addr, n); err != nil {
		return nil, err
	}
	return view(addr, n), nil
}

// Read copies length bytes starting at addr.
func (m *Memory) Read(addr heapbind.Addr, length uint32) ([]byte, error) {
	b, err := m.span(addr, length)
	if err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, b)
	return out, nil
}

// Write copies data to addr.
func (m *Memory) Write(addr heapbind.Addr, data []byte) error {
	b, err := m.span(addr, uint32(len(data)))
	if err != nil {
		return err
	}
	copy(b, data)
	return nil
}

// ReadU8 reads an unsigned 8-bit value.
func (m *Memory) ReadU8(addr heapbind.Addr) (uint8, error) {
	b, err := m.span(addr, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads an unsigned 16-bit little-endian value.
func (m *Memory) ReadU16(addr heapbind.Addr) (uint16, error) {
	b, err := m.span(addr, 2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// ReadU32 reads an unsigned 32-bit little-endian value.
func (m *Memory) ReadU32(addr heapbind.Addr) (uint32, error) {
	b, err := m.span(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// ReadU64 reads an unsigned 64-bit little-endian value.
func (m *Memory) ReadU64(addr heapbind.Addr) (uint64, error) {
	b, err := m.span(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// WriteU8 writes an unsigned 8-bit value.
func (m *Memory) WriteU8(addr heapbind.Addr, value uint8) error {
	b, err := m.span(addr, 1)
	if err != nil {
		return err
	}
	b[0] = value
	return nil
}

// WriteU16 writes an unsigned 16-bit little-endian value.
func (m *Memory) WriteU16(addr heapbind.Addr, value uint16) error {
	b, err := m.span(addr, 2)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint16(b, value)
	return nil
}

// WriteU32 writes an unsigned 32-bit little-endian value.
func (m *Memory) WriteU32(addr heapbind.Addr, value uint32) error {
	b, err := m.span(addr, 4)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(b, value)
	return nil
}

// WriteU64 writes an unsigned 64-bit little-endian value.
func (m *Memory) WriteU64(addr heapbind.Addr, value uint64) error {
	b, err := m.span(addr, 8)
	if err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(b, value)
	return nil
}

var _ heapbind.Memory = (*Memory)(nil)
