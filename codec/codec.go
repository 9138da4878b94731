package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
)

// Scalar is a fixed-width integer encoding. Width is in bytes.
type Scalar struct {
	Width  uint8
	Signed bool
}

var (
	U8  = Scalar{Width: 1}
	S8  = Scalar{Width: 1, Signed: true}
	U16 = Scalar{Width: 2}
	S16 = Scalar{Width: 2, Signed: true}
	U32 = Scalar{Width: 4}
	S32 = Scalar{Width: 4, Signed: true}
	U64 = Scalar{Width: 8}
	S64 = Scalar{Width: 8, Signed: true}
)

// Pointer returns the unsigned scalar matching a pointer size.
func Pointer(size uint32) Scalar {
	if size == 4 {
		return U32
	}
	return U64
}

// Valid reports whether the width is one of 1, 2, 4, 8.
func (s Scalar) Valid() bool {
	switch s.Width {
	case 1, 2, 4, 8:
		return true
	}
	return false
}

func (s Scalar) String() string {
	p := "u"
	if s.Signed {
		p = "s"
	}
	return fmt.Sprintf("%s%d", p, int(s.Width)*8)
}

func (s Scalar) bits() uint { return uint(s.Width) * 8 }

// Extend sign- or zero-extends the low Width bytes of raw.
func (s Scalar) Extend(raw uint64) uint64 {
	if s.Width >= 8 {
		return raw
	}
	shift := 64 - s.bits()
	if s.Signed {
		return uint64(int64(raw<<shift) >> shift)
	}
	return raw << shift >> shift
}

// FitsInt reports whether v is representable in s.
func (s Scalar) FitsInt(v int64) bool {
	if s.Signed {
		if s.Width >= 8 {
			return true
		}
		lim := int64(1) << (s.bits() - 1)
		return v >= -lim && v < lim
	}
	if v < 0 {
		return false
	}
	return s.FitsUint(uint64(v))
}

// FitsUint reports whether v is representable in s.
func (s Scalar) FitsUint(v uint64) bool {
	if s.Signed {
		if s.Width >= 8 {
			return v <= math.MaxInt64
		}
		return v < uint64(1)<<(s.bits()-1)
	}
	if s.Width >= 8 {
		return true
	}
	return v < uint64(1)<<s.bits()
}

// Int interprets extended bits as a signed value.
// ok is false when an unsigned u64 does not fit in int64.
func (s Scalar) Int(bits uint64) (v int64, ok bool) {
	if !s.Signed && bits > math.MaxInt64 {
		return 0, false
	}
	return int64(bits), true
}

// Uint interprets extended bits as an unsigned value.
// ok is false for negative signed values.
func (s Scalar) Uint(bits uint64) (v uint64, ok bool) {
	if s.Signed && int64(bits) < 0 {
		return 0, false
	}
	return bits, true
}

// Read reads s.Width bytes at addr and returns the extended bits.
func Read(mem heapbind.Memory, addr heapbind.Addr, s Scalar) (uint64, error) {
	var raw uint64
	var err error
	switch s.Width {
	case 1:
		var v uint8
		v, err = mem.ReadU8(addr)
		raw = uint64(v)
	case 2:
		var v uint16
		v, err = mem.ReadU16(addr)
		raw = uint64(v)
	case 4:
		var v uint32
		v, err = mem.ReadU32(addr)
		raw = uint64(v)
	case 8:
		raw, err = mem.ReadU64(addr)
	default:
		return 0, errors.InvalidInput(errors.PhaseAccess, fmt.Sprintf("invalid scalar width %d", s.Width))
	}
	if err != nil {
		return 0, err
	}
	return s.Extend(raw), nil
}

// Write writes the low s.Width bytes of bits at addr.
func Write(mem heapbind.Memory, addr heapbind.Addr, s Scalar, bits uint64) error {
	switch s.Width {
	case 1:
		return mem.WriteU8(addr, uint8(bits))
	case 2:
		return mem.WriteU16(addr, uint16(bits))
	case 4:
		return mem.WriteU32(addr, uint32(bits))
	case 8:
		return mem.WriteU64(addr, bits)
	default:
		return errors.InvalidInput(errors.PhaseAccess, fmt.Sprintf("invalid scalar width %d", s.Width))
	}
}

// Decode extends the little-endian value in buf. len(buf) must be s.Width.
func Decode(buf []byte, s Scalar) uint64 {
	var raw uint64
	switch s.Width {
	case 1:
		raw = uint64(buf[0])
	case 2:
		raw = uint64(binary.LittleEndian.Uint16(buf))
	case 4:
		raw = uint64(binary.LittleEndian.Uint32(buf))
	default:
		raw = binary.LittleEndian.Uint64(buf)
	}
	return s.Extend(raw)
}

// Encode returns the little-endian encoding of the low s.Width bytes of bits.
func Encode(s Scalar, bits uint64) []byte {
	buf := make([]byte, s.Width)
	switch s.Width {
	case 1:
		buf[0] = uint8(bits)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(bits))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(bits))
	default:
		binary.LittleEndian.PutUint64(buf, bits)
	}
	return buf
}

// ReadPointer reads a pointer-sized slot.
func ReadPointer(mem heapbind.Memory, addr heapbind.Addr, size uint32) (heapbind.Addr, error) {
	v, err := Read(mem, addr, Pointer(size))
	return heapbind.Addr(v), err
}

// WritePointer writes a pointer-sized slot.
func WritePointer(mem heapbind.Memory, addr heapbind.Addr, size uint32, value heapbind.Addr) error {
	if size == 4 && uint64(value) > math.MaxUint32 {
		return errors.Overflow(nil, uint64(value), "pointer32")
	}
	return Write(mem, addr, Pointer(size), uint64(value))
}
