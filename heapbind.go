package heapbind

import "go.bytecodealliance.org/wit"

// Addr is an address inside the foreign heap. Zero is the null reference.
type Addr uint64

// Null is the foreign null reference.
const Null Addr = 0

// IsNull reports whether a is the null reference.
func (a Addr) IsNull() bool { return a == 0 }

// Add returns a+off.
func (a Addr) Add(off uint64) Addr { return a + Addr(off) }

// Memory represents the foreign heap. Multi-byte values are little-endian
// unless the implementation documents otherwise. Implementations must not
// assume natural alignment of addr.
type Memory interface {
	Read(addr Addr, length uint32) ([]byte, error)
	Write(addr Addr, data []byte) error
	ReadU8(addr Addr) (uint8, error)
	ReadU16(addr Addr) (uint16, error)
	ReadU32(addr Addr) (uint32, error)
	ReadU64(addr Addr) (uint64, error)
	WriteU8(addr Addr, value uint8) error
	WriteU16(addr Addr, value uint16) error
	WriteU32(addr Addr, value uint32) error
	WriteU64(addr Addr, value uint64) error
}

// ClassID is the foreign runtime's opaque identifier for a class.
type ClassID uint64

// StaticSlot identifies the storage of one static field.
type StaticSlot struct {
	Class ClassID
	Token uint32
	// Addr is where the runtime keeps the value. It is reported to the
	// collector on reference writes and is never dereferenced directly.
	Addr Addr
}

// FieldInfo is what the foreign runtime reports for a named field.
type FieldInfo struct {
	Type     wit.Type
	Name     string
	Slot     StaticSlot
	Offset   uint32
	Static   bool
	ReadOnly bool
}

// ArrayLayout describes the header of a foreign array object. The length
// is stored as a pointer-sized unsigned integer.
type ArrayLayout struct {
	LengthOffset uint32
	DataOffset   uint32
}

// Resolver maps symbolic names to runtime metadata.
type Resolver interface {
	// ClassFromName returns false when no loaded image has the class.
	ClassFromName(module, namespace, name string) (ClassID, bool)
	// ClassInit runs the class's one-time initialization.
	ClassInit(class ClassID) error
	// FieldFromName returns false when the class has no such field.
	FieldFromName(class ClassID, name string) (FieldInfo, bool)
}

// StaticStorage reads and writes per-class static fields.
type StaticStorage interface {
	StaticGet(slot StaticSlot, dst []byte) error
	StaticSet(slot StaticSlot, src []byte) error
}

// Collector is the foreign collector's cooperation primitive.
type Collector interface {
	// WriteBarrier tells the collector that slot now holds value.
	WriteBarrier(slot, value Addr) error
}

// Runtime is the full set of primitives the binding layer needs from a
// foreign runtime.
type Runtime interface {
	Resolver
	StaticStorage
	Collector
	Memory() Memory
	// PointerSize is 4 or 8.
	PointerSize() uint32
	ArrayLayout() ArrayLayout
}

// Layout returns the IL2CPP array header layout for a pointer size.
func Layout(pointerSize uint32) ArrayLayout {
	if pointerSize == 4 {
		return ArrayLayout{LengthOffset: 0x0c, DataOffset: 0x10}
	}
	return ArrayLayout{LengthOffset: 0x18, DataOffset: 0x20}
}
