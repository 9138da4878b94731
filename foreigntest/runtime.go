// Package foreigntest provides a fake foreign runtime for tests.
//
// Objects live in a fixed arena of real process memory, accessed through
// native.Memory restricted to that arena, so a stray read fails instead of
// faulting. Lookups, class initializations and write barriers are counted
// and recorded for assertions.
package foreigntest

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/kind"
	"github.com/wippyai/heapbind/metadata"
	"github.com/wippyai/heapbind/native"
)

// Barrier is one recorded write barrier notification.
type Barrier struct {
	Slot  heapbind.Addr
	Value heapbind.Addr
}

// Option configures a Runtime.
type Option func(*Runtime)

// PointerSize sets the runtime's pointer size (4 or 8).
func PointerSize(n uint32) Option {
	return func(r *Runtime) { r.pointerSize = n }
}

// ArenaSize sets the size of the object arena in bytes.
func ArenaSize(n int) Option {
	return func(r *Runtime) { r.arenaSize = n }
}

// LookupDelay makes every class and field lookup sleep for d.
func LookupDelay(d time.Duration) Option {
	return func(r *Runtime) { r.delay = d }
}

// Runtime is a fake foreign runtime. It is safe for concurrent use.
type Runtime struct {
	*metadata.Image

	mem      *native.Memory
	initErrs map[heapbind.ClassID]error
	arena    []byte
	barriers []Barrier

	base        heapbind.Addr
	next        uint64
	delay       time.Duration
	arenaSize   int
	pointerSize uint32

	classLookups atomic.Int64
	fieldLookups atomic.Int64
	classInits   atomic.Int64

	mu sync.Mutex
}

// New creates a fake runtime with an empty image.
func New(opts ...Option) *Runtime {
	r := &Runtime{
		pointerSize: 8,
		arenaSize:   64 << 10,
		initErrs:    make(map[heapbind.ClassID]error),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.Image = metadata.NewImage(r.pointerSize)
	r.pointerSize = r.Image.PointerSize()
	r.arena = make([]byte, r.arenaSize)
	region := native.RegionOf(r.arena)
	r.base = region.Base
	r.mem = native.New(region)
	// Keep offset 0 unused so no object starts at the arena base.
	r.next = 16
	return r
}

// Memory implements heapbind.Runtime.
func (r *Runtime) Memory() heapbind.Memory { return r.mem }

// ClassFromName implements heapbind.Resolver and counts the call.
func (r *Runtime) ClassFromName(module, namespace, name string) (heapbind.ClassID, bool) {
	r.classLookups.Add(1)
	r.sleep()
	return r.Image.ClassFromName(module, namespace, name)
}

// FieldFromName implements heapbind.Resolver and counts the call.
func (r *Runtime) FieldFromName(class heapbind.ClassID, name string) (heapbind.FieldInfo, bool) {
	r.fieldLookups.Add(1)
	r.sleep()
	return r.Image.FieldFromName(class, name)
}

func (r *Runtime) sleep() {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
}

// ClassInit implements heapbind.Resolver.
func (r *Runtime) ClassInit(class heapbind.ClassID) error {
	r.classInits.Add(1)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initErrs[class]
}

// FailInit makes ClassInit for class return err. A nil err clears it.
func (r *Runtime) FailInit(class heapbind.ClassID, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.initErrs, class)
		return
	}
	r.initErrs[class] = err
}

// StaticGet implements heapbind.StaticStorage.
func (r *Runtime) StaticGet(slot heapbind.StaticSlot, dst []byte) error {
	b, err := r.mem.Read(slot.Addr, uint32(len(dst)))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// StaticSet implements heapbind.StaticStorage.
func (r *Runtime) StaticSet(slot heapbind.StaticSlot, src []byte) error {
	return r.mem.Write(slot.Addr, src)
}

// WriteBarrier implements heapbind.Collector by recording the call.
func (r *Runtime) WriteBarrier(slot, value heapbind.Addr) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.barriers = append(r.barriers, Barrier{Slot: slot, Value: value})
	return nil
}

// Barriers returns the recorded write barrier notifications.
func (r *Runtime) Barriers() []Barrier {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Barrier(nil), r.barriers...)
}

// ResetBarriers clears the recorded notifications.
func (r *Runtime) ResetBarriers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.barriers = nil
}

// ClassLookups returns the number of ClassFromName calls.
func (r *Runtime) ClassLookups() int64 { return r.classLookups.Load() }

// FieldLookups returns the number of FieldFromName calls.
func (r *Runtime) FieldLookups() int64 { return r.fieldLookups.Load() }

// ClassInits returns the number of ClassInit calls.
func (r *Runtime) ClassInits() int64 { return r.classInits.Load() }

// DefineClass adds a class to the image and allocates its static storage.
// It panics on invalid definitions.
func (r *Runtime) DefineClass(module, namespace, name string, fields ...metadata.Field) heapbind.ClassID {
	info, err := r.Image.Define(metadata.Class{
		Module:    module,
		Namespace: namespace,
		Name:      name,
		Fields:    fields,
	})
	if err != nil {
		panic(err)
	}

	var size uint32
	for _, f := range info.Fields() {
		if !f.Static {
			continue
		}
		end := f.Offset + kind.FromWIT(f.Type).Size(r.pointerSize)
		if end > size {
			size = end
		}
	}
	if size > 0 {
		r.Image.SetStaticBase(info.ID, r.Alloc(size))
	}
	return info.ID
}

// Alloc returns zeroed, 8-byte aligned arena memory. It panics when the
// arena is exhausted.
func (r *Runtime) Alloc(size uint32) heapbind.Addr {
	r.mu.Lock()
	defer r.mu.Unlock()
	off := (r.next + 7) &^ 7
	if off+uint64(size) > uint64(len(r.arena)) {
		panic(fmt.Sprintf("foreigntest: arena exhausted allocating %d bytes", size))
	}
	r.next = off + uint64(size)
	return r.base.Add(off)
}

// NewObject allocates an object of size bytes whose header word holds
// the class id.
func (r *Runtime) NewObject(class heapbind.ClassID, size uint32) heapbind.Addr {
	if size < r.pointerSize {
		size = r.pointerSize
	}
	addr := r.Alloc(size)
	if err := codec.WritePointer(r.mem, addr, r.pointerSize, heapbind.Addr(class)); err != nil {
		panic(err)
	}
	return addr
}

// NewArray allocates an array of n elements of elemSize bytes.
func (r *Runtime) NewArray(elemSize uint32, n int) heapbind.Addr {
	layout := r.ArrayLayout()
	addr := r.Alloc(layout.DataOffset + elemSize*uint32(n))
	lenAddr := addr.Add(uint64(layout.LengthOffset))
	if err := codec.WritePointer(r.mem, lenAddr, r.pointerSize, heapbind.Addr(n)); err != nil {
		panic(err)
	}
	return addr
}

// NewArrayOf allocates an array of scalars initialized to values.
func (r *Runtime) NewArrayOf(elem codec.Scalar, values ...uint64) heapbind.Addr {
	addr := r.NewArray(uint32(elem.Width), len(values))
	data := addr.Add(uint64(r.ArrayLayout().DataOffset))
	for i, v := range values {
		if err := codec.Write(r.mem, data.Add(uint64(i)*uint64(elem.Width)), elem, v); err != nil {
			panic(err)
		}
	}
	return addr
}

// Contains reports whether [addr, addr+n) lies inside the arena.
func (r *Runtime) Contains(addr heapbind.Addr, n uint64) bool {
	return native.Region{Base: r.base, Size: uint64(len(r.arena))}.Contains(addr, n)
}

var _ heapbind.Runtime = (*Runtime)(nil)
