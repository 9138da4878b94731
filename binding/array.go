package binding

import (
	"math"

	"go.uber.org/zap"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/kind"
)

// Array is a borrowed view of a managed array. The length is read from the
// array header on every call; the foreign runtime owns the storage.
type Array struct {
	b        *Binder
	elem     kind.Kind
	path     []string
	addr     heapbind.Addr
	readOnly bool
}

// wrapArray returns nil for a null array pointer.
func wrapArray(b *Binder, addr heapbind.Addr, elem kind.Kind, readOnly bool, path []string) *Array {
	if addr.IsNull() {
		return nil
	}
	return &Array{b: b, addr: addr, elem: elem, readOnly: readOnly, path: path}
}

// Array wraps an existing array of elem at addr. A null addr returns nil.
func (b *Binder) Array(addr heapbind.Addr, elem kind.Kind) *Array {
	return wrapArray(b, addr, elem, false, []string{"list<" + elem.String() + ">"})
}

// Addr returns the array object's address.
func (a *Array) Addr() heapbind.Addr { return a.addr }

// Elem returns the element kind.
func (a *Array) Elem() kind.Kind { return a.elem }

// ReadOnly reports whether element writes are rejected.
func (a *Array) ReadOnly() bool { return a.readOnly }

// Len reads the element count from the array header. A length whose
// elements would run past the heap is reported as invalid_data.
func (a *Array) Len() (int, error) {
	n, err := a.length()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// length reads the header and checks that the last element is addressable.
// A stale handle can point at a header that now holds anything.
func (a *Array) length() (uint64, error) {
	rt := a.b.rt
	layout := rt.ArrayLayout()
	v, err := codec.ReadPointer(rt.Memory(), a.addr.Add(uint64(layout.LengthOffset)), rt.PointerSize())
	if err != nil || v == 0 {
		return 0, err
	}
	n := uint64(v)
	size := uint64(a.elem.Size(rt.PointerSize()))
	if size == 0 {
		size = 1
	}
	data := uint64(a.addr.Add(uint64(layout.DataOffset)))
	if n > math.MaxInt || n > (math.MaxUint64-data)/size {
		return 0, a.badLength(n, nil)
	}
	if _, err := rt.Memory().ReadU8(heapbind.Addr(data + n*size - 1)); err != nil {
		return 0, a.badLength(n, err)
	}
	return n, nil
}

func (a *Array) badLength(n uint64, cause error) error {
	Logger().Warn("array length not addressable",
		zap.Strings("path", a.path),
		zap.Uint64("addr", uint64(a.addr)),
		zap.Uint64("length", n))
	return errors.New(errors.PhaseAccess, errors.KindInvalidData).
		Path(a.path...).
		Value(n).
		Detail("array length %d runs past the heap", n).
		Cause(cause).
		Build()
}

// element bounds-checks i and returns the element's address.
func (a *Array) element(i int, accessor string, want kind.Class) (heapbind.Addr, error) {
	if a.elem.Class != want {
		return 0, errors.UnsupportedFieldKind(a.path, "list<"+a.elem.String()+">", accessor)
	}
	n, err := a.length()
	if err != nil {
		return 0, err
	}
	if i < 0 || uint64(i) >= n {
		Logger().Warn("array index out of range",
			zap.Strings("path", a.path),
			zap.Int("index", i),
			zap.Uint64("length", n))
		return 0, errors.IndexOutOfRange(a.path, i, n)
	}
	rt := a.b.rt
	size := uint64(a.elem.Size(rt.PointerSize()))
	data := a.addr.Add(uint64(rt.ArrayLayout().DataOffset))
	return data.Add(uint64(i) * size), nil
}

func (a *Array) writable(i int, accessor string, want kind.Class) (heapbind.Addr, error) {
	if a.readOnly {
		return 0, errors.ReadOnly(a.path)
	}
	return a.element(i, accessor, want)
}

// GetInt reads element i as a signed integer.
func (a *Array) GetInt(i int) (int64, error) {
	addr, err := a.element(i, "GetInt", kind.ClassScalar)
	if err != nil {
		return 0, err
	}
	return readInt(a.b.rt.Memory(), addr, a.elem, a.path)
}

// GetUint reads element i as an unsigned integer.
func (a *Array) GetUint(i int) (uint64, error) {
	addr, err := a.element(i, "GetUint", kind.ClassScalar)
	if err != nil {
		return 0, err
	}
	return readUint(a.b.rt.Memory(), addr, a.elem, a.path)
}

// SetInt writes a signed integer to element i.
func (a *Array) SetInt(i int, v int64) error {
	addr, err := a.writable(i, "SetInt", kind.ClassScalar)
	if err != nil {
		return err
	}
	return writeInt(a.b.rt.Memory(), addr, a.elem, a.path, v)
}

// SetUint writes an unsigned integer to element i.
func (a *Array) SetUint(i int, v uint64) error {
	addr, err := a.writable(i, "SetUint", kind.ClassScalar)
	if err != nil {
		return err
	}
	return writeUint(a.b.rt.Memory(), addr, a.elem, a.path, v)
}

// GetRef reads reference element i.
func (a *Array) GetRef(i int) (heapbind.Addr, error) {
	addr, err := a.element(i, "GetRef", kind.ClassRef)
	if err != nil {
		return 0, err
	}
	return codec.ReadPointer(a.b.rt.Memory(), addr, a.b.rt.PointerSize())
}

// SetRef writes reference element i through the write barrier.
func (a *Array) SetRef(i int, value heapbind.Addr) error {
	addr, err := a.writable(i, "SetRef", kind.ClassRef)
	if err != nil {
		return err
	}
	return a.b.gate.Store(addr, value)
}

// GetObject reads reference element i as an instance of class. A null
// element returns a nil *Instance.
func (a *Array) GetObject(i int, class *Class) (*Instance, error) {
	ref, err := a.GetRef(i)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	return class.Instance(ref), nil
}

// GetArray reads element i of an array of arrays. A null element returns
// a nil *Array.
func (a *Array) GetArray(i int) (*Array, error) {
	addr, err := a.element(i, "GetArray", kind.ClassArray)
	if err != nil {
		return nil, err
	}
	ptr, err := codec.ReadPointer(a.b.rt.Memory(), addr, a.b.rt.PointerSize())
	if err != nil {
		return nil, err
	}
	return wrapArray(a.b, ptr, *a.elem.Elem, a.readOnly, a.path), nil
}

// Ints copies every element as signed integers.
func (a *Array) Ints() ([]int64, error) {
	if a.elem.Class != kind.ClassScalar {
		return nil, errors.UnsupportedFieldKind(a.path, "list<"+a.elem.String()+">", "Ints")
	}
	n, err := a.Len()
	if err != nil {
		return nil, err
	}
	out := make([]int64, n)
	for i := range out {
		if out[i], err = a.GetInt(i); err != nil {
			return nil, err
		}
	}
	return out, nil
}
