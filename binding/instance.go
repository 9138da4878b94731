package binding

import (
	"go.uber.org/zap"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/kind"
	"github.com/wippyai/heapbind/registry"
)

// Instance is a borrowed pointer to a foreign object plus its class. It
// never extends the object's lifetime; the caller keeps the object alive by
// the foreign runtime's rules.
type Instance struct {
	b     *Binder
	class *Class
	base  heapbind.Addr
}

// Base returns the object's address.
func (i *Instance) Base() heapbind.Addr { return i.base }

// Class returns the instance's class.
func (i *Instance) Class() *Class { return i.class }

// IsNull reports whether the instance has a null base pointer.
func (i *Instance) IsNull() bool { return i.base.IsNull() }

// field validates the instance, resolves name and returns the field's
// address. The null check comes first so a dead object never costs a lookup.
func (i *Instance) field(name, accessor string, want kind.Class) (*registry.Descriptor, heapbind.Addr, error) {
	if i.base.IsNull() {
		Logger().Debug("access through null instance",
			zap.String("class", i.class.Name()),
			zap.String("field", name))
		return nil, 0, errors.NullInstance(i.class.Name(), name)
	}
	d, err := i.class.descriptor(name, accessor, false, want)
	if err != nil {
		return nil, 0, err
	}
	return d, i.base.Add(uint64(d.Offset)), nil
}

// GetInt reads a scalar field as a signed integer.
func (i *Instance) GetInt(name string) (int64, error) {
	d, addr, err := i.field(name, "GetInt", kind.ClassScalar)
	if err != nil {
		return 0, err
	}
	return readInt(i.b.rt.Memory(), addr, d.Kind, d.Path())
}

// GetUint reads a scalar field as an unsigned integer.
func (i *Instance) GetUint(name string) (uint64, error) {
	d, addr, err := i.field(name, "GetUint", kind.ClassScalar)
	if err != nil {
		return 0, err
	}
	return readUint(i.b.rt.Memory(), addr, d.Kind, d.Path())
}

// SetInt writes a signed integer to a scalar field.
func (i *Instance) SetInt(name string, v int64) error {
	d, addr, err := i.field(name, "SetInt", kind.ClassScalar)
	if err != nil {
		return err
	}
	return writeInt(i.b.rt.Memory(), addr, d.Kind, d.Path(), v)
}

// SetUint writes an unsigned integer to a scalar field.
func (i *Instance) SetUint(name string, v uint64) error {
	d, addr, err := i.field(name, "SetUint", kind.ClassScalar)
	if err != nil {
		return err
	}
	return writeUint(i.b.rt.Memory(), addr, d.Kind, d.Path(), v)
}

// GetRef reads an object reference field. Null is returned as heapbind.Null.
func (i *Instance) GetRef(name string) (heapbind.Addr, error) {
	_, addr, err := i.field(name, "GetRef", kind.ClassRef)
	if err != nil {
		return 0, err
	}
	return codec.ReadPointer(i.b.rt.Memory(), addr, i.b.rt.PointerSize())
}

// SetRef writes an object reference field through the write barrier.
func (i *Instance) SetRef(name string, value heapbind.Addr) error {
	_, addr, err := i.field(name, "SetRef", kind.ClassRef)
	if err != nil {
		return err
	}
	return i.b.gate.Store(addr, value)
}

// GetObject reads an object reference field and wraps it as an instance of
// class. A null reference returns a nil *Instance.
func (i *Instance) GetObject(name string, class *Class) (*Instance, error) {
	ref, err := i.GetRef(name)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	return class.Instance(ref), nil
}

// SetObject writes obj's address to a reference field. A nil obj writes null.
func (i *Instance) SetObject(name string, obj *Instance) error {
	var value heapbind.Addr
	if obj != nil {
		value = obj.base
	}
	return i.SetRef(name, value)
}

// GetArray reads an array field. A null array pointer returns a nil *Array,
// which is distinct from an empty array.
func (i *Instance) GetArray(name string) (*Array, error) {
	d, addr, err := i.field(name, "GetArray", kind.ClassArray)
	if err != nil {
		return nil, err
	}
	ptr, err := codec.ReadPointer(i.b.rt.Memory(), addr, i.b.rt.PointerSize())
	if err != nil {
		return nil, err
	}
	return wrapArray(i.b, ptr, *d.Kind.Elem, d.ReadOnly, d.Path()), nil
}

// SetArray points an array field at arr through the write barrier. A nil
// arr writes null.
func (i *Instance) SetArray(name string, arr *Array) error {
	d, addr, err := i.field(name, "SetArray", kind.ClassArray)
	if err != nil {
		return err
	}
	value, err := arrayValue(d, arr)
	if err != nil {
		return err
	}
	return i.b.gate.Store(addr, value)
}

func arrayValue(d *registry.Descriptor, arr *Array) (heapbind.Addr, error) {
	if arr == nil {
		return heapbind.Null, nil
	}
	if arr.elem.String() != d.Kind.Elem.String() {
		return 0, errors.UnsupportedFieldKind(d.Path(), d.Kind.String(),
			"SetArray with list<"+arr.elem.String()+">")
	}
	return arr.addr, nil
}

func readInt(mem heapbind.Memory, addr heapbind.Addr, k kind.Kind, path []string) (int64, error) {
	bits, err := codec.Read(mem, addr, k.Scalar)
	if err != nil {
		return 0, err
	}
	return intOf(k, path, bits)
}

func readUint(mem heapbind.Memory, addr heapbind.Addr, k kind.Kind, path []string) (uint64, error) {
	bits, err := codec.Read(mem, addr, k.Scalar)
	if err != nil {
		return 0, err
	}
	return uintOf(k, path, bits)
}

func intOf(k kind.Kind, path []string, bits uint64) (int64, error) {
	v, ok := k.Scalar.Int(bits)
	if !ok {
		return 0, errors.Overflow(path, bits, "s64")
	}
	return v, nil
}

func uintOf(k kind.Kind, path []string, bits uint64) (uint64, error) {
	v, ok := k.Scalar.Uint(bits)
	if !ok {
		return 0, errors.Overflow(path, int64(bits), "u64")
	}
	return v, nil
}

func writeInt(mem heapbind.Memory, addr heapbind.Addr, k kind.Kind, path []string, v int64) error {
	if !k.Scalar.FitsInt(v) {
		return errors.Overflow(path, v, k.String())
	}
	return codec.Write(mem, addr, k.Scalar, uint64(v))
}

func writeUint(mem heapbind.Memory, addr heapbind.Addr, k kind.Kind, path []string, v uint64) error {
	if !k.Scalar.FitsUint(v) {
		return errors.Overflow(path, v, k.String())
	}
	return codec.Write(mem, addr, k.Scalar, v)
}
