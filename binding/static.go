package binding

import (
	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/kind"
	"github.com/wippyai/heapbind/registry"
)

// Static accesses a class's static fields through the runtime's static
// storage. The class was initialized when it was resolved.
type Static struct {
	b     *Binder
	class *Class
}

// Class returns the owning class.
func (s *Static) Class() *Class { return s.class }

func (s *Static) get(name, accessor string, want kind.Class) (*registry.Descriptor, uint64, error) {
	d, err := s.class.descriptor(name, accessor, true, want)
	if err != nil {
		return nil, 0, err
	}
	sc := d.Kind.Scalar
	if want != kind.ClassScalar {
		sc = codec.Pointer(s.b.rt.PointerSize())
	}
	buf := make([]byte, sc.Width)
	if err := s.b.rt.StaticGet(d.Slot, buf); err != nil {
		return nil, 0, err
	}
	return d, codec.Decode(buf, sc), nil
}

// GetInt reads a static scalar field as a signed integer.
func (s *Static) GetInt(name string) (int64, error) {
	d, bits, err := s.get(name, "GetInt", kind.ClassScalar)
	if err != nil {
		return 0, err
	}
	return intOf(d.Kind, d.Path(), bits)
}

// GetUint reads a static scalar field as an unsigned integer.
func (s *Static) GetUint(name string) (uint64, error) {
	d, bits, err := s.get(name, "GetUint", kind.ClassScalar)
	if err != nil {
		return 0, err
	}
	return uintOf(d.Kind, d.Path(), bits)
}

// SetInt writes a signed integer to a static scalar field.
func (s *Static) SetInt(name string, v int64) error {
	d, err := s.class.descriptor(name, "SetInt", true, kind.ClassScalar)
	if err != nil {
		return err
	}
	if !d.Kind.Scalar.FitsInt(v) {
		return overflow(d, v)
	}
	return s.b.rt.StaticSet(d.Slot, codec.Encode(d.Kind.Scalar, uint64(v)))
}

// SetUint writes an unsigned integer to a static scalar field.
func (s *Static) SetUint(name string, v uint64) error {
	d, err := s.class.descriptor(name, "SetUint", true, kind.ClassScalar)
	if err != nil {
		return err
	}
	if !d.Kind.Scalar.FitsUint(v) {
		return overflow(d, v)
	}
	return s.b.rt.StaticSet(d.Slot, codec.Encode(d.Kind.Scalar, v))
}

// GetRef reads a static reference field.
func (s *Static) GetRef(name string) (heapbind.Addr, error) {
	_, bits, err := s.get(name, "GetRef", kind.ClassRef)
	return heapbind.Addr(bits), err
}

// SetRef writes a static reference field and notifies the collector.
func (s *Static) SetRef(name string, value heapbind.Addr) error {
	d, err := s.class.descriptor(name, "SetRef", true, kind.ClassRef)
	if err != nil {
		return err
	}
	return s.storeRef(d, value)
}

// GetObject reads a static reference field as an instance of class. A null
// reference returns a nil *Instance.
func (s *Static) GetObject(name string, class *Class) (*Instance, error) {
	ref, err := s.GetRef(name)
	if err != nil || ref.IsNull() {
		return nil, err
	}
	return class.Instance(ref), nil
}

// GetArray reads a static array field. A null pointer returns a nil *Array.
func (s *Static) GetArray(name string) (*Array, error) {
	d, bits, err := s.get(name, "GetArray", kind.ClassArray)
	if err != nil {
		return nil, err
	}
	return wrapArray(s.b, heapbind.Addr(bits), *d.Kind.Elem, d.ReadOnly, d.Path()), nil
}

// SetArray points a static array field at arr. A nil arr writes null.
func (s *Static) SetArray(name string, arr *Array) error {
	d, err := s.class.descriptor(name, "SetArray", true, kind.ClassArray)
	if err != nil {
		return err
	}
	value, err := arrayValue(d, arr)
	if err != nil {
		return err
	}
	return s.storeRef(d, value)
}

func (s *Static) storeRef(d *registry.Descriptor, value heapbind.Addr) error {
	ptr := codec.Pointer(s.b.rt.PointerSize())
	if !ptr.FitsUint(uint64(value)) {
		return overflow(d, uint64(value))
	}
	if err := s.b.rt.StaticSet(d.Slot, codec.Encode(ptr, uint64(value))); err != nil {
		return err
	}
	return s.b.gate.Notify(d.Slot.Addr, value)
}

func overflow(d *registry.Descriptor, v any) error {
	return errors.Overflow(d.Path(), v, d.Kind.String())
}
