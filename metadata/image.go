package metadata

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/kind"
)

// Field is one field as written in a metadata file.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Offset   uint32 `json:"offset"`
	Static   bool   `json:"static,omitempty"`
	ReadOnly bool   `json:"readonly,omitempty"`
}

// Class is one class as written in a metadata file.
type Class struct {
	Module    string `json:"module"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
	// Token is the runtime's class identifier. Zero assigns one.
	Token uint64 `json:"token,omitempty"`
	// StaticBase is the address of the class's static storage block.
	StaticBase uint64  `json:"static_base,omitempty"`
	Fields     []Field `json:"fields"`
}

// ArrayHeader overrides the default array header layout.
type ArrayHeader struct {
	LengthOffset uint32 `json:"length_offset"`
	DataOffset   uint32 `json:"data_offset"`
}

// File is the on-disk metadata format.
type File struct {
	Array       *ArrayHeader `json:"array,omitempty"`
	Classes     []Class      `json:"classes"`
	PointerSize uint32       `json:"pointer_size"`
}

// ClassInfo is a class as the runtime knows it.
type ClassInfo struct {
	fields     map[string]heapbind.FieldInfo
	Module     string
	Namespace  string
	Name       string
	order      []string
	ID         heapbind.ClassID
	StaticBase heapbind.Addr
}

// QualifiedName returns Namespace.Name.
func (c *ClassInfo) QualifiedName() string {
	return errors.QualifiedName(c.Namespace, c.Name)
}

// Fields returns the class's fields in declaration order.
func (c *ClassInfo) Fields() []heapbind.FieldInfo {
	out := make([]heapbind.FieldInfo, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.fields[name])
	}
	return out
}

type classKey struct {
	module, namespace, name string
}

// Image is the loaded type metadata of a runtime image. It implements the
// name lookups of heapbind.Resolver and is safe for concurrent use.
type Image struct {
	byName      map[classKey]*ClassInfo
	byID        map[heapbind.ClassID]*ClassInfo
	layout      heapbind.ArrayLayout
	pointerSize uint32
	nextID      heapbind.ClassID
	mu          sync.RWMutex
}

// NewImage creates an empty image for the given pointer size.
func NewImage(pointerSize uint32) *Image {
	if pointerSize != 4 {
		pointerSize = 8
	}
	return &Image{
		byName:      make(map[classKey]*ClassInfo),
		byID:        make(map[heapbind.ClassID]*ClassInfo),
		layout:      heapbind.Layout(pointerSize),
		pointerSize: pointerSize,
		nextID:      1,
	}
}

// Parse decodes a YAML or JSON metadata file.
func Parse(data []byte) (*Image, error) {
	var f File
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, errors.ParseFailed(errors.PhaseLoad, "metadata", err)
	}
	return FromFile(&f)
}

// Load reads and parses a metadata file.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Load("read metadata", err)
	}
	return Parse(data)
}

// FromFile builds an image from a decoded metadata file.
func FromFile(f *File) (*Image, error) {
	if f.PointerSize != 0 && f.PointerSize != 4 && f.PointerSize != 8 {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"pointer_size"},
			fmt.Sprintf("pointer size %d, want 4 or 8", f.PointerSize))
	}
	img := NewImage(f.PointerSize)
	if f.Array != nil {
		img.layout = heapbind.ArrayLayout{
			LengthOffset: f.Array.LengthOffset,
			DataOffset:   f.Array.DataOffset,
		}
	}
	for _, c := range f.Classes {
		if _, err := img.Define(c); err != nil {
			return nil, err
		}
	}
	return img, nil
}

// Define adds a class to the image.
func (img *Image) Define(c Class) (*ClassInfo, error) {
	if c.Name == "" {
		return nil, errors.InvalidData(errors.PhaseLoad, []string{"classes"}, "class without a name")
	}
	info := &ClassInfo{
		Module:     c.Module,
		Namespace:  c.Namespace,
		Name:       c.Name,
		StaticBase: heapbind.Addr(c.StaticBase),
		fields:     make(map[string]heapbind.FieldInfo, len(c.Fields)),
	}
	path := []string{info.QualifiedName()}

	for i, f := range c.Fields {
		if f.Name == "" {
			return nil, errors.InvalidData(errors.PhaseLoad, path, fmt.Sprintf("field %d has no name", i))
		}
		if _, dup := info.fields[f.Name]; dup {
			return nil, errors.InvalidData(errors.PhaseLoad, append(path, f.Name), "duplicate field")
		}
		typ, err := kind.Parse(f.Type)
		if err != nil {
			return nil, errors.New(errors.PhaseLoad, errors.KindInvalidData).
				Path(append(path, f.Name)...).
				Detail("field type").
				Cause(err).
				Build()
		}
		info.fields[f.Name] = heapbind.FieldInfo{
			Name:     f.Name,
			Type:     typ,
			Offset:   f.Offset,
			Static:   f.Static,
			ReadOnly: f.ReadOnly,
			Slot:     heapbind.StaticSlot{Token: uint32(i)},
		}
		info.order = append(info.order, f.Name)
	}

	key := classKey{c.Module, c.Namespace, c.Name}

	img.mu.Lock()
	defer img.mu.Unlock()
	if _, dup := img.byName[key]; dup {
		return nil, errors.InvalidData(errors.PhaseLoad, path, "duplicate class")
	}
	if c.Token != 0 {
		info.ID = heapbind.ClassID(c.Token)
	} else {
		for img.byID[img.nextID] != nil {
			img.nextID++
		}
		info.ID = img.nextID
		img.nextID++
	}
	if _, dup := img.byID[info.ID]; dup {
		return nil, errors.InvalidData(errors.PhaseLoad, path, fmt.Sprintf("duplicate token %d", info.ID))
	}
	img.byName[key] = info
	img.byID[info.ID] = info
	return info, nil
}

// SetStaticBase moves a class's static storage block.
func (img *Image) SetStaticBase(id heapbind.ClassID, base heapbind.Addr) bool {
	img.mu.Lock()
	defer img.mu.Unlock()
	c, ok := img.byID[id]
	if ok {
		c.StaticBase = base
	}
	return ok
}

// ClassFromName implements heapbind.Resolver.
func (img *Image) ClassFromName(module, namespace, name string) (heapbind.ClassID, bool) {
	img.mu.RLock()
	defer img.mu.RUnlock()
	c, ok := img.byName[classKey{module, namespace, name}]
	if !ok {
		return 0, false
	}
	return c.ID, true
}

// FieldFromName implements heapbind.Resolver. Static fields carry their
// storage address, computed from the class's current static base. A static
// field does not resolve while its class has no static base.
func (img *Image) FieldFromName(id heapbind.ClassID, name string) (heapbind.FieldInfo, bool) {
	img.mu.RLock()
	defer img.mu.RUnlock()
	c, ok := img.byID[id]
	if !ok {
		return heapbind.FieldInfo{}, false
	}
	f, ok := c.fields[name]
	if !ok {
		return heapbind.FieldInfo{}, false
	}
	if f.Static {
		if c.StaticBase.IsNull() {
			return heapbind.FieldInfo{}, false
		}
		f.Slot.Class = id
		f.Slot.Addr = c.StaticBase.Add(uint64(f.Offset))
	}
	return f, true
}

// Class returns the class with the given id.
func (img *Image) Class(id heapbind.ClassID) (*ClassInfo, bool) {
	img.mu.RLock()
	defer img.mu.RUnlock()
	c, ok := img.byID[id]
	return c, ok
}

// Classes returns all classes ordered by qualified name.
func (img *Image) Classes() []*ClassInfo {
	img.mu.RLock()
	out := make([]*ClassInfo, 0, len(img.byID))
	for _, c := range img.byID {
		out = append(out, c)
	}
	img.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Module != out[j].Module {
			return out[i].Module < out[j].Module
		}
		return out[i].QualifiedName() < out[j].QualifiedName()
	})
	return out
}

// PointerSize returns 4 or 8.
func (img *Image) PointerSize() uint32 { return img.pointerSize }

// ArrayLayout returns the array header layout.
func (img *Image) ArrayLayout() heapbind.ArrayLayout { return img.layout }
