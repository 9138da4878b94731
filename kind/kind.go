package kind

import (
	"fmt"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/errors"
)

// Class is the accessor family a field belongs to.
type Class uint8

const (
	ClassOpaque Class = iota
	ClassScalar
	ClassArray
	ClassRef
)

var classNames = [...]string{
	ClassOpaque: "opaque",
	ClassScalar: "scalar",
	ClassArray:  "array",
	ClassRef:    "ref",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return "unknown"
}

// Kind describes how a field's storage is read and written.
type Kind struct {
	Elem *Kind
	// Type is the WIT type the kind was derived from.
	Type wit.Type
	// Ref is the referenced class name for ref<Name>, empty otherwise.
	Ref    string
	Name   string
	Scalar codec.Scalar
	Class  Class
}

// FromWIT derives the kind of a field of WIT type t.
func FromWIT(t wit.Type) Kind {
	switch typ := t.(type) {
	case wit.Bool:
		return scalar(t, "bool", codec.U8)
	case wit.U8:
		return scalar(t, "u8", codec.U8)
	case wit.S8:
		return scalar(t, "s8", codec.S8)
	case wit.U16:
		return scalar(t, "u16", codec.U16)
	case wit.S16:
		return scalar(t, "s16", codec.S16)
	case wit.U32:
		return scalar(t, "u32", codec.U32)
	case wit.S32:
		return scalar(t, "s32", codec.S32)
	case wit.U64:
		return scalar(t, "u64", codec.U64)
	case wit.S64:
		return scalar(t, "s64", codec.S64)
	case wit.Char:
		return scalar(t, "char", codec.U32)
	case wit.String:
		// Managed strings are heap objects.
		return Kind{Class: ClassRef, Type: t, Name: "string", Ref: "string"}
	case wit.F32:
		return Kind{Class: ClassOpaque, Type: t, Name: "f32"}
	case wit.F64:
		return Kind{Class: ClassOpaque, Type: t, Name: "f64"}
	case *wit.TypeDef:
		return fromTypeDef(typ)
	}
	return Kind{Class: ClassOpaque, Type: t, Name: "unknown"}
}

func scalar(t wit.Type, name string, s codec.Scalar) Kind {
	return Kind{Class: ClassScalar, Type: t, Name: name, Scalar: s}
}

func fromTypeDef(t *wit.TypeDef) Kind {
	switch k := t.Kind.(type) {
	case *wit.List:
		elem := FromWIT(k.Type)
		return Kind{Class: ClassArray, Type: t, Elem: &elem, Name: "list<" + elem.Name + ">"}
	case *wit.Own:
		return ref(t, k.Type)
	case *wit.Borrow:
		return ref(t, k.Type)
	case wit.Type:
		// type alias
		return FromWIT(k)
	}
	name := "unknown"
	if t.Name != nil {
		name = *t.Name
	}
	return Kind{Class: ClassOpaque, Type: t, Name: name}
}

func ref(t wit.Type, target *wit.TypeDef) Kind {
	k := Kind{Class: ClassRef, Type: t, Name: "ref"}
	if target != nil && target.Name != nil {
		k.Ref = *target.Name
		k.Name = "ref<" + k.Ref + ">"
	}
	return k
}

// String returns the type expression Parse accepts.
func (k Kind) String() string {
	if k.Name == "" {
		return k.Class.String()
	}
	return k.Name
}

// Size returns the number of bytes the kind occupies in a field or array
// element. Opaque kinds report zero.
func (k Kind) Size(pointerSize uint32) uint32 {
	switch k.Class {
	case ClassScalar:
		return uint32(k.Scalar.Width)
	case ClassArray, ClassRef:
		return pointerSize
	}
	switch k.Type.(type) {
	case wit.F32:
		return 4
	case wit.F64:
		return 8
	}
	return 0
}

var primitives = map[string]wit.Type{
	"bool":   wit.Bool{},
	"u8":     wit.U8{},
	"s8":     wit.S8{},
	"u16":    wit.U16{},
	"s16":    wit.S16{},
	"u32":    wit.U32{},
	"s32":    wit.S32{},
	"u64":    wit.U64{},
	"s64":    wit.S64{},
	"f32":    wit.F32{},
	"f64":    wit.F64{},
	"char":   wit.Char{},
	"string": wit.String{},

	// C# spellings as printed by metadata dumpers
	"byte":   wit.U8{},
	"sbyte":  wit.S8{},
	"short":  wit.S16{},
	"ushort": wit.U16{},
	"int":    wit.S32{},
	"uint":   wit.U32{},
	"long":   wit.S64{},
	"ulong":  wit.U64{},
	"float":  wit.F32{},
	"double": wit.F64{},
}

// Parse parses a type expression such as "u8", "list<s32>", "int[]",
// "ref" or "ref<Unit>".
func Parse(expr string) (wit.Type, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return nil, errors.InvalidInput(errors.PhaseConfig, "empty type expression")
	}
	if t, ok := primitives[s]; ok {
		return t, nil
	}
	if inner, ok := strings.CutSuffix(s, "[]"); ok {
		elem, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	if s == "ref" || s == "object" {
		return Ref(""), nil
	}
	if inner, ok := generic(s, "list"); ok {
		elem, err := Parse(inner)
		if err != nil {
			return nil, err
		}
		return List(elem), nil
	}
	if inner, ok := generic(s, "ref"); ok {
		if inner == "" {
			return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("empty class name in %q", expr))
		}
		return Ref(inner), nil
	}
	return nil, errors.InvalidInput(errors.PhaseConfig, fmt.Sprintf("unknown type %q", expr))
}

func generic(s, name string) (string, bool) {
	rest, ok := strings.CutPrefix(s, name+"<")
	if !ok {
		return "", false
	}
	inner, ok := strings.CutSuffix(rest, ">")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(inner), true
}

// List returns list<elem>.
func List(elem wit.Type) wit.Type {
	return &wit.TypeDef{Kind: &wit.List{Type: elem}}
}

// Ref returns an owned handle to the named class. An empty name is an
// untyped object reference.
func Ref(class string) wit.Type {
	var target *wit.TypeDef
	if class != "" {
		name := class
		target = &wit.TypeDef{Name: &name, Kind: &wit.Resource{}}
	}
	return &wit.TypeDef{Kind: &wit.Own{Type: target}}
}

// MustParse is Parse for static type expressions.
func MustParse(expr string) wit.Type {
	t, err := Parse(expr)
	if err != nil {
		panic(err)
	}
	return t
}
