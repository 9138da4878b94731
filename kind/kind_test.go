package kind

import (
	"testing"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/heapbind/codec"
)

func TestFromWIT_Scalars(t *testing.T) {
	tests := []struct {
		typ  wit.Type
		want codec.Scalar
		name string
	}{
		{wit.Bool{}, codec.U8, "bool"},
		{wit.U8{}, codec.U8, "u8"},
		{wit.S8{}, codec.S8, "s8"},
		{wit.U16{}, codec.U16, "u16"},
		{wit.S16{}, codec.S16, "s16"},
		{wit.U32{}, codec.U32, "u32"},
		{wit.S32{}, codec.S32, "s32"},
		{wit.U64{}, codec.U64, "u64"},
		{wit.S64{}, codec.S64, "s64"},
		{wit.Char{}, codec.U32, "char"},
	}
	for _, tt := range tests {
		k := FromWIT(tt.typ)
		if k.Class != ClassScalar {
			t.Errorf("%s: class = %s", tt.name, k.Class)
		}
		if k.Scalar != tt.want {
			t.Errorf("%s: scalar = %s, want %s", tt.name, k.Scalar, tt.want)
		}
		if k.String() != tt.name {
			t.Errorf("String() = %q, want %q", k.String(), tt.name)
		}
	}
}

func TestFromWIT_List(t *testing.T) {
	k := FromWIT(&wit.TypeDef{Kind: &wit.List{Type: wit.U8{}}})
	if k.Class != ClassArray {
		t.Fatalf("class = %s", k.Class)
	}
	if k.Elem == nil || k.Elem.Scalar != codec.U8 {
		t.Fatalf("elem = %+v", k.Elem)
	}
	if k.String() != "list<u8>" {
		t.Errorf("String() = %q", k.String())
	}
	if k.Size(8) != 8 || k.Size(4) != 4 {
		t.Error("array fields are pointer-sized")
	}
}

func TestFromWIT_Refs(t *testing.T) {
	k := FromWIT(&wit.TypeDef{Kind: &wit.Own{}})
	if k.Class != ClassRef || k.Ref != "" || k.String() != "ref" {
		t.Errorf("untyped own = %+v", k)
	}

	k = FromWIT(&wit.TypeDef{Kind: &wit.Borrow{}})
	if k.Class != ClassRef {
		t.Errorf("borrow class = %s", k.Class)
	}

	k = FromWIT(Ref("Unit"))
	if k.Ref != "Unit" || k.String() != "ref<Unit>" {
		t.Errorf("typed ref = %+v", k)
	}

	k = FromWIT(wit.String{})
	if k.Class != ClassRef {
		t.Errorf("string should be a reference, got %s", k.Class)
	}
}

func TestFromWIT_Opaque(t *testing.T) {
	for _, typ := range []wit.Type{wit.F32{}, wit.F64{}, &wit.TypeDef{Kind: &wit.Record{}}} {
		if k := FromWIT(typ); k.Class != ClassOpaque {
			t.Errorf("%T: class = %s, want opaque", typ, k.Class)
		}
	}
	if FromWIT(wit.F64{}).Size(4) != 8 {
		t.Error("f64 size should be 8")
	}
}

func TestFromWIT_Alias(t *testing.T) {
	alias := &wit.TypeDef{Kind: wit.S16{}}
	if k := FromWIT(alias); k.Class != ClassScalar || k.Scalar != codec.S16 {
		t.Errorf("alias = %+v", k)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		expr  string
		class Class
		name  string
	}{
		{"u8", ClassScalar, "u8"},
		{" s32 ", ClassScalar, "s32"},
		{"int", ClassScalar, "s32"},
		{"ulong", ClassScalar, "u64"},
		{"list<u8>", ClassArray, "list<u8>"},
		{"list< s16 >", ClassArray, "list<s16>"},
		{"byte[]", ClassArray, "list<u8>"},
		{"list<list<u8>>", ClassArray, "list<list<u8>>"},
		{"list<ref<Buff>>", ClassArray, "list<ref<Buff>>"},
		{"ref", ClassRef, "ref"},
		{"object", ClassRef, "ref"},
		{"ref<Unit>", ClassRef, "ref<Unit>"},
		{"string", ClassRef, "string"},
		{"float", ClassOpaque, "f32"},
	}
	for _, tt := range tests {
		typ, err := Parse(tt.expr)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tt.expr, err)
			continue
		}
		k := FromWIT(typ)
		if k.Class != tt.class || k.String() != tt.name {
			t.Errorf("Parse(%q) = %s (%s), want %s (%s)", tt.expr, k, k.Class, tt.name, tt.class)
		}
	}
}

func TestParse_Errors(t *testing.T) {
	for _, expr := range []string{"", "u7", "list<>", "list<u8", "ref<>", "map<u8,u8>"} {
		if _, err := Parse(expr); err == nil {
			t.Errorf("Parse(%q) should fail", expr)
		}
	}
}

func TestMustParse_Panics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	MustParse("nope")
}
