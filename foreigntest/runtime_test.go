package foreigntest

import (
	"errors"
	"testing"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/metadata"
)

func TestRuntime_Objects(t *testing.T) {
	rt := New()
	id := rt.DefineClass("Assembly-CSharp.dll", "", "Unit",
		metadata.Field{Name: "hp", Type: "u8", Offset: 0x10})

	obj := rt.NewObject(id, 64)
	if obj.IsNull() || !rt.Contains(obj, 64) {
		t.Fatalf("object 0x%x outside arena", obj)
	}
	klass, err := codec.ReadPointer(rt.Memory(), obj, 8)
	if err != nil || klass != heapbind.Addr(id) {
		t.Errorf("header = %d, %v", klass, err)
	}
	if obj%8 != 0 {
		t.Errorf("object 0x%x not 8-byte aligned", obj)
	}

	other := rt.NewObject(id, 64)
	if other < obj+64 {
		t.Error("allocations overlap")
	}
}

func TestRuntime_Arrays(t *testing.T) {
	rt := New(PointerSize(4))
	arr := rt.NewArrayOf(codec.U16, 10, 20, 30)

	layout := rt.ArrayLayout()
	n, err := codec.ReadPointer(rt.Memory(), arr.Add(uint64(layout.LengthOffset)), 4)
	if err != nil || n != 3 {
		t.Fatalf("length = %d, %v", n, err)
	}
	v, err := codec.Read(rt.Memory(), arr.Add(uint64(layout.DataOffset)+4), codec.U16)
	if err != nil || v != 30 {
		t.Errorf("element 2 = %d, %v", v, err)
	}
}

func TestRuntime_Counters(t *testing.T) {
	rt := New()
	id := rt.DefineClass("m", "", "A", metadata.Field{Name: "x", Type: "u8"})

	rt.ClassFromName("m", "", "A")
	rt.ClassFromName("m", "", "B")
	rt.FieldFromName(id, "x")
	if rt.ClassLookups() != 2 || rt.FieldLookups() != 1 {
		t.Errorf("lookups = %d, %d", rt.ClassLookups(), rt.FieldLookups())
	}

	boom := errors.New("cctor threw")
	rt.FailInit(id, boom)
	if err := rt.ClassInit(id); !errors.Is(err, boom) {
		t.Errorf("ClassInit = %v", err)
	}
	rt.FailInit(id, nil)
	if err := rt.ClassInit(id); err != nil {
		t.Errorf("ClassInit = %v", err)
	}
	if rt.ClassInits() != 2 {
		t.Errorf("inits = %d", rt.ClassInits())
	}
}

func TestRuntime_StaticStorage(t *testing.T) {
	rt := New()
	id := rt.DefineClass("m", "", "Game",
		metadata.Field{Name: "round", Type: "u32", Offset: 4, Static: true},
		metadata.Field{Name: "hp", Type: "u8", Offset: 0x10})

	f, ok := rt.FieldFromName(id, "round")
	if !ok || !rt.Contains(f.Slot.Addr, 4) {
		t.Fatalf("static slot = %+v", f.Slot)
	}
	if err := rt.StaticSet(f.Slot, []byte{1, 2, 3, 4}); err != nil {
		t.Fatal(err)
	}
	buf := make([]byte, 4)
	if err := rt.StaticGet(f.Slot, buf); err != nil {
		t.Fatal(err)
	}
	if buf[3] != 4 {
		t.Errorf("StaticGet = %v", buf)
	}
}

func TestRuntime_Barriers(t *testing.T) {
	rt := New()
	_ = rt.WriteBarrier(0x10, 0x20)
	_ = rt.WriteBarrier(0x18, 0)
	got := rt.Barriers()
	if len(got) != 2 || got[1] != (Barrier{Slot: 0x18}) {
		t.Errorf("barriers = %+v", got)
	}
	rt.ResetBarriers()
	if len(rt.Barriers()) != 0 {
		t.Error("ResetBarriers did not clear")
	}
}

func TestRuntime_ArenaExhausted(t *testing.T) {
	rt := New(ArenaSize(64))
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	rt.Alloc(128)
}
