package wasmheap

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/tetratelabs/wazero"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/metadata"
)

// memoryWASM is a minimal WASM module with 1 page of memory exported as "memory"
var memoryWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version
	0x05, 0x03, 0x01, 0x00, 0x01, // memory section: 1 page, no max
	0x07, 0x0a, 0x01, // export section: 10 bytes, 1 export
	0x06, 0x6d, 0x65, 0x6d, 0x6f, 0x72, 0x79, // name: "memory"
	0x02, 0x00, // kind: memory, index 0
}

// guestWASM exports memory plus:
//
//	gc_wbarrier_set_field(slot, value): mem[8]=slot, mem[12]=value, mem[20]++
//	class_init(class): mem[16]=class
var guestWASM = []byte{
	0x00, 0x61, 0x73, 0x6d, // magic
	0x01, 0x00, 0x00, 0x00, // version

	// type section: (i32 i32) -> (), (i32) -> ()
	0x01, 0x0a, 0x02,
	0x60, 0x02, 0x7f, 0x7f, 0x00,
	0x60, 0x01, 0x7f, 0x00,

	// function section: func 0 type 0, func 1 type 1
	0x03, 0x03, 0x02, 0x00, 0x01,

	// memory section: 1 page, no max
	0x05, 0x03, 0x01, 0x00, 0x01,

	// export section: 3 exports
	0x07, 0x2f, 0x03,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x15, 'g', 'c', '_', 'w', 'b', 'a', 'r', 'r', 'i', 'e', 'r', '_',
	's', 'e', 't', '_', 'f', 'i', 'e', 'l', 'd', 0x00, 0x00,
	0x0a, 'c', 'l', 'a', 's', 's', '_', 'i', 'n', 'i', 't', 0x00, 0x01,

	// code section: 2 bodies
	0x0a, 0x29, 0x02,
	// gc_wbarrier_set_field
	0x1d, 0x00,
	0x41, 0x08, 0x20, 0x00, 0x36, 0x02, 0x00, // i32.store(8, slot)
	0x41, 0x0c, 0x20, 0x01, 0x36, 0x02, 0x00, // i32.store(12, value)
	0x41, 0x14, 0x41, 0x14, 0x28, 0x02, 0x00, // i32.store(20, i32.load(20)+1)
	0x41, 0x01, 0x6a, 0x36, 0x02, 0x00,
	0x0b,
	// class_init
	0x09, 0x00,
	0x41, 0x10, 0x20, 0x00, 0x36, 0x02, 0x00, // i32.store(16, class)
	0x0b,
}

const (
	lastSlot     = 8
	lastValue    = 12
	lastInit     = 16
	barrierCount = 20
)

func unitImage(t *testing.T) *metadata.Image {
	t.Helper()
	img, err := metadata.Parse([]byte(`
pointer_size: 4
classes:
  - module: Assembly-CSharp.dll
    namespace: Game
    name: Unit
    token: 7
    static_base: 0x200
    fields:
      - {name: hp, type: u8, offset: 8}
      - {name: buffs, type: "int[]", offset: 12}
      - {name: target, type: "ref<Unit>", offset: 16}
      - {name: count, type: int, offset: 0, static: true}
      - {name: leader, type: "ref<Unit>", offset: 4, static: true}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return img
}

func openGuest(t *testing.T, wasm []byte) *Runtime {
	t.Helper()
	ctx := context.Background()
	rt, err := Open(ctx, wasm, unitImage(t), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = rt.Close(ctx) })
	return rt
}

func TestWrapMemory_Nil(t *testing.T) {
	if WrapMemory(nil) != nil {
		t.Error("expected nil for nil memory")
	}
}

func TestMemory_ReadWrite(t *testing.T) {
	ctx := context.Background()
	wr := wazero.NewRuntime(ctx)
	defer wr.Close(ctx)

	mod, err := wr.Instantiate(ctx, memoryWASM)
	if err != nil {
		t.Fatalf("failed to instantiate: %v", err)
	}
	mem := WrapMemory(mod.ExportedMemory("memory"))
	if mem == nil {
		t.Fatal("expected non-nil wrapped memory")
	}

	if err := mem.Write(0x100, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := mem.Read(0x100, 4)
	if err != nil || len(got) != 4 || got[3] != 4 {
		t.Errorf("Read = %v, %v", got, err)
	}
	if v, _ := mem.ReadU32(0x100); v != 0x04030201 {
		t.Errorf("ReadU32 = 0x%x, want little-endian 0x04030201", v)
	}

	if err := mem.WriteU64(0x200, 0x1122334455667788); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU16(0x200); v != 0x7788 {
		t.Errorf("ReadU16 = 0x%x", v)
	}
	if v, _ := mem.ReadU64(0x200); v != 0x1122334455667788 {
		t.Errorf("ReadU64 = 0x%x", v)
	}
	_ = mem.WriteU8(0x300, 0xAB)
	_ = mem.WriteU16(0x302, 0xBEEF)
	_ = mem.WriteU32(0x304, 0xDEADBEEF)
	if v, _ := mem.ReadU8(0x300); v != 0xAB {
		t.Errorf("ReadU8 = 0x%x", v)
	}
	if v, _ := mem.ReadU16(0x302); v != 0xBEEF {
		t.Errorf("ReadU16 = 0x%x", v)
	}
	if v, _ := mem.ReadU32(0x304); v != 0xDEADBEEF {
		t.Errorf("ReadU32 = 0x%x", v)
	}
}

func TestMemory_Bounds(t *testing.T) {
	ctx := context.Background()
	wr := wazero.NewRuntime(ctx)
	defer wr.Close(ctx)
	mod, err := wr.Instantiate(ctx, memoryWASM)
	if err != nil {
		t.Fatal(err)
	}
	mem := WrapMemory(mod.ExportedMemory("memory"))

	tests := []struct {
		name string
		call func() error
	}{
		{"null", func() error { _, err := mem.ReadU8(heapbind.Null); return err }},
		{"past end", func() error { _, err := mem.ReadU32(65536 - 2); return err }},
		{"above 4GiB", func() error { return mem.WriteU8(1<<32, 1) }},
		{"write past end", func() error { return mem.Write(65535, []byte{1, 2}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.IsKind(err, errors.KindOutOfBounds) {
				t.Errorf("err = %v, want out of bounds", err)
			}
		})
	}
}

func TestOpen_Errors(t *testing.T) {
	ctx := context.Background()

	if _, err := Open(ctx, []byte{0x00, 0x61, 0x73}, unitImage(t), nil); !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("bad wasm: err = %v", err)
	}

	if _, err := Open(ctx, memoryWASM, metadata.NewImage(8), nil); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Errorf("64-bit image: err = %v", err)
	}

	noMemory := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	_, err := Open(ctx, noMemory, unitImage(t), nil)
	if !stderrors.Is(err, errors.ErrNotFound) {
		t.Errorf("no memory export: err = %v", err)
	}
}

func TestRuntime_WithoutExports(t *testing.T) {
	rt := openGuest(t, memoryWASM)
	if err := rt.ClassInit(7); err != nil {
		t.Errorf("ClassInit: %v", err)
	}
	if err := rt.WriteBarrier(0x100, 0x200); err != nil {
		t.Errorf("WriteBarrier: %v", err)
	}
	if rt.PointerSize() != 4 {
		t.Errorf("PointerSize = %d", rt.PointerSize())
	}
	layout := rt.ArrayLayout()
	if layout.LengthOffset != 0x0c || layout.DataOffset != 0x10 {
		t.Errorf("ArrayLayout = %+v", layout)
	}
}

func TestRuntime_GuestExports(t *testing.T) {
	rt := openGuest(t, guestWASM)
	mem := rt.Memory()

	if err := rt.ClassInit(7); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU32(lastInit); v != 7 {
		t.Errorf("class_init saw %d, want 7", v)
	}

	if err := rt.WriteBarrier(0x1234, 0x5678); err != nil {
		t.Fatal(err)
	}
	slot, _ := mem.ReadU32(lastSlot)
	value, _ := mem.ReadU32(lastValue)
	count, _ := mem.ReadU32(barrierCount)
	if slot != 0x1234 || value != 0x5678 || count != 1 {
		t.Errorf("barrier saw slot=0x%x value=0x%x count=%d", slot, value, count)
	}
}

func TestBinding_OverGuest(t *testing.T) {
	rt := openGuest(t, guestWASM)
	mem := rt.Memory()
	b := binding.New(rt)

	unit, err := b.Class("Assembly-CSharp.dll", "Game", "Unit")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU32(lastInit); v != 7 {
		t.Errorf("class_init not run on resolve: %d", v)
	}

	const obj, other, arr = 0x1000, 0x1100, 0x1200
	inst := unit.Instance(obj)
	if err := inst.SetUint("hp", 99); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU8(obj + 8); v != 99 {
		t.Errorf("guest hp = %d", v)
	}

	// int[] of 2 with the 32-bit header: length at 0x0c, data at 0x10
	_ = mem.WriteU32(arr+0x0c, 2)
	_ = mem.WriteU32(arr+0x10, 5)
	_ = mem.WriteU32(arr+0x14, 0xFFFFFFFE)
	_ = mem.WriteU32(obj+12, arr)
	buffs, err := inst.GetArray("buffs")
	if err != nil || buffs == nil {
		t.Fatalf("GetArray = %v, %v", buffs, err)
	}
	if v, _ := buffs.GetInt(1); v != -2 {
		t.Errorf("buffs[1] = %d, want -2", v)
	}

	if err := inst.SetRef("target", other); err != nil {
		t.Fatal(err)
	}
	slot, _ := mem.ReadU32(lastSlot)
	value, _ := mem.ReadU32(lastValue)
	if slot != obj+16 || value != other {
		t.Errorf("barrier slot=0x%x value=0x%x", slot, value)
	}

	st := unit.Static()
	if err := st.SetInt("count", 3); err != nil {
		t.Fatal(err)
	}
	if v, _ := mem.ReadU32(0x200); v != 3 {
		t.Errorf("static count in guest = %d", v)
	}
	if err := st.SetRef("leader", heapbind.Null); err != nil {
		t.Fatal(err)
	}
	slot, _ = mem.ReadU32(lastSlot)
	count, _ := mem.ReadU32(barrierCount)
	if slot != 0x204 || count != 2 {
		t.Errorf("static barrier slot=0x%x count=%d", slot, count)
	}
}
