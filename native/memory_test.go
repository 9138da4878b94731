package native

import (
	"runtime"
	"testing"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
)

func TestRegion_Contains(t *testing.T) {
	r := Region{Base: 0x1000, Size: 16}
	tests := []struct {
		addr heapbind.Addr
		n    uint64
		want bool
	}{
		{0x1000, 16, true},
		{0x1000, 17, false},
		{0x100f, 1, true},
		{0x1010, 1, false},
		{0x1010, 0, true},
		{0x0fff, 1, false},
	}
	for _, tt := range tests {
		if got := r.Contains(tt.addr, tt.n); got != tt.want {
			t.Errorf("Contains(0x%x, %d) = %v, want %v", tt.addr, tt.n, got, tt.want)
		}
	}
}

func TestMemory_IntegerReadWrite(t *testing.T) {
	buf := make([]byte, 64)
	r := RegionOf(buf)
	mem := New(r)

	// Unaligned base on purpose
	addr := r.Base + 3

	if err := mem.WriteU8(addr, 42); err != nil {
		t.Fatalf("WriteU8 failed: %v", err)
	}
	v8, err := mem.ReadU8(addr)
	if err != nil || v8 != 42 {
		t.Errorf("ReadU8 = %d, %v", v8, err)
	}

	if err := mem.WriteU16(addr, 0x1234); err != nil {
		t.Fatalf("WriteU16 failed: %v", err)
	}
	v16, err := mem.ReadU16(addr)
	if err != nil || v16 != 0x1234 {
		t.Errorf("ReadU16 = 0x%x, %v", v16, err)
	}

	if err := mem.WriteU32(addr, 0x12345678); err != nil {
		t.Fatalf("WriteU32 failed: %v", err)
	}
	v32, err := mem.ReadU32(addr)
	if err != nil || v32 != 0x12345678 {
		t.Errorf("ReadU32 = 0x%x, %v", v32, err)
	}

	if err := mem.WriteU64(addr, 0x123456789ABCDEF0); err != nil {
		t.Fatalf("WriteU64 failed: %v", err)
	}
	v64, err := mem.ReadU64(addr)
	if err != nil || v64 != 0x123456789ABCDEF0 {
		t.Errorf("ReadU64 = 0x%x, %v", v64, err)
	}

	// Little-endian layout in the backing buffer
	if buf[3] != 0xF0 || buf[10] != 0x12 {
		t.Errorf("unexpected byte layout: % x", buf[3:11])
	}
	runtime.KeepAlive(buf)
}

func TestMemory_ReadWriteBytes(t *testing.T) {
	buf := make([]byte, 8)
	r := RegionOf(buf)
	mem := New(r)

	if err := mem.Write(r.Base, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	got, err := mem.Read(r.Base+1, 3)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got[0] != 2 || got[2] != 4 {
		t.Errorf("Read = %v", got)
	}

	// Read returns a copy
	got[0] = 99
	if buf[1] != 2 {
		t.Error("Read aliased the backing memory")
	}
	runtime.KeepAlive(buf)
}

func TestMemory_Bounds(t *testing.T) {
	buf := make([]byte, 8)
	r := RegionOf(buf)
	mem := New(r)

	if _, err := mem.ReadU64(r.Base + 1); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("read past region: err = %v", err)
	}
	if err := mem.WriteU32(r.Base+8, 1); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("write past region: err = %v", err)
	}
	if _, err := mem.ReadU8(0); !errors.IsKind(err, errors.KindOutOfBounds) {
		t.Errorf("null read: err = %v", err)
	}
	runtime.KeepAlive(buf)
}

func TestMemory_NullRejectedWithoutRegions(t *testing.T) {
	mem := New()
	if _, err := mem.ReadU32(heapbind.Null); err == nil {
		t.Error("expected error for null read")
	}
	if err := mem.WriteU8(heapbind.Null, 1); err == nil {
		t.Error("expected error for null write")
	}
}

func TestRegionOf_Empty(t *testing.T) {
	if r := RegionOf(nil); r.Base != 0 || r.Size != 0 {
		t.Errorf("RegionOf(nil) = %+v", r)
	}
}
