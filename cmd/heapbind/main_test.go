package main

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/codec"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/foreigntest"
	"github.com/wippyai/heapbind/kind"
)

func TestParseClass(t *testing.T) {
	tests := []struct {
		in, fallback string
		want         classRef
		wantErr      bool
	}{
		{"[Assembly-CSharp.dll]Game.Unit", "", classRef{"Assembly-CSharp.dll", "Game", "Unit"}, false},
		{"Game.AI.Brain", "Core.dll", classRef{"Core.dll", "Game.AI", "Brain"}, false},
		{"Unit", "", classRef{"", "", "Unit"}, false},
		{"[Broken", "", classRef{}, true},
		{"Game.", "", classRef{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseClass(tt.in, tt.fallback)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestParseAddr(t *testing.T) {
	if a, err := parseAddr("0x1000"); err != nil || a != heapbind.Addr(0x1000) {
		t.Errorf("hex = 0x%x, %v", a, err)
	}
	if a, err := parseAddr("4096"); err != nil || a != 4096 {
		t.Errorf("decimal = %d, %v", a, err)
	}
	if _, err := parseAddr("somewhere"); err == nil {
		t.Error("expected error")
	}
}

func TestSetFlagsFromEnv(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	metricsAddr := fs.String("metrics-addr", "", "")
	verbose := fs.Bool("verbose", false, "")
	image := fs.String("image", "", "")
	if err := fs.Parse([]string{"--image=cli.wasm"}); err != nil {
		t.Fatal(err)
	}

	t.Setenv("HEAPBIND_METRICS_ADDR", ":9090")
	t.Setenv("HEAPBIND_VERBOSE", "true")
	t.Setenv("HEAPBIND_IMAGE", "env.wasm")
	if err := SetFlagsFromEnv(fs, "HEAPBIND"); err != nil {
		t.Fatal(err)
	}
	if *metricsAddr != ":9090" || !*verbose {
		t.Errorf("metrics-addr=%q verbose=%v", *metricsAddr, *verbose)
	}
	if *image != "cli.wasm" {
		t.Errorf("image = %q; command line must win", *image)
	}

	t.Setenv("HEAPBIND_VERBOSE", "maybe")
	fs2 := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs2.Bool("verbose", false, "")
	if err := SetFlagsFromEnv(fs2, "HEAPBIND"); err == nil {
		t.Error("invalid bool accepted")
	}
}

func TestDumpArray(t *testing.T) {
	rt := foreigntest.New()
	b := binding.New(rt)
	addr := rt.NewArrayOf(codec.S32, 1, uint64(0xFFFFFFFF))
	arr := b.Array(addr, kind.FromWIT(kind.MustParse("s32")))

	lines, err := dumpArray(arr)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"[0] 1", "[1] -1"}, lines); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}

	lenAddr := addr.Add(uint64(rt.ArrayLayout().LengthOffset))
	if err := rt.Memory().WriteU64(lenAddr, math.MaxUint64); err != nil {
		t.Fatal(err)
	}
	if lines, err := dumpArray(arr); lines != nil || !errors.IsKind(err, errors.KindInvalidData) {
		t.Errorf("garbage length: lines = %v, err = %v", lines, err)
	}

	opaque := b.Array(addr, kind.FromWIT(kind.MustParse("f32")))
	if _, err := dumpArray(opaque); err == nil {
		t.Error("f32 array dumped")
	}
}
