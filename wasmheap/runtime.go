package wasmheap

import (
	"context"
	"fmt"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/metadata"
)

// Guest export names.
const (
	ExportMemory       = "memory"
	ExportClassInit    = "class_init"
	ExportWriteBarrier = "gc_wbarrier_set_field"
)

// Config holds configuration for Open.
type Config struct {
	// Name is the guest module name. Empty uses the module's own name.
	Name string
	// MemoryLimitPages caps guest memory in 64KiB pages. 0 keeps wazero's
	// default.
	MemoryLimitPages uint32
	// WASI instantiates wasi_snapshot_preview1 before the guest.
	WASI bool
}

// Runtime is a foreign runtime whose managed heap lives in a wasm32 guest's
// linear memory. Type metadata comes from an Image; class initialization and
// write barriers call the guest's exports when it has them.
type Runtime struct {
	*metadata.Image

	ctx       context.Context
	mod       api.Module
	mem       *Memory
	classInit api.Function
	barrier   api.Function
	// owned is closed by Close when Open created it.
	owned wazero.Runtime

	// guest calls are not reentrant
	mu sync.Mutex
}

// Open compiles and instantiates a guest in a new wazero runtime.
func Open(ctx context.Context, wasm []byte, img *metadata.Image, cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	wr := wazero.NewRuntimeWithConfig(ctx, runtimeCfg)

	if cfg.WASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, wr); err != nil {
			_ = wr.Close(ctx)
			return nil, errors.Load("instantiate WASI", err)
		}
	}

	compiled, err := wr.CompileModule(ctx, wasm)
	if err != nil {
		_ = wr.Close(ctx)
		return nil, errors.Load("compile guest", err)
	}
	modCfg := wazero.NewModuleConfig()
	if cfg.Name != "" {
		modCfg = modCfg.WithName(cfg.Name)
	}
	mod, err := wr.InstantiateModule(ctx, compiled, modCfg)
	if err != nil {
		_ = wr.Close(ctx)
		return nil, errors.Load("instantiate guest", err)
	}

	rt, err := New(ctx, mod, img)
	if err != nil {
		_ = wr.Close(ctx)
		return nil, err
	}
	rt.owned = wr
	return rt, nil
}

// New binds an instantiated guest. The image must describe a 32-bit heap.
func New(ctx context.Context, mod api.Module, img *metadata.Image) (*Runtime, error) {
	if img.PointerSize() != 4 {
		return nil, errors.InvalidInput(errors.PhaseLoad,
			fmt.Sprintf("wasm32 guest needs pointer size 4, image has %d", img.PointerSize()))
	}
	mem := WrapMemory(mod.ExportedMemory(ExportMemory))
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", ExportMemory)
	}
	rt := &Runtime{
		Image:     img,
		ctx:       ctx,
		mod:       mod,
		mem:       mem,
		classInit: mod.ExportedFunction(ExportClassInit),
		barrier:   mod.ExportedFunction(ExportWriteBarrier),
	}
	Logger().Debug("guest bound",
		zap.String("module", mod.Name()),
		zap.Uint32("memory_bytes", mem.Size()),
		zap.Bool("class_init", rt.classInit != nil),
		zap.Bool("write_barrier", rt.barrier != nil))
	return rt, nil
}

// Module returns the guest module.
func (r *Runtime) Module() api.Module { return r.mod }

// Memory implements heapbind.Runtime.
func (r *Runtime) Memory() heapbind.Memory { return r.mem }

// ClassInit implements heapbind.Resolver. Guests without a class_init
// export have nothing to run.
func (r *Runtime) ClassInit(class heapbind.ClassID) error {
	if r.classInit == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.classInit.Call(r.ctx, uint64(uint32(class))); err != nil {
		return fmt.Errorf("%s(%d): %w", ExportClassInit, class, err)
	}
	return nil
}

// StaticGet implements heapbind.StaticStorage.
func (r *Runtime) StaticGet(slot heapbind.StaticSlot, dst []byte) error {
	b, err := r.mem.Read(slot.Addr, uint32(len(dst)))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}

// StaticSet implements heapbind.StaticStorage.
func (r *Runtime) StaticSet(slot heapbind.StaticSlot, src []byte) error {
	return r.mem.Write(slot.Addr, src)
}

// WriteBarrier implements heapbind.Collector by calling the guest's
// barrier export. Guests without one use a non-moving, non-generational
// collector and need no notification.
func (r *Runtime) WriteBarrier(slot, value heapbind.Addr) error {
	if r.barrier == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	_, err := r.barrier.Call(r.ctx, uint64(uint32(slot)), uint64(uint32(value)))
	return err
}

// Close closes the guest, and the wazero runtime if Open created it.
func (r *Runtime) Close(ctx context.Context) error {
	if r.owned != nil {
		return r.owned.Close(ctx)
	}
	return r.mod.Close(ctx)
}

var _ heapbind.Runtime = (*Runtime)(nil)
