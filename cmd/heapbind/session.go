package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/config"
	"github.com/wippyai/heapbind/kind"
	"github.com/wippyai/heapbind/metadata"
	"github.com/wippyai/heapbind/wasmheap"
)

// session is one loaded guest with its binder.
type session struct {
	cfg *config.Config
	img *metadata.Image
	rt  *wasmheap.Runtime
	b   *binding.Binder
}

func loadConfig() (*config.Config, error) {
	cfg := &config.Config{}
	if opts.configPath != "" {
		var err error
		if cfg, err = config.Load(opts.configPath); err != nil {
			return nil, err
		}
	}
	if opts.imagePath != "" {
		cfg.Image = opts.imagePath
	}
	if opts.metadataPath != "" {
		cfg.Metadata = opts.metadataPath
	}
	return cfg, nil
}

func loadImage() (*config.Config, *metadata.Image, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.Metadata == "" {
		return nil, nil, fmt.Errorf("no metadata file: set --metadata or metadata in --config")
	}
	img, err := metadata.Load(cfg.Metadata)
	if err != nil {
		return nil, nil, err
	}
	return cfg, img, nil
}

func openSession(ctx context.Context) (*session, error) {
	cfg, img, err := loadImage()
	if err != nil {
		return nil, err
	}
	if cfg.Image == "" {
		return nil, fmt.Errorf("no guest image: set --image or image in --config")
	}
	wasm, err := os.ReadFile(cfg.Image)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	rt, err := wasmheap.Open(ctx, wasm, img, &wasmheap.Config{
		MemoryLimitPages: opts.memoryPages,
		WASI:             opts.wasi,
	})
	if err != nil {
		return nil, err
	}
	return &session{
		cfg: cfg,
		img: img,
		rt:  rt,
		b:   binding.New(rt, binding.WithMetrics(metrics)),
	}, nil
}

func (s *session) Close(ctx context.Context) error {
	return s.rt.Close(ctx)
}

// classRef is a class named on the command line.
type classRef struct {
	module, namespace, name string
}

// parseClass accepts "[Module]Namespace.Name", "Namespace.Name" or "Name".
// Without a bracketed module, fallback is used.
func parseClass(s, fallback string) (classRef, error) {
	ref := classRef{module: fallback}
	if rest, ok := strings.CutPrefix(s, "["); ok {
		mod, tail, ok := strings.Cut(rest, "]")
		if !ok {
			return classRef{}, fmt.Errorf("unterminated module in %q", s)
		}
		ref.module, s = mod, tail
	}
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		ref.namespace, ref.name = s[:i], s[i+1:]
	} else {
		ref.name = s
	}
	if ref.name == "" {
		return classRef{}, fmt.Errorf("empty class name in %q", s)
	}
	return ref, nil
}

func (s *session) class(name, module string) (*binding.Class, error) {
	ref, err := parseClass(name, module)
	if err != nil {
		return nil, err
	}
	if ref.module == "" {
		// unique match across modules
		for _, c := range s.img.Classes() {
			if c.Namespace == ref.namespace && c.Name == ref.name {
				if ref.module != "" {
					return nil, fmt.Errorf("class %s is defined in several modules, use [Module]%s", name, name)
				}
				ref.module = c.Module
			}
		}
	}
	return s.b.Class(ref.module, ref.namespace, ref.name)
}

func parseAddr(s string) (heapbind.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid address %q: %w", s, err)
	}
	return heapbind.Addr(v), nil
}

// fieldValue is the unified read side used by get, static and browse.
type fieldValue struct {
	get interface {
		GetInt(string) (int64, error)
		GetUint(string) (uint64, error)
		GetRef(string) (heapbind.Addr, error)
		GetArray(string) (*binding.Array, error)
	}
	set interface {
		SetInt(string, int64) error
		SetUint(string, uint64) error
		SetRef(string, heapbind.Addr) error
	}
}

func accessorFor(cls *binding.Class, static bool, addr heapbind.Addr) fieldValue {
	if static {
		st := cls.Static()
		return fieldValue{get: st, set: st}
	}
	inst := cls.Instance(addr)
	return fieldValue{get: inst, set: inst}
}

func formatField(v fieldValue, name string, k kind.Kind) (string, error) {
	switch k.Class {
	case kind.ClassScalar:
		if k.Scalar.Signed {
			n, err := v.get.GetInt(name)
			return strconv.FormatInt(n, 10), err
		}
		n, err := v.get.GetUint(name)
		return strconv.FormatUint(n, 10), err
	case kind.ClassRef:
		ref, err := v.get.GetRef(name)
		if err != nil {
			return "", err
		}
		return formatAddr(ref), nil
	case kind.ClassArray:
		arr, err := v.get.GetArray(name)
		if err != nil {
			return "", err
		}
		if arr == nil {
			return "null", nil
		}
		n, err := arr.Len()
		return fmt.Sprintf("%s[%d] @0x%x", k.Elem, n, uint64(arr.Addr())), err
	}
	return "", fmt.Errorf("field %s of type %s has no text form", name, k)
}

func setField(v fieldValue, name string, k kind.Kind, text string) error {
	switch k.Class {
	case kind.ClassScalar:
		if k.Scalar.Signed {
			n, err := strconv.ParseInt(text, 0, 64)
			if err != nil {
				return fmt.Errorf("invalid %s %q: %w", k, text, err)
			}
			return v.set.SetInt(name, n)
		}
		n, err := strconv.ParseUint(text, 0, 64)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", k, text, err)
		}
		return v.set.SetUint(name, n)
	case kind.ClassRef:
		if text == "null" {
			return v.set.SetRef(name, heapbind.Null)
		}
		addr, err := parseAddr(text)
		if err != nil {
			return err
		}
		return v.set.SetRef(name, addr)
	}
	return fmt.Errorf("field %s of type %s cannot be set from text", name, k)
}
