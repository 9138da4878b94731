package feature

import (
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/binding"
	"github.com/wippyai/heapbind/config"
	"github.com/wippyai/heapbind/errors"
)

// Feature is one configured feature. It is enabled once its class and every
// listed field have resolved.
type Feature struct {
	class *binding.Class
	err   error
	cfg   config.Feature
}

// Name returns the feature's configured name.
func (f *Feature) Name() string { return f.cfg.Name }

// Config returns the feature's configuration.
func (f *Feature) Config() config.Feature { return f.cfg }

// Class returns the bound class.
func (f *Feature) Class() *binding.Class { return f.class }

// Instance wraps an object of the feature's class.
func (f *Feature) Instance(addr heapbind.Addr) *binding.Instance {
	return f.class.Instance(addr)
}

// Static returns the class's static accessor.
func (f *Feature) Static() *binding.Static {
	return f.class.Static()
}

// Status is a snapshot of one feature.
type Status struct {
	Err     error
	Name    string
	Enabled bool
}

// Set binds configured features. A feature whose class or fields cannot be
// resolved is disabled; the rest keep working. Disabled features are only
// retried when the caller asks.
type Set struct {
	b        *binding.Binder
	features map[string]*Feature
	order    []string
	mu       sync.RWMutex
}

// New creates a Set and binds every feature once.
func New(b *binding.Binder, features []config.Feature) *Set {
	s := &Set{
		b:        b,
		features: make(map[string]*Feature, len(features)),
	}
	for _, cfg := range features {
		if _, dup := s.features[cfg.Name]; dup {
			Logger().Warn("duplicate feature ignored", zap.String("feature", cfg.Name))
			continue
		}
		f := &Feature{cfg: cfg}
		s.bind(f)
		s.features[cfg.Name] = f
		s.order = append(s.order, cfg.Name)
	}
	return s
}

func (s *Set) bind(f *Feature) {
	cls, err := s.resolve(f.cfg)
	if err != nil {
		f.class, f.err = nil, err
		level := Logger().Warn
		if !errors.IsKind(err, errors.KindClassNotFound) && !errors.IsKind(err, errors.KindFieldNotFound) {
			level = Logger().Error
		}
		level("feature disabled",
			zap.String("feature", f.cfg.Name),
			zap.Stringer("class", f.cfg.Class),
			zap.Error(err))
		return
	}
	f.class, f.err = cls, nil
	Logger().Debug("feature enabled", zap.String("feature", f.cfg.Name))
}

func (s *Set) resolve(cfg config.Feature) (*binding.Class, error) {
	cls, err := s.b.Class(cfg.Class.Module, cfg.Class.Namespace, cfg.Class.Name)
	if err != nil {
		return nil, err
	}
	if err := check(cls, cfg.Fields, false); err != nil {
		return nil, err
	}
	if err := check(cls, cfg.Statics, true); err != nil {
		return nil, err
	}
	return cls, nil
}

func check(cls *binding.Class, names []string, static bool) error {
	for _, name := range names {
		d, err := cls.Field(name)
		if err != nil {
			return err
		}
		if d.Static != static {
			return errors.UnsupportedFieldKind(d.Path(), d.Kind.String(), "binding as static="+strconv.FormatBool(static))
		}
	}
	return nil
}

// Retry re-binds every disabled feature and returns how many became
// enabled.
func (s *Set) Retry() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, name := range s.order {
		f := s.features[name]
		if f.err == nil {
			continue
		}
		s.bind(f)
		if f.err == nil {
			n++
		}
	}
	return n
}

// Get returns an enabled feature. A disabled feature returns the error that
// disabled it.
func (s *Set) Get(name string) (*Feature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.features[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseConfig, "feature", name)
	}
	if f.err != nil {
		return nil, f.err
	}
	return f, nil
}

// Enabled reports whether the named feature is bound.
func (s *Set) Enabled(name string) bool {
	_, err := s.Get(name)
	return err == nil
}

// Statuses returns every feature's state in configuration order.
func (s *Set) Statuses() []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Status, 0, len(s.order))
	for _, name := range s.order {
		f := s.features[name]
		out = append(out, Status{Name: name, Enabled: f.err == nil, Err: f.err})
	}
	return out
}
