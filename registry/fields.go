package registry

import (
	"strconv"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/kind"
)

// Descriptor is the resolved layout of one field of one class. It is never
// mutated after it is published.
type Descriptor struct {
	Class    *Class
	Kind     kind.Kind
	Name     string
	Slot     heapbind.StaticSlot
	Offset   uint32
	Static   bool
	ReadOnly bool
}

// Path returns the class and field name for error reporting.
func (d *Descriptor) Path() []string {
	return []string{d.Class.Name(), d.Name}
}

type fieldKey struct {
	class heapbind.ClassID
	name  string
}

// Fields resolves field names to descriptors once per (class, field) pair.
// Failed lookups are not cached.
type Fields struct {
	resolver heapbind.Resolver
	metrics  *Metrics
	cache    map[fieldKey]*Descriptor
	group    singleflight.Group
	mu       sync.RWMutex
}

// NewFields creates a field descriptor cache over resolver.
func NewFields(resolver heapbind.Resolver, metrics *Metrics) *Fields {
	return &Fields{
		resolver: resolver,
		metrics:  metrics,
		cache:    make(map[fieldKey]*Descriptor),
	}
}

func (f *Fields) lookup(key fieldKey) (*Descriptor, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	d, ok := f.cache[key]
	return d, ok
}

// Resolve returns the descriptor for class.name.
func (f *Fields) Resolve(class *Class, name string) (*Descriptor, error) {
	if class == nil {
		return nil, errors.InvalidInput(errors.PhaseResolve, "nil class")
	}
	key := fieldKey{class: class.ID, name: name}
	if d, ok := f.lookup(key); ok {
		f.metrics.observe(CacheField, ResultHit)
		return d, nil
	}

	flight := strconv.FormatUint(uint64(class.ID), 10) + "/" + name
	v, err, _ := f.group.Do(flight, func() (any, error) {
		if d, ok := f.lookup(key); ok {
			f.metrics.observe(CacheField, ResultHit)
			return d, nil
		}
		return f.resolve(class, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

func (f *Fields) resolve(class *Class, key fieldKey) (*Descriptor, error) {
	f.metrics.observe(CacheField, ResultMiss)
	Logger().Debug("resolving field",
		zap.String("class", class.Name()),
		zap.String("field", key.name))

	info, ok := f.resolver.FieldFromName(class.ID, key.name)
	if !ok {
		f.metrics.observe(CacheField, ResultFailure)
		Logger().Warn("field not found",
			zap.String("class", class.Name()),
			zap.String("field", key.name))
		return nil, errors.FieldNotFound(class.Name(), key.name)
	}

	d := &Descriptor{
		Class:    class,
		Name:     key.name,
		Kind:     kind.FromWIT(info.Type),
		Offset:   info.Offset,
		Static:   info.Static,
		Slot:     info.Slot,
		ReadOnly: info.ReadOnly,
	}

	f.mu.Lock()
	f.cache[key] = d
	f.mu.Unlock()
	return d, nil
}

// Len returns the number of cached descriptors.
func (f *Fields) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.cache)
}

// Registry bundles the class registry and the field descriptor cache for
// one runtime.
type Registry struct {
	Classes *Classes
	Fields  *Fields
}

// New creates a Registry. metrics may be nil.
func New(resolver heapbind.Resolver, metrics *Metrics) *Registry {
	return &Registry{
		Classes: NewClasses(resolver, metrics),
		Fields:  NewFields(resolver, metrics),
	}
}
