package binding

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
	"github.com/wippyai/heapbind/kind"
	"github.com/wippyai/heapbind/registry"
)

// Option configures a Binder.
type Option func(*Binder)

// WithMetrics registers registry and write barrier metrics with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(b *Binder) {
		b.metrics = registry.NewMetrics(reg)
		b.notifications = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "heapbind",
			Subsystem: "barrier",
			Name:      "notifications_total",
			Help:      "Write barrier notifications sent to the foreign collector.",
		})
		if reg != nil {
			reg.MustRegister(b.notifications)
		}
	}
}

// Binder ties a foreign runtime to its class and field caches. One Binder
// should exist per runtime; it is safe for concurrent use.
type Binder struct {
	rt            heapbind.Runtime
	reg           *registry.Registry
	gate          *Gate
	metrics       *registry.Metrics
	notifications prometheus.Counter
}

// New creates a Binder for rt.
func New(rt heapbind.Runtime, opts ...Option) *Binder {
	b := &Binder{rt: rt}
	for _, opt := range opts {
		opt(b)
	}
	b.reg = registry.New(rt, b.metrics)
	b.gate = NewGate(rt.Memory(), rt, rt.PointerSize())
	b.gate.notifications = b.notifications
	return b
}

// Runtime returns the bound runtime.
func (b *Binder) Runtime() heapbind.Runtime { return b.rt }

// Registry returns the class and field caches.
func (b *Binder) Registry() *registry.Registry { return b.reg }

// Gate returns the write barrier gate.
func (b *Binder) Gate() *Gate { return b.gate }

// Class resolves a class by name.
func (b *Binder) Class(module, namespace, name string) (*Class, error) {
	c, err := b.reg.Classes.Resolve(module, namespace, name)
	if err != nil {
		return nil, err
	}
	return &Class{b: b, handle: c}, nil
}

// Class is a resolved foreign class bound to a Binder.
type Class struct {
	b      *Binder
	handle *registry.Class
}

// Handle returns the registry handle.
func (c *Class) Handle() *registry.Class { return c.handle }

// Name returns the class's qualified name.
func (c *Class) Name() string { return c.handle.Name() }

// Field resolves a field descriptor.
func (c *Class) Field(name string) (*registry.Descriptor, error) {
	return c.b.reg.Fields.Resolve(c.handle, name)
}

// Instance wraps a borrowed pointer to an object of this class. The
// pointer is not validated until a field is accessed.
func (c *Class) Instance(base heapbind.Addr) *Instance {
	return &Instance{b: c.b, class: c, base: base}
}

// Static returns the accessor for the class's static fields.
func (c *Class) Static() *Static {
	return &Static{b: c.b, class: c}
}

// descriptor resolves name and checks it against the accessor that asked.
func (c *Class) descriptor(name, accessor string, static bool, want kind.Class) (*registry.Descriptor, error) {
	d, err := c.Field(name)
	if err != nil {
		return nil, err
	}
	if d.Static != static {
		detail := accessor + " on instance field"
		if d.Static {
			detail = accessor + " on static field"
		}
		return nil, errors.UnsupportedFieldKind(d.Path(), d.Kind.String(), detail)
	}
	if d.Kind.Class != want {
		return nil, errors.UnsupportedFieldKind(d.Path(), d.Kind.String(), accessor)
	}
	return d, nil
}
