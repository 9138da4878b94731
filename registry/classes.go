package registry

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/heapbind"
	"github.com/wippyai/heapbind/errors"
)

// Key identifies a class by name.
type Key struct {
	Module    string
	Namespace string
	Name      string
}

// QualifiedName returns Namespace.Name.
func (k Key) QualifiedName() string {
	return errors.QualifiedName(k.Namespace, k.Name)
}

func (k Key) String() string {
	return "[" + k.Module + "]" + k.QualifiedName()
}

// Class is a resolved class handle. It is immutable.
type Class struct {
	Key Key
	ID  heapbind.ClassID
}

// Name returns the class's qualified name.
func (c *Class) Name() string {
	return c.Key.QualifiedName()
}

// Classes resolves class names to handles once and caches the result for
// the life of the process. Failed lookups are not cached.
type Classes struct {
	resolver heapbind.Resolver
	metrics  *Metrics
	cache    map[Key]*Class
	group    singleflight.Group
	mu       sync.RWMutex
}

// NewClasses creates a class registry over resolver.
func NewClasses(resolver heapbind.Resolver, metrics *Metrics) *Classes {
	return &Classes{
		resolver: resolver,
		metrics:  metrics,
		cache:    make(map[Key]*Class),
	}
}

// Lookup returns a previously resolved class without touching the runtime.
func (c *Classes) Lookup(key Key) (*Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	cls, ok := c.cache[key]
	return cls, ok
}

// Resolve returns the handle for (module, namespace, name). The first
// successful call runs the class's one-time initialization.
func (c *Classes) Resolve(module, namespace, name string) (*Class, error) {
	key := Key{Module: module, Namespace: namespace, Name: name}
	if cls, ok := c.Lookup(key); ok {
		c.metrics.observe(CacheClass, ResultHit)
		return cls, nil
	}

	v, err, _ := c.group.Do(key.String(), func() (any, error) {
		// A concurrent leader may have published while we waited.
		if cls, ok := c.Lookup(key); ok {
			c.metrics.observe(CacheClass, ResultHit)
			return cls, nil
		}
		return c.resolve(key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Class), nil
}

func (c *Classes) resolve(key Key) (*Class, error) {
	c.metrics.observe(CacheClass, ResultMiss)
	Logger().Debug("resolving class", zap.Stringer("class", key))

	id, ok := c.resolver.ClassFromName(key.Module, key.Namespace, key.Name)
	if !ok {
		c.metrics.observe(CacheClass, ResultFailure)
		Logger().Warn("class not found", zap.Stringer("class", key))
		return nil, errors.ClassNotFound(key.Module, key.Namespace, key.Name)
	}

	if err := c.resolver.ClassInit(id); err != nil {
		c.metrics.observe(CacheClass, ResultFailure)
		Logger().Warn("class initialization failed", zap.Stringer("class", key), zap.Error(err))
		return nil, errors.Initialization(key.QualifiedName(), err)
	}

	cls := &Class{Key: key, ID: id}
	c.mu.Lock()
	c.cache[key] = cls
	c.mu.Unlock()
	return cls, nil
}

// Len returns the number of cached classes.
func (c *Classes) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.cache)
}
