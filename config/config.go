package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"github.com/wippyai/heapbind/errors"
)

// ClassName names a foreign class.
type ClassName struct {
	Module    string `json:"module"`
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// String returns [Module]Namespace.Name.
func (c ClassName) String() string {
	return "[" + c.Module + "]" + errors.QualifiedName(c.Namespace, c.Name)
}

// Feature is a named group of fields of one class that are bound together.
type Feature struct {
	Name    string    `json:"name"`
	Class   ClassName `json:"class"`
	Fields  []string  `json:"fields,omitempty"`
	Statics []string  `json:"statics,omitempty"`
}

// Config is the binding configuration.
type Config struct {
	// Capabilities maps human-readable names to the foreign runtime's
	// enumerator values.
	Capabilities map[string]int64 `json:"capabilities,omitempty"`
	// Image is the path of the guest wasm module.
	Image string `json:"image,omitempty"`
	// Metadata is the path of the type metadata file.
	Metadata string    `json:"metadata,omitempty"`
	Features []Feature `json:"features,omitempty"`
}

// Parse decodes a YAML or JSON configuration.
func Parse(data []byte) (*Config, error) {
	var c Config
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, errors.ParseFailed(errors.PhaseConfig, "config", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Load reads a configuration file. Relative image and metadata paths are
// resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.PhaseConfig, errors.KindNotFound).
			Detail("read config").
			Cause(err).
			Build()
	}
	c, err := Parse(data)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	c.Image = relativeTo(dir, c.Image)
	c.Metadata = relativeTo(dir, c.Metadata)
	return c, nil
}

func relativeTo(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// Validate checks that every feature names a class and that feature names
// are unique.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Features))
	for i, f := range c.Features {
		path := []string{"features", fmt.Sprintf("%d", i)}
		if f.Name == "" {
			return errors.InvalidData(errors.PhaseConfig, path, "feature without a name")
		}
		if seen[f.Name] {
			return errors.InvalidData(errors.PhaseConfig, path, fmt.Sprintf("duplicate feature %q", f.Name))
		}
		seen[f.Name] = true
		if f.Class.Name == "" {
			return errors.InvalidData(errors.PhaseConfig, append(path, "class"), "class without a name")
		}
	}
	return nil
}

// Feature returns the named feature.
func (c *Config) Feature(name string) (Feature, error) {
	for _, f := range c.Features {
		if f.Name == name {
			return f, nil
		}
	}
	return Feature{}, errors.NotFound(errors.PhaseConfig, "feature", name)
}

// Lookup returns the enumerator value of a capability.
func (c *Config) Lookup(name string) (int64, error) {
	v, ok := c.Capabilities[name]
	if !ok {
		return 0, errors.NotFound(errors.PhaseConfig, "capability", name)
	}
	return v, nil
}

// ResolveCapabilities looks up each name in order. Unknown names are logged
// and skipped.
func (c *Config) ResolveCapabilities(names []string) []int64 {
	out := make([]int64, 0, len(names))
	for _, name := range names {
		v, err := c.Lookup(name)
		if err != nil {
			Logger().Warn("skipping unknown capability", zap.String("name", name))
			continue
		}
		out = append(out, v)
	}
	return out
}

// CapabilityNames returns the configured capability names, sorted.
func (c *Config) CapabilityNames() []string {
	names := make([]string, 0, len(c.Capabilities))
	for name := range c.Capabilities {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
