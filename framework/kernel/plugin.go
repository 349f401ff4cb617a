package kernel

import (
	"fmt"
	"os"
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"
)

const (
	// FrameworkPluginName is the plugin every kernel registers first
	FrameworkPluginName = "framework"

	// ManifestFile is the optional per-test-case plugin manifest
	ManifestFile = "bundles.yaml"
)

// PluginDescriptor names a plugin and the options it is built with
type PluginDescriptor struct {
	Name    string         `json:"name"`
	Options map[string]any `json:"options,omitempty"`
}

// Plugin is a unit of application functionality booted with the kernel
type Plugin interface {
	Name() string
	Boot(c *Container) error
	Shutdown() error
}

// PluginFactory builds a plugin from its descriptor
type PluginFactory func(d PluginDescriptor) (Plugin, error)

// PluginRegistry maps plugin names to factories
type PluginRegistry struct {
	mu        sync.RWMutex
	factories map[string]PluginFactory
}

// NewPluginRegistry creates a registry holding only the framework plugin
func NewPluginRegistry() *PluginRegistry {
	r := &PluginRegistry{factories: make(map[string]PluginFactory)}
	r.Register(FrameworkPluginName, newFrameworkPlugin)
	return r
}

var defaultPlugins = NewPluginRegistry()

// DefaultPluginRegistry returns the registry kernels use unless WithPluginRegistry is given
func DefaultPluginRegistry() *PluginRegistry {
	return defaultPlugins
}

// RegisterPlugin registers a factory on the default registry
func RegisterPlugin(name string, f PluginFactory) {
	defaultPlugins.Register(name, f)
}

// Register adds or replaces the factory for name
func (r *PluginRegistry) Register(name string, f PluginFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Names returns the registered plugin names, sorted
func (r *PluginRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := sets.New[string]()
	for name := range r.factories {
		names.Insert(name)
	}
	return sets.List(names)
}

// Build instantiates the plugins for descriptors, in order
func (r *PluginRegistry) Build(descriptors []PluginDescriptor) ([]Plugin, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := sets.New[string]()
	plugins := make([]Plugin, 0, len(descriptors))
	for _, d := range descriptors {
		if seen.Has(d.Name) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePlugin, d.Name)
		}
		seen.Insert(d.Name)

		factory, ok := r.factories[d.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownPlugin, d.Name)
		}
		p, err := factory(d)
		if err != nil {
			return nil, fmt.Errorf("failed to build plugin %q: %w", d.Name, err)
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

// LoadManifest reads a plugin manifest. The document must be a YAML list whose
// entries are plugin names or {name, options} maps.
func LoadManifest(path string) ([]PluginDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin manifest %s: %w", path, err)
	}

	var raw any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrManifestFormat, path, err)
	}

	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: %s must contain a list of plugins, got %T", ErrManifestFormat, path, raw)
	}

	descriptors := make([]PluginDescriptor, 0, len(items))
	for i, item := range items {
		d, err := parseManifestEntry(item)
		if err != nil {
			return nil, fmt.Errorf("%w: %s entry %d: %v", ErrManifestFormat, path, i, err)
		}
		descriptors = append(descriptors, d)
	}
	return descriptors, nil
}

func parseManifestEntry(item any) (PluginDescriptor, error) {
	switch v := item.(type) {
	case string:
		if v == "" {
			return PluginDescriptor{}, fmt.Errorf("empty plugin name")
		}
		return PluginDescriptor{Name: v}, nil
	case map[string]any:
		name, _ := v["name"].(string)
		if name == "" {
			return PluginDescriptor{}, fmt.Errorf("plugin name is required")
		}
		d := PluginDescriptor{Name: name}
		if opts, ok := v["options"]; ok && opts != nil {
			m, ok := opts.(map[string]any)
			if !ok {
				return PluginDescriptor{}, fmt.Errorf("options of %q must be a map, got %T", name, opts)
			}
			d.Options = m
		}
		return d, nil
	default:
		return PluginDescriptor{}, fmt.Errorf("expected a name or a map, got %T", item)
	}
}

// frameworkPlugin is always booted first and registers the "framework" service
type frameworkPlugin struct{}

func newFrameworkPlugin(PluginDescriptor) (Plugin, error) {
	return frameworkPlugin{}, nil
}

func (frameworkPlugin) Name() string { return FrameworkPluginName }

func (frameworkPlugin) Boot(c *Container) error {
	c.SetService("framework", struct{}{})
	return nil
}

func (frameworkPlugin) Shutdown() error { return nil }

// OptionsPlugin exposes its descriptor options as "<name>.<key>" parameters.
// It backs plugins that carry configuration but no behavior.
type OptionsPlugin struct {
	descriptor PluginDescriptor
}

// NewOptionsPlugin is a PluginFactory for OptionsPlugin
func NewOptionsPlugin(d PluginDescriptor) (Plugin, error) {
	return &OptionsPlugin{descriptor: d}, nil
}

func (p *OptionsPlugin) Name() string { return p.descriptor.Name }

func (p *OptionsPlugin) Boot(c *Container) error {
	for key, value := range p.descriptor.Options {
		c.SetParameter(p.descriptor.Name+"."+key, value)
	}
	c.SetService(p.descriptor.Name, p)
	return nil
}

func (p *OptionsPlugin) Shutdown() error { return nil }
