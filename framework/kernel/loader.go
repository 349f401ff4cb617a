package kernel

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"k8s.io/apimachinery/pkg/util/sets"
	"sigs.k8s.io/yaml"
)

// ConfigLoader loads a configuration file into a kernel's container
type ConfigLoader interface {
	Load(path string) error
}

// YAMLLoader loads YAML config files into a Container.
//
// Top-level keys:
//   - imports: list of paths (or {resource: path} maps) loaded first,
//     relative to the importing file
//   - parameters: map merged into the container parameters
//   - anything else: merged into the extension section of the same name
type YAMLLoader struct {
	container *Container
	logger    *slog.Logger
	loaded    sets.Set[string]
}

// NewYAMLLoader creates a loader writing into c
func NewYAMLLoader(c *Container, logger *slog.Logger) *YAMLLoader {
	if logger == nil {
		logger = slog.Default()
	}
	return &YAMLLoader{
		container: c,
		logger:    logger,
		loaded:    sets.New[string](),
	}
}

// Load reads path and everything it imports. A file already loaded by this
// loader is skipped, which also breaks import cycles.
func (l *YAMLLoader) Load(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve config path %s: %w", path, err)
	}
	if l.loaded.Has(abs) {
		return nil
	}
	l.loaded.Insert(abs)

	data, err := os.ReadFile(abs)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", abs, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", abs, err)
	}

	l.logger.Debug("loading config", "file", abs)

	if imports, ok := doc["imports"]; ok {
		if err := l.loadImports(filepath.Dir(abs), imports); err != nil {
			return fmt.Errorf("config %s: %w", abs, err)
		}
	}

	for key, value := range doc {
		switch key {
		case "imports":
		case "parameters":
			params, ok := value.(map[string]any)
			if !ok && value != nil {
				return fmt.Errorf("config %s: parameters must be a map, got %T", abs, value)
			}
			for name, v := range params {
				l.container.SetParameter(name, v)
			}
		default:
			section, ok := value.(map[string]any)
			if !ok && value != nil {
				return fmt.Errorf("config %s: section %q must be a map, got %T", abs, key, value)
			}
			l.container.MergeExtension(key, section)
		}
	}

	return nil
}

func (l *YAMLLoader) loadImports(dir string, imports any) error {
	list, ok := imports.([]any)
	if !ok {
		return fmt.Errorf("imports must be a list, got %T", imports)
	}

	for i, item := range list {
		var resource string
		switch v := item.(type) {
		case string:
			resource = v
		case map[string]any:
			resource, _ = v["resource"].(string)
		}
		if resource == "" {
			return fmt.Errorf("import %d has no resource", i)
		}
		if !filepath.IsAbs(resource) {
			resource = filepath.Join(dir, resource)
		}
		if err := l.Load(resource); err != nil {
			return err
		}
	}
	return nil
}
