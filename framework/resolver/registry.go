package resolver

import (
	"sync"

	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/redhat/kernel-fixtures/test/framework/kernel"
)

// Built-in kernel type names
const (
	AppKernel  = "AppKernel"
	TestKernel = "TestKernel"

	// DefaultKernel is used when nothing else resolves
	DefaultKernel = TestKernel
)

// Registry maps kernel type names to factories. Suites register their own
// kernels here instead of having them loaded at runtime.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]kernel.Factory
}

// NewRegistry creates a registry holding the built-in kernels
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]kernel.Factory)}
	r.Register(AppKernel, kernel.AppKernelFactory)
	r.Register(TestKernel, kernel.TestKernelFactory)
	return r
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the process-wide registry
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register adds a factory to the default registry. Typically called from init.
func Register(name string, f kernel.Factory) {
	defaultRegistry.Register(name, f)
}

// Register adds or replaces the factory for name
func (r *Registry) Register(name string, f kernel.Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = f
}

// Lookup returns the factory registered for name
func (r *Registry) Lookup(name string) (kernel.Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.factories[name]
	return f, ok
}

// Names returns the registered kernel names, sorted
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := sets.New[string]()
	for name := range r.factories {
		names.Insert(name)
	}
	return sets.List(names)
}
