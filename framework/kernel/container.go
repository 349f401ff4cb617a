package kernel

import (
	"maps"
	"sync"
)

// Container holds the parameters, services, and extension config of a booted kernel
type Container struct {
	mu         sync.RWMutex
	parameters map[string]any
	services   map[string]any
	extensions map[string]map[string]any
}

// NewContainer creates an empty Container
func NewContainer() *Container {
	return &Container{
		parameters: make(map[string]any),
		services:   make(map[string]any),
		extensions: make(map[string]map[string]any),
	}
}

// SetParameter sets a parameter, replacing any previous value
func (c *Container) SetParameter(name string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.parameters[name] = value
}

// Parameter returns a parameter value
func (c *Container) Parameter(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.parameters[name]
	return v, ok
}

// Parameters returns a copy of all parameters
func (c *Container) Parameters() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return maps.Clone(c.parameters)
}

// SetService registers a service instance
func (c *Container) SetService(name string, svc any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = svc
}

// Service returns a service instance
func (c *Container) Service(name string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	svc, ok := c.services[name]
	return svc, ok
}

// MergeExtension merges config into the named extension section. Later keys win.
func (c *Container) MergeExtension(name string, config map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ext, ok := c.extensions[name]
	if !ok {
		ext = make(map[string]any, len(config))
		c.extensions[name] = ext
	}
	maps.Copy(ext, config)
}

// Extension returns a copy of the named extension section
func (c *Container) Extension(name string) (map[string]any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ext, ok := c.extensions[name]
	if !ok {
		return nil, false
	}
	return maps.Clone(ext), true
}

// Reset drops all service instances. Parameters and extension config survive.
func (c *Container) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services = make(map[string]any)
}
