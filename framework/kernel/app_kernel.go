package kernel

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// AppKernel is the default kernel. Variants change its boot sequence through
// a Layout rather than by overriding methods.
type AppKernel struct {
	environment string
	debug       bool
	projectDir  string
	logger      *slog.Logger
	registry    *PluginRegistry
	layout      Layout

	state     State
	container *Container
	plugins   []Plugin
}

// NewAppKernel creates an unbooted AppKernel. The project directory defaults
// to the working directory.
func NewAppKernel(environment string, debug bool, opts ...Option) *AppKernel {
	o := newOptions(opts)
	return newAppKernel(environment, debug, o)
}

func newAppKernel(environment string, debug bool, o *options) *AppKernel {
	projectDir := o.projectDir
	if projectDir == "" {
		if wd, err := os.Getwd(); err == nil {
			projectDir = wd
		}
	}
	k := &AppKernel{
		environment: environment,
		debug:       debug,
		projectDir:  projectDir,
		logger:      o.logger,
		registry:    o.plugins,
		state:       StateUnbooted,
	}
	k.layout = k
	return k
}

// AppKernelFactory is the Factory for AppKernel
func AppKernelFactory(environment string, debug bool, opts ...Option) (Kernel, error) {
	return NewAppKernel(environment, debug, opts...), nil
}

// UseLayout replaces the layout consulted during Boot
func (k *AppKernel) UseLayout(l Layout) {
	k.layout = l
}

func (k *AppKernel) Environment() string { return k.environment }

func (k *AppKernel) Debug() bool { return k.debug }

func (k *AppKernel) State() State { return k.state }

func (k *AppKernel) ProjectDir() string { return k.projectDir }

func (k *AppKernel) CacheDir() string {
	return filepath.Join(k.projectDir, "var", "cache", k.environment)
}

func (k *AppKernel) LogDir() string {
	return filepath.Join(k.projectDir, "var", "log")
}

// RegisterPlugins returns the framework plugin only
func (k *AppKernel) RegisterPlugins() ([]PluginDescriptor, error) {
	return []PluginDescriptor{{Name: FrameworkPluginName}}, nil
}

// LoadConfiguration loads nothing; AppKernel runs on defaults
func (k *AppKernel) LoadConfiguration(ConfigLoader) error {
	return nil
}

// Container returns the service container, nil before Boot
func (k *AppKernel) Container() ServiceContainer {
	if k.container == nil {
		return nil
	}
	return k.container
}

// Boot prepares directories, builds the container and plugins, loads
// configuration, and boots plugins in registration order. Booting a booted
// kernel is a no-op; booting a shut down kernel fails.
func (k *AppKernel) Boot() error {
	switch k.state {
	case StateBooted:
		return nil
	case StateShutDown:
		return ErrKernelShutDown
	}

	l := k.layout
	for _, dir := range []string{l.CacheDir(), l.LogDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create kernel directory %s: %w", dir, err)
		}
	}

	descriptors, err := l.RegisterPlugins()
	if err != nil {
		return err
	}
	plugins, err := k.registry.Build(descriptors)
	if err != nil {
		return err
	}

	container := NewContainer()
	container.SetParameter("kernel.environment", k.environment)
	container.SetParameter("kernel.debug", k.debug)
	container.SetParameter("kernel.project_dir", l.ProjectDir())
	container.SetParameter("kernel.cache_dir", l.CacheDir())
	container.SetParameter("kernel.logs_dir", l.LogDir())
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name()
	}
	container.SetParameter("kernel.plugins", names)

	if err := l.LoadConfiguration(NewYAMLLoader(container, k.logger)); err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	for i, p := range plugins {
		if err := p.Boot(container); err != nil {
			bootErr := fmt.Errorf("failed to boot plugin %q: %w", p.Name(), err)
			if shutdownErr := shutdownPlugins(plugins[:i]); shutdownErr != nil {
				return errors.Join(bootErr, shutdownErr)
			}
			return bootErr
		}
	}

	k.container = container
	k.plugins = plugins
	k.state = StateBooted
	k.logger.Info("kernel booted", "environment", k.environment, "debug", k.debug, "plugins", names)
	return nil
}

// Shutdown shuts plugins down in reverse order. It is terminal: the kernel
// cannot be booted again. Shutting down an unbooted kernel only marks it.
func (k *AppKernel) Shutdown() error {
	if k.state == StateShutDown {
		return nil
	}
	wasBooted := k.state == StateBooted
	k.state = StateShutDown
	if !wasBooted {
		return nil
	}

	err := shutdownPlugins(k.plugins)
	k.plugins = nil
	k.logger.Info("kernel shut down", "environment", k.environment)
	return err
}

func shutdownPlugins(plugins []Plugin) error {
	var errs []error
	for i := len(plugins) - 1; i >= 0; i-- {
		if err := plugins[i].Shutdown(); err != nil {
			errs = append(errs, fmt.Errorf("failed to shut down plugin %q: %w", plugins[i].Name(), err))
		}
	}
	return errors.Join(errs...)
}
