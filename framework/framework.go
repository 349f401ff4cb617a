package framework

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redhat/kernel-fixtures/test/framework/config"
	"github.com/redhat/kernel-fixtures/test/framework/kernel"
	"github.com/redhat/kernel-fixtures/test/framework/locator"
	"github.com/redhat/kernel-fixtures/test/framework/resolver"
	"github.com/redhat/kernel-fixtures/test/framework/retry"
)

// Manager owns at most one booted kernel fixture at a time
type Manager struct {
	logger        *slog.Logger
	config        *config.Config
	registry      *resolver.Registry
	locator       resolver.DirLocator
	kernelOptions []kernel.Option
	removeRetry   []retry.Option
	removeAll     func(string) error

	mu     sync.Mutex
	class  *resolver.Class
	active kernel.Kernel
}

// Option is a function that configures the Manager
type Option func(*Manager)

// WithLogger sets a custom logger for the manager and the kernels it builds
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithConfig sets a custom configuration instead of reading the environment
func WithConfig(cfg *config.Config) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// WithRegistry sets the kernel registry used for resolution
func WithRegistry(r *resolver.Registry) Option {
	return func(m *Manager) {
		m.registry = r
	}
}

// WithLocator sets the config directory locator used for resolution
func WithLocator(l resolver.DirLocator) Option {
	return func(m *Manager) {
		m.locator = l
	}
}

// WithKernelOptions appends options passed to every kernel factory
func WithKernelOptions(opts ...kernel.Option) Option {
	return func(m *Manager) {
		m.kernelOptions = append(m.kernelOptions, opts...)
	}
}

// WithRemoveRetry overrides the backoff used to remove fixture temp trees
func WithRemoveRetry(opts ...retry.Option) Option {
	return func(m *Manager) {
		m.removeRetry = append(m.removeRetry, opts...)
	}
}

// New creates a Manager. Configuration is read from the environment unless
// WithConfig is given.
func New(opts ...Option) *Manager {
	m := &Manager{
		logger:    slog.Default(),
		removeAll: os.RemoveAll,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.config == nil {
		m.config = config.FromEnv()
	}
	if m.registry == nil {
		m.registry = resolver.DefaultRegistry()
	}
	if m.locator == nil {
		m.locator = locator.New(locator.WithLogger(m.logger))
	}
	return m
}

// Config returns the manager configuration
func (m *Manager) Config() *config.Config {
	return m.config
}

// Logger returns the logger
func (m *Manager) Logger() *slog.Logger {
	return m.logger
}

// Kernel returns the active kernel, or nil
func (m *Manager) Kernel() kernel.Kernel {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active
}

// KernelClass resolves the kernel class once and returns the cached result afterwards
func (m *Manager) KernelClass() (resolver.Class, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.kernelClass()
}

func (m *Manager) kernelClass() (resolver.Class, error) {
	if m.class != nil {
		return *m.class, nil
	}
	r := resolver.New(
		resolver.WithConfig(m.config),
		resolver.WithLocator(m.locator),
		resolver.WithRegistry(m.registry),
		resolver.WithLogger(m.logger),
	)
	class, err := r.Resolve()
	if err != nil {
		return resolver.Class{}, err
	}
	m.logger.Debug("resolved kernel class", "kernel", class.Name, "origin", class.Origin)
	m.class = &class
	return class, nil
}

// CreateAndBoot shuts down any active kernel, then builds, configures, and
// boots a new one and makes it the active kernel. On failure no kernel is
// returned and none is left active.
func (m *Manager) CreateAndBoot(opts Options) (kernel.Kernel, error) {
	if err := m.EnsureShutdown(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	class, err := m.kernelClass()
	if err != nil {
		return nil, NewFixtureError("resolve kernel", opts.TestCase, err)
	}

	environment := opts.Environment
	if environment == "" {
		environment = m.config.Environment
	}
	debug := m.config.Debug
	if opts.Debug != nil {
		debug = *opts.Debug
	}

	kernelOpts := append([]kernel.Option{
		kernel.WithLogger(m.logger),
		kernel.WithTempRoot(m.config.TempRoot),
	}, m.kernelOptions...)

	k, err := class.Factory(environment, debug, kernelOpts...)
	if err != nil {
		return nil, NewFixtureError("create kernel", opts.TestCase, fmt.Errorf("%s: %w", class.Name, err))
	}

	if fk, ok := k.(kernel.FixtureConfigurable); ok {
		if opts.TestCase == "" || opts.ConfigDir == "" {
			return nil, NewFixtureError("create kernel", opts.TestCase,
				fmt.Errorf("%w: %s requires TestCase and ConfigDir options", ErrInvalidArgument, class.Name))
		}
		if err := fk.Configure(opts.fixtureConfig()); err != nil {
			return nil, NewFixtureError("configure kernel", opts.TestCase, err)
		}
	}

	if err := k.Boot(); err != nil {
		bootErr := NewFixtureError("boot kernel", opts.TestCase, err)
		if cleanupErr := m.teardown(k); cleanupErr != nil {
			m.logger.Warn("failed to clean up kernel after boot failure", "test_case", opts.TestCase, "error", cleanupErr)
		}
		return nil, bootErr
	}

	m.active = k
	m.logger.Info("kernel fixture booted", "kernel", class.Name, "test_case", opts.TestCase, "environment", environment)
	return k, nil
}
