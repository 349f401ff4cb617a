// Package kernel defines the bootable application kernel driven by the
// fixture harness, a default AppKernel, and the TestKernel fixture variant
// that binds itself to one test case's configuration directory.
package kernel

import (
	"errors"
	"log/slog"
	"os"

	"k8s.io/apimachinery/pkg/util/rand"
)

// Sentinel errors for kernel operations
var (
	// ErrInvalidArgument indicates a missing test case, root config, or required option
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrManifestFormat indicates a plugin manifest that does not contain a list
	ErrManifestFormat = errors.New("invalid plugin manifest")

	// ErrKernelShutDown indicates an operation on a kernel that was already shut down
	ErrKernelShutDown = errors.New("kernel has been shut down")

	// ErrUnknownPlugin indicates a plugin name with no registered factory
	ErrUnknownPlugin = errors.New("unknown plugin")

	// ErrDuplicatePlugin indicates two plugins registered under the same name
	ErrDuplicatePlugin = errors.New("duplicate plugin")
)

// State is the lifecycle state of a kernel
type State int

const (
	StateUnbooted State = iota
	StateBooted
	StateShutDown
)

func (s State) String() string {
	switch s {
	case StateUnbooted:
		return "unbooted"
	case StateBooted:
		return "booted"
	case StateShutDown:
		return "shut down"
	default:
		return "unknown"
	}
}

// Kernel is a bootable application instance owning configuration, plugins,
// and cache/log paths.
type Kernel interface {
	Environment() string
	Debug() bool
	Boot() error
	Shutdown() error
	State() State
	// Container returns nil until the kernel has booted
	Container() ServiceContainer
	CacheDir() string
	LogDir() string
}

// ServiceContainer is the read side of a kernel's dependency container
type ServiceContainer interface {
	Parameter(name string) (any, bool)
	Service(name string) (any, bool)
}

// Resettable is implemented by containers that can drop their service instances
type Resettable interface {
	Reset()
}

// FixtureConfigurable is implemented by kernels that bind to a test case
// configuration and own an isolated temp directory.
type FixtureConfigurable interface {
	Kernel
	Configure(cfg FixtureConfig) error
	TempDir() string
}

// Factory builds a kernel for an environment and debug flag
type Factory func(environment string, debug bool, opts ...Option) (Kernel, error)

// Layout supplies the parts of the boot sequence a kernel variant may override
type Layout interface {
	RegisterPlugins() ([]PluginDescriptor, error)
	CacheDir() string
	LogDir() string
	ProjectDir() string
	LoadConfiguration(loader ConfigLoader) error
}

type options struct {
	logger     *slog.Logger
	plugins    *PluginRegistry
	projectDir string
	tempRoot   string
	token      func() string
}

// Option is a function that configures a kernel
type Option func(*options)

// WithLogger sets a custom logger for the kernel
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithPluginRegistry sets the registry plugin descriptors are built from
func WithPluginRegistry(r *PluginRegistry) Option {
	return func(o *options) {
		o.plugins = r
	}
}

// WithProjectDir sets the project directory of an AppKernel
func WithProjectDir(dir string) Option {
	return func(o *options) {
		o.projectDir = dir
	}
}

// WithTempRoot sets the directory TestKernel temp trees are created under
func WithTempRoot(dir string) Option {
	return func(o *options) {
		o.tempRoot = dir
	}
}

// WithTokenFunc sets the source of the uniqueness token appended to fixture names
func WithTokenFunc(fn func() string) Option {
	return func(o *options) {
		o.token = fn
	}
}

func newOptions(opts []Option) *options {
	o := &options{
		logger:   slog.Default(),
		plugins:  DefaultPluginRegistry(),
		tempRoot: os.TempDir(),
		token:    func() string { return rand.String(8) },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
