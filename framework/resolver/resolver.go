// Package resolver determines which kernel type the harness instantiates.
//
// Resolution order, first match wins:
//
//  1. ExplicitName: the KERNEL_CLASS override, looked up in the Registry
//  2. ExplicitDirectory: the KERNEL_DIR override, scanned for a kernel source
//  3. ConventionScan: the located config directory, scanned the same way
//  4. Default: the built-in TestKernel
//
// A scan looks for exactly one "*Kernel.go" (or "*_kernel.go") file declaring
// exactly one type, and maps that type name through the Registry. Kernel
// types are never loaded at runtime; suites register their factories.
package resolver

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/redhat/kernel-fixtures/test/framework/config"
	"github.com/redhat/kernel-fixtures/test/framework/kernel"
	"github.com/redhat/kernel-fixtures/test/framework/locator"
)

var (
	// ErrKernelClassNotFound indicates a named kernel is not registered or a
	// directory scan found zero or ambiguous candidates
	ErrKernelClassNotFound = errors.New("kernel class not found")

	// ErrNoKernelSource indicates a scanned directory has no kernel source file
	ErrNoKernelSource = errors.New("no kernel source file")
)

// Origin records which strategy produced a Class
type Origin string

const (
	OriginName       Origin = "name"
	OriginDirectory  Origin = "directory"
	OriginConvention Origin = "convention"
	OriginDefault    Origin = "default"
)

// Class identifies a resolved kernel type
type Class struct {
	Name    string
	Factory kernel.Factory
	Origin  Origin
	// Source is the scanned file for directory-based origins
	Source string
}

// Strategy is one way of resolving a kernel class
type Strategy interface {
	Resolve() (Class, error)
}

// DirLocator supplies the configuration directory
type DirLocator interface {
	Locate() (string, error)
}

// ExplicitName resolves a registered kernel by name
type ExplicitName struct {
	Name     string
	Registry *Registry
}

func (s ExplicitName) Resolve() (Class, error) {
	f, ok := s.Registry.Lookup(s.Name)
	if !ok {
		return Class{}, fmt.Errorf("%w: %q is not registered (known: %v)", ErrKernelClassNotFound, s.Name, s.Registry.Names())
	}
	return Class{Name: s.Name, Factory: f, Origin: OriginName}, nil
}

// ExplicitDirectory resolves the kernel declared in a directory
type ExplicitDirectory struct {
	Dir      string
	Registry *Registry
}

func (s ExplicitDirectory) Resolve() (Class, error) {
	return resolveDir(s.Dir, s.Registry, OriginDirectory)
}

// ConventionScan resolves the kernel declared in the configuration directory
type ConventionScan struct {
	Locator  DirLocator
	Registry *Registry
}

func (s ConventionScan) Resolve() (Class, error) {
	dir, err := s.Locator.Locate()
	if err != nil {
		return Class{}, err
	}
	return resolveDir(dir, s.Registry, OriginConvention)
}

// Default resolves the built-in default kernel
type Default struct {
	Registry *Registry
}

func (s Default) Resolve() (Class, error) {
	f, ok := s.Registry.Lookup(DefaultKernel)
	if !ok {
		return Class{}, fmt.Errorf("%w: default kernel %q is not registered", ErrKernelClassNotFound, DefaultKernel)
	}
	return Class{Name: DefaultKernel, Factory: f, Origin: OriginDefault}, nil
}

func resolveDir(dir string, registry *Registry, origin Origin) (Class, error) {
	name, file, err := scanDir(dir)
	if err != nil {
		return Class{}, err
	}
	f, ok := registry.Lookup(name)
	if !ok {
		return Class{}, fmt.Errorf("%w: %q declared in %s is not registered", ErrKernelClassNotFound, name, file)
	}
	return Class{Name: name, Factory: f, Origin: origin, Source: file}, nil
}

// Resolver runs the strategies in order
type Resolver struct {
	config   *config.Config
	locator  DirLocator
	registry *Registry
	logger   *slog.Logger
}

// Option is a function that configures the Resolver
type Option func(*Resolver)

// WithConfig sets the configuration holding the KERNEL_CLASS / KERNEL_DIR overrides
func WithConfig(cfg *config.Config) Option {
	return func(r *Resolver) {
		r.config = cfg
	}
}

// WithLocator sets the config directory locator
func WithLocator(l DirLocator) Option {
	return func(r *Resolver) {
		r.locator = l
	}
}

// WithRegistry sets the kernel registry
func WithRegistry(reg *Registry) Option {
	return func(r *Resolver) {
		r.registry = reg
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		r.logger = logger
	}
}

// New creates a Resolver using environment config, the default locator, and
// the default registry unless overridden.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.config == nil {
		r.config = config.FromEnv()
	}
	if r.locator == nil {
		r.locator = locator.New(locator.WithLogger(r.logger))
	}
	if r.registry == nil {
		r.registry = DefaultRegistry()
	}
	return r
}

// Resolve returns the kernel class. Results are not cached.
func (r *Resolver) Resolve() (Class, error) {
	if r.config.KernelClass != "" {
		r.logger.Debug("resolving kernel by name", "kernel", r.config.KernelClass)
		return ExplicitName{Name: r.config.KernelClass, Registry: r.registry}.Resolve()
	}

	if r.config.KernelDir != "" {
		dir := r.config.KernelDir
		if !filepath.IsAbs(dir) {
			base, err := r.locator.Locate()
			if err != nil {
				return Class{}, fmt.Errorf("failed to resolve kernel dir %s: %w", dir, err)
			}
			dir = filepath.Join(base, dir)
		}
		r.logger.Debug("resolving kernel from directory", "dir", dir)
		return ExplicitDirectory{Dir: dir, Registry: r.registry}.Resolve()
	}

	class, err := ConventionScan{Locator: r.locator, Registry: r.registry}.Resolve()
	switch {
	case err == nil:
		r.logger.Debug("resolved kernel by convention", "kernel", class.Name, "file", class.Source)
		return class, nil
	case errors.Is(err, locator.ErrConfigNotFound), errors.Is(err, ErrNoKernelSource):
		r.logger.Debug("no kernel by convention, using default", "reason", err)
	default:
		return Class{}, err
	}

	return Default{Registry: r.registry}.Resolve()
}
