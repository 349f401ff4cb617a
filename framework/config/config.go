package config

import (
	"os"
	"strconv"
)

// Defaults used when neither an explicit option nor an environment override is set
const (
	// DefaultEnvironment is the kernel environment name used for fixtures
	DefaultEnvironment = "test"

	// DefaultDebug is the kernel debug flag used for fixtures
	DefaultDebug = true

	// DefaultRootConfig is the entry config file, relative to the test case directory
	DefaultRootConfig = "config.yml"
)

// Environment variable names for configuration overrides
const (
	EnvKernelClass = "KERNEL_CLASS"
	EnvKernelDir   = "KERNEL_DIR"
	EnvEnvironment = "KERNEL_ENV"
	EnvDebug       = "KERNEL_DEBUG"
	EnvTempRoot    = "KERNEL_TMP_DIR"
)

// Config holds harness configuration with optional overrides
type Config struct {
	// KernelClass names a registered kernel type to use instead of resolving one
	KernelClass string

	// KernelDir is a directory scanned for a kernel source file.
	// Relative paths are resolved against the located config directory.
	KernelDir string

	// Environment is the kernel environment used when the caller doesn't pass one
	Environment string

	// Debug is the kernel debug flag used when the caller doesn't pass one
	Debug bool

	// TempRoot is the directory fixture temp trees are created under
	TempRoot string
}

// Default returns a Config with all default values
func Default() *Config {
	return &Config{
		Environment: DefaultEnvironment,
		Debug:       DefaultDebug,
		TempRoot:    os.TempDir(),
	}
}

// FromEnv returns a Config with values from environment variables, falling back to defaults
func FromEnv() *Config {
	cfg := Default()

	cfg.KernelClass = os.Getenv(EnvKernelClass)
	cfg.KernelDir = os.Getenv(EnvKernelDir)

	if v := os.Getenv(EnvEnvironment); v != "" {
		cfg.Environment = v
	}

	if v := os.Getenv(EnvDebug); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = b
		}
	}

	if v := os.Getenv(EnvTempRoot); v != "" {
		cfg.TempRoot = v
	}

	return cfg
}

// WithKernelClass returns a copy with updated kernel class
func (c *Config) WithKernelClass(name string) *Config {
	cp := *c
	cp.KernelClass = name
	return &cp
}

// WithKernelDir returns a copy with updated kernel directory
func (c *Config) WithKernelDir(dir string) *Config {
	cp := *c
	cp.KernelDir = dir
	return &cp
}

// WithEnvironment returns a copy with updated environment
func (c *Config) WithEnvironment(env string) *Config {
	cp := *c
	cp.Environment = env
	return &cp
}

// WithDebug returns a copy with updated debug flag
func (c *Config) WithDebug(debug bool) *Config {
	cp := *c
	cp.Debug = debug
	return &cp
}

// WithTempRoot returns a copy with updated temp root
func (c *Config) WithTempRoot(dir string) *Config {
	cp := *c
	cp.TempRoot = dir
	return &cp
}
