package framework

import (
	"github.com/redhat/kernel-fixtures/test/framework/kernel"
)

// Options configures the kernel built by CreateAndBoot. Zero values fall back
// to the KERNEL_ENV / KERNEL_DEBUG overrides, then to "test" and true.
type Options struct {
	// Environment is the kernel environment name
	Environment string

	// Debug is the kernel debug flag
	Debug *bool

	// TestCase names a subdirectory of ConfigDir. Required for fixture kernels.
	TestCase string

	// ConfigDir holds the test case directories. Required for fixture kernels.
	ConfigDir string

	// RootConfig is the entry config file, default config.yml
	RootConfig string

	// RootDir is the kernel project directory, default ConfigDir
	RootDir string
}

// Bool returns a pointer to b, for Options.Debug
func Bool(b bool) *bool {
	return &b
}

func (o Options) fixtureConfig() kernel.FixtureConfig {
	return kernel.FixtureConfig{
		TestCase:   o.TestCase,
		ConfigDir:  o.ConfigDir,
		RootConfig: o.RootConfig,
		RootDir:    o.RootDir,
	}
}
