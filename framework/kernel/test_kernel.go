package kernel

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/redhat/kernel-fixtures/test/framework/config"
)

// FixtureConfig binds a TestKernel to one test case
type FixtureConfig struct {
	// TestCase names a subdirectory of ConfigDir
	TestCase string

	// ConfigDir holds one subdirectory per test case
	ConfigDir string

	// RootConfig is the entry config file. Relative paths are resolved inside
	// the test case directory. Defaults to config.yml.
	RootConfig string

	// RootDir is the project directory of the kernel, created if missing.
	// Defaults to ConfigDir.
	RootDir string
}

// Snapshot is the serialized identity of a TestKernel
type Snapshot struct {
	Environment string `json:"environment"`
	Debug       bool   `json:"debug"`
	TestCase    string `json:"test_case"`
	ConfigDir   string `json:"config_dir"`
	RootConfig  string `json:"root_config"`
	RootDir     string `json:"root_dir"`
	Name        string `json:"name"`
}

// TestKernel is an AppKernel bound to a test case configuration directory,
// with cache and log directories isolated under a per-fixture temp tree.
type TestKernel struct {
	*AppKernel

	testCase   string
	configDir  string
	rootConfig string
	rootDir    string
	name       string

	tempRoot string
	token    func() string
}

var _ FixtureConfigurable = (*TestKernel)(nil)

// NewTestKernel creates an unconfigured TestKernel. Configure must be called before Boot.
func NewTestKernel(environment string, debug bool, opts ...Option) *TestKernel {
	o := newOptions(opts)
	k := &TestKernel{
		AppKernel: newAppKernel(environment, debug, o),
		tempRoot:  o.tempRoot,
		token:     o.token,
	}
	k.UseLayout(k)
	return k
}

// TestKernelFactory is the Factory for TestKernel
func TestKernelFactory(environment string, debug bool, opts ...Option) (Kernel, error) {
	return NewTestKernel(environment, debug, opts...), nil
}

// Configure validates the test case layout, creates the root directory, and
// derives the fixture name. Nothing is written unless validation succeeds.
// The name is generated on the first successful call only.
func (k *TestKernel) Configure(cfg FixtureConfig) error {
	if k.State() != StateUnbooted {
		return fmt.Errorf("%w: cannot configure a %s kernel", ErrInvalidArgument, k.State())
	}
	if cfg.TestCase == "" {
		return fmt.Errorf("%w: test case is required", ErrInvalidArgument)
	}
	if cfg.ConfigDir == "" {
		return fmt.Errorf("%w: config dir is required", ErrInvalidArgument)
	}
	// Cache and log dirs nest the test case under TempDir, so it must stay inside
	if !filepath.IsLocal(cfg.TestCase) || filepath.Clean(cfg.TestCase) == "." {
		return fmt.Errorf("%w: test case %q must be a subdirectory of %s", ErrInvalidArgument, cfg.TestCase, cfg.ConfigDir)
	}

	configDir, err := filepath.Abs(cfg.ConfigDir)
	if err != nil {
		return fmt.Errorf("%w: config dir %s: %v", ErrInvalidArgument, cfg.ConfigDir, err)
	}

	caseDir := filepath.Join(configDir, cfg.TestCase)
	if info, err := os.Stat(caseDir); err != nil || !info.IsDir() {
		return fmt.Errorf("%w: test case %q does not exist in %s", ErrInvalidArgument, cfg.TestCase, configDir)
	}

	rootConfig := cfg.RootConfig
	if rootConfig == "" {
		rootConfig = config.DefaultRootConfig
	}
	if !filepath.IsAbs(rootConfig) {
		rootConfig = filepath.Join(caseDir, rootConfig)
	}
	if _, err := os.Stat(rootConfig); err != nil {
		return fmt.Errorf("%w: root config %s does not exist", ErrInvalidArgument, rootConfig)
	}

	rootDir := cfg.RootDir
	if rootDir == "" {
		rootDir = configDir
	}
	rootDir, err = filepath.Abs(rootDir)
	if err != nil {
		return fmt.Errorf("%w: root dir %s: %v", ErrInvalidArgument, cfg.RootDir, err)
	}
	if err := os.MkdirAll(rootDir, 0o755); err != nil {
		return fmt.Errorf("failed to create root dir %s: %w", rootDir, err)
	}

	k.testCase = cfg.TestCase
	k.configDir = configDir
	k.rootConfig = rootConfig
	k.rootDir = rootDir
	k.projectDir = rootDir
	if k.name == "" {
		k.name = fixtureName(configDir, cfg.TestCase, k.token())
	}

	k.logger.Debug("test kernel configured", "test_case", k.testCase, "config_dir", k.configDir, "name", k.name)
	return nil
}

var nonWordChars = regexp.MustCompile(`[^A-Za-z0-9_]+`)

// fixtureName keeps only word characters of the config dir basename and test
// case, then appends the uniqueness token.
func fixtureName(configDir, testCase, token string) string {
	base := nonWordChars.ReplaceAllString(filepath.Base(configDir)+testCase, "")
	if token == "" {
		return base
	}
	return base + "_" + nonWordChars.ReplaceAllString(token, "")
}

// Boot fails unless the kernel has been configured
func (k *TestKernel) Boot() error {
	if k.name == "" {
		return fmt.Errorf("%w: test kernel must be configured before boot", ErrInvalidArgument)
	}
	return k.AppKernel.Boot()
}

// Name is the fixture identity, stable across Serialize and Restore
func (k *TestKernel) Name() string { return k.name }

func (k *TestKernel) TestCase() string { return k.testCase }

func (k *TestKernel) ConfigDir() string { return k.configDir }

func (k *TestKernel) RootConfig() string { return k.rootConfig }

func (k *TestKernel) RootDir() string { return k.rootDir }

// TempDir is the per-fixture root holding cache and log directories.
// It is empty until the kernel is configured.
func (k *TestKernel) TempDir() string {
	if k.name == "" {
		return ""
	}
	return filepath.Join(k.tempRoot, k.name)
}

func (k *TestKernel) CacheDir() string {
	return filepath.Join(k.TempDir(), k.testCase, "cache", k.Environment())
}

func (k *TestKernel) LogDir() string {
	return filepath.Join(k.TempDir(), k.testCase, "logs")
}

// RegisterPlugins returns the framework plugin followed by the entries of the
// test case manifest, when one exists.
func (k *TestKernel) RegisterPlugins() ([]PluginDescriptor, error) {
	descriptors := []PluginDescriptor{{Name: FrameworkPluginName}}

	path := filepath.Join(k.configDir, k.testCase, ManifestFile)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return descriptors, nil
		}
		return nil, fmt.Errorf("failed to stat plugin manifest %s: %w", path, err)
	}

	declared, err := LoadManifest(path)
	if err != nil {
		return nil, err
	}
	return append(descriptors, declared...), nil
}

// LoadConfiguration hands the root config to loader
func (k *TestKernel) LoadConfiguration(loader ConfigLoader) error {
	return loader.Load(k.rootConfig)
}

// Snapshot returns the identity of the kernel
func (k *TestKernel) Snapshot() Snapshot {
	return Snapshot{
		Environment: k.Environment(),
		Debug:       k.Debug(),
		TestCase:    k.testCase,
		ConfigDir:   k.configDir,
		RootConfig:  k.rootConfig,
		RootDir:     k.rootDir,
		Name:        k.name,
	}
}

// Serialize encodes the kernel identity
func (k *TestKernel) Serialize() ([]byte, error) {
	if k.name == "" {
		return nil, fmt.Errorf("%w: cannot serialize an unconfigured test kernel", ErrInvalidArgument)
	}
	return json.Marshal(k.Snapshot())
}

// Restore rebuilds a kernel from Serialize output. The kernel is configured
// again from the snapshot, then takes the persisted name instead of the
// freshly generated one so its cache and log paths do not move.
func Restore(data []byte, opts ...Option) (*TestKernel, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: failed to decode kernel snapshot: %v", ErrInvalidArgument, err)
	}
	if s.Name == "" {
		return nil, fmt.Errorf("%w: kernel snapshot has no name", ErrInvalidArgument)
	}

	k := NewTestKernel(s.Environment, s.Debug, opts...)
	if err := k.Configure(FixtureConfig{
		TestCase:   s.TestCase,
		ConfigDir:  s.ConfigDir,
		RootConfig: s.RootConfig,
		RootDir:    s.RootDir,
	}); err != nil {
		return nil, err
	}
	k.name = s.Name
	return k, nil
}
