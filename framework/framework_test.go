package framework

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/redhat/kernel-fixtures/test/framework/config"
	"github.com/redhat/kernel-fixtures/test/framework/kernel"
	"github.com/redhat/kernel-fixtures/test/framework/locator"
	"github.com/redhat/kernel-fixtures/test/framework/resolver"
)

// countingLocator reports no config directory and counts lookups
type countingLocator struct {
	calls int
}

func (l *countingLocator) Locate() (string, error) {
	l.calls++
	return "", locator.ErrConfigNotFound
}

// faultyPlugin fails on shutdown
type faultyPlugin struct{}

func (faultyPlugin) Name() string                   { return "faulty" }
func (faultyPlugin) Boot(c *kernel.Container) error { return nil }
func (faultyPlugin) Shutdown() error                { return errors.New("plugin refused to stop") }

func writeFixture(root string, files map[string]string) {
	for rel, content := range files {
		path := filepath.Join(root, rel)
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
	}
}

var _ = Describe("Manager", func() {
	var (
		configDir string
		tempRoot  string
		loc       *countingLocator
		plugins   *kernel.PluginRegistry
		cfg       *config.Config
		m         *Manager
	)

	newManager := func(opts ...Option) *Manager {
		base := []Option{
			WithConfig(cfg),
			WithLocator(loc),
			WithRegistry(resolver.NewRegistry()),
			WithKernelOptions(kernel.WithPluginRegistry(plugins)),
		}
		return New(append(base, opts...)...)
	}

	BeforeEach(func() {
		configDir = GinkgoT().TempDir()
		tempRoot = GinkgoT().TempDir()
		writeFixture(configDir, map[string]string{
			"Basic/config.yml":              "parameters:\n  locale: en\n",
			"Broken/config.yml":             "",
			"Broken/" + kernel.ManifestFile: "- missing\n",
			"Faulty/config.yml":             "",
			"Faulty/" + kernel.ManifestFile: "- faulty\n",
		})

		loc = &countingLocator{}
		plugins = kernel.NewPluginRegistry()
		plugins.Register("faulty", func(kernel.PluginDescriptor) (kernel.Plugin, error) {
			return faultyPlugin{}, nil
		})
		cfg = config.Default().WithTempRoot(tempRoot)
		m = newManager()
	})

	AfterEach(func() {
		Expect(m.EnsureShutdown()).To(Succeed())
	})

	Describe("CreateAndBoot", func() {
		It("boots the default test kernel for a test case", func() {
			k, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			Expect(k.State()).To(Equal(kernel.StateBooted))
			Expect(m.Kernel()).To(BeIdenticalTo(k))

			tk, ok := k.(*kernel.TestKernel)
			Expect(ok).To(BeTrue())
			Expect(tk.TempDir()).To(HavePrefix(tempRoot))
			Expect(tk.CacheDir()).To(BeADirectory())
			Expect(tk.LogDir()).To(BeADirectory())

			locale, ok := k.Container().Parameter("locale")
			Expect(ok).To(BeTrue())
			Expect(locale).To(Equal("en"))
		})

		It("uses the configured environment and debug flag when options are empty", func() {
			cfg = cfg.WithEnvironment("functional").WithDebug(false)
			m = newManager()

			k, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Environment()).To(Equal("functional"))
			Expect(k.Debug()).To(BeFalse())
		})

		It("prefers explicit options over configuration", func() {
			cfg = cfg.WithEnvironment("functional").WithDebug(false)
			m = newManager()

			k, err := m.CreateAndBoot(Options{Environment: "smoke", Debug: Bool(true), TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			Expect(k.Environment()).To(Equal("smoke"))
			Expect(k.Debug()).To(BeTrue())
		})

		It("requires test case options for fixture kernels", func() {
			_, err := m.CreateAndBoot(Options{ConfigDir: configDir})
			Expect(err).To(MatchError(ErrInvalidArgument))
			Expect(m.Kernel()).To(BeNil())

			_, err = m.CreateAndBoot(Options{TestCase: "Basic"})
			Expect(err).To(MatchError(ErrInvalidArgument))
		})

		It("fails before writing anything when the test case is missing", func() {
			rootDir := filepath.Join(GinkgoT().TempDir(), "root")

			_, err := m.CreateAndBoot(Options{TestCase: "nope", ConfigDir: configDir, RootDir: rootDir})
			Expect(IsInvalidArgument(err)).To(BeTrue())
			Expect(rootDir).NotTo(BeADirectory())

			entries, err := os.ReadDir(tempRoot)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("shuts down the previous kernel before creating a new one", func() {
			first, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			firstDir := first.(kernel.FixtureConfigurable).TempDir()

			second, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())

			Expect(first.State()).To(Equal(kernel.StateShutDown))
			Expect(firstDir).NotTo(BeADirectory())
			Expect(second.(kernel.FixtureConfigurable).TempDir()).NotTo(Equal(firstDir))
			Expect(m.Kernel()).To(BeIdenticalTo(second))
		})

		It("resolves the kernel class once per manager", func() {
			_, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			_, err = m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())

			Expect(loc.calls).To(Equal(1))
			class, err := m.KernelClass()
			Expect(err).NotTo(HaveOccurred())
			Expect(class.Name).To(Equal(resolver.DefaultKernel))
		})

		It("boots kernels that need no test case", func() {
			cfg = cfg.WithKernelClass(resolver.AppKernel)
			projectDir := GinkgoT().TempDir()
			m = newManager(WithKernelOptions(kernel.WithProjectDir(projectDir)))

			k, err := m.CreateAndBoot(Options{})
			Expect(err).NotTo(HaveOccurred())
			Expect(k).NotTo(BeAssignableToTypeOf(&kernel.TestKernel{}))
			Expect(k.CacheDir()).To(HavePrefix(projectDir))
		})

		It("reports unknown kernel classes", func() {
			cfg = cfg.WithKernelClass("NoSuchKernel")
			m = newManager()

			_, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(IsKernelClassNotFound(err)).To(BeTrue())
		})

		It("tears down a kernel that fails to boot", func() {
			_, err := m.CreateAndBoot(Options{TestCase: "Broken", ConfigDir: configDir})
			Expect(err).To(MatchError(kernel.ErrUnknownPlugin))
			Expect(m.Kernel()).To(BeNil())

			entries, err := os.ReadDir(tempRoot)
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})
	})

	Describe("EnsureShutdown", func() {
		It("is a no-op without an active kernel", func() {
			Expect(m.EnsureShutdown()).To(Succeed())
			Expect(m.EnsureShutdown()).To(Succeed())
		})

		It("shuts down, resets the container, and removes the temp dir", func() {
			k, err := m.CreateAndBoot(Options{TestCase: "Basic", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			tempDir := k.(kernel.FixtureConfigurable).TempDir()
			Expect(tempDir).To(BeADirectory())

			Expect(m.EnsureShutdown()).To(Succeed())
			Expect(k.State()).To(Equal(kernel.StateShutDown))
			Expect(tempDir).NotTo(BeADirectory())
			Expect(m.Kernel()).To(BeNil())

			_, ok := k.Container().Service("framework")
			Expect(ok).To(BeFalse())

			Expect(m.EnsureShutdown()).To(Succeed())
		})

		It("clears the active kernel even when teardown fails", func() {
			k, err := m.CreateAndBoot(Options{TestCase: "Faulty", ConfigDir: configDir})
			Expect(err).NotTo(HaveOccurred())
			tempDir := k.(kernel.FixtureConfigurable).TempDir()

			err = m.EnsureShutdown()
			Expect(IsCleanup(err)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("plugin refused to stop"))
			Expect(m.Kernel()).To(BeNil())
			Expect(tempDir).NotTo(BeADirectory())

			Expect(m.EnsureShutdown()).To(Succeed())
		})
	})
})
