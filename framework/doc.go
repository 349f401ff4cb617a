// Package framework provides a per-test setup/teardown harness for application
// kernels.
//
// A Manager resolves which kernel type to build, creates and boots one kernel
// fixture bound to a test case configuration directory, and guarantees its
// teardown: plugins are shut down, the service container is reset, and the
// fixture's temp directory is removed.
//
// # Quick Start
//
// Boot a fixture for a plain Go test:
//
//	func TestLogin(t *testing.T) {
//	    _, k := framework.Setup(t, framework.Options{
//	        TestCase:  "Login",
//	        ConfigDir: "testdata/functional",
//	    })
//	    // ... exercise k ...
//	}
//
// Teardown is registered with t.Cleanup and runs regardless of the test outcome.
//
// # Ginkgo
//
// Hold one Manager per suite and tear down after each spec:
//
//	var m = framework.New()
//
//	BeforeEach(func() {
//	    _, err := m.CreateAndBoot(framework.Options{TestCase: "Login", ConfigDir: dir})
//	    Expect(err).NotTo(HaveOccurred())
//	    DeferCleanup(m.EnsureShutdown)
//	})
//
// # Test Case Layout
//
// Each test case is a subdirectory of the config directory:
//
//	testdata/functional/
//	├── fixtures.yaml        marks the config directory
//	├── Login/
//	│   ├── config.yml       root config (Options.RootConfig)
//	│   └── bundles.yaml     optional plugin manifest (a YAML list)
//	└── shared.yml           can be imported from config.yml
//
// # Kernel Resolution
//
// The kernel type comes from, in order: the KERNEL_CLASS variable, a
// "*Kernel.go" file in KERNEL_DIR, a "*Kernel.go" file in the config directory
// (located from -c/--configuration or the working directory), or the built-in
// TestKernel. Named kernels must be registered with resolver.Register.
//
// # Environment Variables
//
//	KERNEL_CLASS     registered kernel name
//	KERNEL_DIR       directory scanned for a kernel source
//	KERNEL_ENV       environment name when Options.Environment is empty
//	KERNEL_DEBUG     debug flag when Options.Debug is nil
//	KERNEL_TMP_DIR   root of fixture temp directories
//
// # Concurrency
//
// A Manager holds a single active kernel and is meant for sequential tests.
// Parallel tests must each use their own Manager.
package framework
