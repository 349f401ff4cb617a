package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	// Kernels selectable by KERNEL_CLASS, KERNEL_DIR, or a config dir kernel source
	_ "github.com/redhat/kernel-fixtures/test/examples/shop"
	"github.com/redhat/kernel-fixtures/test/framework"
	"github.com/redhat/kernel-fixtures/test/framework/config"
	"github.com/redhat/kernel-fixtures/test/framework/kernel"
	"github.com/redhat/kernel-fixtures/test/framework/locator"
	"github.com/redhat/kernel-fixtures/test/framework/resolver"
)

func main() {
	var (
		_           = pflag.StringP("configuration", "c", "", "Config directory, also searched for a kernel source")
		testCases   = pflag.StringSlice("test-case", nil, "Test cases to boot, in order (repeatable or comma-separated)")
		configDir   = pflag.String("config-dir", "", "Directory holding the test cases (default: the located config directory)")
		rootConfig  = pflag.String("root-config", "", "Root config file of each test case (default: "+config.DefaultRootConfig+")")
		rootDir     = pflag.String("root-dir", "", "Project directory of the kernel (default: the config directory)")
		environment = pflag.String("env", "", "Kernel environment (default: $"+config.EnvEnvironment+" or "+config.DefaultEnvironment+")")
		debug       = pflag.Bool("debug", config.DefaultDebug, "Kernel debug flag (default: $"+config.EnvDebug+")")
		snapshotDir = pflag.String("snapshot-dir", "", "Write the serialized identity of each fixture to this directory")
		listKernels = pflag.Bool("list-kernels", false, "Print the kernel names this runner can build (built-ins plus linked-in kernels) and exit")
		dryRun      = pflag.Bool("dry-run", false, "Resolve the kernel and print the plan without booting")
		verbose     = pflag.BoolP("verbose", "v", false, "Enable debug logging")
	)
	pflag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *listKernels {
		for _, name := range resolver.DefaultRegistry().Names() {
			fmt.Println(name)
		}
		return
	}

	cases := append(*testCases, pflag.Args()...)
	if len(cases) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no test case given")
		pflag.Usage()
		os.Exit(1)
	}

	loc := locator.New(locator.WithLogger(logger))
	if *configDir == "" {
		dir, err := loc.Locate()
		if err != nil {
			if path, ok := loc.ConfigFromArgs(); ok {
				fmt.Fprintf(os.Stderr, "Error: --configuration %q is not usable: %v\n", path, err)
			} else {
				fmt.Fprintf(os.Stderr, "Error: --config-dir not set and %v\n", err)
			}
			os.Exit(1)
		}
		*configDir = dir
	}

	m := framework.New(framework.WithLogger(logger), framework.WithLocator(loc))

	class, err := m.KernelClass()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error resolving kernel: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Kernel: %s (%s)\n", class.Name, class.Origin)
	if class.Source != "" {
		fmt.Printf("Source: %s\n", class.Source)
	}
	fmt.Printf("Config dir: %s\n", *configDir)
	fmt.Printf("Test cases: %v\n\n", cases)

	if *dryRun {
		fmt.Println("Dry run mode - no kernel booted")
		return
	}

	base := framework.Options{
		Environment: *environment,
		ConfigDir:   *configDir,
		RootConfig:  *rootConfig,
		RootDir:     *rootDir,
	}
	if pflag.CommandLine.Changed("debug") {
		base.Debug = framework.Bool(*debug)
	}

	if *snapshotDir != "" {
		if err := os.MkdirAll(*snapshotDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating snapshot directory: %v\n", err)
			os.Exit(1)
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nReceived interrupt signal, shutting down kernel...")
		go func() {
			// Second interrupt force-exits
			<-sigCh
			os.Exit(130)
		}()
		if err := m.EnsureShutdown(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: teardown failed: %v\n", err)
		}
		os.Exit(130) // 128 + SIGINT(2)
	}()

	var results []*RunResult
	for _, tc := range cases {
		opts := base
		opts.TestCase = tc
		results = append(results, runTestCase(m, opts, *snapshotDir))
	}

	printSummary(results)

	for _, r := range results {
		if r.Error != nil {
			os.Exit(1)
		}
	}
}

// RunResult holds the result of booting one test case
type RunResult struct {
	TestCase string
	Duration time.Duration
	Error    error
}

func runTestCase(m *framework.Manager, opts framework.Options, snapshotDir string) *RunResult {
	startTime := time.Now()
	result := &RunResult{TestCase: opts.TestCase}

	fmt.Printf("========================================\n")
	fmt.Printf("Test case: %s\n", opts.TestCase)
	fmt.Printf("========================================\n")

	defer func() {
		if err := m.EnsureShutdown(); err != nil && result.Error == nil {
			result.Error = err
		}
		result.Duration = time.Since(startTime)
	}()

	k, err := m.CreateAndBoot(opts)
	if err != nil {
		result.Error = err
		return result
	}

	printKernel(k)

	if snapshotDir != "" {
		if err := writeSnapshot(k, snapshotDir); err != nil {
			result.Error = err
			return result
		}
	}
	return result
}

func printKernel(k kernel.Kernel) {
	fmt.Printf("  Environment: %s\n", k.Environment())
	fmt.Printf("  Debug:       %t\n", k.Debug())
	if tk, ok := k.(interface{ Name() string }); ok {
		fmt.Printf("  Name:        %s\n", tk.Name())
	}
	fmt.Printf("  Cache dir:   %s\n", k.CacheDir())
	fmt.Printf("  Log dir:     %s\n", k.LogDir())
	if plugins, ok := k.Container().Parameter("kernel.plugins"); ok {
		fmt.Printf("  Plugins:     %v\n", plugins)
	}
	fmt.Println()
}

// serializable kernels can be written to a snapshot file
type serializable interface {
	Name() string
	Serialize() ([]byte, error)
}

func writeSnapshot(k kernel.Kernel, dir string) error {
	s, ok := k.(serializable)
	if !ok {
		return nil
	}
	data, err := s.Serialize()
	if err != nil {
		return fmt.Errorf("failed to serialize kernel: %w", err)
	}
	path := filepath.Join(dir, s.Name()+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	fmt.Printf("  Snapshot:    %s\n\n", path)
	return nil
}

func printSummary(results []*RunResult) {
	fmt.Printf("\n========================================\n")
	fmt.Printf("SUMMARY\n")
	fmt.Printf("========================================\n")

	var passed, failed int
	for _, r := range results {
		status := "PASS"
		if r.Error != nil {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("  %s: %s (%s)\n", r.TestCase, status, r.Duration.Round(time.Millisecond))
		if r.Error != nil {
			fmt.Printf("    %v\n", r.Error)
		}
	}

	fmt.Printf("\nTotal: %d passed, %d failed\n", passed, failed)
}
