// Package locator finds the directory holding the test-runner configuration.
//
// The directory is taken from the last -c/--configuration flag on the command
// line, or from the working directory when it contains one of the default
// config filenames.
package locator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// ErrConfigNotFound indicates that no configuration directory could be discovered
var ErrConfigNotFound = errors.New("configuration directory not found")

// DefaultConfigFiles are the filenames that mark a directory as a config directory
var DefaultConfigFiles = []string{
	"fixtures.yaml",
	"fixtures.yml",
	"fixtures.yaml.dist",
	"fixtures.yml.dist",
}

// Locator discovers the configuration directory
type Locator struct {
	args        []string
	workDir     string
	configFiles []string
	logger      *slog.Logger
}

// Option is a function that configures the Locator
type Option func(*Locator)

// WithArgs sets the argument vector to scan. args[0] is the program name.
func WithArgs(args []string) Option {
	return func(l *Locator) {
		l.args = args
	}
}

// WithWorkDir sets the directory relative paths and the default lookup start from
func WithWorkDir(dir string) Option {
	return func(l *Locator) {
		l.workDir = dir
	}
}

// WithConfigFiles replaces the default config filenames
func WithConfigFiles(names ...string) Option {
	return func(l *Locator) {
		l.configFiles = names
	}
}

// WithLogger sets a custom logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Locator) {
		l.logger = logger
	}
}

// New creates a Locator reading os.Args and the process working directory
// unless overridden by options.
func New(opts ...Option) *Locator {
	l := &Locator{
		args:        os.Args,
		configFiles: DefaultConfigFiles,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Locate returns the absolute configuration directory
func (l *Locator) Locate() (string, error) {
	workDir, err := l.resolveWorkDir()
	if err != nil {
		return "", err
	}

	path, found, err := l.scanArgs()
	if err != nil {
		return "", err
	}
	if found {
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		dir, err := directoryOf(path)
		if err != nil {
			return "", err
		}
		l.logger.Debug("config directory from arguments", "dir", dir)
		return dir, nil
	}

	for _, name := range l.configFiles {
		if info, err := os.Stat(filepath.Join(workDir, name)); err == nil && !info.IsDir() {
			l.logger.Debug("config directory from working directory", "dir", workDir, "file", name)
			return workDir, nil
		}
	}

	return "", fmt.Errorf("%w: no configuration flag and none of %v in %s", ErrConfigNotFound, l.configFiles, workDir)
}

// ConfigFromArgs returns the raw value of the last configuration flag, if any
func (l *Locator) ConfigFromArgs() (string, bool) {
	path, found, err := l.scanArgs()
	if err != nil {
		return "", false
	}
	return path, found
}

// scanArgs parses the argument vector for the configuration flag. Unknown
// flags are skipped; repeated flags overwrite each other so the last one wins.
func (l *Locator) scanArgs() (string, bool, error) {
	if len(l.args) < 2 {
		return "", false, nil
	}

	fs := pflag.NewFlagSet("locator", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}
	fs.ParseErrorsWhitelist.UnknownFlags = true

	configuration := fs.StringP("configuration", "c", "", "path to the configuration file or directory")
	// Swallow help flags so they are not reported as parse errors
	fs.BoolP("help", "h", false, "")

	if err := fs.Parse(l.args[1:]); err != nil {
		return "", false, fmt.Errorf("%w: failed to parse arguments: %v", ErrConfigNotFound, err)
	}

	if !fs.Changed("configuration") {
		return "", false, nil
	}
	return *configuration, true, nil
}

func (l *Locator) resolveWorkDir() (string, error) {
	if l.workDir != "" {
		return filepath.Abs(l.workDir)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("%w: failed to get working directory: %v", ErrConfigNotFound, err)
	}
	return wd, nil
}

// directoryOf returns path itself when it is a directory, its parent when it is a file
func directoryOf(path string) (string, error) {
	path = filepath.Clean(path)
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrConfigNotFound, path, err)
	}
	if info.IsDir() {
		return path, nil
	}
	return filepath.Dir(path), nil
}
