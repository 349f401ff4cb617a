package framework

import (
	"errors"
	"fmt"

	"github.com/redhat/kernel-fixtures/test/framework/kernel"
	"github.com/redhat/kernel-fixtures/test/framework/locator"
	"github.com/redhat/kernel-fixtures/test/framework/resolver"
)

// Sentinel errors for fixture operations
var (
	// ErrConfigNotFound indicates that no configuration directory could be discovered
	ErrConfigNotFound = locator.ErrConfigNotFound

	// ErrKernelClassNotFound indicates that the kernel type could not be resolved
	ErrKernelClassNotFound = resolver.ErrKernelClassNotFound

	// ErrInvalidArgument indicates a missing test case, root config, or required option
	ErrInvalidArgument = kernel.ErrInvalidArgument

	// ErrManifestFormat indicates a plugin manifest that is not a list
	ErrManifestFormat = kernel.ErrManifestFormat

	// ErrKernelShutDown indicates a kernel that was already shut down
	ErrKernelShutDown = kernel.ErrKernelShutDown
)

// FixtureError represents an error tied to a specific fixture operation
type FixtureError struct {
	Op       string
	TestCase string
	Err      error
}

func (e *FixtureError) Error() string {
	if e.TestCase != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.TestCase, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *FixtureError) Unwrap() error {
	return e.Err
}

// NewFixtureError creates a new FixtureError
func NewFixtureError(op, testCase string, err error) *FixtureError {
	return &FixtureError{
		Op:       op,
		TestCase: testCase,
		Err:      err,
	}
}

// CleanupError represents errors during fixture teardown
type CleanupError struct {
	Phase string
	Errs  []error
}

func (e *CleanupError) Error() string {
	return fmt.Sprintf("cleanup failed during %s phase: %v", e.Phase, errors.Join(e.Errs...))
}

func (e *CleanupError) Unwrap() error {
	return errors.Join(e.Errs...)
}

// NewCleanupError creates a new CleanupError
func NewCleanupError(phase string, errs ...error) *CleanupError {
	return &CleanupError{
		Phase: phase,
		Errs:  errs,
	}
}

// IsConfigNotFound returns true if no configuration directory could be found
func IsConfigNotFound(err error) bool {
	return errors.Is(err, ErrConfigNotFound)
}

// IsKernelClassNotFound returns true if the kernel type could not be resolved
func IsKernelClassNotFound(err error) bool {
	return errors.Is(err, ErrKernelClassNotFound)
}

// IsInvalidArgument returns true if the error indicates invalid fixture arguments
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsCleanup returns true if the error came from fixture teardown
func IsCleanup(err error) bool {
	var ce *CleanupError
	return errors.As(err, &ce)
}
