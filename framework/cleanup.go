package framework

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/redhat/kernel-fixtures/test/framework/kernel"
	"github.com/redhat/kernel-fixtures/test/framework/retry"
)

// removeRetry is the backoff for removing a fixture temp tree that a stopping
// plugin may still be writing to
var removeRetry = []retry.Option{
	retry.WithMaxAttempts(4),
	retry.WithInitialDelay(20 * time.Millisecond),
	retry.WithMaxDelay(200 * time.Millisecond),
	retry.WithMultiplier(2),
	retry.WithJitter(0.2),
}

// EnsureShutdown tears down the active kernel, if any. The active slot is
// cleared before teardown starts, so a failed teardown never leaves a stuck
// kernel behind. Calling it with no active kernel is a no-op.
func (m *Manager) EnsureShutdown() error {
	m.mu.Lock()
	k := m.active
	m.active = nil
	m.mu.Unlock()

	if k == nil {
		return nil
	}
	return m.teardown(k)
}

// teardown shuts the kernel down, resets its container, and removes its
// fixture temp directory. Every step runs even if an earlier one fails.
func (m *Manager) teardown(k kernel.Kernel) error {
	var errs []error

	// 1. Shut down plugins
	if err := k.Shutdown(); err != nil {
		errs = append(errs, fmt.Errorf("failed to shut down kernel: %w", err))
	}

	// 2. Drop service instances
	if c := k.Container(); c != nil {
		if r, ok := c.(kernel.Resettable); ok {
			r.Reset()
		}
	}

	// 3. Remove the fixture temp tree
	if fk, ok := k.(kernel.FixtureConfigurable); ok && fk.TempDir() != "" {
		dir := fk.TempDir()
		m.logger.Debug("removing fixture temp dir", "dir", dir)
		// RemoveAll tolerates a directory that is already gone
		onRetry := retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			m.logger.Debug("retrying fixture dir removal", "dir", dir, "attempt", attempt, "delay", delay, "error", err)
		})
		err := retry.Do(func() error {
			err := m.removeAll(dir)
			if errors.Is(err, fs.ErrPermission) {
				return retry.Permanent(err)
			}
			return err
		}, slices.Concat(removeRetry, []retry.Option{onRetry}, m.removeRetry)...)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to remove fixture dir %s: %w", dir, err))
		}
	}

	if len(errs) > 0 {
		return NewCleanupError("kernel shutdown", errs...)
	}

	m.logger.Info("kernel fixture shut down", "environment", k.Environment())
	return nil
}
