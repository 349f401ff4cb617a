package framework

import (
	"testing"

	"github.com/redhat/kernel-fixtures/test/framework/kernel"
)

// Setup boots a kernel fixture for t and registers its teardown with
// t.Cleanup, so it runs whether the test passes, fails, or panics.
func (m *Manager) Setup(t testing.TB, opts Options) kernel.Kernel {
	t.Helper()

	t.Cleanup(func() {
		if err := m.EnsureShutdown(); err != nil {
			t.Errorf("kernel fixture teardown: %v", err)
		}
	})

	k, err := m.CreateAndBoot(opts)
	if err != nil {
		t.Fatalf("failed to boot kernel fixture: %v", err)
	}
	return k
}

// Setup creates a Manager and boots a kernel fixture for t
func Setup(t testing.TB, opts Options, mopts ...Option) (*Manager, kernel.Kernel) {
	t.Helper()
	m := New(mopts...)
	return m, m.Setup(t, opts)
}
