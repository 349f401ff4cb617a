package retry

import (
	"errors"
	"testing"
	"time"
)

// withSleep records delays instead of sleeping
func withSleep(delays *[]time.Duration) Option {
	return func(c *Config) {
		c.sleep = func(d time.Duration) {
			*delays = append(*delays, d)
		}
	}
}

func TestDo_Success(t *testing.T) {
	callCount := 0
	err := Do(func() error {
		callCount++
		return nil
	})

	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDo_RetryOnError(t *testing.T) {
	var delays []time.Duration
	callCount := 0
	err := Do(func() error {
		callCount++
		if callCount < 3 {
			return errors.New("transient error")
		}
		return nil
	}, WithMaxAttempts(5), withSleep(&delays))

	if err != nil {
		t.Errorf("expected no error after retries, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
	if len(delays) != 2 {
		t.Errorf("expected 2 sleeps, got %d", len(delays))
	}
}

func TestDo_MaxAttemptsExceeded(t *testing.T) {
	var delays []time.Duration
	callCount := 0
	testErr := errors.New("persistent error")
	err := Do(func() error {
		callCount++
		return testErr
	}, WithMaxAttempts(3), withSleep(&delays))

	if !errors.Is(err, testErr) {
		t.Errorf("expected last error, got %v", err)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestDo_ZeroAttemptsRunsOnce(t *testing.T) {
	callCount := 0
	_ = Do(func() error {
		callCount++
		return errors.New("fail")
	}, WithMaxAttempts(0))

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
}

func TestDo_PermanentErrorAfterRetries(t *testing.T) {
	var delays []time.Duration
	callCount := 0
	denied := errors.New("denied")
	err := Do(func() error {
		callCount++
		if callCount == 1 {
			return errors.New("busy")
		}
		return Permanent(denied)
	}, WithMaxAttempts(5), withSleep(&delays))

	if err != denied {
		t.Errorf("expected unwrapped permanent error, got %v", err)
	}
	if callCount != 2 {
		t.Errorf("expected 2 calls, got %d", callCount)
	}
}

func TestDo_PermanentError(t *testing.T) {
	var delays []time.Duration
	callCount := 0
	testErr := errors.New("permanent error")
	err := Do(func() error {
		callCount++
		return Permanent(testErr)
	}, WithMaxAttempts(5), withSleep(&delays))

	if err != testErr {
		t.Errorf("expected unwrapped permanent error, got %v", err)
	}
	if callCount != 1 {
		t.Errorf("expected 1 call (no retries for permanent error), got %d", callCount)
	}
}

func TestDo_BackoffIsCapped(t *testing.T) {
	var delays []time.Duration
	_ = Do(func() error {
		return errors.New("fail")
	},
		WithMaxAttempts(5),
		WithInitialDelay(10*time.Millisecond),
		WithMaxDelay(25*time.Millisecond),
		WithMultiplier(2),
		WithJitter(0),
		withSleep(&delays),
	)

	expected := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 25 * time.Millisecond, 25 * time.Millisecond}
	if len(delays) != len(expected) {
		t.Fatalf("expected %d delays, got %v", len(expected), delays)
	}
	for i := range expected {
		if delays[i] != expected[i] {
			t.Errorf("delay %d: expected %v, got %v", i, expected[i], delays[i])
		}
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var delays []time.Duration
	var attempts []int
	_ = Do(func() error {
		return errors.New("fail")
	}, WithMaxAttempts(3), withSleep(&delays), WithOnRetry(func(attempt int, err error, delay time.Duration) {
		attempts = append(attempts, attempt)
	}))

	if len(attempts) != 2 || attempts[0] != 1 || attempts[1] != 2 {
		t.Errorf("expected retries after attempts 1 and 2, got %v", attempts)
	}
}

func TestPermanent(t *testing.T) {
	if Permanent(nil) != nil {
		t.Error("expected Permanent(nil) to be nil")
	}

	baseErr := errors.New("base")
	err := Permanent(baseErr)
	var pe *PermanentError
	if !errors.As(err, &pe) {
		t.Error("expected a PermanentError")
	}
	if !errors.Is(err, baseErr) {
		t.Error("expected permanent error to wrap base error")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("expected MaxAttempts %d, got %d", DefaultMaxAttempts, cfg.MaxAttempts)
	}
	if cfg.InitialDelay != DefaultInitialDelay {
		t.Errorf("expected InitialDelay %v, got %v", DefaultInitialDelay, cfg.InitialDelay)
	}
	if cfg.MaxDelay != DefaultMaxDelay {
		t.Errorf("expected MaxDelay %v, got %v", DefaultMaxDelay, cfg.MaxDelay)
	}
}
