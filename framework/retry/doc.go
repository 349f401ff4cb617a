// Package retry repeats a failing operation with exponential backoff.
//
// Fixture teardown uses it to remove temp trees that a plugin may still be
// writing to while it stops:
//
//	err := retry.Do(func() error {
//	    err := os.RemoveAll(dir)
//	    if errors.Is(err, fs.ErrPermission) {
//	        return retry.Permanent(err) // stop retrying
//	    }
//	    return err
//	}, retry.WithMaxAttempts(4), retry.WithInitialDelay(20*time.Millisecond))
package retry
