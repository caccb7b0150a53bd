package httputil

import (
	"context"
	"errors"
	"time"

	"github.com/cvelab/vulnenrich"
)

// Retry runs f up to "attempts" times, doubling the wait between attempts
// starting from base. Only transient errors are retried; anything else is
// returned immediately.
func Retry(ctx context.Context, attempts int, base time.Duration, f func(context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		if i != 0 {
			t := time.NewTimer(base << (i - 1))
			select {
			case <-ctx.Done():
				t.Stop()
				return context.Cause(ctx)
			case <-t.C:
			}
		}
		if err = f(ctx); err == nil {
			return nil
		}
		if !errors.Is(err, vulnenrich.ErrTransient) {
			return err
		}
	}
	return err
}
