// Package repeat runs periodic background work, such as the certificate
// expiry sweep.
package repeat

import (
	"context"
	"time"
)

// Start a goroutine which calls run immediately, then repeatedly with
// interval between calls. Calls never overlap. The goroutine exits when ctx
// is cancelled.
func Start(ctx context.Context, interval time.Duration, run func(context.Context)) {
	go func() {
		run(ctx)

		for {
			timer := time.NewTimer(interval)
			select {
			case <-timer.C:
				run(ctx)
			case <-ctx.Done():
				timer.Stop()
				return
			}
		}
	}()
}
